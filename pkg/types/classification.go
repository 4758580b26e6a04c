// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Implements: prd005-classification R1 (category taxonomy), R2 (tiers);
//
//	docs/ARCHITECTURE § Classification Engine.
package types

// Category is the target taxonomy bucket assigned to a file.
type Category string

const (
	CategorySource        Category = "source"
	CategoryData          Category = "data"
	CategoryDocumentation Category = "documentation"
	CategoryTests         Category = "tests"
	CategoryMeta          Category = "meta"
	// CategoryAmbiguous marks files no tier could confidently resolve.
	// Ambiguous files are never moved; they are routed to manual review.
	CategoryAmbiguous Category = "ambiguous"
)

// Categories lists every placeable category in deterministic order.
// CategoryAmbiguous is excluded because it has no destination directory.
var Categories = []Category{
	CategorySource,
	CategoryData,
	CategoryDocumentation,
	CategoryTests,
	CategoryMeta,
}

// Dir returns the destination directory name for the category, or the empty
// string for ambiguous.
func (c Category) Dir() string {
	switch c {
	case CategorySource:
		return "src"
	case CategoryData:
		return "data"
	case CategoryDocumentation:
		return "docs"
	case CategoryTests:
		return "tests"
	case CategoryMeta:
		return "meta"
	default:
		return ""
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategorySource, CategoryData, CategoryDocumentation, CategoryTests, CategoryMeta, CategoryAmbiguous:
		return true
	}
	return false
}

// Tier identifies which stage of the layered classification pipeline produced
// a classification.
type Tier int

const (
	TierRule       Tier = iota // Explicit glob-pattern rule, confidence 1.0
	TierContent                // Content signature heuristic, confidence 0.5-0.9
	TierDependency             // Dependency-graph propagation, confidence ≤ 0.6
	TierOracle                 // External LLM oracle, confidence clamped to ≤ 0.8
	TierDefault                // Fallback: ambiguous, confidence 0.0
)

func (t Tier) String() string {
	switch t {
	case TierRule:
		return "rule"
	case TierContent:
		return "content"
	case TierDependency:
		return "dependency"
	case TierOracle:
		return "oracle"
	case TierDefault:
		return "default"
	default:
		return "unknown"
	}
}

// Classification is the immutable result of classifying one file.
// Re-classification produces a new value; the old one is discarded.
type Classification struct {
	Path       string   // File path relative to the snapshot root
	Category   Category // Assigned category
	Confidence float64  // 0.0-1.0
	Tier       Tier     // Which tier decided
	Reasoning  string   // Free-text justification (oracle reasoning, rule pattern, ...)
}
