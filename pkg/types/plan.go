// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Implements: prd006-transformation-planner R1 (steps), R2 (conflicts),
// R4 (risks);
//
//	docs/ARCHITECTURE § Transformation Planner.
package types

// StepKind identifies an atomic planned action.
type StepKind int

const (
	StepCreateDir        StepKind = iota // Create a destination directory
	StepMoveFile                         // Move a file to its category destination
	StepRewriteReference                 // Rewrite references in one file to a moved file
	StepInjectMetadata                   // Prepend frontmatter to a moved file
	StepUpdateConfig                     // Rewrite a path-literal config value
)

func (k StepKind) String() string {
	switch k {
	case StepCreateDir:
		return "create-directory"
	case StepMoveFile:
		return "move-file"
	case StepRewriteReference:
		return "rewrite-reference"
	case StepInjectMetadata:
		return "inject-metadata"
	case StepUpdateConfig:
		return "update-config"
	default:
		return "unknown"
	}
}

// TransformationStep is one atomic action in a plan. Steps form a strict
// total order: directories before moves into them, moves before rewrites
// that point at the moved file, metadata injection after the file is at its
// final path.
type TransformationStep struct {
	Kind     StepKind `json:"kind"`
	Source   string   `json:"source,omitempty"`   // Original path (empty for create-directory)
	Dest     string   `json:"dest"`               // Destination path or directory
	Target   string   `json:"target,omitempty"`   // For rewrite steps: the file whose references are rewritten
	Category Category `json:"category,omitempty"` // Category driving the step, when applicable
	Detail   string   `json:"detail,omitempty"`   // Human-readable summary, e.g. a rewrite's diff stat
}

// ConflictKind identifies a detected planning problem.
type ConflictKind int

const (
	ConflictDestinationCollision ConflictKind = iota
	ConflictClassificationAmbiguity
	ConflictDependencyCycle
)

func (k ConflictKind) String() string {
	switch k {
	case ConflictDestinationCollision:
		return "destination-collision"
	case ConflictClassificationAmbiguity:
		return "classification-ambiguity"
	case ConflictDependencyCycle:
		return "dependency-cycle"
	default:
		return "unknown"
	}
}

// Conflict is a planning problem that must be resolved before a plan may be
// executed. A plan carrying an unresolved conflict is invalid.
type Conflict struct {
	Kind       ConflictKind `json:"kind"`
	Paths      []string     `json:"paths"`      // Involved file paths, sorted
	Resolution string       `json:"resolution"` // How the conflict was resolved (empty until resolved)
	Resolved   bool         `json:"resolved"`
}

// RiskKind identifies a flagged risk in a plan.
type RiskKind int

const (
	RiskEntryPointMove  RiskKind = iota // Moving a build/CI entry point
	RiskExternalExposed                 // Moved file has more external than internal consumers
	RiskBulkRewrite                     // Run rewrites more than the configured fraction of references
)

func (k RiskKind) String() string {
	switch k {
	case RiskEntryPointMove:
		return "entry-point-move"
	case RiskExternalExposed:
		return "external-consumers"
	case RiskBulkRewrite:
		return "bulk-rewrite"
	default:
		return "unknown"
	}
}

// Risk is a flagged hazard surfaced for review even in non-interactive mode.
// Each flagged risk requires an explicit checkpoint before execution.
type Risk struct {
	Kind   RiskKind `json:"kind"`
	Path   string   `json:"path,omitempty"`
	Detail string   `json:"detail"`
}

// TransformationPlan is an ordered, conflict-free step sequence produced by
// the planner. Held lists files deliberately left in place pending manual
// review.
type TransformationPlan struct {
	Steps     []TransformationStep `json:"steps"`
	Conflicts []Conflict           `json:"conflicts"` // All resolved; recorded for the audit artifact
	Risks     []Risk               `json:"risks"`
	Held      []string             `json:"held"` // Ambiguous files held at their current location
}

// Empty reports whether the plan performs no mutation. Running the engine on
// its own output must yield an empty plan.
func (p *TransformationPlan) Empty() bool {
	for _, s := range p.Steps {
		if s.Kind != StepCreateDir {
			return false
		}
	}
	return true
}

// Moves returns the move steps in plan order.
func (p *TransformationPlan) Moves() []TransformationStep {
	var moves []TransformationStep
	for _, s := range p.Steps {
		if s.Kind == StepMoveFile {
			moves = append(moves, s)
		}
	}
	return moves
}
