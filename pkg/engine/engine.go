// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package engine defines the public interface for restruct, a library that
// restructures a repository into a category taxonomy with transactional
// safety.
// Implements: prd001-engine-interface R1, R2, R3;
//
//	docs/ARCHITECTURE § Engine Interface.
package engine

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/petar-djukic/restruct/internal/classify"
	"github.com/petar-djukic/restruct/pkg/types"
)

// Error types for the Engine API.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrNoArtifact    = errors.New("no run artifact found")
	ErrUndo          = errors.New("cannot undo run")
)

// Checkpoint backend selection.
const (
	CheckpointCopy = "copy" // Full-tree copy; exact restore, no history kept
	CheckpointGit  = "git"  // Commit in the target repo; enables undo after success
)

// Config configures an Engine instance.
//
// Implements: prd001-engine-interface R1.1-R1.9.
type Config struct {
	Root           string   // Repository root (required)
	RulesPath      string   // Optional YAML classification rule table
	IgnorePatterns []string // Extra ignore globs on top of built-in exclusions
	Model          string   // Bedrock model ID; empty disables the oracle tier
	Region         string   // AWS region for the oracle
	Checkpoint     string   // CheckpointCopy (default) or CheckpointGit

	AmbiguityThreshold  float64 // Hold files below this confidence (default 0.5)
	BulkRewriteFraction float64 // Bulk-rewrite risk threshold (default 0.5)
	Workers             int     // Bounded pool size for analysis/classification

	// Oracle overrides the Bedrock client, primarily for tests. When set,
	// Model and Region are ignored.
	Oracle classify.Oracle

	Logger *zap.Logger // Defaults to a no-op logger
}

// Engine restructures the repository configured at construction.
//
// Implements: prd001-engine-interface R2.1-R2.5.
type Engine interface {
	// Plan runs the read-only pipeline (analyze, classify, plan) and
	// persists a dry-run artifact. The tree is not mutated.
	Plan(ctx context.Context) (*types.RunReport, error)

	// Run executes the full pipeline: plan, transactional execution, and
	// post-run validation. The artifact is persisted either way.
	Run(ctx context.Context) (*types.RunReport, error)

	// Validate re-checks the current tree against the last run's plan.
	Validate(ctx context.Context) (*types.ValidationReport, error)

	// Undo restores the tree to the last run's checkpoint. Only available
	// with the git checkpoint backend, whose commits outlive the run.
	Undo(ctx context.Context) error
}
