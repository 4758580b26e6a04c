// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Implements: prd009-validation-engine R4 (report);
//
//	prd001-engine-interface R6 (persisted run artifact).
package types

import "time"

// ValidationReport is the read-only outcome of post-run validation. Errors
// are fatal: a run carrying any is reported as failed even when execution
// completed mechanically. Warnings are advisory.
type ValidationReport struct {
	Structural  float64 `json:"structural"`  // Files reside under their category directory (0.0-1.0)
	Functional  float64 `json:"functional"`  // Intra-repo references resolve, entry points invocable
	Metadata    float64 `json:"metadata"`    // Required frontmatter fields present on touched files
	Integration float64 `json:"integration"` // Moved files' external interfaces unchanged

	Warnings []string `json:"warnings,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// Passed reports whether validation found no fatal errors.
func (r *ValidationReport) Passed() bool {
	return len(r.Errors) == 0
}

// RunReport is the machine-readable transformation artifact persisted for
// audit. It carries every step with its outcome and every conflict with its
// resolution.
type RunReport struct {
	ID         string              `json:"id"` // Run UUID
	Root       string              `json:"root"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
	DryRun     bool                `json:"dry_run"`
	Plan       *TransformationPlan `json:"plan"`
	Execution  *ExecutionResult    `json:"execution,omitempty"`
	Validation *ValidationReport   `json:"validation,omitempty"`
	Ambiguous  []string            `json:"ambiguous,omitempty"` // Files needing manual follow-up
}
