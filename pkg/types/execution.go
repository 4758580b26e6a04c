// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Implements: prd007-execution-engine R1 (state machine), R5 (result);
//
//	docs/ARCHITECTURE § Execution Engine.
package types

// ExecutionStatus is the terminal status of an execution run.
type ExecutionStatus string

const (
	StatusCompleted  ExecutionStatus = "SUCCESS"
	StatusRolledBack ExecutionStatus = "ROLLED_BACK"
	// StatusFailedUnrecoverable means rollback itself failed. The filesystem
	// may be in neither the original nor a fully-applied state. Always
	// reported, never silently retried.
	StatusFailedUnrecoverable ExecutionStatus = "FAILED_UNRECOVERABLE"
)

// StepOutcome records the fate of one planned step.
type StepOutcome struct {
	Step     TransformationStep `json:"step"`
	Applied  bool               `json:"applied"`
	Reverted bool               `json:"reverted"`
	Error    string             `json:"error,omitempty"`
	Warnings []string           `json:"warnings,omitempty"` // e.g. references left untouched
}

// ExecutionResult is the terminal record of an execution run.
type ExecutionResult struct {
	Status       ExecutionStatus `json:"status"`
	Outcomes     []StepOutcome   `json:"outcomes"`
	FailedStep   int             `json:"failed_step"` // Index of the failing step, -1 on success
	Error        string          `json:"error,omitempty"`
	CheckpointID string          `json:"checkpoint_id,omitempty"`
}
