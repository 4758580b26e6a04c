// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package executor applies a transformation plan transactionally: exclusive
// lock, checkpoint, sequential single-writer step application with per-step
// validation, and full rollback on failure.
// Implements: prd007-execution-engine R1, R2, R3, R5;
//
//	docs/ARCHITECTURE § Execution Engine.
package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/petar-djukic/restruct/pkg/types"
)

const lockFileName = ".restruct.lock"

var (
	// ErrCheckpoint wraps checkpoint create/restore failures.
	ErrCheckpoint = errors.New("checkpoint failure")
	// ErrLocked means another run holds the repository lock. Concurrent
	// runs are rejected, not queued.
	ErrLocked = errors.New("repository is locked by another run")
	// ErrStepValidation wraps a failed post-step validation predicate.
	ErrStepValidation = errors.New("step validation failed")
)

// state tracks the run's position in the execution state machine.
type state int

const (
	stateInit state = iota
	stateCheckpointed
	stateRunning
	stateCompleted
	stateRollingBack
	stateRolledBack
	stateFailedUnrecoverable
)

func (s state) String() string {
	switch s {
	case stateInit:
		return "INIT"
	case stateCheckpointed:
		return "CHECKPOINTED"
	case stateRunning:
		return "RUNNING"
	case stateCompleted:
		return "COMPLETED"
	case stateRollingBack:
		return "ROLLING_BACK"
	case stateRolledBack:
		return "ROLLED_BACK"
	case stateFailedUnrecoverable:
		return "FAILED_UNRECOVERABLE"
	default:
		return "UNKNOWN"
	}
}

// Executor applies plans under a single-writer discipline.
type Executor struct {
	root    string
	backend Backend
	log     *zap.Logger

	// beforeStep is a test seam for injecting failures at a given step.
	beforeStep func(i int, step types.TransformationStep) error
}

// New creates an executor for the tree at root. A nil backend defaults to
// the full-copy checkpoint.
func New(root string, backend Backend, log *zap.Logger) *Executor {
	if backend == nil {
		backend = &CopyBackend{Root: root}
	}
	return &Executor{root: root, backend: backend, log: log}
}

// Run executes the plan. rewrites holds the post-move content for each
// rewrite/update-config step target, computed before any move is applied.
//
// The checkpoint must exist before the first mutating step; restore failure
// is the only path to the unrecoverable terminal state. On any other
// failure the filesystem is returned to its pre-run state.
//
// Implements: prd007-execution-engine R1.1-R1.6, R2.1-R2.4.
func (e *Executor) Run(ctx context.Context, plan *types.TransformationPlan, rewrites map[string][]byte) (types.ExecutionResult, error) {
	for _, c := range plan.Conflicts {
		if !c.Resolved {
			return types.ExecutionResult{}, fmt.Errorf("plan carries unresolved %s conflict", c.Kind)
		}
	}

	unlock, err := e.acquireLock()
	if err != nil {
		return types.ExecutionResult{}, err
	}
	defer unlock()

	st := stateInit
	enter := func(next state) {
		e.log.Debug("state transition",
			zap.String("from", st.String()), zap.String("to", next.String()))
		st = next
	}
	result := types.ExecutionResult{FailedStep: -1}

	checkpointID, err := e.backend.Create(ctx)
	if err != nil {
		// No mutation has been attempted; the tree is untouched.
		result.Status = types.StatusFailedUnrecoverable
		result.Error = err.Error()
		return result, err
	}
	enter(stateCheckpointed)
	result.CheckpointID = checkpointID
	e.log.Info("checkpoint created", zap.String("id", checkpointID))

	for i, step := range plan.Steps {
		enter(stateRunning)
		outcome := types.StepOutcome{Step: step}

		err := e.applyStep(step, rewrites)
		if err == nil && e.beforeStep != nil {
			err = e.beforeStep(i, step)
		}
		if err == nil {
			err = e.validateStep(step)
		}

		if err != nil {
			e.log.Error("step failed",
				zap.Int("step", i),
				zap.String("kind", step.Kind.String()),
				zap.Error(err))
			outcome.Error = err.Error()
			result.Outcomes = append(result.Outcomes, outcome)
			result.FailedStep = i
			result.Error = err.Error()

			enter(stateRollingBack)
			if rbErr := e.backend.Restore(ctx, checkpointID); rbErr != nil {
				enter(stateFailedUnrecoverable)
				result.Status = types.StatusFailedUnrecoverable
				result.Error = fmt.Sprintf("step %d: %v; rollback failed: %v", i, err, rbErr)
				return result, rbErr
			}
			enter(stateRolledBack)
			for j := range result.Outcomes {
				if result.Outcomes[j].Applied {
					result.Outcomes[j].Reverted = true
				}
			}
			result.Status = types.StatusRolledBack
			e.log.Warn("rolled back to checkpoint", zap.String("id", checkpointID))
			return result, nil
		}

		outcome.Applied = true
		result.Outcomes = append(result.Outcomes, outcome)
	}

	enter(stateCompleted)
	result.Status = types.StatusCompleted
	if err := e.backend.Release(ctx, checkpointID); err != nil {
		e.log.Warn("releasing checkpoint failed", zap.Error(err))
	}
	return result, nil
}

// acquireLock takes the exclusive run lock for the tree. The lock file is
// created with O_EXCL so two runs can never both hold it.
//
// Implements: prd007-execution-engine R1.5 (concurrent runs rejected).
func (e *Executor) acquireLock() (func(), error) {
	lockPath := filepath.Join(e.root, lockFileName)
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: %s exists", ErrLocked, lockFileName)
		}
		return nil, fmt.Errorf("acquiring lock: %w", err)
	}
	fmt.Fprintf(f, "pid %d\n", os.Getpid())
	f.Close()
	return func() { os.Remove(lockPath) }, nil
}
