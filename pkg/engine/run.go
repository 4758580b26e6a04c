// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Implements: prd001-engine-interface R5 (pipeline orchestration);
//
//	docs/ARCHITECTURE § Engine Interface.
package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/petar-djukic/restruct/internal/analyzer"
	"github.com/petar-djukic/restruct/internal/classify"
	"github.com/petar-djukic/restruct/internal/conventions"
	"github.com/petar-djukic/restruct/internal/depgraph"
	"github.com/petar-djukic/restruct/internal/executor"
	"github.com/petar-djukic/restruct/internal/planner"
	"github.com/petar-djukic/restruct/internal/refupdate"
	"github.com/petar-djukic/restruct/internal/report"
	"github.com/petar-djukic/restruct/internal/validate"
	"github.com/petar-djukic/restruct/pkg/types"
)

// runner implements Engine.
type runner struct {
	cfg    Config
	oracle classify.Oracle
	log    *zap.Logger
}

// pipeline holds the read-only analysis products shared by Plan and Run.
type pipeline struct {
	snap  *types.RepoSnapshot
	graph *depgraph.Graph
	conv  types.ProjectConventions
	plan  *types.TransformationPlan
}

// analyzeAndPlan runs the read-only half of the pipeline.
func (r *runner) analyzeAndPlan(ctx context.Context) (*pipeline, error) {
	snap, err := analyzer.Analyze(ctx, r.cfg.Root, analyzer.Config{
		IgnorePatterns: r.cfg.IgnorePatterns,
		Workers:        r.cfg.Workers,
	}, r.log)
	if err != nil {
		return nil, err
	}
	conv := conventions.Infer(snap)

	graph, err := depgraph.Build(ctx, snap, r.log)
	if err != nil {
		return nil, err
	}

	rules := classify.DefaultRules()
	if r.cfg.RulesPath != "" {
		rules, err = classify.LoadRules(r.cfg.RulesPath)
		if err != nil {
			return nil, err
		}
	}

	class, err := classify.New(classify.Config{
		Rules:   rules,
		Workers: r.cfg.Workers,
	}, r.oracle, r.log).Classify(ctx, snap, graph, conv)
	if err != nil {
		return nil, err
	}

	plan, err := planner.Build(snap, graph, conv, class, planner.Config{
		AmbiguityThreshold:  r.cfg.AmbiguityThreshold,
		BulkRewriteFraction: r.cfg.BulkRewriteFraction,
	}, r.log)
	if err != nil {
		return nil, err
	}

	return &pipeline{snap: snap, graph: graph, conv: conv, plan: plan}, nil
}

// Plan runs analysis and planning only, persisting a dry-run artifact.
func (r *runner) Plan(ctx context.Context) (*types.RunReport, error) {
	p, err := r.analyzeAndPlan(ctx)
	if err != nil {
		return nil, err
	}

	artifact := report.New(r.cfg.Root, true)
	artifact.Plan = p.plan
	artifact.Ambiguous = p.plan.Held
	if _, err := report.Write(r.cfg.Root, artifact); err != nil {
		return nil, err
	}
	return artifact, nil
}

// Run executes the full pipeline. Execution failures are reported through
// the artifact, not as an error: a rolled-back run is a valid outcome.
func (r *runner) Run(ctx context.Context) (*types.RunReport, error) {
	p, err := r.analyzeAndPlan(ctx)
	if err != nil {
		return nil, err
	}

	artifact := report.New(r.cfg.Root, false)
	artifact.Plan = p.plan
	artifact.Ambiguous = p.plan.Held

	if p.plan.Empty() {
		r.log.Info("plan is empty; tree already conforms")
		artifact.Validation = &types.ValidationReport{Structural: 1.0, Functional: 1.0, Metadata: 1.0, Integration: 1.0}
		if _, err := report.Write(r.cfg.Root, artifact); err != nil {
			return nil, err
		}
		return artifact, nil
	}

	moves := map[string]string{}
	for _, m := range p.plan.Moves() {
		moves[m.Source] = m.Dest
	}
	rewrites, err := refupdate.Compute(r.cfg.Root, p.snap, p.graph, moves, r.log)
	if err != nil {
		return nil, fmt.Errorf("computing reference rewrites: %w", err)
	}

	exec := executor.New(r.cfg.Root, r.backend(), r.log)
	result, execErr := exec.Run(ctx, p.plan, rewrites.Contents)
	artifact.Execution = &result

	if result.Status == types.StatusCompleted {
		validation, err := validate.Run(ctx, r.cfg.Root, p.snap, p.graph, p.plan, r.log)
		if err != nil {
			return nil, err
		}
		validation.Warnings = append(validation.Warnings, rewrites.Warnings...)
		artifact.Validation = validation

		if err := writeIndex(r.cfg.Root); err != nil {
			r.log.Warn("writing docs index failed", zap.Error(err))
		}
	}

	if _, err := report.Write(r.cfg.Root, artifact); err != nil {
		return nil, err
	}
	return artifact, execErr
}

// Validate re-checks the current tree against the last persisted plan.
// Without the pre-run graph, references that are external now are treated
// as pre-existing, so this catches structural and metadata drift.
func (r *runner) Validate(ctx context.Context) (*types.ValidationReport, error) {
	artifact, err := report.Load(r.cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoArtifact, err)
	}
	if artifact.Plan == nil {
		return nil, fmt.Errorf("%w: artifact carries no plan", ErrNoArtifact)
	}

	snap, err := analyzer.Analyze(ctx, r.cfg.Root, analyzer.Config{
		IgnorePatterns: r.cfg.IgnorePatterns,
		Workers:        r.cfg.Workers,
	}, r.log)
	if err != nil {
		return nil, err
	}
	graph, err := depgraph.Build(ctx, snap, r.log)
	if err != nil {
		return nil, err
	}

	return validate.Run(ctx, r.cfg.Root, snap, graph, artifact.Plan, r.log)
}

// Undo restores the tree to the last run's checkpoint.
func (r *runner) Undo(ctx context.Context) error {
	artifact, err := report.Load(r.cfg.Root)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoArtifact, err)
	}
	if artifact.Execution == nil || artifact.Execution.CheckpointID == "" {
		return fmt.Errorf("%w: no checkpoint recorded", ErrUndo)
	}
	if r.cfg.Checkpoint != CheckpointGit {
		return fmt.Errorf("%w: copy checkpoints are released after success; use the git backend", ErrUndo)
	}

	backend := &executor.GitBackend{Root: r.cfg.Root}
	if err := backend.Restore(ctx, artifact.Execution.CheckpointID); err != nil {
		return fmt.Errorf("%w: %v", ErrUndo, err)
	}
	r.log.Info("restored checkpoint", zap.String("id", artifact.Execution.CheckpointID))
	return nil
}

func (r *runner) backend() executor.Backend {
	if r.cfg.Checkpoint == CheckpointGit {
		return &executor.GitBackend{Root: r.cfg.Root}
	}
	return &executor.CopyBackend{Root: r.cfg.Root}
}
