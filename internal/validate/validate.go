// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package validate checks a transformed tree after execution: structural
// placement, reference integrity, metadata completeness, and content
// preservation. Validation is read-only and never mutates the tree.
// Implements: prd009-validation-engine R1, R2, R3, R4;
//
//	docs/ARCHITECTURE § Validation Engine.
package validate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/petar-djukic/restruct/internal/analyzer"
	"github.com/petar-djukic/restruct/internal/depgraph"
	"github.com/petar-djukic/restruct/internal/frontmatter"
	"github.com/petar-djukic/restruct/pkg/types"
)

// Run validates the tree at root against the executed plan. preSnap and
// preGraph describe the tree before the run; the tree is re-analyzed here
// so every check works from post-run reality, not planner intent.
//
// Implements: prd009-validation-engine R1.1-R4.2.
func Run(ctx context.Context, root string, preSnap *types.RepoSnapshot, preGraph *depgraph.Graph, plan *types.TransformationPlan, log *zap.Logger) (*types.ValidationReport, error) {
	report := &types.ValidationReport{Structural: 1.0, Functional: 1.0, Metadata: 1.0, Integration: 1.0}

	postSnap, err := analyzer.Analyze(ctx, root, analyzer.Config{}, log)
	if err != nil {
		return nil, fmt.Errorf("re-analyzing tree: %w", err)
	}
	postGraph, err := depgraph.Build(ctx, postSnap, log)
	if err != nil {
		return nil, fmt.Errorf("re-building graph: %w", err)
	}

	moves := plan.Moves()
	checkStructural(postSnap, moves, report)
	checkFunctional(preGraph, postGraph, plan, postSnap, report)
	checkMetadata(root, plan, report)
	checkIntegration(root, preSnap, plan, moves, report)

	return report, nil
}

// checkStructural verifies every moved file resides under its category
// directory.
func checkStructural(snap *types.RepoSnapshot, moves []types.TransformationStep, report *types.ValidationReport) {
	if len(moves) == 0 {
		return
	}
	ok := 0
	for _, m := range moves {
		dir := m.Category.Dir()
		if snap.Contains(m.Dest) && (dir == "" || strings.HasPrefix(m.Dest, dir+"/")) {
			ok++
			continue
		}
		report.Errors = append(report.Errors, fmt.Sprintf(
			"structural: %s not found under %s/", m.Dest, dir))
	}
	report.Structural = float64(ok) / float64(len(moves))
}

// checkFunctional verifies no dangling intra-repo reference was introduced
// and that moved entry points still exist. References that were already
// external before the run stay exempt.
func checkFunctional(preGraph, postGraph *depgraph.Graph, plan *types.TransformationPlan, postSnap *types.RepoSnapshot, report *types.ValidationReport) {
	preExternal := make(map[string]bool, len(preGraph.External))
	for _, ref := range preGraph.External {
		preExternal[ref.Reference] = true
	}

	introduced := 0
	for _, ref := range postGraph.External {
		if preExternal[ref.Reference] {
			continue
		}
		introduced++
		report.Errors = append(report.Errors, fmt.Sprintf(
			"functional: %s references %q, which no longer resolves", ref.From, ref.Reference))
	}

	for _, r := range plan.Risks {
		if r.Kind != types.RiskEntryPointMove {
			continue
		}
		dest := r.Path
		for _, m := range plan.Moves() {
			if m.Source == r.Path {
				dest = m.Dest
			}
		}
		if !postSnap.Contains(dest) {
			introduced++
			report.Errors = append(report.Errors, fmt.Sprintf(
				"functional: entry point %s missing after run", dest))
		}
	}

	total := len(postGraph.Edges) + introduced
	if total > 0 && introduced > 0 {
		report.Functional = 1.0 - float64(introduced)/float64(total)
	}
}

// checkMetadata verifies required frontmatter fields on every file the plan
// injected metadata into. Missing fields are fatal: the injection step
// claimed success.
func checkMetadata(root string, plan *types.TransformationPlan, report *types.ValidationReport) {
	var targets []string
	for _, s := range plan.Steps {
		if s.Kind == types.StepInjectMetadata {
			targets = append(targets, s.Target)
		}
	}
	if len(targets) == 0 {
		return
	}

	ok := 0
	for _, target := range targets {
		content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(target)))
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("metadata: reading %s: %v", target, err))
			continue
		}
		fields, found := frontmatter.Extract(content, target)
		if !found {
			report.Errors = append(report.Errors, fmt.Sprintf("metadata: %s carries no frontmatter", target))
			continue
		}
		if missing := frontmatter.Missing(fields); len(missing) > 0 {
			report.Warnings = append(report.Warnings, fmt.Sprintf(
				"metadata: %s missing fields %v", target, missing))
			continue
		}
		ok++
	}
	report.Metadata = float64(ok) / float64(len(targets))
}

// checkIntegration verifies content preservation: a moved file whose
// references were not rewritten must be byte-identical outside the injected
// metadata block.
func checkIntegration(root string, preSnap *types.RepoSnapshot, plan *types.TransformationPlan, moves []types.TransformationStep, report *types.ValidationReport) {
	if len(moves) == 0 {
		return
	}

	rewritten := map[string]bool{}
	for _, s := range plan.Steps {
		if s.Kind == types.StepRewriteReference || s.Kind == types.StepUpdateConfig {
			rewritten[s.Target] = true
		}
	}

	checked, ok := 0, 0
	for _, m := range moves {
		if rewritten[m.Dest] {
			continue
		}
		pre, found := preSnap.Lookup(m.Source)
		if !found {
			continue
		}
		checked++

		content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(m.Dest)))
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("integration: reading %s: %v", m.Dest, err))
			continue
		}
		payload := frontmatter.Strip(content, m.Dest)
		sum := sha256.Sum256(payload)
		if hex.EncodeToString(sum[:]) != pre.Hash {
			report.Errors = append(report.Errors, fmt.Sprintf(
				"integration: %s content changed outside the metadata block", m.Dest))
			continue
		}
		ok++
	}
	if checked > 0 {
		report.Integration = float64(ok) / float64(checked)
	}
}
