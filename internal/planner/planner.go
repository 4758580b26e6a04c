// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package planner converts classifications and the dependency graph into an
// ordered, conflict-free transformation plan. Planning is single-threaded
// and processes files in lexicographic order, so identical inputs always
// produce byte-identical plans.
// Implements: prd006-transformation-planner R1, R2, R3, R4;
//
//	docs/ARCHITECTURE § Transformation Planner.
package planner

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/petar-djukic/restruct/internal/conventions"
	"github.com/petar-djukic/restruct/internal/depgraph"
	"github.com/petar-djukic/restruct/internal/frontmatter"
	"github.com/petar-djukic/restruct/internal/refupdate"
	"github.com/petar-djukic/restruct/pkg/types"
)

// ErrConflict reports an unresolvable planning conflict. No partial plan is
// ever emitted alongside it.
var ErrConflict = errors.New("unresolvable planning conflict")

// Config carries the planner's tunable thresholds.
type Config struct {
	// AmbiguityThreshold holds files below this confidence at their current
	// location. Defaults to 0.5.
	AmbiguityThreshold float64
	// BulkRewriteFraction flags a risk when more than this fraction of all
	// reference edges would be rewritten in one run. Defaults to 0.5.
	BulkRewriteFraction float64
	// EntryPoints adds basenames to the built-in entry-point set.
	EntryPoints []string
}

func (c *Config) applyDefaults() {
	if c.AmbiguityThreshold <= 0 {
		c.AmbiguityThreshold = 0.5
	}
	if c.BulkRewriteFraction <= 0 {
		c.BulkRewriteFraction = 0.5
	}
}

var configStepExts = map[string]struct{}{
	".yaml": {}, ".yml": {}, ".json": {}, ".toml": {}, ".ini": {},
}

// Build produces the transformation plan. Cycle conflicts are resolved
// first (they can change a file's effective category), then ambiguity
// holds, then destination collisions; steps are emitted in dependency
// order afterwards.
//
// Implements: prd006-transformation-planner R1.1-R1.4, R2.1-R2.4.
func Build(snap *types.RepoSnapshot, graph *depgraph.Graph, conv types.ProjectConventions, class map[string]types.Classification, cfg Config, log *zap.Logger) (*types.TransformationPlan, error) {
	cfg.applyDefaults()
	plan := &types.TransformationPlan{}

	effective := make(map[string]types.Classification, len(class))
	for p, c := range class {
		effective[p] = c
	}

	resolveCycles(graph, effective, plan)

	paths := sortedPaths(effective)

	// Ambiguity holds: below-threshold or ambiguous files stay put.
	held := make(map[string]bool)
	for _, p := range paths {
		c := effective[p]
		if c.Category == types.CategoryAmbiguous || c.Confidence < cfg.AmbiguityThreshold {
			held[p] = true
			plan.Held = append(plan.Held, p)
			plan.Conflicts = append(plan.Conflicts, types.Conflict{
				Kind:       types.ConflictClassificationAmbiguity,
				Paths:      []string{p},
				Resolution: "held at current location pending manual review",
				Resolved:   true,
			})
			log.Warn("file held for manual review",
				zap.String("path", p),
				zap.Float64("confidence", c.Confidence),
				zap.String("tier", c.Tier.String()))
		}
	}

	moves, err := resolveDestinations(snap, conv, effective, held, paths, plan)
	if err != nil {
		return nil, err
	}

	assembleSteps(snap, graph, moves, effective, plan, log)
	assessRisks(graph, moves, cfg, plan)

	return plan, nil
}

// destination computes a file's candidate path: the category directory plus
// the basename rendered in the project's naming style.
func destination(p string, cat types.Category, conv types.ProjectConventions) string {
	return path.Join(cat.Dir(), conventions.FormatName(path.Base(p), conv.Naming))
}

// assembleSteps emits the ordered step sequence: directories, then moves in
// dependency order, then reference rewrites, then metadata injection.
//
// Implements: prd006-transformation-planner R3.1-R3.4.
func assembleSteps(snap *types.RepoSnapshot, graph *depgraph.Graph, moves map[string]string, effective map[string]types.Classification, plan *types.TransformationPlan, log *zap.Logger) {
	existing := make(map[string]bool, len(snap.Dirs))
	for _, d := range snap.Dirs {
		existing[d] = true
	}
	dirSet := map[string]bool{}
	for _, dest := range moves {
		if d := path.Dir(dest); d != "." && !existing[d] {
			dirSet[d] = true
		}
	}
	for _, d := range sortedKeys(dirSet) {
		plan.Steps = append(plan.Steps, types.TransformationStep{Kind: types.StepCreateDir, Dest: d})
	}

	for _, src := range topoOrder(graph, moves) {
		plan.Steps = append(plan.Steps, types.TransformationStep{
			Kind:     types.StepMoveFile,
			Source:   src,
			Dest:     moves[src],
			Category: effective[src].Category,
		})
	}

	// Rewrite targets are determined by the same computation the executor
	// replays at run time; the plan records which files change and how.
	res, err := refupdate.Compute(snap.Root, snap, graph, moves, log)
	if err != nil {
		log.Warn("reference rewrite preview failed", zap.Error(err))
	} else {
		for _, target := range sortedKeys(boolKeys(res.Contents)) {
			kind := types.StepRewriteReference
			if _, ok := configStepExts[strings.ToLower(path.Ext(target))]; ok {
				kind = types.StepUpdateConfig
			}
			plan.Steps = append(plan.Steps, types.TransformationStep{
				Kind:   kind,
				Target: target,
				Detail: res.Stats[target].String(),
			})
		}
	}

	dests := make([]string, 0, len(moves))
	srcByDest := make(map[string]string, len(moves))
	for src, dest := range moves {
		dests = append(dests, dest)
		srcByDest[dest] = src
	}
	sort.Strings(dests)
	for _, dest := range dests {
		if !frontmatter.Supports(dest) {
			continue
		}
		plan.Steps = append(plan.Steps, types.TransformationStep{
			Kind:     types.StepInjectMetadata,
			Target:   dest,
			Category: effective[srcByDest[dest]].Category,
		})
	}
}

// topoOrder sequences moves so that a file's dependencies move before the
// file itself. Remaining cycles among movers are broken lexicographically;
// by that point they share a category, so relative order is cosmetic.
func topoOrder(graph *depgraph.Graph, moves map[string]string) []string {
	pending := make(map[string]bool, len(moves))
	for src := range moves {
		pending[src] = true
	}
	srcs := sortedKeys(pending)

	var order []string
	placed := make(map[string]bool, len(moves))
	for len(order) < len(srcs) {
		progressed := false
		for _, src := range srcs {
			if placed[src] {
				continue
			}
			ready := true
			for _, e := range graph.Outgoing(src) {
				if pending[e.To] && !placed[e.To] && e.To != src {
					ready = false
					break
				}
			}
			if ready {
				order = append(order, src)
				placed[src] = true
				progressed = true
			}
		}
		if !progressed {
			for _, src := range srcs {
				if !placed[src] {
					order = append(order, src)
					placed[src] = true
					break
				}
			}
		}
	}
	return order
}

func sortedPaths(m map[string]types.Classification) []string {
	out := make([]string, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func boolKeys(m map[string][]byte) map[string]bool {
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}

// unresolvableCollision builds the ConflictError detail for a collision the
// suffix strategy could not resolve.
func unresolvableCollision(p, dest string) error {
	return fmt.Errorf("%w: no free destination for %s (wanted %s)", ErrConflict, p, dest)
}
