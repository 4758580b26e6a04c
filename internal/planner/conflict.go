// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Implements: prd006-transformation-planner R2 (conflict detection and
// resolution);
//
//	docs/ARCHITECTURE § Transformation Planner.
package planner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/petar-djukic/restruct/internal/depgraph"
	"github.com/petar-djukic/restruct/pkg/types"
)

// resolveCycles collapses dependency cycles that span multiple target
// categories into the majority category. Each cycle yields a single
// conflict note listing every member. Ambiguous members stay ambiguous;
// they are handled by the ambiguity hold.
func resolveCycles(graph *depgraph.Graph, effective map[string]types.Classification, plan *types.TransformationPlan) {
	for _, cycle := range graph.Cycles() {
		counts := map[types.Category]int{}
		for _, p := range cycle {
			c, ok := effective[p]
			if !ok || c.Category == types.CategoryAmbiguous {
				continue
			}
			counts[c.Category]++
		}
		if len(counts) < 2 {
			continue
		}

		majority := majorityCategory(counts)
		for _, p := range cycle {
			c, ok := effective[p]
			if !ok || c.Category == types.CategoryAmbiguous || c.Category == majority {
				continue
			}
			c.Category = majority
			c.Reasoning = fmt.Sprintf("cycle collapse: %s (was %s)", c.Reasoning, effective[p].Category)
			effective[p] = c
		}

		members := append([]string(nil), cycle...)
		sort.Strings(members)
		plan.Conflicts = append(plan.Conflicts, types.Conflict{
			Kind:       types.ConflictDependencyCycle,
			Paths:      members,
			Resolution: fmt.Sprintf("cycle collapsed into category %q by majority", majority),
			Resolved:   true,
		})
	}
}

// majorityCategory picks the most common category; ties break to the
// lexicographically smallest name so resolution is deterministic.
func majorityCategory(counts map[types.Category]int) types.Category {
	var best types.Category
	bestCount := -1
	for _, cat := range types.Categories {
		n := counts[cat]
		if n > bestCount || (n == bestCount && string(cat) < string(best)) {
			best, bestCount = cat, n
		}
	}
	return best
}

// resolveDestinations assigns every movable file a collision-free
// destination. The first claimant of a destination keeps it; later
// claimants get a suffix derived from their original subdirectory, with a
// numeric counter as fallback. Silent overwrites never happen: a
// destination that cannot be freed is an unresolvable conflict.
//
// Implements: prd006-transformation-planner R2.1, R2.2.
func resolveDestinations(snap *types.RepoSnapshot, conv types.ProjectConventions, effective map[string]types.Classification, held map[string]bool, paths []string, plan *types.TransformationPlan) (map[string]string, error) {
	// Post-run occupancy starts from every file that is not moving.
	occupied := make(map[string]string, len(snap.Files))
	for _, rec := range snap.Files {
		c, ok := effective[rec.Path]
		if !ok || held[rec.Path] {
			occupied[rec.Path] = rec.Path
			continue
		}
		if destination(rec.Path, c.Category, conv) == rec.Path {
			occupied[rec.Path] = rec.Path
		}
	}

	moves := make(map[string]string)
	for _, p := range paths {
		if held[p] {
			continue
		}
		dest := destination(p, effective[p].Category, conv)
		if dest == p {
			continue
		}

		if prior, taken := occupied[dest]; taken {
			resolved, err := suffixedDestination(dest, p, occupied)
			if err != nil {
				return nil, err
			}
			plan.Conflicts = append(plan.Conflicts, types.Conflict{
				Kind:       types.ConflictDestinationCollision,
				Paths:      sortedPair(prior, p),
				Resolution: fmt.Sprintf("%s placed at %s to avoid overwriting %s", p, resolved, dest),
				Resolved:   true,
			})
			dest = resolved
		}

		occupied[dest] = p
		moves[p] = dest
	}
	return moves, nil
}

// suffixedDestination derives a free destination for a colliding file:
// first the original subdirectory as a suffix, then a numeric counter.
func suffixedDestination(dest, p string, occupied map[string]string) (string, error) {
	ext := pathExt(dest)
	stem := strings.TrimSuffix(dest, ext)

	if tag := dirTag(p); tag != "" {
		if cand := stem + "_" + tag + ext; occupied[cand] == "" {
			return cand, nil
		}
	}
	for i := 2; i <= 100; i++ {
		if cand := fmt.Sprintf("%s_%d%s", stem, i, ext); occupied[cand] == "" {
			return cand, nil
		}
	}
	return "", unresolvableCollision(p, dest)
}

// dirTag flattens a file's original directory into a suffix-safe token.
func dirTag(p string) string {
	dir := strings.TrimSuffix(p, "/"+pathBase(p))
	if dir == p || dir == "" || dir == "." {
		return ""
	}
	return strings.ReplaceAll(dir, "/", "_")
}

func pathBase(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

func pathExt(p string) string {
	base := pathBase(p)
	if i := strings.LastIndex(base, "."); i > 0 {
		return base[i:]
	}
	return ""
}

func sortedPair(a, b string) []string {
	if a > b {
		a, b = b, a
	}
	return []string{a, b}
}
