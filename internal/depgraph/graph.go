// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Implements: prd004-dependency-graph R2 (construction), R4 (cycles);
//
//	docs/ARCHITECTURE § Dependency Grapher.
package depgraph

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/petar-djukic/restruct/pkg/types"
)

// Graph is the file-level reference graph. It is read-only after Build:
// both the classification engine and the planner consume it, neither owns
// it.
type Graph struct {
	Nodes    []string           // All snapshot paths, sorted
	Edges    []types.Edge       // All intra-repo edges, sorted for determinism
	External []types.ExternalRef // Dangling references, recorded not dropped

	out map[string][]types.Edge
	in  map[string][]types.Edge
}

// Build parses every snapshot file with a per-language extractor and
// assembles the graph. A parse failure for one file logs a warning and
// contributes zero edges; it never aborts the whole build.
//
// Implements: prd004-dependency-graph R2.1-R2.4.
func Build(ctx context.Context, snap *types.RepoSnapshot, log *zap.Logger) (*Graph, error) {
	type fileRefs struct {
		from string
		refs []rawRef
	}

	var (
		mu  sync.Mutex
		all []fileRefs
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for _, rec := range snap.Files {
		if rec.Binary {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, err := os.ReadFile(filepath.Join(snap.Root, filepath.FromSlash(rec.Path)))
			if err != nil {
				log.Warn("cannot read file for graph, skipping", zap.String("path", rec.Path), zap.Error(err))
				return nil
			}
			refs, err := extractRefs(gctx, rec.Path, content)
			if err != nil {
				log.Warn("parse failed, file contributes no edges", zap.String("path", rec.Path), zap.Error(err))
				return nil
			}
			if len(refs) == 0 {
				return nil
			}
			mu.Lock()
			all = append(all, fileRefs{from: rec.Path, refs: refs})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	graph := &Graph{
		out: make(map[string][]types.Edge),
		in:  make(map[string][]types.Edge),
	}
	for _, f := range snap.Files {
		graph.Nodes = append(graph.Nodes, f.Path)
	}

	for _, fr := range all {
		for _, r := range fr.refs {
			to, ok := resolveRef(snap, fr.from, r)
			if !ok {
				graph.External = append(graph.External, types.ExternalRef{
					From:      fr.from,
					Kind:      r.kind,
					Reference: r.reference,
				})
				continue
			}
			if to == fr.from {
				continue // self references carry no ordering information
			}
			graph.Edges = append(graph.Edges, types.Edge{
				From:      fr.from,
				To:        to,
				Kind:      r.kind,
				Reference: r.reference,
			})
		}
	}

	sortEdges(graph.Edges)
	sort.Slice(graph.External, func(i, j int) bool {
		if graph.External[i].From != graph.External[j].From {
			return graph.External[i].From < graph.External[j].From
		}
		return graph.External[i].Reference < graph.External[j].Reference
	})

	for _, e := range graph.Edges {
		graph.out[e.From] = append(graph.out[e.From], e)
		graph.in[e.To] = append(graph.in[e.To], e)
	}

	log.Debug("dependency graph built",
		zap.Int("nodes", len(graph.Nodes)),
		zap.Int("edges", len(graph.Edges)),
		zap.Int("external", len(graph.External)))

	return graph, nil
}

// Outgoing returns edges whose From is path.
func (g *Graph) Outgoing(path string) []types.Edge { return g.out[path] }

// Incoming returns edges whose To is path.
func (g *Graph) Incoming(path string) []types.Edge { return g.in[path] }

// Cycles returns all strongly connected components of size > 1, each sorted
// lexicographically, with the component list itself sorted by first member.
// Tarjan's algorithm, recursive; traversal order is fixed by the sorted node
// list, so the output is deterministic.
//
// Implements: prd004-dependency-graph R4.1-R4.3.
func (g *Graph) Cycles() [][]string {
	index := make(map[string]int, len(g.Nodes))
	low := make(map[string]int, len(g.Nodes))
	onStack := make(map[string]bool)
	var stack []string
	next := 0
	var comps [][]string

	var strongConnect func(v string)
	strongConnect = func(v string) {
		index[v] = next
		low[v] = next
		next++
		stack = append(stack, v)
		onStack[v] = true

		for _, e := range g.out[v] {
			w := e.To
			if _, seen := index[w]; !seen {
				strongConnect(w)
				if low[w] < low[v] {
					low[v] = low[w]
				}
			} else if onStack[w] && index[w] < low[v] {
				low[v] = index[w]
			}
		}

		if low[v] == index[v] {
			var comp []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			if len(comp) > 1 {
				sort.Strings(comp)
				comps = append(comps, comp)
			}
		}
	}

	for _, v := range g.Nodes {
		if _, seen := index[v]; !seen {
			strongConnect(v)
		}
	}

	sort.Slice(comps, func(i, j int) bool { return comps[i][0] < comps[j][0] })
	return comps
}

func sortEdges(edges []types.Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		if edges[i].To != edges[j].To {
			return edges[i].To < edges[j].To
		}
		return edges[i].Reference < edges[j].Reference
	})
}
