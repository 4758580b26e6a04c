// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package classify assigns each file a category and confidence using a
// layered pipeline: explicit rules, content heuristics, dependency
// propagation, the external LLM oracle, and finally the ambiguous default.
// Implements: prd005-classification R2, R3, R4, R5;
//
//	docs/ARCHITECTURE § Classification Engine.
package classify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/petar-djukic/restruct/internal/depgraph"
	"github.com/petar-djukic/restruct/internal/oracle"
	"github.com/petar-djukic/restruct/pkg/types"
)

// Confidence caps per tier. Oracle output is never treated as more certain
// than an explicit rule.
const (
	dependencyCap = 0.6
	oracleCap     = 0.8
)

// Oracle abstracts the external LLM classification service so the engine is
// testable and the oracle swappable.
type Oracle interface {
	ClassifyBatch(ctx context.Context, samples []oracle.FileSample) ([]oracle.Answer, error)
}

// Engine runs the layered classification pipeline.
type Engine struct {
	cfg    Config
	oracle Oracle // nil disables the oracle tier
	log    *zap.Logger
}

// New creates a classification engine. Pass a nil oracle to skip the oracle
// tier entirely (unresolved files then fall to the default tier).
func New(cfg Config, orc Oracle, log *zap.Logger) *Engine {
	cfg.applyDefaults()
	return &Engine{cfg: cfg, oracle: orc, log: log}
}

// Classify assigns every snapshot file a classification. Results are
// deterministic given identical snapshot, graph, and conventions; the only
// nondeterministic input is the oracle, which is behind an interface so
// tests can stub it.
//
// Implements: prd005-classification R2.1-R2.6.
func (e *Engine) Classify(ctx context.Context, snap *types.RepoSnapshot, graph *depgraph.Graph, conv types.ProjectConventions) (map[string]types.Classification, error) {
	results := make(map[string]types.Classification, len(snap.Files))

	// Tier 1+2 are independent per file: run them on a bounded pool and
	// collect under a mutex. Per-file output depends only on that file, so
	// scheduling order cannot change the outcome.
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	workers := e.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(workers)

	for _, rec := range snap.Files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, ok := e.ruleTier(rec.Path)
			if !ok {
				c, ok = e.contentTier(snap.Root, rec)
			}
			if ok {
				mu.Lock()
				results[rec.Path] = c
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Tier 3 inspects edges against a snapshot of the tier 1+2 results, so
	// its own assignments never feed back into other files and propagation
	// cannot cascade within the tier.
	unresolved := e.unresolvedPaths(snap, results)
	frozen := make(map[string]types.Classification, len(results))
	for p, c := range results {
		frozen[p] = c
	}
	for _, path := range unresolved {
		if c, ok := e.dependencyTier(path, graph, frozen); ok {
			results[path] = c
		}
	}

	// Tier 4: remaining files go to the oracle in bounded batches.
	unresolved = e.unresolvedPaths(snap, results)
	if e.oracle != nil && len(unresolved) > 0 {
		e.oracleTier(ctx, snap, conv, unresolved, results)
	}

	// Tier 5: anything left is ambiguous and flagged for manual review.
	for _, path := range e.unresolvedPaths(snap, results) {
		results[path] = types.Classification{
			Path:       path,
			Category:   types.CategoryAmbiguous,
			Confidence: 0.0,
			Tier:       types.TierDefault,
			Reasoning:  "no tier produced a confident answer; manual review required",
		}
	}

	return results, nil
}

// ruleTier matches the ordered glob table. First match wins with
// confidence 1.0.
//
// Implements: prd005-classification R2.1.
func (e *Engine) ruleTier(path string) (types.Classification, bool) {
	for _, r := range e.cfg.Rules {
		if ok, err := doublestar.Match(r.Pattern, path); err == nil && ok {
			return types.Classification{
				Path:       path,
				Category:   r.Category,
				Confidence: 1.0,
				Tier:       types.TierRule,
				Reasoning:  fmt.Sprintf("matched rule pattern %q", r.Pattern),
			}, true
		}
	}
	return types.Classification{}, false
}

// contentTier applies category signatures to a bounded content sample.
//
// Implements: prd005-classification R2.2.
func (e *Engine) contentTier(root string, rec types.FileRecord) (types.Classification, bool) {
	if rec.Binary {
		return types.Classification{}, false
	}
	sample, err := readSample(filepath.Join(root, filepath.FromSlash(rec.Path)), e.cfg.ContentSampleSize)
	if err != nil {
		e.log.Warn("content tier cannot read file", zap.String("path", rec.Path), zap.Error(err))
		return types.Classification{}, false
	}
	return matchContentSignature(rec, sample)
}

// oracleTier sends unresolved files to the oracle in batches with bounded
// concurrency. Timeouts and errors are recovered locally: affected files
// simply stay unresolved, with no partial credit.
//
// Implements: prd005-classification R4.1-R4.5.
func (e *Engine) oracleTier(ctx context.Context, snap *types.RepoSnapshot, conv types.ProjectConventions, paths []string, results map[string]types.Classification) {
	contextSummary := fmt.Sprintf("%d files; naming %s; docs %s; tests %s",
		len(snap.Files), conv.Naming, conv.DocExt, conv.TestPattern)

	var batches [][]string
	for len(paths) > 0 {
		n := min(e.cfg.OracleBatchSize, len(paths))
		batches = append(batches, paths[:n])
		paths = paths[n:]
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.OracleConcurrency)

	for _, batch := range batches {
		g.Go(func() error {
			samples := make([]oracle.FileSample, 0, len(batch))
			inBatch := make(map[string]bool, len(batch))
			for _, p := range batch {
				excerpt, _ := readSample(filepath.Join(snap.Root, filepath.FromSlash(p)), e.cfg.ContentSampleSize)
				samples = append(samples, oracle.FileSample{Path: p, Excerpt: string(excerpt), Context: contextSummary})
				inBatch[p] = true
			}

			answers, err := e.oracle.ClassifyBatch(gctx, samples)
			if err != nil {
				// Recovered locally: the batch's files fall to the default tier.
				e.log.Warn("oracle batch failed", zap.Int("files", len(batch)), zap.Error(err))
				return nil
			}

			for _, a := range answers {
				c, ok := acceptAnswer(a, inBatch)
				if !ok {
					e.log.Warn("discarding invalid oracle answer",
						zap.String("path", a.Path), zap.String("category", a.Category))
					continue
				}
				mu.Lock()
				results[c.Path] = c
				mu.Unlock()
			}
			return nil
		})
	}
	// Errors are swallowed per batch; Wait only propagates ctx errors.
	if err := g.Wait(); err != nil {
		e.log.Warn("oracle tier cancelled", zap.Error(err))
	}
}

// acceptAnswer validates an oracle answer: the path must belong to the
// batch and the category must be a real, placeable one. Confidence is
// clamped to the oracle cap.
func acceptAnswer(a oracle.Answer, inBatch map[string]bool) (types.Classification, bool) {
	if !inBatch[a.Path] {
		return types.Classification{}, false
	}
	cat := types.Category(a.Category)
	if !cat.Valid() || cat == types.CategoryAmbiguous {
		return types.Classification{}, false
	}
	conf := a.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > oracleCap {
		conf = oracleCap
	}
	return types.Classification{
		Path:       a.Path,
		Category:   cat,
		Confidence: conf,
		Tier:       types.TierOracle,
		Reasoning:  a.Reasoning,
	}, true
}

// unresolvedPaths returns snapshot paths without a result yet, sorted.
func (e *Engine) unresolvedPaths(snap *types.RepoSnapshot, results map[string]types.Classification) []string {
	var out []string
	for _, rec := range snap.Files {
		if _, ok := results[rec.Path]; !ok {
			out = append(out, rec.Path)
		}
	}
	sort.Strings(out)
	return out
}

// readSample reads at most n bytes of a file.
func readSample(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := f.Read(buf)
	if read == 0 && err != nil {
		return nil, err
	}
	return buf[:read], nil
}
