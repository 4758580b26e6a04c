// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package analyzer walks a source tree once and produces an immutable
// structural snapshot for the downstream pipeline.
// Implements: prd002-repo-analyzer R1, R2, R3;
//
//	docs/ARCHITECTURE § Repository Analyzer.
package analyzer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/petar-djukic/restruct/pkg/types"
)

// ErrAnalysis is returned when the root is not a readable directory.
// Analysis failures are fatal and abort before any planning.
var ErrAnalysis = errors.New("analysis failed")

// Config configures the analyzer.
type Config struct {
	// IgnorePatterns are doublestar globs excluded before emitting records,
	// in addition to the built-in version-control and cache directories.
	IgnorePatterns []string
	// Workers bounds the hashing worker pool. Defaults to GOMAXPROCS.
	Workers int
}

// Directories never worth descending into, regardless of configuration.
var skipDirs = map[string]struct{}{
	".git":          {},
	".hg":           {},
	".svn":          {},
	"node_modules":  {},
	"__pycache__":   {},
	"vendor":        {},
	".venv":         {},
	"venv":          {},
	"dist":          {},
	"build":         {},
	".tox":          {},
	".mypy_cache":   {},
	".pytest_cache": {},
}

// Run-transient files the tool itself writes; never part of a snapshot.
var skipFiles = map[string]struct{}{
	".restruct.lock":     {},
	".restruct-run.json": {},
	".restruct.yaml":     {},
}

// languageByExt maps file extensions to detected languages.
var languageByExt = map[string]string{
	".go":    "go",
	".py":    "python",
	".ipynb": "python",
	".js":    "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".md":    "markdown",
	".rst":   "markdown",
	".yaml":  "yaml",
	".yml":   "yaml",
	".json":  "json",
	".toml":  "toml",
	".ini":   "ini",
	".csv":   "csv",
	".sh":    "shell",
}

// binaryExt matches extensions we never try to read as text.
var binaryExt = regexp.MustCompile(`(?i)\.(png|jpe?g|gif|pdf|zip|gz|tar|tgz|exe|dll|so|dylib|parquet|xlsx|ico|woff2?)$`)

// Analyze walks root and returns an immutable snapshot. It is strictly
// read-only: nothing under root is written or modified.
//
// Implements: prd002-repo-analyzer R1.1-R1.6.
func Analyze(ctx context.Context, root string, cfg Config, log *zap.Logger) (*types.RepoSnapshot, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysis, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrAnalysis, root)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysis, err)
	}

	gi := loadGitignore(absRoot)

	var (
		paths []string
		dirs  []string
	)

	err = filepath.WalkDir(absRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip entries we cannot stat.
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, relErr := filepath.Rel(absRoot, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path == absRoot {
				return nil
			}
			if _, skip := skipDirs[d.Name()]; skip {
				return filepath.SkipDir
			}
			if matchesAny(cfg.IgnorePatterns, rel+"/") || matchesAny(cfg.IgnorePatterns, rel) {
				return filepath.SkipDir
			}
			dirs = append(dirs, rel)
			return nil
		}

		// Skip symlinks: a snapshot records regular files only.
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		if _, skip := skipFiles[d.Name()]; skip {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		if matchesAny(cfg.IgnorePatterns, rel) {
			return nil
		}

		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysis, err)
	}

	records, err := hashFiles(ctx, absRoot, paths, cfg.Workers, log)
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })
	sort.Strings(dirs)

	log.Debug("analysis complete",
		zap.String("root", absRoot),
		zap.Int("files", len(records)),
		zap.Int("dirs", len(dirs)))

	return types.NewSnapshot(absRoot, records, dirs), nil
}

// hashFiles stats and hashes all paths with a bounded worker pool. Results
// are collected append-only under a mutex; ordering is restored by the
// caller's sort.
//
// Implements: prd002-repo-analyzer R3.1-R3.3.
func hashFiles(ctx context.Context, root string, paths []string, workers int, log *zap.Logger) ([]types.FileRecord, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var (
		mu      sync.Mutex
		records []types.FileRecord
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, rel := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := recordFile(root, rel)
			if err != nil {
				// A single unreadable file degrades the snapshot, not the run.
				log.Warn("skipping unreadable file", zap.String("path", rel), zap.Error(err))
				return nil
			}
			mu.Lock()
			records = append(records, rec)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysis, err)
	}
	return records, nil
}

// recordFile builds the FileRecord for one path.
func recordFile(root, rel string) (types.FileRecord, error) {
	abs := filepath.Join(root, filepath.FromSlash(rel))

	info, err := os.Stat(abs)
	if err != nil {
		return types.FileRecord{}, err
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return types.FileRecord{}, err
	}

	sum := sha256.Sum256(content)

	return types.FileRecord{
		Path:     rel,
		Size:     info.Size(),
		ModTime:  info.ModTime(),
		Hash:     hex.EncodeToString(sum[:]),
		Language: detectLanguage(rel),
		Binary:   isBinary(rel, content),
	}, nil
}

// detectLanguage maps the extension to a language name. Test-named files
// keep their language; classification decides what they are.
func detectLanguage(path string) string {
	return languageByExt[strings.ToLower(filepath.Ext(path))]
}

// isBinary reports whether content should be treated as binary: either a
// known binary extension or a NUL byte in the sniff window.
func isBinary(path string, content []byte) bool {
	if binaryExt.MatchString(path) {
		return true
	}
	window := content
	if len(window) > 8000 {
		window = window[:8000]
	}
	return bytes.IndexByte(window, 0) >= 0
}

// matchesAny reports whether rel matches any of the doublestar patterns.
func matchesAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// loadGitignore compiles the root .gitignore when present.
func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
