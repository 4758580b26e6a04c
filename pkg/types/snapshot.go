// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package types defines shared types used across restruct packages.
// Implements: prd001-engine-interface R5 (shared types).
package types

import "time"

// FileRecord describes one file at analysis time. Records are owned by the
// RepoSnapshot that created them and are never mutated afterwards.
//
// Implements: prd002-repo-analyzer R2.1-R2.5.
type FileRecord struct {
	Path     string    // Path relative to the snapshot root (slash-separated)
	Size     int64     // Size in bytes
	ModTime  time.Time // Last modification time
	Hash     string    // SHA-256 of the content, hex-encoded
	Language string    // Detected language ("go", "python", ...; empty if unknown)
	Binary   bool      // True when the content sniffed as binary
}

// RepoSnapshot is an immutable structural snapshot of a source tree, created
// once per run by the analyzer. Re-analysis supersedes a snapshot rather than
// editing it.
//
// Implements: prd002-repo-analyzer R1.1-R1.4.
type RepoSnapshot struct {
	Root  string       // Absolute path of the analyzed root
	Files []FileRecord // All files, sorted by Path
	Dirs  []string     // All directories relative to Root, sorted

	byPath map[string]int // Path → index into Files; built once at creation
}

// NewSnapshot builds a snapshot from sorted file records. The caller must not
// modify files after handing them over.
func NewSnapshot(root string, files []FileRecord, dirs []string) *RepoSnapshot {
	s := &RepoSnapshot{
		Root:   root,
		Files:  files,
		Dirs:   dirs,
		byPath: make(map[string]int, len(files)),
	}
	for i, f := range files {
		s.byPath[f.Path] = i
	}
	return s
}

// Lookup returns the record for a relative path, if present.
func (s *RepoSnapshot) Lookup(path string) (FileRecord, bool) {
	i, ok := s.byPath[path]
	if !ok {
		return FileRecord{}, false
	}
	return s.Files[i], true
}

// Contains reports whether the snapshot holds a record for the path.
func (s *RepoSnapshot) Contains(path string) bool {
	_, ok := s.byPath[path]
	return ok
}

// NamingStyle identifies the dominant identifier style of file names.
type NamingStyle string

const (
	NamingSnake  NamingStyle = "snake_case"
	NamingCamel  NamingStyle = "camelCase"
	NamingKebab  NamingStyle = "kebab-case"
	NamingPascal NamingStyle = "PascalCase"
)

// ProjectConventions holds the naming, documentation, test, and configuration
// conventions inferred from a snapshot. It is a pure value: components receive
// it explicitly and never read ambient global state.
//
// Implements: prd003-convention-inference R1.1-R1.5.
type ProjectConventions struct {
	Naming      NamingStyle // Dominant file naming style
	DocExt      string      // Preferred documentation extension (".md" or ".rst")
	TestPattern string      // Dominant test file pattern ("test_*" or "*_test")
	ConfigExt   string      // Preferred config format extension (".yaml", ".toml", ".json")
}
