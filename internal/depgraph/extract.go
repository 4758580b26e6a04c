// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package depgraph builds the file-level reference graph used for
// classification propagation and plan ordering.
// Implements: prd004-dependency-graph R1, R2, R3;
//
//	docs/ARCHITECTURE § Dependency Grapher.
package depgraph

import (
	"context"
	"path"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/petar-djukic/restruct/pkg/types"
)

// rawRef is a reference extracted from a file before resolution against the
// snapshot.
type rawRef struct {
	kind      types.EdgeKind
	reference string // literal text: module name, link target, path value
}

// langSpec holds the tree-sitter language and import query for a file type.
type langSpec struct {
	lang    *sitter.Language
	importQ string // Query capturing import targets as @ref
}

var importLangs = map[string]*langSpec{
	".go": {
		lang:    golang.GetLanguage(),
		importQ: `(import_spec path: (interpreted_string_literal) @ref)`,
	},
	".py": {
		lang: python.GetLanguage(),
		importQ: `
			(import_statement name: (dotted_name) @ref)
			(import_statement name: (aliased_import name: (dotted_name) @ref))
			(import_from_statement module_name: (dotted_name) @ref)
		`,
	},
	".js": {
		lang:    javascript.GetLanguage(),
		importQ: `(import_statement source: (string) @ref)`,
	},
	".ts": {
		lang:    typescript.GetLanguage(),
		importQ: `(import_statement source: (string) @ref)`,
	},
}

// markdownLink matches inline markdown links. Targets are resolved relative
// to the referencing file.
var markdownLink = regexp.MustCompile(`\[[^\]]*\]\(([^)#][^)]*)\)`)

// configPathValue matches quoted or bare values that look like relative
// paths inside config files.
var configPathValue = regexp.MustCompile(`["']?([A-Za-z0-9_./-]+\.[A-Za-z0-9]{1,6})["']?`)

var configExts = map[string]struct{}{
	".yaml": {}, ".yml": {}, ".json": {}, ".toml": {}, ".ini": {},
}

// extractRefs pulls raw references from one file's content. Unparsable or
// binary content yields zero references; extraction never fails hard.
//
// Implements: prd004-dependency-graph R1.1-R1.4.
func extractRefs(ctx context.Context, rel string, content []byte) ([]rawRef, error) {
	ext := strings.ToLower(path.Ext(rel))

	if spec, ok := importLangs[ext]; ok {
		return extractImports(ctx, content, spec)
	}
	switch ext {
	case ".md", ".rst":
		return extractDocLinks(content), nil
	}
	if _, ok := configExts[ext]; ok {
		return extractConfigPaths(content), nil
	}
	return nil, nil
}

// extractImports runs the language's import query over the parse tree.
func extractImports(ctx context.Context, content []byte, spec *langSpec) ([]rawRef, error) {
	root, err := sitter.ParseCtx(ctx, content, spec.lang)
	if err != nil || root == nil {
		return nil, err
	}

	q, err := sitter.NewQuery([]byte(spec.importQ), spec.lang)
	if err != nil {
		return nil, err
	}

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, root)

	seen := make(map[string]bool)
	var refs []rawRef
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			ref := strings.Trim(c.Node.Content(content), `"'`)
			if ref == "" || seen[ref] {
				continue
			}
			seen[ref] = true
			refs = append(refs, rawRef{kind: types.EdgeImport, reference: ref})
		}
	}
	return refs, nil
}

// extractDocLinks finds relative link targets in markdown-family files.
// Absolute URLs carry no intra-repo dependency and are skipped.
func extractDocLinks(content []byte) []rawRef {
	var refs []rawRef
	seen := make(map[string]bool)
	for _, m := range markdownLink.FindAllStringSubmatch(string(content), -1) {
		target := strings.TrimSpace(m[1])
		if target == "" || strings.Contains(target, "://") || strings.HasPrefix(target, "mailto:") {
			continue
		}
		if i := strings.IndexAny(target, "#?"); i >= 0 {
			target = target[:i]
		}
		if target == "" || seen[target] {
			continue
		}
		seen[target] = true
		refs = append(refs, rawRef{kind: types.EdgeDocLink, reference: target})
	}
	return refs
}

// extractConfigPaths finds values that look like file paths in config files.
// Only values with a path separator or a known source extension are taken;
// bare words like "true" or "3.14" are not.
func extractConfigPaths(content []byte) []rawRef {
	var refs []rawRef
	seen := make(map[string]bool)
	for _, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "//") {
			continue
		}
		for _, m := range configPathValue.FindAllStringSubmatch(trimmed, -1) {
			v := m[1]
			if !strings.Contains(v, "/") {
				continue
			}
			if strings.HasPrefix(v, "http") || seen[v] {
				continue
			}
			seen[v] = true
			refs = append(refs, rawRef{kind: types.EdgeConfigPath, reference: v})
		}
	}
	return refs
}

// resolveRef maps a raw reference to a snapshot path. The second return is
// false when the target is external to the snapshot.
func resolveRef(snap *types.RepoSnapshot, from string, ref rawRef) (string, bool) {
	switch ref.kind {
	case types.EdgeImport:
		return resolveImport(snap, from, ref.reference)
	case types.EdgeDocLink, types.EdgeConfigPath:
		return resolvePath(snap, from, ref.reference)
	}
	return "", false
}

// resolveImport maps a module reference to a file. Python dotted modules
// resolve against the repo root and the referencing file's directory;
// JS/TS relative specifiers resolve with the usual extension probing. Go
// import paths are package-level and treated as external here.
func resolveImport(snap *types.RepoSnapshot, from, module string) (string, bool) {
	if strings.HasPrefix(module, ".") || strings.HasPrefix(module, "/") {
		// Relative JS/TS specifier.
		base := path.Join(path.Dir(from), module)
		for _, cand := range []string{base, base + ".js", base + ".ts", base + "/index.js", base + "/index.ts"} {
			cleaned := path.Clean(cand)
			if snap.Contains(cleaned) {
				return cleaned, true
			}
		}
		return "", false
	}

	// Dotted module path (Python).
	slashed := strings.ReplaceAll(module, ".", "/")
	candidates := []string{
		slashed + ".py",
		slashed + "/__init__.py",
		path.Join(path.Dir(from), slashed+".py"),
		path.Join(path.Dir(from), slashed, "__init__.py"),
	}
	for _, cand := range candidates {
		cleaned := path.Clean(cand)
		if snap.Contains(cleaned) {
			return cleaned, true
		}
	}
	return "", false
}

// resolvePath resolves a doc link or config path literal against the
// referencing file's directory, then the repo root.
func resolvePath(snap *types.RepoSnapshot, from, target string) (string, bool) {
	relToFile := path.Clean(path.Join(path.Dir(from), target))
	if snap.Contains(relToFile) {
		return relToFile, true
	}
	relToRoot := path.Clean(strings.TrimPrefix(target, "./"))
	if snap.Contains(relToRoot) {
		return relToRoot, true
	}
	return "", false
}
