// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package refupdate rewrites intra-repo references so they stay valid after
// files move: Python module imports, JS/TS relative specifiers, markdown
// links, config path literals, and Go import paths.
// Implements: prd008-reference-updater R1, R2, R3;
//
//	docs/ARCHITECTURE § Reference Updater.
package refupdate

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"go.uber.org/zap"

	"github.com/petar-djukic/restruct/internal/depgraph"
	"github.com/petar-djukic/restruct/pkg/types"
)

// Result holds the rewritten contents, keyed by the referencing file's
// post-move path. Files whose references all survive the moves unchanged do
// not appear. Stats carries the line-level delta for each rewritten file.
type Result struct {
	Contents map[string][]byte
	Stats    map[string]DiffStat
	Warnings []string
}

// DiffStat summarizes a rewrite as lines added and removed.
type DiffStat struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
}

func (s DiffStat) String() string {
	return fmt.Sprintf("+%d -%d", s.Added, s.Removed)
}

// Compute determines the reference rewrites implied by a move mapping
// (old path → new path). A reference that cannot be located in its file is
// left untouched and reported as a warning; rewriting never guesses.
//
// Implements: prd008-reference-updater R1.1-R1.5.
func Compute(root string, snap *types.RepoSnapshot, graph *depgraph.Graph, moves map[string]string, log *zap.Logger) (*Result, error) {
	res := &Result{Contents: map[string][]byte{}, Stats: map[string]DiffStat{}}

	newPath := func(p string) string {
		if np, ok := moves[p]; ok {
			return np
		}
		return p
	}

	// Group edges by referencing file so each file is read and rewritten
	// once, in deterministic edge order.
	byFrom := make(map[string][]types.Edge)
	for _, e := range graph.Edges {
		byFrom[e.From] = append(byFrom[e.From], e)
	}
	froms := make([]string, 0, len(byFrom))
	for f := range byFrom {
		froms = append(froms, f)
	}
	sort.Strings(froms)

	for _, from := range froms {
		content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(from)))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", from, err)
		}
		text := string(content)
		changed := false

		for _, edge := range byFrom[from] {
			newRef, ok := rewrittenReference(edge, newPath(edge.From), newPath(edge.To))
			if !ok || newRef == edge.Reference {
				continue
			}
			updated, found := replaceReference(text, edge, newRef)
			if !found {
				res.Warnings = append(res.Warnings, fmt.Sprintf(
					"%s: reference %q not found; left untouched", from, edge.Reference))
				continue
			}
			text = updated
			changed = true
		}

		if changed {
			res.Contents[newPath(from)] = []byte(text)
			res.Stats[newPath(from)] = diffStat(string(content), text)
		}
	}

	if err := applyGoImportRewrites(root, snap, moves, res); err != nil {
		return nil, err
	}

	for _, w := range res.Warnings {
		log.Warn("reference left untouched", zap.String("detail", w))
	}
	return res, nil
}

// rewrittenReference computes the post-move form of one reference. The
// second return is false when the edge kind needs no textual rewrite.
func rewrittenReference(edge types.Edge, newFrom, newTo string) (string, bool) {
	switch edge.Kind {
	case types.EdgeDocLink:
		return relativeRef(path.Dir(newFrom), newTo, edge.Reference), true
	case types.EdgeConfigPath:
		// Mirror the resolution that produced the edge: a literal that
		// resolved against the file's directory stays file-relative, one
		// that resolved against the root stays root-relative.
		if path.Clean(path.Join(path.Dir(edge.From), edge.Reference)) == edge.To {
			return relativeRef(path.Dir(newFrom), newTo, edge.Reference), true
		}
		return newTo, true
	case types.EdgeImport:
		return rewrittenImport(edge, newFrom, newTo)
	}
	return "", false
}

// rewrittenImport handles Python dotted modules and JS/TS relative
// specifiers; Go imports are handled by the astutil pass.
func rewrittenImport(edge types.Edge, newFrom, newTo string) (string, bool) {
	if strings.HasPrefix(edge.Reference, ".") || strings.HasPrefix(edge.Reference, "/") {
		// JS/TS relative specifier. Preserve whether the original carried
		// an extension.
		ref := relativeRef(path.Dir(newFrom), newTo, edge.Reference)
		if path.Ext(edge.Reference) == "" {
			ref = strings.TrimSuffix(ref, path.Ext(ref))
		}
		if !strings.HasPrefix(ref, ".") {
			ref = "./" + ref
		}
		return ref, true
	}

	if strings.HasSuffix(newTo, ".py") || strings.HasSuffix(newTo, "/__init__.py") {
		return moduleName(newTo), true
	}
	return "", false
}

// moduleName converts a .py path into its dotted module form.
func moduleName(p string) string {
	p = strings.TrimSuffix(p, "/__init__.py")
	p = strings.TrimSuffix(p, ".py")
	return strings.ReplaceAll(p, "/", ".")
}

// relativeRef builds a relative path from dir to target, keeping the style
// of the original reference (a leading "./" is preserved).
func relativeRef(dir, target, original string) string {
	rel := relPath(dir, target)
	if strings.HasPrefix(original, "./") && !strings.HasPrefix(rel, ".") {
		rel = "./" + rel
	}
	return rel
}

// diffStat counts line insertions and deletions between two versions of a
// file.
func diffStat(oldText, newText string) DiffStat {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var st DiffStat
	for _, d := range diffs {
		n := strings.Count(d.Text, "\n")
		if n == 0 && d.Text != "" {
			n = 1
		}
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			st.Added += n
		case diffmatchpatch.DiffDelete:
			st.Removed += n
		}
	}
	return st
}

// relPath computes a slash-separated relative path between clean repo paths.
func relPath(fromDir, to string) string {
	if fromDir == "." || fromDir == "" {
		return to
	}
	fromParts := strings.Split(fromDir, "/")
	toParts := strings.Split(to, "/")

	common := 0
	for common < len(fromParts) && common < len(toParts)-1 && fromParts[common] == toParts[common] {
		common++
	}

	var b strings.Builder
	for i := common; i < len(fromParts); i++ {
		b.WriteString("../")
	}
	b.WriteString(strings.Join(toParts[common:], "/"))
	return b.String()
}

var (
	fromImport   = regexp.MustCompile(`(^|\n)(\s*)from\s+(\S+)\s+import`)
	plainImport  = regexp.MustCompile(`(^|\n)(\s*)import\s+([A-Za-z0-9_.]+)(\s+as\s+([A-Za-z0-9_]+))?(\s*(#.*)?)(\n|$)`)
	quoteChars   = []string{`"`, `'`}
)

// replaceReference substitutes the rewritten reference into the file text.
// Each edge kind has its own anchor so an import name appearing in prose is
// never clobbered.
func replaceReference(text string, edge types.Edge, newRef string) (string, bool) {
	switch edge.Kind {
	case types.EdgeDocLink:
		anchor := "](" + edge.Reference
		if !strings.Contains(text, anchor) {
			return text, false
		}
		return strings.ReplaceAll(text, anchor, "]("+newRef), true

	case types.EdgeConfigPath:
		if !strings.Contains(text, edge.Reference) {
			return text, false
		}
		return strings.ReplaceAll(text, edge.Reference, newRef), true

	case types.EdgeImport:
		if strings.HasPrefix(edge.Reference, ".") || strings.HasPrefix(edge.Reference, "/") {
			found := false
			for _, q := range quoteChars {
				old := q + edge.Reference + q
				if strings.Contains(text, old) {
					text = strings.ReplaceAll(text, old, q+newRef+q)
					found = true
				}
			}
			return text, found
		}
		return replacePythonImport(text, edge.Reference, newRef)
	}
	return text, false
}

// replacePythonImport rewrites `from X import` and `import X [as Y]` lines.
// A bare dotted import without an alias cannot be rewritten safely — call
// sites reference the full dotted name — so it is left for the caller to
// warn about.
func replacePythonImport(text, oldMod, newMod string) (string, bool) {
	found := false

	text = fromImport.ReplaceAllStringFunc(text, func(m string) string {
		sub := fromImport.FindStringSubmatch(m)
		if sub[3] != oldMod {
			return m
		}
		found = true
		return sub[1] + sub[2] + "from " + newMod + " import"
	})

	safe := true
	text = plainImport.ReplaceAllStringFunc(text, func(m string) string {
		sub := plainImport.FindStringSubmatch(m)
		if sub[3] != oldMod {
			return m
		}
		alias := sub[5]
		if alias == "" {
			if strings.Contains(oldMod, ".") {
				safe = false
				return m
			}
			alias = oldMod
		}
		found = true
		return sub[1] + sub[2] + "import " + newMod + " as " + alias + sub[6] + sub[8]
	})

	return text, found && safe
}
