// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Implements: prd008-reference-updater R2 (Go import rewriting);
//
//	docs/ARCHITECTURE § Reference Updater.
package refupdate

import (
	"bytes"
	"fmt"
	"go/format"
	"go/parser"
	"go/token"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/tools/go/ast/astutil"

	"github.com/petar-djukic/restruct/pkg/types"
)

var goModule = regexp.MustCompile(`(?m)^module\s+(\S+)`)

// applyGoImportRewrites updates Go import paths when .go files move between
// directories. It is a no-op outside Go modules: without a go.mod there is
// no module path to anchor import paths to.
func applyGoImportRewrites(root string, snap *types.RepoSnapshot, moves map[string]string, res *Result) error {
	modBytes, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		return nil
	}
	m := goModule.FindSubmatch(modBytes)
	if m == nil {
		return nil
	}
	modPath := string(m[1])

	// Directory-level renames implied by moved .go files.
	renames := map[string]string{}
	for oldP, newP := range moves {
		if path.Ext(oldP) != ".go" {
			continue
		}
		oldDir, newDir := path.Dir(oldP), path.Dir(newP)
		if oldDir == newDir {
			continue
		}
		renames[importPath(modPath, oldDir)] = importPath(modPath, newDir)
	}
	if len(renames) == 0 {
		return nil
	}

	oldImports := make([]string, 0, len(renames))
	for k := range renames {
		oldImports = append(oldImports, k)
	}
	sort.Strings(oldImports)

	newPath := func(p string) string {
		if np, ok := moves[p]; ok {
			return np
		}
		return p
	}

	for _, rec := range snap.Files {
		if path.Ext(rec.Path) != ".go" {
			continue
		}
		src := res.Contents[newPath(rec.Path)]
		if src == nil {
			src, err = os.ReadFile(filepath.Join(root, filepath.FromSlash(rec.Path)))
			if err != nil {
				return fmt.Errorf("reading %s: %w", rec.Path, err)
			}
		}

		fset := token.NewFileSet()
		file, err := parser.ParseFile(fset, rec.Path, src, parser.ParseComments)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"%s: unparsable Go source; imports left untouched", rec.Path))
			continue
		}

		changed := false
		for _, oldImp := range oldImports {
			if astutil.RewriteImport(fset, file, oldImp, renames[oldImp]) {
				changed = true
			}
		}
		if !changed {
			continue
		}

		var buf bytes.Buffer
		if err := format.Node(&buf, fset, file); err != nil {
			return fmt.Errorf("formatting %s: %w", rec.Path, err)
		}
		res.Contents[newPath(rec.Path)] = buf.Bytes()
		res.Stats[newPath(rec.Path)] = diffStat(string(src), buf.String())
	}
	return nil
}

func importPath(modPath, dir string) string {
	if dir == "." || dir == "" {
		return modPath
	}
	return modPath + "/" + strings.TrimPrefix(dir, "./")
}
