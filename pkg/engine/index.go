// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Implements: prd001-engine-interface R7 (documentation index scaffold);
//
//	docs/ARCHITECTURE § Engine Interface.
package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/petar-djukic/restruct/internal/frontmatter"
	"github.com/petar-djukic/restruct/pkg/types"
)

const indexName = "index.md"

// writeIndex scaffolds docs/index.md after a successful run, linking every
// markdown file in the documentation directory. An existing index is never
// overwritten, which keeps repeated runs from churning the tree.
func writeIndex(root string) error {
	docsDir := filepath.Join(root, types.CategoryDocumentation.Dir())
	info, err := os.Stat(docsDir)
	if err != nil || !info.IsDir() {
		return nil
	}
	indexPath := filepath.Join(docsDir, indexName)
	if _, err := os.Stat(indexPath); err == nil {
		return nil
	}

	entries, err := os.ReadDir(docsDir)
	if err != nil {
		return err
	}
	var links []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".md") || name == indexName {
			continue
		}
		links = append(links, name)
	}
	if len(links) == 0 {
		return nil
	}
	sort.Strings(links)

	var b strings.Builder
	b.WriteString("# Documentation Index\n\n")
	for _, name := range links {
		fmt.Fprintf(&b, "- [%s](%s)\n", strings.TrimSuffix(name, ".md"), name)
	}

	content, _, err := frontmatter.Inject([]byte(b.String()), indexName, frontmatter.Meta{
		Tags:        []string{string(types.CategoryDocumentation)},
		Category:    string(types.CategoryDocumentation),
		Description: "index of project documentation",
	})
	if err != nil {
		return err
	}
	return os.WriteFile(indexPath, content, 0o644)
}
