// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package frontmatter injects, extracts, and validates YAML metadata blocks
// on transformed files. Markdown files carry a plain `---` block; Python
// files wrap the block in a module docstring so the file stays importable.
// Implements: prd007-execution-engine R4 (inject-metadata steps);
//
//	prd009-validation-engine R3 (metadata dimension).
package frontmatter

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Required lists the fields every injected block must carry.
var Required = []string{"tags", "category", "description"}

var (
	mdBlock = regexp.MustCompile(`(?s)^---\s*\n(.*?)\n---\s*\n`)
	pyBlock = regexp.MustCompile(`(?s)^"""---\s*\n(.*?)\n---"""`)
)

// Meta is the metadata injected into a transformed file.
type Meta struct {
	Tags        []string `yaml:"tags"`
	Category    string   `yaml:"category"`
	Description string   `yaml:"description"`
}

// Supports reports whether the file type can carry frontmatter.
func Supports(filePath string) bool {
	switch strings.ToLower(path.Ext(filePath)) {
	case ".md", ".py":
		return true
	}
	return false
}

// Inject prepends a frontmatter block to content. It returns the original
// content unchanged when the file type is unsupported or a block is already
// present — double injection would corrupt the file.
func Inject(content []byte, filePath string, meta Meta) ([]byte, bool, error) {
	if !Supports(filePath) {
		return content, false, nil
	}
	if _, ok := Extract(content, filePath); ok {
		return content, false, nil
	}
	// A bare leading delimiter that our patterns do not recognize is still
	// someone's frontmatter; leave it alone.
	lead := strings.TrimSpace(string(content))
	if strings.HasPrefix(lead, "---") || strings.HasPrefix(lead, `"""---`) {
		return content, false, nil
	}

	encoded, err := yaml.Marshal(meta)
	if err != nil {
		return nil, false, fmt.Errorf("encoding frontmatter: %w", err)
	}

	var block string
	if strings.ToLower(path.Ext(filePath)) == ".py" {
		block = "\"\"\"---\n" + string(encoded) + "---\"\"\"\n\n"
	} else {
		block = "---\n" + string(encoded) + "---\n\n"
	}

	return append([]byte(block), content...), true, nil
}

// Extract parses the frontmatter block from content, if one exists.
// Malformed YAML inside a block yields an empty map, not an error: the
// block exists, its content is just unusable.
func Extract(content []byte, filePath string) (map[string]any, bool) {
	var m [][]byte
	if strings.ToLower(path.Ext(filePath)) == ".py" {
		m = pyBlock.FindSubmatch(content)
	} else {
		m = mdBlock.FindSubmatch(content)
	}
	if m == nil {
		return nil, false
	}

	fields := map[string]any{}
	if err := yaml.Unmarshal(m[1], &fields); err != nil {
		return map[string]any{}, true
	}
	return fields, true
}

// Strip returns content without its frontmatter block. Used to compare the
// payload of a file before and after metadata injection.
func Strip(content []byte, filePath string) []byte {
	if strings.ToLower(path.Ext(filePath)) == ".py" {
		if loc := pyBlock.FindIndex(content); loc != nil {
			return []byte(strings.TrimLeft(string(content[loc[1]:]), "\n"))
		}
		return content
	}
	if loc := mdBlock.FindIndex(content); loc != nil {
		return []byte(strings.TrimLeft(string(content[loc[1]:]), "\n"))
	}
	return content
}

// Missing returns the required fields absent from the extracted metadata.
func Missing(fields map[string]any) []string {
	var missing []string
	for _, key := range Required {
		v, ok := fields[key]
		if !ok || v == nil {
			missing = append(missing, key)
		}
	}
	return missing
}
