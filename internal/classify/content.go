// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Implements: prd005-classification R2.2 (content signatures);
//
//	docs/ARCHITECTURE § Classification Engine.
package classify

import (
	"strings"

	"github.com/petar-djukic/restruct/pkg/types"
)

// matchContentSignature applies per-category content signatures to a sample.
// Confidence stays within [0.5, 0.9]; entry-point and test markers are the
// strongest signals, structural sniffs the weakest.
func matchContentSignature(rec types.FileRecord, sample []byte) (types.Classification, bool) {
	content := string(sample)

	classify := func(cat types.Category, conf float64, why string) (types.Classification, bool) {
		return types.Classification{
			Path:       rec.Path,
			Category:   cat,
			Confidence: conf,
			Tier:       types.TierContent,
			Reasoning:  why,
		}, true
	}

	switch rec.Language {
	case "python":
		lower := strings.ToLower(content)
		switch {
		case strings.Contains(lower, "import pytest"),
			strings.Contains(lower, "import unittest"),
			strings.Contains(lower, "def test_"):
			return classify(types.CategoryTests, 0.85, "test framework import or test function")
		case strings.Contains(content, `if __name__ == "__main__"`),
			strings.Contains(content, "if __name__ == '__main__'"):
			return classify(types.CategorySource, 0.8, "executable entry-point marker")
		case strings.Contains(strings.SplitN(lower, "\n", 2)[0], "analysis"),
			strings.Contains(content, `"cell_type"`):
			// Notebook JSON reaches here with Language "python".
			return types.Classification{}, false
		}

	case "go":
		switch {
		case strings.Contains(content, "func Test"):
			return classify(types.CategoryTests, 0.85, "Go test function")
		case strings.Contains(content, "func main("):
			return classify(types.CategorySource, 0.8, "executable entry-point marker")
		}

	case "javascript", "typescript":
		switch {
		case strings.Contains(content, "describe("),
			strings.Contains(content, "it("),
			strings.Contains(content, "test("):
			return classify(types.CategoryTests, 0.8, "test harness call")
		}

	case "markdown":
		if strings.HasPrefix(strings.TrimSpace(content), "#") {
			return classify(types.CategoryDocumentation, 0.7, "markdown heading")
		}

	case "csv":
		if looksTabular(content) {
			return classify(types.CategoryData, 0.7, "tabular signature")
		}
	}

	if strings.HasPrefix(content, "#!") {
		return classify(types.CategorySource, 0.75, "shebang")
	}
	if looksTabular(content) {
		return classify(types.CategoryData, 0.5, "tabular signature")
	}

	return types.Classification{}, false
}

// looksTabular reports whether the first two lines share a nonzero
// delimiter count, the cheap CSV/TSV sniff.
func looksTabular(content string) bool {
	lines := strings.SplitN(content, "\n", 3)
	if len(lines) < 2 {
		return false
	}
	for _, sep := range []string{",", "\t"} {
		a := strings.Count(lines[0], sep)
		b := strings.Count(lines[1], sep)
		if a > 0 && a == b {
			return true
		}
	}
	return false
}
