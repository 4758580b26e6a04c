// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package conventions derives naming, documentation, test, and config
// conventions from a repository snapshot. Inference is a pure function of
// the snapshot and is used to bias classification and to format generated
// paths.
// Implements: prd003-convention-inference R1;
//
//	docs/ARCHITECTURE § Convention Inferrer.
package conventions

import (
	"path"
	"strings"
	"unicode"

	"github.com/petar-djukic/restruct/pkg/types"
)

// Infer examines the snapshot's file names and returns the dominant
// conventions. Ties resolve to the first candidate in a fixed order so the
// result is deterministic for a given snapshot.
func Infer(snap *types.RepoSnapshot) types.ProjectConventions {
	naming := map[types.NamingStyle]int{}
	docExt := map[string]int{}
	testPattern := map[string]int{}
	configExt := map[string]int{}

	for _, f := range snap.Files {
		ext := strings.ToLower(path.Ext(f.Path))
		stem := strings.TrimSuffix(path.Base(f.Path), path.Ext(f.Path))

		if s, ok := nameStyle(stem); ok {
			naming[s]++
		}

		switch ext {
		case ".md", ".rst":
			docExt[ext]++
		case ".yaml", ".yml":
			configExt[".yaml"]++
		case ".toml":
			configExt[".toml"]++
		case ".json":
			configExt[".json"]++
		}

		switch {
		case strings.HasPrefix(stem, "test_"):
			testPattern["test_*"]++
		case strings.HasSuffix(stem, "_test"):
			testPattern["*_test"]++
		case strings.HasSuffix(stem, ".test") || strings.HasSuffix(stem, ".spec"):
			testPattern["*.spec"]++
		}
	}

	return types.ProjectConventions{
		Naming:      pickStyle(naming),
		DocExt:      pick(docExt, []string{".md", ".rst"}, ".md"),
		TestPattern: pick(testPattern, []string{"test_*", "*_test", "*.spec"}, "test_*"),
		ConfigExt:   pick(configExt, []string{".yaml", ".toml", ".json"}, ".yaml"),
	}
}

// FormatName renders a base name in the project's naming style. Extensions
// are preserved untouched.
func FormatName(name string, style types.NamingStyle) string {
	ext := path.Ext(name)
	words := splitWords(strings.TrimSuffix(name, ext))
	if len(words) == 0 {
		return name
	}

	var out string
	switch style {
	case types.NamingCamel:
		out = words[0]
		for _, w := range words[1:] {
			out += title(w)
		}
	case types.NamingPascal:
		for _, w := range words {
			out += title(w)
		}
	case types.NamingKebab:
		out = strings.Join(words, "-")
	default:
		out = strings.Join(words, "_")
	}
	return out + ext
}

// nameStyle classifies one file stem. Single lowercase words carry no
// signal and are skipped.
func nameStyle(stem string) (types.NamingStyle, bool) {
	switch {
	case strings.Contains(stem, "_"):
		return types.NamingSnake, true
	case strings.Contains(stem, "-"):
		return types.NamingKebab, true
	}
	hasUpper := strings.IndexFunc(stem, unicode.IsUpper) >= 0
	if !hasUpper {
		return "", false
	}
	if unicode.IsUpper(rune(stem[0])) {
		return types.NamingPascal, true
	}
	return types.NamingCamel, true
}

// splitWords breaks a name into lowercase words on underscores, dashes, and
// camel-case boundaries. Acronym runs stay one word: README is "readme",
// HTTPServer is "http", "server".
func splitWords(s string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == ' ':
			flush()
		case unicode.IsUpper(r):
			prevUpper := i > 0 && unicode.IsUpper(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if len(cur) > 0 && (!prevUpper || nextLower) {
				flush()
			}
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return words
}

func title(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + w[1:]
}

func pickStyle(counts map[types.NamingStyle]int) types.NamingStyle {
	order := []types.NamingStyle{types.NamingSnake, types.NamingCamel, types.NamingKebab, types.NamingPascal}
	best := types.NamingSnake
	bestCount := -1
	for _, s := range order {
		if counts[s] > bestCount {
			best = s
			bestCount = counts[s]
		}
	}
	return best
}

func pick(counts map[string]int, order []string, fallback string) string {
	best := fallback
	bestCount := 0
	for _, k := range order {
		if counts[k] > bestCount {
			best = k
			bestCount = counts[k]
		}
	}
	return best
}
