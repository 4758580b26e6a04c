// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Implements: prd005-classification R2.1 (rule tier configuration);
//
//	docs/ARCHITECTURE § Classification Engine.
package classify

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/petar-djukic/restruct/pkg/types"
)

// Rule maps a doublestar path pattern to a category with confidence 1.0.
// Rules are ordered; the first matching pattern wins.
type Rule struct {
	Pattern  string         `yaml:"pattern"`
	Category types.Category `yaml:"category"`
}

// Config configures the classification engine. The zero value gets sensible
// defaults applied by the engine constructor.
type Config struct {
	Rules             []Rule `yaml:"rules"`
	OracleBatchSize   int    `yaml:"oracle_batch_size"`   // Files per oracle request (default 8)
	OracleConcurrency int    `yaml:"oracle_concurrency"`  // Concurrent oracle batches (default 2)
	ContentSampleSize int    `yaml:"content_sample_size"` // Bytes read for content heuristics (default 2048)
	Workers           int    `yaml:"workers"`             // Tier 1-3 worker pool size (default GOMAXPROCS)
}

// DefaultRules returns the built-in glob table. Test and meta patterns come
// before source so that test_*.py is not swallowed by the *.py rule.
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: "**/test_*.py", Category: types.CategoryTests},
		{Pattern: "**/*_test.py", Category: types.CategoryTests},
		{Pattern: "**/*_test.go", Category: types.CategoryTests},
		{Pattern: "**/*.test.{js,ts}", Category: types.CategoryTests},
		{Pattern: "**/*.spec.{js,ts}", Category: types.CategoryTests},
		{Pattern: "tests/**", Category: types.CategoryTests},
		{Pattern: "test/**", Category: types.CategoryTests},

		{Pattern: ".github/**", Category: types.CategoryMeta},
		{Pattern: "meta/**", Category: types.CategoryMeta},
		{Pattern: "scripts/**", Category: types.CategoryMeta},
		{Pattern: "**/*.{yaml,yml,toml,ini,cfg}", Category: types.CategoryMeta},
		{Pattern: "Makefile", Category: types.CategoryMeta},
		{Pattern: "Dockerfile", Category: types.CategoryMeta},
		{Pattern: ".gitignore", Category: types.CategoryMeta},

		{Pattern: "docs/**", Category: types.CategoryDocumentation},
		{Pattern: "**/*.{md,rst}", Category: types.CategoryDocumentation},

		{Pattern: "data/**", Category: types.CategoryData},
		{Pattern: "**/*.{csv,parquet,xlsx,tsv}", Category: types.CategoryData},

		{Pattern: "src/**", Category: types.CategorySource},
		{Pattern: "lib/**", Category: types.CategorySource},
		{Pattern: "**/*.{py,go,js,ts,r,cpp,c,java,sh}", Category: types.CategorySource},
	}
}

// LoadRules reads a rule table from a YAML file. Unknown categories are
// rejected so a typo cannot silently misroute files.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules %s: %w", path, err)
	}
	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing rules %s: %w", path, err)
	}
	for _, r := range rules {
		if !r.Category.Valid() || r.Category == types.CategoryAmbiguous {
			return nil, fmt.Errorf("rule %q: invalid category %q", r.Pattern, r.Category)
		}
	}
	return rules, nil
}

func (c *Config) applyDefaults() {
	if len(c.Rules) == 0 {
		c.Rules = DefaultRules()
	}
	if c.OracleBatchSize == 0 {
		c.OracleBatchSize = 8
	}
	if c.OracleConcurrency == 0 {
		c.OracleConcurrency = 2
	}
	if c.ContentSampleSize == 0 {
		c.ContentSampleSize = 2048
	}
}
