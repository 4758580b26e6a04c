// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package classify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/petar-djukic/restruct/internal/analyzer"
	"github.com/petar-djukic/restruct/internal/conventions"
	"github.com/petar-djukic/restruct/internal/depgraph"
	"github.com/petar-djukic/restruct/internal/oracle"
	"github.com/petar-djukic/restruct/pkg/types"
)

// stubOracle returns canned answers, or an error, per call.
type stubOracle struct {
	answers []oracle.Answer
	err     error
	calls   int
}

func (s *stubOracle) ClassifyBatch(ctx context.Context, samples []oracle.FileSample) ([]oracle.Answer, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var out []oracle.Answer
	asked := make(map[string]bool, len(samples))
	for _, sm := range samples {
		asked[sm.Path] = true
	}
	for _, a := range s.answers {
		if asked[a.Path] {
			out = append(out, a)
		}
	}
	return out, nil
}

func setup(t *testing.T, files map[string]string) (*types.RepoSnapshot, *depgraph.Graph, types.ProjectConventions) {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		abs := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	}
	snap, err := analyzer.Analyze(context.Background(), dir, analyzer.Config{}, zap.NewNop())
	require.NoError(t, err)
	graph, err := depgraph.Build(context.Background(), snap, zap.NewNop())
	require.NoError(t, err)
	return snap, graph, conventions.Infer(snap)
}

func TestClassify_RuleTier(t *testing.T) {
	snap, graph, conv := setup(t, map[string]string{
		"utils.py":      "def helper(): pass\n",
		"test_utils.py": "import utils\n",
		"README.md":     "# Project\n",
		"config.yaml":   "k: v\n",
		"data/rows.csv": "a,b\n1,2\n",
	})

	engine := New(Config{}, nil, zap.NewNop())
	got, err := engine.Classify(context.Background(), snap, graph, conv)
	require.NoError(t, err)

	tests := []struct {
		path string
		want types.Category
	}{
		{"utils.py", types.CategorySource},
		{"test_utils.py", types.CategoryTests},
		{"README.md", types.CategoryDocumentation},
		{"config.yaml", types.CategoryMeta},
		{"data/rows.csv", types.CategoryData},
	}
	for _, tt := range tests {
		c := got[tt.path]
		assert.Equal(t, tt.want, c.Category, tt.path)
		assert.Equal(t, types.TierRule, c.Tier, tt.path)
		assert.Equal(t, 1.0, c.Confidence, tt.path)
	}
}

func TestClassify_ContentTier(t *testing.T) {
	snap, graph, conv := setup(t, map[string]string{
		// No extension, so no rule matches; content signatures decide.
		"runner":   "#!/usr/bin/env python\nprint('x')\n",
		"measures": "a,b,c\n1,2,3\n4,5,6\n",
	})

	engine := New(Config{}, nil, zap.NewNop())
	got, err := engine.Classify(context.Background(), snap, graph, conv)
	require.NoError(t, err)

	c := got["runner"]
	assert.Equal(t, types.CategorySource, c.Category)
	assert.Equal(t, types.TierContent, c.Tier)
	assert.GreaterOrEqual(t, c.Confidence, 0.5)
	assert.LessOrEqual(t, c.Confidence, 0.9)

	c = got["measures"]
	assert.Equal(t, types.CategoryData, c.Category)
	assert.Equal(t, types.TierContent, c.Tier)
}

func TestClassify_DependencyTier(t *testing.T) {
	snap, graph, conv := setup(t, map[string]string{
		"test_all.py": "import pytest\nimport helper\n",
		"helper.py":   "quietly_useful = 1\n",
	})

	// Narrow the rule table so "helper.py" misses the rule tier but the
	// test file is still classified; its plain assignment has no content
	// signature either, leaving the dependency tier to decide.
	cfg := Config{Rules: []Rule{{Pattern: "**/test_*.py", Category: types.CategoryTests}}}

	engine := New(cfg, nil, zap.NewNop())
	got, err := engine.Classify(context.Background(), snap, graph, conv)
	require.NoError(t, err)

	c := got["helper.py"]
	assert.Equal(t, types.CategorySource, c.Category)
	assert.Equal(t, types.TierDependency, c.Tier)
	assert.LessOrEqual(t, c.Confidence, 0.6)
}

func TestClassify_DependencyTierDoesNotCascade(t *testing.T) {
	snap, graph, conv := setup(t, map[string]string{
		"test_all.py": "import pytest\nimport a_helper\n",
		"a_helper.py": "import z_core\nvalue = z_core.value\n",
		"z_core.py":   "value = 1\n",
	})

	cfg := Config{Rules: []Rule{{Pattern: "**/test_*.py", Category: types.CategoryTests}}}

	engine := New(cfg, nil, zap.NewNop())
	got, err := engine.Classify(context.Background(), snap, graph, conv)
	require.NoError(t, err)

	// a_helper.py is imported by a test, so the dependency tier resolves it.
	assert.Equal(t, types.CategorySource, got["a_helper.py"].Category)
	assert.Equal(t, types.TierDependency, got["a_helper.py"].Tier)

	// z_core.py is reachable only through a_helper.py. The tier works from a
	// snapshot taken before it assigned anything, so a_helper.py's fresh
	// result carries no signal and z_core.py stays ambiguous.
	assert.Equal(t, types.CategoryAmbiguous, got["z_core.py"].Category)
	assert.Equal(t, types.TierDefault, got["z_core.py"].Tier)
}

func TestClassify_OracleTier(t *testing.T) {
	snap, graph, conv := setup(t, map[string]string{
		"mystery.xyz": "neither code nor data\n",
	})

	orc := &stubOracle{answers: []oracle.Answer{
		{Path: "mystery.xyz", Category: "meta", Confidence: 0.95, Reasoning: "looks auxiliary"},
	}}

	engine := New(Config{}, orc, zap.NewNop())
	got, err := engine.Classify(context.Background(), snap, graph, conv)
	require.NoError(t, err)

	c := got["mystery.xyz"]
	assert.Equal(t, types.CategoryMeta, c.Category)
	assert.Equal(t, types.TierOracle, c.Tier)
	assert.Equal(t, 0.8, c.Confidence, "oracle confidence is clamped")
	assert.Equal(t, 1, orc.calls)
}

func TestClassify_OracleNeverOverridesRules(t *testing.T) {
	snap, graph, conv := setup(t, map[string]string{
		"core.py": "x = 1\n",
	})

	orc := &stubOracle{answers: []oracle.Answer{
		{Path: "core.py", Category: "data", Confidence: 0.9},
	}}

	engine := New(Config{}, orc, zap.NewNop())
	got, err := engine.Classify(context.Background(), snap, graph, conv)
	require.NoError(t, err)

	assert.Equal(t, types.CategorySource, got["core.py"].Category)
	assert.Equal(t, 0, orc.calls, "rule-resolved files never reach the oracle")
}

func TestClassify_OracleFailureFallsToDefault(t *testing.T) {
	snap, graph, conv := setup(t, map[string]string{
		"mystery.xyz": "unknowable\n",
	})

	orc := &stubOracle{err: errors.New("timeout")}

	engine := New(Config{}, orc, zap.NewNop())
	got, err := engine.Classify(context.Background(), snap, graph, conv)
	require.NoError(t, err)

	c := got["mystery.xyz"]
	assert.Equal(t, types.CategoryAmbiguous, c.Category)
	assert.Equal(t, 0.0, c.Confidence)
	assert.Equal(t, types.TierDefault, c.Tier)
}

func TestClassify_InvalidOracleAnswersDiscarded(t *testing.T) {
	snap, graph, conv := setup(t, map[string]string{
		"mystery.xyz": "unknowable\n",
	})

	orc := &stubOracle{answers: []oracle.Answer{
		{Path: "mystery.xyz", Category: "nonsense", Confidence: 0.9},
		{Path: "never_asked.py", Category: "source", Confidence: 0.9},
	}}

	engine := New(Config{}, orc, zap.NewNop())
	got, err := engine.Classify(context.Background(), snap, graph, conv)
	require.NoError(t, err)

	assert.Equal(t, types.CategoryAmbiguous, got["mystery.xyz"].Category)
	assert.NotContains(t, got, "never_asked.py")
}

func TestClassify_Deterministic(t *testing.T) {
	files := map[string]string{
		"a.py":        "x = 1\n",
		"b.py":        "y = 2\n",
		"test_a.py":   "import a\n",
		"guide.md":    "# G\n",
		"mystery.xyz": "?\n",
	}

	run := func() map[string]types.Classification {
		snap, graph, conv := setup(t, files)
		orc := &stubOracle{answers: []oracle.Answer{
			{Path: "mystery.xyz", Category: "meta", Confidence: 0.5, Reasoning: "r"},
		}}
		engine := New(Config{}, orc, zap.NewNop())
		got, err := engine.Classify(context.Background(), snap, graph, conv)
		require.NoError(t, err)
		return got
	}

	assert.Equal(t, run(), run())
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(good, []byte(
		"- pattern: \"**/*.proto\"\n  category: source\n"), 0o644))

	rules, err := LoadRules(good)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, types.CategorySource, rules[0].Category)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(
		"- pattern: \"**/*.proto\"\n  category: sauce\n"), 0o644))
	_, err = LoadRules(bad)
	assert.Error(t, err)
}
