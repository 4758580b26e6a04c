// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package planner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/petar-djukic/restruct/internal/analyzer"
	"github.com/petar-djukic/restruct/internal/conventions"
	"github.com/petar-djukic/restruct/internal/depgraph"
	"github.com/petar-djukic/restruct/pkg/types"
)

func buildRepo(t *testing.T, files map[string]string) (*types.RepoSnapshot, *depgraph.Graph, types.ProjectConventions) {
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

func classified(entries map[string]types.Category) map[string]types.Classification {
	out := make(map[string]types.Classification, len(entries))
	for p, cat := range entries {
		conf := 1.0
		if cat == types.CategoryAmbiguous {
			conf = 0.0
		}
		out[p] = types.Classification{Path: p, Category: cat, Confidence: conf, Tier: types.TierRule}
	}
	return out
}

func TestBuild_StepOrdering(t *testing.T) {
	snap, graph, conv := buildRepo(t, map[string]string{
		"utils.py":      "def helper(): pass\n",
		"test_utils.py": "from utils import helper\n",
	})
	class := classified(map[string]types.Category{
		"utils.py":      types.CategorySource,
		"test_utils.py": types.CategoryTests,
	})

	plan, err := Build(snap, graph, conv, class, Config{}, zap.NewNop())
	require.NoError(t, err)
	require.False(t, plan.Empty())

	var kinds []types.StepKind
	for _, s := range plan.Steps {
		kinds = append(kinds, s.Kind)
	}
	assert.Equal(t, []types.StepKind{
		types.StepCreateDir, types.StepCreateDir,
		types.StepMoveFile, types.StepMoveFile,
		types.StepRewriteReference,
		types.StepInjectMetadata, types.StepInjectMetadata,
	}, kinds)

	moves := plan.Moves()
	// The imported file moves before its importer.
	assert.Equal(t, "utils.py", moves[0].Source)
	assert.Equal(t, "src/utils.py", moves[0].Dest)
	assert.Equal(t, "test_utils.py", moves[1].Source)
	assert.Equal(t, "tests/test_utils.py", moves[1].Dest)
}

func TestBuild_DestinationCollision(t *testing.T) {
	snap, graph, conv := buildRepo(t, map[string]string{
		"a/model.py": "x = 1\n",
		"b/model.py": "y = 2\n",
	})
	class := classified(map[string]types.Category{
		"a/model.py": types.CategorySource,
		"b/model.py": types.CategorySource,
	})

	plan, err := Build(snap, graph, conv, class, Config{}, zap.NewNop())
	require.NoError(t, err)

	dests := map[string]string{}
	for _, m := range plan.Moves() {
		dests[m.Source] = m.Dest
	}
	assert.Equal(t, "src/model.py", dests["a/model.py"])
	assert.Equal(t, "src/model_b.py", dests["b/model.py"])

	var collisions []types.Conflict
	for _, c := range plan.Conflicts {
		if c.Kind == types.ConflictDestinationCollision {
			collisions = append(collisions, c)
		}
	}
	require.Len(t, collisions, 1)
	assert.Equal(t, []string{"a/model.py", "b/model.py"}, collisions[0].Paths)
	assert.True(t, collisions[0].Resolved)
}

func TestBuild_AmbiguousHeld(t *testing.T) {
	snap, graph, conv := buildRepo(t, map[string]string{
		"utils.py":    "x = 1\n",
		"mystery.xyz": "?\n",
	})
	class := classified(map[string]types.Category{
		"utils.py":    types.CategorySource,
		"mystery.xyz": types.CategoryAmbiguous,
	})

	plan, err := Build(snap, graph, conv, class, Config{}, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, []string{"mystery.xyz"}, plan.Held)
	for _, m := range plan.Moves() {
		assert.NotEqual(t, "mystery.xyz", m.Source)
	}

	var ambiguity []types.Conflict
	for _, c := range plan.Conflicts {
		if c.Kind == types.ConflictClassificationAmbiguity {
			ambiguity = append(ambiguity, c)
		}
	}
	require.Len(t, ambiguity, 1)
	assert.True(t, ambiguity[0].Resolved)
}

func TestBuild_LowConfidenceHeld(t *testing.T) {
	snap, graph, conv := buildRepo(t, map[string]string{
		"maybe.py": "x = 1\n",
	})
	class := map[string]types.Classification{
		"maybe.py": {Path: "maybe.py", Category: types.CategorySource, Confidence: 0.3, Tier: types.TierOracle},
	}

	plan, err := Build(snap, graph, conv, class, Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"maybe.py"}, plan.Held)
	assert.Empty(t, plan.Moves())
}

func TestBuild_CycleCollapse(t *testing.T) {
	snap, graph, conv := buildRepo(t, map[string]string{
		"x.py": "import y\n",
		"y.py": "import x\n",
	})
	class := map[string]types.Classification{
		"x.py": {Path: "x.py", Category: types.CategorySource, Confidence: 0.6, Tier: types.TierContent},
		"y.py": {Path: "y.py", Category: types.CategoryDocumentation, Confidence: 0.6, Tier: types.TierContent},
	}

	plan, err := Build(snap, graph, conv, class, Config{}, zap.NewNop())
	require.NoError(t, err)

	var cycles []types.Conflict
	for _, c := range plan.Conflicts {
		if c.Kind == types.ConflictDependencyCycle {
			cycles = append(cycles, c)
		}
	}
	require.Len(t, cycles, 1, "one conflict note per cycle")
	assert.Equal(t, []string{"x.py", "y.py"}, cycles[0].Paths)

	// Tie between the two categories breaks to the lexicographically
	// smaller name, so both land under docs/.
	cats := map[string]types.Category{}
	for _, m := range plan.Moves() {
		cats[m.Source] = m.Category
	}
	assert.Equal(t, types.CategoryDocumentation, cats["x.py"])
	assert.Equal(t, types.CategoryDocumentation, cats["y.py"])
}

func TestBuild_IdempotentOnOwnOutput(t *testing.T) {
	snap, graph, conv := buildRepo(t, map[string]string{
		"src/utils.py":        "def helper(): pass\n",
		"tests/test_utils.py": "from src.utils import helper\n",
	})
	class := classified(map[string]types.Category{
		"src/utils.py":        types.CategorySource,
		"tests/test_utils.py": types.CategoryTests,
	})

	plan, err := Build(snap, graph, conv, class, Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, plan.Empty())
	assert.Empty(t, plan.Conflicts)
}

func TestBuild_Deterministic(t *testing.T) {
	files := map[string]string{
		"utils.py":      "def helper(): pass\n",
		"test_utils.py": "from utils import helper\n",
		"a/model.py":    "x = 1\n",
		"b/model.py":    "y = 2\n",
	}
	class := classified(map[string]types.Category{
		"utils.py":      types.CategorySource,
		"test_utils.py": types.CategoryTests,
		"a/model.py":    types.CategorySource,
		"b/model.py":    types.CategorySource,
	})

	snap, graph, conv := buildRepo(t, files)
	first, err := Build(snap, graph, conv, class, Config{}, zap.NewNop())
	require.NoError(t, err)
	second, err := Build(snap, graph, conv, class, Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuild_Risks(t *testing.T) {
	snap, graph, conv := buildRepo(t, map[string]string{
		"main.py":  "import utils\n",
		"utils.py": "x = 1\n",
	})
	class := classified(map[string]types.Category{
		"main.py":  types.CategorySource,
		"utils.py": types.CategorySource,
	})

	plan, err := Build(snap, graph, conv, class, Config{}, zap.NewNop())
	require.NoError(t, err)

	kinds := map[types.RiskKind]bool{}
	for _, r := range plan.Risks {
		kinds[r.Kind] = true
	}
	assert.True(t, kinds[types.RiskEntryPointMove], "moving main.py is an entry-point risk")
	assert.True(t, kinds[types.RiskBulkRewrite], "every reference is rewritten")
}

func TestBuild_ExternalExposureRisk(t *testing.T) {
	snap, graph, conv := buildRepo(t, map[string]string{
		"pipeline.yaml":  "script: scripts/run.sh\n",
		"scripts/run.sh": "#!/bin/sh\necho ok\n",
	})
	class := classified(map[string]types.Category{
		"pipeline.yaml":  types.CategoryMeta,
		"scripts/run.sh": types.CategorySource,
	})

	plan, err := Build(snap, graph, conv, class, Config{}, zap.NewNop())
	require.NoError(t, err)

	found := false
	for _, r := range plan.Risks {
		if r.Kind == types.RiskExternalExposed && r.Path == "scripts/run.sh" {
			found = true
		}
	}
	assert.True(t, found)
}
