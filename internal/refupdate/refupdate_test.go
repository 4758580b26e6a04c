// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package refupdate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/petar-djukic/restruct/internal/analyzer"
	"github.com/petar-djukic/restruct/internal/depgraph"
	"github.com/petar-djukic/restruct/pkg/types"
)

func buildRepo(t *testing.T, files map[string]string) (string, *types.RepoSnapshot, *depgraph.Graph) {
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
	return dir, snap, graph
}

func TestCompute_PythonImports(t *testing.T) {
	root, snap, graph := buildRepo(t, map[string]string{
		"utils.py":      "def helper(): pass\n",
		"main.py":       "import utils\n\nutils.helper()\n",
		"test_utils.py": "from utils import helper\n",
	})

	moves := map[string]string{
		"utils.py":      "src/utils.py",
		"main.py":       "src/main.py",
		"test_utils.py": "tests/test_utils.py",
	}

	res, err := Compute(root, snap, graph, moves, zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	assert.Equal(t, "import src.utils as utils\n\nutils.helper()\n",
		string(res.Contents["src/main.py"]))
	assert.Equal(t, "from src.utils import helper\n",
		string(res.Contents["tests/test_utils.py"]))

	// One import line replaced in each file.
	assert.Equal(t, DiffStat{Added: 1, Removed: 1}, res.Stats["src/main.py"])
	assert.Equal(t, DiffStat{Added: 1, Removed: 1}, res.Stats["tests/test_utils.py"])
	assert.Equal(t, "+1 -1", res.Stats["src/main.py"].String())
}

func TestCompute_MarkdownLinks(t *testing.T) {
	root, snap, graph := buildRepo(t, map[string]string{
		"README.md": "See the [guide](guide.md#setup) for details.\n",
		"guide.md":  "# Guide\n",
	})

	moves := map[string]string{"guide.md": "docs/guide.md"}

	res, err := Compute(root, snap, graph, moves, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "See the [guide](docs/guide.md#setup) for details.\n",
		string(res.Contents["README.md"]))
}

func TestCompute_MarkdownLinkBothSidesMove(t *testing.T) {
	root, snap, graph := buildRepo(t, map[string]string{
		"overview.md": "[api](api.md)\n",
		"api.md":      "# API\n",
	})

	moves := map[string]string{
		"overview.md": "docs/overview.md",
		"api.md":      "docs/api.md",
	}

	res, err := Compute(root, snap, graph, moves, zap.NewNop())
	require.NoError(t, err)

	// Both files land in docs/, so the link stays a bare sibling reference.
	assert.Equal(t, "[api](api.md)\n", string(res.Contents["docs/overview.md"]))
}

func TestCompute_ConfigPaths(t *testing.T) {
	root, snap, graph := buildRepo(t, map[string]string{
		"config.yaml":    "input: inputs/raw.csv\n",
		"inputs/raw.csv": "a,b\n1,2\n",
	})

	moves := map[string]string{"inputs/raw.csv": "data/raw.csv"}

	res, err := Compute(root, snap, graph, moves, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "input: data/raw.csv\n", string(res.Contents["config.yaml"]))
}

func TestCompute_JSRelativeSpecifier(t *testing.T) {
	root, snap, graph := buildRepo(t, map[string]string{
		"app.js":      "import util from './lib/util.js'\n",
		"lib/util.js": "export default {}\n",
	})

	moves := map[string]string{"lib/util.js": "src/util.js"}

	res, err := Compute(root, snap, graph, moves, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "import util from './src/util.js'\n", string(res.Contents["app.js"]))
}

func TestCompute_GoImports(t *testing.T) {
	root, snap, graph := buildRepo(t, map[string]string{
		"go.mod":         "module example.com/demo\n\ngo 1.25\n",
		"main.go":        "package main\n\nimport \"example.com/demo/util\"\n\nfunc main() { util.Run() }\n",
		"util/helper.go": "package util\n\nfunc Run() {}\n",
	})

	moves := map[string]string{"util/helper.go": "src/util/helper.go"}

	res, err := Compute(root, snap, graph, moves, zap.NewNop())
	require.NoError(t, err)

	assert.Contains(t, string(res.Contents["main.go"]), `"example.com/demo/src/util"`)
	assert.NotContains(t, string(res.Contents["main.go"]), `"example.com/demo/util"`)
}

func TestCompute_UnmatchedReferenceWarnsAndLeaves(t *testing.T) {
	root, snap, graph := buildRepo(t, map[string]string{
		"README.md": "[guide](guide.md)\n",
		"guide.md":  "# Guide\n",
	})

	// Simulate content drift between analysis and rewrite: the link is gone
	// by the time the rewrite runs.
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"),
		[]byte("no links anymore\n"), 0o644))

	moves := map[string]string{"guide.md": "docs/guide.md"}

	res, err := Compute(root, snap, graph, moves, zap.NewNop())
	require.NoError(t, err)

	assert.NotContains(t, res.Contents, "README.md")
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "left untouched")
}

func TestCompute_DottedBareImportLeftAlone(t *testing.T) {
	root, snap, graph := buildRepo(t, map[string]string{
		"pkg/__init__.py": "",
		"pkg/mod.py":      "value = 1\n",
		"caller.py":       "import pkg.mod\n\nprint(pkg.mod.value)\n",
	})

	moves := map[string]string{"pkg/mod.py": "src/pkg/mod.py"}

	res, err := Compute(root, snap, graph, moves, zap.NewNop())
	require.NoError(t, err)

	// Rewriting the import line alone would break the dotted call sites.
	assert.NotContains(t, res.Contents, "caller.py")
	require.NotEmpty(t, res.Warnings)
}

func TestCompute_NoMovesNoRewrites(t *testing.T) {
	root, snap, graph := buildRepo(t, map[string]string{
		"main.py":  "import utils\n",
		"utils.py": "x = 1\n",
	})

	res, err := Compute(root, snap, graph, map[string]string{}, zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, res.Contents)
	assert.Empty(t, res.Warnings)
}
