// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package executor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/petar-djukic/restruct/pkg/types"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		abs := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	}
	return dir
}

// hashTree maps each file's relative path to its content hash, ignoring
// run-transient entries.
func hashTree(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		base := filepath.Base(p)
		if base == ".git" || base == lockFileName {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, p)
		sum := sha256.Sum256(data)
		out[filepath.ToSlash(rel)] = hex.EncodeToString(sum[:])
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestRun_Success(t *testing.T) {
	root := writeTree(t, map[string]string{
		"utils.py":      "def helper(): pass\n",
		"test_utils.py": "from utils import helper\n",
	})

	plan := &types.TransformationPlan{Steps: []types.TransformationStep{
		{Kind: types.StepCreateDir, Dest: "src"},
		{Kind: types.StepCreateDir, Dest: "tests"},
		{Kind: types.StepMoveFile, Source: "utils.py", Dest: "src/utils.py", Category: types.CategorySource},
		{Kind: types.StepMoveFile, Source: "test_utils.py", Dest: "tests/test_utils.py", Category: types.CategoryTests},
		{Kind: types.StepRewriteReference, Target: "tests/test_utils.py"},
		{Kind: types.StepInjectMetadata, Target: "src/utils.py", Category: types.CategorySource},
	}}
	rewrites := map[string][]byte{
		"tests/test_utils.py": []byte("from src.utils import helper\n"),
	}

	exec := New(root, nil, zap.NewNop())
	result, err := exec.Run(context.Background(), plan, rewrites)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, result.Status)
	assert.Equal(t, -1, result.FailedStep)
	assert.Len(t, result.Outcomes, len(plan.Steps))

	moved, err := os.ReadFile(filepath.Join(root, "tests", "test_utils.py"))
	require.NoError(t, err)
	assert.Equal(t, "from src.utils import helper\n", string(moved))

	injected, err := os.ReadFile(filepath.Join(root, "src", "utils.py"))
	require.NoError(t, err)
	assert.Contains(t, string(injected), "\"\"\"---")
	assert.Contains(t, string(injected), "category: source")

	_, err = os.Stat(filepath.Join(root, "utils.py"))
	assert.True(t, os.IsNotExist(err), "source path vacated")
	_, err = os.Stat(filepath.Join(root, lockFileName))
	assert.True(t, os.IsNotExist(err), "lock released")
}

func TestRun_RollbackOnInjectedFailure(t *testing.T) {
	files := map[string]string{}
	var steps []types.TransformationStep
	steps = append(steps, types.TransformationStep{Kind: types.StepCreateDir, Dest: "src"})
	for i := 0; i < 10; i++ {
		name := fmt.Sprintf("mod_%d.py", i)
		files[name] = fmt.Sprintf("value = %d\n", i)
		steps = append(steps, types.TransformationStep{
			Kind: types.StepMoveFile, Source: name, Dest: "src/" + name, Category: types.CategorySource,
		})
	}
	root := writeTree(t, files)
	before := hashTree(t, root)

	exec := New(root, nil, zap.NewNop())
	exec.beforeStep = func(i int, step types.TransformationStep) error {
		if i == 7 {
			return errors.New("no space left on device")
		}
		return nil
	}

	result, err := exec.Run(context.Background(), &types.TransformationPlan{Steps: steps}, nil)
	require.NoError(t, err)
	assert.Equal(t, types.StatusRolledBack, result.Status)
	assert.Equal(t, 7, result.FailedStep)
	assert.Contains(t, result.Error, "no space left")

	for _, o := range result.Outcomes[:len(result.Outcomes)-1] {
		assert.True(t, o.Applied)
		assert.True(t, o.Reverted)
	}

	assert.Equal(t, before, hashTree(t, root), "rollback restores the exact pre-run hash set")
}

func TestRun_ConcurrentRunRejected(t *testing.T) {
	root := writeTree(t, map[string]string{"a.py": "x = 1\n"})
	require.NoError(t, os.WriteFile(filepath.Join(root, lockFileName), []byte("pid 1\n"), 0o644))

	exec := New(root, nil, zap.NewNop())
	_, err := exec.Run(context.Background(), &types.TransformationPlan{}, nil)
	assert.ErrorIs(t, err, ErrLocked)
}

func TestRun_UnresolvedConflictRejected(t *testing.T) {
	root := writeTree(t, map[string]string{"a.py": "x = 1\n"})
	plan := &types.TransformationPlan{
		Conflicts: []types.Conflict{{Kind: types.ConflictDestinationCollision, Paths: []string{"a.py"}}},
	}

	exec := New(root, nil, zap.NewNop())
	_, err := exec.Run(context.Background(), plan, nil)
	assert.Error(t, err)
}

type failingBackend struct {
	inner       Backend
	failCreate  bool
	failRestore bool
}

func (b *failingBackend) Create(ctx context.Context) (string, error) {
	if b.failCreate {
		return "", fmt.Errorf("%w: simulated", ErrCheckpoint)
	}
	return b.inner.Create(ctx)
}

func (b *failingBackend) Restore(ctx context.Context, id string) error {
	if b.failRestore {
		return fmt.Errorf("%w: simulated", ErrCheckpoint)
	}
	return b.inner.Restore(ctx, id)
}

func (b *failingBackend) Release(ctx context.Context, id string) error {
	return b.inner.Release(ctx, id)
}

func TestRun_CheckpointCreateFailure(t *testing.T) {
	root := writeTree(t, map[string]string{"a.py": "x = 1\n"})
	before := hashTree(t, root)

	exec := New(root, &failingBackend{failCreate: true}, zap.NewNop())
	result, err := exec.Run(context.Background(), &types.TransformationPlan{
		Steps: []types.TransformationStep{{Kind: types.StepCreateDir, Dest: "src"}},
	}, nil)

	assert.ErrorIs(t, err, ErrCheckpoint)
	assert.Equal(t, types.StatusFailedUnrecoverable, result.Status)
	assert.Equal(t, before, hashTree(t, root), "no mutation attempted without a checkpoint")
}

func TestRun_RestoreFailureIsUnrecoverable(t *testing.T) {
	root := writeTree(t, map[string]string{"a.py": "x = 1\n"})

	backend := &failingBackend{inner: &CopyBackend{Root: root}, failRestore: true}
	exec := New(root, backend, zap.NewNop())
	exec.beforeStep = func(i int, step types.TransformationStep) error {
		return errors.New("boom")
	}

	result, err := exec.Run(context.Background(), &types.TransformationPlan{
		Steps: []types.TransformationStep{{Kind: types.StepCreateDir, Dest: "src"}},
	}, nil)

	assert.Error(t, err)
	assert.Equal(t, types.StatusFailedUnrecoverable, result.Status)
	assert.Contains(t, result.Error, "rollback failed")
}

func TestRun_MoveRefusesOccupiedDestination(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.py":     "x = 1\n",
		"src/a.py": "occupied\n",
	})
	before := hashTree(t, root)

	plan := &types.TransformationPlan{Steps: []types.TransformationStep{
		{Kind: types.StepMoveFile, Source: "a.py", Dest: "src/a.py", Category: types.CategorySource},
	}}

	exec := New(root, nil, zap.NewNop())
	result, err := exec.Run(context.Background(), plan, nil)
	require.NoError(t, err)
	assert.Equal(t, types.StatusRolledBack, result.Status)
	assert.Equal(t, before, hashTree(t, root))
}

func TestGitBackend_CreateRestore(t *testing.T) {
	root := writeTree(t, map[string]string{"a.py": "original\n"})

	backend := &GitBackend{Root: root}
	id, err := backend.Create(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.py"), []byte("mutated\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray.py"), []byte("untracked\n"), 0o644))

	require.NoError(t, backend.Restore(context.Background(), id))

	content, err := os.ReadFile(filepath.Join(root, "a.py"))
	require.NoError(t, err)
	assert.Equal(t, "original\n", string(content))
	_, err = os.Stat(filepath.Join(root, "stray.py"))
	assert.True(t, os.IsNotExist(err), "untracked files cleaned on restore")
}

func TestCopyBackend_ReleaseRemovesCheckpoint(t *testing.T) {
	root := writeTree(t, map[string]string{"a.py": "x\n"})

	backend := &CopyBackend{Root: root}
	id, err := backend.Create(context.Background())
	require.NoError(t, err)

	require.NoError(t, backend.Release(context.Background(), id))
	_, err = os.Stat(id)
	assert.True(t, os.IsNotExist(err))
}
