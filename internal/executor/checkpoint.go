// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Implements: prd007-execution-engine R2 (checkpoint and rollback);
//
//	docs/ARCHITECTURE § Execution Engine.
package executor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/uuid"
)

// Backend is the checkpoint contract: Create must succeed before any
// mutating step runs, Restore failure is the unrecoverable terminal case,
// and Release runs only after a successful run.
type Backend interface {
	Create(ctx context.Context) (string, error)
	Restore(ctx context.Context, id string) error
	Release(ctx context.Context, id string) error
}

// CopyBackend checkpoints by copying the whole tree to a temporary
// directory. It needs no version control in the target repo and restores
// exactly, including untracked files.
type CopyBackend struct {
	Root string
}

// Create copies the tree into a fresh temp directory and returns its path.
func (b *CopyBackend) Create(ctx context.Context) (string, error) {
	dir, err := os.MkdirTemp("", "restruct-checkpoint-*")
	if err != nil {
		return "", fmt.Errorf("%w: creating checkpoint dir: %v", ErrCheckpoint, err)
	}
	if err := copyTree(b.Root, dir); err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("%w: %v", ErrCheckpoint, err)
	}
	return dir, nil
}

// Restore clears the tree and copies the checkpoint back.
func (b *CopyBackend) Restore(ctx context.Context, id string) error {
	if _, err := os.Stat(id); err != nil {
		return fmt.Errorf("%w: checkpoint %s missing: %v", ErrCheckpoint, id, err)
	}
	if err := clearTree(b.Root); err != nil {
		return fmt.Errorf("%w: clearing tree: %v", ErrCheckpoint, err)
	}
	if err := copyTree(id, b.Root); err != nil {
		return fmt.Errorf("%w: restoring tree: %v", ErrCheckpoint, err)
	}
	return nil
}

// Release discards the checkpoint copy.
func (b *CopyBackend) Release(ctx context.Context, id string) error {
	return os.RemoveAll(id)
}

// GitBackend checkpoints with a commit in the target repository, creating
// the repository if none exists. Restore is a hard reset plus a clean of
// untracked files; Release keeps the commit as an audit point.
type GitBackend struct {
	Root string
}

func (b *GitBackend) Create(ctx context.Context) (string, error) {
	repo, err := gogit.PlainOpen(b.Root)
	if err != nil {
		repo, err = gogit.PlainInit(b.Root, false)
		if err != nil {
			return "", fmt.Errorf("%w: opening repository: %v", ErrCheckpoint, err)
		}
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("%w: getting worktree: %v", ErrCheckpoint, err)
	}
	if err := wt.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
		return "", fmt.Errorf("%w: staging tree: %v", ErrCheckpoint, err)
	}

	// The live lock must stay out of the checkpoint: a restore would
	// resurrect it and reject every later run.
	idx, err := repo.Storer.Index()
	if err != nil {
		return "", fmt.Errorf("%w: reading index: %v", ErrCheckpoint, err)
	}
	if _, err := idx.Remove(lockFileName); err == nil {
		if err := repo.Storer.SetIndex(idx); err != nil {
			return "", fmt.Errorf("%w: unstaging lock: %v", ErrCheckpoint, err)
		}
	}

	hash, err := wt.Commit(fmt.Sprintf("restruct checkpoint %s", uuid.NewString()), &gogit.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  "restruct",
			Email: "restruct@localhost",
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: committing checkpoint: %v", ErrCheckpoint, err)
	}
	return hash.String(), nil
}

func (b *GitBackend) Restore(ctx context.Context, id string) error {
	repo, err := gogit.PlainOpen(b.Root)
	if err != nil {
		return fmt.Errorf("%w: opening repository: %v", ErrCheckpoint, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("%w: getting worktree: %v", ErrCheckpoint, err)
	}
	if err := wt.Reset(&gogit.ResetOptions{Commit: plumbing.NewHash(id), Mode: gogit.HardReset}); err != nil {
		return fmt.Errorf("%w: hard reset: %v", ErrCheckpoint, err)
	}
	if err := wt.Clean(&gogit.CleanOptions{Dir: true}); err != nil {
		return fmt.Errorf("%w: cleaning untracked files: %v", ErrCheckpoint, err)
	}
	// A checkpoint taken before the lock was excluded from the index may
	// still carry it; the lock lifecycle belongs to the run, not the tree.
	if err := os.Remove(filepath.Join(b.Root, lockFileName)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: removing stale lock: %v", ErrCheckpoint, err)
	}
	return nil
}

func (b *GitBackend) Release(ctx context.Context, id string) error { return nil }

// copyTree copies src into dst, skipping version-control internals and the
// run lock.
func copyTree(src, dst string) error {
	return filepath.Walk(src, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		base := filepath.Base(rel)
		if base == ".git" || base == lockFileName {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm())
		}
		return copyFile(p, target, info.Mode().Perm())
	})
}

// clearTree removes everything under root except version-control internals
// and the run lock.
func clearTree(root string) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Name() == ".git" || e.Name() == lockFileName {
			continue
		}
		if err := os.RemoveAll(filepath.Join(root, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
