// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Implements: prd007-execution-engine R3 (step application and validation
// predicates);
//
//	docs/ARCHITECTURE § Execution Engine.
package executor

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/petar-djukic/restruct/internal/frontmatter"
	"github.com/petar-djukic/restruct/pkg/types"
)

// applyStep performs one planned mutation.
func (e *Executor) applyStep(step types.TransformationStep, rewrites map[string][]byte) error {
	switch step.Kind {
	case types.StepCreateDir:
		return os.MkdirAll(e.abs(step.Dest), 0o755)

	case types.StepMoveFile:
		if err := os.MkdirAll(filepath.Dir(e.abs(step.Dest)), 0o755); err != nil {
			return fmt.Errorf("creating parent of %s: %w", step.Dest, err)
		}
		if _, err := os.Stat(e.abs(step.Dest)); err == nil {
			return fmt.Errorf("destination %s already occupied", step.Dest)
		}
		if err := os.Rename(e.abs(step.Source), e.abs(step.Dest)); err != nil {
			return fmt.Errorf("moving %s to %s: %w", step.Source, step.Dest, err)
		}
		return nil

	case types.StepRewriteReference, types.StepUpdateConfig:
		content, ok := rewrites[step.Target]
		if !ok {
			return fmt.Errorf("no rewritten content for %s", step.Target)
		}
		return atomicWrite(e.abs(step.Target), content)

	case types.StepInjectMetadata:
		content, err := os.ReadFile(e.abs(step.Target))
		if err != nil {
			return fmt.Errorf("reading %s: %w", step.Target, err)
		}
		injected, _, err := frontmatter.Inject(content, step.Target, metaFor(step))
		if err != nil {
			return fmt.Errorf("injecting metadata into %s: %w", step.Target, err)
		}
		if bytes.Equal(injected, content) {
			return nil
		}
		return atomicWrite(e.abs(step.Target), injected)
	}
	return fmt.Errorf("unknown step kind %d", step.Kind)
}

// validateStep checks a step's post-condition. Failure here triggers
// rollback; a step that applied but did not produce its promised state is
// as bad as one that errored.
func (e *Executor) validateStep(step types.TransformationStep) error {
	switch step.Kind {
	case types.StepCreateDir:
		info, err := os.Stat(e.abs(step.Dest))
		if err != nil || !info.IsDir() {
			return fmt.Errorf("%w: %s is not a directory", ErrStepValidation, step.Dest)
		}

	case types.StepMoveFile:
		if _, err := os.Stat(e.abs(step.Dest)); err != nil {
			return fmt.Errorf("%w: %s missing after move", ErrStepValidation, step.Dest)
		}
		if _, err := os.Stat(e.abs(step.Source)); err == nil {
			return fmt.Errorf("%w: %s still present after move", ErrStepValidation, step.Source)
		}

	case types.StepRewriteReference, types.StepUpdateConfig:
		if _, err := os.Stat(e.abs(step.Target)); err != nil {
			return fmt.Errorf("%w: %s missing after rewrite", ErrStepValidation, step.Target)
		}

	case types.StepInjectMetadata:
		content, err := os.ReadFile(e.abs(step.Target))
		if err != nil {
			return fmt.Errorf("%w: reading %s: %v", ErrStepValidation, step.Target, err)
		}
		if frontmatter.Supports(step.Target) {
			fields, ok := frontmatter.Extract(content, step.Target)
			if !ok {
				return fmt.Errorf("%w: %s carries no frontmatter after injection", ErrStepValidation, step.Target)
			}
			if missing := frontmatter.Missing(fields); len(missing) > 0 {
				return fmt.Errorf("%w: %s frontmatter missing %v", ErrStepValidation, step.Target, missing)
			}
		}
	}
	return nil
}

// metaFor builds the injected metadata for a moved file. Fields are
// deterministic functions of the step so repeated runs agree.
func metaFor(step types.TransformationStep) frontmatter.Meta {
	return frontmatter.Meta{
		Tags:        []string{string(step.Category)},
		Category:    string(step.Category),
		Description: fmt.Sprintf("%s, placed under %s/", path.Base(step.Target), step.Category.Dir()),
	}
}

func (e *Executor) abs(rel string) string {
	return filepath.Join(e.root, filepath.FromSlash(rel))
}

// atomicWrite writes data to a temp file in the same directory, then
// renames it over the target path, preserving existing permissions.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)

	perm := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	f, err := os.CreateTemp(dir, ".restruct-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
