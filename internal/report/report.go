// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package report persists the machine-readable run artifact: the plan, the
// execution result, and the validation report, suitable for audit and for
// undoing a run from its checkpoint.
// Implements: prd001-engine-interface R6;
//
//	docs/ARCHITECTURE § Run Artifact.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/petar-djukic/restruct/pkg/types"
)

// DefaultName is the artifact filename written at the repository root.
const DefaultName = ".restruct-run.json"

// New starts a run report with a fresh run ID.
func New(root string, dryRun bool) *types.RunReport {
	return &types.RunReport{
		ID:        uuid.NewString(),
		Root:      root,
		StartedAt: time.Now().UTC(),
		DryRun:    dryRun,
	}
}

// Write finalizes and persists the artifact under the repository root.
func Write(root string, r *types.RunReport) (string, error) {
	r.FinishedAt = time.Now().UTC()

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding run artifact: %w", err)
	}
	data = append(data, '\n')

	path := filepath.Join(root, DefaultName)
	tmp, err := os.CreateTemp(root, ".restruct-run-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating artifact temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("closing artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("renaming artifact: %w", err)
	}
	return path, nil
}

// Load reads the artifact back, for inspection or undo.
func Load(root string) (*types.RunReport, error) {
	data, err := os.ReadFile(filepath.Join(root, DefaultName))
	if err != nil {
		return nil, fmt.Errorf("reading run artifact: %w", err)
	}
	var r types.RunReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding run artifact: %w", err)
	}
	return &r, nil
}
