// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Implements: prd001-engine-interface R4;
//
//	docs/ARCHITECTURE § Engine Interface.
package engine

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/petar-djukic/restruct/internal/classify"
	"github.com/petar-djukic/restruct/internal/oracle"
)

const defaultOracleTimeout = 2 * time.Minute

// New validates the config and returns a ready-to-use Engine. The
// repository is not read until Plan or Run.
//
// Implements: prd001-engine-interface R4.1-R4.4.
func New(cfg Config) (Engine, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	applyDefaults(&cfg)

	orc := cfg.Oracle
	if orc == nil && cfg.Model != "" {
		client, err := oracle.NewClient(context.Background(), oracle.ClientConfig{
			ModelID: cfg.Model,
			Region:  cfg.Region,
			Timeout: defaultOracleTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing oracle: %w", err)
		}
		orc = client
	}

	return &runner{cfg: cfg, oracle: orc, log: cfg.Logger}, nil
}

func validateConfig(cfg Config) error {
	if cfg.Root == "" {
		return fmt.Errorf("Root is required")
	}
	if info, err := os.Stat(cfg.Root); err != nil || !info.IsDir() {
		return fmt.Errorf("Root %q does not exist or is not a directory", cfg.Root)
	}
	if cfg.Model != "" && cfg.Region == "" {
		return fmt.Errorf("Region is required when Model is set")
	}
	switch cfg.Checkpoint {
	case "", CheckpointCopy, CheckpointGit:
	default:
		return fmt.Errorf("unknown checkpoint backend %q", cfg.Checkpoint)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Checkpoint == "" {
		cfg.Checkpoint = CheckpointCopy
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
}

var _ classify.Oracle = (*oracle.Client)(nil)
