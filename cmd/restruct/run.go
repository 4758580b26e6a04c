// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Implements: prd010-technology-stack R4.3-R4.9.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/petar-djukic/restruct/pkg/engine"
)

// engineConfig assembles the engine configuration from viper state.
func engineConfig() (engine.Config, *zap.Logger, error) {
	var log *zap.Logger
	var err error
	if viper.GetBool("verbose") {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		return engine.Config{}, nil, fmt.Errorf("initializing logger: %w", err)
	}

	return engine.Config{
		Root:                viper.GetString("root"),
		RulesPath:           viper.GetString("rules"),
		IgnorePatterns:      viper.GetStringSlice("ignore"),
		Model:               viper.GetString("model"),
		Region:              viper.GetString("region"),
		Checkpoint:          viper.GetString("checkpoint"),
		AmbiguityThreshold:  viper.GetFloat64("ambiguity-threshold"),
		BulkRewriteFraction: viper.GetFloat64("bulk-rewrite-fraction"),
		Workers:             viper.GetInt("workers"),
		Logger:              log,
	}, log, nil
}

// newPlanCmd creates the "plan" command: analyze and plan without mutating.
func newPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Preview the transformation without touching the tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := engineConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			eng, err := engine.New(cfg)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			artifact, err := eng.Plan(ctx)
			if err != nil {
				return err
			}
			printJSON(artifact)
			return nil
		},
	}
}

// newRunCmd creates the "run" command: the full transactional pipeline.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Restructure the repository",
		Long:  "Run classifies every file, plans the moves, applies them under a checkpoint, and validates the result. The run artifact is written to the repository root.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := engineConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			eng, err := engine.New(cfg)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			artifact, err := eng.Run(ctx)
			if artifact != nil {
				printJSON(artifact)
			}
			if err != nil {
				return err
			}
			if artifact.Validation != nil && !artifact.Validation.Passed() {
				return fmt.Errorf("validation failed with %d errors", len(artifact.Validation.Errors))
			}
			return nil
		},
	}
}

// newValidateCmd creates the "validate" command.
func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Re-check the tree against the last run's plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := engineConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			eng, err := engine.New(cfg)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}

			report, err := eng.Validate(cmd.Context())
			if err != nil {
				return err
			}
			printJSON(report)
			if !report.Passed() {
				return fmt.Errorf("validation failed with %d errors", len(report.Errors))
			}
			return nil
		},
	}
}

// newUndoCmd creates the "undo" command.
func newUndoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Restore the tree to the last run's checkpoint",
		Long:  "Undo restores the repository from the checkpoint recorded in the last run artifact. Requires the git checkpoint backend.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := engineConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			eng, err := engine.New(cfg)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}

			if err := eng.Undo(cmd.Context()); err != nil {
				return fmt.Errorf("undo failed: %w", err)
			}
			fmt.Println("Restored tree from the last checkpoint.")
			return nil
		},
	}
}

// printJSON writes a value as indented JSON to stdout.
func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling output: %v\n", err)
		return
	}
	fmt.Println(string(out))
}
