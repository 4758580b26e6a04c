// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Command restruct restructures a repository into the category taxonomy
// using the restruct engine library.
// Implements: prd010-technology-stack R4.1-R4.10;
//
//	docs/ARCHITECTURE § Project Structure.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "restruct",
		Short: "Repository restructuring with transactional safety",
		Long:  "restruct classifies every file in a repository, plans a conflict-free layout under src/, data/, docs/, tests/, and meta/, and applies it with checkpoint and rollback.",
	}

	// Global flags.
	rootCmd.PersistentFlags().String("root", ".", "Repository root directory")
	rootCmd.PersistentFlags().String("rules", "", "YAML classification rule table")
	rootCmd.PersistentFlags().StringSlice("ignore", nil, "Extra ignore globs")
	rootCmd.PersistentFlags().String("model", "", "Bedrock model ID for the classification oracle (empty disables it)")
	rootCmd.PersistentFlags().String("region", "", "AWS region for the oracle")
	rootCmd.PersistentFlags().String("checkpoint", "copy", "Checkpoint backend: copy or git")
	rootCmd.PersistentFlags().Float64("ambiguity-threshold", 0.5, "Hold files below this classification confidence")
	rootCmd.PersistentFlags().Float64("bulk-rewrite-fraction", 0.5, "Flag a risk above this fraction of rewritten references")
	rootCmd.PersistentFlags().Int("workers", 0, "Worker pool size (0 = GOMAXPROCS)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")

	// Bind flags to viper.
	viper.BindPFlag("root", rootCmd.PersistentFlags().Lookup("root"))
	viper.BindPFlag("rules", rootCmd.PersistentFlags().Lookup("rules"))
	viper.BindPFlag("ignore", rootCmd.PersistentFlags().Lookup("ignore"))
	viper.BindPFlag("model", rootCmd.PersistentFlags().Lookup("model"))
	viper.BindPFlag("region", rootCmd.PersistentFlags().Lookup("region"))
	viper.BindPFlag("checkpoint", rootCmd.PersistentFlags().Lookup("checkpoint"))
	viper.BindPFlag("ambiguity-threshold", rootCmd.PersistentFlags().Lookup("ambiguity-threshold"))
	viper.BindPFlag("bulk-rewrite-fraction", rootCmd.PersistentFlags().Lookup("bulk-rewrite-fraction"))
	viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Env vars: RESTRUCT_MODEL, RESTRUCT_REGION, etc.
	viper.SetEnvPrefix("RESTRUCT")
	viper.AutomaticEnv()

	// Config file.
	viper.SetConfigName(".restruct")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.ReadInConfig() // Ignore error; config file is optional.

	// Add commands.
	rootCmd.AddCommand(newPlanCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newUndoCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newVersionCmd creates the "version" command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print restruct version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("restruct %s\n", version)
		},
	}
}
