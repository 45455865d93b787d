// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Brainbase Contributors

package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root brainbase command with all subcommands
// registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "brainbase",
		Short:         "Brainbase — organizational knowledge graph",
		Long:          "Brainbase is an access-controlled single source of truth storing decisions, people, and AI activity as a generic graph.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")

	root.AddCommand(
		newInitCmd(),
		newStartCmd(),
		newVersionCmd(),
	)

	return root
}
