// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Brainbase Contributors

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	bberr "github.com/brainbase-dev/brainbase/pkg/errors"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default brainbase.yaml",
		RunE:  runInit,
	}

	cmd.Flags().StringP("output", "o", "brainbase.yaml", "output path")
	cmd.Flags().Bool("force", false, "overwrite an existing file")

	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	out, _ := cmd.Flags().GetString("output")
	force, _ := cmd.Flags().GetBool("force")

	if _, err := os.Stat(out); err == nil && !force {
		return bberr.Errorf(bberr.CodeConfigInvalid, "%s already exists (use --force to overwrite)", out)
	}

	defaults := map[string]any{
		"server": map[string]any{
			"listen":             "127.0.0.1:8787",
			"cors_origins":       []string{},
			"read_timeout_secs":  30,
			"write_timeout_secs": 60,
		},
		"storage": map[string]any{
			"path": "brainbase.db",
		},
		"auth": map[string]any{
			"allow_insecure_headers": false,
		},
		"log": map[string]any{
			"level": "info",
		},
	}

	data, err := yaml.Marshal(defaults)
	if err != nil {
		return bberr.Wrap(err, bberr.CodeConfigInvalid, "rendering default config")
	}
	if err := os.WriteFile(out, data, 0o600); err != nil {
		return bberr.Wrapf(err, bberr.CodeConfigInvalid, "writing %s", out)
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
	return err
}
