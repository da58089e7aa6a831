/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"io"
	"log/slog"

	"github.com/chainguard-dev/clog"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

// app is the state shared by one invocation's commands.
type app struct {
	envFile  string
	lookuper envconfig.Lookuper
	in       io.Reader

	cfg config
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "demoreview",
		Short: "Rubric-driven evaluation of product demo videos",
		Long: "demoreview transcribes a demo recording, grades it against a versioned rubric\n" +
			"with a hosted language model and writes a scored result with feedback.",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Context(), a.envFile, a.lookuper)
			if err != nil {
				return err
			}
			a.cfg = cfg

			logger := clog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.LogLevel}))
			cmd.SetContext(clog.WithLogger(cmd.Context(), logger))
			return nil
		},
	}
	root.AddCommand(newEvaluateCmd(a))
	root.AddCommand(newRubricCmd(a))
	return root
}
