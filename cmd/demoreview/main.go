/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Command demoreview evaluates recorded product demos against versioned
// grading rubrics and manages the rubric store.
//
// Usage:
//
//	demoreview evaluate <file|url> --first-name <name> --last-name <name> --partner-name <name> [--rubric <name>] [--provider openai|anthropic|google] [--vision] [--no-translate]
//	demoreview evaluate --list-rubrics
//	demoreview rubric list|show|validate|create|edit|versions|restore|import
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sethvargo/go-envconfig"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := &app{
		envFile:  ".env",
		lookuper: envconfig.OsLookuper(),
		in:       os.Stdin,
	}
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
