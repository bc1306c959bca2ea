// Copyright 2026 The chainscan Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The chainscan command discovers pointer chains from a static module
// base to a target address inside a running Linux/Android process, by
// breadth-first inverse-pointer search (see internal/chainsearch).
//
// Grounded on the teacher's cmd/viewcore, which is likewise a thin
// cobra-driven front end over an internal analysis package
// (cmd/viewcore/objref.go uses cobra for its objref subcommand) rather
// than a multi-file flag.FlagSet dispatcher.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/chainscan/chainscan/internal/chainlog"
	"github.com/spf13/cobra"
)

var logFormat string

func main() {
	root := &cobra.Command{
		Use:   "chainscan",
		Short: "Discover pointer chains from static modules to a target address",
	}
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "progress log format: text or json")

	root.AddCommand(
		newPointersCmd(),
		newScanCmd(),
		newFormatCmd(),
		newCompareCmd(),
		newReplCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func logger() *slog.Logger {
	return chainlog.New(os.Stderr, chainlog.Format(logFormat))
}
