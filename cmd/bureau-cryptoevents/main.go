// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	if err := run(); err != nil {
		// Commands that already reported their outcome return an
		// error carrying only an exit code.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return newApp(os.Stdin, os.Stdout, os.Stderr).execute(ctx, os.Args[1:])
}

// root builds the command tree.
func (a *app) root() *command {
	return &command{
		name: programName,
		description: "Parse Matrix end-to-end encryption events, build key requests, and\n" +
			"track events waiting for their Megolm session key.",
		subcommands: []*command{
			a.parseCommand(),
			a.roomKeyCommand(),
			a.keyRequestCommand(),
			a.pendingCommand(),
		},
	}
}
