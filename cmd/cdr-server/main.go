// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/cdrbill/lib/process"
	"github.com/bureau-foundation/cdrbill/lib/version"
)

const binaryName = "cdr-server"

// command is one subcommand of cdr-server.
type command struct {
	name    string
	summary string
	run     func(args []string) error
}

var commands = []command{
	{name: "serve", summary: "accept billing sessions", run: runServe},
	{name: "manifest", summary: "print and verify a workspace run manifest", run: runManifest},
	{name: "unarchive", summary: "write an archived report to stdout", run: runUnarchive},
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		printUsage()
		return process.Usagef("a subcommand is required")
	}
	switch args[0] {
	case "--version", "version":
		fmt.Println(version.Banner(binaryName))
		return nil
	case "-h", "--help", "help":
		printUsage()
		return nil
	}
	for _, cmd := range commands {
		if cmd.name == args[0] {
			return cmd.run(args[1:])
		}
	}
	printUsage()
	return process.Usagef("unknown subcommand %q", args[0])
}

// parseFlags parses args into flagSet. It reports help as handled so
// the caller can return without running.
func parseFlags(flagSet *pflag.FlagSet, args []string) (handled bool, err error) {
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return true, nil
		}
		return true, process.Usagef("%v", err)
	}
	return false, nil
}

func printUsage() {
	var names strings.Builder
	for _, cmd := range commands {
		fmt.Fprintf(&names, "  %-10s %s\n", cmd.name, cmd.summary)
	}
	fmt.Fprintf(os.Stderr, `%s: CDR billing server.

Usage:
  %s <command> [flags]

Commands:
%s
Run "%s <command> --help" for the flags of a command.
`, binaryName, binaryName, names.String(), binaryName)
}
