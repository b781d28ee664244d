// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/cdrbill/lib/billing"
	"github.com/bureau-foundation/cdrbill/lib/codec"
	"github.com/bureau-foundation/cdrbill/lib/process"
	"github.com/bureau-foundation/cdrbill/lib/workspace"
)

func runManifest(args []string) error {
	var (
		skipVerify bool
		raw        bool
	)
	flagSet := pflag.NewFlagSet(binaryName+" manifest", pflag.ContinueOnError)
	flagSet.BoolVar(&skipVerify, "no-verify", false, "print the manifest without checking report digests")
	flagSet.BoolVar(&raw, "raw", false, "print the manifest in CBOR diagnostic notation")
	if handled, err := parseFlags(flagSet, args); handled {
		return err
	}
	if flagSet.NArg() != 1 {
		return process.Usagef("usage: %s manifest [--no-verify] [--raw] <workspace directory>", binaryName)
	}
	directory := flagSet.Arg(0)

	path := filepath.Join(directory, workspace.ManifestName)
	if raw {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		diagnostic, err := codec.Diagnose(data)
		if err != nil {
			return fmt.Errorf("decoding %s: %w", path, err)
		}
		fmt.Fprintln(os.Stdout, diagnostic)
	}

	manifest, err := billing.ReadManifest(path)
	if err != nil {
		return err
	}
	if !raw {
		printManifest(os.Stdout, manifest)
	}

	if skipVerify {
		return nil
	}
	if err := manifest.Verify(directory); err != nil {
		return fmt.Errorf("verifying %s: %w", directory, err)
	}
	fmt.Fprintln(os.Stdout, "reports match their recorded digests")
	return nil
}

func printManifest(w io.Writer, manifest *billing.Manifest) {
	fmt.Fprintf(w, "source:    %s\n", manifest.Source)
	fmt.Fprintf(w, "started:   %s\n", manifest.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "finished:  %s (%s)\n", manifest.FinishedAt.Format(time.RFC3339),
		manifest.FinishedAt.Sub(manifest.StartedAt).Round(time.Millisecond))
	for _, entry := range []struct {
		label   string
		summary billing.ReportSummary
	}{
		{"customer", manifest.Customer},
		{"operator", manifest.Operator},
	} {
		summary := entry.summary
		fmt.Fprintf(w, "%s report %s\n", entry.label, summary.Report)
		fmt.Fprintf(w, "  digest:     %s\n", summary.Digest)
		fmt.Fprintf(w, "  bytes:      %d\n", summary.Bytes)
		fmt.Fprintf(w, "  aggregates: %d\n", summary.Aggregates)
		fmt.Fprintf(w, "  lines:      %d read, %d skipped\n", summary.Stats.Lines, summary.Stats.Skipped)
	}
}
