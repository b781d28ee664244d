// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/cdrbill/lib/archive"
	"github.com/bureau-foundation/cdrbill/lib/process"
)

func runUnarchive(args []string) error {
	var identityPath string
	flagSet := pflag.NewFlagSet(binaryName+" unarchive", pflag.ContinueOnError)
	flagSet.StringVarP(&identityPath, "identity", "i", "", "age identity file for encrypted archives")
	if handled, err := parseFlags(flagSet, args); handled {
		return err
	}
	if flagSet.NArg() != 1 {
		return process.Usagef("usage: %s unarchive [--identity <file>] <archive>", binaryName)
	}
	path := flagSet.Arg(0)

	var identities []age.Identity
	if strings.HasSuffix(path, archive.EncryptedExtension) {
		if identityPath == "" {
			return process.Usagef("%s is encrypted; --identity is required", path)
		}
		file, err := os.Open(identityPath)
		if err != nil {
			return fmt.Errorf("opening identity file: %w", err)
		}
		identities, err = age.ParseIdentities(file)
		file.Close()
		if err != nil {
			return fmt.Errorf("parsing identity file %s: %w", identityPath, err)
		}
	}

	reader, err := archive.Open(path, identities...)
	if err != nil {
		return err
	}
	defer reader.Close()
	if _, err := io.Copy(os.Stdout, reader); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}
