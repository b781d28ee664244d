// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/cdrbill/lib/client"
	"github.com/bureau-foundation/cdrbill/lib/lineproto"
	"github.com/bureau-foundation/cdrbill/lib/process"
	"github.com/bureau-foundation/cdrbill/lib/version"
	"github.com/bureau-foundation/cdrbill/transport"
)

const binaryName = "cdr-client"

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	var (
		address      string
		downloadDir  string
		passwordFile string
		timeout      time.Duration
		showVersion  bool
	)
	flagSet := pflag.NewFlagSet(binaryName, pflag.ContinueOnError)
	flagSet.StringVarP(&address, "address", "a", "127.0.0.1:12345", "server address (host:port)")
	flagSet.StringVarP(&downloadDir, "download-dir", "d", ".", "directory for files the server transfers")
	flagSet.StringVar(&passwordFile, "password-file", "", "answer password prompts from this file instead of the terminal")
	flagSet.DurationVar(&timeout, "timeout", 10*time.Second, "connection timeout")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return process.Usagef("%v", err)
	}
	if showVersion {
		fmt.Println(version.Banner(binaryName))
		return nil
	}
	if flagSet.NArg() > 0 {
		return process.Usagef("unexpected argument: %s", flagSet.Arg(0))
	}

	info, err := os.Stat(downloadDir)
	if err != nil {
		return fmt.Errorf("download directory: %w", err)
	}
	if !info.IsDir() {
		return process.Usagef("--download-dir %s is not a directory", downloadDir)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dialer := &transport.TCPDialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, address)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", address, err)
	}
	defer conn.Close()

	// Closing the connection unblocks the receive loop on interrupt.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	input := client.NewStreamInput(os.Stdin)
	input.PasswordFile = passwordFile

	styles := client.NewStyles(os.Stdout, client.DefaultTheme)
	fmt.Println(styles.Info("Connected to " + address))

	session := &client.Client{
		Conn:        lineproto.NewConn(conn, lineproto.Options{}),
		Input:       input,
		Output:      os.Stdout,
		Styles:      styles,
		DownloadDir: downloadDir,
	}
	if err := session.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
