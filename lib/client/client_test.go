// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/cdrbill/lib/lineproto"
)

// script runs server against one end of a pipe and a Client with the
// given input against the other. It returns the client output and the
// lines the server received.
func script(t *testing.T, input string, downloads string, server func(conn *lineproto.Conn) []string) (string, []string, error) {
	t.Helper()
	serverSide, clientSide := net.Pipe()
	t.Cleanup(func() {
		serverSide.Close()
		clientSide.Close()
	})

	received := make(chan []string, 1)
	go func() {
		defer serverSide.Close()
		received <- server(lineproto.NewConn(serverSide, lineproto.Options{}))
	}()

	var output bytes.Buffer
	c := &Client{
		Conn:        lineproto.NewConn(clientSide, lineproto.Options{}),
		Input:       NewReaderInput(strings.NewReader(input)),
		Output:      &output,
		Styles:      NewStyles(&output, DefaultTheme),
		DownloadDir: downloads,
	}
	err := c.Run(context.Background())
	clientSide.Close()
	return output.String(), <-received, err
}

// readAll collects lines until the client disconnects.
func readAll(conn *lineproto.Conn) []string {
	var lines []string
	for {
		line, err := conn.ReceiveLine()
		if err != nil {
			return lines
		}
		lines = append(lines, line)
	}
}

func TestIsPrompt(t *testing.T) {
	tests := []struct {
		line     string
		prompt   bool
		password bool
	}{
		{"Enter choice (1-3):", true, false},
		{"Enter email:", true, false},
		{"Enter password:", true, true},
		{"Enter password (min 6 chars, must include: uppercase, lowercase, digit, special char):", true, true},
		{"Enter MSISDN to search:", true, false},
		{"Enter operator name to search:", true, false},
		{"Press Enter to continue", true, false},
		{"1. Sign up", false, false},
		{"", false, false},
	}
	for _, test := range tests {
		if got := IsPrompt(test.line); got != test.prompt {
			t.Errorf("IsPrompt(%q) = %v, want %v", test.line, got, test.prompt)
		}
		if got := IsPasswordPrompt(test.line); got != test.password {
			t.Errorf("IsPasswordPrompt(%q) = %v, want %v", test.line, got, test.password)
		}
	}
}

func TestRunAnswersPrompts(t *testing.T) {
	output, received, err := script(t, "2\nuser@example.com\nSecret1!\n", "", func(conn *lineproto.Conn) []string {
		var answers []string
		for _, prompt := range []string{"Enter choice (1-3):", "Enter email:", "Enter password:"} {
			conn.SendLine(prompt)
			answer, err := conn.ReceiveLine()
			if err != nil {
				return answers
			}
			answers = append(answers, answer)
		}
		conn.SendLine("Login successful!")
		return answers
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"2", "user@example.com", "Secret1!"}
	if strings.Join(received, "|") != strings.Join(want, "|") {
		t.Errorf("server received %q, want %q", received, want)
	}
	for _, fragment := range []string{"Enter email:", "Login successful!", "Server closed connection."} {
		if !strings.Contains(output, fragment) {
			t.Errorf("output missing %q:\n%s", fragment, output)
		}
	}
}

func TestRunEmptyPassword(t *testing.T) {
	_, received, err := script(t, "\n", "", func(conn *lineproto.Conn) []string {
		conn.SendLine("Enter password:")
		answer, err := conn.ReceiveLine()
		if err != nil {
			return nil
		}
		return []string{answer}
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(received) != 1 || received[0] != "" {
		t.Errorf("server received %q, want one empty line", received)
	}
}

func TestRunStopsWhenInputEnds(t *testing.T) {
	output, received, err := script(t, "1\n", "", func(conn *lineproto.Conn) []string {
		conn.SendLine("Enter choice (1-3):")
		first, err := conn.ReceiveLine()
		if err != nil {
			return nil
		}
		conn.SendLine("Enter choice (1-3):")
		return append([]string{first}, readAll(conn)...)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(received) != 1 || received[0] != "1" {
		t.Errorf("server received %q, want [1]", received)
	}
	if !strings.Contains(output, "Input closed. Disconnecting.") {
		t.Errorf("output missing disconnect notice:\n%s", output)
	}
}

func TestRunStripsEscapeSequences(t *testing.T) {
	output, _, err := script(t, "", "", func(conn *lineproto.Conn) []string {
		conn.SendLine("\x1b[31mred\x1b[0m text")
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.Contains(output, "\x1b[31m") {
		t.Errorf("escape sequence reached output: %q", output)
	}
	if !strings.Contains(output, "red text") {
		t.Errorf("output missing text: %q", output)
	}
}

func TestRunSavesTransfer(t *testing.T) {
	downloads := t.TempDir()
	payload := bytes.Repeat([]byte("0123456789"), 3000)

	output, _, err := script(t, "", downloads, func(conn *lineproto.Conn) []string {
		conn.SendFile("../CB.txt", bytes.NewReader(payload), int64(len(payload)))
		conn.SendLine("Enter choice (1-3):")
		return readAll(conn)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	saved, err := os.ReadFile(filepath.Join(downloads, "CB.txt"))
	if err != nil {
		t.Fatalf("reading saved file: %v", err)
	}
	if !bytes.Equal(saved, payload) {
		t.Errorf("saved %d bytes, want %d", len(saved), len(payload))
	}
	for _, fragment := range []string{
		"Receiving file: CB.txt",
		"File size: 30000 bytes (0.03 MB)",
		"Progress: 100%",
		"File saved successfully: " + filepath.Join(downloads, "CB.txt"),
		"Transfer completed!",
		"Enter choice (1-3):",
	} {
		if !strings.Contains(output, fragment) {
			t.Errorf("output missing %q:\n%s", fragment, output)
		}
	}
	if strings.Count(output, "Progress: 100%") != 1 {
		t.Errorf("100%% reported more than once:\n%s", output)
	}
}

func TestRunTransferRefused(t *testing.T) {
	output, _, err := script(t, "", t.TempDir(), func(conn *lineproto.Conn) []string {
		conn.SendTransferError("IOB.txt")
		conn.SendLine("still connected")
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(output, "Error: IOB.txt is not available on the server") {
		t.Errorf("output missing refusal:\n%s", output)
	}
	if !strings.Contains(output, "still connected") {
		t.Errorf("client stopped after refusal:\n%s", output)
	}
}

func TestRunTransferUnsavable(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent")
	output, _, err := script(t, "", missing, func(conn *lineproto.Conn) []string {
		conn.SendFile("CB.txt", strings.NewReader("data"), 4)
		conn.SendLine("after")
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(output, "Error: Cannot create file") {
		t.Errorf("output missing sink failure:\n%s", output)
	}
	if !strings.Contains(output, "after") {
		t.Errorf("stream lost alignment after unsaved transfer:\n%s", output)
	}
}

func TestRunShortTransfer(t *testing.T) {
	output, _, err := script(t, "", t.TempDir(), func(conn *lineproto.Conn) []string {
		conn.SendLine(lineproto.TransferStartPrefix + "CB.txt")
		conn.SendLine(lineproto.TransferSizePrefix + "100")
		conn.SendBytes([]byte("partial"))
		return nil
	})
	if !errors.Is(err, lineproto.ErrShortTransfer) {
		t.Fatalf("Run error = %v, want ErrShortTransfer", err)
	}
	if !strings.Contains(output, "File transfer incomplete: received 8 of 100 bytes") {
		t.Errorf("output missing incomplete notice:\n%s", output)
	}
}

func TestProgressSteps(t *testing.T) {
	var steps []int
	p := newProgress(func(percent int) { steps = append(steps, percent) })
	for _, received := range []int64{5, 12, 15, 35, 99, 100, 100} {
		p.update(received, 100)
	}
	want := []int{10, 30, 90, 100}
	if len(steps) != len(want) {
		t.Fatalf("steps = %v, want %v", steps, want)
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Fatalf("steps = %v, want %v", steps, want)
		}
	}
}
