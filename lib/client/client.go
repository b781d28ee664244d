// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/cdrbill/lib/lineproto"
)

// promptTriggers mark a server line that expects one line of input.
var promptTriggers = []string{
	"Enter choice",
	"Enter email",
	"Enter password",
	"Enter MSISDN",
	"Enter operator name",
	"Press Enter",
}

// IsPrompt reports whether line asks for input.
func IsPrompt(line string) bool {
	for _, trigger := range promptTriggers {
		if strings.Contains(line, trigger) {
			return true
		}
	}
	return false
}

// IsPasswordPrompt reports whether line asks for a password.
func IsPasswordPrompt(line string) bool {
	return strings.Contains(line, "Enter password")
}

// Client runs the interactive loop over one connection.
type Client struct {
	Conn   *lineproto.Conn
	Input  Input
	Output io.Writer
	Styles Styles

	// DownloadDir receives transferred files. Empty means the
	// working directory.
	DownloadDir string

	Logger *slog.Logger
}

// Run prints server lines and answers prompts until the server closes
// the connection or the user's input ends. Both are normal ends and
// return nil.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := c.Conn.ReceiveLine()
		if err == nil {
			if name, ok := lineproto.ParseTransferStart(line); ok {
				err = c.receive(name)
				if err == nil {
					continue
				}
			}
		}
		if errors.Is(err, lineproto.ErrEndOfStream) {
			c.status(c.Styles.faint, "Server closed connection.")
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Fprintln(c.Output, ansi.Strip(line))
		if !IsPrompt(line) {
			continue
		}
		done, err := c.answer(IsPasswordPrompt(line))
		if err != nil || done {
			return err
		}
	}
}

// answer reads one answer from Input and sends it. It returns done
// when the input has ended.
func (c *Client) answer(password bool) (done bool, err error) {
	if password {
		buffer, err := c.Input.ReadPassword()
		if errors.Is(err, io.EOF) {
			c.status(c.Styles.faint, "Input closed. Disconnecting.")
			return true, nil
		}
		if err != nil {
			return true, err
		}
		// Echo was off; end the prompt line.
		fmt.Fprintln(c.Output)
		if buffer == nil {
			return false, c.Conn.SendLine("")
		}
		defer buffer.Close()
		return false, c.Conn.SendBytes(buffer.Bytes())
	}

	text, err := c.Input.ReadLine()
	if errors.Is(err, io.EOF) {
		c.status(c.Styles.faint, "Input closed. Disconnecting.")
		return true, nil
	}
	if err != nil {
		return true, err
	}
	return false, c.Conn.SendLine(text)
}

// receive saves an announced transfer. Refused and unsaved transfers
// are reported and the session continues; a short payload is fatal.
func (c *Client) receive(announced string) error {
	name := filepath.Base(announced)
	c.status(c.Styles.info, "Receiving file: "+name)

	path := filepath.Join(c.DownloadDir, name)
	open := func(string) (io.WriteCloser, error) {
		return os.Create(path)
	}
	progress := newProgress(func(percent int) {
		c.status(c.Styles.faint, fmt.Sprintf("Progress: %d%%", percent))
	})

	sized := false
	announce := func(size int64) {
		if sized {
			return
		}
		sized = true
		c.status(c.Styles.info, fmt.Sprintf("File size: %d bytes (%.2f MB)", size, float64(size)/(1024*1024)))
	}

	result, err := c.Conn.ReceiveTransfer(name, open, func(received, total int64) {
		announce(total)
		progress.update(received, total)
	})
	if err == nil || errors.Is(err, lineproto.ErrShortTransfer) {
		announce(result.Size)
	}
	switch {
	case errors.Is(err, lineproto.ErrTransferRefused):
		c.status(c.Styles.failure, "Error: "+name+" is not available on the server")
		return nil
	case errors.Is(err, lineproto.ErrShortTransfer):
		c.status(c.Styles.warning, fmt.Sprintf("File transfer incomplete: received %d of %d bytes", result.Received, result.Size))
		return err
	case err != nil:
		return err
	}

	if result.SinkErr != nil {
		c.logger().Warn("saving transfer failed", "file", path, "error", result.SinkErr)
		c.status(c.Styles.failure, "Error: Cannot create file "+path)
	} else {
		c.status(c.Styles.success, "File saved successfully: "+path)
	}
	c.status(c.Styles.success, "Transfer completed!")
	return nil
}

func (c *Client) status(style lipgloss.Style, text string) {
	fmt.Fprintln(c.Output, style.Render(text))
}

func (c *Client) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

// progress reports each new nonzero multiple of ten percent once.
type progress struct {
	last   int
	report func(percent int)
}

func newProgress(report func(percent int)) *progress {
	return &progress{report: report}
}

func (p *progress) update(received, total int64) {
	if total <= 0 {
		return
	}
	percent := int(received * 100 / total)
	step := percent - percent%10
	if step <= p.last {
		return
	}
	p.last = step
	p.report(step)
}
