// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lineproto

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bureau-foundation/cdrbill/lib/clock"
	"github.com/bureau-foundation/cdrbill/lib/netutil"
)

const (
	// DefaultMaxLineLength bounds the text of a received line.
	DefaultMaxLineLength = 1024

	// DefaultWriteRetries is how many transient write failures a
	// single send tolerates before giving up.
	DefaultWriteRetries = 3

	// DefaultRetryDelay is the pause between transient write retries.
	DefaultRetryDelay = time.Millisecond
)

// ErrEndOfStream is returned by ReceiveLine when the peer closes the
// stream before completing a line. Any partial line is discarded.
var ErrEndOfStream = errors.New("lineproto: peer closed the stream")

// Options configures a Conn. Zero values select the defaults.
type Options struct {
	// Clock paces transient write retries. Defaults to clock.Real().
	Clock clock.Clock

	// MaxLineLength bounds received line text.
	MaxLineLength int

	// ChunkSize is the file-transfer payload chunk size.
	ChunkSize int

	// WriteRetries bounds transient write retries per send.
	WriteRetries int

	// RetryDelay is the pause between retries.
	RetryDelay time.Duration
}

// Conn reads and writes protocol lines over a byte stream. Reads are
// buffered, and the same buffer feeds file-transfer payload reads, so
// bytes that arrive in one segment with a preceding line are never
// lost.
type Conn struct {
	reader  *bufio.Reader
	writer  io.Writer
	clock   clock.Clock
	maxLine int
	chunk   int
	retries int
	delay   time.Duration
}

// NewConn wraps stream for line-oriented use.
func NewConn(stream io.ReadWriter, options Options) *Conn {
	conn := &Conn{
		reader:  bufio.NewReader(stream),
		writer:  stream,
		clock:   options.Clock,
		maxLine: options.MaxLineLength,
		chunk:   options.ChunkSize,
		retries: options.WriteRetries,
		delay:   options.RetryDelay,
	}
	if conn.clock == nil {
		conn.clock = clock.Real()
	}
	if conn.maxLine <= 0 {
		conn.maxLine = DefaultMaxLineLength
	}
	if conn.chunk <= 0 {
		conn.chunk = DefaultChunkSize
	}
	if conn.retries <= 0 {
		conn.retries = DefaultWriteRetries
	}
	if conn.delay <= 0 {
		conn.delay = DefaultRetryDelay
	}
	return conn
}

// SendLine writes text followed by a newline, retrying transient
// write failures. Text must not itself contain a newline.
func (c *Conn) SendLine(text string) error {
	buffer := make([]byte, 0, len(text)+1)
	buffer = append(buffer, text...)
	buffer = append(buffer, '\n')
	if err := c.writeAll(buffer); err != nil {
		return fmt.Errorf("sending line: %w", err)
	}
	return nil
}

// SendBytes writes p followed by a newline without converting it to
// a string, for secrets held outside the Go heap. The caller keeps
// ownership of p.
func (c *Conn) SendBytes(p []byte) error {
	if err := c.writeAll(p); err != nil {
		return fmt.Errorf("sending line: %w", err)
	}
	if err := c.writeAll([]byte{'\n'}); err != nil {
		return fmt.Errorf("sending line: %w", err)
	}
	return nil
}

// Sendf formats according to format and sends the result as one line.
func (c *Conn) Sendf(format string, args ...any) error {
	return c.SendLine(fmt.Sprintf(format, args...))
}

// ReceiveLine reads up to the next newline and returns the line
// without its terminator or any carriage returns. It returns
// ErrEndOfStream if the peer closes first.
func (c *Conn) ReceiveLine() (string, error) {
	line := make([]byte, 0, 64)
	for {
		b, err := c.reader.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", ErrEndOfStream
			}
			return "", fmt.Errorf("receiving line: %w", err)
		}
		switch {
		case b == '\n':
			return string(line), nil
		case b == '\r':
		case len(line) >= c.maxLine:
			// Over the bound: drop bytes until the newline.
		default:
			line = append(line, b)
		}
	}
}

// writeAll writes every byte of p. Transient failures are retried up
// to c.retries times in total, pausing c.delay between attempts; a
// partial write before a failure is not repeated.
func (c *Conn) writeAll(p []byte) error {
	attempts := 0
	for len(p) > 0 {
		n, err := c.writer.Write(p)
		p = p[n:]
		if err == nil {
			if n == 0 {
				return io.ErrShortWrite
			}
			continue
		}
		if !netutil.IsTransientWriteError(err) || attempts >= c.retries {
			return err
		}
		attempts++
		c.clock.Sleep(c.delay)
	}
	return nil
}
