// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lineproto

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// File-transfer control lines.
const (
	TransferStartPrefix = "FILE_TRANSFER_START:"
	TransferSizePrefix  = "FILE_SIZE:"
	TransferComplete    = "FILE_TRANSFER_COMPLETE"
	TransferError       = "FILE_TRANSFER_ERROR"

	// DefaultChunkSize is the payload write and read unit.
	DefaultChunkSize = 8192
)

var (
	// ErrTransferRefused is returned by ReceiveTransfer when the
	// sender reports it could not open the file.
	ErrTransferRefused = errors.New("lineproto: sender refused the transfer")

	// ErrShortTransfer means the stream ended before the declared
	// payload size was received (receiver) or the source ran out
	// before the declared size was sent (sender). The stream is no
	// longer aligned and the connection must be closed.
	ErrShortTransfer = errors.New("lineproto: transfer ended before the declared size")

	// ErrProtocol reports a control line that does not fit the
	// transfer framing.
	ErrProtocol = errors.New("lineproto: malformed transfer framing")
)

// SendFile streams size bytes from source framed as a transfer named
// name. The receiver relies on size being exact, so a source that
// yields fewer bytes fails with ErrShortTransfer.
func (c *Conn) SendFile(name string, source io.Reader, size int64) error {
	if err := c.SendLine(TransferStartPrefix + name); err != nil {
		return err
	}
	if err := c.SendLine(TransferSizePrefix + strconv.FormatInt(size, 10)); err != nil {
		return err
	}

	buffer := make([]byte, c.chunk)
	var sent int64
	for sent < size {
		want := int64(len(buffer))
		if remaining := size - sent; remaining < want {
			want = remaining
		}
		n, err := io.ReadFull(source, buffer[:want])
		if n > 0 {
			if writeErr := c.writeAll(buffer[:n]); writeErr != nil {
				return fmt.Errorf("sending %s payload: %w", name, writeErr)
			}
			sent += int64(n)
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return fmt.Errorf("%w: %s sent %d of %d bytes", ErrShortTransfer, name, sent, size)
			}
			return fmt.Errorf("reading %s: %w", name, err)
		}
	}
	return c.SendLine(TransferComplete)
}

// SendTransferError tells the receiver that the transfer of name
// cannot happen. No payload follows.
func (c *Conn) SendTransferError(name string) error {
	if err := c.SendLine(TransferStartPrefix + name); err != nil {
		return err
	}
	return c.SendLine(TransferError)
}

// ParseTransferStart reports whether line begins a transfer and
// returns the announced name.
func ParseTransferStart(line string) (string, bool) {
	if !strings.HasPrefix(line, TransferStartPrefix) {
		return "", false
	}
	return strings.TrimPrefix(line, TransferStartPrefix), true
}

// SinkOpener creates the destination for a received payload.
type SinkOpener func(name string) (io.WriteCloser, error)

// ProgressFunc observes payload progress after each chunk.
type ProgressFunc func(received, total int64)

// TransferResult describes a completed or failed receive.
type TransferResult struct {
	// Name is the name announced by the sender.
	Name string

	// Size is the declared payload size.
	Size int64

	// Received counts payload bytes read from the stream.
	Received int64

	// Saved is true when the entire payload reached the sink.
	Saved bool

	// SinkErr holds the error that prevented storing the payload.
	// The payload was still consumed from the stream.
	SinkErr error
}

// ReceiveTransfer completes a transfer whose start line (already read
// by the caller) announced name. It reads the size line, the payload,
// and the completion line. The payload is written to the sink returned
// by open; if open or a sink write fails the remaining payload is
// drained so the stream stays aligned, and the failure is reported in
// TransferResult.SinkErr rather than as an error.
func (c *Conn) ReceiveTransfer(name string, open SinkOpener, progress ProgressFunc) (TransferResult, error) {
	result := TransferResult{Name: name}

	header, err := c.ReceiveLine()
	if err != nil {
		return result, err
	}
	if header == TransferError {
		return result, ErrTransferRefused
	}
	if !strings.HasPrefix(header, TransferSizePrefix) {
		return result, fmt.Errorf("%w: expected size line, got %q", ErrProtocol, header)
	}
	size, err := strconv.ParseInt(strings.TrimPrefix(header, TransferSizePrefix), 10, 64)
	if err != nil || size < 0 {
		return result, fmt.Errorf("%w: invalid size line %q", ErrProtocol, header)
	}
	result.Size = size

	var sink io.WriteCloser
	if open != nil {
		sink, result.SinkErr = open(name)
	} else {
		result.SinkErr = errors.New("no sink configured")
	}

	buffer := make([]byte, c.chunk)
	for result.Received < size {
		want := int64(len(buffer))
		if remaining := size - result.Received; remaining < want {
			want = remaining
		}
		n, readErr := c.reader.Read(buffer[:want])
		if n > 0 {
			if sink != nil && result.SinkErr == nil {
				if _, writeErr := sink.Write(buffer[:n]); writeErr != nil {
					result.SinkErr = writeErr
				}
			}
			result.Received += int64(n)
			if progress != nil {
				progress(result.Received, size)
			}
		}
		if readErr != nil {
			if sink != nil {
				sink.Close()
			}
			if errors.Is(readErr, io.EOF) {
				return result, fmt.Errorf("%w: received %d of %d bytes", ErrShortTransfer, result.Received, size)
			}
			return result, fmt.Errorf("receiving %s payload: %w", name, readErr)
		}
	}

	if sink != nil {
		if closeErr := sink.Close(); closeErr != nil && result.SinkErr == nil {
			result.SinkErr = closeErr
		}
	}
	result.Saved = sink != nil && result.SinkErr == nil

	trailer, err := c.ReceiveLine()
	if err != nil {
		return result, err
	}
	if trailer != TransferComplete {
		return result, fmt.Errorf("%w: expected completion line, got %q", ErrProtocol, trailer)
	}
	return result, nil
}
