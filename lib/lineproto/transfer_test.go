// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lineproto

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

type bufferSink struct {
	bytes.Buffer
	closed bool
}

func (s *bufferSink) Close() error {
	s.closed = true
	return nil
}

// sendTransfer runs SendFile into a buffer followed by a trailing
// line, and returns the wire bytes.
func sendTransfer(t *testing.T, name string, payload []byte, chunk int) string {
	t.Helper()
	conn, output := newTestConn("", Options{ChunkSize: chunk})
	if err := conn.SendFile(name, bytes.NewReader(payload), int64(len(payload))); err != nil {
		t.Fatalf("SendFile: %v", err)
	}
	if err := conn.SendLine("Operation completed. Disconnecting..."); err != nil {
		t.Fatalf("SendLine: %v", err)
	}
	return output.String()
}

// receiveStart reads and parses the start line.
func receiveStart(t *testing.T, conn *Conn) string {
	t.Helper()
	line, err := conn.ReceiveLine()
	if err != nil {
		t.Fatalf("reading start line: %v", err)
	}
	name, ok := ParseTransferStart(line)
	if !ok {
		t.Fatalf("start line = %q, want %s prefix", line, TransferStartPrefix)
	}
	return name
}

func TestTransferRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("Operator Brand: Vodafone (22210)\n"), 20)
	wire := sendTransfer(t, "IOSB.txt", payload, 16)

	conn, _ := newTestConn(wire, Options{ChunkSize: 16})
	name := receiveStart(t, conn)
	if name != "IOSB.txt" {
		t.Errorf("name = %q", name)
	}

	sink := &bufferSink{}
	var lastReceived, lastTotal int64
	calls := 0
	result, err := conn.ReceiveTransfer(name,
		func(string) (io.WriteCloser, error) { return sink, nil },
		func(received, total int64) {
			if received < lastReceived {
				t.Errorf("progress went backwards: %d after %d", received, lastReceived)
			}
			lastReceived, lastTotal = received, total
			calls++
		})
	if err != nil {
		t.Fatalf("ReceiveTransfer: %v", err)
	}
	if !result.Saved || result.SinkErr != nil {
		t.Errorf("result = %+v, want saved", result)
	}
	if result.Size != int64(len(payload)) || result.Received != result.Size {
		t.Errorf("size/received = %d/%d, want %d", result.Size, result.Received, len(payload))
	}
	if !bytes.Equal(sink.Bytes(), payload) {
		t.Error("received payload differs from sent payload")
	}
	if !sink.closed {
		t.Error("sink was not closed")
	}
	if calls == 0 || lastReceived != lastTotal {
		t.Errorf("progress calls = %d, final %d/%d", calls, lastReceived, lastTotal)
	}

	next, err := conn.ReceiveLine()
	if err != nil || next != "Operation completed. Disconnecting..." {
		t.Errorf("line after transfer = %q, %v", next, err)
	}
}

func TestTransferZeroBytes(t *testing.T) {
	wire := sendTransfer(t, "CB.txt", nil, 0)
	if !strings.Contains(wire, "FILE_SIZE:0\nFILE_TRANSFER_COMPLETE\n") {
		t.Fatalf("wire = %q, want zero size followed directly by completion", wire)
	}

	conn, _ := newTestConn(wire, Options{})
	name := receiveStart(t, conn)
	sink := &bufferSink{}
	result, err := conn.ReceiveTransfer(name, func(string) (io.WriteCloser, error) { return sink, nil }, nil)
	if err != nil {
		t.Fatalf("ReceiveTransfer: %v", err)
	}
	if !result.Saved || sink.Len() != 0 {
		t.Errorf("result = %+v, sink has %d bytes", result, sink.Len())
	}
}

func TestTransferDrainsWhenSinkUnavailable(t *testing.T) {
	payload := []byte(strings.Repeat("x", 100))
	wire := sendTransfer(t, "CB.txt", payload, 32)

	conn, _ := newTestConn(wire, Options{ChunkSize: 32})
	name := receiveStart(t, conn)
	openErr := errors.New("read-only file system")
	result, err := conn.ReceiveTransfer(name, func(string) (io.WriteCloser, error) { return nil, openErr }, nil)
	if err != nil {
		t.Fatalf("ReceiveTransfer: %v", err)
	}
	if result.Saved {
		t.Error("Saved = true without a sink")
	}
	if !errors.Is(result.SinkErr, openErr) {
		t.Errorf("SinkErr = %v, want %v", result.SinkErr, openErr)
	}
	if result.Received != 100 {
		t.Errorf("drained %d bytes, want 100", result.Received)
	}

	next, err := conn.ReceiveLine()
	if err != nil || next != "Operation completed. Disconnecting..." {
		t.Errorf("stream misaligned after drain: %q, %v", next, err)
	}
}

func TestTransferShortPayload(t *testing.T) {
	wire := TransferStartPrefix + "CB.txt\n" + TransferSizePrefix + "10\nabcd"
	conn, _ := newTestConn(wire, Options{})
	name := receiveStart(t, conn)

	sink := &bufferSink{}
	result, err := conn.ReceiveTransfer(name, func(string) (io.WriteCloser, error) { return sink, nil }, nil)
	if !errors.Is(err, ErrShortTransfer) {
		t.Fatalf("err = %v, want ErrShortTransfer", err)
	}
	if result.Received != 4 || result.Saved {
		t.Errorf("result = %+v, want 4 bytes unsaved", result)
	}
	if !sink.closed {
		t.Error("sink left open after short transfer")
	}
}

func TestTransferRefused(t *testing.T) {
	conn, output := newTestConn("", Options{})
	if err := conn.SendTransferError("IOSB.txt"); err != nil {
		t.Fatalf("SendTransferError: %v", err)
	}

	receiver, _ := newTestConn(output.String(), Options{})
	name := receiveStart(t, receiver)
	opened := false
	_, err := receiver.ReceiveTransfer(name, func(string) (io.WriteCloser, error) {
		opened = true
		return &bufferSink{}, nil
	}, nil)
	if !errors.Is(err, ErrTransferRefused) {
		t.Fatalf("err = %v, want ErrTransferRefused", err)
	}
	if opened {
		t.Error("sink opened for a refused transfer")
	}
}

func TestTransferMalformedSizeLine(t *testing.T) {
	for _, header := range []string{"FILE_SIZE:-3", "FILE_SIZE:ten", "hello"} {
		conn, _ := newTestConn(TransferStartPrefix+"CB.txt\n"+header+"\n", Options{})
		name := receiveStart(t, conn)
		if _, err := conn.ReceiveTransfer(name, nil, nil); !errors.Is(err, ErrProtocol) {
			t.Errorf("header %q: err = %v, want ErrProtocol", header, err)
		}
	}
}

func TestSendFileShortSource(t *testing.T) {
	conn, _ := newTestConn("", Options{})
	err := conn.SendFile("CB.txt", strings.NewReader("abc"), 10)
	if !errors.Is(err, ErrShortTransfer) {
		t.Fatalf("err = %v, want ErrShortTransfer", err)
	}
}
