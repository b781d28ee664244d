// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the stream compression of an archived report.
type Compression uint8

const (
	// CompressionNone stores the report as is.
	CompressionNone Compression = iota

	// CompressionZstd uses zstd at the default level. Reports are
	// repetitive text and compress well.
	CompressionZstd

	// CompressionLZ4 uses the lz4 frame format, trading ratio for
	// speed.
	CompressionLZ4
)

// String returns the configuration name of the compression.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

// Extension returns the file suffix for the compression.
func (c Compression) Extension() string {
	switch c {
	case CompressionZstd:
		return ".zst"
	case CompressionLZ4:
		return ".lz4"
	default:
		return ""
	}
}

// ParseCompression parses "none", "zstd", or "lz4".
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression: %q", name)
	}
}

// compressionForExtension maps a file suffix back to its compression.
func compressionForExtension(extension string) (Compression, bool) {
	switch extension {
	case ".zst":
		return CompressionZstd, true
	case ".lz4":
		return CompressionLZ4, true
	default:
		return CompressionNone, false
	}
}

// nopWriteCloser adapts a writer whose Close must not close the
// underlying stream.
type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// compressWriter wraps destination so that bytes written are
// compressed. Close flushes the compressor but does not close
// destination.
func compressWriter(destination io.Writer, compression Compression) (io.WriteCloser, error) {
	switch compression {
	case CompressionNone:
		return nopWriteCloser{destination}, nil
	case CompressionZstd:
		encoder, err := zstd.NewWriter(destination, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("zstd encoder: %w", err)
		}
		return encoder, nil
	case CompressionLZ4:
		return lz4.NewWriter(destination), nil
	default:
		return nil, fmt.Errorf("unsupported compression: %d", compression)
	}
}

// decompressReader wraps source so that reads return decompressed
// bytes.
func decompressReader(source io.Reader, compression Compression) (io.ReadCloser, error) {
	switch compression {
	case CompressionNone:
		return io.NopCloser(source), nil
	case CompressionZstd:
		decoder, err := zstd.NewReader(source)
		if err != nil {
			return nil, fmt.Errorf("zstd decoder: %w", err)
		}
		return decoder.IOReadCloser(), nil
	case CompressionLZ4:
		return io.NopCloser(lz4.NewReader(source)), nil
	default:
		return nil, fmt.Errorf("unsupported compression: %d", compression)
	}
}
