// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"filippo.io/age"

	"github.com/bureau-foundation/cdrbill/lib/clock"
)

const reportText = "#Customers Data Base:\nCustomer ID: 1 (Operator A)\n"

func writeReport(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "CB.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func readArchive(t *testing.T, path string, identities ...age.Identity) string {
	t.Helper()
	reader, err := Open(path, identities...)
	if err != nil {
		t.Fatalf("Open(%s): %v", path, err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

func TestRotateRoundTrip(t *testing.T) {
	for _, compression := range []Compression{CompressionNone, CompressionZstd, CompressionLZ4} {
		t.Run(compression.String(), func(t *testing.T) {
			dir := t.TempDir()
			path := writeReport(t, dir, reportText)

			fake := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
			rotator, err := NewRotator(Options{Compression: compression, Keep: 3, Clock: fake})
			if err != nil {
				t.Fatalf("NewRotator: %v", err)
			}
			if err := rotator.Rotate(path); err != nil {
				t.Fatalf("Rotate: %v", err)
			}

			generations, err := Generations(filepath.Join(dir, DirName), "CB.txt")
			if err != nil {
				t.Fatalf("Generations: %v", err)
			}
			if len(generations) != 1 {
				t.Fatalf("generations = %v, want one", generations)
			}
			want := "CB.txt.20260301T120000.000000000Z" + compression.Extension()
			if generations[0] != want {
				t.Errorf("archive name = %q, want %q", generations[0], want)
			}

			if got := readArchive(t, filepath.Join(dir, DirName, generations[0])); got != reportText {
				t.Errorf("archived content = %q", got)
			}

			// The report stays in place for the caller to overwrite.
			if _, err := os.Stat(path); err != nil {
				t.Errorf("report removed by rotation: %v", err)
			}
		})
	}
}

func TestRotateEncrypted(t *testing.T) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatalf("GenerateX25519Identity: %v", err)
	}
	other, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatalf("GenerateX25519Identity: %v", err)
	}

	dir := t.TempDir()
	path := writeReport(t, dir, reportText)
	rotator, err := NewRotator(Options{
		Compression: CompressionZstd,
		Recipients:  []string{identity.Recipient().String()},
		Keep:        1,
	})
	if err != nil {
		t.Fatalf("NewRotator: %v", err)
	}
	if err := rotator.Rotate(path); err != nil {
		t.Fatalf("Rotate: %v", err)
	}

	generations, _ := Generations(filepath.Join(dir, DirName), "CB.txt")
	if len(generations) != 1 || !strings.HasSuffix(generations[0], ".zst.age") {
		t.Fatalf("generations = %v, want one .zst.age file", generations)
	}
	archived := filepath.Join(dir, DirName, generations[0])

	raw, err := os.ReadFile(archived)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.Contains(string(raw), "Customer ID") {
		t.Error("archive contains plaintext")
	}

	if _, err := Open(archived); err == nil {
		t.Error("Open without an identity succeeded")
	}
	if _, err := Open(archived, other); err == nil {
		t.Error("Open with the wrong identity succeeded")
	}
	if got := readArchive(t, archived, identity); got != reportText {
		t.Errorf("decrypted content = %q", got)
	}
}

func TestRotateKeepsNewestGenerations(t *testing.T) {
	dir := t.TempDir()
	fake := clock.Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	rotator, err := NewRotator(Options{Compression: CompressionNone, Keep: 2, Clock: fake})
	if err != nil {
		t.Fatalf("NewRotator: %v", err)
	}

	path := ""
	for _, content := range []string{"first\n", "second\n", "third\n"} {
		path = writeReport(t, dir, content)
		if err := rotator.Rotate(path); err != nil {
			t.Fatalf("Rotate: %v", err)
		}
		fake.Advance(time.Second)
	}

	generations, err := Generations(filepath.Join(dir, DirName), "CB.txt")
	if err != nil {
		t.Fatalf("Generations: %v", err)
	}
	if len(generations) != 2 {
		t.Fatalf("generations = %v, want 2", generations)
	}
	if got := readArchive(t, filepath.Join(dir, DirName, generations[0])); got != "second\n" {
		t.Errorf("oldest kept = %q, want second", got)
	}
	if got := readArchive(t, filepath.Join(dir, DirName, generations[1])); got != "third\n" {
		t.Errorf("newest kept = %q, want third", got)
	}
}

func TestRotateMissingReport(t *testing.T) {
	dir := t.TempDir()
	rotator, err := NewRotator(Options{Compression: CompressionZstd})
	if err != nil {
		t.Fatalf("NewRotator: %v", err)
	}
	if err := rotator.Rotate(filepath.Join(dir, "IOSB.txt")); err != nil {
		t.Fatalf("Rotate of a missing report: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, DirName)); !os.IsNotExist(err) {
		t.Errorf("archive directory created for a missing report: %v", err)
	}
}

func TestNewRotatorRejectsBadRecipient(t *testing.T) {
	if _, err := NewRotator(Options{Recipients: []string{"age1notakey"}}); err == nil {
		t.Error("NewRotator accepted a malformed recipient")
	}
}

func TestParseCompression(t *testing.T) {
	for _, compression := range []Compression{CompressionNone, CompressionZstd, CompressionLZ4} {
		parsed, err := ParseCompression(compression.String())
		if err != nil || parsed != compression {
			t.Errorf("ParseCompression(%q) = %v, %v", compression.String(), parsed, err)
		}
	}
	if _, err := ParseCompression("gzip"); err == nil {
		t.Error("ParseCompression accepted gzip")
	}
}
