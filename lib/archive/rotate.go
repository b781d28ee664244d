// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"filippo.io/age"

	"github.com/bureau-foundation/cdrbill/lib/clock"
)

// DirName is the archive directory created next to a rotated report.
const DirName = "archive"

// EncryptedExtension is appended to archives encrypted with age.
const EncryptedExtension = ".age"

// timestampLayout sorts lexically in time order.
const timestampLayout = "20060102T150405.000000000Z"

// Options configures a Rotator.
type Options struct {
	Compression Compression

	// Recipients are age X25519 public keys (age1...). Empty leaves
	// archives unencrypted.
	Recipients []string

	// Keep is the number of generations retained per report. Zero
	// means 1.
	Keep int

	Clock  clock.Clock
	Logger *slog.Logger
}

// Rotator archives reports before they are overwritten.
type Rotator struct {
	compression Compression
	recipients  []age.Recipient
	keep        int
	clock       clock.Clock
	logger      *slog.Logger
}

// NewRotator validates options and parses recipient keys.
func NewRotator(options Options) (*Rotator, error) {
	recipients := make([]age.Recipient, 0, len(options.Recipients))
	for _, key := range options.Recipients {
		recipient, err := age.ParseX25519Recipient(key)
		if err != nil {
			return nil, fmt.Errorf("parsing recipient key %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}
	if options.Compression > CompressionLZ4 {
		return nil, fmt.Errorf("unsupported compression: %d", options.Compression)
	}

	keep := options.Keep
	if keep <= 0 {
		keep = 1
	}
	rotator := &Rotator{
		compression: options.Compression,
		recipients:  recipients,
		keep:        keep,
		clock:       options.Clock,
		logger:      options.Logger,
	}
	if rotator.clock == nil {
		rotator.clock = clock.Real()
	}
	if rotator.logger == nil {
		rotator.logger = slog.New(slog.DiscardHandler)
	}
	return rotator, nil
}

// Rotate copies the report at path into the archive directory beside
// it and prunes old generations. A missing report is not an error:
// the first run of a workspace has nothing to keep. The report itself
// is left in place for the caller to overwrite.
func (r *Rotator) Rotate(path string) error {
	source, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening report: %w", err)
	}
	defer source.Close()

	directory := filepath.Join(filepath.Dir(path), DirName)
	if err := os.MkdirAll(directory, 0755); err != nil {
		return fmt.Errorf("creating archive directory: %w", err)
	}

	base := filepath.Base(path)
	name := base + "." + r.clock.Now().UTC().Format(timestampLayout) + r.compression.Extension()
	if len(r.recipients) > 0 {
		name += EncryptedExtension
	}
	destination := filepath.Join(directory, name)

	if err := r.write(destination, source); err != nil {
		return err
	}
	r.logger.Debug("report archived", "report", path, "archive", destination)

	return r.prune(directory, base)
}

// write streams source through compression and encryption into a
// temporary file, then renames it into place.
func (r *Rotator) write(destination string, source io.Reader) error {
	temporary, err := os.CreateTemp(filepath.Dir(destination), ".rotate-*")
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			temporary.Close()
			os.Remove(temporary.Name())
		}
	}()

	// Layers, outermost first: compressor -> encryptor -> file.
	var sealed io.WriteCloser = nopWriteCloser{temporary}
	if len(r.recipients) > 0 {
		sealed, err = age.Encrypt(temporary, r.recipients...)
		if err != nil {
			return fmt.Errorf("creating age encryptor: %w", err)
		}
	}
	compressor, err := compressWriter(sealed, r.compression)
	if err != nil {
		return err
	}

	if _, err := io.Copy(compressor, source); err != nil {
		return fmt.Errorf("writing archive: %w", err)
	}
	if err := compressor.Close(); err != nil {
		return fmt.Errorf("finalizing compression: %w", err)
	}
	if err := sealed.Close(); err != nil {
		return fmt.Errorf("finalizing age encryption: %w", err)
	}
	if err := temporary.Close(); err != nil {
		return fmt.Errorf("closing archive: %w", err)
	}
	if err := os.Rename(temporary.Name(), destination); err != nil {
		return fmt.Errorf("committing archive: %w", err)
	}
	committed = true
	return nil
}

// prune removes the oldest generations of base beyond r.keep.
func (r *Rotator) prune(directory, base string) error {
	generations, err := Generations(directory, base)
	if err != nil {
		return err
	}
	if len(generations) <= r.keep {
		return nil
	}
	var errs []error
	for _, name := range generations[:len(generations)-r.keep] {
		if err := os.Remove(filepath.Join(directory, name)); err != nil {
			errs = append(errs, err)
			continue
		}
		r.logger.Debug("archived report pruned", "archive", name)
	}
	return errors.Join(errs...)
}

// Generations lists the archived generations of the report named base
// in directory, oldest first.
func Generations(directory, base string) ([]string, error) {
	entries, err := os.ReadDir(directory)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing archive: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && strings.HasPrefix(entry.Name(), base+".") {
			names = append(names, entry.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// Open returns the decoded content of an archived report. Encrypted
// archives need a matching identity. The caller must close the
// result.
func Open(path string, identities ...age.Identity) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(path)
	var plain io.Reader = file
	if strings.HasSuffix(name, EncryptedExtension) {
		if len(identities) == 0 {
			file.Close()
			return nil, fmt.Errorf("%s is encrypted and no identity was given", name)
		}
		plain, err = age.Decrypt(file, identities...)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("decrypting %s: %w", name, err)
		}
		name = strings.TrimSuffix(name, EncryptedExtension)
	}

	compression, _ := compressionForExtension(filepath.Ext(name))
	reader, err := decompressReader(plain, compression)
	if err != nil {
		file.Close()
		return nil, err
	}
	return &archiveReader{ReadCloser: reader, file: file}, nil
}

type archiveReader struct {
	io.ReadCloser
	file *os.File
}

func (a *archiveReader) Close() error {
	return errors.Join(a.ReadCloser.Close(), a.file.Close())
}
