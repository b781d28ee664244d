// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package billing

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bureau-foundation/cdrbill/lib/codec"
	"github.com/bureau-foundation/cdrbill/lib/digest"
)

// ManifestName is the manifest file name inside a workspace.
const ManifestName = "run.cbor"

// ManifestVersion is incremented when Manifest changes incompatibly.
const ManifestVersion = 1

// Manifest records what a successful processing run produced.
type Manifest struct {
	Version    int           `cbor:"version"`
	Source     string        `cbor:"source"`
	StartedAt  time.Time     `cbor:"started_at"`
	FinishedAt time.Time     `cbor:"finished_at"`
	Customer   ReportSummary `cbor:"customer"`
	Operator   ReportSummary `cbor:"operator"`
}

// ReportSummary describes one generated report.
type ReportSummary struct {
	// Report is the report file name relative to the workspace.
	Report     string     `cbor:"report"`
	Digest     string     `cbor:"digest"`
	Bytes      int64      `cbor:"bytes"`
	Aggregates int        `cbor:"aggregates"`
	Stats      ParseStats `cbor:"stats"`
}

func summarize(pass PassOutcome) (ReportSummary, error) {
	hash, size, err := digest.File(pass.Result.Report)
	if err != nil {
		return ReportSummary{}, err
	}
	return ReportSummary{
		Report:     filepath.Base(pass.Result.Report),
		Digest:     hash.String(),
		Bytes:      size,
		Aggregates: pass.Result.Aggregates,
		Stats:      pass.Result.Stats,
	}, nil
}

func buildManifest(job Job, outcome Outcome, startedAt, finishedAt time.Time) (*Manifest, error) {
	customer, err := summarize(outcome.Customer)
	if err != nil {
		return nil, fmt.Errorf("summarizing customer report: %w", err)
	}
	operator, err := summarize(outcome.Operator)
	if err != nil {
		return nil, fmt.Errorf("summarizing operator report: %w", err)
	}
	return &Manifest{
		Version:    ManifestVersion,
		Source:     filepath.Base(job.Source),
		StartedAt:  startedAt.UTC(),
		FinishedAt: finishedAt.UTC(),
		Customer:   customer,
		Operator:   operator,
	}, nil
}

// WriteManifest atomically writes manifest to path.
func WriteManifest(path string, manifest *Manifest) error {
	data, err := codec.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	return writeFileAtomic(path, func(w *bufio.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// ReadManifest decodes the manifest at path.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var manifest Manifest
	if err := codec.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("decoding manifest %s: %w", path, err)
	}
	if manifest.Version != ManifestVersion {
		return nil, fmt.Errorf("manifest %s has version %d, want %d", path, manifest.Version, ManifestVersion)
	}
	return &manifest, nil
}

// Verify recomputes the digests of the reports next to the manifest
// and reports the first report whose content no longer matches.
func (m *Manifest) Verify(directory string) error {
	for _, summary := range []ReportSummary{m.Customer, m.Operator} {
		hash, _, err := digest.File(filepath.Join(directory, summary.Report))
		if err != nil {
			return err
		}
		if hash.String() != summary.Digest {
			return fmt.Errorf("%s changed since the run: digest %s, manifest has %s", summary.Report, hash, summary.Digest)
		}
	}
	return nil
}
