// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/cdrbill/lib/clock"
)

// Progress notifications sent through the Notifier.
const (
	StartedMessage   = "Processing CDR data: started..."
	CompletedMessage = "Processing CDR data: completed."
)

// ErrStartFailed reports that a pass could not be launched.
var ErrStartFailed = errors.New("failed to start processing task")

// Notifier delivers a progress line to the requester. An error from
// the notifier is a transport failure and aborts Process after any
// started passes have been joined.
type Notifier func(message string) error

// Spawner launches task concurrently. The default starts a goroutine
// and never fails; a Spawner that admits a bounded number of tasks may
// refuse.
type Spawner func(task func()) error

// GoSpawner runs each task on a new goroutine.
func GoSpawner(task func()) error {
	go task()
	return nil
}

// Rotator preserves the current content of a report before a pass
// replaces it.
type Rotator interface {
	Rotate(path string) error
}

// Job names the files of one processing run.
type Job struct {
	Source         string
	CustomerReport string
	OperatorReport string

	// Manifest is where the run manifest is written. Empty disables
	// the manifest.
	Manifest string
}

// PassOutcome is the result of one pass within a run.
type PassOutcome struct {
	Name    string
	Started bool
	Result  PassResult
	Err     error
}

// Outcome is the result of a processing run.
type Outcome struct {
	Customer PassOutcome
	Operator PassOutcome

	// Manifest is set when both passes succeeded.
	Manifest *Manifest
}

// Err joins the start and pass failures of the run, or returns nil if
// both passes completed.
func (o Outcome) Err() error {
	var errs []error
	for _, pass := range []PassOutcome{o.Customer, o.Operator} {
		if pass.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", pass.Name, pass.Err))
		}
	}
	return errors.Join(errs...)
}

// Coordinator runs the customer and operator passes concurrently.
type Coordinator struct {
	Customer Pass
	Operator Pass

	// Spawn launches each pass. Nil uses GoSpawner.
	Spawn Spawner

	// Rotator, if set, is called for each existing report before the
	// passes start. Rotation failures are logged and do not stop the
	// run.
	Rotator Rotator

	Clock  clock.Clock
	Logger *slog.Logger
}

// Process runs both passes over job.Source. It sends StartedMessage
// before launching anything and CompletedMessage after both passes
// have finished. If the second pass cannot be started, the first is
// still awaited before Process returns.
//
// The returned error is non-nil only when the notifier fails. Pass
// failures, including start failures, are reported to the notifier and
// recorded in the Outcome.
func (c *Coordinator) Process(ctx context.Context, job Job, notify Notifier) (Outcome, error) {
	outcome := Outcome{
		Customer: PassOutcome{Name: c.Customer.Name()},
		Operator: PassOutcome{Name: c.Operator.Name()},
	}
	logger := c.logger().With("source", job.Source)
	startedAt := c.clock().Now()

	if err := notify(StartedMessage); err != nil {
		return outcome, err
	}

	if c.Rotator != nil {
		for _, report := range []string{job.CustomerReport, job.OperatorReport} {
			if err := c.Rotator.Rotate(report); err != nil {
				logger.Warn("rotating previous report failed", "report", report, "error", err)
			}
		}
	}

	spawn := c.Spawn
	if spawn == nil {
		spawn = GoSpawner
	}

	var group sync.WaitGroup
	launch := func(pass Pass, report string, into *PassOutcome) error {
		group.Add(1)
		err := spawn(func() {
			defer group.Done()
			into.Result, into.Err = pass.Run(ctx, job.Source, report)
		})
		if err != nil {
			group.Done()
			into.Err = fmt.Errorf("%w: %w", ErrStartFailed, err)
			logger.Error("starting pass failed", "pass", pass.Name(), "error", err)
			return err
		}
		into.Started = true
		return nil
	}

	var notifyErr error
	if err := launch(c.Customer, job.CustomerReport, &outcome.Customer); err != nil {
		notifyErr = notify("Error: failed to start " + c.Customer.Name() + " processing thread")
		return outcome, notifyErr
	}
	if err := launch(c.Operator, job.OperatorReport, &outcome.Operator); err != nil {
		notifyErr = notify("Error: failed to start " + c.Operator.Name() + " processing thread")
		group.Wait()
		return outcome, notifyErr
	}
	group.Wait()

	for _, pass := range []*PassOutcome{&outcome.Customer, &outcome.Operator} {
		if pass.Err == nil {
			continue
		}
		logger.Error("processing pass failed", "pass", pass.Name, "error", pass.Err)
		reason := "processing failed"
		if errors.Is(pass.Err, ErrSourceUnavailable) {
			reason = "CDR source file could not be opened"
		}
		if err := notify("Error: " + pass.Name + " " + reason + "."); err != nil {
			return outcome, err
		}
	}

	if outcome.Err() == nil && job.Manifest != "" {
		manifest, err := buildManifest(job, outcome, startedAt, c.clock().Now())
		if err == nil {
			err = WriteManifest(job.Manifest, manifest)
		}
		if err != nil {
			logger.Warn("writing run manifest failed", "manifest", job.Manifest, "error", err)
		} else {
			outcome.Manifest = manifest
		}
	}

	if err := notify(CompletedMessage); err != nil {
		return outcome, err
	}
	return outcome, nil
}

func (c *Coordinator) clock() clock.Clock {
	if c.Clock == nil {
		return clock.Real()
	}
	return c.Clock
}

func (c *Coordinator) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}
