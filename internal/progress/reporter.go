// Package progress computes run progress and fans it out to sinks.
package progress

import (
	"context"
	"errors"

	"github.com/ignite/mail-dispatcher/internal/domain"
)

// Advance returns the snapshot for processed out of total contacts. A run
// with nothing to do is complete.
func Advance(processed, total int) domain.ProgressSnapshot {
	ratio := 1.0
	if total > 0 {
		ratio = float64(processed) / float64(total)
	}
	return domain.ProgressSnapshot{Processed: processed, Total: total, Ratio: ratio}
}

// Event is reported after every processed contact.
type Event struct {
	RunID     string
	Snapshot  domain.ProgressSnapshot
	Recipient string
	Sender    string
	Failed    bool
}

// Sink consumes progress. Sinks run on the dispatch loop and must not block
// for long.
type Sink interface {
	Start(ctx context.Context, runID string, total int) error
	Report(ctx context.Context, ev Event) error
	Finish(ctx context.Context, summary *domain.RunSummary) error
}

// Multi fans out to several sinks, collecting their errors.
type Multi []Sink

func (m Multi) Start(ctx context.Context, runID string, total int) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Start(ctx, runID, total))
	}
	return errors.Join(errs...)
}

func (m Multi) Report(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Report(ctx, ev))
	}
	return errors.Join(errs...)
}

func (m Multi) Finish(ctx context.Context, summary *domain.RunSummary) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Finish(ctx, summary))
	}
	return errors.Join(errs...)
}
