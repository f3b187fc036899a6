// Package worker runs dispatch jobs: one pass over a contact sheet that
// composes, sends and records a message per contact.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/mail-dispatcher/internal/contacts"
	"github.com/ignite/mail-dispatcher/internal/domain"
	"github.com/ignite/mail-dispatcher/internal/mailing"
	"github.com/ignite/mail-dispatcher/internal/pkg/logger"
	"github.com/ignite/mail-dispatcher/internal/progress"
	"github.com/ignite/mail-dispatcher/internal/segregation"
	"github.com/ignite/mail-dispatcher/internal/sending"
)

// ErrRunInProgress is returned when Run is called on a busy engine.
var ErrRunInProgress = errors.New("a dispatch run is already in progress")

// RunRecorder stores the summary of a finished run.
type RunRecorder interface {
	Record(ctx context.Context, summary *domain.RunSummary) error
}

// LedgerArchiver copies a run's ledger files somewhere durable.
type LedgerArchiver interface {
	Upload(ctx context.Context, runID string, ledgers []string) ([]string, error)
}

// Sleeper pauses between sends. It returns early with ctx's error.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// DispatchEngine drives a run through Idle, Initializing, Dispatching,
// Finalizing and then Done or Failed. Contacts are processed one at a time
// in source order; the channel session and the ledgers belong to the run.
type DispatchEngine struct {
	channel   sending.Channel
	creds     domain.Credentials
	selector  *mailing.Selector
	composer  *mailing.Composer
	sink      progress.Sink
	recorders []RunRecorder
	archiver  LedgerArchiver
	sleep     Sleeper
	now       func() time.Time
	newRunID  func() string

	mu    sync.RWMutex
	state domain.RunState
}

// Option configures a DispatchEngine.
type Option func(*DispatchEngine)

// WithSelector replaces the default process-random selector.
func WithSelector(s *mailing.Selector) Option {
	return func(e *DispatchEngine) { e.selector = s }
}

func WithComposer(c *mailing.Composer) Option {
	return func(e *DispatchEngine) { e.composer = c }
}

// WithSinks sets where progress is reported.
func WithSinks(sinks ...progress.Sink) Option {
	return func(e *DispatchEngine) { e.sink = progress.Multi(sinks) }
}

// WithRecorder adds a run history store. Recording failures are logged.
func WithRecorder(r RunRecorder) Option {
	return func(e *DispatchEngine) { e.recorders = append(e.recorders, r) }
}

// WithArchiver uploads the ledgers once they are closed.
func WithArchiver(a LedgerArchiver) Option {
	return func(e *DispatchEngine) { e.archiver = a }
}

func WithSleeper(s Sleeper) Option {
	return func(e *DispatchEngine) { e.sleep = s }
}

func WithClock(now func() time.Time) Option {
	return func(e *DispatchEngine) { e.now = now }
}

func WithRunIDs(gen func() string) Option {
	return func(e *DispatchEngine) { e.newRunID = gen }
}

// NewDispatchEngine creates an idle engine sending through channel with
// the given login.
func NewDispatchEngine(channel sending.Channel, creds domain.Credentials, opts ...Option) *DispatchEngine {
	e := &DispatchEngine{
		channel:  channel,
		creds:    creds,
		selector: mailing.NewSelector(nil),
		composer: mailing.NewComposer(),
		sink:     progress.Multi{},
		sleep:    sleepContext,
		now:      time.Now,
		newRunID: func() string { return uuid.New().String() },
		state:    domain.RunIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current run state. Safe to call from any goroutine.
func (e *DispatchEngine) State() domain.RunState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

func (e *DispatchEngine) setState(s domain.RunState) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
	logger.Debug("dispatch state changed", "state", string(s))
}

func (e *DispatchEngine) begin() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != domain.RunIdle && !e.state.IsTerminal() {
		return ErrRunInProgress
	}
	e.state = domain.RunInitializing
	return nil
}

// Run dispatches every contact of sheet with cfg. The summary is returned
// for finished and failed runs alike; err is the fatal error of a failed
// run. Per-contact delivery failures do not fail the run and are listed in
// the summary instead.
func (e *DispatchEngine) Run(ctx context.Context, cfg *domain.Configuration, sheet *domain.ContactSheet) (*domain.RunSummary, error) {
	return e.run(ctx, cfg, func() (*domain.ContactSheet, error) {
		if sheet == nil {
			return nil, &domain.MalformedSourceError{Reason: "no contact sheet"}
		}
		return sheet, nil
	})
}

// RunFile is Run with the contact file loaded during initialization. A
// missing ".csv" suffix is appended to path.
func (e *DispatchEngine) RunFile(ctx context.Context, cfg *domain.Configuration, path string) (*domain.RunSummary, error) {
	return e.run(ctx, cfg, func() (*domain.ContactSheet, error) {
		return contacts.Load(contacts.NormalizePath(path))
	})
}

type dispatchRun struct {
	cfg      *domain.Configuration
	sheet    *domain.ContactSheet
	resolved domain.ResolvedIndex
	emailCol int
	ledgers  *segregation.Segregator
	summary  *domain.RunSummary
}

func (e *DispatchEngine) run(ctx context.Context, cfg *domain.Configuration, load func() (*domain.ContactSheet, error)) (*domain.RunSummary, error) {
	if err := e.begin(); err != nil {
		return nil, err
	}

	summary := &domain.RunSummary{RunID: e.newRunID(), StartedAt: e.now()}
	logger.Info("dispatch run initializing", "run_id", summary.RunID)

	r, err := e.initialize(ctx, cfg, load, summary)
	if err != nil {
		return e.finish(ctx, summary, err)
	}

	e.setState(domain.RunDispatching)
	dispatchErr := e.dispatch(ctx, r)

	e.setState(domain.RunFinalizing)
	e.finalize(ctx, r)

	return e.finish(ctx, summary, dispatchErr)
}

// initialize validates, resolves, opens ledgers and authenticates, in that
// order, so nothing touches the disk before the inputs are known good and
// nothing is sent before every ledger exists.
func (e *DispatchEngine) initialize(ctx context.Context, cfg *domain.Configuration, load func() (*domain.ContactSheet, error), summary *domain.RunSummary) (*dispatchRun, error) {
	if cfg == nil {
		return nil, &domain.ConfigInvariantError{Field: "configuration", Reason: "missing"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sheet, err := load()
	if err != nil {
		return nil, err
	}
	summary.ContactsPath = sheet.Path
	summary.Total = len(sheet.Rows)

	resolved, err := mailing.ResolvePlaceholders(sheet.Header, cfg.Placeholders)
	if err != nil {
		return nil, err
	}
	if missing := mailing.UnresolvedNames(resolved, cfg.Placeholders); len(missing) > 0 {
		logger.Warn("placeholders without a column are left as is", "placeholders", missing)
	}

	ledgers, err := segregation.Open(cfg, sheet.Header)
	if err != nil {
		return nil, err
	}
	summary.Ledgers = ledgers.Paths()

	if err := e.channel.Authenticate(ctx, e.creds); err != nil {
		if cerr := ledgers.Close(); cerr != nil {
			logger.Error("closing ledgers after failed login", "error", cerr)
		}
		var authErr *domain.ChannelAuthenticationError
		if !errors.As(err, &authErr) {
			err = &domain.ChannelAuthenticationError{Channel: e.channel.Type(), Server: e.creds.Server, Err: err}
		}
		return nil, err
	}

	if err := e.sink.Start(ctx, summary.RunID, summary.Total); err != nil {
		logger.Warn("progress sink failed to start", "run_id", summary.RunID, "error", err)
	}

	return &dispatchRun{
		cfg:      cfg,
		sheet:    sheet,
		resolved: resolved,
		emailCol: resolved[cfg.EmailMappingIndex()],
		ledgers:  ledgers,
		summary:  summary,
	}, nil
}

func (e *DispatchEngine) dispatch(ctx context.Context, r *dispatchRun) error {
	rows := r.sheet.Rows
	for i, contact := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}

		attempt, failed := e.process(ctx, r, contact)
		r.summary.Processed++

		ev := progress.Event{
			RunID:     r.summary.RunID,
			Snapshot:  progress.Advance(r.summary.Processed, r.summary.Total),
			Recipient: attempt.Recipient,
			Sender:    attempt.Sender,
			Failed:    failed,
		}
		if err := e.sink.Report(ctx, ev); err != nil {
			logger.Warn("progress report failed", "run_id", r.summary.RunID, "error", err)
		}

		if i < len(rows)-1 && r.cfg.SendInterval > 0 {
			if err := e.sleep(ctx, r.cfg.SendInterval); err != nil {
				return err
			}
		}
	}
	return nil
}

// process handles one contact: select, compose, send, record. It reports
// whether delivery failed. The contact is recorded in its ledgers either
// way.
func (e *DispatchEngine) process(ctx context.Context, r *dispatchRun, contact domain.ContactRecord) (*domain.DispatchAttempt, bool) {
	tIdx := e.selector.SelectTemplate(r.cfg.Templates)
	sIdx := e.selector.SelectSender(r.cfg.SenderIdentities)
	sender := r.cfg.SenderIdentities[sIdx]

	attempt, err := e.composer.Compose(contact, r.resolved, r.cfg.Placeholders, r.cfg.Templates[tIdx], tIdx, sender, sIdx)
	if err != nil {
		attempt = &domain.DispatchAttempt{
			Contact:       contact,
			TemplateIndex: tIdx,
			SenderIndex:   sIdx,
			Sender:        sender,
			Recipient:     contact.Field(r.emailCol),
		}
	} else {
		var res *domain.SendResult
		res, err = e.channel.Send(ctx, attempt.Message())
		if err == nil {
			logger.Debug("email sent", "recipient", attempt.Recipient, "sender", sender, "message_id", res.MessageID)
		}
	}

	failed := err != nil
	if failed {
		derr := &domain.DeliveryError{Recipient: attempt.Recipient, Err: err}
		r.summary.Failures = append(r.summary.Failures, domain.DeliveryFailure{
			Line:      contact.Line,
			Recipient: attempt.Recipient,
			Sender:    sender,
			Error:     err.Error(),
		})
		logger.Warn("delivery failed", "run_id", r.summary.RunID, "line", contact.Line, "error", derr)
	} else {
		r.summary.Delivered++
	}

	if err := r.ledgers.Record(attempt); err != nil {
		r.summary.PartitionErrors++
		logger.Error("ledger append failed", "run_id", r.summary.RunID, "line", contact.Line, "error", err)
	}
	return attempt, failed
}

// finalize releases the run's resources. It runs after every dispatch,
// interrupted or not.
func (e *DispatchEngine) finalize(ctx context.Context, r *dispatchRun) {
	if err := r.ledgers.Close(); err != nil {
		r.summary.PartitionErrors++
		logger.Error("closing ledgers failed", "run_id", r.summary.RunID, "error", err)
	}
	if err := e.channel.Close(); err != nil {
		logger.Warn("closing mail channel failed", "run_id", r.summary.RunID, "error", err)
	}

	if e.archiver == nil || len(r.summary.Ledgers) == 0 {
		return
	}
	keys, err := e.archiver.Upload(context.WithoutCancel(ctx), r.summary.RunID, r.summary.Ledgers)
	if err != nil {
		logger.Error("ledger archive failed", "run_id", r.summary.RunID, "error", err)
		return
	}
	logger.Info("ledgers archived", "run_id", r.summary.RunID, "objects", len(keys))
}

func (e *DispatchEngine) finish(ctx context.Context, summary *domain.RunSummary, runErr error) (*domain.RunSummary, error) {
	summary.FinishedAt = e.now()
	summary.Duration = summary.FinishedAt.Sub(summary.StartedAt)
	summary.State = domain.RunDone
	if runErr != nil {
		summary.State = domain.RunFailed
		summary.Error = runErr.Error()
	}
	e.setState(summary.State)

	// The run is over; a cancelled ctx must not stop the bookkeeping.
	ctx = context.WithoutCancel(ctx)
	if err := e.sink.Finish(ctx, summary); err != nil {
		logger.Warn("progress sink failed to finish", "run_id", summary.RunID, "error", err)
	}
	for _, rec := range e.recorders {
		if err := rec.Record(ctx, summary); err != nil {
			logger.Error("recording run history failed", "run_id", summary.RunID, "error", err)
		}
	}

	if runErr != nil {
		logger.Error("dispatch run failed", "run_id", summary.RunID, "processed", summary.Processed,
			"total", summary.Total, "error", runErr)
		return summary, fmt.Errorf("run %s: %w", summary.RunID, runErr)
	}
	logger.Info("dispatch run done", "run_id", summary.RunID, "processed", summary.Processed,
		"delivered", summary.Delivered, "failed", summary.Failed(), "duration", summary.Duration.String())
	return summary, nil
}
