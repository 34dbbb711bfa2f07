// Package importsync re-imports a template document on a cron schedule.
package importsync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"zbx-import/internal/app"
	"zbx-import/internal/declarative"
)

// Runner imports a document. *app.App implements it.
type Runner interface {
	Run(ctx context.Context, req app.RunRequest) (*declarative.Plan, error)
}

// Outcome records the last sync run.
type Outcome struct {
	StartedAt time.Time
	Duration  time.Duration
	Summary   declarative.PlanSummary
	Err       error
}

// Scheduler imports a document file on a cron schedule. Runs never overlap;
// a tick that fires while the previous run is still going is skipped.
type Scheduler struct {
	cron     *cron.Cron
	runner   Runner
	file     string
	schedule string
	timeout  time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	entry cron.EntryID
	last  *Outcome
}

// NewScheduler creates a scheduler for file. timeout bounds each run; zero
// means no bound.
func NewScheduler(runner Runner, file, schedule string, timeout time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		runner:   runner,
		file:     file,
		schedule: schedule,
		timeout:  timeout,
		logger:   logger,
	}
}

// Start registers the schedule and starts the cron scheduler. Runs use a
// context derived from ctx, so cancelling ctx aborts an in-flight run.
func (s *Scheduler) Start(ctx context.Context) error {
	entry, err := s.cron.AddFunc(s.schedule, func() {
		_, _ = s.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", s.schedule, err)
	}

	s.mu.Lock()
	s.entry = entry
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("template sync scheduler started", "file", s.file, "schedule", s.schedule)
	return nil
}

// Stop stops the scheduler and waits for a running import to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("template sync scheduler stopped")
}

// Next returns the time of the next scheduled run, or the zero time before
// Start.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	entry := s.entry
	s.mu.Unlock()
	if entry == 0 {
		return time.Time{}
	}
	return s.cron.Entry(entry).Next
}

// LastOutcome returns the outcome of the most recent run, or nil.
func (s *Scheduler) LastOutcome() *Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// RunOnce loads the document and imports it.
func (s *Scheduler) RunOnce(ctx context.Context) (*Outcome, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	out := &Outcome{StartedAt: time.Now()}
	plan, err := s.run(ctx)
	out.Duration = time.Since(out.StartedAt)
	out.Err = err
	if plan != nil {
		out.Summary = plan.Summary()
	}

	s.mu.Lock()
	s.last = out
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("scheduled template sync failed",
			"file", s.file,
			"duration", out.Duration,
			"error", err,
		)
		return out, err
	}
	s.logger.Info("scheduled template sync finished",
		"file", s.file,
		"run_id", plan.RunID,
		"duration", out.Duration,
		"created", out.Summary.Creates,
		"updated", out.Summary.Updates,
		"skipped", out.Summary.Skips,
	)
	return out, nil
}

func (s *Scheduler) run(ctx context.Context) (*declarative.Plan, error) {
	doc, err := declarative.LoadFile(s.file, declarative.LoadOptions{})
	if err != nil {
		return nil, err
	}
	return s.runner.Run(ctx, app.RunRequest{Doc: doc})
}
