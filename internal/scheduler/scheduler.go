// Package scheduler runs cache consolidation on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/iammorganparry/clive/apps/semcache/internal/models"
)

// DefaultSchedule runs a consolidation cycle every ten minutes.
const DefaultSchedule = "@every 10m"

// parser accepts standard 5-field expressions and descriptors like @every.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Consolidator is the cache operation the scheduler drives.
type Consolidator interface {
	Consolidate() models.ConsolidationReport
}

// Scheduler invokes Consolidate on a schedule. A run that is still in
// progress when the next one is due causes that one to be skipped.
type Scheduler struct {
	cron    *cron.Cron
	entryID cron.EntryID
	target  Consolidator
	logger  *slog.Logger

	mu      sync.Mutex
	started bool
	stopped bool
}

// ValidateSchedule reports whether spec is a usable schedule.
func ValidateSchedule(spec string) error {
	if _, err := parser.Parse(spec); err != nil {
		return fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return nil
}

// New creates a stopped scheduler.
func New(spec string, target Consolidator, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}

	cl := cronLogger{logger: logger}
	s := &Scheduler{target: target, logger: logger}
	s.cron = cron.New(
		cron.WithParser(parser),
		cron.WithLogger(cl),
		cron.WithChain(cron.SkipIfStillRunning(cl), cron.Recover(cl)),
	)
	s.entryID = s.cron.Schedule(sched, cron.FuncJob(s.run))
	return s, nil
}

// Start begins scheduled runs. It is a no-op once stopped.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	s.cron.Start()
	s.logger.Info("consolidation scheduler started", "next_run", s.cron.Entry(s.entryID).Next)
}

// Stop prevents further runs and waits for a running one to finish or for
// ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("consolidation scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for running consolidation: %w", ctx.Err())
	}
}

// Next returns the next scheduled run, or the zero time if not started.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entryID).Next
}

// RunNow runs one consolidation synchronously, outside the schedule.
func (s *Scheduler) RunNow() models.ConsolidationReport {
	return s.target.Consolidate()
}

func (s *Scheduler) run() {
	started := time.Now()
	report := s.target.Consolidate()
	s.logger.Debug("scheduled consolidation finished",
		"decay_pass", report.DecayPass,
		"removed", report.Removed,
		"duration_ms", time.Since(started).Milliseconds(),
	)
}

// cronLogger routes the cron library's logging onto slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
