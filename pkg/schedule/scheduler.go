// Package schedule runs periodic triage passes and ledger pruning in
// server mode.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/forge"
	"mercator-hq/ganymede/pkg/ledger"
	"mercator-hq/ganymede/pkg/policy/ast"
	"mercator-hq/ganymede/pkg/triage/processor"
)

// pruneSchedule is when ledger retention pruning runs.
const pruneSchedule = "0 3 * * *"

// MetricsRecorder counts triage runs. Nil disables instrumentation.
type MetricsRecorder interface {
	RunStarted(trigger string, dryRun bool)
}

// Config assembles a Scheduler.
type Config struct {
	// Schedule is the schedule section of the engine configuration.
	Schedule config.ScheduleConfig

	// RetentionDays prunes ledger entries older than this many days
	// every night. Zero disables pruning.
	RetentionDays int

	// Document supplies the current policy document, called per run so
	// a reloading source is picked up.
	Document func() *ast.Document

	// Processor runs the policy document.
	Processor *processor.Processor

	// Ledger is pruned per RetentionDays. Optional.
	Ledger ledger.Store

	// Metrics counts runs. Optional.
	Metrics MetricsRecorder

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Scheduler triggers triage runs on a cron schedule.
type Scheduler struct {
	cfg    Config
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	running bool
}

// New creates a Scheduler.
func New(cfg Config) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:    cfg,
		cron:   cron.New(),
		logger: logger.With("component", "schedule"),
	}
}

// Start registers the cron jobs and begins running them. It returns
// immediately; jobs stop when the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	if _, err := cron.ParseStandard(s.cfg.Schedule.Cron); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.cfg.Schedule.Cron, err)
	}

	if _, err := s.cron.AddFunc(s.cfg.Schedule.Cron, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("scheduled triage run failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("scheduling triage run: %w", err)
	}

	if s.cfg.RetentionDays > 0 && s.cfg.Ledger != nil {
		if _, err := s.cron.AddFunc(pruneSchedule, func() {
			s.prune(ctx)
		}); err != nil {
			return fmt.Errorf("scheduling ledger pruning: %w", err)
		}
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("scheduler started",
		"cron", s.cfg.Schedule.Cron,
		"source_type", s.cfg.Schedule.Source.Type,
		"source_id", s.cfg.Schedule.Source.ID,
		"dry_run", s.cfg.Schedule.DryRun,
		"retention_days", s.cfg.RetentionDays,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("scheduler stopped")
}

// RunOnce executes one full triage pass against the configured source.
func (s *Scheduler) RunOnce(ctx context.Context) (*processor.Result, error) {
	doc := s.cfg.Document()
	if doc == nil {
		return nil, fmt.Errorf("no policy document loaded")
	}

	st := forge.SourceType(s.cfg.Schedule.Source.Type)
	if !st.Valid() {
		return nil, fmt.Errorf("invalid source type %q", s.cfg.Schedule.Source.Type)
	}

	if s.cfg.Metrics != nil {
		s.cfg.Metrics.RunStarted("schedule", s.cfg.Schedule.DryRun)
	}

	return s.cfg.Processor.ProcessDocument(ctx, doc, st, s.cfg.Schedule.Source.ID, s.cfg.Schedule.DryRun)
}

// prune removes ledger entries older than the retention window.
func (s *Scheduler) prune(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -s.cfg.RetentionDays)
	removed, err := s.cfg.Ledger.Prune(ctx, cutoff)
	if err != nil {
		s.logger.Error("ledger pruning failed", "error", err)
		return
	}
	if removed > 0 {
		s.logger.Info("ledger pruned", "removed", removed, "cutoff", cutoff)
	}
}
