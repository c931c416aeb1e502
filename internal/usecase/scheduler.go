package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/config"
	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/domain"
	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/ports"
)

const scheduledRunsPreview = 3

// BatchRunner abstracts the orchestrator so the scheduler can be tested with
// a fake batch.
type BatchRunner interface {
	RunBatch(ctx context.Context, feeds []config.FeedConfig) (*domain.BatchSummary, error)
}

// SchedulerDeps wires the scheduler's collaborators.
type SchedulerDeps struct {
	Runner BatchRunner
	Store  ports.ScheduleStore
	Feeds  []config.FeedConfig
	Logger *slog.Logger
	Now    func() time.Time

	IntervalMinutes int
	Enabled         bool
}

// Scheduler owns the schedule state singleton and enforces single-flight:
// at most one batch runs at any time, and a manual trigger during a run is
// rejected, never queued.
type Scheduler struct {
	runner BatchRunner
	store  ports.ScheduleStore
	feeds  []config.FeedConfig
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	running bool
	state   domain.ScheduleState

	wake chan struct{}
}

// NewScheduler builds the scheduler with defaults; call Init before Start.
func NewScheduler(deps SchedulerDeps) *Scheduler {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := deps.IntervalMinutes
	if interval <= 0 {
		interval = 30
	}
	return &Scheduler{
		runner: deps.Runner,
		store:  deps.Store,
		feeds:  deps.Feeds,
		logger: logger,
		now:    now,
		state: domain.ScheduleState{
			Enabled:         deps.Enabled,
			IntervalMinutes: interval,
		},
		wake: make(chan struct{}, 1),
	}
}

// Init restores persisted schedule state (run history survives restarts) and
// computes the first NextRunAt.
func (s *Scheduler) Init(ctx context.Context) error {
	if s.store != nil {
		loaded, err := s.store.LoadSchedule(ctx)
		if err != nil {
			return fmt.Errorf("load schedule state: %w", err)
		}
		if loaded != nil {
			s.mu.Lock()
			s.state.RunHistory = loaded.RunHistory
			if loaded.IntervalMinutes > 0 {
				s.state.IntervalMinutes = loaded.IntervalMinutes
			}
			s.state.Enabled = loaded.Enabled
			s.mu.Unlock()
		}
	}

	s.mu.Lock()
	s.state.NextRunAt = s.now().Add(s.state.Interval())
	s.refreshPreviewLocked()
	s.mu.Unlock()
	return nil
}

// Start launches the timer loop; it returns when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	for {
		s.mu.Lock()
		next := s.state.NextRunAt
		s.mu.Unlock()

		wait := time.Until(next)
		if wait < 0 {
			wait = 0
		}

		select {
		case <-ctx.Done():
			return
		case <-s.wake:
			continue
		case <-time.After(wait):
		}

		s.mu.Lock()
		enabled := s.state.Enabled
		s.mu.Unlock()

		if !enabled {
			// Keep NextRunAt moving forward while disabled.
			s.mu.Lock()
			s.state.NextRunAt = s.now().Add(s.state.Interval())
			s.refreshPreviewLocked()
			s.mu.Unlock()
			continue
		}

		if _, err := s.runOnce(ctx, "scheduled", nil); err != nil {
			if errors.Is(err, domain.ErrAlreadyRunning) {
				// A manual run holds the slot and NextRunAt is already
				// due; park until the run completes and pokes the wake
				// channel instead of retrying with zero wait.
				select {
				case <-ctx.Done():
					return
				case <-s.wake:
				}
				continue
			}
			s.logger.Warn("scheduled run finished with error", "error", err)
		}
	}
}

// TriggerNow starts a batch immediately. While a run is in flight it returns
// domain.ErrAlreadyRunning instead of queueing a second one.
func (s *Scheduler) TriggerNow(ctx context.Context) (*domain.BatchSummary, error) {
	return s.runOnce(ctx, "manual", nil)
}

// ResetAndIngest runs prep (typically the administrative bulk delete) and one
// immediate batch under the same single-flight slot, so the reset can never
// race a batch already writing articles.
func (s *Scheduler) ResetAndIngest(ctx context.Context, prep func(context.Context) error) (*domain.BatchSummary, error) {
	return s.runOnce(ctx, "reset", prep)
}

func (s *Scheduler) runOnce(ctx context.Context, trigger string, prep func(context.Context) error) (*domain.BatchSummary, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, domain.ErrAlreadyRunning
	}
	s.running = true
	rec := domain.RunRecord{StartedAt: s.now()}
	rec.AppendLog(fmt.Sprintf("run started (%s)", trigger))
	s.mu.Unlock()

	s.logger.Info("batch run started", "trigger", trigger)

	var (
		summary *domain.BatchSummary
		err     error
	)
	if prep != nil {
		err = prep(ctx)
	}
	if err == nil {
		summary, err = s.runner.RunBatch(ctx, s.feeds)
	}

	s.mu.Lock()
	finished := s.now()
	rec.FinishedAt = &finished
	rec.Result = classifyRun(summary, err)

	if err != nil {
		msg := err.Error()
		rec.Error = &msg
		rec.AppendLog("run failed: " + msg)
	}
	if summary != nil {
		rec.AppendLog(fmt.Sprintf("accepted=%d duplicates=%d failures=%d",
			summary.Accepted, summary.Duplicates, summary.Failures))
		for feed, msg := range summary.PerFeedErrors {
			rec.AppendLog(fmt.Sprintf("feed %s: %s", feed, msg))
		}
	}

	s.state.PushRun(rec)
	s.state.NextRunAt = finished.Add(s.state.Interval())
	s.refreshPreviewLocked()
	s.running = false
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	s.poke()
	return summary, err
}

// classifyRun maps a batch outcome to a run result. Any lost candidate makes
// the run partial, even when nothing was accepted: the batch did execute, so
// only a whole-run error counts as failed.
func classifyRun(summary *domain.BatchSummary, err error) domain.RunResult {
	switch {
	case err != nil:
		return domain.RunFailed
	case summary != nil && summary.Failures > 0:
		return domain.RunPartial
	default:
		return domain.RunSuccess
	}
}

// Snapshot returns a copy of the schedule state for the status surface.
func (s *Scheduler) Snapshot() domain.ScheduleState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Scheduler) snapshotLocked() domain.ScheduleState {
	snap := s.state
	snap.RunHistory = append([]domain.RunRecord(nil), s.state.RunHistory...)
	snap.ScheduledRuns = append([]time.Time(nil), s.state.ScheduledRuns...)
	return snap
}

// SetInterval changes the cadence. NextRunAt recomputes from the last
// finished run with the new interval; a run already in flight is untouched.
func (s *Scheduler) SetInterval(ctx context.Context, minutes int) error {
	if minutes <= 0 {
		return fmt.Errorf("interval must be positive, got %d", minutes)
	}

	s.mu.Lock()
	s.state.IntervalMinutes = minutes
	base := s.now()
	if len(s.state.RunHistory) > 0 && s.state.RunHistory[0].FinishedAt != nil {
		base = *s.state.RunHistory[0].FinishedAt
	}
	s.state.NextRunAt = base.Add(s.state.Interval())
	s.refreshPreviewLocked()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	s.poke()
	return nil
}

// SetEnabled toggles scheduling; it never interrupts a run in flight.
func (s *Scheduler) SetEnabled(ctx context.Context, enabled bool) error {
	s.mu.Lock()
	s.state.Enabled = enabled
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	s.poke()
	return nil
}

func (s *Scheduler) refreshPreviewLocked() {
	interval := s.state.Interval()
	preview := make([]time.Time, 0, scheduledRunsPreview)
	for i := 0; i < scheduledRunsPreview; i++ {
		preview = append(preview, s.state.NextRunAt.Add(time.Duration(i)*interval))
	}
	s.state.ScheduledRuns = preview
}

// persist writes the state snapshot; a storage hiccup only degrades
// observability and is logged, never propagated into the pipeline.
func (s *Scheduler) persist(ctx context.Context, snapshot domain.ScheduleState) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveSchedule(ctx, &snapshot); err != nil {
		s.logger.Warn("persist schedule state failed", "error", err)
	}
}

// poke nudges the timer loop to pick up a changed NextRunAt.
func (s *Scheduler) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
