// Package scheduler fires one reminder batch per day at a fixed wall-clock
// time in a fixed timezone.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/studyping/studyping/internal/pkg/metrics"
	"github.com/studyping/studyping/internal/registry"
	"github.com/studyping/studyping/internal/reminder"
)

// Config holds scheduler settings.
type Config struct {
	Hour     int
	Minute   int
	Location *time.Location
}

// CycleRunner runs one subscriber cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context, input reminder.CycleInput) (*reminder.CycleResult, error)
}

// Scheduler drives the daily reminder batch.
type Scheduler struct {
	config   Config
	registry registry.Repository
	runner   CycleRunner

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a scheduler.
func New(config Config, reg registry.Repository, runner CycleRunner) *Scheduler {
	if config.Location == nil {
		config.Location = time.UTC
	}
	return &Scheduler{
		config:   config,
		registry: reg,
		runner:   runner,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the trigger loop.
func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("starting reminder scheduler",
		"hour", s.config.Hour,
		"minute", s.config.Minute,
		"timezone", s.config.Location.String(),
	)

	s.wg.Add(1)
	go s.run(ctx)
}

// Stop waits for the trigger loop (and any in-flight batch) to finish.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	slog.Info("reminder scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	for {
		next := nextFiring(time.Now(), s.config.Hour, s.config.Minute, s.config.Location)
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.stopCh:
			timer.Stop()
			return
		case <-timer.C:
			s.RunBatch(ctx)
		}
	}
}

// nextFiring returns the next occurrence of hour:minute in loc after now.
func nextFiring(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// BatchResult summarizes one batch run.
type BatchResult struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// RunBatch reads all active subscriptions and runs each subscriber's cycle
// concurrently. Cycles are isolated: one subscriber's failure is logged and
// counted, never aborting the rest of the batch. Also the entry point for
// the manual trigger endpoint.
func (s *Scheduler) RunBatch(ctx context.Context) BatchResult {
	subs, err := s.registry.GetActive(ctx)
	if err != nil {
		slog.Error("failed to read active subscriptions", "error", err)
		return BatchResult{}
	}

	metrics.ActiveSubscriptions.Set(float64(len(subs)))

	if len(subs) == 0 {
		slog.Info("reminder batch: no active subscriptions")
		return BatchResult{}
	}

	slog.Info("reminder batch starting", "subscriptions", len(subs))

	results := make([]error, len(subs))
	var wg sync.WaitGroup

	for i, sub := range subs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.runner.RunCycle(ctx, reminder.CycleInput{
				PhoneNumber:   sub.PhoneNumber,
				APIKey:        sub.APIKey,
				CanvasBaseURL: sub.CanvasBaseURL,
				DaysAhead:     sub.DaysAhead,
			})
			if err != nil {
				slog.Warn("subscriber cycle failed",
					"phone", sub.PhoneNumber,
					"error", err,
				)
			}
			results[i] = err
		}()
	}
	wg.Wait()

	batch := BatchResult{Total: len(subs)}
	for _, err := range results {
		if err != nil {
			batch.Failed++
		} else {
			batch.Succeeded++
		}
	}

	slog.Info("reminder batch completed",
		"total", batch.Total,
		"succeeded", batch.Succeeded,
		"failed", batch.Failed,
	)
	recordBatch(batch)

	return batch
}
