package cloudimport

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/apperr"

	"golang.org/x/sync/errgroup"
)

const downloadConcurrency = 4

// Summary counts what one poll did.
type Summary struct {
	Found      int
	Imported   int
	Duplicates int
	Failed     int
}

// Scheduler polls the recording API on a fixed interval.
type Scheduler struct {
	source   RecordingSource
	importer *Importer
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	cursor   time.Time
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewScheduler creates a scheduler that starts looking back lookback from now.
func NewScheduler(source RecordingSource, importer *Importer, interval, lookback time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		source:   source,
		importer: importer,
		interval: interval,
		logger:   logger.With("component", "cloudimport_scheduler"),
		cursor:   time.Now().Add(-lookback).UTC(),
		stopChan: make(chan struct{}),
	}
}

// Start begins the polling loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("cloud import scheduler started", "interval", s.interval)
	go func() {
		s.poll(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.poll(ctx)
			case <-ctx.Done():
				s.logger.Info("cloud import scheduler stopped", "reason", ctx.Err())
				return
			case <-s.stopChan:
				s.logger.Info("cloud import scheduler stopped")
				return
			}
		}
	}()
}

// Stop ends the polling loop.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// Cursor returns the start time the next poll lists from.
func (s *Scheduler) Cursor() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

func (s *Scheduler) poll(ctx context.Context) {
	summary, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.Error("cloud import poll failed", "error", err)
		return
	}
	if summary.Found > 0 {
		s.logger.Info("cloud import poll finished",
			"found", summary.Found, "imported", summary.Imported,
			"duplicates", summary.Duplicates, "failed", summary.Failed)
	}
}

// RunOnce lists recordings since the cursor and imports them with bounded
// concurrency. The cursor never moves past a recording that failed for a
// retryable reason, so it is picked up again on the next poll.
func (s *Scheduler) RunOnce(ctx context.Context) (Summary, error) {
	since := s.Cursor()
	recordings, err := s.source.ListRecordings(ctx, since)
	if err != nil {
		return Summary{}, err
	}

	var (
		mu         sync.Mutex
		summary    = Summary{Found: len(recordings)}
		oldestFail time.Time
		newest     = since
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(downloadConcurrency)
	for _, rec := range recordings {
		g.Go(func() error {
			result, err := s.importer.Import(gCtx, rec)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				if !errors.Is(err, apperr.ErrValidation) && (oldestFail.IsZero() || rec.StartTime.Before(oldestFail)) {
					oldestFail = rec.StartTime
				}
				s.logger.Warn("recording import failed", "meeting_id", rec.MeetingID, "error", err)
				return nil
			}
			if result.Duplicate {
				summary.Duplicates++
			} else {
				summary.Imported++
			}
			if rec.StartTime.After(newest) {
				newest = rec.StartTime
			}
			return nil
		})
	}
	_ = g.Wait()

	next := newest
	if !oldestFail.IsZero() && oldestFail.Before(next) {
		next = oldestFail
	}
	s.mu.Lock()
	if next.After(s.cursor) {
		s.cursor = next
	}
	s.mu.Unlock()
	return summary, nil
}
