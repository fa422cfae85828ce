package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// OrphanStore deletes records whose parent no longer exists. Chapters of a
// removed course are left alone; they are deleted explicitly.
type OrphanStore interface {
	DeleteOrphanLessons(ctx context.Context) (int, error)
	DeleteOrphanSlides(ctx context.Context) (int, error)
	DeleteOrphanQuizzes(ctx context.Context) (int, error)
}

// Result counts the records removed by one sweep
type Result struct {
	Lessons int
	Slides  int
	Quizzes int
}

// Sweeper periodically removes content left behind by interrupted cascades
type Sweeper struct {
	store    OrphanStore
	schedule string
	cron     *cron.Cron

	// serializes sweeps started by the scheduler and by SweepOnce
	mu sync.Mutex
}

// NewSweeper creates a new sweeper. schedule is a cron spec, e.g. "@every 1h".
func NewSweeper(store OrphanStore, schedule string) *Sweeper {
	if schedule == "" {
		schedule = "@every 1h"
	}

	return &Sweeper{
		store:    store,
		schedule: schedule,
	}
}

// Start schedules the sweeper and runs one sweep immediately
func (s *Sweeper) Start(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(s.schedule, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("invalid sweeper schedule %q: %w", s.schedule, err)
	}
	s.cron = c

	slog.Info("orphan sweeper started", "schedule", s.schedule)

	go s.run(ctx)
	c.Start()
	return nil
}

// Stop halts the scheduler and waits for a running sweep
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	slog.Info("orphan sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.SweepOnce(ctx); err != nil {
		slog.Error("orphan sweep failed", "error", err)
	}
}

// SweepOnce deletes orphans top-down so that children of a removed parent
// are collected in the same pass.
func (s *Sweeper) SweepOnce(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slog.Debug("running orphan sweep")

	var res Result
	var err error

	if res.Lessons, err = s.store.DeleteOrphanLessons(ctx); err != nil {
		return res, fmt.Errorf("failed to delete orphan lessons: %w", err)
	}
	if res.Slides, err = s.store.DeleteOrphanSlides(ctx); err != nil {
		return res, fmt.Errorf("failed to delete orphan slides: %w", err)
	}
	if res.Quizzes, err = s.store.DeleteOrphanQuizzes(ctx); err != nil {
		return res, fmt.Errorf("failed to delete orphan quizzes: %w", err)
	}

	if res.Lessons+res.Slides+res.Quizzes > 0 {
		slog.Info("orphans deleted",
			"lessons", res.Lessons,
			"slides", res.Slides,
			"quizzes", res.Quizzes,
		)
	}

	return res, nil
}
