package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"tradebull/config"
	"tradebull/db"
	"tradebull/game"
	"tradebull/metrics"
	"tradebull/state"

	"github.com/robfig/cron/v3"
)

// HistorySource fetches settled-round history from the backend.
type HistorySource interface {
	FetchHistory(ctx context.Context, limit int) ([]game.HistoryItem, error)
}

// Scheduler manages the housekeeping cron tasks.
type Scheduler struct {
	Cron          *cron.Cron
	Source        HistorySource
	History       *state.History
	Metrics       *metrics.Metrics
	RetentionDays int
	Ctx           context.Context

	// Prune deletes rounds older than the retention window. Defaults to db.PruneRounds.
	Prune func(ctx context.Context, retentionDays int) (int64, error)
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, src HistorySource, history *state.History, m *metrics.Metrics, retentionDays int) *Scheduler {
	if m == nil {
		m = metrics.NewNop()
	}
	return &Scheduler{
		Cron:          cron.New(cron.WithSeconds()),
		Source:        src,
		History:       history,
		Metrics:       m,
		RetentionDays: retentionDays,
		Ctx:           ctx,
		Prune:         db.PruneRounds,
	}
}

// RegisterAll registers the history refresh and prune tasks.
func (s *Scheduler) RegisterAll(historyCron, pruneCron string) error {
	if _, err := s.Cron.AddFunc(historyCron, s.historyTask); err != nil {
		return fmt.Errorf("register history task: %w", err)
	}
	if s.RetentionDays > 0 {
		if _, err := s.Cron.AddFunc(pruneCron, s.pruneTask); err != nil {
			return fmt.Errorf("register prune task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("⏰ Scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("⏰ Scheduler stopped")
}

// RefreshHistoryNow runs the history refresh immediately.
func (s *Scheduler) RefreshHistoryNow() error {
	return s.refreshHistory()
}

func (s *Scheduler) historyTask() {
	if err := s.refreshHistory(); err != nil {
		log.Printf("⚠️  History refresh failed: %v", err)
	}
}

func (s *Scheduler) refreshHistory() error {
	ctx, cancel := context.WithTimeout(s.Ctx, config.BackendRequestTimeout)
	defer cancel()

	items, err := s.Source.FetchHistory(ctx, config.HistoryLimit)
	if err != nil {
		s.Metrics.HistoryRefreshes.WithLabelValues("error").Inc()
		return err
	}
	s.Metrics.HistoryRefreshes.WithLabelValues("ok").Inc()

	s.History.Set(items)
	if err := db.StoreHistory(ctx, items); err != nil {
		s.Metrics.StoreErrors.WithLabelValues("redis").Inc()
		log.Printf("⚠️  Failed to cache history: %v", err)
	}
	return nil
}

func (s *Scheduler) pruneTask() {
	ctx, cancel := context.WithTimeout(s.Ctx, 30*time.Second)
	defer cancel()

	if _, err := s.Prune(ctx, s.RetentionDays); err != nil {
		s.Metrics.StoreErrors.WithLabelValues("postgres").Inc()
		log.Printf("⚠️  Round prune failed: %v", err)
	}
}
