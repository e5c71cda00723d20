package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"tradebull/config"
	"tradebull/game"
	"tradebull/metrics"
	"tradebull/state"
)

type fakeSource struct {
	items []game.HistoryItem
	err   error
	limit int
}

func (f *fakeSource) FetchHistory(_ context.Context, limit int) ([]game.HistoryItem, error) {
	f.limit = limit
	return f.items, f.err
}

func TestRefreshHistory(t *testing.T) {
	src := &fakeSource{items: []game.HistoryItem{{RoundID: 1}, {RoundID: 2}}}
	history := state.NewHistory()
	m := metrics.NewNop()
	s := NewScheduler(context.Background(), src, history, m, 30)

	if err := s.RefreshHistoryNow(); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if src.limit != config.HistoryLimit {
		t.Errorf("expected limit %d, got %d", config.HistoryLimit, src.limit)
	}
	if items, at := history.Items(); len(items) != 2 || at.IsZero() {
		t.Errorf("history not stored: %v", items)
	}

	src.err = errors.New("backend down")
	if err := s.RefreshHistoryNow(); err == nil {
		t.Error("expected refresh error")
	}
	if items, _ := history.Items(); len(items) != 2 {
		t.Error("failed refresh should keep the previous items")
	}
	if got := testutil.ToFloat64(m.HistoryRefreshes.WithLabelValues("error")); got != 1 {
		t.Errorf("expected 1 failed refresh, got %v", got)
	}
}

func TestRegisterAll(t *testing.T) {
	s := NewScheduler(context.Background(), &fakeSource{}, state.NewHistory(), nil, 30)

	if err := s.RegisterAll("not a cron", config.DefaultPruneCron); err == nil {
		t.Error("expected error for invalid history cron")
	}

	s = NewScheduler(context.Background(), &fakeSource{}, state.NewHistory(), nil, 30)
	if err := s.RegisterAll(config.DefaultHistoryCron, config.DefaultPruneCron); err != nil {
		t.Fatalf("RegisterAll failed: %v", err)
	}
	if n := len(s.Cron.Entries()); n != 2 {
		t.Errorf("expected 2 entries, got %d", n)
	}

	s = NewScheduler(context.Background(), &fakeSource{}, state.NewHistory(), nil, 0)
	if err := s.RegisterAll(config.DefaultHistoryCron, config.DefaultPruneCron); err != nil {
		t.Fatalf("RegisterAll failed: %v", err)
	}
	if n := len(s.Cron.Entries()); n != 1 {
		t.Errorf("prune should be skipped without retention, got %d entries", n)
	}
}

func TestPruneTask(t *testing.T) {
	m := metrics.NewNop()
	s := NewScheduler(context.Background(), &fakeSource{}, state.NewHistory(), m, 7)

	var gotDays int
	s.Prune = func(_ context.Context, days int) (int64, error) {
		gotDays = days
		return 0, errors.New("db gone")
	}
	s.pruneTask()

	if gotDays != 7 {
		t.Errorf("expected retention 7, got %d", gotDays)
	}
	if got := testutil.ToFloat64(m.StoreErrors.WithLabelValues("postgres")); got != 1 {
		t.Errorf("expected 1 store error, got %v", got)
	}
}
