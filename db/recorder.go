package db

import (
	"context"
	"errors"

	"tradebull/game"
	"tradebull/metrics"
)

// Recorder persists what the round client observes and submits.
type Recorder interface {
	RecordSnapshot(ctx context.Context, snap *game.RoundSnapshot) error
	RecordCandles(ctx context.Context, roundID int64, candles []game.Candle) error
	RecordRound(ctx context.Context, round *RoundRecord) error
	RecordBet(ctx context.Context, bet *BetSubmission) error
}

// NoopRecorder is used when no store is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordSnapshot(context.Context, *game.RoundSnapshot) error { return nil }
func (n *NoopRecorder) RecordCandles(context.Context, int64, []game.Candle) error { return nil }
func (n *NoopRecorder) RecordRound(context.Context, *RoundRecord) error           { return nil }
func (n *NoopRecorder) RecordBet(context.Context, *BetSubmission) error           { return nil }

// StoreRecorder writes to the global Redis client and Postgres pool. Either may be
// unset, in which case its writes are skipped.
type StoreRecorder struct {
	metrics *metrics.Metrics
}

func NewStoreRecorder(m *metrics.Metrics) *StoreRecorder {
	if m == nil {
		m = metrics.NewNop()
	}
	return &StoreRecorder{metrics: m}
}

func (r *StoreRecorder) RecordSnapshot(ctx context.Context, snap *game.RoundSnapshot) error {
	return r.count("redis", StoreSnapshot(ctx, snap))
}

func (r *StoreRecorder) RecordCandles(ctx context.Context, roundID int64, candles []game.Candle) error {
	return r.count("redis", AppendRoundCandles(ctx, roundID, candles))
}

// RecordRound stores the round in Postgres and drops its Redis candle list.
func (r *StoreRecorder) RecordRound(ctx context.Context, round *RoundRecord) error {
	pgErr := r.count("postgres", StoreRoundHistory(ctx, round))
	if pgErr != nil || PostgresPool == nil {
		// keep the cached list as the only copy
		return pgErr
	}
	return r.count("redis", DeleteRoundCandles(ctx, round.RoundID))
}

func (r *StoreRecorder) RecordBet(ctx context.Context, bet *BetSubmission) error {
	return r.count("postgres", StoreBet(ctx, bet))
}

func (r *StoreRecorder) count(store string, err error) error {
	if err != nil && !errors.Is(err, context.Canceled) {
		r.metrics.StoreErrors.WithLabelValues(store).Inc()
	}
	return err
}
