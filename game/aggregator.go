package game

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidState is returned when the caller's round/index bookkeeping is broken.
var ErrInvalidState = errors.New("invalid aggregator state")

// AggregatorState tracks how much of a round's series has been folded into candles.
// It belongs to exactly one round and is discarded on rollover.
type AggregatorState struct {
	RoundID        int64 `json:"roundId"`
	ConsumedCount  int   `json:"consumedCount"`
	LastCandleTime int64 `json:"lastCandleTime"`
}

// NewAggregatorState starts a round. The first candle gets time origin+1.
func NewAggregatorState(roundID, origin int64) *AggregatorState {
	return &AggregatorState{
		RoundID:        roundID,
		LastCandleTime: origin,
	}
}

// Aggregator turns a growing price series into fixed-size candles.
type Aggregator struct {
	pointsPerCandle int
}

// NewAggregator creates an aggregator folding pointsPerCandle points per candle.
func NewAggregator(pointsPerCandle int) (*Aggregator, error) {
	if pointsPerCandle <= 0 {
		return nil, fmt.Errorf("points per candle must be positive, got %d", pointsPerCandle)
	}
	return &Aggregator{pointsPerCandle: pointsPerCandle}, nil
}

// PointsPerCandle returns the configured slice size.
func (a *Aggregator) PointsPerCandle() int {
	return a.pointsPerCandle
}

// Advance emits the candles completed since consumed and returns the new consumed count.
// Trailing points that do not fill a whole candle are left for a later call, so an
// emitted candle never changes.
func (a *Aggregator) Advance(points []float64, consumed int, lastTime int64) ([]Candle, int, error) {
	n := a.pointsPerCandle
	if consumed < 0 {
		return nil, consumed, fmt.Errorf("%w: negative consumed count %d", ErrInvalidState, consumed)
	}
	if consumed%n != 0 {
		return nil, consumed, fmt.Errorf("%w: consumed count %d is not a multiple of %d", ErrInvalidState, consumed, n)
	}
	if consumed > len(points) {
		return nil, consumed, fmt.Errorf("%w: consumed count %d exceeds series length %d", ErrInvalidState, consumed, len(points))
	}

	usable := (len(points) / n) * n
	if usable <= consumed {
		return nil, consumed, nil
	}

	candles := make([]Candle, 0, (usable-consumed)/n)
	t := lastTime
	for start := consumed; start < usable; start += n {
		t++
		candles = append(candles, foldCandle(points[start:start+n], t))
	}

	return candles, usable, nil
}

// Apply advances st in place and returns the new candles.
func (a *Aggregator) Apply(st *AggregatorState, points []float64) ([]Candle, error) {
	candles, consumed, err := a.Advance(points, st.ConsumedCount, st.LastCandleTime)
	if err != nil {
		return nil, fmt.Errorf("round %d: %w", st.RoundID, err)
	}
	st.ConsumedCount = consumed
	if len(candles) > 0 {
		st.LastCandleTime = candles[len(candles)-1].Time
	}
	return candles, nil
}

func foldCandle(slice []float64, t int64) Candle {
	c := Candle{
		Time:  t,
		Open:  slice[0],
		High:  slice[0],
		Low:   slice[0],
		Close: slice[len(slice)-1],
	}
	for _, p := range slice[1:] {
		c.High = math.Max(c.High, p)
		c.Low = math.Min(c.Low, p)
	}
	return c
}
