package game

// Phase is the stage of a round as reported by the backend.
// Unknown values are passed through untouched.
type Phase string

const (
	PhaseBet  Phase = "BET"
	PhaseRun  Phase = "RUN"
	PhaseDone Phase = "DONE"
)

// Side is the direction of a bet.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Valid reports whether the side is one the backend accepts.
func (s Side) Valid() bool {
	return s == SideLong || s == SideShort
}

// RoundSnapshot is one poll of GET /series.
type RoundSnapshot struct {
	RoundID  int64     `json:"round_id"`
	Phase    Phase     `json:"phase"`
	ServerMs int64     `json:"server_ms"`
	StartMs  int64     `json:"start_ms"`
	EndMs    int64     `json:"end_ms"`
	GoldMult float64   `json:"gold_mult,omitempty"`
	Points   []float64 `json:"points"`
}

// HasGold reports whether the round carries a special payout multiplier.
func (s *RoundSnapshot) HasGold() bool {
	return s.GoldMult > 0
}

// Candle is an OHLC summary of a fixed-size slice of points.
// Time is synthetic: one unit per candle, not wall clock.
type Candle struct {
	Time  int64   `json:"time"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// BetRecord is the caller's bet in the current round.
type BetRecord struct {
	Side      Side    `json:"side"`
	Amount    float64 `json:"amount"`
	Insurance bool    `json:"insurance"`
}

// LastResult is the settled outcome of the caller's most recent bet.
type LastResult struct {
	RoundID   int64   `json:"round_id"`
	Win       bool    `json:"win"`
	Payout    float64 `json:"payout"`
	GoldMult  float64 `json:"gold_mult"`
	Open      float64 `json:"open"`
	Close     float64 `json:"close"`
	Side      Side    `json:"side"`
	Amount    float64 `json:"amount"`
	Insurance bool    `json:"insurance"`
}

// HistoryItem is one settled round from GET /history.
type HistoryItem struct {
	RoundID  int64   `json:"round_id"`
	Open     float64 `json:"open"`
	Close    float64 `json:"close"`
	GoldMult float64 `json:"gold_mult"`
	TsMs     int64   `json:"ts_ms"`
}
