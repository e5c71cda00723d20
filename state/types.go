package state

import (
	"sync"
	"time"

	"tradebull/game"
)

// ==============================================================================
// SESSION STATE (read side shared with HTTP and WebSocket handlers)
// ==============================================================================
//
// The poller is the only writer. AggregatorState is NOT kept here: it lives in
// the poller and never leaves that goroutine. Readers always get copies.
//
// ==============================================================================

type Session struct {
	mu sync.RWMutex

	Status StatusView
	Render RenderState

	StartedAt time.Time
}

func NewSession(userID string) *Session {
	return &Session{
		Status: StatusView{
			UserID:      userID,
			Gold:        "—",
			BalanceText: "—",
			BetStatus:   game.BetStatusText(nil),
		},
		StartedAt: time.Now(),
	}
}

// ==============================================================================
// STATUS VIEW
// ==============================================================================

type StatusView struct {
	UserID      string     `json:"userId"`
	RoundID     int64      `json:"roundId"`
	Phase       game.Phase `json:"phase"`
	Timer       string     `json:"timer"`
	Gold        string     `json:"gold"`
	Balance     *float64   `json:"balance,omitempty"`
	BalanceText string     `json:"balanceText"`
	BetStatus   string     `json:"betStatus"`
	Message     string     `json:"message,omitempty"`
	LastResult  string     `json:"lastResult,omitempty"`
	LastError   string     `json:"lastError,omitempty"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (s *Session) ApplySnapshot(snap *game.RoundSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Status.RoundID = snap.RoundID
	s.Status.Phase = snap.Phase
	s.Status.Timer = game.TimerText(snap.Phase, snap.ServerMs, snap.StartMs, snap.EndMs)
	s.Status.Gold = game.GoldLabel(snap.GoldMult)
	s.Status.LastError = ""
	s.Status.UpdatedAt = time.Now()
}

func (s *Session) SetBalance(balance float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := balance
	s.Status.Balance = &v
	s.Status.BalanceText = game.FormatAmount(balance)
}

func (s *Session) SetBet(bet *game.BetRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status.BetStatus = game.BetStatusText(bet)
}

// SetMessage records the outcome of the latest user action.
func (s *Session) SetMessage(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status.Message = msg
}

func (s *Session) SetLastResult(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status.LastResult = text
}

func (s *Session) SetLastError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		s.Status.LastError = ""
		return
	}
	s.Status.LastError = err.Error()
}

func (s *Session) StatusSnapshot() StatusView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.Status
	if s.Status.Balance != nil {
		v := *s.Status.Balance
		out.Balance = &v
	}
	return out
}

// ==============================================================================
// RENDER STATE (candles emitted for the current round, replayed to late joiners)
// ==============================================================================

type RenderState struct {
	RoundID int64         `json:"roundId"`
	Candles []game.Candle `json:"candles"`
}

// ResetRender starts an empty candle series for a new round.
func (s *Session) ResetRender(roundID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Render = RenderState{
		RoundID: roundID,
		Candles: make([]game.Candle, 0, 32),
	}
}

// AppendCandles adds candles to the current round. Candles for another round are ignored.
func (s *Session) AppendCandles(roundID int64, candles []game.Candle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if roundID != s.Render.RoundID {
		return false
	}
	s.Render.Candles = append(s.Render.Candles, candles...)
	return true
}

func (s *Session) RenderSnapshot() RenderState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candles := make([]game.Candle, len(s.Render.Candles))
	copy(candles, s.Render.Candles)
	return RenderState{RoundID: s.Render.RoundID, Candles: candles}
}

// ==============================================================================
// BET RESULT (private reply to the client that submitted the bet)
// ==============================================================================

type BetResult struct {
	OK      bool     `json:"ok"`
	Message string   `json:"message"`
	RoundID int64    `json:"round_id,omitempty"`
	Balance *float64 `json:"balance,omitempty"`
}
