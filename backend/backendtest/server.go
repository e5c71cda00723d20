// Package backendtest provides an in-memory TradeBull backend for tests.
package backendtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"

	"tradebull/game"
)

// Server is a scriptable fake of the backend HTTP contract.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	snapshot   game.RoundSnapshot
	balances   map[string]float64
	bets       map[string]*game.BetRecord
	lastResult map[string]*game.LastResult
	history    []game.HistoryItem
	failSeries int

	// SeriesGate, when set, blocks /series until a value is received.
	SeriesGate chan struct{}

	SeriesCalls atomic.Int64
	BetCalls    atomic.Int64
}

// NewServer starts a fake backend. Close it with Server.Close.
func NewServer() *Server {
	s := &Server{
		snapshot:   game.RoundSnapshot{RoundID: 1, Phase: game.PhaseBet},
		balances:   make(map[string]float64),
		bets:       make(map[string]*game.BetRecord),
		lastResult: make(map[string]*game.LastResult),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/series", s.handleSeries)
	mux.HandleFunc("/init", s.handleInit)
	mux.HandleFunc("/mybet", s.handleMyBet)
	mux.HandleFunc("/bet", s.handleBet)
	mux.HandleFunc("/last_result", s.handleLastResult)
	mux.HandleFunc("/history", s.handleHistory)
	s.Server = httptest.NewServer(mux)
	return s
}

// SetSnapshot replaces the round snapshot served by /series.
func (s *Server) SetSnapshot(snap game.RoundSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap
}

// FailSeries makes the next n /series calls return 500.
func (s *Server) FailSeries(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSeries = n
}

// SetLastResult sets the /last_result payload for a user.
func (s *Server) SetLastResult(userID string, r *game.LastResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastResult[userID] = r
}

// SetHistory sets the /history items.
func (s *Server) SetHistory(items []game.HistoryItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = items
}

// Balance returns a user's balance.
func (s *Server) Balance(userID string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balanceLocked(userID)
}

func (s *Server) balanceLocked(userID string) float64 {
	b, ok := s.balances[userID]
	if !ok || b == 0 {
		b = 10
		s.balances[userID] = b
	}
	return b
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	s.SeriesCalls.Add(1)
	if s.SeriesGate != nil {
		select {
		case <-s.SeriesGate:
		case <-r.Context().Done():
			return
		}
	}

	s.mu.Lock()
	if s.failSeries > 0 {
		s.failSeries--
		s.mu.Unlock()
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	snap := s.snapshot
	snap.Points = append([]float64(nil), s.snapshot.Points...)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	s.mu.Lock()
	b := s.balanceLocked(userID)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"user_id": userID, "balance": b})
}

func (s *Server) handleMyBet(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	s.mu.Lock()
	bet := s.bets[userID]
	rid := s.snapshot.RoundID
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"round_id": rid, "bet": bet})
}

func (s *Server) handleBet(w http.ResponseWriter, r *http.Request) {
	s.BetCalls.Add(1)
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"detail": "Method Not Allowed"})
		return
	}

	var req struct {
		UserID    string    `json:"user_id"`
		Side      game.Side `json:"side"`
		Amount    float64   `json:"amount"`
		Insurance bool      `json:"insurance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot.Phase != game.PhaseBet {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Betting closed (phase is not BET)"})
		return
	}
	fee := 0.0
	if req.Insurance {
		fee = 0.5
	}
	b := s.balanceLocked(req.UserID)
	if b < req.Amount+fee {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Not enough balance"})
		return
	}
	s.balances[req.UserID] = b - req.Amount - fee
	bet := &game.BetRecord{Side: req.Side, Amount: req.Amount, Insurance: req.Insurance}
	s.bets[req.UserID] = bet

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":            true,
		"round_id":      s.snapshot.RoundID,
		"balance":       s.balances[req.UserID],
		"bet":           bet,
		"insurance_fee": fee,
	})
}

func (s *Server) handleLastResult(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	res := s.lastResult[r.URL.Query().Get("user_id")]
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"result": res})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	s.mu.Lock()
	items := append([]game.HistoryItem(nil), s.history...)
	s.mu.Unlock()
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
