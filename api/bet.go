package api

import (
	"encoding/json"
	"log"
	"net/http"

	"tradebull/db"
	"tradebull/game"
	"tradebull/state"
)

/* =========================
   REQUEST / RESPONSE TYPES
========================= */

// PlaceBetRequest is the body of POST /api/bet
type PlaceBetRequest struct {
	Side      game.Side `json:"side"`
	Amount    float64   `json:"amount"`
	Insurance bool      `json:"insurance"`
}

// PlaceBetResponse is the outcome of a relayed bet
type PlaceBetResponse struct {
	Success bool            `json:"success"`
	Result  state.BetResult `json:"result"`
}

// BetsResponse lists the session user's bet submissions
type BetsResponse struct {
	Success bool                `json:"success"`
	Bets    []*db.BetSubmission `json:"bets"`
	Summary *db.BetSummary      `json:"summary,omitempty"`
}

/* =========================
   HTTP ENDPOINTS
========================= */

// HandlePlaceBet handles POST /api/bet
func (s *Server) HandlePlaceBet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.Bets == nil {
		sendError(w, http.StatusServiceUnavailable, "Betting unavailable")
		return
	}

	var req PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result := s.Bets.PlaceBet(r.Context(), req.Side, req.Amount, req.Insurance)
	status := http.StatusOK
	if !result.OK {
		// The backend's reason is in result.Message
		status = http.StatusBadRequest
	}
	sendJSON(w, status, PlaceBetResponse{Success: result.OK, Result: result})
}

// HandleGetBets handles GET /api/bets?limit=
func (s *Server) HandleGetBets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit, ok := parseLimit(r)
	if !ok {
		sendError(w, http.StatusBadRequest, "Invalid limit")
		return
	}

	ctx := r.Context()
	bets, err := db.GetRecentBets(ctx, s.UserID, limit)
	if err != nil {
		log.Printf("❌ Failed to get bets: %v", err)
		sendError(w, http.StatusInternalServerError, "Failed to retrieve bets")
		return
	}
	summary, err := db.GetBetSummary(ctx, s.UserID)
	if err != nil {
		log.Printf("⚠️  Failed to get bet summary: %v", err)
	}

	sendJSON(w, http.StatusOK, BetsResponse{Success: true, Bets: bets, Summary: summary})
}
