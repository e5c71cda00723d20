package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"tradebull/db"
	"tradebull/game"
)

/* =========================
   RESPONSE TYPES
========================= */

// RoundsResponse lists recently completed rounds
type RoundsResponse struct {
	Success bool              `json:"success"`
	Rounds  []*db.RoundRecord `json:"rounds"`
}

// RoundDetailResponse carries one round's candles
type RoundDetailResponse struct {
	Success bool            `json:"success"`
	Round   *db.RoundRecord `json:"round"`
	Source  string          `json:"source"` // postgres, redis
}

// HistoryResponse carries the backend's settled-round history
type HistoryResponse struct {
	Success   bool               `json:"success"`
	Items     []game.HistoryItem `json:"items"`
	UpdatedAt string             `json:"updatedAt,omitempty"`
}

/* =========================
   HTTP ENDPOINTS
========================= */

// HandleGetRounds handles GET /api/rounds?limit=
func (s *Server) HandleGetRounds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit, ok := parseLimit(r)
	if !ok {
		sendError(w, http.StatusBadRequest, "Invalid limit")
		return
	}

	rounds, err := db.GetRecentRounds(r.Context(), limit)
	if err != nil {
		log.Printf("❌ Failed to get rounds: %v", err)
		sendError(w, http.StatusInternalServerError, "Failed to retrieve rounds")
		return
	}

	sendJSON(w, http.StatusOK, RoundsResponse{Success: true, Rounds: rounds})
}

// HandleGetRoundDetail handles GET /api/rounds/{id}
// Falls back to the Redis candle list for rounds not yet persisted.
func (s *Server) HandleGetRoundDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	roundID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		sendError(w, http.StatusBadRequest, "Invalid round id")
		return
	}

	ctx := r.Context()
	record, err := db.GetRoundHistory(ctx, roundID)
	if err != nil {
		log.Printf("❌ Failed to get round %d: %v", roundID, err)
		sendError(w, http.StatusInternalServerError, "Failed to retrieve round")
		return
	}
	if record != nil {
		sendJSON(w, http.StatusOK, RoundDetailResponse{Success: true, Round: record, Source: "postgres"})
		return
	}

	candles, err := db.GetRoundCandles(ctx, roundID)
	if err != nil {
		log.Printf("⚠️  Failed to get cached candles for round %d: %v", roundID, err)
	}
	if len(candles) == 0 {
		sendError(w, http.StatusNotFound, "Round not found")
		return
	}

	sendJSON(w, http.StatusOK, RoundDetailResponse{
		Success: true,
		Round:   &db.RoundRecord{RoundID: roundID, Candles: candles},
		Source:  "redis",
	})
}

// HandleGetHistory handles GET /api/history
func (s *Server) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	response := HistoryResponse{Success: true, Items: []game.HistoryItem{}}
	if s.History != nil {
		items, at := s.History.Items()
		if !at.IsZero() {
			response.Items = items
			response.UpdatedAt = at.UTC().Format(time.RFC3339)
			sendJSON(w, http.StatusOK, response)
			return
		}
	}

	// Not refreshed yet in this process, try the shared cache
	items, err := db.GetHistory(r.Context())
	if err != nil {
		log.Printf("⚠️  Failed to read cached history: %v", err)
	}
	if items != nil {
		response.Items = items
	}
	sendJSON(w, http.StatusOK, response)
}
