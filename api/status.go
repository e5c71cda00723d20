package api

import (
	"net/http"
	"time"

	"tradebull/db"
	"tradebull/state"
)

/* =========================
   RESPONSE TYPES
========================= */

// PollerHealth describes the last series poll
type PollerHealth struct {
	LastPollAt *time.Time `json:"lastPollAt,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Success  bool         `json:"success"`
	Redis    string       `json:"redis"`
	Postgres string       `json:"postgres"`
	Poller   PollerHealth `json:"poller"`
	Message  string       `json:"message"`
}

// StatusResponse wraps the session status view
type StatusResponse struct {
	Success bool             `json:"success"`
	Status  state.StatusView `json:"status"`
}

// CandlesResponse carries the current round's candles
type CandlesResponse struct {
	Success bool `json:"success"`
	state.RenderState
}

/* =========================
   HTTP ENDPOINTS
========================= */

// HandleHealthCheck handles health check requests
// GET /api/health
func (s *Server) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx := r.Context()

	// Check Redis
	redisHealth := "ok"
	if err := db.HealthCheck(ctx); err != nil {
		redisHealth = "error: " + err.Error()
	}

	// Check PostgreSQL
	postgresHealth := "ok"
	if err := db.HealthCheckPostgres(ctx); err != nil {
		postgresHealth = "error: " + err.Error()
	}

	response := HealthResponse{
		Success:  true,
		Redis:    redisHealth,
		Postgres: postgresHealth,
		Message:  "Health check completed",
	}
	status := http.StatusOK

	if s.Poller != nil {
		at, err := s.Poller.Health()
		if !at.IsZero() {
			response.Poller.LastPollAt = &at
		}
		if err != nil {
			response.Success = false
			response.Poller.Error = err.Error()
			response.Message = "Backend unreachable"
			status = http.StatusServiceUnavailable
		}
	}

	sendJSON(w, status, response)
}

// HandleGetStatus handles GET /api/status
func (s *Server) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	sendJSON(w, http.StatusOK, StatusResponse{Success: true, Status: s.Session.StatusSnapshot()})
}

// HandleGetCandles handles GET /api/candles
func (s *Server) HandleGetCandles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	sendJSON(w, http.StatusOK, CandlesResponse{Success: true, RenderState: s.Session.RenderSnapshot()})
}
