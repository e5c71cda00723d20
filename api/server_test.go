package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tradebull/game"
	"tradebull/state"
)

type fakeBets struct {
	last PlaceBetRequest
}

func (f *fakeBets) PlaceBet(_ context.Context, side game.Side, amount float64, insurance bool) state.BetResult {
	f.last = PlaceBetRequest{Side: side, Amount: amount, Insurance: insurance}
	if amount > 5 {
		return state.BetResult{OK: false, Message: "ERROR Not enough balance"}
	}
	balance := 10 - amount
	return state.BetResult{OK: true, Message: "BET OK round 1, balance 8.00", RoundID: 1, Balance: &balance}
}

type fakeHealth struct {
	at  time.Time
	err error
}

func (f fakeHealth) Health() (time.Time, error) { return f.at, f.err }

func newTestServer(t *testing.T, srv *Server) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	srv.Register(mux, nil)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestStatusAndCandles(t *testing.T) {
	session := state.NewSession("u1")
	session.ApplySnapshot(&game.RoundSnapshot{RoundID: 3, Phase: game.PhaseRun, ServerMs: 0, EndMs: 2500})
	session.ResetRender(3)
	session.AppendCandles(3, []game.Candle{{Time: 1, Open: 1, High: 2, Low: 1, Close: 2}})

	ts := newTestServer(t, &Server{Session: session})

	var status StatusResponse
	if code := getJSON(t, ts.URL+"/api/status", &status); code != http.StatusOK {
		t.Fatalf("unexpected status code %d", code)
	}
	if status.Status.RoundID != 3 || status.Status.Timer != "RUN: 2.5s" {
		t.Errorf("unexpected status %+v", status.Status)
	}

	var candles CandlesResponse
	getJSON(t, ts.URL+"/api/candles", &candles)
	if candles.RoundID != 3 || len(candles.Candles) != 1 {
		t.Errorf("unexpected candles %+v", candles)
	}

	resp, err := http.Post(ts.URL+"/api/status", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
}

func TestHealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		ts := newTestServer(t, &Server{Session: state.NewSession("u1"), Poller: fakeHealth{at: time.Now()}})
		var health HealthResponse
		if code := getJSON(t, ts.URL+"/api/health", &health); code != http.StatusOK {
			t.Fatalf("expected 200, got %d", code)
		}
		if !health.Success || health.Poller.LastPollAt == nil {
			t.Errorf("unexpected health %+v", health)
		}
		if !strings.HasPrefix(health.Redis, "error") {
			t.Errorf("expected redis error without a client, got %q", health.Redis)
		}
	})

	t.Run("backend down", func(t *testing.T) {
		ts := newTestServer(t, &Server{Session: state.NewSession("u1"), Poller: fakeHealth{at: time.Now(), err: errors.New("connection refused")}})
		var health HealthResponse
		if code := getJSON(t, ts.URL+"/api/health", &health); code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", code)
		}
		if health.Success || health.Poller.Error != "connection refused" {
			t.Errorf("unexpected health %+v", health)
		}
	})
}

func TestPlaceBet(t *testing.T) {
	bets := &fakeBets{}
	ts := newTestServer(t, &Server{Session: state.NewSession("u1"), Bets: bets})

	post := func(body string) (int, PlaceBetResponse) {
		resp, err := http.Post(ts.URL+"/api/bet", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		var out PlaceBetResponse
		json.NewDecoder(resp.Body).Decode(&out)
		return resp.StatusCode, out
	}

	code, out := post(`{"side":"SHORT","amount":2,"insurance":true}`)
	if code != http.StatusOK || !out.Success || out.Result.Balance == nil || *out.Result.Balance != 8 {
		t.Errorf("unexpected success response %d %+v", code, out)
	}
	if bets.last.Side != game.SideShort || !bets.last.Insurance {
		t.Errorf("unexpected relayed bet %+v", bets.last)
	}

	code, out = post(`{"side":"LONG","amount":50}`)
	if code != http.StatusBadRequest || out.Success || out.Result.Message != "ERROR Not enough balance" {
		t.Errorf("unexpected failure response %d %+v", code, out)
	}

	code, _ = post(`not json`)
	if code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad body, got %d", code)
	}

	resp, err := http.Get(ts.URL + "/api/bet")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
}

func TestRoundsWithoutStores(t *testing.T) {
	ts := newTestServer(t, &Server{Session: state.NewSession("u1")})

	var rounds RoundsResponse
	if code := getJSON(t, ts.URL+"/api/rounds?limit=5", &rounds); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if !rounds.Success || len(rounds.Rounds) != 0 {
		t.Errorf("unexpected rounds %+v", rounds)
	}

	if code := getJSON(t, ts.URL+"/api/rounds?limit=abc", nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", code)
	}
	if code := getJSON(t, ts.URL+"/api/rounds/xyz", nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad id, got %d", code)
	}
	if code := getJSON(t, ts.URL+"/api/rounds/42", nil); code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown round, got %d", code)
	}
}

func TestHistory(t *testing.T) {
	history := state.NewHistory()
	ts := newTestServer(t, &Server{Session: state.NewSession("u1"), History: history})

	var resp HistoryResponse
	getJSON(t, ts.URL+"/api/history", &resp)
	if len(resp.Items) != 0 || resp.UpdatedAt != "" {
		t.Errorf("expected empty history, got %+v", resp)
	}

	history.Set([]game.HistoryItem{{RoundID: 9, Open: 1, Close: 1.2, GoldMult: 2}})
	resp = HistoryResponse{}
	getJSON(t, ts.URL+"/api/history", &resp)
	if len(resp.Items) != 1 || resp.Items[0].RoundID != 9 || resp.UpdatedAt == "" {
		t.Errorf("unexpected history %+v", resp)
	}
}

func TestParseLimit(t *testing.T) {
	cases := map[string]struct {
		want int
		ok   bool
	}{
		"":            {20, true},
		"?limit=5":    {5, true},
		"?limit=0":    {0, false},
		"?limit=-3":   {0, false},
		"?limit=x":    {0, false},
		"?limit=1000": {100, true},
	}
	for query, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/api/rounds"+query, nil)
		got, ok := parseLimit(r)
		if got != tc.want || ok != tc.ok {
			t.Errorf("parseLimit(%q) = %d, %v; want %d, %v", query, got, ok, tc.want, tc.ok)
		}
	}
}
