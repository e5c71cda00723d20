package state

import (
	"errors"
	"testing"

	"tradebull/game"
)

func TestSession_Status(t *testing.T) {
	s := NewSession("u1")

	st := s.StatusSnapshot()
	if st.UserID != "u1" || st.BetStatus != "No bet in this round" || st.BalanceText != "—" {
		t.Fatalf("unexpected initial status %+v", st)
	}

	s.ApplySnapshot(&game.RoundSnapshot{RoundID: 5, Phase: game.PhaseBet, ServerMs: 0, StartMs: 1500, GoldMult: 4})
	s.SetBalance(12.5)
	s.SetBet(&game.BetRecord{Side: game.SideShort, Amount: 1})

	st = s.StatusSnapshot()
	if st.RoundID != 5 || st.Timer != "BET: 1.5s" || st.Gold != "x4" {
		t.Errorf("unexpected round fields %+v", st)
	}
	if st.Balance == nil || *st.Balance != 12.5 || st.BalanceText != "12.50" {
		t.Errorf("unexpected balance %+v", st)
	}
	if st.BetStatus != "Your bet: SHORT amount 1.00 insurance OFF" {
		t.Errorf("unexpected bet status %q", st.BetStatus)
	}

	*st.Balance = 0
	if again := s.StatusSnapshot(); *again.Balance != 12.5 {
		t.Error("StatusSnapshot should return a copy of the balance")
	}

	s.SetLastError(errors.New("boom"))
	if s.StatusSnapshot().LastError != "boom" {
		t.Error("expected last error to be recorded")
	}
	s.ApplySnapshot(&game.RoundSnapshot{RoundID: 5, Phase: game.PhaseRun})
	if s.StatusSnapshot().LastError != "" {
		t.Error("a successful snapshot should clear the last error")
	}
}

func TestSession_Render(t *testing.T) {
	s := NewSession("u1")
	s.ResetRender(2)

	if !s.AppendCandles(2, []game.Candle{{Time: 1}, {Time: 2}}) {
		t.Fatal("append for current round should succeed")
	}
	if s.AppendCandles(1, []game.Candle{{Time: 3}}) {
		t.Error("append for another round should be ignored")
	}

	r := s.RenderSnapshot()
	if r.RoundID != 2 || len(r.Candles) != 2 {
		t.Fatalf("unexpected render state %+v", r)
	}
	r.Candles[0].Time = 99
	if s.RenderSnapshot().Candles[0].Time != 1 {
		t.Error("RenderSnapshot should return a copy")
	}

	s.ResetRender(3)
	if r := s.RenderSnapshot(); r.RoundID != 3 || len(r.Candles) != 0 {
		t.Errorf("expected empty render after reset, got %+v", r)
	}
}

func TestHistory(t *testing.T) {
	h := NewHistory()
	if items, at := h.Items(); len(items) != 0 || !at.IsZero() {
		t.Fatalf("expected empty history, got %v %v", items, at)
	}

	h.Set([]game.HistoryItem{{RoundID: 1}, {RoundID: 2}})
	items, at := h.Items()
	if len(items) != 2 || at.IsZero() {
		t.Fatalf("unexpected history %v %v", items, at)
	}
	items[0].RoundID = 99
	if again, _ := h.Items(); again[0].RoundID != 1 {
		t.Error("Items should return a copy")
	}
}
