package game

import (
	"errors"
	"fmt"
	"testing"
)

func TestTimerText(t *testing.T) {
	cases := []struct {
		phase Phase
		want  string
	}{
		{PhaseBet, "BET: 3.2s"},
		{PhaseRun, "RUN: 30.0s"},
		{PhaseDone, "DONE"},
		{Phase("PAUSED"), "PAUSED"},
	}
	for _, tc := range cases {
		got := TimerText(tc.phase, 1000, 4200, 31000)
		if got != tc.want {
			t.Errorf("TimerText(%s) = %q, want %q", tc.phase, got, tc.want)
		}
	}

	if got := TimerText(PhaseBet, 5000, 4000, 9000); got != "BET: 0.0s" {
		t.Errorf("expected clamped timer, got %q", got)
	}
}

func TestGoldLabel(t *testing.T) {
	if got := GoldLabel(0); got != "—" {
		t.Errorf("expected placeholder, got %q", got)
	}
	if got := GoldLabel(3); got != "x3" {
		t.Errorf("expected x3, got %q", got)
	}
}

func TestStatusTexts(t *testing.T) {
	if got := BetStatusText(nil); got != "No bet in this round" {
		t.Errorf("unexpected empty bet text %q", got)
	}

	bet := &BetRecord{Side: SideLong, Amount: 2.5, Insurance: true}
	if got := BetStatusText(bet); got != "Your bet: LONG amount 2.50 insurance ON" {
		t.Errorf("unexpected bet text %q", got)
	}

	if got := BetAcceptedText(7, 9.5); got != "BET OK round 7, balance 9.50" {
		t.Errorf("unexpected accepted text %q", got)
	}

	if got := ErrorText(errors.New("Not enough balance")); got != "ERROR Not enough balance" {
		t.Errorf("unexpected error text %q", got)
	}
	wrapped := fmt.Errorf("bet rejected: %w", detailError{body: `{"detail":"Betting closed"}`, detail: "Betting closed"})
	if got := ErrorText(wrapped); got != "ERROR Betting closed" {
		t.Errorf("expected backend detail, got %q", got)
	}

	if got := FormatOptionalAmount(nil); got != "—" {
		t.Errorf("expected placeholder, got %q", got)
	}
}

func TestResultText(t *testing.T) {
	r := &LastResult{RoundID: 4, Win: true, Payout: 20, GoldMult: 2, Side: SideShort}
	if got := ResultText(r); got != "Round 4: WIN SHORT, payout 20.00 (gold x2)" {
		t.Errorf("unexpected result text %q", got)
	}
	if ResultText(nil) != "" {
		t.Error("expected empty text for nil result")
	}
}

type detailError struct {
	body   string
	detail string
}

func (e detailError) Error() string  { return e.body }
func (e detailError) Detail() string { return e.detail }
