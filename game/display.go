package game

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const placeholder = "—"

// FormatAmount renders a balance or bet amount with two decimals.
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// FormatOptionalAmount is FormatAmount with a placeholder for unknown values.
func FormatOptionalAmount(v *float64) string {
	if v == nil {
		return placeholder
	}
	return FormatAmount(*v)
}

// GoldLabel renders the gold multiplier, e.g. "x3".
func GoldLabel(mult float64) string {
	if mult <= 0 {
		return placeholder
	}
	return "x" + decimal.NewFromFloat(mult).String()
}

// TimerText renders the countdown for the current phase.
func TimerText(phase Phase, serverMs, startMs, endMs int64) string {
	switch phase {
	case PhaseBet:
		return "BET: " + secondsLeft(startMs-serverMs) + "s"
	case PhaseRun:
		return "RUN: " + secondsLeft(endMs-serverMs) + "s"
	case PhaseDone:
		return "DONE"
	default:
		return string(phase)
	}
}

func secondsLeft(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	return decimal.New(ms, -3).StringFixed(1)
}

// BetStatusText describes the caller's bet in the current round.
func BetStatusText(bet *BetRecord) string {
	if bet == nil {
		return "No bet in this round"
	}
	insurance := "OFF"
	if bet.Insurance {
		insurance = "ON"
	}
	return fmt.Sprintf("Your bet: %s amount %s insurance %s", bet.Side, FormatAmount(bet.Amount), insurance)
}

// BetAcceptedText is shown after a successful bet submission.
func BetAcceptedText(roundID int64, balance float64) string {
	return fmt.Sprintf("BET OK round %d, balance %s", roundID, FormatAmount(balance))
}

// ErrorText is shown when a user action fails. Errors carrying a backend detail
// message show that message instead of the raw response body.
func ErrorText(err error) string {
	var d interface{ Detail() string }
	if errors.As(err, &d) {
		return "ERROR " + d.Detail()
	}
	return "ERROR " + err.Error()
}

// ResultText describes a settled bet.
func ResultText(r *LastResult) string {
	if r == nil {
		return ""
	}
	outcome := "LOSS"
	if r.Win {
		outcome = "WIN"
	}
	text := fmt.Sprintf("Round %d: %s %s, payout %s", r.RoundID, outcome, r.Side, FormatAmount(r.Payout))
	if r.GoldMult > 0 {
		text += " (gold " + GoldLabel(r.GoldMult) + ")"
	}
	return text
}
