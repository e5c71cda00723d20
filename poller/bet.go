package poller

import (
	"context"
	"errors"
	"log"

	"github.com/shopspring/decimal"

	"tradebull/backend"
	"tradebull/db"
	"tradebull/game"
	"tradebull/state"
)

// PlaceBet submits a bet for the session user. It runs on the caller's goroutine and
// never touches the aggregator, so a failed bet cannot disturb polling.
func (p *Poller) PlaceBet(ctx context.Context, side game.Side, amount float64, insurance bool) state.BetResult {
	req := backend.BetRequest{
		UserID:    p.userID,
		Side:      side,
		Amount:    decimal.NewFromFloat(amount).Round(2).InexactFloat64(),
		Insurance: insurance,
	}

	receipt, err := p.client.PlaceBet(ctx, req)
	var res state.BetResult
	if err != nil {
		p.metrics.BetsTotal.WithLabelValues(betErrorLabel(err)).Inc()
		log.Printf("❌ Bet failed for %s: %v", p.userID, err)
		res = state.BetResult{OK: false, Message: game.ErrorText(err)}
	} else {
		p.metrics.BetsTotal.WithLabelValues("ok").Inc()
		log.Printf("✅ Bet accepted: %s %s %s in round %d", p.userID, side, game.FormatAmount(req.Amount), receipt.RoundID)

		bet := receipt.Bet
		if bet == nil {
			bet = &game.BetRecord{Side: req.Side, Amount: req.Amount, Insurance: req.Insurance}
		}
		balance := receipt.Balance
		p.session.SetBalance(balance)
		p.session.SetBet(bet)
		res = state.BetResult{
			OK:      true,
			Message: game.BetAcceptedText(receipt.RoundID, balance),
			RoundID: receipt.RoundID,
			Balance: &balance,
		}
	}

	p.session.SetMessage(res.Message)
	p.renderer.PublishStatus(p.session.StatusSnapshot())

	sub := &db.BetSubmission{
		UserID:    req.UserID,
		RoundID:   res.RoundID,
		Side:      req.Side,
		Amount:    req.Amount,
		Insurance: req.Insurance,
		Accepted:  res.OK,
		Message:   res.Message,
		CreatedAt: p.now(),
	}
	if sub.RoundID == 0 {
		sub.RoundID = p.session.StatusSnapshot().RoundID
	}
	if res.Balance != nil {
		sub.Balance = *res.Balance
	}
	if err := p.recorder.RecordBet(ctx, sub); err != nil {
		log.Printf("⚠️ Failed to store bet submission: %v", err)
	}

	return res
}

func betErrorLabel(err error) string {
	var httpErr *backend.HTTPError
	switch {
	case errors.Is(err, backend.ErrInvalidBet), errors.Is(err, backend.ErrBetInFlight), errors.As(err, &httpErr):
		return "rejected"
	default:
		return "error"
	}
}
