package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"

	"tradebull/game"
)

func TestRoundAndBetHistory(t *testing.T) {
	// Load env
	_ = godotenv.Load("../.env")

	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set")
	}

	if err := InitPostgres(os.Getenv("DATABASE_URL")); err != nil {
		t.Fatalf("Failed to init postgres: %v", err)
	}
	defer ClosePostgres()

	ctx := context.Background()
	roundID := time.Now().UnixNano()
	testUser := "test-user-" + time.Now().Format("150405.000")

	// Cleanup before and after
	cleanup := func() {
		_, _ = PostgresPool.Exec(ctx, "DELETE FROM round_history WHERE round_id = $1", roundID)
		_, _ = PostgresPool.Exec(ctx, "DELETE FROM bet_history WHERE user_id = $1", testUser)
	}
	cleanup()
	defer cleanup()

	t.Run("StoreRoundHistory", func(t *testing.T) {
		record := &RoundRecord{
			RoundID:     roundID,
			GoldMult:    3,
			Candles:     []game.Candle{{Time: 1, Open: 1, High: 2, Low: 0.5, Close: 1.5}},
			CompletedAt: time.Now(),
		}
		if err := StoreRoundHistory(ctx, record); err != nil {
			t.Fatalf("StoreRoundHistory failed: %v", err)
		}
		// Duplicate insert is ignored
		if err := StoreRoundHistory(ctx, record); err != nil {
			t.Fatalf("duplicate StoreRoundHistory failed: %v", err)
		}

		got, err := GetRoundHistory(ctx, roundID)
		if err != nil {
			t.Fatalf("GetRoundHistory failed: %v", err)
		}
		if got == nil {
			t.Fatal("Expected record, got nil")
		}
		if got.GoldMult != 3 || len(got.Candles) != 1 || got.Candles[0].High != 2 {
			t.Errorf("unexpected record %+v", got)
		}
	})

	t.Run("GetRoundHistory_Missing", func(t *testing.T) {
		got, err := GetRoundHistory(ctx, -1)
		if err != nil {
			t.Fatalf("GetRoundHistory failed: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil for missing round, got %+v", got)
		}
	})

	t.Run("BetHistory", func(t *testing.T) {
		bets := []*BetSubmission{
			{UserID: testUser, RoundID: roundID, Side: game.SideLong, Amount: 2, Accepted: true, Message: "BET OK", Balance: 8, CreatedAt: time.Now()},
			{UserID: testUser, RoundID: roundID, Side: game.SideShort, Amount: 50, Accepted: false, Message: "ERROR Not enough balance", CreatedAt: time.Now()},
		}
		for _, b := range bets {
			if err := StoreBet(ctx, b); err != nil {
				t.Fatalf("StoreBet failed: %v", err)
			}
			if b.ID == 0 {
				t.Error("expected id to be set")
			}
		}

		recent, err := GetRecentBets(ctx, testUser, 10)
		if err != nil {
			t.Fatalf("GetRecentBets failed: %v", err)
		}
		if len(recent) != 2 {
			t.Fatalf("expected 2 bets, got %d", len(recent))
		}

		summary, err := GetBetSummary(ctx, testUser)
		if err != nil {
			t.Fatalf("GetBetSummary failed: %v", err)
		}
		if summary.Accepted != 1 || summary.Rejected != 1 || summary.Wagered != 2 {
			t.Errorf("unexpected summary %+v", summary)
		}
	})
}

func TestStoresUninitialized(t *testing.T) {
	ctx := context.Background()

	if err := StoreRoundHistory(ctx, &RoundRecord{RoundID: 1}); err != nil {
		t.Errorf("expected nil without a pool, got %v", err)
	}
	rounds, err := GetRecentRounds(ctx, 10)
	if err != nil || len(rounds) != 0 {
		t.Errorf("expected empty rounds, got %v %v", rounds, err)
	}
	if n, err := PruneRounds(ctx, 1); err != nil || n != 0 {
		t.Errorf("expected no-op prune, got %d %v", n, err)
	}
	if err := HealthCheckPostgres(ctx); err == nil {
		t.Error("expected health check error without a pool")
	}

	if err := StoreSnapshot(ctx, &game.RoundSnapshot{RoundID: 1}); err != nil {
		t.Errorf("expected nil without redis, got %v", err)
	}
	if snap, err := GetSnapshot(ctx); snap != nil || err != nil {
		t.Errorf("expected nil snapshot, got %v %v", snap, err)
	}
	if err := HealthCheck(ctx); err == nil {
		t.Error("expected health check error without redis")
	}

	rec := NewStoreRecorder(nil)
	if err := rec.RecordCandles(ctx, 1, []game.Candle{{Time: 1}}); err != nil {
		t.Errorf("RecordCandles: %v", err)
	}
	if err := rec.RecordRound(ctx, &RoundRecord{RoundID: 1}); err != nil {
		t.Errorf("RecordRound: %v", err)
	}
}
