package db

import (
	"context"
	"os"
	"testing"

	"github.com/joho/godotenv"

	"tradebull/game"
)

func TestRedisCache(t *testing.T) {
	_ = godotenv.Load("../.env")

	if os.Getenv("REDIS_URL") == "" {
		t.Skip("REDIS_URL not set")
	}

	if err := InitRedis(os.Getenv("REDIS_URL"), os.Getenv("REDIS_PASSWORD"), 0); err != nil {
		t.Fatalf("Failed to init redis: %v", err)
	}
	defer CloseRedis()

	ctx := context.Background()
	const roundID = -42
	defer DeleteRoundCandles(ctx, roundID)

	t.Run("Snapshot", func(t *testing.T) {
		snap := &game.RoundSnapshot{RoundID: 9, Phase: game.PhaseRun, Points: []float64{1, 2, 3}}
		if err := StoreSnapshot(ctx, snap); err != nil {
			t.Fatalf("StoreSnapshot failed: %v", err)
		}
		got, err := GetSnapshot(ctx)
		if err != nil {
			t.Fatalf("GetSnapshot failed: %v", err)
		}
		if got == nil || got.RoundID != 9 || len(got.Points) != 3 {
			t.Errorf("unexpected snapshot %+v", got)
		}
	})

	t.Run("RoundCandles", func(t *testing.T) {
		if err := AppendRoundCandles(ctx, roundID, []game.Candle{{Time: 1}, {Time: 2}}); err != nil {
			t.Fatalf("AppendRoundCandles failed: %v", err)
		}
		if err := AppendRoundCandles(ctx, roundID, []game.Candle{{Time: 3}}); err != nil {
			t.Fatalf("AppendRoundCandles failed: %v", err)
		}
		got, err := GetRoundCandles(ctx, roundID)
		if err != nil {
			t.Fatalf("GetRoundCandles failed: %v", err)
		}
		if len(got) != 3 || got[0].Time != 1 || got[2].Time != 3 {
			t.Errorf("unexpected candles %+v", got)
		}
	})

	t.Run("History", func(t *testing.T) {
		items := []game.HistoryItem{{RoundID: 1, Open: 1, Close: 2}}
		if err := StoreHistory(ctx, items); err != nil {
			t.Fatalf("StoreHistory failed: %v", err)
		}
		got, err := GetHistory(ctx)
		if err != nil {
			t.Fatalf("GetHistory failed: %v", err)
		}
		if len(got) != 1 || got[0].Close != 2 {
			t.Errorf("unexpected history %+v", got)
		}
	})
}
