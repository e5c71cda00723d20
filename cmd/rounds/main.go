// Command rounds inspects the round and bet history recorded by the gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"tradebull/config"
	"tradebull/db"
	"tradebull/game"

	"github.com/joho/godotenv"
)

func main() {
	limit := flag.Int("limit", config.DefaultRoundsPage, "number of recent rounds to list")
	roundID := flag.Int64("round", 0, "print the candles of one round")
	bets := flag.String("bets", "", "list bet submissions of a user id")
	prune := flag.Int("prune", 0, "delete rounds older than this many days")
	flag.Parse()

	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env not found")
	}

	cfg, err := config.Load(configPath())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Postgres.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	// Init postgres
	if err := db.InitPostgres(cfg.Postgres.DatabaseURL); err != nil {
		log.Fatalf("Failed to init postgres: %v", err)
	}
	defer db.ClosePostgres()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch {
	case *prune > 0:
		n, err := db.PruneRounds(ctx, *prune)
		if err != nil {
			log.Fatalf("Failed to prune: %v", err)
		}
		fmt.Printf("Pruned %d rounds older than %d days\n", n, *prune)

	case *roundID != 0:
		printRound(ctx, *roundID)

	case *bets != "":
		printBets(ctx, *bets, *limit)

	default:
		printRecent(ctx, *limit)
	}
}

func configPath() string {
	if p := os.Getenv("TRADEBULL_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}

func printRecent(ctx context.Context, limit int) {
	records, err := db.GetRecentRounds(ctx, limit)
	if err != nil {
		log.Fatalf("Failed to get rounds: %v", err)
	}

	fmt.Printf("Recent rounds (%d entries):\n", len(records))
	for _, r := range records {
		open, closing := "—", "—"
		if n := len(r.Candles); n > 0 {
			open = game.FormatAmount(r.Candles[0].Open)
			closing = game.FormatAmount(r.Candles[n-1].Close)
		}
		fmt.Printf("  #%d  %s  candles=%d  open=%s close=%s gold=%s\n",
			r.RoundID, r.CompletedAt.Format(time.DateTime), len(r.Candles), open, closing, game.GoldLabel(r.GoldMult))
	}
}

func printRound(ctx context.Context, roundID int64) {
	record, err := db.GetRoundHistory(ctx, roundID)
	if err != nil {
		log.Fatalf("Failed to get round: %v", err)
	}
	if record == nil {
		log.Fatalf("Round %d not found", roundID)
	}

	fmt.Printf("Round %d (gold %s), %d candles:\n", record.RoundID, game.GoldLabel(record.GoldMult), len(record.Candles))
	for _, c := range record.Candles {
		fmt.Printf("  t=%d  O=%.4f H=%.4f L=%.4f C=%.4f\n", c.Time, c.Open, c.High, c.Low, c.Close)
	}
}

func printBets(ctx context.Context, userID string, limit int) {
	records, err := db.GetRecentBets(ctx, userID, limit)
	if err != nil {
		log.Fatalf("Failed to get bets: %v", err)
	}

	fmt.Printf("Bets of %s (%d entries):\n", userID, len(records))
	for _, b := range records {
		fmt.Printf("  round %d  %s %s insurance=%t  %s\n",
			b.RoundID, b.Side, game.FormatAmount(b.Amount), b.Insurance, b.Message)
	}

	if summary, err := db.GetBetSummary(ctx, userID); err == nil && summary != nil {
		fmt.Printf("\nAccepted %d, rejected %d, wagered %s\n",
			summary.Accepted, summary.Rejected, game.FormatAmount(summary.Wagered))
	}
}
