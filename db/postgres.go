package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"tradebull/config"
	"tradebull/game"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// PostgresPool is the global PostgreSQL connection pool
	PostgresPool *pgxpool.Pool
)

// RoundRecord is a completed round as seen by this client
type RoundRecord struct {
	RoundID     int64         `json:"roundId"`
	GoldMult    float64       `json:"goldMult"`
	Candles     []game.Candle `json:"candles"`
	CompletedAt time.Time     `json:"completedAt"`
}

// BetSubmission is one bet attempt and its outcome
type BetSubmission struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	RoundID   int64     `json:"roundId"`
	Side      game.Side `json:"side"`
	Amount    float64   `json:"amount"`
	Insurance bool      `json:"insurance"`
	Accepted  bool      `json:"accepted"`
	Message   string    `json:"message"`
	Balance   float64   `json:"balance"`
	CreatedAt time.Time `json:"createdAt"`
}

// BetSummary aggregates a user's bet submissions
type BetSummary struct {
	UserID   string  `json:"userId"`
	Accepted int64   `json:"accepted"`
	Rejected int64   `json:"rejected"`
	Wagered  float64 `json:"wagered"`
}

// InitPostgres initializes the PostgreSQL connection pool
func InitPostgres(databaseURL string) error {
	log.Println("🔌 Connecting to PostgreSQL...")

	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Configure pool settings
	poolConfig.MaxConns = config.MaxConns
	poolConfig.MinConns = config.MinConns
	poolConfig.MaxConnLifetime = config.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	PostgresPool = pool
	log.Println("✅ PostgreSQL connected successfully")

	if err := InitSchema(context.Background()); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// ClosePostgres closes the PostgreSQL connection pool
func ClosePostgres() {
	if PostgresPool != nil {
		log.Println("🔌 Closing PostgreSQL connection...")
		PostgresPool.Close()
		PostgresPool = nil
	}
}

// InitSchema creates the database tables if they don't exist
func InitSchema(ctx context.Context) error {
	log.Println("📋 Initializing database schema...")

	roundHistorySchema := `
	CREATE TABLE IF NOT EXISTS round_history (
		id SERIAL PRIMARY KEY,
		round_id BIGINT NOT NULL UNIQUE,
		gold_mult DOUBLE PRECISION NOT NULL DEFAULT 0,
		candles JSONB NOT NULL,
		completed_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_round_history_completed_at ON round_history(completed_at DESC);
	`

	if _, err := PostgresPool.Exec(ctx, roundHistorySchema); err != nil {
		return fmt.Errorf("failed to create round_history table: %w", err)
	}

	betHistorySchema := `
	CREATE TABLE IF NOT EXISTS bet_history (
		id SERIAL PRIMARY KEY,
		user_id TEXT NOT NULL,
		round_id BIGINT NOT NULL,
		side TEXT NOT NULL,
		amount DOUBLE PRECISION NOT NULL,
		insurance BOOLEAN NOT NULL DEFAULT FALSE,
		accepted BOOLEAN NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		balance DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_bet_history_user ON bet_history(user_id);
	CREATE INDEX IF NOT EXISTS idx_bet_history_created_at ON bet_history(created_at DESC);
	`

	if _, err := PostgresPool.Exec(ctx, betHistorySchema); err != nil {
		return fmt.Errorf("failed to create bet_history table: %w", err)
	}

	log.Println("✅ Database schema initialized")
	return nil
}

/* =========================
   ROUND HISTORY
========================= */

// StoreRoundHistory stores a completed round's candles
func StoreRoundHistory(ctx context.Context, record *RoundRecord) error {
	if PostgresPool == nil {
		return nil
	}

	candlesJSON, err := json.Marshal(record.Candles)
	if err != nil {
		return fmt.Errorf("failed to marshal candles: %w", err)
	}

	query := `
		INSERT INTO round_history
		(round_id, gold_mult, candles, completed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (round_id) DO NOTHING
	`

	_, err = PostgresPool.Exec(
		ctx,
		query,
		record.RoundID,
		record.GoldMult,
		candlesJSON,
		record.CompletedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to store round history: %w", err)
	}

	log.Printf("✅ Stored round history - Round: %d, Candles: %d", record.RoundID, len(record.Candles))
	return nil
}

// GetRoundHistory retrieves a completed round by id
func GetRoundHistory(ctx context.Context, roundID int64) (*RoundRecord, error) {
	if PostgresPool == nil {
		return nil, nil
	}

	query := `
		SELECT round_id, gold_mult, candles, completed_at
		FROM round_history
		WHERE round_id = $1
	`

	record, err := scanRound(PostgresPool.QueryRow(ctx, query, roundID))
	if err == pgx.ErrNoRows {
		return nil, nil // Round not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get round history: %w", err)
	}
	return record, nil
}

// GetRecentRounds retrieves the N most recently completed rounds
func GetRecentRounds(ctx context.Context, limit int) ([]*RoundRecord, error) {
	if PostgresPool == nil {
		return []*RoundRecord{}, nil
	}

	query := `
		SELECT round_id, gold_mult, candles, completed_at
		FROM round_history
		ORDER BY completed_at DESC
		LIMIT $1
	`

	rows, err := PostgresPool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query round history: %w", err)
	}
	defer rows.Close()

	records := []*RoundRecord{}
	for rows.Next() {
		record, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// PruneRounds deletes rounds completed before the retention window
func PruneRounds(ctx context.Context, retentionDays int) (int64, error) {
	if PostgresPool == nil {
		return 0, nil
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	tag, err := PostgresPool.Exec(ctx, `DELETE FROM round_history WHERE completed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune round history: %w", err)
	}

	if n := tag.RowsAffected(); n > 0 {
		log.Printf("🧹 Pruned %d rounds older than %d days", n, retentionDays)
	}
	return tag.RowsAffected(), nil
}

func scanRound(row pgx.Row) (*RoundRecord, error) {
	var record RoundRecord
	var candlesJSON []byte

	if err := row.Scan(
		&record.RoundID,
		&record.GoldMult,
		&candlesJSON,
		&record.CompletedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(candlesJSON, &record.Candles); err != nil {
		return nil, fmt.Errorf("failed to unmarshal candles: %w", err)
	}
	return &record, nil
}

/* =========================
   BET HISTORY
========================= */

// StoreBet stores a bet submission
func StoreBet(ctx context.Context, bet *BetSubmission) error {
	if PostgresPool == nil {
		return nil
	}

	query := `
		INSERT INTO bet_history
		(user_id, round_id, side, amount, insurance, accepted, message, balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := PostgresPool.QueryRow(
		ctx,
		query,
		bet.UserID,
		bet.RoundID,
		string(bet.Side),
		bet.Amount,
		bet.Insurance,
		bet.Accepted,
		bet.Message,
		bet.Balance,
		bet.CreatedAt,
	).Scan(&bet.ID)

	if err != nil {
		return fmt.Errorf("failed to store bet: %w", err)
	}
	return nil
}

// GetRecentBets retrieves a user's N most recent bet submissions
func GetRecentBets(ctx context.Context, userID string, limit int) ([]*BetSubmission, error) {
	if PostgresPool == nil {
		return []*BetSubmission{}, nil
	}

	query := `
		SELECT id, user_id, round_id, side, amount, insurance, accepted, message, balance, created_at
		FROM bet_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := PostgresPool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query bet history: %w", err)
	}
	defer rows.Close()

	records := []*BetSubmission{}
	for rows.Next() {
		var bet BetSubmission
		var side string
		if err := rows.Scan(
			&bet.ID,
			&bet.UserID,
			&bet.RoundID,
			&side,
			&bet.Amount,
			&bet.Insurance,
			&bet.Accepted,
			&bet.Message,
			&bet.Balance,
			&bet.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		bet.Side = game.Side(side)
		records = append(records, &bet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// GetBetSummary returns accepted/rejected counts and the total wagered by a user
func GetBetSummary(ctx context.Context, userID string) (*BetSummary, error) {
	if PostgresPool == nil {
		return nil, nil
	}

	query := `
		SELECT
			COUNT(*) FILTER (WHERE accepted),
			COUNT(*) FILTER (WHERE NOT accepted),
			COALESCE(SUM(amount) FILTER (WHERE accepted), 0)
		FROM bet_history
		WHERE user_id = $1
	`

	summary := BetSummary{UserID: userID}
	err := PostgresPool.QueryRow(ctx, query, userID).Scan(
		&summary.Accepted,
		&summary.Rejected,
		&summary.Wagered,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bet summary: %w", err)
	}

	return &summary, nil
}

/* =========================
   HEALTH CHECK
========================= */

// HealthCheckPostgres performs a PostgreSQL health check
func HealthCheckPostgres(ctx context.Context) error {
	if PostgresPool == nil {
		return fmt.Errorf("PostgreSQL connection pool not initialized")
	}
	return PostgresPool.Ping(ctx)
}
