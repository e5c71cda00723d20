package config

import "time"

/* =========================
   BACKEND CONFIGURATION
========================= */

const (
	// Local development backend
	DefaultBackendURL = "http://127.0.0.1:8000"

	// Per-request timeout for backend calls
	BackendRequestTimeout = 5 * time.Second

	// Upper bound on response bodies read from the backend
	MaxBackendBodyBytes = 1 << 20 // 1MB
)

/* =========================
   POLLING & CANDLES
========================= */

const (
	PollInterval    = 1 * time.Second
	PointsPerCandle = 10

	// Synthetic time origin for a new round: now minus this many units
	CandleTimeLookback = 600

	// History items requested from the backend
	HistoryLimit = 20
)

/* =========================
   IDENTITY
========================= */

const (
	FallbackUserID = "test1"
)

/* =========================
   REDIS TTL CONFIGURATION
========================= */

const (
	// Latest snapshot cache TTL
	// Key: tb:client:snapshot
	SnapshotTTL = 1 * time.Minute

	// Per-round candle list TTL
	// Key: tb:client:candles:{roundId}
	RoundCandlesTTL = 2 * time.Hour

	// Cached backend history TTL
	// Key: tb:client:history
	HistoryTTL = 10 * time.Minute
)

/* =========================
   REDIS KEY PATTERNS
========================= */

const (
	RedisSnapshotKey     = "tb:client:snapshot"
	RedisRoundCandlesKey = "tb:client:candles:%d" // tb:client:candles:{roundId}
	RedisHistoryKey      = "tb:client:history"
)

/* =========================
   POSTGRESQL CONFIGURATION
========================= */

const (
	// Connection pool settings
	MaxConns        = 10
	MinConns        = 2
	ConnMaxLifetime = 5 * time.Minute

	// Rounds kept before the prune job removes them
	DefaultRetentionDays = 30
)

/* =========================
   SCHEDULER CONFIGURATION
========================= */

const (
	DefaultHistoryCron = "*/30 * * * * *" // every 30 seconds
	DefaultPruneCron   = "0 0 4 * * *"    // daily at 04:00
)

/* =========================
   API CONFIGURATION
========================= */

const (
	DefaultServerAddr = "0.0.0.0:8080"
	AllowOrigin       = "*"
	DefaultRoundsPage = 20
	MaxRoundsPage     = 100
)

/* =========================
   WEBSOCKET CONFIGURATION
========================= */

const (
	WSReadDeadline  = 60 * time.Second
	WSWriteDeadline = 10 * time.Second
	WSPingInterval  = 30 * time.Second

	// Buffer sizes
	WSReadBufferSize  = 1024
	WSWriteBufferSize = 1024
	WSSendBuffer      = 256

	// Message size limits
	MaxMessageSize = 64 * 1024 // 64KB
)
