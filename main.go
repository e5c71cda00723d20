package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradebull/api"
	"tradebull/backend"
	"tradebull/config"
	"tradebull/db"
	"tradebull/identity"
	"tradebull/metrics"
	"tradebull/poller"
	"tradebull/scheduler"
	"tradebull/state"
	"tradebull/ws"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables")
	} else {
		log.Println("✅ Loaded environment variables from .env")
	}

	cfgPath := os.Getenv("TRADEBULL_CONFIG")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	user := identity.Resolve(cfg.Identity.InitData, cfg.Identity.BotToken, cfg.Identity.FallbackUserID)

	// Initialize storage. Both are optional.
	if err := db.InitPostgres(cfg.Postgres.DatabaseURL); err != nil {
		log.Printf("⚠️  Warning: PostgreSQL initialization failed: %v", err)
		log.Println("   Round and bet history will not be recorded")
	}
	defer db.ClosePostgres()

	if err := db.InitRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		log.Printf("⚠️  Warning: Redis initialization failed: %v", err)
		log.Println("   Snapshot and candle caching will be disabled")
	}
	defer db.CloseRedis()

	m := metrics.NewMetrics(nil)
	session := state.NewSession(user.UserID)
	history := state.NewHistory()
	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)

	hub := ws.NewHub(m)
	go hub.Run(ctx)

	p, err := poller.New(poller.Options{
		Client:          client,
		Session:         session,
		Renderer:        hub,
		Recorder:        db.NewStoreRecorder(m),
		Metrics:         m,
		UserID:          user.UserID,
		Interval:        cfg.Poll.Interval,
		PointsPerCandle: cfg.Poll.PointsPerCandle,
		TimeLookback:    cfg.Poll.TimeLookback,
	})
	if err != nil {
		log.Fatalf("❌ Failed to create poller: %v", err)
	}
	hub.SetBetPlacer(p)

	sched := scheduler.NewScheduler(ctx, client, history, m, cfg.Schedule.RetentionDays)
	if err := sched.RegisterAll(cfg.Schedule.HistoryCron, cfg.Schedule.PruneCron); err != nil {
		log.Fatalf("❌ Failed to register scheduled tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()
	go func() {
		if err := sched.RefreshHistoryNow(); err != nil {
			log.Printf("⚠️  Initial history refresh failed: %v", err)
		}
	}()

	pollerDone := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(pollerDone)
	}()

	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("/ws", hub.HandleWS)

	// API endpoints
	apiServer := &api.Server{
		Session: session,
		History: history,
		Poller:  p,
		Bets:    p,
		UserID:  user.UserID,
	}
	apiServer.Register(mux, corsMiddleware)
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("🚀 Server starting on %s", cfg.Server.Addr)
	log.Println("")
	log.Printf("🎯 Backend: %s (user %s, %s)", cfg.Backend.BaseURL, user.UserID, user.Source)
	log.Println("📡 WebSocket Endpoints:")
	log.Println("   /ws - Renderer feed")
	log.Println("   - Subscribe to 'chart' for candles_replace / candles_append / round_reset")
	log.Println("   - Subscribe to 'status' for timer, balance and bet status")
	log.Println("   - Send 'place_bet' to bet in the current round")
	log.Println("")
	log.Println("🔌 API Endpoints:")
	log.Println("   GET  /api/health - Health check (backend + Redis + PostgreSQL)")
	log.Println("   GET  /api/status - Current round status")
	log.Println("   GET  /api/candles - Candles of the current round")
	log.Println("   GET  /api/rounds - Recorded rounds (?limit=)")
	log.Println("   GET  /api/rounds/{id} - Candles of a recorded round")
	log.Println("   GET  /api/history - Backend round history")
	log.Println("   POST /api/bet - Place a bet")
	log.Println("   GET  /api/bets - Bet submissions of this user")
	log.Println("   GET  /metrics - Prometheus metrics")
	log.Println("")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("❌ Server error:", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Server shutdown error: %v", err)
	}
	<-pollerDone
}

// corsMiddleware adds CORS headers to allow frontend requests
func corsMiddleware(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Set CORS headers
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = config.AllowOrigin
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		// Handle preflight OPTIONS request
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		handler(w, r)
	}
}
