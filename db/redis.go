package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"tradebull/config"
	"tradebull/game"

	"github.com/redis/go-redis/v9"
)

var (
	// RedisClient is the global Redis client instance
	RedisClient *redis.Client
)

// InitRedis initializes the Redis client connection
func InitRedis(addr, password string, db int) error {
	log.Println("🔌 Connecting to Redis...")

	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	RedisClient = client
	log.Printf("✅ Redis connected successfully - URL: %s", addr)
	return nil
}

// CloseRedis closes the Redis connection
func CloseRedis() error {
	if RedisClient != nil {
		log.Println("🔌 Closing Redis connection...")
		err := RedisClient.Close()
		RedisClient = nil
		return err
	}
	return nil
}

/* =========================
   SNAPSHOT CACHE
   Redis Key: tb:client:snapshot -> JSON(RoundSnapshot)
========================= */

// StoreSnapshot caches the latest accepted round snapshot
func StoreSnapshot(ctx context.Context, snap *game.RoundSnapshot) error {
	if RedisClient == nil {
		return nil
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := RedisClient.Set(ctx, config.RedisSnapshotKey, data, config.SnapshotTTL).Err(); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	return nil
}

// GetSnapshot returns the cached snapshot, or nil when none is cached
func GetSnapshot(ctx context.Context) (*game.RoundSnapshot, error) {
	if RedisClient == nil {
		return nil, nil
	}

	data, err := RedisClient.Get(ctx, config.RedisSnapshotKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	var snap game.RoundSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

/* =========================
   ROUND CANDLES (List Structure)
   Redis Key: tb:client:candles:{roundId} -> List[JSON(Candle)]
========================= */

// AppendRoundCandles pushes newly emitted candles onto the round's list
func AppendRoundCandles(ctx context.Context, roundID int64, candles []game.Candle) error {
	if RedisClient == nil || len(candles) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(candles))
	for _, c := range candles {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal candle: %w", err)
		}
		values = append(values, data)
	}

	key := fmt.Sprintf(config.RedisRoundCandlesKey, roundID)
	pipe := RedisClient.TxPipeline()
	pipe.RPush(ctx, key, values...)
	pipe.Expire(ctx, key, config.RoundCandlesTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append round candles: %w", err)
	}
	return nil
}

// GetRoundCandles returns the cached candles for a round in emission order
func GetRoundCandles(ctx context.Context, roundID int64) ([]game.Candle, error) {
	if RedisClient == nil {
		return nil, nil
	}

	key := fmt.Sprintf(config.RedisRoundCandlesKey, roundID)
	items, err := RedisClient.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get round candles: %w", err)
	}

	candles := make([]game.Candle, 0, len(items))
	for _, item := range items {
		var c game.Candle
		if err := json.Unmarshal([]byte(item), &c); err != nil {
			log.Printf("⚠️  Failed to unmarshal candle for round %d: %v", roundID, err)
			continue
		}
		candles = append(candles, c)
	}
	return candles, nil
}

// DeleteRoundCandles removes a round's candle list
func DeleteRoundCandles(ctx context.Context, roundID int64) error {
	if RedisClient == nil {
		return nil
	}

	key := fmt.Sprintf(config.RedisRoundCandlesKey, roundID)
	if err := RedisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete round candles: %w", err)
	}
	return nil
}

/* =========================
   BACKEND HISTORY CACHE
   Redis Key: tb:client:history -> JSON([]HistoryItem)
========================= */

// StoreHistory caches the backend's recent round history
func StoreHistory(ctx context.Context, items []game.HistoryItem) error {
	if RedisClient == nil {
		return nil
	}

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	if err := RedisClient.Set(ctx, config.RedisHistoryKey, data, config.HistoryTTL).Err(); err != nil {
		return fmt.Errorf("failed to store history: %w", err)
	}
	return nil
}

// GetHistory returns the cached history, or nil when none is cached
func GetHistory(ctx context.Context) ([]game.HistoryItem, error) {
	if RedisClient == nil {
		return nil, nil
	}

	data, err := RedisClient.Get(ctx, config.RedisHistoryKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	var items []game.HistoryItem
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}
	return items, nil
}

/* =========================
   HEALTH CHECK
========================= */

// HealthCheck performs a Redis health check
func HealthCheck(ctx context.Context) error {
	if RedisClient == nil {
		return fmt.Errorf("redis not initialized")
	}
	return RedisClient.Ping(ctx).Err()
}
