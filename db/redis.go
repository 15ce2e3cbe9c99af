package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crossServer/config"
	"crossServer/play"
	"crossServer/state"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	// RedisClient is the global Redis client instance
	RedisClient *redis.Client

	json = jsoniter.ConfigCompatibleWithStandardLibrary
)

// InitRedis initializes the Redis client connection
func InitRedis(ctx context.Context, addr, password string, db int) error {
	logger.Info("🔌 Connecting to Redis...")

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	RedisClient = client

	logger.Info("✅ Redis connected successfully", zap.String("addr", addr))
	return nil
}

// CloseRedis closes the Redis connection
func CloseRedis() error {
	if RedisClient != nil {
		logger.Info("🔌 Closing Redis connection...")
		err := RedisClient.Close()
		RedisClient = nil
		return err
	}
	return nil
}

/* =========================
   LIVE SESSION SNAPSHOTS
   Redis Key: cross:session:{player} -> JSON state.View
========================= */

// SaveSessionSnapshot stores the player's session with a TTL so a
// reconnecting client can pick it up.
func SaveSessionSnapshot(ctx context.Context, player string, view state.View) error {
	if RedisClient == nil {
		return nil
	}
	key := fmt.Sprintf(config.RedisSessionKey, player)

	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("failed to marshal session snapshot: %w", err)
	}

	if err := RedisClient.Set(ctx, key, data, config.SessionSnapshotTTL).Err(); err != nil {
		return fmt.Errorf("failed to store session snapshot: %w", err)
	}
	return nil
}

// GetSessionSnapshot returns the stored session, or nil when none exists.
func GetSessionSnapshot(ctx context.Context, player string) (*state.View, error) {
	if RedisClient == nil {
		return nil, nil
	}
	key := fmt.Sprintf(config.RedisSessionKey, player)

	data, err := RedisClient.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session snapshot: %w", err)
	}

	var view state.View
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session snapshot: %w", err)
	}
	return &view, nil
}

func DeleteSessionSnapshot(ctx context.Context, player string) error {
	if RedisClient == nil {
		return nil
	}
	if err := RedisClient.Del(ctx, fmt.Sprintf(config.RedisSessionKey, player)).Err(); err != nil {
		return fmt.Errorf("failed to delete session snapshot: %w", err)
	}
	return nil
}

/* =========================
   ROUND CACHE
   cross:outcome:{player} -> last round
   cross:recent           -> list of latest rounds
========================= */

// CacheRound remembers the player's last round and pushes it onto the
// shared recent feed, trimmed to config.MaxRoundHistory.
func CacheRound(ctx context.Context, round play.Round) error {
	if RedisClient == nil {
		return nil
	}

	data, err := json.Marshal(round)
	if err != nil {
		return fmt.Errorf("failed to marshal round: %w", err)
	}

	pipe := RedisClient.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf(config.RedisLastOutcomeKey, round.Player), data, config.LastOutcomeTTL)
	pipe.LPush(ctx, config.RedisRecentKey, data)
	pipe.LTrim(ctx, config.RedisRecentKey, 0, config.MaxRoundHistory-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache round: %w", err)
	}
	return nil
}

// GetLastRound returns the player's cached last round, or nil.
func GetLastRound(ctx context.Context, player string) (*play.Round, error) {
	if RedisClient == nil {
		return nil, nil
	}

	data, err := RedisClient.Get(ctx, fmt.Sprintf(config.RedisLastOutcomeKey, player)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last round: %w", err)
	}

	var round play.Round
	if err := json.Unmarshal(data, &round); err != nil {
		return nil, fmt.Errorf("failed to unmarshal last round: %w", err)
	}
	return &round, nil
}

// GetRecentRounds returns up to limit rounds of the shared feed, newest first.
func GetRecentRounds(ctx context.Context, limit int) ([]*play.Round, error) {
	if RedisClient == nil {
		return []*play.Round{}, nil
	}

	items, err := RedisClient.LRange(ctx, config.RedisRecentKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get recent rounds: %w", err)
	}

	rounds := make([]*play.Round, 0, len(items))
	for _, item := range items {
		var round play.Round
		if err := json.Unmarshal([]byte(item), &round); err != nil {
			logger.Warn("⚠️ Skipping unreadable cached round", zap.Error(err))
			continue
		}
		rounds = append(rounds, &round)
	}
	return rounds, nil
}

/* =========================
   HEALTH CHECK
========================= */

// HealthCheckRedis performs a Redis health check
func HealthCheckRedis(ctx context.Context) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis not initialized")
	}
	return RedisClient.Ping(ctx).Err()
}
