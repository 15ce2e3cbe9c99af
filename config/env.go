package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config is the runtime configuration read from the environment.
type Config struct {
	HTTPAddr string
	Mode     string // "demo" or "live"
	AppEnv   string
	LogLevel string

	RPCURL           string
	ChainID          int64
	GameContract     string
	TokenContract    string
	PlayerPrivateKey string

	DatabaseURL   string
	RedisURL      string
	RedisPassword string
	RedisDB       int

	DemoBalance decimal.Decimal
}

// Load reads .env (if present) and then the process environment.
// The returned bool reports whether a .env file was found.
func Load(paths ...string) (*Config, bool, error) {
	loaded := godotenv.Load(paths...) == nil

	cfg := &Config{
		HTTPAddr:         getEnv("HTTP_ADDR", DefaultHTTPAddr),
		Mode:             strings.ToLower(getEnv("GAME_MODE", "demo")),
		AppEnv:           getEnv("APP_ENV", "development"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		RPCURL:           getEnv("RPC_URL", DefaultRPC),
		GameContract:     getEnv("GAME_CONTRACT", DefaultGameContract),
		TokenContract:    getEnv("TOKEN_CONTRACT", DefaultTokenContract),
		PlayerPrivateKey: strings.TrimPrefix(os.Getenv("PLAYER_PRIVATE_KEY"), "0x"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		ChainID:          DefaultChainID,
		DemoBalance:      decimal.NewFromInt(DemoStartingBalance),
	}

	if v := os.Getenv("CHAIN_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, loaded, fmt.Errorf("invalid CHAIN_ID %q: %w", v, err)
		}
		cfg.ChainID = id
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return nil, loaded, fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
		cfg.RedisDB = db
	}

	if v := os.Getenv("DEMO_BALANCE"); v != "" {
		bal, err := decimal.NewFromString(v)
		if err != nil {
			return nil, loaded, fmt.Errorf("invalid DEMO_BALANCE %q: %w", v, err)
		}
		cfg.DemoBalance = bal
	}

	if cfg.Mode != "demo" && cfg.Mode != "live" {
		return nil, loaded, fmt.Errorf("invalid GAME_MODE %q (want demo or live)", cfg.Mode)
	}

	return cfg, loaded, nil
}

// IsLive reports whether outcomes come from the on-chain contract.
func (c *Config) IsLive() bool {
	return c.Mode == "live"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
