package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultRPCURL    = "https://api.devnet.solana.com"
	DefaultProgramID = "D6xSi3CG6fK1Y8rgwzvPFob4paPRxebGgR3DW3MiCubf"
)

type Config struct {
	Env        string
	BridgeAddr string

	RPCURL      string
	WSURL       string
	ProgramID   string
	KeypairPath string
	RPCTimeout  time.Duration

	RedisURL  string
	RedisPass string
	RedisDB   int

	JWTSecret string

	LogLevel string
	LogFile  string

	CatalogPath string

	ConfirmTimeout      time.Duration
	ConfirmPollInterval time.Duration

	TreasuryRefreshInterval      time.Duration
	LeaderboardRefreshInterval   time.Duration
	LeaderboardPostPurchaseDelay time.Duration

	// Positive balance deltas at or below this many lamports are reported as no prize.
	PrizeDustLamports uint64
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:         getEnv("ENV", "development"),
		BridgeAddr:  getEnv("BRIDGE_ADDR", "127.0.0.1:8787"),
		RPCURL:      getEnv("RPC_URL", DefaultRPCURL),
		WSURL:       os.Getenv("WS_URL"),
		ProgramID:   getEnv("PROGRAM_ID", DefaultProgramID),
		KeypairPath: os.Getenv("KEYPAIR_PATH"),
		RedisURL:    getEnv("REDIS_URL", "localhost:6379"),
		RedisPass:   os.Getenv("REDIS_PASSWORD"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFile:     os.Getenv("LOG_FILE"),
		CatalogPath: os.Getenv("CATALOG_PATH"),
	}

	var err error
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.RPCTimeout, err = getDuration("RPC_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.ConfirmTimeout, err = getDuration("CONFIRM_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.ConfirmPollInterval, err = getDuration("CONFIRM_POLL_INTERVAL", 500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.TreasuryRefreshInterval, err = getDuration("TREASURY_REFRESH_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.LeaderboardRefreshInterval, err = getDuration("LEADERBOARD_REFRESH_INTERVAL", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.LeaderboardPostPurchaseDelay, err = getDuration("LEADERBOARD_POST_PURCHASE_DELAY", 2*time.Second); err != nil {
		return nil, err
	}

	dust, err := getInt("PRIZE_DUST_LAMPORTS", 0)
	if err != nil {
		return nil, err
	}
	if dust < 0 {
		return nil, fmt.Errorf("PRIZE_DUST_LAMPORTS must not be negative")
	}
	cfg.PrizeDustLamports = uint64(dust)

	if cfg.WSURL == "" {
		cfg.WSURL = WebsocketURL(cfg.RPCURL)
	}

	return cfg, nil
}

// WebsocketURL maps an http(s) RPC endpoint to its pubsub endpoint.
func WebsocketURL(rpcURL string) string {
	switch {
	case strings.HasPrefix(rpcURL, "https://"):
		return "wss://" + strings.TrimPrefix(rpcURL, "https://")
	case strings.HasPrefix(rpcURL, "http://"):
		return "ws://" + strings.TrimPrefix(rpcURL, "http://")
	default:
		return rpcURL
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return v, nil
}
