package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"seeker-scratch/internal/config"
	"seeker-scratch/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisService keeps client-side state that outlives the process: sound and
// haptics preferences and the last leaderboard. It also backs the per-wallet
// rate limits. Settlements are never written here.
type RedisService struct {
	client *redis.Client
	ctx    context.Context
}

var (
	_ PreferenceStore  = (*RedisService)(nil)
	_ LeaderboardCache = (*RedisService)(nil)
	_ RateLimiter      = (*RedisService)(nil)
)

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx := context.Background()

	_, err := client.Ping(ctx).Result()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisService{
		client: client,
		ctx:    ctx,
	}, nil
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

func (s *RedisService) GetPreferences(wallet string) (models.Preferences, error) {
	key := fmt.Sprintf(KeyPreferences, wallet)

	data, err := s.client.Get(s.ctx, key).Result()
	if err == redis.Nil {
		return models.DefaultPreferences(), nil
	}
	if err != nil {
		return models.DefaultPreferences(), fmt.Errorf("failed to get preferences: %w", err)
	}

	prefs := models.DefaultPreferences()
	if err := json.Unmarshal([]byte(data), &prefs); err != nil {
		return models.DefaultPreferences(), fmt.Errorf("failed to unmarshal preferences: %w", err)
	}
	return prefs, nil
}

func (s *RedisService) SavePreferences(wallet string, prefs models.Preferences) error {
	key := fmt.Sprintf(KeyPreferences, wallet)

	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	return s.client.Set(s.ctx, key, data, 0).Err()
}

func (s *RedisService) SaveLeaderboard(entries []models.LeaderboardEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal leaderboard: %w", err)
	}
	return s.client.Set(s.ctx, KeyLeaderboardSnapshot, data, TTLLeaderboard).Err()
}

// GetLeaderboard returns the last saved board, or nil when none is cached.
func (s *RedisService) GetLeaderboard() ([]models.LeaderboardEntry, error) {
	data, err := s.client.Get(s.ctx, KeyLeaderboardSnapshot).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}

	var entries []models.LeaderboardEntry
	if err := json.Unmarshal([]byte(data), &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal leaderboard: %w", err)
	}
	return entries, nil
}

func (s *RedisService) CheckRateLimit(wallet, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, wallet, action)

	count, err := s.client.Incr(s.ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	if count == 1 {
		s.client.Expire(s.ctx, key, window)
	}

	return count <= int64(limit), nil
}

func (s *RedisService) ClearRateLimit(wallet, action string) error {
	return s.client.Del(s.ctx, fmt.Sprintf(KeyRateLimit, wallet, action)).Err()
}

func (s *RedisService) DeletePreferences(wallet string) error {
	return s.client.Del(s.ctx, fmt.Sprintf(KeyPreferences, wallet)).Err()
}
