package services_test

import (
	"testing"
	"time"

	"seeker-scratch/internal/config"
	"seeker-scratch/internal/models"
	"seeker-scratch/internal/services"
)

func TestRedisService(t *testing.T) {
	cfg := &config.Config{
		RedisURL:  "localhost:6379",
		RedisPass: "",
		RedisDB:   0,
	}

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer redisService.Close()

	wallet := "TestWallet1111111111111111111111111111111111"
	defer redisService.DeletePreferences(wallet)
	defer redisService.ClearRateLimit(wallet, "buy")

	prefs, err := redisService.GetPreferences(wallet)
	if err != nil {
		t.Fatalf("Failed to get preferences: %v", err)
	}
	if prefs != models.DefaultPreferences() {
		t.Errorf("Expected default preferences, got %+v", prefs)
	}

	want := models.Preferences{SoundEnabled: false, HapticsEnabled: true}
	if err := redisService.SavePreferences(wallet, want); err != nil {
		t.Fatalf("Failed to save preferences: %v", err)
	}
	prefs, err = redisService.GetPreferences(wallet)
	if err != nil {
		t.Fatalf("Failed to get preferences after save: %v", err)
	}
	if prefs != want {
		t.Errorf("Expected %+v, got %+v", want, prefs)
	}

	entries := []models.LeaderboardEntry{
		{DisplayName: "alice", WalletShort: "AaAa...aAaA", PointsThisMonth: 120},
		{DisplayName: "bob", WalletShort: "BbBb...bBbB", PointsThisMonth: 40},
	}
	if err := redisService.SaveLeaderboard(entries); err != nil {
		t.Fatalf("Failed to save leaderboard: %v", err)
	}
	board, err := redisService.GetLeaderboard()
	if err != nil {
		t.Fatalf("Failed to get leaderboard: %v", err)
	}
	if len(board) != 2 || board[0].DisplayName != "alice" || board[1].PointsThisMonth != 40 {
		t.Errorf("Leaderboard did not survive the round trip: %+v", board)
	}

	allowed, err := redisService.CheckRateLimit(wallet, "buy", 1, time.Minute)
	if err != nil {
		t.Errorf("Failed to check rate limit: %v", err)
	}
	if !allowed {
		t.Error("First purchase should be allowed")
	}
	allowed, _ = redisService.CheckRateLimit(wallet, "buy", 1, time.Minute)
	if allowed {
		t.Error("Second purchase inside the window should be limited")
	}
}
