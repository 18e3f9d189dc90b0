package services

import "time"

const (
	KeyPreferences         = "wallet:%s:preferences"
	KeyLeaderboardSnapshot = "leaderboard:snapshot"
	KeyRateLimit           = "ratelimit:%s:%s"

	TTLLeaderboard = 10 * time.Minute
	TTLBridgeToken = 24 * time.Hour

	DefaultRateLimitBuys    = 30  // Max 30 purchases per minute
	DefaultRateLimitScratch = 600 // Max 600 scratch gestures per minute
)
