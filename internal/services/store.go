package services

import (
	"sync"
	"time"

	"seeker-scratch/internal/models"
)

type PreferenceStore interface {
	GetPreferences(wallet string) (models.Preferences, error)
	SavePreferences(wallet string, prefs models.Preferences) error
}

type LeaderboardCache interface {
	SaveLeaderboard(entries []models.LeaderboardEntry) error
	GetLeaderboard() ([]models.LeaderboardEntry, error)
}

type RateLimiter interface {
	CheckRateLimit(wallet, action string, limit int, window time.Duration) (bool, error)
}

// MemoryStore is the in-process fallback used when redis is unreachable.
type MemoryStore struct {
	mu          sync.Mutex
	prefs       map[string]models.Preferences
	leaderboard []models.LeaderboardEntry
}

var (
	_ PreferenceStore  = (*MemoryStore)(nil)
	_ LeaderboardCache = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		prefs: make(map[string]models.Preferences),
	}
}

func (m *MemoryStore) GetPreferences(wallet string) (models.Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.prefs[wallet]; ok {
		return p, nil
	}
	return models.DefaultPreferences(), nil
}

func (m *MemoryStore) SavePreferences(wallet string, prefs models.Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[wallet] = prefs
	return nil
}

func (m *MemoryStore) SaveLeaderboard(entries []models.LeaderboardEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaderboard = append([]models.LeaderboardEntry(nil), entries...)
	return nil
}

func (m *MemoryStore) GetLeaderboard() ([]models.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.LeaderboardEntry(nil), m.leaderboard...), nil
}
