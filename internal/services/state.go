package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"seeker-scratch/internal/account"
	"seeker-scratch/internal/address"
	"seeker-scratch/internal/ledger"
	"seeker-scratch/internal/models"
)

// LedgerState caches what the UI reads from the ledger. Each field is written
// only by its own refresh routine.
type LedgerState struct {
	ledger  ledger.Ledger
	program *ledger.Program
	owner   *address.PublicKey
	sink    Broadcaster
	cache   LeaderboardCache

	mu            sync.RWMutex
	treasury      *models.Treasury
	vault         uint64
	vaultKnown    bool
	profile       *models.PlayerProfile
	balance       uint64
	balanceKnown  bool
	leaderboard   []models.LeaderboardEntry
	leaderboardAt time.Time
}

// NewLedgerState builds the caches. owner may be nil for a read-only client;
// cache and sink are optional.
func NewLedgerState(l ledger.Ledger, program *ledger.Program, owner *address.PublicKey, cache LeaderboardCache, sink Broadcaster) *LedgerState {
	if sink == nil {
		sink = nopBroadcaster{}
	}
	return &LedgerState{
		ledger:  l,
		program: program,
		owner:   owner,
		sink:    sink,
		cache:   cache,
	}
}

func (s *LedgerState) Owner() (address.PublicKey, bool) {
	if s.owner == nil {
		return address.PublicKey{}, false
	}
	return *s.owner, true
}

func (s *LedgerState) Treasury() *models.Treasury {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.treasury
}

// TreasuryLamports is the lamport balance held by the treasury address,
// which can differ from the record's own balance field.
func (s *LedgerState) TreasuryLamports() (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vault, s.vaultKnown
}

func (s *LedgerState) Profile() *models.PlayerProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

func (s *LedgerState) Balance() (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balance, s.balanceKnown
}

func (s *LedgerState) Leaderboard() ([]models.LeaderboardEntry, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.leaderboard, s.leaderboardAt
}

// Rank is the wallet's 1-based position on the cached leaderboard.
func (s *LedgerState) Rank(wallet address.PublicKey) (int, bool) {
	entries, _ := s.Leaderboard()
	return account.Rank(entries, wallet)
}

// RefreshTreasury re-reads the treasury record and the lamports at its
// address. A missing or undecodable record clears the cache; transport errors
// keep the last value.
func (s *LedgerState) RefreshTreasury(ctx context.Context) error {
	addr := s.program.Deriver().TreasuryAddress()
	data, err := s.ledger.GetAccount(ctx, addr)
	if err != nil && !errors.Is(err, ledger.ErrAccountNotFound) {
		return fmt.Errorf("failed to fetch treasury: %w", err)
	}

	var treasury *models.Treasury
	if err == nil {
		treasury, err = account.DecodeTreasury(data)
		if err != nil {
			log.WithError(err).Warn("state: treasury record unreadable")
		}
	}

	s.mu.Lock()
	s.treasury = treasury
	s.mu.Unlock()

	lamports, err := s.ledger.GetBalance(ctx, addr)
	if err != nil {
		return fmt.Errorf("failed to fetch treasury balance: %w", err)
	}
	s.mu.Lock()
	s.vault, s.vaultKnown = lamports, true
	s.mu.Unlock()
	return nil
}

func (s *LedgerState) RefreshProfile(ctx context.Context) error {
	if s.owner == nil {
		return nil
	}
	data, err := s.ledger.GetAccount(ctx, s.program.Deriver().ProfileAddress(*s.owner))
	if err != nil && !errors.Is(err, ledger.ErrAccountNotFound) {
		return fmt.Errorf("failed to fetch profile: %w", err)
	}

	var profile *models.PlayerProfile
	if err == nil {
		profile, err = account.DecodeProfile(data)
		if err != nil {
			log.WithError(err).Warn("state: profile record unreadable")
		}
	}

	s.mu.Lock()
	s.profile = profile
	s.mu.Unlock()
	return nil
}

func (s *LedgerState) RefreshBalance(ctx context.Context) error {
	if s.owner == nil {
		return nil
	}
	lamports, err := s.ledger.GetBalance(ctx, *s.owner)
	if err != nil {
		return fmt.Errorf("failed to fetch balance: %w", err)
	}

	s.mu.Lock()
	s.balance = lamports
	s.balanceKnown = true
	s.mu.Unlock()

	s.sink.BroadcastBalance(models.BalanceResponse{
		Owner:    *s.owner,
		Lamports: lamports,
		SOL:      models.LamportsToSOL(lamports),
	})
	return nil
}

// RefreshLeaderboard scans all profile records and rebuilds the board.
func (s *LedgerState) RefreshLeaderboard(ctx context.Context) error {
	accounts, err := s.ledger.GetProgramAccounts(ctx, s.program.ID(), ledger.ProfileFilter())
	if err != nil {
		return fmt.Errorf("failed to fetch leaderboard: %w", err)
	}

	records := make([][]byte, len(accounts))
	for i, a := range accounts {
		records[i] = a.Data
	}
	entries := account.DecodeLeaderboard(records)

	s.mu.Lock()
	s.leaderboard = entries
	s.leaderboardAt = time.Now()
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.SaveLeaderboard(entries); err != nil {
			log.WithError(err).Warn("state: leaderboard snapshot not saved")
		}
	}
	return nil
}

// WarmLeaderboard seeds an empty board from the cached snapshot.
func (s *LedgerState) WarmLeaderboard() {
	if s.cache == nil {
		return
	}
	entries, err := s.cache.GetLeaderboard()
	if err != nil || len(entries) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.leaderboard == nil {
		s.leaderboard = entries
	}
}

// Refresh re-reads treasury, profile and balance in parallel. Every read runs
// to completion; the first error is returned.
func (s *LedgerState) Refresh(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return s.RefreshTreasury(ctx) })
	g.Go(func() error { return s.RefreshProfile(ctx) })
	g.Go(func() error { return s.RefreshBalance(ctx) })
	return g.Wait()
}
