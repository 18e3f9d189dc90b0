package models

import "seeker-scratch/internal/address"

// PlayerProfile mirrors the on-ledger profile record. Lamport amounts stay in
// the smallest unit; conversion happens at display time.
type PlayerProfile struct {
	Discriminator [8]byte `json:"-"`

	Owner             address.PublicKey  `json:"owner"`
	DisplayName       string             `json:"display_name"`
	AvatarURL         string             `json:"avatar_url"`
	PointsThisMonth   uint64             `json:"points_this_month"`
	PointsAllTime     uint64             `json:"points_all_time"`
	ReferralsCount    uint32             `json:"referrals_count"`
	CardsScratched    uint32             `json:"cards_scratched"`
	TotalSpent        uint64             `json:"total_spent"`
	TotalWon          uint64             `json:"total_won"`
	Wins              uint32             `json:"wins"`
	BonusNFT          *address.PublicKey `json:"bonus_nft,omitempty"`
	MultiplierCache   uint8              `json:"multiplier_cache"`
	ReferredBy        *address.PublicKey `json:"referred_by,omitempty"`
	FirstPurchaseTime int64              `json:"first_purchase_time"`
}

// Multiplier normalizes the cached bonus multiplier; zero means no bonus.
func (p *PlayerProfile) Multiplier() int {
	if p == nil || p.MultiplierCache == 0 {
		return 1
	}
	return int(p.MultiplierCache)
}

// HasActivity reports whether the profile belongs on the leaderboard.
func (p *PlayerProfile) HasActivity() bool {
	return p.CardsScratched > 0 || p.DisplayName != ""
}

type LeaderboardEntry struct {
	Wallet          address.PublicKey `json:"wallet"`
	WalletShort     string            `json:"wallet_short"`
	DisplayName     string            `json:"display_name"`
	AvatarURL       string            `json:"avatar_url"`
	PointsThisMonth uint64            `json:"points_this_month"`
	PointsAllTime   uint64            `json:"points_all_time"`
	CardsScratched  uint32            `json:"cards_scratched"`
	TotalWon        uint64            `json:"total_won"`
	Wins            uint32            `json:"wins"`
}

func NewLeaderboardEntry(p *PlayerProfile) LeaderboardEntry {
	return LeaderboardEntry{
		Wallet:          p.Owner,
		WalletShort:     p.Owner.Short(),
		DisplayName:     p.DisplayName,
		AvatarURL:       p.AvatarURL,
		PointsThisMonth: p.PointsThisMonth,
		PointsAllTime:   p.PointsAllTime,
		CardsScratched:  p.CardsScratched,
		TotalWon:        p.TotalWon,
		Wins:            p.Wins,
	}
}

// Label is the display name, falling back to the shortened wallet.
func (e LeaderboardEntry) Label() string {
	if e.DisplayName != "" {
		return e.DisplayName
	}
	return e.WalletShort
}
