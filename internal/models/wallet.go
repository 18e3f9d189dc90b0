package models

import (
	"math"

	"seeker-scratch/internal/address"
)

// Treasury mirrors the on-ledger treasury record. Read-only for this client.
type Treasury struct {
	Discriminator [8]byte `json:"-"`

	Admin          address.PublicKey `json:"admin"`
	Balance        uint64            `json:"balance"`
	TotalCardsSold uint64            `json:"total_cards_sold"`
	TotalPaidOut   uint64            `json:"total_paid_out"`
	TotalProfit    uint64            `json:"total_profit"`
	DailyPaidOut   uint64            `json:"daily_paid_out"`
	DayStartTime   int64             `json:"day_start_time"`
	Paused         bool              `json:"paused"`
	Bump           uint8             `json:"bump"`
}

// PayoutRate is the percentage of settled volume paid back to players.
func (t *Treasury) PayoutRate() int {
	if t == nil {
		return 0
	}
	settled := float64(t.TotalPaidOut) + float64(t.TotalProfit)
	return int(math.Round(float64(t.TotalPaidOut) / math.Max(settled, 1) * 100))
}

// BonusNFT mirrors the on-ledger bonus asset record.
type BonusNFT struct {
	Discriminator [8]byte `json:"-"`

	Owner             address.PublicKey `json:"owner"`
	Tier              NFTTier           `json:"tier"`
	Multiplier        uint8             `json:"multiplier"`
	MintDate          int64             `json:"mint_date"`
	TotalPointsEarned uint64            `json:"total_points_earned"`
	Bump              uint8             `json:"bump"`
}

type BalanceResponse struct {
	Owner    address.PublicKey `json:"owner"`
	Lamports uint64            `json:"lamports"`
	SOL      float64           `json:"sol"`
}

type Preferences struct {
	SoundEnabled   bool `json:"sound"`
	HapticsEnabled bool `json:"haptics"`
}

func DefaultPreferences() Preferences {
	return Preferences{SoundEnabled: true, HapticsEnabled: true}
}
