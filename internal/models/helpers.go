package models

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	LamportsPerSOL = 1_000_000_000

	MaxDisplayNameLength = 16
	MaxAvatarURLLength   = 128
)

var (
	ErrNameTooLong   = errors.New("Name too long (max 16 characters)")
	ErrInvalidName   = errors.New("Invalid name (alphanumeric, spaces, underscores only)")
	ErrAvatarTooLong = errors.New("PFP URL too long (max 128 characters)")
)

func GenerateSettlementID() string {
	return fmt.Sprintf("settle_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func GenerateSessionID() string {
	return uuid.New().String()
}

func LamportsToSOL(lamports uint64) float64 {
	return float64(lamports) / LamportsPerSOL
}

// SOLToLamports converts a display amount, truncating sub-lamport fractions.
func SOLToLamports(sol float64) uint64 {
	if sol <= 0 {
		return 0
	}
	return uint64(sol * LamportsPerSOL)
}

func FormatSOL(lamports uint64) string {
	sol := LamportsToSOL(lamports)
	if lamports%(LamportsPerSOL/100) == 0 {
		return fmt.Sprintf("%g SOL", sol)
	}
	return fmt.Sprintf("%.3f SOL", sol)
}

// ValidateDisplayName enforces the ledger's profile name rules.
func ValidateDisplayName(name string) error {
	if utf8.RuneCountInString(name) > MaxDisplayNameLength || len(name) > MaxDisplayNameLength {
		return ErrNameTooLong
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == ' ', r == '_':
		default:
			return ErrInvalidName
		}
	}
	return nil
}

func ValidateAvatarURL(url string) error {
	if len(url) > MaxAvatarURLLength {
		return ErrAvatarTooLong
	}
	return nil
}

type NFTTier string

const (
	NFTSilver   NFTTier = "Silver"
	NFTGold     NFTTier = "Gold"
	NFTPlatinum NFTTier = "Platinum"
	NFTDiamond  NFTTier = "Diamond"
)

// NFTTiers lists bonus tiers in on-ledger enum order.
var NFTTiers = []NFTTier{NFTSilver, NFTGold, NFTPlatinum, NFTDiamond}

var nftMultipliers = map[NFTTier]int{
	NFTSilver:   2,
	NFTGold:     5,
	NFTPlatinum: 10,
	NFTDiamond:  20,
}

func (t NFTTier) Index() (uint8, bool) {
	for i, tier := range NFTTiers {
		if tier == t {
			return uint8(i), true
		}
	}
	return 0, false
}

func (t NFTTier) Multiplier() int {
	return nftMultipliers[t]
}

// TierForMultiplier maps a profile's multiplier cache back to its tier.
func TierForMultiplier(multiplier int) (NFTTier, bool) {
	for tier, m := range nftMultipliers {
		if m == multiplier {
			return tier, true
		}
	}
	return "", false
}

func ParseNFTTier(s string) (NFTTier, error) {
	for _, tier := range NFTTiers {
		if string(tier) == s {
			return tier, nil
		}
	}
	return "", fmt.Errorf("invalid NFT tier: %s", s)
}
