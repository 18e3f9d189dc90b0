package account

import (
	"sort"

	log "github.com/sirupsen/logrus"

	"seeker-scratch/internal/address"
	"seeker-scratch/internal/models"
)

// DecodeLeaderboard decodes every candidate record, drops the ones that fail
// or show no activity, and orders the rest by monthly points. Ties keep
// discovery order.
func DecodeLeaderboard(records [][]byte) []models.LeaderboardEntry {
	entries := make([]models.LeaderboardEntry, 0, len(records))
	skipped := 0
	for _, data := range records {
		profile, err := DecodeProfile(data)
		if err != nil {
			skipped++
			log.WithError(err).Debug("leaderboard: skipping record")
			continue
		}
		if !profile.HasActivity() {
			continue
		}
		entries = append(entries, models.NewLeaderboardEntry(profile))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].PointsThisMonth > entries[j].PointsThisMonth
	})

	if skipped > 0 {
		log.WithField("skipped", skipped).Debug("leaderboard: decoded with skipped records")
	}
	return entries
}

// Rank returns the 1-based position of wallet, or false when absent.
func Rank(entries []models.LeaderboardEntry, wallet address.PublicKey) (int, bool) {
	for i, e := range entries {
		if e.Wallet == wallet {
			return i + 1, true
		}
	}
	return 0, false
}
