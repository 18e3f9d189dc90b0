package services

import (
	log "github.com/sirupsen/logrus"

	"seeker-scratch/internal/models"
)

// Settings keeps the feedback device in step with the stored sound and
// haptics toggles for one wallet.
type Settings struct {
	store  PreferenceStore
	device *FeedbackDevice
	wallet string
}

func NewSettings(store PreferenceStore, device *FeedbackDevice, wallet string) *Settings {
	return &Settings{store: store, device: device, wallet: wallet}
}

// Load applies the stored preferences. A store failure keeps the device's
// current toggles.
func (s *Settings) Load() models.Preferences {
	prefs, err := s.store.GetPreferences(s.wallet)
	if err != nil {
		log.WithError(err).Warn("settings: preferences unavailable, keeping current")
		return s.device.Preferences()
	}
	s.device.SetPreferences(prefs)
	return prefs
}

func (s *Settings) Get() models.Preferences {
	return s.device.Preferences()
}

// Update applies prefs immediately and persists them.
func (s *Settings) Update(prefs models.Preferences) error {
	s.device.SetPreferences(prefs)
	return s.store.SavePreferences(s.wallet, prefs)
}
