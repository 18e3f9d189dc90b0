package services

import (
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"seeker-scratch/internal/models"
)

const ScratchTickInterval = 50 * time.Millisecond

type CueKind string

const (
	CueBuy         CueKind = "buy"
	CueScratchTick CueKind = "scratch_tick"
	CueReveal      CueKind = "reveal"
	CueWin         CueKind = "win"
	CueLose        CueKind = "lose"
)

type HapticKind string

const (
	HapticLight       HapticKind = "light"
	HapticScratchTick HapticKind = "scratch_tick"
	HapticWin         HapticKind = "win"
	HapticLose        HapticKind = "lose"
)

// WinTier scales celebration intensity with the prize.
type WinTier string

const (
	TierNone    WinTier = ""
	TierSmall   WinTier = "small"
	TierMedium  WinTier = "medium"
	TierJackpot WinTier = "jackpot"
)

func WinTierFor(prize uint64) WinTier {
	switch {
	case prize >= models.LamportsPerSOL:
		return TierJackpot
	case prize >= models.LamportsPerSOL/10:
		return TierMedium
	case prize > 0:
		return TierSmall
	default:
		return TierNone
	}
}

// Particles is the confetti count for the tier.
func (t WinTier) Particles() int {
	switch t {
	case TierJackpot:
		return 80
	case TierMedium:
		return 60
	case TierSmall:
		return 40
	default:
		return 0
	}
}

// Vibration patterns in milliseconds, alternating on and off.
var hapticPatterns = map[HapticKind][]int{
	HapticLight:       {10},
	HapticScratchTick: {5},
	HapticLose:        {15, 50, 15},
}

var winPatterns = map[WinTier][]int{
	TierJackpot: {50, 30, 50, 30, 100, 50, 150},
	TierMedium:  {30, 20, 50, 20, 80},
	TierSmall:   {20, 15, 40},
}

type Channel string

const (
	ChannelSound  Channel = "sound"
	ChannelHaptic Channel = "haptic"
)

type FeedbackEvent struct {
	Channel   Channel   `json:"channel"`
	Kind      string    `json:"kind"`
	Tier      WinTier   `json:"tier,omitempty"`
	Pattern   []int     `json:"pattern,omitempty"`
	Particles int       `json:"particles,omitempty"`
	At        time.Time `json:"at"`
}

// Feedback is the audio and haptic surface used by the purchase and reveal
// flows. Calls never block and never fail.
type Feedback interface {
	Cue(kind CueKind, tier WinTier)
	Haptic(kind HapticKind, tier WinTier)
}

// FeedbackDevice emits cues to a Broadcaster, honoring the sound and haptics
// toggles and rate-limiting scratch ticks per channel.
type FeedbackDevice struct {
	sink    Broadcaster
	sound   atomic.Bool
	haptics atomic.Bool

	mu       sync.Mutex
	lastTick map[Channel]time.Time
	now      func() time.Time
}

var _ Feedback = (*FeedbackDevice)(nil)

func NewFeedbackDevice(sink Broadcaster, prefs models.Preferences) *FeedbackDevice {
	if sink == nil {
		sink = nopBroadcaster{}
	}
	d := &FeedbackDevice{
		sink:     sink,
		lastTick: make(map[Channel]time.Time),
		now:      time.Now,
	}
	d.SetPreferences(prefs)
	return d
}

func (d *FeedbackDevice) SetPreferences(p models.Preferences) {
	d.sound.Store(p.SoundEnabled)
	d.haptics.Store(p.HapticsEnabled)
}

func (d *FeedbackDevice) Preferences() models.Preferences {
	return models.Preferences{SoundEnabled: d.sound.Load(), HapticsEnabled: d.haptics.Load()}
}

func (d *FeedbackDevice) Cue(kind CueKind, tier WinTier) {
	if !d.sound.Load() {
		return
	}
	ev := FeedbackEvent{Channel: ChannelSound, Kind: string(kind)}
	if kind == CueWin {
		ev.Tier = tier
		ev.Particles = tier.Particles()
	}
	d.emit(ev, kind == CueScratchTick)
}

func (d *FeedbackDevice) Haptic(kind HapticKind, tier WinTier) {
	if !d.haptics.Load() {
		return
	}
	ev := FeedbackEvent{Channel: ChannelHaptic, Kind: string(kind), Pattern: hapticPatterns[kind]}
	if kind == HapticWin {
		ev.Tier = tier
		ev.Pattern = winPatterns[tier]
	}
	d.emit(ev, kind == HapticScratchTick)
}

func (d *FeedbackDevice) emit(ev FeedbackEvent, tick bool) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Warn("feedback: sink panicked")
		}
	}()

	now := d.now()
	if tick {
		d.mu.Lock()
		last, seen := d.lastTick[ev.Channel]
		if seen && now.Sub(last) <= ScratchTickInterval {
			d.mu.Unlock()
			return
		}
		d.lastTick[ev.Channel] = now
		d.mu.Unlock()
	}
	ev.At = now
	d.sink.BroadcastFeedback(ev)
}
