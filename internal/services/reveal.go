package services

import (
	"math"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"seeker-scratch/internal/models"
)

const (
	EarlyLossThreshold = 15
	RevealThreshold    = 60
	RevealCueDelay     = 200 * time.Millisecond

	DefaultSurfaceWidth  = 320
	DefaultSurfaceHeight = 160
	BrushRadius          = 30

	coveredAlpha     = 255
	transparentAlpha = 128
)

// UncoverSurface is a per-pixel alpha buffer over the hidden prize. Cleared
// pixels are never restored.
type UncoverSurface struct {
	width  int
	height int
	alpha  []uint8
}

func NewUncoverSurface(width, height int) *UncoverSurface {
	if width <= 0 {
		width = DefaultSurfaceWidth
	}
	if height <= 0 {
		height = DefaultSurfaceHeight
	}
	alpha := make([]uint8, width*height)
	for i := range alpha {
		alpha[i] = coveredAlpha
	}
	return &UncoverSurface{width: width, height: height, alpha: alpha}
}

func (s *UncoverSurface) Size() (int, int) {
	return s.width, s.height
}

// RevealCircle clears every pixel whose center lies within radius of (x, y).
func (s *UncoverSurface) RevealCircle(x, y, radius float64) {
	if radius <= 0 || math.IsNaN(x) || math.IsNaN(y) {
		return
	}
	minX := clampInt(int(math.Floor(x-radius)), 0, s.width)
	maxX := clampInt(int(math.Ceil(x+radius)), 0, s.width)
	minY := clampInt(int(math.Floor(y-radius)), 0, s.height)
	maxY := clampInt(int(math.Ceil(y+radius)), 0, s.height)
	r2 := radius * radius
	for py := minY; py < maxY; py++ {
		dy := float64(py) + 0.5 - y
		row := py * s.width
		for px := minX; px < maxX; px++ {
			dx := float64(px) + 0.5 - x
			if dx*dx+dy*dy <= r2 {
				s.alpha[row+px] = 0
			}
		}
	}
}

// UncoveredFraction is the rounded percentage of transparent pixels over the
// whole surface, in [0, 100].
func (s *UncoverSurface) UncoveredFraction() int {
	transparent := 0
	for _, a := range s.alpha {
		if a < transparentAlpha {
			transparent++
		}
	}
	pct := int(math.Round(float64(transparent) / float64(len(s.alpha)) * 100))
	return min(pct, 100)
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// scheduleFunc runs f after d and returns a function that cancels it.
type scheduleFunc func(d time.Duration, f func()) (stop func() bool)

func afterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// cueQueue collects feedback decided under the machine lock so it can be
// emitted, in order, after the lock is released.
type cueQueue []queuedCue

type queuedCue struct {
	sound  CueKind
	haptic HapticKind
	tier   WinTier
}

func (q *cueQueue) cue(kind CueKind, tier WinTier) {
	*q = append(*q, queuedCue{sound: kind, tier: tier})
}

func (q *cueQueue) haptic(kind HapticKind, tier WinTier) {
	*q = append(*q, queuedCue{haptic: kind, tier: tier})
}

func (q cueQueue) emit(f Feedback) {
	for _, c := range q {
		if c.sound != "" {
			f.Cue(c.sound, c.tier)
		} else {
			f.Haptic(c.haptic, c.tier)
		}
	}
}

type revealSession struct {
	id        string
	card      models.CardType
	prize     uint64
	phase     models.RevealPhase
	surface   *UncoverSurface
	uncovered int
	earlyLoss bool
	stopCue   func() bool
}

// RevealMachine drives one scratch session at a time: Idle, Purchased,
// Revealing, Revealed, with the early-loss flag set from Revealing.
type RevealMachine struct {
	mu       sync.Mutex
	feedback Feedback
	sink     Broadcaster
	schedule scheduleFunc
	width    int
	height   int
	session  *revealSession
}

func NewRevealMachine(feedback Feedback, sink Broadcaster) *RevealMachine {
	if sink == nil {
		sink = nopBroadcaster{}
	}
	return &RevealMachine{
		feedback: feedback,
		sink:     sink,
		schedule: afterFunc,
		width:    DefaultSurfaceWidth,
		height:   DefaultSurfaceHeight,
	}
}

// SetSurfaceSize sets the dimensions used by the next session.
func (m *RevealMachine) SetSurfaceSize(width, height int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if width > 0 {
		m.width = width
	}
	if height > 0 {
		m.height = height
	}
}

// Begin starts a session for a settled purchase, discarding any previous one.
func (m *RevealMachine) Begin(card models.CardType, prize uint64) models.RevealSnapshot {
	m.mu.Lock()
	m.discardLocked()
	m.session = &revealSession{
		id:      models.GenerateSessionID(),
		card:    card,
		prize:   prize,
		phase:   models.RevealPurchased,
		surface: NewUncoverSurface(m.width, m.height),
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	log.WithFields(log.Fields{"session": snap.SessionID, "card": card}).Debug("reveal: session started")
	m.sink.BroadcastReveal(snap)
	return snap
}

// Scratch applies one uncovering gesture at (x, y). Gestures after the
// reveal are ignored.
func (m *RevealMachine) Scratch(x, y float64) (models.RevealSnapshot, error) {
	m.mu.Lock()
	s := m.session
	if s == nil {
		m.mu.Unlock()
		return models.RevealSnapshot{Phase: models.RevealIdle, Hint: models.ProgressHint(0, false)}, ErrNoRevealSession
	}
	if s.phase == models.RevealRevealed {
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap, nil
	}
	if s.phase == models.RevealPurchased {
		s.phase = models.RevealRevealing
	}

	var cues cueQueue
	s.surface.RevealCircle(x, y, BrushRadius)
	cues.cue(CueScratchTick, TierNone)
	cues.haptic(HapticScratchTick, TierNone)

	s.uncovered = max(s.uncovered, s.surface.UncoveredFraction())

	if s.uncovered >= EarlyLossThreshold && s.prize == 0 && !s.earlyLoss {
		s.earlyLoss = true
		cues.cue(CueLose, TierNone)
		cues.haptic(HapticLose, TierNone)
	}

	if s.uncovered >= RevealThreshold {
		s.phase = models.RevealRevealed
		cues.cue(CueReveal, TierNone)
		s.stopCue = m.schedule(RevealCueDelay, func() { m.fireRevealCue(s) })
	}

	snap := m.snapshotLocked()
	m.mu.Unlock()

	cues.emit(m.feedback)
	m.sink.BroadcastReveal(snap)
	return snap, nil
}

func (m *RevealMachine) fireRevealCue(s *revealSession) {
	var cues cueQueue
	m.mu.Lock()
	if m.session == s {
		s.stopCue = nil
		switch {
		case s.prize > 0:
			tier := WinTierFor(s.prize)
			cues.cue(CueWin, tier)
			cues.haptic(HapticWin, tier)
		case !s.earlyLoss:
			cues.cue(CueLose, TierNone)
			cues.haptic(HapticLose, TierNone)
		}
	}
	m.mu.Unlock()

	cues.emit(m.feedback)
}

// Finish skips to the reveal after an early loss. The lose cue already
// played, so nothing else is emitted.
func (m *RevealMachine) Finish() (models.RevealSnapshot, error) {
	m.mu.Lock()
	s := m.session
	if s == nil || !s.earlyLoss || s.phase == models.RevealRevealed {
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap, ErrFinishUnavailable
	}
	s.phase = models.RevealRevealed
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.sink.BroadcastReveal(snap)
	return snap, nil
}

// Reset drops the current session from any state back to Idle.
func (m *RevealMachine) Reset() models.RevealSnapshot {
	m.mu.Lock()
	m.discardLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.feedback.Haptic(HapticLight, TierNone)
	m.sink.BroadcastReveal(snap)
	return snap
}

func (m *RevealMachine) Snapshot() models.RevealSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *RevealMachine) discardLocked() {
	if m.session != nil && m.session.stopCue != nil {
		m.session.stopCue()
	}
	m.session = nil
}

func (m *RevealMachine) snapshotLocked() models.RevealSnapshot {
	s := m.session
	if s == nil {
		return models.RevealSnapshot{Phase: models.RevealIdle, Hint: models.ProgressHint(0, false)}
	}
	revealed := s.phase == models.RevealRevealed
	prize := s.prize
	return models.RevealSnapshot{
		SessionID: s.id,
		Card:      s.card,
		Phase:     s.phase,
		Uncovered: s.uncovered,
		EarlyLoss: s.earlyLoss,
		Revealed:  revealed,
		Prize:     &prize,
		PrizeSOL:  models.LamportsToSOL(prize),
		CanFinish: s.earlyLoss && !revealed,
		Hint:      models.ProgressHint(s.uncovered, s.earlyLoss && !revealed),
	}
}
