package services

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"seeker-scratch/internal/address"
	"seeker-scratch/internal/ledger"
	"seeker-scratch/internal/models"
)

var testProgramID = address.MustParsePublicKey("D6xSi3CG6fK1Y8rgwzvPFob4paPRxebGgR3DW3MiCubf")

// fakeLedger is an in-memory Ledger. Balance reads pop from balanceReads
// first, then fall back to balances.
type fakeLedger struct {
	mu sync.Mutex

	accounts        map[address.PublicKey][]byte
	balances        map[address.PublicKey]uint64
	balanceReads    []uint64
	programAccounts []ledger.KeyedAccount

	accountErr   error
	balanceErr   error
	submitErr    error
	confirmation ledger.Confirmation
	confirmErr   error
	confirmBlock bool

	// submitGate, when set, holds Submit until it is closed.
	submitGate    chan struct{}
	submitEntered chan struct{}
	// confirmGate, when set, holds Confirm until it is closed.
	confirmGate    chan struct{}
	confirmEntered chan struct{}

	submitted    [][]byte
	accountReads map[address.PublicKey]int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		accounts:     make(map[address.PublicKey][]byte),
		balances:     make(map[address.PublicKey]uint64),
		confirmation: ledger.Confirmation{Status: ledger.StatusConfirmed},
		accountReads: make(map[address.PublicKey]int),
	}
}

func (f *fakeLedger) GetAccount(_ context.Context, addr address.PublicKey) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accountReads[addr]++
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	data, ok := f.accounts[addr]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	return data, nil
}

func (f *fakeLedger) GetBalance(_ context.Context, owner address.PublicKey) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balanceErr != nil {
		return 0, f.balanceErr
	}
	if len(f.balanceReads) > 0 {
		v := f.balanceReads[0]
		f.balanceReads = f.balanceReads[1:]
		return v, nil
	}
	return f.balances[owner], nil
}

func (f *fakeLedger) LatestCheckpoint(context.Context) (ledger.Checkpoint, error) {
	var hash address.PublicKey
	for i := range hash {
		hash[i] = byte(i + 1)
	}
	return ledger.Checkpoint{Blockhash: hash.String(), LastValidBlockHeight: 1000}, nil
}

func (f *fakeLedger) Submit(ctx context.Context, tx []byte) (ledger.Signature, error) {
	f.mu.Lock()
	gate, entered := f.submitGate, f.submitEntered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ledger.Signature{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return ledger.Signature{}, f.submitErr
	}
	f.submitted = append(f.submitted, tx)

	var sig ledger.Signature
	copy(sig[:], tx[1:1+ledger.SignatureLength])
	return sig, nil
}

func (f *fakeLedger) Confirm(ctx context.Context, _ ledger.Signature, _ ledger.Checkpoint) (ledger.Confirmation, error) {
	f.mu.Lock()
	block, conf, err := f.confirmBlock, f.confirmation, f.confirmErr
	gate, entered := f.confirmGate, f.confirmEntered
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ledger.Confirmation{}, ctx.Err()
		}
	}
	if block {
		<-ctx.Done()
		return ledger.Confirmation{}, ctx.Err()
	}
	return conf, err
}

func (f *fakeLedger) GetProgramAccounts(_ context.Context, _ address.PublicKey, _ ...ledger.Filter) ([]ledger.KeyedAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	return f.programAccounts, nil
}

func (f *fakeLedger) readsOf(addr address.PublicKey) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accountReads[addr]
}

func (f *fakeLedger) submissions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submitted)
}

func (f *fakeLedger) set(fn func(f *fakeLedger)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

type rejectingSigner struct {
	key address.PublicKey
}

func (s rejectingSigner) PublicKey() address.PublicKey { return s.key }

func (s rejectingSigner) SignMessage(context.Context, []byte) (ledger.Signature, error) {
	return ledger.Signature{}, errors.New("user rejected the request")
}

func newTestSigner(t *testing.T, seed byte) *KeypairSigner {
	t.Helper()
	s := make([]byte, ed25519.SeedSize)
	for i := range s {
		s[i] = seed
	}
	signer, err := NewKeypairSigner(ed25519.NewKeyFromSeed(s))
	require.NoError(t, err)
	return signer
}

// recordingFeedback notes every cue and haptic as "cue:<kind>" or
// "haptic:<kind>", with ":<tier>" for wins.
type recordingFeedback struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingFeedback) Cue(kind CueKind, tier WinTier) {
	r.add("cue", string(kind), tier)
}

func (r *recordingFeedback) Haptic(kind HapticKind, tier WinTier) {
	r.add("haptic", string(kind), tier)
}

func (r *recordingFeedback) add(channel, kind string, tier WinTier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev := channel + ":" + kind
	if tier != TierNone {
		ev += ":" + string(tier)
	}
	r.events = append(r.events, ev)
}

func (r *recordingFeedback) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recordingFeedback) count(ev string) int {
	n := 0
	for _, e := range r.all() {
		if e == ev {
			n++
		}
	}
	return n
}

func (r *recordingFeedback) without(ev string) []string {
	var out []string
	for _, e := range r.all() {
		if e != ev {
			out = append(out, e)
		}
	}
	return out
}

// recordingSink is a Broadcaster that keeps everything it is handed.
type recordingSink struct {
	mu       sync.Mutex
	feedback []FeedbackEvent
	balances []models.BalanceResponse
	reveals  []models.RevealSnapshot
}

func (s *recordingSink) BroadcastFeedback(ev FeedbackEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedback = append(s.feedback, ev)
}

func (s *recordingSink) BroadcastBalance(b models.BalanceResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances = append(s.balances, b)
}

func (s *recordingSink) BroadcastReveal(snap models.RevealSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reveals = append(s.reveals, snap)
}

func (s *recordingSink) feedbackEvents() []FeedbackEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]FeedbackEvent(nil), s.feedback...)
}

// manualClock replaces the reveal cue timer. Nothing runs until fire.
type manualClock struct {
	mu      sync.Mutex
	pending []*manualTimer
}

type manualTimer struct {
	delay   time.Duration
	f       func()
	stopped bool
}

func (c *manualClock) schedule(d time.Duration, f func()) func() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{delay: d, f: f}
	c.pending = append(c.pending, t)
	return func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		was := !t.stopped
		t.stopped = true
		return was
	}
}

// fire runs every scheduled callback, stopped ones included when force is set.
func (c *manualClock) fire(force bool) int {
	c.mu.Lock()
	timers := c.pending
	c.pending = nil
	c.mu.Unlock()

	ran := 0
	for _, t := range timers {
		if t.stopped && !force {
			continue
		}
		t.f()
		ran++
	}
	return ran
}

func (c *manualClock) scheduled() []*manualTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*manualTimer(nil), c.pending...)
}

func mustCatalog(t *testing.T) *models.Catalog {
	t.Helper()
	catalog, err := models.LoadCatalog("")
	require.NoError(t, err)
	return catalog
}

func describe(events []string) string {
	return fmt.Sprintf("%v", events)
}
