package services

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"seeker-scratch/internal/address"
	"seeker-scratch/internal/ledger"
)

const referralQueueSize = 64

// LogSource delivers program log notifications until ctx ends.
type LogSource interface {
	Run(ctx context.Context, handle func(ledger.LogNotification))
}

// ReferralAwarder submits the points award for a qualified referral.
type ReferralAwarder interface {
	AwardReferralPoints(ctx context.Context, referrer, referee address.PublicKey) (ledger.Signature, error)
}

// ReferralMonitor watches for qualified referrals and awards points once per
// referrer and referee pair.
type ReferralMonitor struct {
	source  LogSource
	awarder ReferralAwarder

	mu        sync.Mutex
	processed map[string]struct{}
}

func NewReferralMonitor(source LogSource, awarder ReferralAwarder) *ReferralMonitor {
	return &ReferralMonitor{
		source:    source,
		awarder:   awarder,
		processed: make(map[string]struct{}),
	}
}

// Run blocks until ctx is cancelled. Awards are submitted one at a time off
// the subscription's read loop.
func (m *ReferralMonitor) Run(ctx context.Context) {
	queue := make(chan ledger.ReferralQualified, referralQueueSize)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(queue)
		m.source.Run(ctx, func(n ledger.LogNotification) {
			if n.Failed() {
				return
			}
			for _, ev := range ledger.ParseReferralQualified(n.Logs) {
				if !m.claim(ev) {
					log.WithField("referee", ev.Referee.String()).Debug("referral: already processed, skipping")
					continue
				}
				select {
				case queue <- ev:
				case <-ctx.Done():
					return
				default:
					m.release(ev)
					log.WithField("referee", ev.Referee.String()).Warn("referral: award queue full, dropping event")
				}
			}
		})
		return nil
	})

	g.Go(func() error {
		for ev := range queue {
			m.award(ctx, ev)
		}
		return nil
	})

	_ = g.Wait()
}

func (m *ReferralMonitor) award(ctx context.Context, ev ledger.ReferralQualified) {
	fields := log.Fields{"referrer": ev.Referrer.String(), "referee": ev.Referee.String()}
	sig, err := m.awarder.AwardReferralPoints(ctx, ev.Referrer, ev.Referee)
	if err != nil {
		log.WithError(err).WithFields(fields).Warn("referral: award failed")
		return
	}
	log.WithFields(fields).WithField("signature", sig.String()).Info("referral: points awarded")
}

func qualificationKey(ev ledger.ReferralQualified) string {
	return ev.Referrer.String() + "-" + ev.Referee.String()
}

// claim marks ev as processed and reports whether it was new.
func (m *ReferralMonitor) claim(ev ledger.ReferralQualified) bool {
	key := qualificationKey(ev)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, seen := m.processed[key]; seen {
		return false
	}
	m.processed[key] = struct{}{}
	return true
}

func (m *ReferralMonitor) release(ev ledger.ReferralQualified) {
	m.mu.Lock()
	delete(m.processed, qualificationKey(ev))
	m.mu.Unlock()
}
