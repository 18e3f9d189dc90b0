package services

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTreasuryInterval    = 30 * time.Second
	DefaultLeaderboardInterval = 60 * time.Second
)

// Poller runs one refresh routine immediately and then on a fixed interval.
type Poller struct {
	name     string
	interval time.Duration
	refresh  func(ctx context.Context) error
}

func NewPoller(name string, interval time.Duration, refresh func(ctx context.Context) error) *Poller {
	if refresh == nil || interval <= 0 {
		return nil
	}
	return &Poller{name: name, interval: interval, refresh: refresh}
}

// Run blocks until ctx is cancelled. Refresh errors are logged and the loop
// keeps going.
func (p *Poller) Run(ctx context.Context) {
	if p == nil {
		return
	}
	for {
		if ctx.Err() != nil {
			return
		}
		if err := p.refresh(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Warnf("poller: %s refresh failed", p.name)
		}
		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

// PollerGroup owns a set of pollers whose lifetime ends with Stop.
type PollerGroup struct {
	pollers []*Poller

	mu     sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
}

func NewPollerGroup(pollers ...*Poller) *PollerGroup {
	g := &PollerGroup{}
	for _, p := range pollers {
		if p != nil {
			g.pollers = append(g.pollers, p)
		}
	}
	return g
}

// Start launches every poller. Calling Start on a running group is a no-op.
func (g *PollerGroup) Start(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	group, ctx := errgroup.WithContext(ctx)
	for _, p := range g.pollers {
		group.Go(func() error {
			p.Run(ctx)
			return nil
		})
		log.Infof("poller: %s started (interval=%s)", p.name, p.interval)
	}
	g.cancel = cancel
	g.group = group
}

// Stop cancels every poller and waits for in-flight refreshes to return.
func (g *PollerGroup) Stop() {
	g.mu.Lock()
	cancel, group := g.cancel, g.group
	g.cancel, g.group = nil, nil
	g.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	_ = group.Wait()
}

// NewStatePollers wires the treasury and leaderboard refresh schedule.
func NewStatePollers(state *LedgerState, treasuryEvery, leaderboardEvery time.Duration) *PollerGroup {
	if treasuryEvery <= 0 {
		treasuryEvery = DefaultTreasuryInterval
	}
	if leaderboardEvery <= 0 {
		leaderboardEvery = DefaultLeaderboardInterval
	}
	return NewPollerGroup(
		NewPoller("treasury", treasuryEvery, state.RefreshTreasury),
		NewPoller("leaderboard", leaderboardEvery, state.RefreshLeaderboard),
	)
}
