package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"seeker-scratch/internal/ledger"
	"seeker-scratch/internal/models"
)

const (
	DefaultLeaderboardDelay = 2 * time.Second
	refreshTimeout          = 15 * time.Second
)

// InferPrize isolates the payout from a confirmed purchase: the price was
// debited in the same state change, so adding it back leaves what the ledger
// paid. Deltas at or below dust are fees, not prizes.
func InferPrize(before, after, price, dust uint64) uint64 {
	credited := after + price
	if credited <= before {
		return 0
	}
	delta := credited - before
	if delta <= dust {
		return 0
	}
	return delta
}

type SettlementOptions struct {
	// Positive deltas at or below this many lamports count as no prize.
	DustLamports     uint64
	LeaderboardDelay time.Duration
	RateLimiter      RateLimiter
}

// SettlementOrchestrator runs the purchase protocol and owns Settlement
// state. At most one purchase is in flight per instance. Settlements live in
// memory only: the latest one is replaced by the next confirmed purchase and
// dropped by Discard.
type SettlementOrchestrator struct {
	catalog    *models.Catalog
	ledger     ledger.Ledger
	program    *ledger.Program
	transactor *Transactor
	state      *LedgerState
	feedback   Feedback
	opts       SettlementOptions

	pending atomic.Bool

	mu        sync.Mutex
	last      *models.Settlement
	lastError string
	closed    bool
	board     *time.Timer
	refreshes sync.WaitGroup
}

func NewSettlementOrchestrator(catalog *models.Catalog, l ledger.Ledger, program *ledger.Program, transactor *Transactor, state *LedgerState, feedback Feedback, opts SettlementOptions) *SettlementOrchestrator {
	if opts.LeaderboardDelay <= 0 {
		opts.LeaderboardDelay = DefaultLeaderboardDelay
	}
	return &SettlementOrchestrator{
		catalog:    catalog,
		ledger:     l,
		program:    program,
		transactor: transactor,
		state:      state,
		feedback:   feedback,
		opts:       opts,
	}
}

// Purchase buys one card and reports the inferred prize. A rejected call
// leaves the previous successful settlement untouched. Cancelling ctx does not
// stop the purchase: a signed request cannot be recalled, so the confirm
// timeout is the only ceiling.
func (o *SettlementOrchestrator) Purchase(ctx context.Context, card models.CardType) (*models.Settlement, error) {
	ctx = context.WithoutCancel(ctx)

	product, ok := o.catalog.Get(card)
	if !ok {
		return nil, ErrUnknownCard
	}
	cardIndex, ok := card.Index()
	if !ok {
		return nil, ErrUnknownCard
	}
	owner, ok := o.transactor.Owner()
	if !ok {
		return nil, ErrSignerUnavailable
	}

	if !o.pending.CompareAndSwap(false, true) {
		return nil, ErrPurchasePending
	}
	defer o.pending.Store(false)

	if o.opts.RateLimiter != nil {
		allowed, err := o.opts.RateLimiter.CheckRateLimit(owner.String(), "buy", DefaultRateLimitBuys, time.Minute)
		if err != nil {
			log.WithError(err).Warn("settlement: rate limit check failed")
		} else if !allowed {
			return nil, ErrRateLimited
		}
	}

	if treasury := o.state.Treasury(); treasury != nil && treasury.Paused {
		return nil, o.fail(nil, ErrGamePaused)
	}

	o.feedback.Haptic(HapticLight, TierNone)

	before, err := o.ledger.GetBalance(ctx, owner)
	if err != nil {
		return nil, o.fail(nil, mapLedgerError(err))
	}
	if before < product.Price {
		log.WithFields(log.Fields{
			"card":    card,
			"balance": before,
			"price":   product.Price,
		}).Info("settlement: insufficient balance")
		return nil, o.fail(nil, ErrInsufficientFunds)
	}

	settlement := &models.Settlement{
		ID:            models.GenerateSettlementID(),
		Card:          card,
		Price:         product.Price,
		BalanceBefore: before,
		Status:        models.TxStatusPending,
		StartedAt:     time.Now(),
	}

	sig, err := o.transactor.Send(ctx, o.program.BuyAndScratch(owner, cardIndex))
	if !sig.IsZero() {
		settlement.Signature = sig.String()
	}
	if err != nil {
		err = o.fail(settlement, err)
		// The purchase may still have landed; only a later read can tell.
		if errors.Is(err, ErrTimeout) {
			o.refreshAsync()
		}
		return settlement, err
	}

	after, err := o.ledger.GetBalance(ctx, owner)
	if err != nil {
		err = o.fail(settlement, &LedgerError{Message: "Purchase confirmed but balance could not be read", Err: err})
		o.refreshAsync()
		return settlement, err
	}

	prize := InferPrize(before, after, product.Price, o.opts.DustLamports)
	settlement.BalanceAfter = after
	settlement.Prize = &prize
	settlement.Status = models.TxStatusSuccess
	settlement.ResolvedAt = time.Now()

	o.feedback.Cue(CueBuy, TierNone)

	o.mu.Lock()
	o.last = settlement
	o.lastError = ""
	o.mu.Unlock()

	log.WithFields(log.Fields{
		"settlement": settlement.ID,
		"card":       card,
		"signature":  settlement.Signature,
		"prize":      prize,
	}).Info("settlement: purchase confirmed")

	o.refreshAsync()
	o.scheduleLeaderboard()

	return settlement, nil
}

// fail records a purchase-path error for display. settlement is nil when
// the request never reached submission.
func (o *SettlementOrchestrator) fail(settlement *models.Settlement, err error) error {
	o.mu.Lock()
	o.lastError = UserMessage(err)
	o.mu.Unlock()

	if settlement == nil {
		return err
	}
	settlement.Status = models.TxStatusError
	settlement.Error = UserMessage(err)
	settlement.ResolvedAt = time.Now()

	log.WithError(err).WithField("settlement", settlement.ID).Warn("settlement: purchase failed")
	return err
}

// refreshAsync re-reads treasury, profile and balance without holding up
// the caller.
func (o *SettlementOrchestrator) refreshAsync() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.refreshes.Add(1)
	o.mu.Unlock()

	go func() {
		defer o.refreshes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if err := o.state.Refresh(ctx); err != nil {
			log.WithError(err).Warn("settlement: post-purchase refresh failed")
		}
	}()
}

func (o *SettlementOrchestrator) scheduleLeaderboard() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	if o.board != nil {
		o.board.Stop()
	}
	o.board = time.AfterFunc(o.opts.LeaderboardDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if err := o.state.RefreshLeaderboard(ctx); err != nil {
			log.WithError(err).Warn("settlement: leaderboard refresh failed")
		}
	})
}

// Pending reports whether a purchase is in flight.
func (o *SettlementOrchestrator) Pending() bool {
	return o.pending.Load()
}

// LastSettlement is the most recent confirmed purchase and the message of
// the most recent failure, if it came later.
func (o *SettlementOrchestrator) LastSettlement() (*models.Settlement, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last, o.lastError
}

// Discard drops the last settlement and error, as when the player closes
// the card.
func (o *SettlementOrchestrator) Discard() {
	o.mu.Lock()
	o.last = nil
	o.lastError = ""
	o.mu.Unlock()
}

// Close cancels the delayed leaderboard refresh and waits for background
// reads to finish.
func (o *SettlementOrchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	if o.board != nil {
		o.board.Stop()
		o.board = nil
	}
	o.mu.Unlock()
	o.refreshes.Wait()
}
