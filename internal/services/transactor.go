package services

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"seeker-scratch/internal/address"
	"seeker-scratch/internal/ledger"
)

const DefaultConfirmTimeout = 60 * time.Second

// Transactor builds, signs, submits and confirms transactions for the
// connected wallet. Each signed transaction is submitted at most once.
type Transactor struct {
	ledger  ledger.Ledger
	signer  Signer
	timeout time.Duration
}

func NewTransactor(l ledger.Ledger, signer Signer, timeout time.Duration) *Transactor {
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}
	return &Transactor{ledger: l, signer: signer, timeout: timeout}
}

// Owner returns the wallet address, or false when no signer is connected.
func (t *Transactor) Owner() (address.PublicKey, bool) {
	if t == nil || t.signer == nil {
		return address.PublicKey{}, false
	}
	return t.signer.PublicKey(), true
}

// Send runs one transaction to a terminal state. The whole exchange, from
// checkpoint fetch to confirmation, is bounded by the confirm timeout; the
// ledger's own expiry may end it sooner. Both surface as ErrTimeout.
func (t *Transactor) Send(ctx context.Context, instructions ...ledger.Instruction) (ledger.Signature, error) {
	var none ledger.Signature
	owner, ok := t.Owner()
	if !ok {
		return none, ErrSignerUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cp, err := t.ledger.LatestCheckpoint(ctx)
	if err != nil {
		return none, mapLedgerError(err)
	}

	msg, err := ledger.NewMessage(owner, instructions, cp)
	if err != nil {
		return none, &LedgerError{Message: err.Error(), Err: err}
	}

	sig, err := t.signer.SignMessage(ctx, msg.Serialize())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return none, ErrTimeout
		}
		log.WithError(err).Info("transactor: signature refused")
		return none, ErrWalletRejected
	}

	tx := ledger.NewTransaction(msg)
	if err := tx.AddSignature(owner, sig); err != nil {
		return none, &LedgerError{Message: err.Error(), Err: err}
	}
	raw, err := tx.Serialize()
	if err != nil {
		return none, &LedgerError{Message: err.Error(), Err: err}
	}

	submitted, err := t.ledger.Submit(ctx, raw)
	if err != nil {
		return none, mapLedgerError(err)
	}
	log.WithField("signature", submitted.String()).Debug("transactor: submitted")

	conf, err := t.ledger.Confirm(ctx, submitted, cp)
	if err != nil {
		return submitted, mapLedgerError(err)
	}
	switch conf.Status {
	case ledger.StatusConfirmed:
		return submitted, nil
	case ledger.StatusExpired:
		return submitted, ErrTimeout
	default:
		return submitted, &LedgerError{Message: conf.Err}
	}
}

func mapLedgerError(err error) error {
	switch {
	// The caller stopped waiting; whether the request landed is unknown, the
	// same as a deadline.
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrTimeout
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrInsufficientFunds):
		return err
	}

	var rpcErr *ledger.RPCError
	if errors.As(err, &rpcErr) {
		if ledger.IsInsufficientFunds(rpcErr.Message) {
			return ErrInsufficientFunds
		}
		if code, ok := ledger.ProgramErrorCode(rpcErr.Message); ok && code == ledger.CodeGamePaused {
			return &LedgerError{Message: rpcErr.Error(), Err: ErrGamePaused}
		}
	}
	return &LedgerError{Message: err.Error(), Err: err}
}
