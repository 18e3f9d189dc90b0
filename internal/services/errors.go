package services

import (
	"errors"
)

var (
	ErrInsufficientFunds = errors.New("Insufficient SOL balance")
	ErrWalletRejected    = errors.New("Transaction rejected by wallet")
	ErrTimeout           = errors.New("Transaction timed out. Please try again.")
	ErrPurchasePending   = errors.New("A purchase is already in progress")
	ErrSignerUnavailable = errors.New("Wallet not connected")
	ErrUnknownCard       = errors.New("Unknown card type")
	ErrGamePaused        = errors.New("Game is currently paused")
	ErrSelfReferral      = errors.New("Cannot refer yourself")
	ErrAlreadyReferred   = errors.New("This wallet has already been referred")
	ErrAlreadyHasNFT     = errors.New("Player already owns a Bonus NFT")
	ErrNothingToUpdate   = errors.New("Nothing to update")
	ErrRateLimited       = errors.New("Too many requests. Slow down.")

	ErrNoRevealSession   = errors.New("No card to scratch")
	ErrFinishUnavailable = errors.New("Finish is only available after an early loss")
)

const genericFailureMessage = "Transaction failed"

// LedgerError is a submission or confirmation failure. Message is the
// ledger's own text, shown to the user verbatim.
type LedgerError struct {
	Message string
	Err     error
}

func (e *LedgerError) Error() string {
	if e.Message == "" {
		return genericFailureMessage
	}
	return e.Message
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

// UserMessage is the text displayed for a failed operation.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return genericFailureMessage
}
