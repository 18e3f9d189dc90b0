package models

import "time"

type TxStatus string

const (
	TxStatusIdle    TxStatus = "idle"
	TxStatusPending TxStatus = "pending"
	TxStatusSuccess TxStatus = "success"
	TxStatusError   TxStatus = "error"
)

// Settlement is the ephemeral record of one purchase attempt. Prize is nil
// until the purchase confirms.
type Settlement struct {
	ID            string    `json:"id"`
	Card          CardType  `json:"card"`
	Price         uint64    `json:"price"`
	BalanceBefore uint64    `json:"balance_before"`
	BalanceAfter  uint64    `json:"balance_after,omitempty"`
	Signature     string    `json:"signature,omitempty"`
	Status        TxStatus  `json:"status"`
	Prize         *uint64   `json:"prize,omitempty"`
	Error         string    `json:"error,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	ResolvedAt    time.Time `json:"resolved_at,omitempty"`
}

// PrizeSOL returns the inferred prize in SOL, or zero when unresolved.
func (s *Settlement) PrizeSOL() float64 {
	if s == nil || s.Prize == nil {
		return 0
	}
	return LamportsToSOL(*s.Prize)
}
