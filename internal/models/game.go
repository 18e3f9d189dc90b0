package models

import "fmt"

type RevealPhase string

const (
	RevealIdle      RevealPhase = "idle"
	RevealPurchased RevealPhase = "purchased"
	RevealRevealing RevealPhase = "revealing"
	RevealRevealed  RevealPhase = "revealed"
)

// RevealSnapshot is a read-only view of one scratch session.
type RevealSnapshot struct {
	SessionID string      `json:"session_id,omitempty"`
	Card      CardType    `json:"card,omitempty"`
	Phase     RevealPhase `json:"phase"`
	Uncovered int         `json:"uncovered"`
	EarlyLoss bool        `json:"early_loss"`
	Revealed  bool        `json:"revealed"`
	Prize     *uint64     `json:"prize,omitempty"`
	PrizeSOL  float64     `json:"prize_sol"`
	CanFinish bool        `json:"can_finish"`
	Hint      string      `json:"hint"`
}

// ProgressHint is the caption shown under the scratch progress bar.
func ProgressHint(uncovered int, earlyLoss bool) string {
	switch {
	case earlyLoss:
		return "NO WIN — YOU CAN TRY AGAIN!"
	case uncovered < 30:
		return "SCRATCH TO REVEAL"
	case uncovered < 60:
		return fmt.Sprintf("%d%% REVEALED...", uncovered)
	default:
		return "ALMOST THERE!"
	}
}
