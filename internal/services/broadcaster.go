package services

import "seeker-scratch/internal/models"

// Broadcaster fans client events out to the connected UI. Implementations
// must not block the caller.
type Broadcaster interface {
	BroadcastFeedback(ev FeedbackEvent)
	BroadcastBalance(balance models.BalanceResponse)
	BroadcastReveal(snapshot models.RevealSnapshot)
}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastFeedback(FeedbackEvent)         {}
func (nopBroadcaster) BroadcastBalance(models.BalanceResponse) {}
func (nopBroadcaster) BroadcastReveal(models.RevealSnapshot)   {}
