package services

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"seeker-scratch/internal/account"
	"seeker-scratch/internal/address"
	"seeker-scratch/internal/ledger"
	"seeker-scratch/internal/models"
)

// AccountActions covers the profile-side writes: display name and avatar,
// referral registration, and the bonus multiplier asset.
type AccountActions struct {
	ledger     ledger.Ledger
	program    *ledger.Program
	transactor *Transactor
	state      *LedgerState
}

func NewAccountActions(l ledger.Ledger, program *ledger.Program, transactor *Transactor, state *LedgerState) *AccountActions {
	return &AccountActions{
		ledger:     l,
		program:    program,
		transactor: transactor,
		state:      state,
	}
}

// UpdateProfile sets the display name and/or avatar. Nil leaves a field
// unchanged on the ledger.
func (a *AccountActions) UpdateProfile(ctx context.Context, name, avatar *string) (ledger.Signature, error) {
	var none ledger.Signature
	if name == nil && avatar == nil {
		return none, ErrNothingToUpdate
	}
	if name != nil {
		if err := models.ValidateDisplayName(*name); err != nil {
			return none, err
		}
	}
	if avatar != nil {
		if err := models.ValidateAvatarURL(*avatar); err != nil {
			return none, err
		}
	}
	owner, ok := a.transactor.Owner()
	if !ok {
		return none, ErrSignerUnavailable
	}

	sig, err := a.transactor.Send(ctx, a.program.UpdateProfile(owner, name, avatar))
	if err != nil {
		return sig, err
	}
	a.refreshProfile(ctx)
	return sig, nil
}

// RegisterReferral records referrer as the connected wallet's referrer.
func (a *AccountActions) RegisterReferral(ctx context.Context, referrer address.PublicKey) (ledger.Signature, error) {
	var none ledger.Signature
	owner, ok := a.transactor.Owner()
	if !ok {
		return none, ErrSignerUnavailable
	}
	if referrer.IsZero() {
		return none, fmt.Errorf("invalid referrer address")
	}
	if referrer.Equals(owner) {
		return none, ErrSelfReferral
	}
	if profile := a.state.Profile(); profile != nil && profile.ReferredBy != nil {
		return none, ErrAlreadyReferred
	}

	sig, err := a.transactor.Send(ctx, a.program.RegisterReferral(owner, referrer))
	if err != nil {
		return sig, err
	}
	a.refreshProfile(ctx)
	return sig, nil
}

// MintBonusNFT mints the multiplier asset at the given tier.
func (a *AccountActions) MintBonusNFT(ctx context.Context, tier models.NFTTier) (ledger.Signature, error) {
	var none ledger.Signature
	index, ok := tier.Index()
	if !ok {
		return none, fmt.Errorf("invalid NFT tier: %s", tier)
	}
	owner, ok := a.transactor.Owner()
	if !ok {
		return none, ErrSignerUnavailable
	}
	if profile := a.state.Profile(); profile != nil && profile.BonusNFT != nil {
		return none, ErrAlreadyHasNFT
	}

	sig, err := a.transactor.Send(ctx, a.program.MintBonusNFT(owner, index))
	if err != nil {
		return sig, err
	}
	a.refreshProfile(ctx)
	return sig, nil
}

// AwardReferralPoints credits referrer for a referee's first purchase.
func (a *AccountActions) AwardReferralPoints(ctx context.Context, referrer, referee address.PublicKey) (ledger.Signature, error) {
	if _, ok := a.transactor.Owner(); !ok {
		return ledger.Signature{}, ErrSignerUnavailable
	}
	return a.transactor.Send(ctx, a.program.AwardReferralPoints(referrer, referee))
}

// BonusNFT fetches the owner's bonus asset record. A missing or unreadable
// record is reported as nil without error.
func (a *AccountActions) BonusNFT(ctx context.Context, owner address.PublicKey) (*models.BonusNFT, error) {
	data, err := a.ledger.GetAccount(ctx, a.program.Deriver().BonusAssetAddress(owner))
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bonus NFT: %w", err)
	}
	nft, err := account.DecodeBonusNFT(data)
	if err != nil {
		log.WithError(err).Debug("actions: bonus NFT record unreadable")
		return nil, nil
	}
	return nft, nil
}

func (a *AccountActions) refreshProfile(ctx context.Context) {
	if err := a.state.RefreshProfile(ctx); err != nil {
		log.WithError(err).Warn("actions: profile refresh failed")
	}
}
