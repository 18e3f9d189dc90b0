package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"seeker-scratch/internal/account"
	"seeker-scratch/internal/address"
	"seeker-scratch/internal/ledger"
	"seeker-scratch/internal/models"
)

func newTestActions(t *testing.T) (*AccountActions, *fakeLedger, *ledger.Program, address.PublicKey) {
	t.Helper()
	l := newFakeLedger()
	program := ledger.NewProgram(address.NewDeriver(testProgramID))
	signer := newTestSigner(t, 30)
	owner := signer.PublicKey()
	state := NewLedgerState(l, program, &owner, nil, nil)
	return NewAccountActions(l, program, NewTransactor(l, signer, time.Second), state), l, program, owner
}

func strPtr(s string) *string { return &s }

func TestUpdateProfile_ValidatesBeforeSubmitting(t *testing.T) {
	actions, l, program, owner := newTestActions(t)
	ctx := context.Background()

	_, err := actions.UpdateProfile(ctx, nil, nil)
	require.ErrorIs(t, err, ErrNothingToUpdate)
	_, err = actions.UpdateProfile(ctx, strPtr("no-dashes"), nil)
	require.ErrorIs(t, err, models.ErrInvalidName)
	_, err = actions.UpdateProfile(ctx, strPtr(strings.Repeat("a", 17)), nil)
	require.ErrorIs(t, err, models.ErrNameTooLong)
	_, err = actions.UpdateProfile(ctx, nil, strPtr(strings.Repeat("x", 129)))
	require.ErrorIs(t, err, models.ErrAvatarTooLong)
	require.Zero(t, l.submissions())

	l.accounts[program.Deriver().ProfileAddress(owner)] = account.EncodeProfile(&models.PlayerProfile{
		Owner:       owner,
		DisplayName: "lucky_7",
	})
	_, err = actions.UpdateProfile(ctx, strPtr("lucky_7"), nil)
	require.NoError(t, err)
	require.Equal(t, 1, l.submissions())
	require.Equal(t, "lucky_7", actions.state.Profile().DisplayName)
}

func TestRegisterReferral_LocalChecks(t *testing.T) {
	actions, l, program, owner := newTestActions(t)
	ctx := context.Background()

	_, err := actions.RegisterReferral(ctx, owner)
	require.ErrorIs(t, err, ErrSelfReferral)

	referrer := newTestSigner(t, 31).PublicKey()
	l.accounts[program.Deriver().ProfileAddress(owner)] = account.EncodeProfile(&models.PlayerProfile{
		Owner:      owner,
		ReferredBy: &referrer,
	})
	require.NoError(t, actions.state.RefreshProfile(ctx))

	_, err = actions.RegisterReferral(ctx, newTestSigner(t, 32).PublicKey())
	require.ErrorIs(t, err, ErrAlreadyReferred)
	require.Zero(t, l.submissions())
}

func TestMintBonusNFT(t *testing.T) {
	actions, l, program, owner := newTestActions(t)
	ctx := context.Background()

	_, err := actions.MintBonusNFT(ctx, models.NFTTier("Bronze"))
	require.Error(t, err)

	_, err = actions.MintBonusNFT(ctx, models.NFTGold)
	require.NoError(t, err)
	require.Equal(t, 1, l.submissions())

	nftAddr := program.Deriver().BonusAssetAddress(owner)
	l.accounts[program.Deriver().ProfileAddress(owner)] = account.EncodeProfile(&models.PlayerProfile{
		Owner:           owner,
		BonusNFT:        &nftAddr,
		MultiplierCache: 5,
	})
	require.NoError(t, actions.state.RefreshProfile(ctx))
	_, err = actions.MintBonusNFT(ctx, models.NFTDiamond)
	require.ErrorIs(t, err, ErrAlreadyHasNFT)

	nft, err := actions.BonusNFT(ctx, owner)
	require.NoError(t, err)
	require.Nil(t, nft)

	l.accounts[nftAddr] = account.EncodeBonusNFT(&models.BonusNFT{Owner: owner, Tier: models.NFTGold, Multiplier: 5})
	nft, err = actions.BonusNFT(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, models.NFTGold, nft.Tier)
}
