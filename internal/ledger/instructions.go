package ledger

import (
	"crypto/sha256"
	"encoding/binary"

	"seeker-scratch/internal/address"
)

// Discriminator is the 8-byte tag the program prefixes to instructions,
// accounts and events: sha256("<namespace>:<name>")[:8].
func Discriminator(namespace, name string) [8]byte {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

func InstructionDiscriminator(name string) [8]byte {
	return Discriminator("global", name)
}

func AccountDiscriminator(name string) [8]byte {
	return Discriminator("account", name)
}

func EventDiscriminator(name string) [8]byte {
	return Discriminator("event", name)
}

var (
	ixBuyAndScratch       = InstructionDiscriminator("buy_and_scratch")
	ixUpdateProfile       = InstructionDiscriminator("update_profile")
	ixRegisterReferral    = InstructionDiscriminator("register_referral")
	ixMintBonusNFT        = InstructionDiscriminator("mint_bonus_nft")
	ixAwardReferralPoints = InstructionDiscriminator("award_referral_points")

	ProfileAccountDiscriminator = AccountDiscriminator("PlayerProfile")
)

// Program builds instructions for the scratch program, resolving its derived
// accounts through the deriver.
type Program struct {
	deriver *address.Deriver
}

func NewProgram(deriver *address.Deriver) *Program {
	return &Program{deriver: deriver}
}

func (p *Program) ID() address.PublicKey {
	return p.deriver.ProgramID()
}

func (p *Program) Deriver() *address.Deriver {
	return p.deriver
}

// ProfileFilter selects player profile records in a program account scan.
func ProfileFilter() Filter {
	return Filter{Offset: 0, Bytes: ProfileAccountDiscriminator[:]}
}

// BuyAndScratch purchases one card; cardIndex is the card's enum position.
func (p *Program) BuyAndScratch(player address.PublicKey, cardIndex uint8) Instruction {
	return Instruction{
		ProgramID: p.ID(),
		Accounts: []AccountMeta{
			Writable(p.deriver.TreasuryAddress(), false),
			Writable(p.deriver.ProfileAddress(player), false),
			Writable(player, true),
			Readonly(address.SystemProgramID),
		},
		Data: append(append([]byte(nil), ixBuyAndScratch[:]...), cardIndex),
	}
}

// UpdateProfile sets the display name and avatar; nil leaves a field as is.
func (p *Program) UpdateProfile(player address.PublicKey, name, avatar *string) Instruction {
	data := append([]byte(nil), ixUpdateProfile[:]...)
	data = appendOptionalString(data, name)
	data = appendOptionalString(data, avatar)
	return Instruction{
		ProgramID: p.ID(),
		Accounts: []AccountMeta{
			Writable(p.deriver.ProfileAddress(player), false),
			Writable(player, true),
			Readonly(address.SystemProgramID),
		},
		Data: data,
	}
}

func (p *Program) RegisterReferral(referee, referrer address.PublicKey) Instruction {
	return Instruction{
		ProgramID: p.ID(),
		Accounts: []AccountMeta{
			Writable(p.deriver.ProfileAddress(referee), false),
			Writable(p.deriver.ProfileAddress(referrer), false),
			Readonly(referrer),
			Writable(referee, true),
			Readonly(address.SystemProgramID),
		},
		Data: append([]byte(nil), ixRegisterReferral[:]...),
	}
}

// MintBonusNFT mints the player's bonus asset; tierIndex is the tier's enum
// position.
func (p *Program) MintBonusNFT(player address.PublicKey, tierIndex uint8) Instruction {
	return Instruction{
		ProgramID: p.ID(),
		Accounts: []AccountMeta{
			Writable(p.deriver.TreasuryAddress(), false),
			Writable(p.deriver.BonusAssetAddress(player), false),
			Writable(p.deriver.ProfileAddress(player), false),
			Writable(player, true),
			Readonly(address.SystemProgramID),
		},
		Data: append(append([]byte(nil), ixMintBonusNFT[:]...), tierIndex),
	}
}

func (p *Program) AwardReferralPoints(referrer, referee address.PublicKey) Instruction {
	return Instruction{
		ProgramID: p.ID(),
		Accounts: []AccountMeta{
			Writable(p.deriver.ProfileAddress(referee), false),
			Writable(p.deriver.ProfileAddress(referrer), false),
		},
		Data: append([]byte(nil), ixAwardReferralPoints[:]...),
	}
}

func appendOptionalString(b []byte, s *string) []byte {
	if s == nil {
		return append(b, 0)
	}
	b = append(b, 1)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(*s)))
	return append(b, *s...)
}
