package account

import (
	"seeker-scratch/internal/models"
)

func DecodeTreasury(data []byte) (*models.Treasury, error) {
	r := newReader(KindTreasury, data, MinTreasurySize)
	t := &models.Treasury{
		Discriminator:  r.discriminator(),
		Admin:          r.pubkey(),
		Balance:        r.u64(),
		TotalCardsSold: r.u64(),
		TotalPaidOut:   r.u64(),
		TotalProfit:    r.u64(),
		DailyPaidOut:   r.u64(),
		DayStartTime:   r.i64(),
		Paused:         r.boolean(),
		Bump:           r.u8(),
	}
	if r.err != nil {
		return nil, r.err
	}
	if t.Admin.IsZero() {
		return nil, &DecodeError{Kind: KindTreasury, Offset: DiscriminatorLength, Reason: "zero admin"}
	}
	return t, nil
}

func DecodeProfile(data []byte) (*models.PlayerProfile, error) {
	r := newReader(KindProfile, data, MinProfileSize)
	p := &models.PlayerProfile{
		Discriminator: r.discriminator(),
		Owner:         r.pubkey(),
	}
	if r.err == nil && p.Owner.IsZero() {
		return nil, &DecodeError{Kind: KindProfile, Offset: DiscriminatorLength, Reason: "zero owner"}
	}
	p.DisplayName = r.str(models.MaxDisplayNameLength)
	p.AvatarURL = r.str(models.MaxAvatarURLLength)
	p.PointsThisMonth = r.u64()
	p.PointsAllTime = r.u64()
	p.ReferralsCount = r.u32()
	p.CardsScratched = r.u32()
	p.TotalSpent = r.u64()
	p.TotalWon = r.u64()
	p.Wins = r.u32()
	p.BonusNFT = r.optionalPubkey()
	p.MultiplierCache = r.u8()
	p.ReferredBy = r.optionalPubkey()
	p.FirstPurchaseTime = r.i64()
	if r.err != nil {
		return nil, r.err
	}
	return p, nil
}

func DecodeBonusNFT(data []byte) (*models.BonusNFT, error) {
	r := newReader(KindBonusNFT, data, MinBonusNFTSize)
	n := &models.BonusNFT{
		Discriminator: r.discriminator(),
		Owner:         r.pubkey(),
	}
	tierIdx := r.u8()
	n.Multiplier = r.u8()
	n.MintDate = r.i64()
	n.TotalPointsEarned = r.u64()
	n.Bump = r.u8()
	if r.err != nil {
		return nil, r.err
	}
	if n.Owner.IsZero() {
		return nil, &DecodeError{Kind: KindBonusNFT, Offset: DiscriminatorLength, Reason: "zero owner"}
	}
	if int(tierIdx) >= len(models.NFTTiers) {
		return nil, &DecodeError{Kind: KindBonusNFT, Offset: DiscriminatorLength + 32, Reason: "unknown tier"}
	}
	n.Tier = models.NFTTiers[tierIdx]
	return n, nil
}

func EncodeTreasury(t *models.Treasury) []byte {
	w := &writer{buf: make([]byte, 0, MinTreasurySize)}
	w.raw(t.Discriminator[:])
	w.pubkey(t.Admin)
	w.u64(t.Balance)
	w.u64(t.TotalCardsSold)
	w.u64(t.TotalPaidOut)
	w.u64(t.TotalProfit)
	w.u64(t.DailyPaidOut)
	w.i64(t.DayStartTime)
	w.boolean(t.Paused)
	w.u8(t.Bump)
	return w.buf
}

func EncodeProfile(p *models.PlayerProfile) []byte {
	w := &writer{buf: make([]byte, 0, MinProfileSize+len(p.DisplayName)+len(p.AvatarURL)+64)}
	w.raw(p.Discriminator[:])
	w.pubkey(p.Owner)
	w.str(p.DisplayName)
	w.str(p.AvatarURL)
	w.u64(p.PointsThisMonth)
	w.u64(p.PointsAllTime)
	w.u32(p.ReferralsCount)
	w.u32(p.CardsScratched)
	w.u64(p.TotalSpent)
	w.u64(p.TotalWon)
	w.u32(p.Wins)
	w.optionalPubkey(p.BonusNFT)
	w.u8(p.MultiplierCache)
	w.optionalPubkey(p.ReferredBy)
	w.i64(p.FirstPurchaseTime)
	return w.buf
}

func EncodeBonusNFT(n *models.BonusNFT) []byte {
	idx, _ := n.Tier.Index()
	w := &writer{buf: make([]byte, 0, MinBonusNFTSize)}
	w.raw(n.Discriminator[:])
	w.pubkey(n.Owner)
	w.u8(idx)
	w.u8(n.Multiplier)
	w.i64(n.MintDate)
	w.u64(n.TotalPointsEarned)
	w.u8(n.Bump)
	return w.buf
}
