package address

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

var testProgram = MustParsePublicKey("D6xSi3CG6fK1Y8rgwzvPFob4paPRxebGgR3DW3MiCubf")

func randomKey(r *rand.Rand) PublicKey {
	var k PublicKey
	r.Read(k[:])
	return k
}

func TestParsePublicKey_SystemProgram(t *testing.T) {
	k, err := ParsePublicKey("11111111111111111111111111111111")
	require.NoError(t, err)
	require.True(t, k.IsZero())
	require.Equal(t, "11111111111111111111111111111111", k.String())
}

func TestParsePublicKey_RoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		k := randomKey(r)
		parsed, err := ParsePublicKey(k.String())
		require.NoError(t, err)
		require.Equal(t, k, parsed)
	}
}

func TestParsePublicKey_Invalid(t *testing.T) {
	for _, s := range []string{"", "0OIl", "abc"} {
		_, err := ParsePublicKey(s)
		require.Error(t, err, "input %q", s)
	}
}

func TestShort(t *testing.T) {
	k := MustParsePublicKey("D6xSi3CG6fK1Y8rgwzvPFob4paPRxebGgR3DW3MiCubf")
	require.Equal(t, "D6xS...Cubf", k.Short())
}

func TestFindProgramAddress_OffCurveAndReproducible(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		owner := randomKey(r)
		seeds := [][]byte{[]byte("scratch_profile"), owner[:]}

		addr, bump, err := FindProgramAddress(seeds, testProgram)
		require.NoError(t, err)
		require.False(t, IsOnCurve(addr[:]))

		again, err := CreateProgramAddress(append(seeds, []byte{bump}), testProgram)
		require.NoError(t, err)
		require.Equal(t, addr, again)
	}
}

func TestCreateProgramAddress_SeedLimits(t *testing.T) {
	_, err := CreateProgramAddress([][]byte{make([]byte, MaxSeedLength+1)}, testProgram)
	require.Error(t, err)

	tooMany := make([][]byte, MaxSeeds+1)
	for i := range tooMany {
		tooMany[i] = []byte{byte(i)}
	}
	_, err = CreateProgramAddress(tooMany, testProgram)
	require.Error(t, err)
}

func TestDeriver_Deterministic(t *testing.T) {
	owner := randomKey(rand.New(rand.NewSource(1)))

	d1 := NewDeriver(testProgram)
	d2 := NewDeriver(testProgram)

	require.Equal(t, d1.TreasuryAddress(), d2.TreasuryAddress())
	require.Equal(t, d1.ProfileAddress(owner), d2.ProfileAddress(owner))
	require.Equal(t, d1.ProfileAddress(owner), d1.ProfileAddress(owner))
	require.Equal(t, d1.BonusAssetAddress(owner), d2.BonusAssetAddress(owner))

	// Same inputs through the cache and through a raw search agree.
	raw, _, err := FindProgramAddress([][]byte{[]byte("scratch_treasury")}, testProgram)
	require.NoError(t, err)
	require.Equal(t, raw, d1.TreasuryAddress())
}

func TestDeriver_DistinctCapabilitiesAndOwners(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	alice, bob := randomKey(r), randomKey(r)
	d := NewDeriver(testProgram)

	require.NotEqual(t, d.ProfileAddress(alice), d.ProfileAddress(bob))
	require.NotEqual(t, d.ProfileAddress(alice), d.BonusAssetAddress(alice))
	require.NotEqual(t, d.TreasuryAddress(), d.ProfileAddress(alice))
}

func TestDeriver_OwnerRequired(t *testing.T) {
	d := NewDeriver(testProgram)

	_, err := d.Derive(Profile, nil)
	require.ErrorIs(t, err, ErrOwnerRequired)

	_, err = d.Derive(BonusAsset, nil)
	require.ErrorIs(t, err, ErrOwnerRequired)

	_, err = d.Derive(Capability(99), nil)
	require.ErrorIs(t, err, ErrUnknownCapability)

	treasury, err := d.Derive(Treasury, nil)
	require.NoError(t, err)
	require.Equal(t, d.TreasuryAddress(), treasury.Address)
}

func TestPublicKey_JSON(t *testing.T) {
	k := MustParsePublicKey("D6xSi3CG6fK1Y8rgwzvPFob4paPRxebGgR3DW3MiCubf")
	b, err := k.MarshalJSON()
	require.NoError(t, err)
	require.Equal(t, `"D6xSi3CG6fK1Y8rgwzvPFob4paPRxebGgR3DW3MiCubf"`, string(b))

	var out PublicKey
	require.NoError(t, out.UnmarshalJSON(b))
	require.Equal(t, k, out)
}
