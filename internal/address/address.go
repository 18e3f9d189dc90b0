package address

import (
	"bytes"
	"encoding/json"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/cosmos/btcutil/base58"
)

const PublicKeyLength = 32

// PublicKey is an ed25519 account identity or a program-derived address.
type PublicKey [PublicKeyLength]byte

// SystemProgramID is the all-zero identity. Records owned by it are not real records.
var SystemProgramID = PublicKey{}

func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var k PublicKey
	if len(b) != PublicKeyLength {
		return k, fmt.Errorf("public key: expected %d bytes, got %d", PublicKeyLength, len(b))
	}
	copy(k[:], b)
	return k, nil
}

func ParsePublicKey(s string) (PublicKey, error) {
	if s == "" {
		return PublicKey{}, fmt.Errorf("public key: empty string")
	}
	raw := base58.Decode(s)
	if len(raw) == 0 {
		return PublicKey{}, fmt.Errorf("public key: invalid base58 %q", s)
	}
	return PublicKeyFromBytes(raw)
}

func MustParsePublicKey(s string) PublicKey {
	k, err := ParsePublicKey(s)
	if err != nil {
		panic(err)
	}
	return k
}

func (k PublicKey) String() string {
	return base58.Encode(k[:])
}

// Short renders the key as "abcd...wxyz" for display.
func (k PublicKey) Short() string {
	s := k.String()
	if len(s) <= 8 {
		return s
	}
	return s[:4] + "..." + s[len(s)-4:]
}

func (k PublicKey) Bytes() []byte {
	out := make([]byte, PublicKeyLength)
	copy(out, k[:])
	return out
}

func (k PublicKey) IsZero() bool {
	return k == SystemProgramID
}

func (k PublicKey) Equals(other PublicKey) bool {
	return bytes.Equal(k[:], other[:])
}

func (k PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *PublicKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePublicKey(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// IsOnCurve reports whether b is a valid compressed ed25519 point.
func IsOnCurve(b []byte) bool {
	if len(b) != PublicKeyLength {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}
