package services

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"

	"seeker-scratch/internal/address"
	"seeker-scratch/internal/ledger"
)

// Signer produces the wallet's signature over a serialized transaction
// message. It may involve user interaction; a refusal is ErrWalletRejected.
type Signer interface {
	PublicKey() address.PublicKey
	SignMessage(ctx context.Context, message []byte) (ledger.Signature, error)
}

// KeypairSigner signs with a local ed25519 keypair.
type KeypairSigner struct {
	key    ed25519.PrivateKey
	public address.PublicKey
}

func NewKeypairSigner(key ed25519.PrivateKey) (*KeypairSigner, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("keypair: expected %d bytes, got %d", ed25519.PrivateKeySize, len(key))
	}
	pub, err := address.PublicKeyFromBytes(key.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}
	return &KeypairSigner{key: key, public: pub}, nil
}

// LoadKeypair reads a keypair file holding a JSON array of the 64 secret key
// bytes, the format written by the ledger's CLI tooling.
func LoadKeypair(path string) (*KeypairSigner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keypair: %w", err)
	}
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return nil, fmt.Errorf("failed to parse keypair %s: %w", path, err)
	}
	raw := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("keypair %s: byte %d out of range", path, i)
		}
		raw[i] = byte(v)
	}
	return NewKeypairSigner(ed25519.PrivateKey(raw))
}

func (s *KeypairSigner) PublicKey() address.PublicKey {
	return s.public
}

func (s *KeypairSigner) SignMessage(ctx context.Context, message []byte) (ledger.Signature, error) {
	var sig ledger.Signature
	if err := ctx.Err(); err != nil {
		return sig, err
	}
	copy(sig[:], ed25519.Sign(s.key, message))
	return sig, nil
}
