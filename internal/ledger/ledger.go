// Package ledger talks to the remote ledger over JSON-RPC: account and balance
// reads, checkpoint lookup, transaction submission and confirmation.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/cosmos/btcutil/base58"

	"seeker-scratch/internal/address"
)

const SignatureLength = 64

var (
	ErrAccountNotFound  = errors.New("ledger: account not found")
	ErrInvalidSignature = errors.New("ledger: invalid signature")
	ErrInvalidBlockhash = errors.New("ledger: invalid blockhash")
)

type Signature [SignatureLength]byte

func (s Signature) String() string {
	return base58.Encode(s[:])
}

func (s Signature) IsZero() bool {
	return s == Signature{}
}

func ParseSignature(text string) (Signature, error) {
	var s Signature
	raw := base58.Decode(text)
	if len(raw) != SignatureLength {
		return s, ErrInvalidSignature
	}
	copy(s[:], raw)
	return s, nil
}

// Checkpoint is a recent blockhash and the last block height at which a
// transaction built on it can still land.
type Checkpoint struct {
	Blockhash            string `json:"blockhash"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

func (c Checkpoint) hash() ([32]byte, error) {
	var h [32]byte
	raw := base58.Decode(c.Blockhash)
	if len(raw) != len(h) {
		return h, ErrInvalidBlockhash
	}
	copy(h[:], raw)
	return h, nil
}

type ConfirmStatus string

const (
	StatusConfirmed ConfirmStatus = "confirmed"
	StatusExpired   ConfirmStatus = "expired"
	StatusFailed    ConfirmStatus = "failed"
)

// Confirmation is the terminal outcome of a submitted transaction. Err holds
// the ledger's failure description when Status is StatusFailed.
type Confirmation struct {
	Status ConfirmStatus
	Err    string
}

type KeyedAccount struct {
	Address  address.PublicKey
	Lamports uint64
	Data     []byte
}

// Ledger is the read and write surface of the remote ledger. Reads are
// side-effect-free. A submitted transaction is single-use and must not be
// resubmitted.
type Ledger interface {
	GetAccount(ctx context.Context, addr address.PublicKey) ([]byte, error)
	GetBalance(ctx context.Context, owner address.PublicKey) (uint64, error)
	LatestCheckpoint(ctx context.Context) (Checkpoint, error)
	Submit(ctx context.Context, tx []byte) (Signature, error)
	Confirm(ctx context.Context, sig Signature, cp Checkpoint) (Confirmation, error)
	GetProgramAccounts(ctx context.Context, program address.PublicKey, filters ...Filter) ([]KeyedAccount, error)
}

// Filter matches accounts whose data holds Bytes at Offset.
type Filter struct {
	Offset int
	Bytes  []byte
}

// RPCError is an error object returned by the JSON-RPC endpoint.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	if e == nil {
		return ""
	}
	if msg := ProgramErrorMessage(e.Message); msg != "" {
		return msg
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}
