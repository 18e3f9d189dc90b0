package ledger

import (
	"errors"
	"fmt"
	"math"

	"seeker-scratch/internal/address"
)

var (
	ErrNoInstructions    = errors.New("ledger: transaction has no instructions")
	ErrTooManyAccounts   = errors.New("ledger: transaction references too many accounts")
	ErrMissingSignatures = errors.New("ledger: transaction is not fully signed")
	ErrUnknownSigner     = errors.New("ledger: key is not a required signer")
)

type AccountMeta struct {
	PublicKey  address.PublicKey
	IsSigner   bool
	IsWritable bool
}

func Writable(key address.PublicKey, signer bool) AccountMeta {
	return AccountMeta{PublicKey: key, IsSigner: signer, IsWritable: true}
}

func Readonly(key address.PublicKey) AccountMeta {
	return AccountMeta{PublicKey: key}
}

type Instruction struct {
	ProgramID address.PublicKey
	Accounts  []AccountMeta
	Data      []byte
}

type MessageHeader struct {
	NumRequiredSignatures       uint8
	NumReadonlySignedAccounts   uint8
	NumReadonlyUnsignedAccounts uint8
}

type CompiledInstruction struct {
	ProgramIDIndex uint8
	Accounts       []uint8
	Data           []byte
}

// Message is a legacy transaction message. Account keys are ordered
// writable signers, readonly signers, writable non-signers, readonly
// non-signers, with the fee payer first.
type Message struct {
	Header          MessageHeader
	AccountKeys     []address.PublicKey
	RecentBlockhash [32]byte
	Instructions    []CompiledInstruction
}

func NewMessage(feePayer address.PublicKey, instructions []Instruction, cp Checkpoint) (*Message, error) {
	if len(instructions) == 0 {
		return nil, ErrNoInstructions
	}
	blockhash, err := cp.hash()
	if err != nil {
		return nil, err
	}

	var order []address.PublicKey
	metas := make(map[address.PublicKey]*AccountMeta)
	add := func(m AccountMeta) {
		if existing, ok := metas[m.PublicKey]; ok {
			existing.IsSigner = existing.IsSigner || m.IsSigner
			existing.IsWritable = existing.IsWritable || m.IsWritable
			return
		}
		copied := m
		metas[m.PublicKey] = &copied
		order = append(order, m.PublicKey)
	}

	add(Writable(feePayer, true))
	for _, ix := range instructions {
		for _, m := range ix.Accounts {
			add(m)
		}
		add(Readonly(ix.ProgramID))
	}
	if len(order) > math.MaxUint8 {
		return nil, ErrTooManyAccounts
	}

	msg := &Message{RecentBlockhash: blockhash}
	groups := [4][]address.PublicKey{}
	for _, key := range order {
		m := metas[key]
		switch {
		case m.IsSigner && m.IsWritable:
			groups[0] = append(groups[0], key)
		case m.IsSigner:
			groups[1] = append(groups[1], key)
		case m.IsWritable:
			groups[2] = append(groups[2], key)
		default:
			groups[3] = append(groups[3], key)
		}
	}
	for _, g := range groups {
		msg.AccountKeys = append(msg.AccountKeys, g...)
	}
	msg.Header = MessageHeader{
		NumRequiredSignatures:       uint8(len(groups[0]) + len(groups[1])),
		NumReadonlySignedAccounts:   uint8(len(groups[1])),
		NumReadonlyUnsignedAccounts: uint8(len(groups[3])),
	}

	index := make(map[address.PublicKey]uint8, len(msg.AccountKeys))
	for i, key := range msg.AccountKeys {
		index[key] = uint8(i)
	}
	for _, ix := range instructions {
		compiled := CompiledInstruction{
			ProgramIDIndex: index[ix.ProgramID],
			Accounts:       make([]uint8, len(ix.Accounts)),
			Data:           ix.Data,
		}
		for i, m := range ix.Accounts {
			compiled.Accounts[i] = index[m.PublicKey]
		}
		msg.Instructions = append(msg.Instructions, compiled)
	}
	return msg, nil
}

// Signers returns the keys whose signatures the message requires, in order.
func (m *Message) Signers() []address.PublicKey {
	return m.AccountKeys[:m.Header.NumRequiredSignatures]
}

func (m *Message) Serialize() []byte {
	out := []byte{
		m.Header.NumRequiredSignatures,
		m.Header.NumReadonlySignedAccounts,
		m.Header.NumReadonlyUnsignedAccounts,
	}
	out = appendCompactU16(out, len(m.AccountKeys))
	for _, key := range m.AccountKeys {
		out = append(out, key[:]...)
	}
	out = append(out, m.RecentBlockhash[:]...)
	out = appendCompactU16(out, len(m.Instructions))
	for _, ix := range m.Instructions {
		out = append(out, ix.ProgramIDIndex)
		out = appendCompactU16(out, len(ix.Accounts))
		out = append(out, ix.Accounts...)
		out = appendCompactU16(out, len(ix.Data))
		out = append(out, ix.Data...)
	}
	return out
}

// Transaction pairs a message with one signature slot per required signer.
type Transaction struct {
	Signatures []Signature
	Message    *Message
}

func NewTransaction(msg *Message) *Transaction {
	return &Transaction{
		Signatures: make([]Signature, msg.Header.NumRequiredSignatures),
		Message:    msg,
	}
}

func (t *Transaction) AddSignature(signer address.PublicKey, sig Signature) error {
	for i, key := range t.Message.Signers() {
		if key == signer {
			t.Signatures[i] = sig
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownSigner, signer)
}

// Signature is the transaction id: the fee payer's signature.
func (t *Transaction) Signature() Signature {
	if len(t.Signatures) == 0 {
		return Signature{}
	}
	return t.Signatures[0]
}

func (t *Transaction) Serialize() ([]byte, error) {
	for _, sig := range t.Signatures {
		if sig.IsZero() {
			return nil, ErrMissingSignatures
		}
	}
	out := appendCompactU16(nil, len(t.Signatures))
	for _, sig := range t.Signatures {
		out = append(out, sig[:]...)
	}
	return append(out, t.Message.Serialize()...), nil
}

func appendCompactU16(b []byte, n int) []byte {
	for {
		elem := byte(n & 0x7f)
		n >>= 7
		if n == 0 {
			return append(b, elem)
		}
		b = append(b, elem|0x80)
	}
}
