// Package account decodes fixed-layout ledger records: an 8-byte
// discriminator followed by fields in declaration order, little-endian, with
// u32-length-prefixed strings and u8-tagged optionals.
package account

import (
	"encoding/binary"
	"fmt"

	"seeker-scratch/internal/address"
)

const DiscriminatorLength = 8

type Kind string

const (
	KindTreasury Kind = "treasury"
	KindProfile  Kind = "profile"
	KindBonusNFT Kind = "bonus_nft"
)

// Minimum encoded sizes with empty strings and absent optionals.
const (
	MinTreasurySize = DiscriminatorLength + 32 + 8*5 + 8 + 1 + 1
	MinProfileSize  = DiscriminatorLength + 32 + 4 + 4 + 8 + 8 + 4 + 4 + 8 + 8 + 4 + 1 + 1 + 1 + 8
	MinBonusNFTSize = DiscriminatorLength + 32 + 1 + 1 + 8 + 8 + 1
)

type DecodeError struct {
	Kind   Kind
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s (offset %d)", e.Kind, e.Reason, e.Offset)
}

type reader struct {
	kind Kind
	buf  []byte
	off  int
	err  error
}

func newReader(kind Kind, buf []byte, minSize int) *reader {
	r := &reader{kind: kind, buf: buf}
	if len(buf) < minSize {
		r.fail("buffer shorter than %d bytes", minSize)
	}
	return r
}

func (r *reader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = &DecodeError{Kind: r.kind, Offset: r.off, Reason: fmt.Sprintf(format, args...)}
	}
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.buf) {
		r.fail("need %d bytes, have %d", n, len(r.buf)-r.off)
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) discriminator() (d [DiscriminatorLength]byte) {
	copy(d[:], r.take(DiscriminatorLength))
	return d
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) i64() int64 {
	return int64(r.u64())
}

func (r *reader) boolean() bool {
	switch v := r.u8(); v {
	case 0:
		return false
	case 1:
		return true
	default:
		r.fail("invalid bool byte %d", v)
		return false
	}
}

func (r *reader) pubkey() address.PublicKey {
	var k address.PublicKey
	copy(k[:], r.take(address.PublicKeyLength))
	return k
}

func (r *reader) optionalPubkey() *address.PublicKey {
	switch tag := r.u8(); tag {
	case 0:
		return nil
	case 1:
		k := r.pubkey()
		if r.err != nil {
			return nil
		}
		return &k
	default:
		r.fail("invalid option tag %d", tag)
		return nil
	}
}

// str reads a length-prefixed string. A prefix above max usually means a
// different record shape that shares the discriminator.
func (r *reader) str(max int) string {
	n := r.u32()
	if r.err != nil {
		return ""
	}
	if int64(n) > int64(max) {
		r.fail("string length %d exceeds %d", n, max)
		return ""
	}
	return string(r.take(int(n)))
}

type writer struct {
	buf []byte
}

func (w *writer) raw(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *writer) u8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *writer) u32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *writer) u64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *writer) i64(v int64) {
	w.u64(uint64(v))
}

func (w *writer) boolean(v bool) {
	if v {
		w.u8(1)
		return
	}
	w.u8(0)
}

func (w *writer) pubkey(k address.PublicKey) {
	w.raw(k[:])
}

func (w *writer) optionalPubkey(k *address.PublicKey) {
	if k == nil {
		w.u8(0)
		return
	}
	w.u8(1)
	w.pubkey(*k)
}

func (w *writer) str(s string) {
	w.u32(uint32(len(s)))
	w.raw([]byte(s))
}
