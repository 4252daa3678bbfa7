package condition

import (
	"bytes"
	"encoding/binary"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Keccak256 hashes the concatenation of the provided byte slices.
func Keccak256(parts ...[]byte) [32]byte {
	var out [32]byte
	copy(out[:], ethcrypto.Keccak256(parts...))
	return out
}

// GenerateID derives the globally unique condition identifier from the
// agreement, the condition kind and the canonical parameter hash. The
// derivation is pure: independent parties reproduce the same identifier from
// the same inputs before submitting a fulfillment.
func GenerateID(agreementID [32]byte, kind string, paramHash [32]byte) [32]byte {
	kindHash := Keccak256([]byte(kind))
	return Keccak256(agreementID[:], kindHash[:], paramHash[:])
}

// Encoder builds the canonical, order- and type-sensitive byte encoding used
// for parameter hashing. Variable-length fields are length-prefixed so that
// adjacent fields can never alias each other.
type Encoder struct {
	buf bytes.Buffer
}

func NewEncoder() *Encoder {
	return &Encoder{}
}

func (e *Encoder) WriteBytes(b []byte) {
	var lead [4]byte
	binary.BigEndian.PutUint32(lead[:], uint32(len(b)))
	e.buf.Write(lead[:])
	e.buf.Write(b)
}

func (e *Encoder) WriteString(s string) {
	e.WriteBytes([]byte(s))
}

func (e *Encoder) WriteUint32(v uint32) {
	var word [4]byte
	binary.BigEndian.PutUint32(word[:], v)
	e.buf.Write(word[:])
}

func (e *Encoder) WriteUint64(v uint64) {
	var word [8]byte
	binary.BigEndian.PutUint64(word[:], v)
	e.buf.Write(word[:])
}

// WriteBig encodes a non-negative integer as a 32-byte big-endian word. Nil
// encodes as zero.
func (e *Encoder) WriteBig(v *big.Int) {
	var word [32]byte
	if v != nil && v.Sign() > 0 {
		v.FillBytes(word[:])
	}
	e.buf.Write(word[:])
}

func (e *Encoder) WriteAddress(a [20]byte) {
	e.buf.Write(a[:])
}

func (e *Encoder) WriteHash(h [32]byte) {
	e.buf.Write(h[:])
}

// Sum returns the keccak256 digest of everything written so far.
func (e *Encoder) Sum() [32]byte {
	return Keccak256(e.buf.Bytes())
}
