package hash

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/taurusgroup/cmp-keygen/internal/params"
	"github.com/zeebo/blake3"
)

// DigestLengthBytes is the length of the output of Sum, and of commitments.
const DigestLengthBytes = params.SecBytes // 32

// ErrFinalized is returned when a Hash is used after its output was read.
var ErrFinalized = errors.New("hash: hash state was already finalized")

// Hash is the hash function we use for generating commitments, consuming protocol types, etc.
//
// Internally, this is a wrapper around blake3.Hasher, but any hash function with
// an easily extendable output would work as well.
//
// A Hash can be used once: after Sum or Digest is called, any further write or read fails.
// Use Clone to derive several outputs from a common prefix.
type Hash struct {
	h         *blake3.Hasher
	finalized bool
}

// New creates a Hash struct where the internal hash function is initialized with "CMP-BLAKE".
func New(initialData ...WriterToWithDomain) *Hash {
	hash := &Hash{h: blake3.New()}
	_, _ = hash.h.WriteString("CMP-BLAKE")
	for _, d := range initialData {
		_ = hash.WriteAny(d)
	}
	return hash
}

// Digest returns a reader for the current output of the function.
//
// This finalizes the current state of the hash, and returns what's
// essentially a stream of random bytes.
func (hash *Hash) Digest() (io.Reader, error) {
	if hash.finalized {
		return nil, ErrFinalized
	}
	hash.finalized = true
	return hash.h.Digest(), nil
}

// Sum returns a slice of length DigestLengthBytes resulting from the current hash state.
// If a different length is required, use io.ReadFull(hash.Digest(), out) instead.
func (hash *Hash) Sum() ([]byte, error) {
	digest, err := hash.Digest()
	if err != nil {
		return nil, err
	}
	out := make([]byte, DigestLengthBytes)
	if _, err = io.ReadFull(digest, out); err != nil {
		return nil, fmt.Errorf("hash: internal hash failure: %w", err)
	}
	return out, nil
}

// WriteAny writes each value to the hash state, separated by its domain.
//
// Raw values are wrapped with one of the adapters of this package
// (Bytes, Text, Nat, Int, Modulus, Point, Scalar); composite values implement
// WriterToWithDomain themselves and write each of their components.
func (hash *Hash) WriteAny(data ...WriterToWithDomain) error {
	if hash.finalized {
		return ErrFinalized
	}
	for _, d := range data {
		if d == nil {
			return errors.New("hash: write nil value")
		}
		if err := writeWithDomain(hash.h, d); err != nil {
			return fmt.Errorf("hash: write %s: %w", d.Domain(), err)
		}
	}
	return nil
}

// Clone returns a copy of the Hash in its current state.
// The clone of a finalized Hash is also finalized.
func (hash *Hash) Clone() *Hash {
	return &Hash{h: hash.h.Clone(), finalized: hash.finalized}
}

// Fork returns a Clone of the hash, with the given values written to it.
func (hash *Hash) Fork(data ...WriterToWithDomain) (*Hash, error) {
	h := hash.Clone()
	if err := h.WriteAny(data...); err != nil {
		return nil, err
	}
	return h, nil
}

// writeWithDomain writes out "(" + domain + len(data) + data + ")".
//
// The length prefix makes the encoding of a sequence of values injective.
func writeWithDomain(w io.Writer, v WriterToWithDomain) error {
	var data bytes.Buffer
	if _, err := v.WriteTo(&data); err != nil {
		return err
	}
	var length [8]byte
	binary.BigEndian.PutUint64(length[:], uint64(data.Len()))

	for _, chunk := range [][]byte{
		[]byte("("),
		[]byte(v.Domain()),
		length[:],
		data.Bytes(),
		[]byte(")"),
	} {
		if _, err := w.Write(chunk); err != nil {
			return err
		}
	}
	return nil
}
