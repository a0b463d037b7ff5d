package hash

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"github.com/taurusgroup/cmp-keygen/internal/params"
)

var (
	ErrInvalidLength = errors.New("incorrect length")
	ErrZero          = errors.New("value is zero")
)

type (
	Commitment   []byte
	Decommitment []byte
)

// WriteTo implements the io.WriterTo interface for Commitment.
func (c Commitment) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(c)
	return int64(n), err
}

// Domain implements WriterToWithDomain, and separates this type within hash.Hash.
func (Commitment) Domain() string {
	return "Commitment"
}

// Validate returns an error if the commitment does not have the right length, or is all zero.
func (c Commitment) Validate() error {
	if l := len(c); l != DigestLengthBytes {
		return fmt.Errorf("commitment: %w (got %d, expected %d)", ErrInvalidLength, l, DigestLengthBytes)
	}
	if isZero(c) {
		return fmt.Errorf("commitment: %w", ErrZero)
	}
	return nil
}

// WriteTo implements the io.WriterTo interface for Decommitment.
func (d Decommitment) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(d)
	return int64(n), err
}

// Domain implements WriterToWithDomain, and separates this type within hash.Hash.
func (Decommitment) Domain() string {
	return "Decommitment"
}

// Validate returns an error if the decommitment does not have the right length, or is all zero.
func (d Decommitment) Validate() error {
	if l := len(d); l != params.SecBytes {
		return fmt.Errorf("decommitment: %w (got %d, expected %d)", ErrInvalidLength, l, params.SecBytes)
	}
	if isZero(d) {
		return fmt.Errorf("decommitment: %w", ErrZero)
	}
	return nil
}

// Commit creates a commitment to data, and returns a commitment hash, and a decommitment string such that
// commitment = h(data, decommitment).
//
// The receiver is not modified.
func (hash *Hash) Commit(data ...WriterToWithDomain) (Commitment, Decommitment, error) {
	return hash.CommitWithReader(rand.Reader, data...)
}

// CommitWithReader is like Commit, but reads the decommitment from rand.
func (hash *Hash) CommitWithReader(rand io.Reader, data ...WriterToWithDomain) (Commitment, Decommitment, error) {
	decommitment := Decommitment(make([]byte, params.SecBytes))
	if _, err := io.ReadFull(rand, decommitment); err != nil {
		return nil, nil, fmt.Errorf("hash.Commit: failed to generate decommitment: %w", err)
	}

	commitment, err := hash.commitment(decommitment, data...)
	if err != nil {
		return nil, nil, fmt.Errorf("hash.Commit: %w", err)
	}
	return commitment, decommitment, nil
}

// Decommit verifies that the commitment corresponds to the data and decommitment such that
// commitment = h(data, decommitment).
//
// It returns false if the data does not match, and an error if c or d are malformed.
func (hash *Hash) Decommit(c Commitment, d Decommitment, data ...WriterToWithDomain) (bool, error) {
	if err := c.Validate(); err != nil {
		return false, err
	}
	if err := d.Validate(); err != nil {
		return false, err
	}

	computed, err := hash.commitment(d, data...)
	if err != nil {
		return false, fmt.Errorf("hash.Decommit: %w", err)
	}
	return subtle.ConstantTimeCompare(computed, c) == 1, nil
}

func (hash *Hash) commitment(d Decommitment, data ...WriterToWithDomain) (Commitment, error) {
	h := hash.Clone()
	if err := h.WriteAny(data...); err != nil {
		return nil, err
	}
	if err := h.WriteAny(d); err != nil {
		return nil, err
	}
	return h.Sum()
}

func isZero(b []byte) bool {
	var acc byte
	for _, x := range b {
		acc |= x
	}
	return acc == 0
}
