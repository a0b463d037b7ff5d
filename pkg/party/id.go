package party

import (
	"io"

	"github.com/cronokirby/saferith"
	"github.com/taurusgroup/cmp-keygen/pkg/math/curve"
)

// ID represents a unique identifier for a participant in our scheme.
//
// You should think of this as a byte slice that may carry arbitrary data.
// It is used as the index of the party's share of a polynomial, by interpreting
// its big-endian bytes as a scalar.
type ID string

// Scalar converts this ID into a scalar.
//
// All of the IDs of our participants form a polynomial interpolation domain.
// Because of this, it's important that none of them are zero.
func (id ID) Scalar(group curve.Curve) curve.Scalar {
	return group.NewScalar().SetNat(new(saferith.Nat).SetBytes([]byte(id)))
}

// WriteTo makes ID implement the io.WriterTo interface.
//
// This writes out the content of this ID, in a domain separated way.
func (id ID) WriteTo(w io.Writer) (int64, error) {
	if id == "" {
		return 0, io.ErrUnexpectedEOF
	}
	n, err := w.Write([]byte(id))
	return int64(n), err
}

// Domain implements hash.WriterToWithDomain.
func (ID) Domain() string {
	return "ID"
}
