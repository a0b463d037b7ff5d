package hash

import (
	"io"

	"github.com/cronokirby/saferith"
	"github.com/taurusgroup/cmp-keygen/pkg/math/curve"
)

// WriterToWithDomain represents a type writing itself, and knowing its domain.
//
// Providing a domain string lets us distinguish the output of different types
// implementing this same interface.
type WriterToWithDomain interface {
	io.WriterTo

	// Domain returns a context string, which should be unique for each implementor
	Domain() string
}

// BytesWithDomain is a useful wrapper to annotate some chunk of data with a domain.
type BytesWithDomain struct {
	TheDomain string
	Bytes     []byte
}

// WriteTo implements io.WriterTo.
func (b BytesWithDomain) WriteTo(w io.Writer) (int64, error) {
	if b.Bytes == nil {
		return 0, io.ErrUnexpectedEOF
	}
	n, err := w.Write(b.Bytes)
	return int64(n), err
}

// Domain implements WriterToWithDomain.
func (b BytesWithDomain) Domain() string {
	return b.TheDomain
}

// Bytes wraps a raw byte slice.
type Bytes []byte

func (b Bytes) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b)
	return int64(n), err
}

func (Bytes) Domain() string { return "[]byte" }

// Text wraps a UTF-8 string.
type Text string

func (t Text) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, string(t))
	return int64(n), err
}

func (Text) Domain() string { return "string" }

// Nat wraps a natural number, written as its minimal big-endian encoding.
type Nat struct{ *saferith.Nat }

func (n Nat) WriteTo(w io.Writer) (int64, error) {
	if n.Nat == nil {
		return 0, io.ErrUnexpectedEOF
	}
	k, err := w.Write(minimal(n.Nat.Bytes()))
	return int64(k), err
}

func (Nat) Domain() string { return "saferith.Nat" }

// Int wraps a signed integer, written as a sign byte followed by its absolute value.
type Int struct{ *saferith.Int }

func (i Int) WriteTo(w io.Writer) (int64, error) {
	if i.Int == nil {
		return 0, io.ErrUnexpectedEOF
	}
	out := append([]byte{byte(i.Int.IsNegative())}, minimal(i.Int.Abs().Bytes())...)
	k, err := w.Write(out)
	return int64(k), err
}

func (Int) Domain() string { return "saferith.Int" }

// Modulus wraps a modulus.
type Modulus struct{ *saferith.Modulus }

func (m Modulus) WriteTo(w io.Writer) (int64, error) {
	if m.Modulus == nil {
		return 0, io.ErrUnexpectedEOF
	}
	k, err := w.Write(minimal(m.Modulus.Bytes()))
	return int64(k), err
}

func (Modulus) Domain() string { return "saferith.Modulus" }

// Point wraps a curve point, written as its canonical compressed encoding.
type Point struct{ curve.Point }

func (p Point) WriteTo(w io.Writer) (int64, error) {
	if p.Point == nil {
		return 0, io.ErrUnexpectedEOF
	}
	data, err := p.Point.MarshalBinary()
	if err != nil {
		return 0, err
	}
	k, err := w.Write(data)
	return int64(k), err
}

func (Point) Domain() string { return "curve.Point" }

// Scalar wraps a curve scalar.
type Scalar struct{ curve.Scalar }

func (s Scalar) WriteTo(w io.Writer) (int64, error) {
	if s.Scalar == nil {
		return 0, io.ErrUnexpectedEOF
	}
	data, err := s.Scalar.MarshalBinary()
	if err != nil {
		return 0, err
	}
	k, err := w.Write(data)
	return int64(k), err
}

func (Scalar) Domain() string { return "curve.Scalar" }

// minimal strips leading zeros, so that the encoding doesn't depend on the announced size of a number.
func minimal(b []byte) []byte {
	for len(b) > 0 && b[0] == 0 {
		b = b[1:]
	}
	return b
}
