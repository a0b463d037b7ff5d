package curve

import (
	"encoding"

	"github.com/cronokirby/saferith"
)

// Curve represents the prime order group used by the protocol.
type Curve interface {
	NewPoint() Point
	NewBasePoint() Point
	NewScalar() Scalar
	Name() string
	ScalarBits() int
	SafeScalarBytes() int
	Order() *saferith.Modulus
}

// Scalar represents an element of the field of integers modulo the order of the group.
//
// Methods mutate the receiver and return it, to allow chaining.
type Scalar interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
	Curve() Curve
	Add(Scalar) Scalar
	Sub(Scalar) Scalar
	Negate() Scalar
	Mul(Scalar) Scalar
	Invert() Scalar
	Equal(Scalar) bool
	IsZero() bool
	Set(Scalar) Scalar
	SetNat(*saferith.Nat) Scalar
	Act(Point) Point
	ActOnBase() Point
}

// Point represents an element of the group.
//
// Unlike Scalar, methods return a new Point and leave the receiver untouched.
type Point interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
	Curve() Curve
	Add(Point) Point
	Sub(Point) Point
	Negate() Point
	Set(Point) Point
	Equal(Point) bool
	IsIdentity() bool
	// XBytes returns the affine x coordinate, used when hashing points.
	XBytes() []byte
	// YBytes returns the affine y coordinate, used when hashing points.
	YBytes() []byte
}

// MakeInt converts a scalar into a signed integer in [0, q).
func MakeInt(s Scalar) *saferith.Int {
	bytes, err := s.MarshalBinary()
	if err != nil {
		panic(err)
	}
	return new(saferith.Int).SetBytes(bytes)
}

// FromHash converts a hash value to a Scalar.
//
// The hash is truncated to the bit-length of the group order,
// right shifting any excess bits, as done in crypto/ecdsa.
func FromHash(group Curve, h []byte) Scalar {
	order := group.Order()
	orderBits := order.BitLen()
	orderBytes := (orderBits + 7) / 8
	if len(h) > orderBytes {
		h = h[:orderBytes]
	}
	s := new(saferith.Nat).SetBytes(h)
	excess := len(h)*8 - orderBits
	if excess > 0 {
		s.Rsh(s, uint(excess), -1)
	}
	return group.NewScalar().SetNat(s)
}
