package bip32

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cronokirby/saferith"
	"github.com/taurusgroup/cmp-keygen/pkg/math/curve"
)

var ErrHardenedIndex = errors.New("bip32: hardened indices require the private key")

// scalarFrom interprets data as a scalar, failing if it is not smaller than the order, or zero.
func scalarFrom(group curve.Curve, data []byte) (curve.Scalar, bool) {
	nat := new(saferith.Nat).SetBytes(data)
	if _, _, lt := nat.Cmp(group.Order().Nat()); lt != 1 {
		return nil, false
	}
	s := group.NewScalar().SetNat(nat)
	if s.IsZero() {
		return nil, false
	}
	return s, true
}

// DeriveMaster derives the master secret key and chain key from a seed.
func DeriveMaster(seed []byte) (curve.Scalar, []byte, error) {
	h := hmac.New(sha512.New, []byte("Bitcoin seed"))
	_, _ = h.Write(seed)
	out := h.Sum(nil)

	scalar, ok := scalarFrom(curve.Secp256k1{}, out[:32])
	if !ok {
		return nil, nil, errors.New("bip32: invalid seed")
	}
	return scalar, out[32:], nil
}

// DeriveScalar uses a public point, chaining value, and index, to derive a scalar and chaining value.
//
// This scalar should be added to the secret key.
//
// If an error is returned, this means that this index will not be useable, and another
// index should be used instead.
//
// See: https://github.com/bitcoin/bips/blob/master/bip-0032.mediawiki
func DeriveScalar(public curve.Point, chaining []byte, i uint32) (curve.Scalar, []byte, error) {
	if i>>31 != 0 {
		return nil, nil, fmt.Errorf("%w: %d", ErrHardenedIndex, i)
	}
	if _, ok := public.(*curve.Secp256k1Point); !ok {
		return nil, nil, errors.New("bip32: derivation requires a secp256k1 point")
	}

	data, err := public.MarshalBinary()
	if err != nil {
		return nil, nil, err
	}

	h := hmac.New(sha512.New, chaining)
	_, _ = h.Write(data)
	iBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(iBytes, i)
	_, _ = h.Write(iBytes)

	out := h.Sum(nil)
	scalar, ok := scalarFrom(public.Curve(), out[:32])
	if !ok {
		return nil, nil, fmt.Errorf("bip32: bad index: %d", i)
	}

	return scalar, out[32:], nil
}

// DeriveScalarForPath derives the sum of the scalars along path, and the final chaining value.
func DeriveScalarForPath(public curve.Point, chaining []byte, path Path) (curve.Scalar, []byte, error) {
	group := public.Curve()
	adjust := group.NewScalar()
	for _, i := range path.indices {
		scalar, next, err := DeriveScalar(public, chaining, i)
		if err != nil {
			return nil, nil, err
		}
		adjust.Add(scalar)
		public = public.Add(scalar.ActOnBase())
		chaining = next
	}
	return adjust, chaining, nil
}
