package sample

import (
	"errors"
	"io"
	"math/big"

	"github.com/cronokirby/saferith"
	"github.com/taurusgroup/cmp-keygen/pkg/math/arith"
	"github.com/taurusgroup/cmp-keygen/pkg/math/curve"
)

const maxIterations = 255

// ErrMaxIterations is raised when sampling failed to produce a valid value within a bounded number of attempts.
//
// This signals a broken source of randomness, or invalid parameters.
var ErrMaxIterations = errors.New("sample: failed to generate after maximum number of iterations")

func readBits(rand io.Reader, buf []byte) error {
	for i := 0; i < maxIterations; i++ {
		if _, err := io.ReadFull(rand, buf); err == nil {
			return nil
		}
	}
	return ErrMaxIterations
}

func mustReadBits(rand io.Reader, buf []byte) {
	if err := readBits(rand, buf); err != nil {
		panic(err)
	}
}

func modN(rand io.Reader, n *saferith.Modulus) (*saferith.Nat, error) {
	out := new(saferith.Nat)
	buf := make([]byte, (n.BitLen()+7)/8)
	for {
		if err := readBits(rand, buf); err != nil {
			return nil, err
		}
		out.SetBytes(buf)
		_, _, lt := out.CmpMod(n)
		if lt == 1 {
			return out, nil
		}
	}
}

// ModN samples an element of ℤₙ.
//
// It panics if rand fails, and is meant for readers which cannot, like a hash digest.
func ModN(rand io.Reader, n *saferith.Modulus) *saferith.Nat {
	out, err := modN(rand, n)
	if err != nil {
		panic(err)
	}
	return out
}

// UnitModN returns a u ∈ ℤₙˣ.
func UnitModN(rand io.Reader, n *saferith.Modulus) (*saferith.Nat, error) {
	for i := 0; i < maxIterations; i++ {
		u, err := modN(rand, n)
		if err != nil {
			return nil, err
		}
		if u.IsUnit(n) == 1 {
			return u, nil
		}
	}
	return nil, ErrMaxIterations
}

// QNR samples a random quadratic non-residue in Z_n.
func QNR(rand io.Reader, n *saferith.Modulus) (*saferith.Nat, error) {
	nBig := n.Big()
	for i := 0; i < maxIterations; i++ {
		w, err := modN(rand, n)
		if err != nil {
			return nil, err
		}
		if big.Jacobi(w.Big(), nBig) == -1 {
			return w, nil
		}
	}
	return nil, ErrMaxIterations
}

// Pedersen generates the s, t, λ such that s = tˡ.
//
// λ is uniform in [0, φ) and t = τ² for a random unit τ, so that t is a square.
func Pedersen(rand io.Reader, phi *saferith.Nat, n *arith.Modulus) (s, t, lambda *saferith.Nat, err error) {
	phiMod := saferith.ModulusFromNat(phi)

	if lambda, err = modN(rand, phiMod); err != nil {
		return nil, nil, nil, err
	}

	tau, err := UnitModN(rand, n.Modulus)
	if err != nil {
		return nil, nil, nil, err
	}
	// t = τ² mod N
	t = tau.ModMul(tau, tau, n.Modulus)
	// s = tˡ mod N
	s = n.Exp(t, lambda)

	return s, t, lambda, nil
}

// Scalar returns a new *curve.Scalar by reading bytes from rand.
func Scalar(rand io.Reader, group curve.Curve) curve.Scalar {
	buffer := make([]byte, group.SafeScalarBytes())
	mustReadBits(rand, buffer)
	n := new(saferith.Nat).SetBytes(buffer)
	return group.NewScalar().SetNat(n)
}

// ScalarPointPair returns a new *curve.Scalar/*curve.Point tuple (x,X) by reading bytes from rand.
// The tuple satisfies X = x⋅G where G is the base point of the curve.
func ScalarPointPair(rand io.Reader, group curve.Curve) (curve.Scalar, curve.Point) {
	s := Scalar(rand, group)
	return s, s.ActOnBase()
}

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Alphanumeric returns a uniformly random string of the given length over [a-zA-Z0-9].
func Alphanumeric(rand io.Reader, length int) string {
	out := make([]byte, length)
	buf := make([]byte, 1)
	// 248 is the largest multiple of 62 below 256, rejecting above it avoids bias
	for i := 0; i < length; {
		mustReadBits(rand, buf)
		if buf[0] >= 248 {
			continue
		}
		out[i] = alphanumeric[int(buf[0])%len(alphanumeric)]
		i++
	}
	return string(out)
}
