package paillier

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/cronokirby/saferith"
	"github.com/taurusgroup/cmp-keygen/internal/params"
	"github.com/taurusgroup/cmp-keygen/pkg/math/arith"
	"github.com/taurusgroup/cmp-keygen/pkg/math/sample"
)

var (
	ErrPaillierLength     = errors.New("wrong number bit length of Paillier modulus N")
	ErrPaillierEven       = errors.New("modulus N is even")
	ErrPaillierNil        = errors.New("modulus N is nil")
	ErrPaillierRange      = errors.New("message is outside of the range [-(N-1)/2, …, (N-1)/2]")
	ErrPaillierCiphertext = errors.New("invalid ciphertext")
)

// PublicKey is a Paillier public key. It is represented by a modulus N.
type PublicKey struct {
	// n = p⋅q
	n *arith.Modulus
	// nSquared = n²
	nSquared *arith.Modulus

	// These values are cached out of convenience, and performance
	nNat *saferith.Nat
	// nPlusOne = n + 1
	nPlusOne *saferith.Nat
	// nHalf = (n-1)/2, the largest absolute value of a plaintext
	nHalf *saferith.Nat
}

// N is the public modulus making up this key.
func (pk *PublicKey) N() *saferith.Modulus {
	return pk.n.Modulus
}

// Modulus returns an arith.Modulus for N, which may accelerate computations if the factorization is known.
func (pk *PublicKey) Modulus() *arith.Modulus {
	return pk.n
}

// NewPublicKey returns an initialized paillier.PublicKey and caches N, N² and (N-1)/2.
func NewPublicKey(n *saferith.Modulus) *PublicKey {
	oneNat := new(saferith.Nat).SetUint64(1)
	nNat := n.Nat()
	nSquared := saferith.ModulusFromNat(new(saferith.Nat).Mul(nNat, nNat, -1))
	nPlusOne := new(saferith.Nat).Add(nNat, oneNat, -1)
	// Tightening is fine, since n is public
	nPlusOne.Resize(nPlusOne.TrueLen())
	nHalf := new(saferith.Nat).Rsh(nNat, 1, -1)

	return &PublicKey{
		n:        arith.ModulusFromN(n),
		nSquared: arith.ModulusFromN(nSquared),
		nNat:     nNat,
		nPlusOne: nPlusOne,
		nHalf:    nHalf,
	}
}

// ValidateN performs basic checks to make sure the modulus is valid:
// - log₂(n) = params.BitsPaillier.
// - n is odd.
//
// n is a Nat so that values received from other parties can be checked before building a saferith.Modulus,
// which cannot hold 0.
func ValidateN(n *saferith.Nat) error {
	if n == nil {
		return ErrPaillierNil
	}
	// log₂(N) = BitsPaillier
	if bits := n.TrueLen(); bits != params.BitsPaillier {
		return fmt.Errorf("have: %d, need %d: %w", bits, params.BitsPaillier, ErrPaillierLength)
	}
	if n.Byte(0)&1 != 1 {
		return ErrPaillierEven
	}
	return nil
}

// Enc returns the encryption of m under the public key pk.
// The nonce used to encrypt is returned.
//
// The message m must be in the range [-(N-1)/2, …, (N-1)/2].
//
// ct = (1+N)ᵐρᴺ (mod N²).
func (pk *PublicKey) Enc(m *saferith.Int) (*Ciphertext, *saferith.Nat, error) {
	return pk.EncReader(rand.Reader, m)
}

// EncReader is like Enc, but samples the nonce from rand.
func (pk *PublicKey) EncReader(rand io.Reader, m *saferith.Int) (*Ciphertext, *saferith.Nat, error) {
	nonce, err := sample.UnitModN(rand, pk.n.Modulus)
	if err != nil {
		return nil, nil, fmt.Errorf("paillier: nonce: %w", err)
	}
	ct, err := pk.EncWithNonce(m, nonce)
	if err != nil {
		return nil, nil, err
	}
	return ct, nonce, nil
}

// EncWithNonce returns the encryption of m under the public key pk, using the given nonce ρ ∈ ℤₙˣ.
//
// The message m must be in the range [-(N-1)/2, …, (N-1)/2].
//
// ct = (1+N)ᵐρᴺ (mod N²).
func (pk *PublicKey) EncWithNonce(m *saferith.Int, nonce *saferith.Nat) (*Ciphertext, error) {
	if m == nil || nonce == nil {
		return nil, errors.New("paillier: nil message or nonce")
	}
	if gt, _, _ := m.Abs().Cmp(pk.nHalf); gt == 1 {
		return nil, ErrPaillierRange
	}
	// (N+1)ᵐ mod N²
	c := pk.nSquared.ExpI(pk.nPlusOne, m)
	// ρᴺ mod N²
	rhoN := pk.nSquared.Exp(nonce, pk.nNat)
	// (N+1)ᵐ ρᴺ
	c.ModMul(c, rhoN, pk.nSquared.Modulus)

	return &Ciphertext{c: c}, nil
}

// Equal returns true if pk ≡ other.
func (pk *PublicKey) Equal(other *PublicKey) bool {
	return pk.nNat.Eq(other.nNat) == 1
}

// ValidateCiphertexts checks if all ciphertexts are in the correct range and coprime to N²
// ct ∈ [1, …, N²-1] AND GCD(ct,N²) = 1.
func (pk *PublicKey) ValidateCiphertexts(cts ...*Ciphertext) bool {
	for _, ct := range cts {
		if ct == nil || ct.c == nil {
			return false
		}
		if _, _, lt := ct.c.CmpMod(pk.nSquared.Modulus); lt != 1 {
			return false
		}
		if ct.c.IsUnit(pk.nSquared.Modulus) != 1 {
			return false
		}
	}
	return true
}

// WriteTo implements io.WriterTo and should be used within the hash.Hash function.
func (pk *PublicKey) WriteTo(w io.Writer) (int64, error) {
	if pk == nil {
		return 0, io.ErrUnexpectedEOF
	}
	buf := make([]byte, params.BytesPaillier)
	pk.nNat.FillBytes(buf)
	n, err := w.Write(buf)
	return int64(n), err
}

// Domain implements hash.WriterToWithDomain, and separates this type within hash.Hash.
func (PublicKey) Domain() string {
	return "Paillier PublicKey"
}
