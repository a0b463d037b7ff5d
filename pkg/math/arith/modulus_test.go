package arith_test

import (
	"crypto/rand"
	mrand "math/rand"
	"testing"

	"github.com/cronokirby/saferith"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/cmp-keygen/pkg/math/arith"
	"github.com/taurusgroup/cmp-keygen/pkg/math/sample"
)

func samplePrimes(t *testing.T) (*saferith.Nat, *saferith.Nat) {
	p, err := rand.Prime(rand.Reader, 512)
	require.NoError(t, err)
	q, err := rand.Prime(rand.Reader, 512)
	require.NoError(t, err)
	for p.Cmp(q) == 0 {
		q, err = rand.Prime(rand.Reader, 512)
		require.NoError(t, err)
	}
	return new(saferith.Nat).SetBig(p, p.BitLen()), new(saferith.Nat).SetBig(q, q.BitLen())
}

func TestModulus_Exp(t *testing.T) {
	r := mrand.New(mrand.NewSource(0))
	p, q := samplePrimes(t)

	nFast := arith.ModulusFromFactors(p, q)
	nSlow := arith.ModulusFromN(saferith.ModulusFromNat(new(saferith.Nat).Mul(p, q, -1)))
	require.Equal(t, saferith.Choice(1), nFast.Nat().Eq(nSlow.Nat()), "n moduli should be the same")

	x := sample.ModN(r, nSlow.Modulus)
	e := sample.ModN(r, nSlow.Modulus)
	eNeg := new(saferith.Int).SetNat(e).Neg(1)

	yExpected := new(saferith.Nat).Exp(x, e, nSlow.Modulus)
	assert.Equal(t, saferith.Choice(1), yExpected.Eq(nFast.Exp(x, e)), "exponentiation with acceleration should give the same result")
	assert.Equal(t, saferith.Choice(1), yExpected.Eq(nSlow.Exp(x, e)))

	yExpected.ExpI(x, eNeg, nSlow.Modulus)
	assert.Equal(t, saferith.Choice(1), yExpected.Eq(nFast.ExpI(x, eNeg)), "negative exponentiation with acceleration should give the same result")
	assert.Equal(t, saferith.Choice(1), yExpected.Eq(nSlow.ExpI(x, eNeg)))
}

func TestIsValidNatModN(t *testing.T) {
	n := saferith.ModulusFromUint64(3 * 5 * 7)
	tests := []struct {
		name  string
		value *saferith.Nat
		want  bool
	}{
		{"unit", new(saferith.Nat).SetUint64(2), true},
		{"zero", new(saferith.Nat).SetUint64(0), false},
		{"not coprime", new(saferith.Nat).SetUint64(9), false},
		{"out of range", new(saferith.Nat).SetUint64(106), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, arith.IsValidNatModN(n, tt.value))
		})
	}
}
