package sample

import (
	"bytes"
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/cronokirby/saferith"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/cmp-keygen/internal/params"
	"github.com/taurusgroup/cmp-keygen/pkg/math/arith"
	"github.com/taurusgroup/cmp-keygen/pkg/math/curve"
	"github.com/taurusgroup/cmp-keygen/pkg/pool"
)

func TestModN(t *testing.T) {
	n := saferith.ModulusFromUint64(3 * 11 * 65519)
	x := ModN(rand.Reader, n)
	_, _, lt := x.CmpMod(n)
	assert.Equal(t, saferith.Choice(1), lt, "ModN generated a number >= %v: %v", x, n)
}

func TestUnitModN(t *testing.T) {
	n := saferith.ModulusFromUint64(3 * 11 * 65519)
	for i := 0; i < 20; i++ {
		x, err := UnitModN(rand.Reader, n)
		require.NoError(t, err)
		assert.Equal(t, saferith.Choice(1), x.IsUnit(n))
	}
}

func TestQNR(t *testing.T) {
	// 311 ≡ 331 ≡ 3 mod 4
	n := saferith.ModulusFromUint64(311 * 331)
	for i := 0; i < 20; i++ {
		w, err := QNR(rand.Reader, n)
		require.NoError(t, err)
		assert.Equal(t, -1, big.Jacobi(w.Big(), n.Big()))
	}
}

func TestModNExhaustedRandomness(t *testing.T) {
	n := saferith.ModulusFromUint64(3 * 11 * 65519)
	assert.PanicsWithValue(t, ErrMaxIterations, func() {
		ModN(bytes.NewReader(nil), n)
	})
}

func TestBlumPrime(t *testing.T) {
	if testing.Short() {
		t.Skip("blum prime generation is slow")
	}
	pNat, err := BlumPrime(rand.Reader)
	require.NoError(t, err)
	p := pNat.Big()
	assert.Equal(t, params.BitsBlumPrime, p.BitLen())
	assert.True(t, p.ProbablyPrime(20), "BlumPrime generated a non prime number: %v", p)
	q := new(big.Int).Rsh(p, 1)
	assert.True(t, q.ProbablyPrime(20), "p isn't safe because (p - 1) / 2 isn't prime")
	assert.Equal(t, big.Word(3), p.Bits()[0]&3, "p should be 3 mod 4")
}

func TestPaillierPool(t *testing.T) {
	if testing.Short() {
		t.Skip("blum prime generation is slow")
	}
	pl := pool.NewPool(0)
	defer pl.TearDown()
	p, q, err := Paillier(rand.Reader, pl)
	require.NoError(t, err)
	assert.Equal(t, saferith.Choice(0), p.Eq(q))
	assert.Equal(t, params.BitsBlumPrime, p.TrueLen())
	assert.Equal(t, params.BitsBlumPrime, q.TrueLen())
}

func TestPedersen(t *testing.T) {
	p, _ := rand.Prime(rand.Reader, 512)
	q, _ := rand.Prime(rand.Reader, 512)
	pNat := new(saferith.Nat).SetBig(p, p.BitLen())
	qNat := new(saferith.Nat).SetBig(q, q.BitLen())
	n := arith.ModulusFromFactors(pNat, qNat)
	phi := new(big.Int).Mul(new(big.Int).Sub(p, big.NewInt(1)), new(big.Int).Sub(q, big.NewInt(1)))
	phiNat := new(saferith.Nat).SetBig(phi, phi.BitLen())

	s, tt, lambda, err := Pedersen(rand.Reader, phiNat, n)
	require.NoError(t, err)
	assert.Equal(t, saferith.Choice(1), s.Eq(new(saferith.Nat).Exp(tt, lambda, n.Modulus)), "s = tˡ mod N")
	assert.True(t, arith.IsValidNatModN(n.Modulus, s, tt))
}

func TestExhaustedRandomness(t *testing.T) {
	// 311 ≡ 331 ≡ 3 mod 4
	n := saferith.ModulusFromUint64(311 * 331)
	phi := new(saferith.Nat).SetUint64(310 * 330)

	_, err := UnitModN(bytes.NewReader(nil), n)
	assert.ErrorIs(t, err, ErrMaxIterations)

	_, err = QNR(bytes.NewReader(nil), n)
	assert.ErrorIs(t, err, ErrMaxIterations)

	_, _, _, err = Pedersen(bytes.NewReader(nil), phi, arith.ModulusFromN(n))
	assert.ErrorIs(t, err, ErrMaxIterations)

	// λ can be read, but not τ
	_, _, _, err = Pedersen(bytes.NewReader(make([]byte, 3)), phi, arith.ModulusFromN(n))
	assert.ErrorIs(t, err, ErrMaxIterations)

	// every candidate is 0
	zeros := make([]byte, 3*maxIterations)
	_, err = UnitModN(bytes.NewReader(zeros), n)
	assert.ErrorIs(t, err, ErrMaxIterations)
}

func TestAlphanumeric(t *testing.T) {
	s := Alphanumeric(rand.Reader, 8)
	assert.Len(t, s, 8)
	for _, c := range s {
		assert.Contains(t, alphanumeric, string(c))
	}
}

func TestScalarPointPair(t *testing.T) {
	group := curve.Secp256k1{}
	x, X := ScalarPointPair(rand.Reader, group)
	assert.True(t, x.ActOnBase().Equal(X))
}

// This exists to save the results of functions we want to benchmark, to avoid
// having them optimized away.
var resultNat *saferith.Nat

func BenchmarkBlumPrime(b *testing.B) {
	for i := 0; i < b.N; i++ {
		resultNat, _ = BlumPrime(rand.Reader)
	}
}
