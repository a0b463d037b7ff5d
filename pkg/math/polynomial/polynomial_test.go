package polynomial

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand"
	"testing"

	"github.com/cronokirby/saferith"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/cmp-keygen/pkg/math/curve"
	"github.com/taurusgroup/cmp-keygen/pkg/math/sample"
)

func scalarUint64(group curve.Curve, x uint64) curve.Scalar {
	return group.NewScalar().SetNat(new(saferith.Nat).SetUint64(x))
}

func TestPolynomial_Constant(t *testing.T) {
	group := curve.Secp256k1{}
	deg := 10
	secret := sample.Scalar(rand.Reader, group)
	poly := NewPolynomial(rand.Reader, group, deg, secret)
	require.True(t, poly.Constant().Equal(secret))
	assert.EqualValues(t, deg, poly.Degree())

	zero := NewPolynomial(rand.Reader, group, deg, nil)
	assert.True(t, zero.Constant().IsZero())
}

func TestPolynomial_Evaluate(t *testing.T) {
	group := curve.Secp256k1{}
	polynomial := &Polynomial{group: group, coefficients: []curve.Scalar{
		scalarUint64(group, 1),
		scalarUint64(group, 0),
		scalarUint64(group, 1),
	}}

	for index := 0; index < 100; index++ {
		x := uint64(mrand.Uint32()) + 1
		result := new(big.Int).SetUint64(x)
		result.Mul(result, result)
		result.Add(result, big.NewInt(1))
		computedResult := polynomial.Evaluate(scalarUint64(group, x))
		expectedResult := group.NewScalar().SetNat(new(saferith.Nat).SetBig(result, result.BitLen()))
		assert.True(t, expectedResult.Equal(computedResult))
	}
}

func TestPolynomial_EvaluateZero(t *testing.T) {
	group := curve.Secp256k1{}
	poly := NewPolynomial(rand.Reader, group, 2, sample.Scalar(rand.Reader, group))

	_, err := poly.EvaluateChecked(group.NewScalar())
	assert.ErrorIs(t, err, ErrLeakSecret)
	assert.Panics(t, func() { poly.Evaluate(group.NewScalar()) })
}
