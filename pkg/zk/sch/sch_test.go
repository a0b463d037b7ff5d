package zksch

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/cmp-keygen/pkg/hash"
	"github.com/taurusgroup/cmp-keygen/pkg/math/curve"
	"github.com/taurusgroup/cmp-keygen/pkg/math/sample"
)

func TestSchPass(t *testing.T) {
	group := curve.Secp256k1{}

	a := NewRandomness(rand.Reader, group, nil)
	x, X := sample.ScalarPointPair(rand.Reader, group)
	proof := a.Prove(hash.New(), X, x, nil)
	assert.True(t, proof.Verify(hash.New(), X, a.Commitment(), nil), "failed to verify response")
	assert.False(t, proof.Verify(hash.New(hash.Text("other")), X, a.Commitment(), nil), "verified with a different transcript")

	p := NewProof(hash.New(), X, x, nil)
	assert.True(t, p.Verify(hash.New(), X, nil), "failed to verify proof")
}

func TestSchGenerator(t *testing.T) {
	group := curve.Secp256k1{}
	_, gen := sample.ScalarPointPair(rand.Reader, group)
	x := sample.Scalar(rand.Reader, group)
	X := x.Act(gen)

	a := NewRandomness(rand.Reader, group, gen)
	assert.True(t, a.Commitment().IsValid())
	proof := a.Prove(hash.New(), X, x, gen)
	assert.True(t, proof.Verify(hash.New(), X, a.Commitment(), gen))
	assert.False(t, proof.Verify(hash.New(), X, a.Commitment(), nil), "verified with the wrong generator")
}

func TestSchFail(t *testing.T) {
	group := curve.Secp256k1{}
	a := NewRandomness(rand.Reader, group, nil)
	x, X := group.NewScalar(), group.NewPoint()

	assert.Nil(t, a.Prove(hash.New(), X, x, nil), "proof should not accept identity point")

	x, X = sample.ScalarPointPair(rand.Reader, group)
	_, Y := sample.ScalarPointPair(rand.Reader, group)
	proof := a.Prove(hash.New(), X, x, nil)
	assert.False(t, proof.Verify(hash.New(), Y, a.Commitment(), nil), "proof verified for another public key")
	assert.False(t, EmptyResponse(group).Verify(hash.New(), X, a.Commitment(), nil))
}

func TestSchMarshal(t *testing.T) {
	group := curve.Secp256k1{}
	a := NewRandomness(rand.Reader, group, nil)
	x, X := sample.ScalarPointPair(rand.Reader, group)
	proof := a.Prove(hash.New(), X, x, nil)

	zData, err := proof.MarshalBinary()
	require.NoError(t, err)
	cData, err := a.Commitment().MarshalBinary()
	require.NoError(t, err)

	z, c := EmptyResponse(group), EmptyCommitment(group)
	require.NoError(t, z.UnmarshalBinary(zData))
	require.NoError(t, c.UnmarshalBinary(cData))
	assert.True(t, z.Verify(hash.New(), X, c, nil))
}
