package pedersen_test

import (
	"crypto/rand"
	"testing"

	"github.com/cronokirby/saferith"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/cmp-keygen/internal/test"
	"github.com/taurusgroup/cmp-keygen/pkg/pedersen"
)

func TestPedersenInvariant(t *testing.T) {
	sk, _ := test.PaillierSecretKeys()
	ped, lambda, err := sk.GeneratePedersen(rand.Reader)
	require.NoError(t, err)

	s := new(saferith.Nat).Exp(ped.T(), lambda, ped.N())
	assert.Equal(t, saferith.Choice(1), s.Eq(ped.S()), "tˡ mod N = s")
	assert.NoError(t, pedersen.ValidateParameters(ped.N(), ped.S(), ped.T()))
	assert.NoError(t, ped.Validate())
}

func TestValidateParameters(t *testing.T) {
	sk, _ := test.PaillierSecretKeys()
	ped, _, err := sk.GeneratePedersen(rand.Reader)
	require.NoError(t, err)
	n := ped.N()
	p := sk.P()

	zero := new(saferith.Nat).SetUint64(0)
	tooLarge := new(saferith.Nat).Add(n.Nat(), new(saferith.Nat).SetUint64(1), -1)

	tests := []struct {
		name string
		s, t *saferith.Nat
		err  error
	}{
		{"valid", ped.S(), ped.T(), nil},
		{"nil s", nil, ped.T(), pedersen.ErrNilFields},
		{"zero t", ped.S(), zero, pedersen.ErrNilFields},
		{"s = t", ped.T(), ped.T(), pedersen.ErrSEqualT},
		{"s out of range", tooLarge, ped.T(), pedersen.ErrNotValidModN},
		{"t not coprime", ped.S(), p, pedersen.ErrNotValidModN},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pedersen.ValidateParameters(n, tt.s, tt.t)
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
	assert.ErrorIs(t, pedersen.ValidateParameters(nil, ped.S(), ped.T()), pedersen.ErrNilFields)
}
