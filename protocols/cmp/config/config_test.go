package config_test

import (
	"crypto/rand"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/cmp-keygen/internal/bip32"
	"github.com/taurusgroup/cmp-keygen/internal/test"
	"github.com/taurusgroup/cmp-keygen/pkg/hash"
	"github.com/taurusgroup/cmp-keygen/pkg/math/curve"
	"github.com/taurusgroup/cmp-keygen/pkg/math/polynomial"
	"github.com/taurusgroup/cmp-keygen/pkg/paillier"
	"github.com/taurusgroup/cmp-keygen/pkg/party"
	"github.com/taurusgroup/cmp-keygen/protocols/cmp/config"
)

func fakeConfigs(t *testing.T) map[party.ID]*config.Config {
	t.Helper()
	return test.FakeConfigs(rand.Reader, curve.Secp256k1{}, test.PartyIDs(3), 1)
}

func TestConfig_Validate(t *testing.T) {
	for _, c := range fakeConfigs(t) {
		require.NoError(t, c.Validate())
		assert.Equal(t, c.ID, c.Self().ID)
	}
}

func TestConfig_ValidateReportsAll(t *testing.T) {
	configs := fakeConfigs(t)
	c := configs["a"]
	c.Threshold = 3
	c.RID = c.RID[:4]
	c.ECDSA = curve.Secp256k1{}.NewScalar().Set(configs["b"].ECDSA)

	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "threshold 3")
	assert.Contains(t, err.Error(), "rid")
	assert.Contains(t, err.Error(), "ECDSA secret key share")
}

func TestConfig_PublicPoint(t *testing.T) {
	group := curve.Secp256k1{}
	configs := fakeConfigs(t)
	ids := test.PartyIDs(3)

	// any t+1 shares interpolate the secret
	subset := ids[:2]
	l := polynomial.Lagrange(group, subset)
	secret := group.NewScalar()
	for _, id := range subset {
		secret.Add(group.NewScalar().Set(configs[id].ECDSA).Mul(l[id]))
	}

	for _, c := range configs {
		assert.True(t, c.PublicPoint().Equal(secret.ActOnBase()))
	}
}

func TestConfig_CanSign(t *testing.T) {
	c := fakeConfigs(t)["a"]
	assert.True(t, c.CanSign(party.NewIDSlice([]party.ID{"a", "b"})))
	assert.True(t, c.CanSign(party.NewIDSlice([]party.ID{"a", "b", "c"})))
	assert.False(t, c.CanSign(party.IDSlice{"a"}), "not enough signers")
	assert.False(t, c.CanSign(party.IDSlice{"b", "c"}), "self not included")
	assert.False(t, c.CanSign(party.IDSlice{"a", "d"}), "unknown signer")
	assert.False(t, c.CanSign(party.IDSlice{"b", "a"}), "unsorted")
}

func TestConfig_Marshal(t *testing.T) {
	for _, c := range fakeConfigs(t) {
		data, err := cbor.Marshal(c)
		require.NoError(t, err)

		c2 := config.EmptyConfig(curve.Secp256k1{})
		require.NoError(t, cbor.Unmarshal(data, c2))
		require.NoError(t, c2.Validate())

		assert.Equal(t, c.ID, c2.ID)
		assert.Equal(t, c.Threshold, c2.Threshold)
		assert.True(t, c.ECDSA.Equal(c2.ECDSA))
		assert.True(t, c.ElGamal.Equal(c2.ElGamal))
		assert.True(t, c.RID.Equal(c2.RID))
		assert.True(t, c.ChainKey.Equal(c2.ChainKey))
		for id, p := range c.Public {
			assert.True(t, p.Equal(c2.Public[id]))
		}
		assert.True(t, c.PublicPoint().Equal(c2.PublicPoint()))

		h1, err := hash.New(c).Sum()
		require.NoError(t, err)
		h2, err := hash.New(c2).Sum()
		require.NoError(t, err)
		assert.Equal(t, h1, h2)
	}

	assert.Error(t, new(config.Config).UnmarshalBinary([]byte{0}))
}

func TestConfig_UnmarshalZeroModulus(t *testing.T) {
	c := fakeConfigs(t)["a"]
	data, err := c.MarshalBinary()
	require.NoError(t, err)

	var encoded map[string]cbor.RawMessage
	require.NoError(t, cbor.Unmarshal(data, &encoded))
	var public []map[string]interface{}
	require.NoError(t, cbor.Unmarshal(encoded["Public"], &public))
	for _, p := range public {
		if p["ID"] == "b" {
			p["N"] = []byte{0}
		}
	}
	encoded["Public"], err = cbor.Marshal(public)
	require.NoError(t, err)
	tampered, err := cbor.Marshal(encoded)
	require.NoError(t, err)

	c2 := config.EmptyConfig(curve.Secp256k1{})
	err = c2.UnmarshalBinary(tampered)
	assert.ErrorIs(t, err, paillier.ErrPaillierLength)
}

func TestConfig_DeriveChild(t *testing.T) {
	configs := fakeConfigs(t)
	children := make(map[party.ID]*config.Config, len(configs))
	for id, c := range configs {
		child, err := c.DeriveChild(1)
		require.NoError(t, err)
		require.NoError(t, child.Validate())
		children[id] = child
	}

	expected, _, err := bip32.DeriveScalar(configs["a"].PublicPoint(), configs["a"].ChainKey, 1)
	require.NoError(t, err)
	shifted := configs["a"].PublicPoint().Add(expected.ActOnBase())
	for _, child := range children {
		assert.True(t, child.PublicPoint().Equal(shifted))
		assert.False(t, child.ChainKey.Equal(configs["a"].ChainKey))
	}

	_, err = configs["a"].DeriveChild(1 << 31)
	assert.ErrorIs(t, err, bip32.ErrHardenedIndex)

	path, err := bip32.PathFrom("1/2")
	require.NoError(t, err)
	derived, err := configs["a"].DerivePath(path)
	require.NoError(t, err)
	grandchild, err := children["a"].DeriveChild(2)
	require.NoError(t, err)
	assert.True(t, derived.PublicPoint().Equal(grandchild.PublicPoint()))
}
