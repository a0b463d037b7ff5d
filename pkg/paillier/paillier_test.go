package paillier_test

import (
	"crypto/rand"
	"testing"

	"github.com/cronokirby/saferith"
	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/cmp-keygen/internal/params"
	"github.com/taurusgroup/cmp-keygen/internal/test"
	"github.com/taurusgroup/cmp-keygen/pkg/math/sample"
	"github.com/taurusgroup/cmp-keygen/pkg/paillier"
	"github.com/taurusgroup/cmp-keygen/pkg/pool"
)

var paillierSecret, otherSecret = test.PaillierSecretKeys()

func randomMessage(t *testing.T, bits int) *saferith.Int {
	buf := make([]byte, (bits+7)/8+1)
	_, err := rand.Read(buf)
	require.NoError(t, err)
	m := new(saferith.Int).SetBytes(buf[1:])
	return m.Neg(saferith.Choice(buf[0] & 1))
}

func TestCiphertextValidate(t *testing.T) {
	pk := paillierSecret.PublicKey
	m := new(saferith.Int).SetUint64(42)
	ct, _, err := pk.Enc(m)
	require.NoError(t, err)
	assert.True(t, pk.ValidateCiphertexts(ct))

	data, err := ct.MarshalBinary()
	require.NoError(t, err)

	zero := new(paillier.Ciphertext)
	require.NoError(t, zero.UnmarshalBinary(make([]byte, params.BytesCiphertext)))
	assert.False(t, pk.ValidateCiphertexts(zero), "0 is not a valid ciphertext")
	_, err = paillierSecret.Dec(zero)
	assert.ErrorIs(t, err, paillier.ErrPaillierCiphertext)

	// N² itself is out of range
	nSquared := new(saferith.Nat).Mul(pk.N().Nat(), pk.N().Nat(), -1)
	tooLarge := new(paillier.Ciphertext)
	require.NoError(t, tooLarge.UnmarshalBinary(nSquared.FillBytes(make([]byte, params.BytesCiphertext))))
	assert.False(t, pk.ValidateCiphertexts(tooLarge))

	decoded := new(paillier.Ciphertext)
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.Equal(t, saferith.Choice(1), ct.Nat().Eq(decoded.Nat()))
	assert.False(t, pk.ValidateCiphertexts(nil))
}

func TestEncDecRoundTrip(t *testing.T) {
	pk := paillierSecret.PublicKey
	for _, bits := range []int{1, 8, 64, 256, 1024, params.BitsPaillier - 8} {
		for i := 0; i < 4; i++ {
			m := randomMessage(t, bits)
			ct, _, err := pk.Enc(m)
			require.NoError(t, err)
			dec, err := paillierSecret.Dec(ct)
			require.NoError(t, err)
			assert.Equal(t, saferith.Choice(1), m.Eq(dec), "decrypting should return the original message (%d bits)", bits)
		}
	}
}

func TestEncRange(t *testing.T) {
	pk := paillierSecret.PublicKey
	nHalf := new(saferith.Nat).Rsh(pk.N().Nat(), 1, -1)

	// ±(N-1)/2 are the extreme valid messages
	for _, neg := range []saferith.Choice{0, 1} {
		m := new(saferith.Int).SetNat(nHalf).Neg(neg)
		ct, _, err := pk.Enc(m)
		require.NoError(t, err)
		dec, err := paillierSecret.Dec(ct)
		require.NoError(t, err)
		assert.Equal(t, saferith.Choice(1), m.Eq(dec))
	}

	tooLarge := new(saferith.Nat).Add(nHalf, new(saferith.Nat).SetUint64(1), -1)
	_, _, err := pk.Enc(new(saferith.Int).SetNat(tooLarge))
	assert.ErrorIs(t, err, paillier.ErrPaillierRange)
}

func TestEncWithNonce(t *testing.T) {
	pk := paillierSecret.PublicKey
	m := new(saferith.Int).SetUint64(7)
	ct, nonce, err := pk.Enc(m)
	require.NoError(t, err)
	ct2, err := pk.EncWithNonce(m, nonce)
	require.NoError(t, err)
	assert.Equal(t, saferith.Choice(1), ct.Nat().Eq(ct2.Nat()), "encryption should be deterministic given the nonce")

	otherNonce, err := sample.UnitModN(rand.Reader, pk.N())
	require.NoError(t, err)
	ct3, err := pk.EncWithNonce(m, otherNonce)
	require.NoError(t, err)
	assert.Equal(t, saferith.Choice(0), ct.Nat().Eq(ct3.Nat()))
}

func TestCiphertextCBOR(t *testing.T) {
	pk := paillierSecret.PublicKey
	ct, _, err := pk.Enc(new(saferith.Int).SetUint64(3))
	require.NoError(t, err)
	data, err := cbor.Marshal(map[string]*paillier.Ciphertext{"a": ct})
	require.NoError(t, err)
	var decoded map[string]*paillier.Ciphertext
	require.NoError(t, cbor.Unmarshal(data, &decoded))
	assert.Equal(t, saferith.Choice(1), ct.Nat().Eq(decoded["a"].Nat()))
}

func TestValidateN(t *testing.T) {
	assert.NoError(t, paillier.ValidateN(paillierSecret.N().Nat()))
	assert.ErrorIs(t, paillier.ValidateN(nil), paillier.ErrPaillierNil)

	primes := test.SafePrimes()
	assert.ErrorIs(t, paillier.ValidateN(primes[0][0]), paillier.ErrPaillierLength)

	even := new(saferith.Nat).Lsh(primes[0][0], 1024, -1)
	assert.ErrorIs(t, paillier.ValidateN(even), paillier.ErrPaillierEven)

	assert.ErrorIs(t, paillier.ValidateN(new(saferith.Nat)), paillier.ErrPaillierLength)

	// a zero modulus decodes as a Nat without panicking
	var decoded struct{ N *saferith.Nat }
	data, err := cbor.Marshal(map[string][]byte{"N": {0}})
	require.NoError(t, err)
	require.NoError(t, cbor.Unmarshal(data, &decoded))
	assert.ErrorIs(t, paillier.ValidateN(decoded.N), paillier.ErrPaillierLength)
}

func TestValidatePrime(t *testing.T) {
	primes := test.SafePrimes()
	for _, pair := range primes {
		for _, p := range pair {
			assert.NoError(t, paillier.ValidatePrime(p))
		}
	}
	assert.ErrorIs(t, paillier.ValidatePrime(nil), paillier.ErrPrimeNil)

	short := new(saferith.Nat).Rsh(primes[0][0], 8, -1)
	assert.ErrorIs(t, paillier.ValidatePrime(short), paillier.ErrPrimeBadLength)

	// p + 2 ≡ 1 (mod 4)
	notBlum := new(saferith.Nat).Add(primes[0][0], new(saferith.Nat).SetUint64(2), -1)
	assert.ErrorIs(t, paillier.ValidatePrime(notBlum), paillier.ErrNotBlum)

	assert.ErrorIs(t, paillier.ValidatePrime(test.NotSafePrime), paillier.ErrNotSafePrime)
}

func TestGeneratePedersen(t *testing.T) {
	ped, lambda, err := paillierSecret.GeneratePedersen(rand.Reader)
	require.NoError(t, err)
	require.NoError(t, ped.Validate())
	s := ped.NArith().Exp(ped.T(), lambda)
	assert.Equal(t, saferith.Choice(1), s.Eq(ped.S()), "s = tˡ mod N")
}

func TestKeyGen(t *testing.T) {
	if testing.Short() {
		t.Skip("paillier key generation is slow")
	}
	pl := pool.NewPool(0)
	defer pl.TearDown()
	pk, sk, err := paillier.KeyGen(rand.Reader, pl)
	require.NoError(t, err)
	require.NoError(t, paillier.ValidateN(pk.N().Nat()))
	require.NoError(t, paillier.ValidatePrime(sk.P()))
	require.NoError(t, paillier.ValidatePrime(sk.Q()))
	assert.False(t, pk.Equal(otherSecret.PublicKey))
}
