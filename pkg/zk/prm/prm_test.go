package zkprm

import (
	"crypto/rand"
	"testing"

	"github.com/cronokirby/saferith"
	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/cmp-keygen/internal/test"
	"github.com/taurusgroup/cmp-keygen/pkg/hash"
	"github.com/taurusgroup/cmp-keygen/pkg/pool"
)

func TestPrm(t *testing.T) {
	pl := pool.NewPool(0)
	defer pl.TearDown()

	sk := test.PaillierSecretKey(0)
	ped, lambda, err := sk.GeneratePedersen(rand.Reader)
	require.NoError(t, err)

	public := Public{
		ped.N(),
		ped.S(),
		ped.T(),
	}

	proof := NewProof(Private{
		Lambda: lambda,
		Phi:    sk.Phi(),
		P:      sk.P(),
		Q:      sk.Q(),
	}, hash.New(), public, pl)
	require.NotNil(t, proof)
	assert.True(t, proof.Verify(public, hash.New(), pl))
	assert.False(t, proof.Verify(public, hash.New(hash.Text("other")), pl), "proof verified with another transcript")

	swapped := Public{ped.N(), ped.T(), ped.S()}
	assert.False(t, proof.Verify(swapped, hash.New(), pl), "proof verified with s and t swapped")

	out, err := cbor.Marshal(proof)
	require.NoError(t, err, "failed to marshal proof")
	proof2 := &Proof{}
	require.NoError(t, cbor.Unmarshal(out, proof2), "failed to unmarshal proof")
	out2, err := cbor.Marshal(proof2)
	require.NoError(t, err, "failed to marshal 2nd proof")
	proof3 := &Proof{}
	require.NoError(t, cbor.Unmarshal(out2, proof3), "failed to unmarshal 2nd proof")

	assert.True(t, proof3.Verify(public, hash.New(), pl))

	proof3.As[0] = new(saferith.Nat).SetUint64(1)
	assert.False(t, proof3.Verify(public, hash.New(), pl))
}

var p *Proof

func BenchmarkCRT(b *testing.B) {
	b.StopTimer()
	pl := pool.NewPool(0)
	defer pl.TearDown()

	sk := test.PaillierSecretKey(1)
	ped, lambda, err := sk.GeneratePedersen(rand.Reader)
	require.NoError(b, err)

	public := Public{
		ped.N(),
		ped.S(),
		ped.T(),
	}

	private := Private{
		Lambda: lambda,
		Phi:    sk.Phi(),
		P:      sk.P(),
		Q:      sk.Q(),
	}
	b.StartTimer()
	for i := 0; i < b.N; i++ {
		p = NewProof(private, hash.New(), public, nil)
	}
}
