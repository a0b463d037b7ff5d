package keygen

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cronokirby/saferith"
	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/cmp-keygen/internal/round"
	"github.com/taurusgroup/cmp-keygen/internal/test"
	"github.com/taurusgroup/cmp-keygen/pkg/hash"
	"github.com/taurusgroup/cmp-keygen/pkg/math/arith"
	"github.com/taurusgroup/cmp-keygen/pkg/math/curve"
	"github.com/taurusgroup/cmp-keygen/pkg/math/polynomial"
	"github.com/taurusgroup/cmp-keygen/pkg/paillier"
	"github.com/taurusgroup/cmp-keygen/pkg/party"
	"github.com/taurusgroup/cmp-keygen/pkg/pedersen"
	"github.com/taurusgroup/cmp-keygen/pkg/protocol"
	zksch "github.com/taurusgroup/cmp-keygen/pkg/zk/sch"
	"github.com/taurusgroup/cmp-keygen/protocols/cmp/config"
	"github.com/zeebo/blake3"
	"golang.org/x/sync/errgroup"
)

type result struct {
	configs map[party.ID]*config.Config
	errs    map[party.ID]error
}

// newSessions creates a session for each of ids, connected through network.
// If withList is false, the sessions are only given the number of parties.
func newSessions(t *testing.T, ids party.IDSlice, threshold int, withList bool, network func(party.ID) round.Network) map[party.ID]*Session {
	t.Helper()
	sessions := make(map[party.ID]*Session, len(ids))
	for i, id := range ids {
		cfg := Config{
			SelfID:         id,
			Threshold:      threshold,
			N:              len(ids),
			Network:        network(id),
			PaillierSecret: test.PaillierSecretKey(i),
		}
		if withList {
			cfg.PartyIDs = ids
		}
		s, err := NewSession(cfg)
		require.NoError(t, err)
		sessions[id] = s
	}
	return sessions
}

// runKeygen runs a keygen between ids over a LocalRouter.
func runKeygen(t *testing.T, ids party.IDSlice, threshold int, withList bool, intercept func(party.ID, *round.Message)) result {
	t.Helper()

	router := protocol.NewLocalRouter(protocol.WithTimeout(30 * time.Second))
	router.Intercept = intercept
	sessions := newSessions(t, ids, threshold, withList, func(id party.ID) round.Network {
		return router.Network(id)
	})

	res := result{
		configs: make(map[party.ID]*config.Config, len(ids)),
		errs:    make(map[party.ID]error, len(ids)),
	}
	var mtx sync.Mutex
	eg, ctx := errgroup.WithContext(context.Background())
	for id, s := range sessions {
		id, s := id, s
		eg.Go(func() error {
			c, err := s.Run(ctx)
			mtx.Lock()
			defer mtx.Unlock()
			if err != nil {
				res.errs[id] = err
				return err
			}
			res.configs[id] = c
			return nil
		})
	}
	_ = eg.Wait()
	return res
}

// heldNetwork does not send round 2 messages until it is released.
type heldNetwork struct {
	round.Network
	released atomic.Bool
}

func (n *heldNetwork) Send(msg *round.Message) error {
	if msg.RoundNumber == 2 && !n.released.Load() {
		return nil
	}
	return n.Network.Send(msg)
}

// runKeygenWithCulprit runs a keygen between ids where culprit applies modify to its round 2 state
// before its commitment is sent, and stops after sending its opening.
// The other parties run until they fail or finish, without cancelling each other.
func runKeygenWithCulprit(t *testing.T, ids party.IDSlice, threshold int, culprit party.ID, modify func(*round2) error) result {
	t.Helper()

	router := protocol.NewLocalRouter(protocol.WithTimeout(30 * time.Second))
	held := &heldNetwork{Network: router.Network(culprit)}
	sessions := newSessions(t, ids, threshold, true, func(id party.ID) round.Network {
		if id == culprit {
			return held
		}
		return router.Network(id)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	culpritErr := make(chan error, 1)
	go func() {
		culpritErr <- runCulprit(ctx, sessions[culprit], held, modify)
	}()

	res := result{
		configs: make(map[party.ID]*config.Config, len(ids)),
		errs:    make(map[party.ID]error, len(ids)),
	}
	var mtx sync.Mutex
	var eg errgroup.Group
	for id, s := range sessions {
		if id == culprit {
			continue
		}
		id, s := id, s
		eg.Go(func() error {
			c, err := s.Run(ctx)
			mtx.Lock()
			defer mtx.Unlock()
			if err != nil {
				res.errs[id] = err
				return nil
			}
			res.configs[id] = c
			return nil
		})
	}
	_ = eg.Wait()
	cancel()
	require.ErrorIs(t, <-culpritErr, context.Canceled)
	return res
}

func runCulprit(ctx context.Context, s *Session, held *heldNetwork, modify func(*round2) error) error {
	next, err := round.Step(ctx, s.Helper, s.Start())
	if err != nil {
		return err
	}
	r, ok := next.(*round2)
	if !ok {
		return fmt.Errorf("unexpected round %T", next)
	}
	if err = modify(r); err != nil {
		return err
	}
	held.released.Store(true)
	if err = r.Send(&broadcast2{Commitment: r.Commitment}); err != nil {
		return err
	}
	if _, err = round.Step(ctx, s.Helper, r); err != nil {
		return err
	}
	<-ctx.Done()
	return ctx.Err()
}

// stepAll processes the first rounds of every session in parallel, and returns the round each one reached.
func stepAll(t *testing.T, sessions map[party.ID]*Session, rounds int) map[party.ID]round.Round {
	t.Helper()
	reached := make(map[party.ID]round.Round, len(sessions))
	var mtx sync.Mutex
	eg, ctx := errgroup.WithContext(context.Background())
	for id, s := range sessions {
		id, s := id, s
		eg.Go(func() error {
			r := s.Start()
			for i := 0; i < rounds; i++ {
				next, err := round.Step(ctx, s.Helper, r)
				if err != nil {
					return err
				}
				r = next
			}
			mtx.Lock()
			defer mtx.Unlock()
			reached[id] = r
			return nil
		})
	}
	require.NoError(t, eg.Wait())
	return reached
}

func requireCulprit(t *testing.T, err error, culprit party.ID, number round.Number) {
	t.Helper()
	require.Error(t, err)
	var protocolErr protocol.Error
	require.True(t, errors.As(err, &protocolErr), "expected a protocol.Error, got %v", err)
	assert.Equal(t, culprit, protocolErr.Culprit)
	assert.Equal(t, number, protocolErr.RoundNumber)
}

func checkConfigs(t *testing.T, ids party.IDSlice, configs map[party.ID]*config.Config) {
	t.Helper()
	require.Len(t, configs, len(ids))

	first := configs[ids[0]]
	publicPoint := first.PublicPoint()
	require.False(t, publicPoint.IsIdentity())

	for _, id := range ids {
		c := configs[id]
		require.NoError(t, c.Validate())
		assert.Equal(t, id, c.ID)
		assert.Equal(t, ids, c.PartyIDs())
		assert.True(t, first.RID.Equal(c.RID), "rid should be common")
		assert.True(t, first.ChainKey.Equal(c.ChainKey), "chain key should be common")
		assert.True(t, publicPoint.Equal(c.PublicPoint()), "public key should be common")
		for _, j := range ids {
			assert.True(t, first.Public[j].Equal(c.Public[j]))
		}
	}

	// any t+1 shares reconstruct the secret key
	group := first.Group
	signers := ids[:first.Threshold+1]
	l := polynomial.Lagrange(group, signers)
	secret := group.NewScalar()
	for _, j := range signers {
		secret.Add(group.NewScalar().Set(configs[j].ECDSA).Mul(l[j]))
	}
	assert.True(t, secret.ActOnBase().Equal(publicPoint))
}

func TestKeygen(t *testing.T) {
	ids := test.PartyIDs(3)
	res := runKeygen(t, ids, 1, true, nil)
	require.Empty(t, res.errs)
	checkConfigs(t, ids, res.configs)
}

func TestKeygen_WithoutPartyList(t *testing.T) {
	ids := test.PartyIDs(3)
	res := runKeygen(t, ids, 2, false, nil)
	require.Empty(t, res.errs)
	checkConfigs(t, ids, res.configs)
}

func TestKeygen_ZeroModulus(t *testing.T) {
	group := curve.Secp256k1{}
	ids := test.PartyIDs(3)

	t.Run("opening", func(t *testing.T) {
		res := runKeygen(t, ids, 1, true, func(to party.ID, msg *round.Message) {
			if to != "a" || msg.From != "b" || msg.RoundNumber != 3 {
				return
			}
			body := &broadcast3{
				VSSPolynomial:     polynomial.EmptyExponent(group),
				SchnorrCommitment: zksch.EmptyCommitment(group),
				ElGamalPublic:     group.NewPoint(),
			}
			if err := cbor.Unmarshal(msg.Data, body); err != nil {
				panic(err)
			}
			body.N = new(saferith.Nat)
			data, err := cbor.Marshal(body)
			if err != nil {
				panic(err)
			}
			msg.Data = data
		})
		err := res.errs["a"]
		requireCulprit(t, err, "b", 3)
		assert.ErrorIs(t, err, paillier.ErrPaillierLength)
		assert.Empty(t, res.configs)
	})

	t.Run("only N", func(t *testing.T) {
		res := runKeygen(t, ids, 1, true, func(to party.ID, msg *round.Message) {
			if to != "a" || msg.From != "b" || msg.RoundNumber != 3 {
				return
			}
			data, err := cbor.Marshal(map[string][]byte{"N": {0}})
			if err != nil {
				panic(err)
			}
			msg.Data = data
		})
		err := res.errs["a"]
		requireCulprit(t, err, "b", 3)
		assert.ErrorIs(t, err, ErrRound2Decommitment)
		assert.Empty(t, res.configs)
	})
}

func TestKeygen_InvalidOpening(t *testing.T) {
	group := curve.Secp256k1{}
	ids := test.PartyIDs(3)
	const threshold = 1

	tests := []struct {
		name   string
		modify func(r *round2) error
		round  round.Number
		err    error
	}{
		{
			name: "zero commitment",
			modify: func(r *round2) error {
				r.Commitment = make(hash.Commitment, hash.DigestLengthBytes)
				return nil
			},
			round: 2,
			err:   ErrRound1Commitment,
		},
		{
			name: "short commitment",
			modify: func(r *round2) error {
				r.Commitment = r.Commitment[:8]
				return nil
			},
			round: 2,
			err:   ErrRound1Commitment,
		},
		{
			name: "tampered decommitment",
			modify: func(r *round2) error {
				r.Decommitment[0] ^= 1
				return nil
			},
			round: 3,
			err:   ErrDecommit,
		},
		{
			name: "degree too high",
			modify: func(r *round2) error {
				f := polynomial.NewPolynomial(rand.Reader, group, threshold+1, r.VSSSecret.Constant())
				r.VSSPolynomials[r.SelfID()] = polynomial.NewPolynomialExponent(f)
				return r.commit()
			},
			round: 3,
			err:   ErrVSSDegree,
		},
		{
			name: "zero constant",
			modify: func(r *round2) error {
				f := polynomial.NewPolynomial(rand.Reader, group, threshold, nil)
				r.VSSPolynomials[r.SelfID()] = polynomial.NewPolynomialExponent(f)
				return r.commit()
			},
			round: 3,
			err:   ErrVSSConstant,
		},
		{
			name: "s equal to t",
			modify: func(r *round2) error {
				ped := r.Pedersen[r.SelfID()]
				r.Pedersen[r.SelfID()] = pedersen.New(ped.NArith(), ped.T(), ped.T())
				return r.commit()
			},
			round: 3,
			err:   pedersen.ErrSEqualT,
		},
		{
			name: "s not coprime to N",
			modify: func(r *round2) error {
				ped := r.Pedersen[r.SelfID()]
				r.Pedersen[r.SelfID()] = pedersen.New(ped.NArith(), r.PaillierSecret.P(), ped.T())
				return r.commit()
			},
			round: 3,
			err:   pedersen.ErrNotValidModN,
		},
		{
			name: "even N",
			modify: func(r *round2) error {
				ped := r.Pedersen[r.SelfID()]
				even := new(saferith.Nat).Add(ped.N().Nat(), new(saferith.Nat).SetUint64(1), -1)
				n := arith.ModulusFromN(saferith.ModulusFromNat(even))
				r.Pedersen[r.SelfID()] = pedersen.New(n, ped.S(), ped.T())
				return r.commit()
			},
			round: 3,
			err:   paillier.ErrPaillierEven,
		},
		{
			name: "short N",
			modify: func(r *round2) error {
				// 23 ≡ 47 ≡ 3 mod 4
				n := arith.ModulusFromN(saferith.ModulusFromUint64(23 * 47))
				r.Pedersen[r.SelfID()] = pedersen.New(n, new(saferith.Nat).SetUint64(4), new(saferith.Nat).SetUint64(9))
				return r.commit()
			},
			round: 3,
			err:   paillier.ErrPaillierLength,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			res := runKeygenWithCulprit(t, ids, threshold, "b", tt.modify)
			assert.Empty(t, res.configs)
			for _, id := range []party.ID{"a", "c"} {
				err := res.errs[id]
				requireCulprit(t, err, "b", tt.round)
				assert.ErrorIs(t, err, tt.err, "party %s", id)
			}
		})
	}
}

func TestKeygen_DegreeError(t *testing.T) {
	group := curve.Secp256k1{}
	ids := test.PartyIDs(3)
	res := runKeygenWithCulprit(t, ids, 1, "b", func(r *round2) error {
		f := polynomial.NewPolynomial(rand.Reader, group, 2, r.VSSSecret.Constant())
		r.VSSPolynomials[r.SelfID()] = polynomial.NewPolynomialExponent(f)
		return r.commit()
	})

	var degreeErr *VSSDegreeError
	require.True(t, errors.As(res.errs["a"], &degreeErr))
	assert.Equal(t, 2, degreeErr.Actual)
	assert.Equal(t, 1, degreeErr.Expected)
}

func TestKeygen_StateAfterOpenings(t *testing.T) {
	ids := test.PartyIDs(3)
	const threshold = 2
	router := protocol.NewLocalRouter(protocol.WithTimeout(30 * time.Second))
	sessions := newSessions(t, ids, threshold, true, func(id party.ID) round.Network {
		return router.Network(id)
	})

	rounds := make(map[party.ID]*round4, len(ids))
	for id, r := range stepAll(t, sessions, 3) {
		r4, ok := r.(*round4)
		require.True(t, ok, "party %s reached %T", id, r)
		rounds[id] = r4
	}

	for _, id := range ids {
		r := rounds[id]

		assert.Len(t, r.Commitments, len(ids)-1)
		assert.NotContains(t, r.Commitments, id)
		require.NoError(t, r.Commitment.Validate())

		assert.Len(t, r.VSSPolynomials, len(ids))
		assert.Len(t, r.PaillierPublic, len(ids))
		assert.Len(t, r.Pedersen, len(ids))
		for _, j := range ids {
			assert.Equal(t, threshold, r.VSSPolynomials[j].Degree())
			assert.False(t, r.VSSPolynomials[j].IsConstant)
			require.NoError(t, r.Pedersen[j].Validate())
			assert.Equal(t, saferith.Choice(1), r.Pedersen[j].N().Nat().Eq(r.PaillierPublic[j].N().Nat()))

			// what we accepted from j is what j holds
			other := rounds[j]
			assert.True(t, r.PaillierPublic[j].Equal(other.PaillierPublic[j]))
			assert.True(t, r.Pedersen[j].Equal(other.Pedersen[j]))
			assert.True(t, r.VSSPolynomials[j].Equal(other.VSSPolynomials[j]))
			if j != id {
				assert.Equal(t, other.Commitment, r.Commitments[j])
			}
		}
		assert.True(t, r.RID.Equal(rounds[ids[0]].RID))
	}
}

func TestKeygen_MissingModProof(t *testing.T) {
	ids := test.PartyIDs(3)
	res := runKeygen(t, ids, 1, true, func(to party.ID, msg *round.Message) {
		if to != "a" || msg.From != "c" || msg.RoundNumber != 4 {
			return
		}
		body := &broadcast4{}
		if err := cbor.Unmarshal(msg.Data, body); err != nil {
			panic(err)
		}
		body.Mod = nil
		data, err := cbor.Marshal(body)
		if err != nil {
			panic(err)
		}
		msg.Data = data
	})

	err := res.errs["a"]
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModProof)
	var protocolErr protocol.Error
	require.True(t, errors.As(err, &protocolErr))
	assert.Equal(t, party.ID("c"), protocolErr.Culprit)
	assert.Equal(t, round.Number(4), protocolErr.RoundNumber)
}

func TestKeygen_UnknownParty(t *testing.T) {
	ids := test.PartyIDs(3)
	res := runKeygen(t, ids, 1, true, func(to party.ID, msg *round.Message) {
		if to == "a" && msg.From == "c" && msg.RoundNumber == 2 {
			msg.From = "z"
		}
	})

	err := res.errs["a"]
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownParty)
	var protocolErr protocol.Error
	require.True(t, errors.As(err, &protocolErr))
	assert.Equal(t, party.ID("z"), protocolErr.Culprit)
}

func TestVSSErrors(t *testing.T) {
	degreeErr := &VSSDegreeError{Actual: 2, Expected: 1}
	assert.ErrorIs(t, degreeErr, ErrVSSDegree)
	assert.NotErrorIs(t, degreeErr, ErrVSSConstant)
	assert.Contains(t, degreeErr.Error(), "got 2, expected 1")

	constantErr := &VSSConstantError{Actual: true, Expected: false}
	assert.ErrorIs(t, constantErr, ErrVSSConstant)
	wrapped := protocol.Error{RoundNumber: 3, Culprit: "b", Err: constantErr}
	assert.ErrorIs(t, wrapped, ErrVSSConstant)
	var target *VSSConstantError
	require.True(t, errors.As(wrapped, &target))
	assert.True(t, target.Actual)
}

// seededReader returns a deterministic stream of bytes derived from seed.
func seededReader(seed string) io.Reader {
	h := blake3.New()
	_, _ = h.WriteString(seed)
	return h.Digest()
}

func TestSession_Rand(t *testing.T) {
	ids := test.PartyIDs(3)
	start := func(seed string) *round2 {
		router := protocol.NewLocalRouter()
		s, err := NewSession(Config{
			SelfID:         "a",
			PartyIDs:       ids,
			Threshold:      1,
			Network:        router.Network("a"),
			Rand:           seededReader(seed),
			PaillierSecret: test.PaillierSecretKey(0),
		})
		require.NoError(t, err)
		next, err := round.Step(context.Background(), s.Helper, s.Start())
		require.NoError(t, err)
		r, ok := next.(*round2)
		require.True(t, ok)
		return r
	}

	r1, r2 := start("seed"), start("seed")
	assert.Equal(t, r1.Commitment, r2.Commitment)
	assert.Equal(t, r1.Decommitment, r2.Decommitment)
	assert.True(t, r1.Pedersen["a"].Equal(r2.Pedersen["a"]), "Pedersen parameters are read from Rand")
	assert.Equal(t, saferith.Choice(1), r1.PedersenSecret.Eq(r2.PedersenSecret))
	assert.True(t, r1.VSSPolynomials["a"].Equal(r2.VSSPolynomials["a"]))

	r3 := start("other seed")
	assert.NotEqual(t, r1.Commitment, r3.Commitment)
	assert.False(t, r1.Pedersen["a"].Equal(r3.Pedersen["a"]))
}

func TestNewSession(t *testing.T) {
	network := protocol.NewLocalRouter().Network("a")

	s, err := NewSession(Config{Seed: "node", Threshold: 1, N: 3, Network: network})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(s.SelfID()), "node-"))
	assert.Len(t, string(s.SelfID()), len("node-")+8)
	assert.Nil(t, s.PartyIDs())
	assert.EqualValues(t, 1, s.VSSSecret.Degree())
	assert.False(t, s.VSSSecret.Constant().IsZero())

	s, err = NewSession(Config{Threshold: 1, N: 2, Network: network})
	require.NoError(t, err)
	assert.Len(t, string(s.SelfID()), 16)

	_, err = NewSession(Config{SelfID: "a", Threshold: 3, PartyIDs: test.PartyIDs(3), Network: network})
	assert.ErrorIs(t, err, round.ErrInvalidThreshold)

	_, err = NewSession(Config{SelfID: "x", Threshold: 1, PartyIDs: test.PartyIDs(3), Network: network})
	assert.ErrorIs(t, err, round.ErrSelfNotIncluded)

	_, err = NewSession(Config{SelfID: "a", Threshold: 1, N: 1, Network: network})
	assert.ErrorIs(t, err, round.ErrTooFewParties)
}
