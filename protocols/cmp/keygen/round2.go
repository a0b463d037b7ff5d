package keygen

import (
	"context"
	"fmt"

	"github.com/cronokirby/saferith"
	"github.com/taurusgroup/cmp-keygen/internal/round"
	"github.com/taurusgroup/cmp-keygen/internal/types"
	"github.com/taurusgroup/cmp-keygen/pkg/hash"
	"github.com/taurusgroup/cmp-keygen/pkg/math/curve"
	"github.com/taurusgroup/cmp-keygen/pkg/math/polynomial"
	"github.com/taurusgroup/cmp-keygen/pkg/paillier"
	"github.com/taurusgroup/cmp-keygen/pkg/party"
	"github.com/taurusgroup/cmp-keygen/pkg/pedersen"
	"github.com/taurusgroup/cmp-keygen/pkg/protocol"
	zksch "github.com/taurusgroup/cmp-keygen/pkg/zk/sch"
)

var _ round.Round = (*round2)(nil)

type round2 struct {
	*round1

	// commitHash is the session hash at the time commitments were made,
	// before the party set was necessarily fixed.
	commitHash *hash.Hash

	// VSSPolynomials[j] = Fⱼ(X) = fⱼ(X)•G
	VSSPolynomials map[party.ID]*polynomial.Exponent

	// Commitments[j] = H(Keygen3ⱼ ∥ Decommitments[j]), for every other party j
	Commitments map[party.ID]hash.Commitment

	// RIDs[j] = ridⱼ
	RIDs map[party.ID]types.RID
	// ChainKeys[j] = cⱼ
	ChainKeys map[party.ID]types.RID

	// ShareReceived[j] = xʲᵢ
	// share received from party j
	ShareReceived map[party.ID]curve.Scalar

	// ElGamalPublic[j] = Yⱼ
	ElGamalPublic map[party.ID]curve.Point

	// PaillierPublic[j] = Nⱼ
	PaillierPublic map[party.ID]*paillier.PublicKey

	// Pedersen[j] = (Nⱼ, sⱼ, tⱼ)
	Pedersen map[party.ID]*pedersen.Parameters

	// SchnorrCommitments[j] = Aⱼ
	// Commitment for proof of knowledge in the last round
	SchnorrCommitments map[party.ID]*zksch.Commitment

	// ElGamalSecret = yᵢ
	ElGamalSecret curve.Scalar

	// PaillierSecret = (pᵢ, qᵢ)
	PaillierSecret *paillier.SecretKey

	// PedersenSecret = λᵢ
	// Used to generate the Pedersen parameters
	PedersenSecret *saferith.Nat

	// SchnorrRand = aᵢ
	// Randomness used to compute Schnorr commitment of proof of knowledge of secret share
	SchnorrRand *zksch.Randomness

	// Commitment = Vᵢ
	Commitment hash.Commitment
	// Decommitment for Keygen3ᵢ
	Decommitment hash.Decommitment // uᵢ
}

type broadcast3 struct {
	// RID = ridᵢ
	RID types.RID
	// ChainKey = cᵢ
	ChainKey types.RID
	// VSSPolynomial = Fᵢ(X) = fᵢ(X)•G
	VSSPolynomial *polynomial.Exponent
	// SchnorrCommitment = Aᵢ = aᵢ⋅G
	SchnorrCommitment *zksch.Commitment
	// ElGamalPublic = Yᵢ
	ElGamalPublic curve.Point
	// N Paillier and Pedersen N = p•q, p ≡ q ≡ 3 mod 4
	N *saferith.Nat
	// S = r² mod N
	S *saferith.Nat
	// T = Sˡ mod N
	T *saferith.Nat
	// Decommitment = uᵢ decommitment bytes
	Decommitment hash.Decommitment
}

// Process implements round.Round.
//
// - store commitment Vⱼ
// - fix the party set if it was not given
// - send the opening of Vᵢ.
func (r *round2) Process(ctx context.Context) (round.Round, error) {
	msgs, err := r.FetchReceived(ctx)
	if err != nil {
		return nil, err
	}

	known := r.PartyIDs()
	senders := make([]party.ID, 0, len(msgs)+1)
	for _, msg := range msgs {
		from := msg.From
		if known != nil && !known.Contains(from) {
			return nil, r.culprit(from, ErrUnknownParty)
		}

		body := &broadcast2{}
		if err = msg.UnmarshalContent(body); err != nil {
			return nil, r.culprit(from, fmt.Errorf("%w: %v", ErrInvalidContent, err))
		}
		if err = body.Commitment.Validate(); err != nil {
			return nil, r.culprit(from, fmt.Errorf("%w: %v", ErrRound1Commitment, err))
		}
		r.Commitments[from] = body.Commitment
		senders = append(senders, from)
	}

	if known == nil {
		if err = r.FixPartyIDs(append(senders, r.SelfID())); err != nil {
			return nil, protocol.Error{RoundNumber: r.Number(), Err: err}
		}
		r.Logger().Info().Stringer("parties", r.PartyIDs()).Msg("fixed party set")
	}

	if err = r.Send(r.opening()); err != nil {
		return nil, err
	}

	return &round3{round2: r}, nil
}

// opening returns the values committed to in round 1, along with the decommitment.
func (r *round2) opening() *broadcast3 {
	self := r.SelfID()
	return &broadcast3{
		RID:               r.RIDs[self],
		ChainKey:          r.ChainKeys[self],
		VSSPolynomial:     r.VSSPolynomials[self],
		SchnorrCommitment: r.SchnorrCommitments[self],
		ElGamalPublic:     r.ElGamalPublic[self],
		N:                 r.Pedersen[self].N().Nat(),
		S:                 r.Pedersen[self].S(),
		T:                 r.Pedersen[self].T(),
		Decommitment:      r.Decommitment,
	}
}

// commit sets Vᵢ and uᵢ from our own values.
func (r *round2) commit() error {
	c, d, err := r.hashForCommitment(r.SelfID()).CommitWithReader(r.rand, r.opening().committed()...)
	if err != nil {
		return fmt.Errorf("keygen: failed to commit: %w", err)
	}
	r.Commitment, r.Decommitment = c, d
	return nil
}

// committed lists the values bound by the commitment, in order.
func (b *broadcast3) committed() []hash.WriterToWithDomain {
	return []hash.WriterToWithDomain{
		b.RID, b.ChainKey, b.VSSPolynomial, b.SchnorrCommitment, hash.Point{Point: b.ElGamalPublic},
		hash.Nat{Nat: b.N}, hash.Nat{Nat: b.S}, hash.Nat{Nat: b.T},
	}
}

// hashForCommitment returns the hash state used by id for its commitment in round 1.
func (r *round2) hashForCommitment(id party.ID) *hash.Hash {
	h := r.commitHash.Clone()
	_ = h.WriteAny(id)
	return h
}

func (r *round2) culprit(id party.ID, err error) error {
	return protocol.Error{
		RoundNumber: r.CurrentRound(),
		Culprit:     id,
		Err:         err,
	}
}

// Number implements round.Round.
func (round2) Number() round.Number { return 2 }

// RoundNumber implements round.Content.
func (broadcast3) RoundNumber() round.Number { return 3 }
