package keygen

import (
	"context"
	"errors"
	"fmt"

	"github.com/cronokirby/saferith"
	"github.com/taurusgroup/cmp-keygen/internal/round"
	"github.com/taurusgroup/cmp-keygen/internal/types"
	"github.com/taurusgroup/cmp-keygen/pkg/math/curve"
	"github.com/taurusgroup/cmp-keygen/pkg/math/polynomial"
	"github.com/taurusgroup/cmp-keygen/pkg/paillier"
	"github.com/taurusgroup/cmp-keygen/pkg/party"
	"github.com/taurusgroup/cmp-keygen/pkg/pedersen"
	zkmod "github.com/taurusgroup/cmp-keygen/pkg/zk/mod"
	zkprm "github.com/taurusgroup/cmp-keygen/pkg/zk/prm"
	zksch "github.com/taurusgroup/cmp-keygen/pkg/zk/sch"
)

var _ round.Round = (*round3)(nil)

type round3 struct {
	*round2
}

type broadcast4 struct {
	// Shares[j] = Encⱼ(fᵢ(j))
	Shares map[party.ID]*paillier.Ciphertext
	// Mod proves that Nᵢ is a Blum integer
	Mod *zkmod.Proof
	// Prm proves that sᵢ = tᵢ^λ (mod Nᵢ)
	Prm *zkprm.Proof
}

// Process implements round.Round.
//
// - verify the decommitment of each opening
// - verify Fⱼ(0) != ∞ and deg(Fⱼ) = t
// - validate Paillier
// - validate Pedersen
// - set rid = ⊕ⱼ ridⱼ, c = ⊕ⱼ cⱼ and update hash state
// - prove Nᵢ is a Blum integer and that (Nᵢ, sᵢ, tᵢ) are well formed
// - send the encryption of fᵢ(j) for every Pⱼ.
func (r *round3) Process(ctx context.Context) (round.Round, error) {
	msgs, err := r.FetchReceived(ctx)
	if err != nil {
		return nil, err
	}

	group := r.Group()
	partyIDs := r.PartyIDs()
	for _, msg := range msgs {
		from := msg.From
		if !partyIDs.Contains(from) {
			return nil, r.culprit(from, ErrUnknownParty)
		}

		body := &broadcast3{
			VSSPolynomial:     polynomial.EmptyExponent(group),
			SchnorrCommitment: zksch.EmptyCommitment(group),
			ElGamalPublic:     group.NewPoint(),
		}
		if err = msg.UnmarshalContent(body); err != nil {
			return nil, r.culprit(from, fmt.Errorf("%w: %v", ErrInvalidContent, err))
		}
		if err = r.storeOpening(from, body); err != nil {
			return nil, r.culprit(from, err)
		}
	}

	// RID = ⊕ⱼ RIDⱼ
	// c = ⊕ⱼ cⱼ
	rid := types.EmptyRID()
	chainKey := types.EmptyRID()
	for _, j := range partyIDs {
		rid.XOR(r.RIDs[j])
		chainKey.XOR(r.ChainKeys[j])
	}

	// Write rid to the hash state
	if err = r.UpdateHashState(rid); err != nil {
		return nil, fmt.Errorf("keygen: %w", err)
	}

	self := r.SelfID()
	mod := zkmod.NewProof(r.HashForID(self), zkmod.Private{
		P:   r.PaillierSecret.P(),
		Q:   r.PaillierSecret.Q(),
		Phi: r.PaillierSecret.Phi(),
	}, zkmod.Public{N: r.PaillierPublic[self].N()}, r.Pool)
	prm := zkprm.NewProof(zkprm.Private{
		Lambda: r.PedersenSecret,
		Phi:    r.PaillierSecret.Phi(),
		P:      r.PaillierSecret.P(),
		Q:      r.PaillierSecret.Q(),
	}, r.HashForID(self), zkprm.Public{
		N: r.Pedersen[self].N(),
		S: r.Pedersen[self].S(),
		T: r.Pedersen[self].T(),
	}, r.Pool)
	if mod == nil || prm == nil {
		return nil, errors.New("keygen: failed to create modulus proofs")
	}

	shares := make(map[party.ID]*paillier.Ciphertext, len(partyIDs)-1)
	for _, j := range r.OtherPartyIDs() {
		// compute fᵢ(j)
		share := r.VSSSecret.Evaluate(j.Scalar(group))
		// Encrypt share
		C, _, err := r.PaillierPublic[j].EncReader(r.rand, curve.MakeInt(share))
		if err != nil {
			return nil, fmt.Errorf("keygen: failed to encrypt share for %s: %w", j, err)
		}
		shares[j] = C
	}

	if err = r.Send(&broadcast4{Shares: shares, Mod: mod, Prm: prm}); err != nil {
		return nil, err
	}

	return &round4{
		round3:   r,
		RID:      rid,
		ChainKey: chainKey,
	}, nil
}

// storeOpening verifies the opening of party j's commitment and saves its content.
func (r *round3) storeOpening(j party.ID, body *broadcast3) error {
	if _, ok := r.RIDs[j]; ok {
		return errors.New("keygen: opening already stored")
	}
	if err := body.Decommitment.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrRound2Decommitment, err)
	}
	if body.VSSPolynomial == nil || body.SchnorrCommitment == nil || body.ElGamalPublic == nil {
		return fmt.Errorf("%w: missing field", ErrInvalidContent)
	}
	if body.S == nil || body.T == nil {
		return fmt.Errorf("%w: S,T invalid", ErrInvalidContent)
	}
	// N must be checked before it becomes a saferith.Modulus
	if err := paillier.ValidateN(body.N); err != nil {
		return fmt.Errorf("keygen: %w", err)
	}
	if err := body.RID.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	if err := body.ChainKey.Validate(); err != nil {
		return fmt.Errorf("%w: chain key: %v", ErrInvalidContent, err)
	}

	ok, err := r.hashForCommitment(j).Decommit(r.Commitments[j], body.Decommitment, body.committed()...)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRound2Decommitment, err)
	}
	if !ok {
		return ErrDecommit
	}

	// check that the constant coefficient is non-zero like ours
	expectedConstant := r.VSSSecret.Constant().IsZero()
	if body.VSSPolynomial.IsConstant != expectedConstant {
		return &VSSConstantError{Actual: body.VSSPolynomial.IsConstant, Expected: expectedConstant}
	}
	// check deg(Fⱼ) = t
	if deg := body.VSSPolynomial.Degree(); deg != r.Threshold() {
		return &VSSDegreeError{Actual: deg, Expected: r.Threshold()}
	}

	N := saferith.ModulusFromNat(body.N)
	if err = pedersen.ValidateParameters(N, body.S, body.T); err != nil {
		return err
	}
	if !body.SchnorrCommitment.IsValid() {
		return fmt.Errorf("%w: schnorr commitment is identity", ErrInvalidContent)
	}
	if body.ElGamalPublic.IsIdentity() {
		return fmt.Errorf("%w: ElGamal public key is identity", ErrInvalidContent)
	}

	PaillierPublic := paillier.NewPublicKey(N)
	r.RIDs[j] = body.RID
	r.ChainKeys[j] = body.ChainKey
	r.VSSPolynomials[j] = body.VSSPolynomial
	r.SchnorrCommitments[j] = body.SchnorrCommitment
	r.ElGamalPublic[j] = body.ElGamalPublic
	r.PaillierPublic[j] = PaillierPublic
	r.Pedersen[j] = pedersen.New(PaillierPublic.Modulus(), body.S, body.T)
	return nil
}

// Number implements round.Round.
func (round3) Number() round.Number { return 3 }

// RoundNumber implements round.Content.
func (broadcast4) RoundNumber() round.Number { return 4 }
