package keygen

import (
	"context"
	"errors"
	"fmt"

	"github.com/taurusgroup/cmp-keygen/internal/round"
	"github.com/taurusgroup/cmp-keygen/internal/types"
	"github.com/taurusgroup/cmp-keygen/pkg/math/curve"
	"github.com/taurusgroup/cmp-keygen/pkg/math/polynomial"
	"github.com/taurusgroup/cmp-keygen/pkg/paillier"
	"github.com/taurusgroup/cmp-keygen/pkg/party"
	zkmod "github.com/taurusgroup/cmp-keygen/pkg/zk/mod"
	zkprm "github.com/taurusgroup/cmp-keygen/pkg/zk/prm"
	zksch "github.com/taurusgroup/cmp-keygen/pkg/zk/sch"
	"github.com/taurusgroup/cmp-keygen/protocols/cmp/config"
)

var _ round.Round = (*round4)(nil)

type round4 struct {
	*round3

	// RID = ⊕ⱼ RIDⱼ
	RID types.RID
	// ChainKey = ⊕ⱼ cⱼ
	ChainKey types.RID
}

type broadcast5 struct {
	// SchnorrResponse is the Schnorr proof of knowledge of the new secret share
	SchnorrResponse *zksch.Response
}

// Process implements round.Round.
//
// - verify the mod and prm proofs of Pⱼ
// - decrypt share xʲᵢ = Decᵢ(Cⱼ)
// - verify xʲᵢ•G = Fⱼ(i)
// - compute xᵢ = ∑ⱼ xʲᵢ and Xⱼ = F(j) for all j
// - prove knowledge of xᵢ with the Schnorr randomness of round 1.
func (r *round4) Process(ctx context.Context) (round.Round, error) {
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

		body := &broadcast4{}
		if err = msg.UnmarshalContent(body); err != nil {
			return nil, r.culprit(from, fmt.Errorf("%w: %v", ErrInvalidContent, err))
		}
		if !body.Mod.Verify(zkmod.Public{N: r.PaillierPublic[from].N()}, r.HashForID(from), r.Pool) {
			return nil, r.culprit(from, ErrModProof)
		}
		ped := r.Pedersen[from]
		if !body.Prm.Verify(zkprm.Public{N: ped.N(), S: ped.S(), T: ped.T()}, r.HashForID(from), r.Pool) {
			return nil, r.culprit(from, ErrPrmProof)
		}

		share, err := r.decryptShare(from, body.Shares[r.SelfID()])
		if err != nil {
			return nil, r.culprit(from, err)
		}
		r.ShareReceived[from] = share
	}

	// xᵢ = ∑ⱼ xʲᵢ
	UpdatedSecretECDSA := group.NewScalar()
	for _, j := range partyIDs {
		UpdatedSecretECDSA.Add(r.ShareReceived[j])
	}

	// F(X) = ∑ⱼ Fⱼ(X)
	exponents := make([]*polynomial.Exponent, 0, len(partyIDs))
	for _, j := range partyIDs {
		exponents = append(exponents, r.VSSPolynomials[j])
	}
	ShamirPublicPolynomial, err := polynomial.Sum(exponents)
	if err != nil {
		return nil, fmt.Errorf("keygen: %w", err)
	}

	// Xⱼ = F(j)
	PublicData := make(map[party.ID]*config.Public, len(partyIDs))
	for _, j := range partyIDs {
		PublicData[j] = &config.Public{
			ID:       j,
			ECDSA:    ShamirPublicPolynomial.Evaluate(j.Scalar(group)),
			ElGamal:  r.ElGamalPublic[j],
			Paillier: r.PaillierPublic[j],
			Pedersen: r.Pedersen[j],
		}
	}

	UpdatedConfig := &config.Config{
		Group:     group,
		ID:        r.SelfID(),
		Threshold: r.Threshold(),
		ECDSA:     UpdatedSecretECDSA,
		ElGamal:   r.ElGamalSecret,
		Paillier:  r.PaillierSecret,
		RID:       r.RID.Copy(),
		ChainKey:  r.ChainKey.Copy(),
		Public:    PublicData,
	}

	// Sign with the new secret share
	proof := r.SchnorrRand.Prove(r.HashForID(r.SelfID()), PublicData[r.SelfID()].ECDSA, UpdatedSecretECDSA, nil)
	if proof == nil {
		return nil, errors.New("keygen: failed to create schnorr proof")
	}

	if err = r.Send(&broadcast5{SchnorrResponse: proof}); err != nil {
		return nil, err
	}

	return &round5{
		round4:        r,
		UpdatedConfig: UpdatedConfig,
	}, nil
}

// decryptShare returns fⱼ(i) from the ciphertext sent by j, after checking it against Fⱼ(i).
func (r *round4) decryptShare(j party.ID, ct *paillier.Ciphertext) (curve.Scalar, error) {
	if ct == nil {
		return nil, fmt.Errorf("%w: no share for %s", ErrShareDecrypt, r.SelfID())
	}
	group := r.Group()

	DecryptedShare, err := r.PaillierSecret.Dec(ct)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShareDecrypt, err)
	}
	Share := group.NewScalar().SetNat(DecryptedShare.Mod(group.Order()))
	if DecryptedShare.Eq(curve.MakeInt(Share)) != 1 {
		return nil, fmt.Errorf("%w: decrypted share is not in correct range", ErrShareDecrypt)
	}

	// verify share with VSS
	ExpectedPublicShare := r.VSSPolynomials[j].Evaluate(r.SelfID().Scalar(group)) // Fⱼ(i)
	PublicShare := Share.ActOnBase()
	// X == Fⱼ(i)
	if !PublicShare.Equal(ExpectedPublicShare) {
		return nil, ErrFeldman
	}
	return Share, nil
}

// Number implements round.Round.
func (round4) Number() round.Number { return 4 }

// RoundNumber implements round.Content.
func (broadcast5) RoundNumber() round.Number { return 5 }
