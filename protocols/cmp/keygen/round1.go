package keygen

import (
	"context"
	"fmt"

	"github.com/taurusgroup/cmp-keygen/internal/round"
	"github.com/taurusgroup/cmp-keygen/internal/types"
	"github.com/taurusgroup/cmp-keygen/pkg/hash"
	"github.com/taurusgroup/cmp-keygen/pkg/math/curve"
	"github.com/taurusgroup/cmp-keygen/pkg/math/polynomial"
	"github.com/taurusgroup/cmp-keygen/pkg/math/sample"
	"github.com/taurusgroup/cmp-keygen/pkg/paillier"
	"github.com/taurusgroup/cmp-keygen/pkg/party"
	"github.com/taurusgroup/cmp-keygen/pkg/pedersen"
	zksch "github.com/taurusgroup/cmp-keygen/pkg/zk/sch"
)

var _ round.Round = (*round1)(nil)

type round1 struct {
	*Session
}

type broadcast2 struct {
	// Commitment = Vᵢ = H(ρᵢ, cᵢ, Fᵢ(X), Aᵢ, Yᵢ, Nᵢ, sᵢ, tᵢ, uᵢ)
	Commitment hash.Commitment
}

// Process implements round.Round.
//
// - sample Paillier (pᵢ, qᵢ)
// - sample Pedersen Nᵢ, sᵢ, tᵢ
// - sample ElGamal (yᵢ, Yᵢ)
// - sample aᵢ  <- 𝔽, set Aᵢ = aᵢ⋅G
// - compute Fᵢ(X) = fᵢ(X)⋅G
// - sample ridᵢ, cᵢ <- {0,1}ᵏ
// - commit to message.
func (r *round1) Process(context.Context) (round.Round, error) {
	group := r.Group()

	// generate Paillier and Pedersen
	PaillierSecret := r.paillierSecret
	if PaillierSecret == nil {
		var err error
		if PaillierSecret, err = paillier.NewSecretKey(r.rand, r.Pool); err != nil {
			return nil, fmt.Errorf("keygen: %w", err)
		}
	}
	SelfPaillierPublic := PaillierSecret.PublicKey
	SelfPedersenPublic, PedersenSecret, err := PaillierSecret.GeneratePedersen(r.rand)
	if err != nil {
		return nil, fmt.Errorf("keygen: %w", err)
	}

	ElGamalSecret, ElGamalPublic := sample.ScalarPointPair(r.rand, group)

	// save our own share already so we are consistent with what we receive from others
	SelfShare := r.VSSSecret.Evaluate(r.SelfID().Scalar(group))

	// set Fᵢ(X) = fᵢ(X)•G
	SelfVSSPolynomial := polynomial.NewPolynomialExponent(r.VSSSecret)

	// generate Schnorr randomness
	SchnorrRand := zksch.NewRandomness(r.rand, group, nil)

	// Sample RIDᵢ
	SelfRID, err := types.NewRID(r.rand)
	if err != nil {
		return nil, fmt.Errorf("keygen: failed to sample rid: %w", err)
	}
	chainKey, err := types.NewRID(r.rand)
	if err != nil {
		return nil, fmt.Errorf("keygen: failed to sample chain key: %w", err)
	}

	// the party set may not be known yet, so commitments are bound to the current hash state
	next := &round2{
		round1:             r,
		commitHash:         r.Hash(),
		VSSPolynomials:     map[party.ID]*polynomial.Exponent{r.SelfID(): SelfVSSPolynomial},
		Commitments:        map[party.ID]hash.Commitment{},
		RIDs:               map[party.ID]types.RID{r.SelfID(): SelfRID},
		ChainKeys:          map[party.ID]types.RID{r.SelfID(): chainKey},
		ShareReceived:      map[party.ID]curve.Scalar{r.SelfID(): SelfShare},
		ElGamalPublic:      map[party.ID]curve.Point{r.SelfID(): ElGamalPublic},
		PaillierPublic:     map[party.ID]*paillier.PublicKey{r.SelfID(): SelfPaillierPublic},
		Pedersen:           map[party.ID]*pedersen.Parameters{r.SelfID(): SelfPedersenPublic},
		SchnorrCommitments: map[party.ID]*zksch.Commitment{r.SelfID(): SchnorrRand.Commitment()},
		ElGamalSecret:      ElGamalSecret,
		PaillierSecret:     PaillierSecret,
		PedersenSecret:     PedersenSecret,
		SchnorrRand:        SchnorrRand,
	}
	if err = next.commit(); err != nil {
		return nil, err
	}

	if err = r.Send(&broadcast2{Commitment: next.Commitment}); err != nil {
		return nil, err
	}
	return next, nil
}

// Number implements round.Round.
func (round1) Number() round.Number { return 1 }

// RoundNumber implements round.Content.
func (broadcast2) RoundNumber() round.Number { return 2 }
