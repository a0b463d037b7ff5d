package keygen

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/taurusgroup/cmp-keygen/internal/round"
	"github.com/taurusgroup/cmp-keygen/pkg/math/curve"
	"github.com/taurusgroup/cmp-keygen/pkg/math/polynomial"
	"github.com/taurusgroup/cmp-keygen/pkg/math/sample"
	"github.com/taurusgroup/cmp-keygen/pkg/paillier"
	"github.com/taurusgroup/cmp-keygen/pkg/party"
	"github.com/taurusgroup/cmp-keygen/pkg/pool"
	"github.com/taurusgroup/cmp-keygen/protocols/cmp/config"
)

const (
	ProtocolID = "cmp/keygen"

	protocolRounds round.Number = 5
)

// Config holds the parameters of a keygen session.
type Config struct {
	// SelfID is the identifier of this party. If empty, one is generated from Seed.
	SelfID party.ID
	// Seed prefixes a generated SelfID.
	Seed string
	// PartyIDs is the list of participants. If empty, it is fixed from the senders of the first messages.
	PartyIDs []party.ID
	// Threshold is the maximum number of corrupted parties.
	Threshold int
	// N is the number of parties, required when PartyIDs is empty.
	N int

	Network round.Network
	Logger  *zerolog.Logger
	Pool    *pool.Pool
	Clock   clockwork.Clock
	// Rand is the source of randomness of the session, crypto/rand by default.
	// It is read for every secret and nonce of this party: VSS polynomial, Paillier primes, Pedersen parameters,
	// ElGamal and Schnorr keys, rid, chain key, commitment and encryption nonces.
	// The public values of the modulus proofs are sampled from crypto/rand.
	Rand io.Reader
	// PaillierSecret is used instead of sampling a new Paillier key in round 1.
	PaillierSecret *paillier.SecretKey
}

// Session is a keygen protocol execution for a single party.
type Session struct {
	*round.Helper

	// VSSSecret = fᵢ(X), of degree t with fᵢ(0) = xⁱ
	VSSSecret *polynomial.Polynomial

	rand           io.Reader
	paillierSecret *paillier.SecretKey
}

// NewSession validates cfg and creates a new keygen session over secp256k1.
func NewSession(cfg Config) (*Session, error) {
	source := cfg.Rand
	if source == nil {
		source = rand.Reader
	}

	selfID := cfg.SelfID
	if selfID == "" {
		selfID = party.NewRandomID(source, cfg.Seed)
	}

	var opts []round.Option
	if cfg.Logger != nil {
		opts = append(opts, round.WithLogger(*cfg.Logger))
	}
	if cfg.Pool != nil {
		opts = append(opts, round.WithPool(cfg.Pool))
	}
	if cfg.Clock != nil {
		opts = append(opts, round.WithClock(cfg.Clock))
	}

	group := curve.Secp256k1{}
	helper, err := round.NewSession(round.Info{
		ProtocolID:       ProtocolID,
		FinalRoundNumber: protocolRounds,
		SelfID:           selfID,
		PartyIDs:         cfg.PartyIDs,
		Threshold:        cfg.Threshold,
		N:                cfg.N,
		Group:            group,
	}, cfg.Network, opts...)
	if err != nil {
		return nil, fmt.Errorf("keygen: %w", err)
	}

	// sample fᵢ(X) deg(fᵢ) = t, fᵢ(0) = secretᵢ
	VSSConstant := sample.Scalar(source, group)
	return &Session{
		Helper:         helper,
		VSSSecret:      polynomial.NewPolynomial(source, group, helper.Threshold(), VSSConstant),
		rand:           source,
		paillierSecret: cfg.PaillierSecret,
	}, nil
}

// Start returns the first round of the protocol.
func (s *Session) Start() round.Round {
	return &round1{Session: s}
}

// Run executes all rounds and returns this party's config.
// Any error is fatal, and those caused by another party are a protocol.Error naming the culprit.
func (s *Session) Run(ctx context.Context) (*config.Config, error) {
	result, err := round.Run(ctx, s.Helper, s.Start())
	if err != nil {
		return nil, err
	}
	c, ok := result.(*config.Config)
	if !ok {
		return nil, fmt.Errorf("keygen: unexpected result %T", result)
	}
	return c, nil
}
