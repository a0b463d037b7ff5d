package config

import (
	"errors"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/taurusgroup/cmp-keygen/internal/bip32"
	"github.com/taurusgroup/cmp-keygen/internal/types"
	"github.com/taurusgroup/cmp-keygen/pkg/hash"
	"github.com/taurusgroup/cmp-keygen/pkg/math/curve"
	"github.com/taurusgroup/cmp-keygen/pkg/math/polynomial"
	"github.com/taurusgroup/cmp-keygen/pkg/paillier"
	"github.com/taurusgroup/cmp-keygen/pkg/party"
	"github.com/taurusgroup/cmp-keygen/pkg/pedersen"
)

// Public holds public information for a party.
type Public struct {
	ID party.ID
	// ECDSA public key share
	ECDSA curve.Point
	// ElGamal is this party's public key for ElGamal encryption.
	ElGamal curve.Point
	// Paillier is this party's public Paillier key.
	Paillier *paillier.PublicKey
	// Pedersen is this party's (s, t) parameters for Pedersen commitments.
	Pedersen *pedersen.Parameters
}

// Config contains all necessary cryptographic keys necessary to generate a signature.
// It also represents the `SSID` after having performed a keygen/refresh operation.
// where SSID = (𝔾, t, n, P₁, …, Pₙ, (X₁, Y₁, N₁, s₁, t₁), …, (Xₙ, Yₙ, Nₙ, sₙ, tₙ)).
//
// To unmarshal this struct, EmptyConfig should be called first with a specific group,
// before using cbor.Unmarshal with that struct.
type Config struct {
	// Group returns the Elliptic Curve Group associated with this config.
	Group curve.Curve
	// ID is the identifier of the party this Config belongs to.
	ID party.ID
	// Threshold is the integer t which defines the maximum number of corruptions tolerated for this config.
	// Threshold + 1 is the minimum number of parties' shares required to reconstruct the secret/sign a message.
	Threshold int
	// ECDSA is this party's share xᵢ of the secret ECDSA x.
	ECDSA curve.Scalar
	// ElGamal is this party's yᵢ used for ElGamal.
	ElGamal curve.Scalar
	// Paillier is this party's Paillier decryption key.
	Paillier *paillier.SecretKey
	// RID is a 32 byte random identifier generated for this config
	RID types.RID
	// ChainKey is the chaining key value associated with this public key
	ChainKey types.RID
	// Public maps party.ID to public. It contains all public information associated to a party.
	Public map[party.ID]*Public
}

// PublicPoint returns the group's public ECC point.
func (c *Config) PublicPoint() curve.Point {
	sum := c.Group.NewPoint()
	partyIDs := c.PartyIDs()
	l := polynomial.Lagrange(c.Group, partyIDs)
	for _, j := range partyIDs {
		sum = sum.Add(l[j].Act(c.Public[j].ECDSA))
	}
	return sum
}

// Self returns the public information of the owner of this config.
func (c *Config) Self() *Public {
	return c.Public[c.ID]
}

// Validate ensures that the data is consistent. In particular it verifies:
// - 1 ⩽ threshold ⩽ n-1
// - all public data is present and valid
// - the secret corresponds to the data from an included party.
//
// All problems found are reported together.
func (c *Config) Validate() error {
	var result *multierror.Error

	// verify number of parties w.r.t. threshold
	// want 1 ⩽ threshold ⩽ n-1
	if !ValidThreshold(c.Threshold, len(c.Public)) {
		result = multierror.Append(result, fmt.Errorf("config: threshold %d is invalid for %d parties", c.Threshold, len(c.Public)))
	}

	if err := c.RID.Validate(); err != nil {
		result = multierror.Append(result, fmt.Errorf("config: rid: %w", err))
	}
	if err := c.ChainKey.Validate(); err != nil {
		result = multierror.Append(result, fmt.Errorf("config: chain key: %w", err))
	}

	if c.ECDSA == nil || c.ElGamal == nil || c.Paillier == nil {
		return multierror.Append(result, errors.New("config: one or more field is empty")).ErrorOrNil()
	}

	// ECDSA is not identity
	if c.ECDSA.IsZero() || c.ElGamal.IsZero() {
		result = multierror.Append(result, errors.New("config: ECDSA or ElGamal secret key is zero"))
	}

	// Paillier check
	if err := paillier.ValidatePrime(c.Paillier.P()); err != nil {
		result = multierror.Append(result, fmt.Errorf("config: prime p: %w", err))
	}
	if err := paillier.ValidatePrime(c.Paillier.Q()); err != nil {
		result = multierror.Append(result, fmt.Errorf("config: prime q: %w", err))
	}

	for _, j := range c.PartyIDs() {
		// validate public
		if err := c.Public[j].validate(j); err != nil {
			result = multierror.Append(result, fmt.Errorf("config: party %s: %w", j, err))
		}
	}

	// verify our ID is present
	public := c.Public[c.ID]
	if public == nil {
		return multierror.Append(result, errors.New("config: no public data for secret")).ErrorOrNil()
	}

	// verify ECDSA
	if public.ECDSA != nil && !c.ECDSA.ActOnBase().Equal(public.ECDSA) {
		result = multierror.Append(result, errors.New("config: ECDSA secret key share does not correspond to public share"))
	}

	// check ElGamal
	if public.ElGamal != nil && !c.ElGamal.ActOnBase().Equal(public.ElGamal) {
		result = multierror.Append(result, errors.New("config: ElGamal secret key does not correspond to public key"))
	}

	// is our public key for paillier the same?
	if public.Paillier != nil && !c.Paillier.PublicKey.Equal(public.Paillier) {
		result = multierror.Append(result, errors.New("config: P•Q ≠ N"))
	}

	return result.ErrorOrNil()
}

// PartyIDs returns a sorted slice of party IDs.
func (c *Config) PartyIDs() party.IDSlice {
	ids := make([]party.ID, 0, len(c.Public))
	for j := range c.Public {
		ids = append(ids, j)
	}
	return party.NewIDSlice(ids)
}

// validate returns an error if Public is invalid. Otherwise return nil.
func (p *Public) validate(id party.ID) error {
	if p == nil || p.ECDSA == nil || p.ElGamal == nil || p.Paillier == nil || p.Pedersen == nil {
		return errors.New("public: one or more field is empty")
	}

	if p.ID != id {
		return fmt.Errorf("public: stored under %s", id)
	}

	// ECDSA is not identity
	if p.ECDSA.IsIdentity() || p.ElGamal.IsIdentity() {
		return errors.New("public: ECDSA or ElGamal public key is identity")
	}

	// Paillier check
	if err := paillier.ValidateN(p.Paillier.N().Nat()); err != nil {
		return fmt.Errorf("public: %w", err)
	}

	// Pedersen check
	if err := p.Pedersen.Validate(); err != nil {
		return fmt.Errorf("public: %w", err)
	}

	// Both N's are the same
	if p.Paillier.N().Nat().Eq(p.Pedersen.N().Nat()) != 1 {
		return errors.New("public: Pedersen and Paillier should share the same N")
	}

	return nil
}

// WriteTo implements io.WriterTo interface.
func (c *Config) WriteTo(w io.Writer) (total int64, err error) {
	if c == nil {
		return 0, io.ErrUnexpectedEOF
	}
	var n int64

	// write t
	n, err = types.ThresholdWrapper(c.Threshold).WriteTo(w)
	total += n
	if err != nil {
		return
	}

	// write partyIDs
	partyIDs := c.PartyIDs()
	n, err = partyIDs.WriteTo(w)
	total += n
	if err != nil {
		return
	}

	// write rid
	n, err = c.RID.WriteTo(w)
	total += n
	if err != nil {
		return
	}

	// write all party data
	for _, j := range partyIDs {
		n, err = c.Public[j].WriteTo(w)
		total += n
		if err != nil {
			return
		}
	}

	return
}

// Domain implements hash.WriterToWithDomain.
func (*Config) Domain() string {
	return "CMP Config"
}

// Domain implements hash.WriterToWithDomain.
func (*Public) Domain() string {
	return "Public Data"
}

// WriteTo implements io.WriterTo interface.
func (p *Public) WriteTo(w io.Writer) (total int64, err error) {
	if p == nil {
		return 0, io.ErrUnexpectedEOF
	}
	for _, v := range []io.WriterTo{
		p.ID,
		hash.Point{Point: p.ECDSA},
		hash.Point{Point: p.ElGamal},
		p.Pedersen,
	} {
		n, err := v.WriteTo(w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return
}

// CanSign returns true if the given _sorted_ list of signers is
// a valid subset of the original parties of size > t,
// and includes self.
func (c *Config) CanSign(signers party.IDSlice) bool {
	// check that the size is > t
	if len(signers) <= c.Threshold {
		return false
	}

	// check for duplicates
	if !signers.Valid() {
		return false
	}

	if !signers.Contains(c.ID) {
		return false
	}

	// check that the signers are a subset of the original parties
	for _, j := range signers {
		if _, ok := c.Public[j]; !ok {
			return false
		}
	}

	return true
}

// ValidThreshold returns true if 1 ⩽ t ⩽ n-1.
func ValidThreshold(t, n int) bool {
	if n < 2 {
		return false
	}
	return 1 <= t && t <= n-1
}

// Equal returns true if p and other hold the same public data.
func (p *Public) Equal(other *Public) bool {
	if p.ID != other.ID {
		return false
	}
	if !p.ECDSA.Equal(other.ECDSA) {
		return false
	}
	if !p.ElGamal.Equal(other.ElGamal) {
		return false
	}
	if !p.Paillier.Equal(other.Paillier) {
		return false
	}
	return p.Pedersen.Equal(other.Pedersen)
}

// DeriveChild derives a sharing of the ith child of the consortium signing key.
//
// This function uses unhardened derivation, deriving a key without including the
// underlying private key. An error is returned for indices ⩾ 2³¹, since that indicates
// a hardened key.
//
// Sometimes, an error will be returned, indicating that this index generates
// an invalid key.
//
// See: https://github.com/bitcoin/bips/blob/master/bip-0032.mediawiki
func (c *Config) DeriveChild(i uint32) (*Config, error) {
	scalar, newChainKey, err := bip32.DeriveScalar(c.PublicPoint(), c.ChainKey, i)
	if err != nil {
		return nil, err
	}

	// We need to add the scalar we've derived to the underlying secret,
	// for which it's sufficient to simply add it to each share. This means adding
	// scalar * G to each verification share as well.
	//
	// Each share is weighted by a Lagrange coefficient, which sum to 1, so the public
	// key is shifted by scalar * G.
	scalarG := scalar.ActOnBase()

	publics := make(map[party.ID]*Public, len(c.Public))
	for k, v := range c.Public {
		publics[k] = &Public{
			ID:       v.ID,
			ECDSA:    v.ECDSA.Add(scalarG),
			ElGamal:  v.ElGamal,
			Paillier: v.Paillier,
			Pedersen: v.Pedersen,
		}
	}

	return &Config{
		Group:     c.Group,
		ID:        c.ID,
		Threshold: c.Threshold,
		ECDSA:     c.Group.NewScalar().Set(c.ECDSA).Add(scalar),
		ElGamal:   c.ElGamal,
		Paillier:  c.Paillier,
		RID:       c.RID.Copy(),
		ChainKey:  newChainKey,
		Public:    publics,
	}, nil
}

// DerivePath applies DeriveChild for every index of the non-hardened path.
func (c *Config) DerivePath(path bip32.Path) (*Config, error) {
	derived := c
	for _, i := range path.Indices() {
		var err error
		if derived, err = derived.DeriveChild(i); err != nil {
			return nil, err
		}
	}
	return derived, nil
}
