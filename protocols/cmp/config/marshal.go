package config

import (
	"errors"
	"fmt"

	"github.com/cronokirby/saferith"
	"github.com/fxamacker/cbor/v2"
	"github.com/taurusgroup/cmp-keygen/internal/types"
	"github.com/taurusgroup/cmp-keygen/pkg/math/curve"
	"github.com/taurusgroup/cmp-keygen/pkg/paillier"
	"github.com/taurusgroup/cmp-keygen/pkg/party"
	"github.com/taurusgroup/cmp-keygen/pkg/pedersen"
)

// encodingVersion is bumped whenever the binary layout of a Config changes.
const encodingVersion = 1

// EmptyConfig creates an empty Config with a fixed group, ready for unmarshalling.
//
// This needs to be used for unmarshalling, otherwise the points on the curve can't
// be decoded.
func EmptyConfig(group curve.Curve) *Config {
	return &Config{
		Group: group,
	}
}

type configMarshal struct {
	Version        uint8
	Curve          string
	ID             party.ID
	Threshold      int
	ECDSA, ElGamal curve.Scalar
	P, Q           *saferith.Nat
	RID, ChainKey  types.RID
	Public         []cbor.RawMessage
}

type publicMarshal struct {
	ID             party.ID
	ECDSA, ElGamal curve.Point
	N, S, T        *saferith.Nat
}

// MarshalBinary encodes the config with cbor. Public data is sorted by party id.
func (c *Config) MarshalBinary() ([]byte, error) {
	ps := make([]cbor.RawMessage, 0, len(c.Public))
	for _, id := range c.PartyIDs() {
		p := c.Public[id]
		data, err := cbor.Marshal(&publicMarshal{
			ID:      id,
			ECDSA:   p.ECDSA,
			ElGamal: p.ElGamal,
			N:       p.Pedersen.N().Nat(),
			S:       p.Pedersen.S(),
			T:       p.Pedersen.T(),
		})
		if err != nil {
			return nil, fmt.Errorf("config: party %s: %w", id, err)
		}
		ps = append(ps, data)
	}
	return cbor.Marshal(&configMarshal{
		Version:   encodingVersion,
		Curve:     c.Group.Name(),
		ID:        c.ID,
		Threshold: c.Threshold,
		ECDSA:     c.ECDSA,
		ElGamal:   c.ElGamal,
		P:         c.Paillier.P(),
		Q:         c.Paillier.Q(),
		RID:       c.RID,
		ChainKey:  c.ChainKey,
		Public:    ps,
	})
}

// UnmarshalBinary decodes a config produced by MarshalBinary, and checks every
// party's public data as well as the relation between our secrets and our public data.
func (c *Config) UnmarshalBinary(data []byte) error {
	if c.Group == nil {
		return errors.New("config must be initialized using EmptyConfig")
	}
	group := c.Group
	cm := &configMarshal{
		ECDSA:   group.NewScalar(),
		ElGamal: group.NewScalar(),
	}
	if err := cbor.Unmarshal(data, cm); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cm.Version != encodingVersion {
		return fmt.Errorf("config: unsupported encoding version %d", cm.Version)
	}
	if cm.Curve != group.Name() {
		return fmt.Errorf("config: encoded for curve %q, expected %q", cm.Curve, group.Name())
	}

	if err := paillier.ValidatePrime(cm.P); err != nil {
		return fmt.Errorf("config: prime P: %w", err)
	}
	if err := paillier.ValidatePrime(cm.Q); err != nil {
		return fmt.Errorf("config: prime Q: %w", err)
	}
	paillierSecret := paillier.NewSecretKeyFromPrimes(cm.P, cm.Q)

	ps := make(map[party.ID]*Public, len(cm.Public))
	for _, raw := range cm.Public {
		pm := &publicMarshal{
			ECDSA:   group.NewPoint(),
			ElGamal: group.NewPoint(),
		}
		if err := cbor.Unmarshal(raw, pm); err != nil {
			return fmt.Errorf("config: public data: %w", err)
		}
		if _, ok := ps[pm.ID]; ok {
			return fmt.Errorf("config: party %s: duplicate entry", pm.ID)
		}
		var paillierPublic *paillier.PublicKey
		if pm.ID == cm.ID {
			paillierPublic = paillierSecret.PublicKey
		}
		p, err := pm.decode(paillierPublic)
		if err != nil {
			return fmt.Errorf("config: party %s: %w", pm.ID, err)
		}
		ps[pm.ID] = p
	}

	decoded := &Config{
		Group:     group,
		ID:        cm.ID,
		Threshold: cm.Threshold,
		ECDSA:     cm.ECDSA,
		ElGamal:   cm.ElGamal,
		Paillier:  paillierSecret,
		RID:       cm.RID,
		ChainKey:  cm.ChainKey,
		Public:    ps,
	}
	if err := decoded.Validate(); err != nil {
		return err
	}
	*c = *decoded
	return nil
}

// decode builds a Public from the encoded data.
// own is set when the data belongs to the owner of the config, whose modulus is already known.
func (pm *publicMarshal) decode(own *paillier.PublicKey) (*Public, error) {
	paillierPublic := own
	if paillierPublic == nil {
		if err := paillier.ValidateN(pm.N); err != nil {
			return nil, err
		}
		paillierPublic = paillier.NewPublicKey(saferith.ModulusFromNat(pm.N))
	}
	if err := pedersen.ValidateParameters(paillierPublic.N(), pm.S, pm.T); err != nil {
		return nil, err
	}
	return &Public{
		ID:       pm.ID,
		ECDSA:    pm.ECDSA,
		ElGamal:  pm.ElGamal,
		Paillier: paillierPublic,
		Pedersen: pedersen.New(paillierPublic.Modulus(), pm.S, pm.T),
	}, nil
}
