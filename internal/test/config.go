package test

import (
	"io"

	"github.com/taurusgroup/cmp-keygen/internal/types"
	"github.com/taurusgroup/cmp-keygen/pkg/math/curve"
	"github.com/taurusgroup/cmp-keygen/pkg/math/polynomial"
	"github.com/taurusgroup/cmp-keygen/pkg/math/sample"
	"github.com/taurusgroup/cmp-keygen/pkg/party"
	"github.com/taurusgroup/cmp-keygen/protocols/cmp/config"
)

// FakeConfigs creates consistent configs for ids as a trusted dealer would, without running the keygen.
// The Paillier keys are built from the fixed safe primes, so at most 4 of them are distinct.
func FakeConfigs(source io.Reader, group curve.Curve, ids party.IDSlice, threshold int) map[party.ID]*config.Config {
	f := polynomial.NewPolynomial(source, group, threshold, sample.Scalar(source, group))

	rid, err := types.NewRID(source)
	if err != nil {
		panic(err)
	}
	chainKey, err := types.NewRID(source)
	if err != nil {
		panic(err)
	}

	configs := make(map[party.ID]*config.Config, len(ids))
	public := make(map[party.ID]*config.Public, len(ids))
	for i, id := range ids {
		paillierSecret := PaillierSecretKey(i)
		pedersenPublic, _, err := paillierSecret.GeneratePedersen(source)
		if err != nil {
			panic(err)
		}
		ecdsaSecret := f.Evaluate(id.Scalar(group))
		elGamalSecret, elGamalPublic := sample.ScalarPointPair(source, group)

		configs[id] = &config.Config{
			Group:     group,
			ID:        id,
			Threshold: threshold,
			ECDSA:     ecdsaSecret,
			ElGamal:   elGamalSecret,
			Paillier:  paillierSecret,
			RID:       rid.Copy(),
			ChainKey:  chainKey.Copy(),
		}
		public[id] = &config.Public{
			ID:       id,
			ECDSA:    ecdsaSecret.ActOnBase(),
			ElGamal:  elGamalPublic,
			Paillier: paillierSecret.PublicKey,
			Pedersen: pedersenPublic,
		}
	}

	for _, c := range configs {
		c.Public = make(map[party.ID]*config.Public, len(public))
		for id, p := range public {
			c.Public[id] = p
		}
	}
	return configs
}

// PartyIDs returns n sorted ids "a", "b", …, "z", "aa", "ab", ….
func PartyIDs(n int) party.IDSlice {
	ids := make(party.IDSlice, 0, n)
	prefix := ""
	for i := 0; i < n; i++ {
		if i > 0 && i%26 == 0 {
			prefix += "a"
		}
		ids = append(ids, party.ID(prefix+string(rune('a'+i%26))))
	}
	return party.NewIDSlice(ids)
}
