package round

import (
	"github.com/taurusgroup/cmp-keygen/pkg/math/curve"
	"github.com/taurusgroup/cmp-keygen/pkg/party"
)

type Info struct {
	// ProtocolID is an identifier for this protocol
	ProtocolID string
	// FinalRoundNumber is the number of rounds before the output round.
	FinalRoundNumber Number
	// SelfID is this party's ID.
	SelfID party.ID
	// PartyIDs is the optional list of all participants, including SelfID.
	// When empty, the set is fixed by the first round that receives messages from N-1 peers.
	PartyIDs []party.ID
	// Threshold is the maximum number of parties that are assumed to be corrupted during the execution of this protocol.
	Threshold int
	// N is the total number of parties.
	N int
	// Group returns the group used for this protocol execution.
	Group curve.Curve
}
