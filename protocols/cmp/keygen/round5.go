package keygen

import (
	"context"
	"fmt"

	"github.com/taurusgroup/cmp-keygen/internal/round"
	"github.com/taurusgroup/cmp-keygen/pkg/protocol"
	zksch "github.com/taurusgroup/cmp-keygen/pkg/zk/sch"
	"github.com/taurusgroup/cmp-keygen/protocols/cmp/config"
)

var _ round.Round = (*round5)(nil)

type round5 struct {
	*round4
	UpdatedConfig *config.Config
}

// Process implements round.Round.
//
// - verify all Schnorr proof for the new ecdsa share.
func (r *round5) Process(ctx context.Context) (round.Round, error) {
	msgs, err := r.FetchReceived(ctx)
	if err != nil {
		return nil, err
	}

	partyIDs := r.PartyIDs()
	for _, msg := range msgs {
		from := msg.From
		if !partyIDs.Contains(from) {
			return nil, r.culprit(from, ErrUnknownParty)
		}

		body := &broadcast5{SchnorrResponse: zksch.EmptyResponse(r.Group())}
		if err = msg.UnmarshalContent(body); err != nil {
			return nil, r.culprit(from, fmt.Errorf("%w: %v", ErrInvalidContent, err))
		}
		if !body.SchnorrResponse.IsValid() {
			return nil, r.culprit(from, fmt.Errorf("%w: empty schnorr response", ErrInvalidContent))
		}

		if !body.SchnorrResponse.Verify(r.HashForID(from),
			r.UpdatedConfig.Public[from].ECDSA,
			r.SchnorrCommitments[from], nil) {
			return nil, r.culprit(from, ErrSchnorr)
		}
	}

	if err = r.UpdatedConfig.Validate(); err != nil {
		return nil, protocol.Error{RoundNumber: r.Number(), Err: err}
	}
	r.Logger().Info().
		Stringer("rid", r.UpdatedConfig.RID).
		Msg("keygen complete")
	return r.ResultRound(r.UpdatedConfig), nil
}

// Number implements round.Round.
func (round5) Number() round.Number { return 5 }
