package round

import (
	"context"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/taurusgroup/cmp-keygen/internal/types"
	"github.com/taurusgroup/cmp-keygen/pkg/hash"
	"github.com/taurusgroup/cmp-keygen/pkg/math/curve"
	"github.com/taurusgroup/cmp-keygen/pkg/party"
	"github.com/taurusgroup/cmp-keygen/pkg/pool"
)

// Helper holds the state of a protocol execution which is shared by all rounds.
// It is embedded in every round of a protocol.
type Helper struct {
	info Info

	// Pool allows us to parallelize certain operations
	Pool *pool.Pool

	// partyIDs is a sorted slice of Info.PartyIDs, nil until the party set is fixed.
	partyIDs party.IDSlice
	// otherPartyIDs is the same as partyIDs without selfID
	otherPartyIDs party.IDSlice

	hash *hash.Hash

	network Network
	clock   clockwork.Clock
	log     zerolog.Logger
	current Number

	mtx sync.Mutex
}

// Option configures optional parts of a Helper.
type Option func(*Helper)

// WithLogger sets the logger of the session, to which protocol and party fields are added.
func WithLogger(l zerolog.Logger) Option {
	return func(h *Helper) { h.log = l }
}

// WithPool sets the pool used to parallelize expensive operations.
func WithPool(pl *pool.Pool) Option {
	return func(h *Helper) { h.Pool = pl }
}

// WithClock sets the clock used to timestamp outgoing messages.
func WithClock(c clockwork.Clock) Option {
	return func(h *Helper) { h.clock = c }
}

// NewSession creates a new *Helper which can be embedded in the rounds of a protocol.
//
// The session's hash is initialized with the protocol ID, the group, the threshold, the number of parties,
// and the sorted party IDs when they are known.
func NewSession(info Info, network Network, opts ...Option) (*Helper, error) {
	if network == nil {
		return nil, ErrNilNetwork
	}
	if info.SelfID == "" {
		return nil, ErrEmptySelfID
	}
	n := info.N
	if n == 0 {
		n = len(info.PartyIDs)
	}
	if n < 2 {
		return nil, ErrTooFewParties
	}
	if info.Threshold < 1 || info.Threshold > n-1 {
		return nil, fmt.Errorf("%w: threshold %d for %d parties", ErrInvalidThreshold, info.Threshold, n)
	}
	info.N = n

	h := &Helper{
		info:    info,
		network: network,
		clock:   clockwork.NewRealClock(),
		log:     zerolog.Nop(),
		current: 1,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.With().
		Str("protocol", info.ProtocolID).
		Str("party", string(info.SelfID)).
		Logger()

	var err error
	h.hash = hash.New()
	if err = h.hash.WriteAny(
		&hash.BytesWithDomain{TheDomain: "Session", Bytes: []byte("CMP-SESSION")},
		&hash.BytesWithDomain{TheDomain: "Protocol ID", Bytes: []byte(info.ProtocolID)},
	); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	if info.Group != nil {
		if err = h.hash.WriteAny(&hash.BytesWithDomain{
			TheDomain: "Group Name",
			Bytes:     []byte(info.Group.Name()),
		}); err != nil {
			return nil, fmt.Errorf("session: %w", err)
		}
	}
	if err = h.hash.WriteAny(types.ThresholdWrapper(info.Threshold), types.PartyCountWrapper(n)); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	if len(info.PartyIDs) > 0 {
		if err = h.fixPartyIDs(info.PartyIDs); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// FixPartyIDs sets the participants of a session created without an explicit party list.
// The list must contain SelfID, and the resulting set is written to the session's hash.
func (h *Helper) FixPartyIDs(ids []party.ID) error {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if h.partyIDs != nil {
		return ErrPartiesFixed
	}
	return h.fixPartyIDs(ids)
}

func (h *Helper) fixPartyIDs(ids []party.ID) error {
	partyIDs := party.NewIDSlice(ids)
	if len(partyIDs) != h.info.N {
		return fmt.Errorf("%w: got %d, expected %d", ErrPartyListLength, len(partyIDs), h.info.N)
	}
	if !partyIDs.Valid() {
		return ErrDuplicateParty
	}
	// verify our ID is present
	if !partyIDs.Contains(h.info.SelfID) {
		return ErrSelfNotIncluded
	}
	if h.info.Group != nil {
		if err := partyIDs.ValidScalars(h.info.Group); err != nil {
			return fmt.Errorf("session: %w", err)
		}
	}
	if err := h.hash.WriteAny(partyIDs); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	h.partyIDs = partyIDs
	h.otherPartyIDs = partyIDs.Remove(h.info.SelfID)
	return nil
}

// HashForID returns a clone of the hash.Hash for this session, initialized with the given id.
func (h *Helper) HashForID(id party.ID) *hash.Hash {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	cloned := h.hash.Clone()
	if id != "" {
		_ = cloned.WriteAny(id)
	}

	return cloned
}

// UpdateHashState writes additional data to the hash state.
func (h *Helper) UpdateHashState(value hash.WriterToWithDomain) error {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return h.hash.WriteAny(value)
}

// Hash returns copy of the hash function of this protocol execution.
func (h *Helper) Hash() *hash.Hash {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return h.hash.Clone()
}

// Send marshals content and hands it to the network, addressed to the round following the current one.
func (h *Helper) Send(content Content) error {
	h.mtx.Lock()
	current := h.current
	h.mtx.Unlock()

	if content.RoundNumber() != current+1 {
		return fmt.Errorf("%w: got %d, current round is %d", ErrWrongRound, content.RoundNumber(), current)
	}
	data, err := cbor.Marshal(content)
	if err != nil {
		return fmt.Errorf("session: failed to marshal content: %w", err)
	}
	msg := &Message{
		ProtocolID:  h.info.ProtocolID,
		RoundNumber: current + 1,
		From:        h.info.SelfID,
		Timestamp:   h.clock.Now().UnixMilli(),
		Data:        data,
	}
	h.log.Debug().Stringer("msg", msg).Msg("sending message")
	return h.network.Send(msg)
}

// FetchReceived blocks until messages from N-1 other parties were received for the current round.
// Messages are returned in order of arrival.
func (h *Helper) FetchReceived(ctx context.Context) ([]*Message, error) {
	current := h.CurrentRound()
	msgs, err := h.network.FetchReceived(ctx, h.info.ProtocolID, h.info.SelfID, current, h.info.N-1)
	if err != nil {
		return nil, err
	}
	h.log.Debug().Int("count", len(msgs)).Msg("received messages")
	return msgs, nil
}

// ResultRound returns a round that contains only the result of the protocol.
// This indicates to the used that the protocol is finished.
func (h *Helper) ResultRound(result interface{}) *Output {
	return &Output{Result: result}
}

func (h *Helper) setRound(number Number) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	h.current = number
}

// CurrentRound is the number of the round being processed.
func (h *Helper) CurrentRound() Number {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return h.current
}

// Logger returns the session's logger, annotated with the current round.
func (h *Helper) Logger() *zerolog.Logger {
	l := h.log.With().Int("round", int(h.CurrentRound())).Logger()
	return &l
}

// ProtocolID is an identifier for this protocol.
func (h *Helper) ProtocolID() string { return h.info.ProtocolID }

// FinalRoundNumber is the number of rounds before the output round.
func (h *Helper) FinalRoundNumber() Number { return h.info.FinalRoundNumber }

// SelfID is this party's ID.
func (h *Helper) SelfID() party.ID { return h.info.SelfID }

// PartyIDs is a sorted slice of participating parties in this protocol.
// It is nil until the party set is fixed.
func (h *Helper) PartyIDs() party.IDSlice {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return h.partyIDs
}

// OtherPartyIDs returns a sorted list of parties that does not contain SelfID.
func (h *Helper) OtherPartyIDs() party.IDSlice {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return h.otherPartyIDs
}

// Threshold is the maximum number of parties that are assumed to be corrupted during the execution of this protocol.
func (h *Helper) Threshold() int { return h.info.Threshold }

// N returns the number of participants.
func (h *Helper) N() int { return h.info.N }

// Group returns the curve used for this protocol.
func (h *Helper) Group() curve.Curve { return h.info.Group }
