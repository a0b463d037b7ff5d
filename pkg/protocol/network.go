package protocol

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/taurusgroup/cmp-keygen/internal/params"
	"github.com/taurusgroup/cmp-keygen/internal/round"
	"github.com/taurusgroup/cmp-keygen/pkg/party"
)

// Broadcaster delivers a message to all other parties.
// Whether this is done by unicast or broadcast is up to the transport.
type Broadcaster func(msg *round.Message) error

type bufferKey struct {
	protocolID string
	round      round.Number
}

// Network buffers the messages received by a party, per protocol and round,
// and lets rounds wait until all messages addressed to them have arrived.
type Network struct {
	self      party.ID
	broadcast Broadcaster
	clock     clockwork.Clock
	timeout   time.Duration
	log       zerolog.Logger

	mtx      sync.Mutex
	received map[bufferKey][]*round.Message
	senders  map[bufferKey]map[party.ID]bool
	// notify is closed and replaced whenever a message is stored.
	notify chan struct{}
}

var _ round.Network = (*Network)(nil)

// NetworkOption configures a Network.
type NetworkOption func(*Network)

// WithClock sets the clock measuring the timeout.
func WithClock(c clockwork.Clock) NetworkOption {
	return func(n *Network) { n.clock = c }
}

// WithTimeout sets the maximum time FetchReceived waits, measured from the start of the wait.
func WithTimeout(d time.Duration) NetworkOption {
	return func(n *Network) { n.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) NetworkOption {
	return func(n *Network) { n.log = l }
}

// NewNetwork returns a Network for the party self, sending through broadcast.
func NewNetwork(self party.ID, broadcast Broadcaster, opts ...NetworkOption) *Network {
	n := &Network{
		self:      self,
		broadcast: broadcast,
		clock:     clockwork.NewRealClock(),
		timeout:   params.NetworkTimeout,
		log:       zerolog.Nop(),
		received:  make(map[bufferKey][]*round.Message),
		senders:   make(map[bufferKey]map[party.ID]bool),
		notify:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.log = n.log.With().Str("party", string(self)).Logger()
	return n
}

// Send implements round.Network.
func (n *Network) Send(msg *round.Message) error {
	if err := n.broadcast(msg); err != nil {
		return fmt.Errorf("protocol: failed to send %s: %w", msg, err)
	}
	MessagesSent.WithLabelValues(msg.ProtocolID).Inc()
	return nil
}

// OnReceive stores msg until the round it is addressed to fetches it.
// Messages from this party are ignored. A second message from the same sender for the same round is rejected.
func (n *Network) OnReceive(msg *round.Message) error {
	if msg == nil || msg.From == "" || msg.ProtocolID == "" || msg.RoundNumber == 0 {
		MessagesRejected.WithLabelValues("invalid").Inc()
		return ErrInvalidMessage
	}
	if msg.From == n.self {
		return nil
	}

	key := bufferKey{protocolID: msg.ProtocolID, round: msg.RoundNumber}

	n.mtx.Lock()
	defer n.mtx.Unlock()

	senders, ok := n.senders[key]
	if !ok {
		senders = make(map[party.ID]bool)
		n.senders[key] = senders
	}
	if senders[msg.From] {
		MessagesRejected.WithLabelValues("duplicate").Inc()
		n.log.Warn().Stringer("msg", msg).Msg("duplicate message")
		return fmt.Errorf("%w: %s", ErrDuplicateMessage, msg)
	}
	senders[msg.From] = true
	n.received[key] = append(n.received[key], msg)
	MessagesReceived.WithLabelValues(msg.ProtocolID).Inc()
	n.log.Debug().Stringer("msg", msg).Msg("stored message")

	close(n.notify)
	n.notify = make(chan struct{})
	return nil
}

// FetchReceived implements round.Network.
//
// It blocks until expected messages from parties other than self are stored for the round, and returns the first
// expected of them in order of arrival.
// If they do not arrive within the network timeout, a *TimeoutError is returned.
func (n *Network) FetchReceived(ctx context.Context, protocolID string, self party.ID, r round.Number, expected int) ([]*round.Message, error) {
	key := bufferKey{protocolID: protocolID, round: r}
	start := n.clock.Now()
	deadline := n.clock.After(n.timeout)
	defer func() {
		FetchDuration.WithLabelValues(protocolID).Observe(n.clock.Since(start).Seconds())
	}()

	for {
		n.mtx.Lock()
		msgs := make([]*round.Message, 0, expected)
		for _, msg := range n.received[key] {
			if msg.From != self && len(msgs) < expected {
				msgs = append(msgs, msg)
			}
		}
		wait := n.notify
		n.mtx.Unlock()

		if len(msgs) == expected {
			return msgs, nil
		}

		select {
		case <-wait:
		case <-deadline:
			FetchTimeouts.WithLabelValues(protocolID).Inc()
			err := &TimeoutError{
				ProtocolID: protocolID,
				PartyID:    self,
				Round:      r,
				Expected:   expected,
				Received:   len(msgs),
			}
			n.log.Error().Err(err).Msg("fetch timed out")
			return nil, err
		case <-ctx.Done():
			return nil, fmt.Errorf("protocol %s: round %d: %w", protocolID, r, ctx.Err())
		}
	}
}
