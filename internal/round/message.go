package round

import (
	"context"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/taurusgroup/cmp-keygen/pkg/party"
)

// Content represents the payload of a message returned by a round.
type Content interface {
	// RoundNumber is the round for which the content is intended.
	RoundNumber() Number
}

// Message is the envelope exchanged between parties.
//
// It is addressed to the round that consumes it, not to the round that produced it.
type Message struct {
	ProtocolID  string   `cbor:"protocol_id"`
	RoundNumber Number   `cbor:"target_round"`
	From        party.ID `cbor:"sender"`
	// Timestamp is the Unix time in milliseconds at which the message was created.
	Timestamp int64  `cbor:"timestamp"`
	Data      []byte `cbor:"data"`
}

// UnmarshalContent decodes the payload into content, which should be initialized for the session's group.
func (m *Message) UnmarshalContent(content Content) error {
	if err := cbor.Unmarshal(m.Data, content); err != nil {
		return fmt.Errorf("message: failed to unmarshal content from %s: %w", m.From, err)
	}
	if content.RoundNumber() != m.RoundNumber {
		return fmt.Errorf("message: content for round %d delivered to round %d", content.RoundNumber(), m.RoundNumber)
	}
	return nil
}

func (m *Message) String() string {
	return fmt.Sprintf("message: round %d, from: %s, protocol: %s", m.RoundNumber, m.From, m.ProtocolID)
}

// Network is the message delivery contract needed by a session.
type Network interface {
	// Send hands msg over to the transport, which delivers it to all other parties.
	Send(msg *Message) error

	// FetchReceived blocks until expected messages from parties other than self were received for the given round,
	// and returns them in order of arrival.
	FetchReceived(ctx context.Context, protocolID string, self party.ID, round Number, expected int) ([]*Message, error)
}
