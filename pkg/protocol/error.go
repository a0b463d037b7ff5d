package protocol

import (
	"errors"
	"fmt"

	"github.com/taurusgroup/cmp-keygen/internal/round"
	"github.com/taurusgroup/cmp-keygen/pkg/party"
)

var (
	ErrDuplicateMessage = errors.New("protocol: duplicate message from sender for this round")
	ErrInvalidMessage   = errors.New("protocol: message is missing header fields")
)

// Error is a custom error for protocols which contains information about the responsible round in which it occurred,
// and the party responsible.
type Error struct {
	// RoundNumber where the error occurred
	RoundNumber round.Number
	// Culprit is empty if the identity of the misbehaving party cannot be known
	Culprit party.ID
	// Err is the underlying error
	Err error
}

func (e Error) Error() string {
	if e.Culprit == "" {
		return fmt.Sprintf("round %d: %s", e.RoundNumber, e.Err)
	}
	return fmt.Sprintf("round %d: party: %s: %s", e.RoundNumber, e.Culprit, e.Err)
}

func (e Error) Unwrap() error {
	return e.Err
}

// TimeoutError is returned when not enough messages were received for a round before the network timeout.
type TimeoutError struct {
	ProtocolID string
	PartyID    party.ID
	Round      round.Number
	Expected   int
	Received   int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("protocol %s: party %s: round %d: timed out waiting for %d of %d messages",
		e.ProtocolID, e.PartyID, e.Round, e.Missing(), e.Expected)
}

// Missing is the number of messages which were not received.
func (e *TimeoutError) Missing() int {
	return e.Expected - e.Received
}
