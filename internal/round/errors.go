package round

import "errors"

var (
	ErrTooFewParties    = errors.New("session: at least 2 parties are required")
	ErrInvalidThreshold = errors.New("session: threshold must be in [1, n-1]")
	ErrPartyListLength  = errors.New("session: number of party IDs does not match party count")
	ErrSelfNotIncluded  = errors.New("session: selfID not included in partyIDs")
	ErrDuplicateParty   = errors.New("session: partyIDs contains duplicates")
	ErrEmptySelfID      = errors.New("session: selfID is empty")
	ErrPartiesFixed     = errors.New("session: party set is already fixed")
	ErrPartiesNotFixed  = errors.New("session: party set is not fixed yet")
	ErrNilNetwork       = errors.New("session: network is nil")
	ErrWrongRound       = errors.New("session: content is not addressed to the next round")
	ErrOutputRound      = errors.New("round: output round cannot be processed")
)
