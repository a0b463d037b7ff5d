package round

import (
	"context"
	"fmt"
)

type Round interface {
	// Number returns the index of this round, starting at 1.
	Number() Number

	// Process consumes the messages addressed to this round, validates them, sends the messages
	// for the next round and returns it.
	// In the last round, Process returns the *Output containing the result of the protocol.
	// Any error is fatal to the protocol execution.
	Process(ctx context.Context) (Round, error)
}

// Output is an empty round containing the output of the protocol.
type Output struct {
	Result interface{}
}

// Number implements Round.
func (Output) Number() Number { return 0 }

// Process implements Round.
func (r *Output) Process(context.Context) (Round, error) {
	return r, ErrOutputRound
}

// Run processes the rounds of a protocol sequentially, starting with first, and returns the result
// contained in the final Output.
func Run(ctx context.Context, h *Helper, first Round) (interface{}, error) {
	r := first
	for {
		if out, ok := r.(*Output); ok {
			h.log.Info().Msg("protocol finished")
			return out.Result, nil
		}
		next, err := Step(ctx, h, r)
		if err != nil {
			return nil, err
		}
		r = next
	}
}

// Step processes the single round r and returns the one following it.
//
// The current round of h is set to r's number before processing, and stays there until the next Step.
func Step(ctx context.Context, h *Helper, r Round) (Round, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("round %d: %w", r.Number(), err)
	}
	if _, ok := r.(*Output); ok {
		return nil, ErrOutputRound
	}
	if r.Number() > h.FinalRoundNumber() {
		return nil, fmt.Errorf("round %d: exceeds final round %d", r.Number(), h.FinalRoundNumber())
	}

	h.setRound(r.Number())
	log := h.Logger()
	log.Info().Msg("round started")

	next, err := r.Process(ctx)
	if err != nil {
		log.Error().Err(err).Msg("round failed")
		return nil, err
	}
	if next == nil {
		return nil, fmt.Errorf("round %d: no next round", r.Number())
	}
	if _, ok := next.(*Output); !ok && next.Number() != r.Number()+1 {
		return nil, fmt.Errorf("round %d: next round is %d", r.Number(), next.Number())
	}
	return next, nil
}
