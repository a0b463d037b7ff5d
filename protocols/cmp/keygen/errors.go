package keygen

import (
	"errors"
	"fmt"
)

var (
	ErrRound1Commitment   = errors.New("keygen: invalid commitment")
	ErrRound2Decommitment = errors.New("keygen: invalid decommitment")
	ErrDecommit           = errors.New("keygen: failed to decommit")
	ErrVSSConstant        = errors.New("keygen: vss polynomial has incorrect constant")
	ErrVSSDegree          = errors.New("keygen: vss polynomial has incorrect degree")
	ErrShareDecrypt       = errors.New("keygen: failed to decrypt share")
	ErrFeldman            = errors.New("keygen: share does not match vss polynomial")
	ErrSchnorr            = errors.New("keygen: failed to validate schnorr proof for received share")
	ErrModProof           = errors.New("keygen: failed to validate mod proof")
	ErrPrmProof           = errors.New("keygen: failed to validate prm proof")
	ErrUnknownParty       = errors.New("keygen: message from party outside the session")
	ErrInvalidContent     = errors.New("keygen: invalid message content")
)

// VSSConstantError is returned when a VSS polynomial's constant flag differs from ours.
type VSSConstantError struct {
	Actual, Expected bool
}

func (e *VSSConstantError) Error() string {
	return fmt.Sprintf("%s (got constant=%t, expected %t)", ErrVSSConstant, e.Actual, e.Expected)
}

func (*VSSConstantError) Is(target error) bool { return target == ErrVSSConstant }

// VSSDegreeError is returned when a VSS polynomial does not have degree t.
type VSSDegreeError struct {
	Actual, Expected int
}

func (e *VSSDegreeError) Error() string {
	return fmt.Sprintf("%s (got %d, expected %d)", ErrVSSDegree, e.Actual, e.Expected)
}

func (*VSSDegreeError) Is(target error) bool { return target == ErrVSSDegree }
