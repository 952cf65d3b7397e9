package registration

import "errors"

// Errors returned by Service.Register. Callers branch with errors.Is / As.
var (
	// ErrInvalidInput is matched by every *InvalidInputError.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicate means the normalised admission number is taken.
	ErrDuplicate = errors.New("admission number already registered")
	// ErrUnavailable means storage failed for a reason other than a
	// duplicate. Details are logged, never returned to clients.
	ErrUnavailable = errors.New("registration service unavailable")
)

// InvalidInputError carries the client-facing reason a submission was
// rejected before storage was consulted.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string { return "invalid input: " + e.Reason }

func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

// Outcome is the public category of a registration attempt.
type Outcome string

const (
	OutcomeAccepted           Outcome = "accepted"
	OutcomeRejectedInvalid    Outcome = "rejected_invalid"
	OutcomeRejectedDuplicate  Outcome = "rejected_duplicate"
	OutcomeServiceUnavailable Outcome = "service_unavailable"
)

// OutcomeOf maps an error from Register to its category.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeAccepted
	case errors.Is(err, ErrInvalidInput):
		return OutcomeRejectedInvalid
	case errors.Is(err, ErrDuplicate):
		return OutcomeRejectedDuplicate
	default:
		return OutcomeServiceUnavailable
	}
}
