package befunge

import "errors"

var (
	// ErrMalformedProgram is returned for a program with no rows: there is
	// no cell for the instruction pointer to start on.
	ErrMalformedProgram = errors.New("malformed program: empty grid")

	// ErrStepLimitExceeded is returned when a step limit or context deadline
	// stops a program before it reaches '@'.
	ErrStepLimitExceeded = errors.New("step limit exceeded")

	ErrBadSnapshot = errors.New("bad snapshot")
)
