package login

import (
	"errors"
	"fmt"
)

// Flow errors. All of them indicate a call sequence problem that the caller
// can correct; none are returned asynchronously.
var (
	// ErrFinalState is returned by Advance when the current state has no
	// successor.
	ErrFinalState = errors.New("login state is final")

	// ErrDuplicateCompletion is returned when a completion is already
	// registered for the requested state.
	ErrDuplicateCompletion = errors.New("completion already registered for state")

	// ErrNoUser is returned by User when the session is authenticated but no
	// user value was constructed. It should not occur through the public
	// receive methods.
	ErrNoUser = errors.New("no user constructed")
)

// WrongStateError indicates an operation was attempted in a state it is not
// valid in.
type WrongStateError struct {
	Actual   State
	Expected State
}

func (e WrongStateError) Error() string {
	return fmt.Sprintf("wrong login state %s, expected %s", e.Actual, e.Expected)
}

// MissingDetailsError indicates the caller skipped a milestone: the
// information required to be in ForState was never supplied. It is a more
// specific diagnostic than WrongStateError for the skipped-step case.
type MissingDetailsError struct {
	ForState State
}

func (e MissingDetailsError) Error() string {
	return fmt.Sprintf("missing details for login state %s", e.ForState)
}

// MissingInformationError is returned by Advance when the candidate state's
// required fields are not all present. The transition does not happen.
type MissingInformationError struct {
	Missing []Field
}

func (e MissingInformationError) Error() string {
	return fmt.Sprintf("missing information to advance login state: %v", e.Missing)
}
