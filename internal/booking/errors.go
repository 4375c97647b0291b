package booking

import "fmt"

// SlotValidationError reports a malformed slot in a proposed set. The
// transition carrying the slot is rejected as a whole.
type SlotValidationError struct {
	Index   int
	Message string
}

// Error implements the error interface.
func (e *SlotValidationError) Error() string {
	return fmt.Sprintf("booking: slot %d: %s", e.Index, e.Message)
}

// StateTransitionError reports a transition rejected before any mutation,
// typically because the acting user lacks the required capability.
type StateTransitionError struct {
	Action Action
	State  EventState
	Reason string
}

// Error implements the error interface.
func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("booking: cannot apply %s in state %s: %s", e.Action, e.State, e.Reason)
}
