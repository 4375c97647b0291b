package booking

import "time"

// SlotStatus marks whether a time slot participates in scheduling.
type SlotStatus string

const (
	// SlotStatusActive identifies a slot considered for layout and export.
	SlotStatusActive SlotStatus = "active"
	// SlotStatusDeleted identifies a soft-deleted slot retained for audit.
	SlotStatusDeleted SlotStatus = "deleted"
)

// AuditAction labels an entry in a slot's modification history.
type AuditAction string

const (
	// AuditActionCreated records the initial creation of a slot.
	AuditActionCreated AuditAction = "created"
	// AuditActionModified records a semantically meaningful field change.
	AuditActionModified AuditAction = "modified"
	// AuditActionDeleted records the soft deletion of a slot.
	AuditActionDeleted AuditAction = "deleted"
)

// AuditEntry is one append-only record in a slot's modification trail.
type AuditEntry struct {
	UserID    string
	Timestamp time.Time
	Action    AuditAction
}

// TimeSlot is the atomic bookable unit: a half-open interval [Start, End)
// with resource and group assignments and an audit trail. Entries are
// appended to ModifiedBy only when a semantically meaningful field changed,
// never on a no-op save.
type TimeSlot struct {
	ID          string
	Start       time.Time
	End         time.Time
	Status      SlotStatus
	ResourceIDs []string
	GroupIDs    []string
	Note        string
	CreatedBy   string
	ModifiedBy  []AuditEntry
}

// Clone returns a deep copy of the slot so callers can mutate freely.
func (s TimeSlot) Clone() TimeSlot {
	out := s
	out.ResourceIDs = append([]string(nil), s.ResourceIDs...)
	out.GroupIDs = append([]string(nil), s.GroupIDs...)
	out.ModifiedBy = append([]AuditEntry(nil), s.ModifiedBy...)
	return out
}

// EventState enumerates the lifecycle states of a calendar event.
type EventState string

const (
	// StatePending marks an event awaiting validator review.
	StatePending EventState = "PENDING"
	// StateValidated marks an event approved by a validator.
	StateValidated EventState = "VALIDATED"
	// StateCancelled marks an event cancelled by a validator. Cancelled
	// events may re-enter PENDING through a new slot proposal.
	StateCancelled EventState = "CANCELLED"
	// StateMoved marks an event whose slots were rescheduled by a validator.
	StateMoved EventState = "MOVED"
	// StateInProgress marks an event currently taking place.
	StateInProgress EventState = "IN_PROGRESS"
)

// ValidationState is derived from comparing proposed and accepted slot
// sets; it is never stored or set independently.
type ValidationState string

const (
	// ValidationNoPending means proposed and accepted slots agree.
	ValidationNoPending ValidationState = "noPending"
	// ValidationOwnerPending means the owner proposed slots that a
	// validator has not yet accepted.
	ValidationOwnerPending ValidationState = "ownerPending"
	// ValidationOperatorPending means a validator proposed slots that are
	// held for review instead of taking effect immediately.
	ValidationOperatorPending ValidationState = "operatorPending"
)

// StateChange records the most recent lifecycle transition of an event.
type StateChange struct {
	From      EventState
	To        EventState
	Timestamp time.Time
	UserID    string
	Reason    string
}

// CalendarEvent is the booking request a user interacts with. ProposedSlots
// hold the set under review; AcceptedSlots remain authoritative for
// scheduling and display until a new proposal is approved.
type CalendarEvent struct {
	ID                string
	Title             string
	Discipline        string
	OwnerID           string
	State             EventState
	ProposedSlots     []TimeSlot
	AcceptedSlots     []TimeSlot
	LastStateChange   *StateChange
	StateChangeReason string
}

// Clone returns a deep copy of the event.
func (e CalendarEvent) Clone() CalendarEvent {
	out := e
	out.ProposedSlots = cloneSlots(e.ProposedSlots)
	out.AcceptedSlots = cloneSlots(e.AcceptedSlots)
	if e.LastStateChange != nil {
		change := *e.LastStateChange
		out.LastStateChange = &change
	}
	return out
}

// ValidationState derives the review status of the event by comparing the
// proposed slot set against the accepted one. A pending difference is
// attributed to the owner unless the most recent transition was made by
// someone else, in which case an operator is waiting on review.
func (e CalendarEvent) ValidationState() ValidationState {
	if SlotSetSignature(e.ProposedSlots) == SlotSetSignature(e.AcceptedSlots) {
		return ValidationNoPending
	}
	if e.LastStateChange != nil && e.LastStateChange.UserID != e.OwnerID {
		return ValidationOperatorPending
	}
	return ValidationOwnerPending
}

func cloneSlots(slots []TimeSlot) []TimeSlot {
	if slots == nil {
		return nil
	}
	out := make([]TimeSlot, len(slots))
	for i, slot := range slots {
		out[i] = slot.Clone()
	}
	return out
}
