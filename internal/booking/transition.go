package booking

import "time"

// Action identifies a lifecycle transition request.
type Action string

const (
	// ActionValidate approves the current proposal.
	ActionValidate Action = "validate"
	// ActionCancel cancels the event.
	ActionCancel Action = "cancel"
	// ActionMove reschedules the event directly.
	ActionMove Action = "move"
	// ActionMarkInProgress marks the event as currently running.
	ActionMarkInProgress Action = "markInProgress"
	// ActionProposeSlots submits a new slot set for the event.
	ActionProposeSlots Action = "proposeSlots"
)

// Role identifies the capability an actor holds over an event.
type Role string

const (
	// RoleOwner is the booking requester.
	RoleOwner Role = "owner"
	// RoleValidator is the operator allowed to approve, cancel and move.
	RoleValidator Role = "validator"
)

// Actor is the identity and capability applying a transition. The role is
// an explicit parameter rather than something inferred from the event,
// since owners and validators trigger different targets from the same
// proposeSlots action.
type Actor struct {
	UserID string
	Role   Role
}

// Outcome describes what a transition observably changed. Both flags false
// is the no-op result: nothing to persist beyond the returned event value
// and nothing to notify.
type Outcome struct {
	StateChanged   bool
	SlotsChanged   bool
	DeletedSlotIDs []string
}

// Observable reports whether the transition produced a change worth
// persisting audit entries for and notifying about.
func (o Outcome) Observable() bool {
	return o.StateChanged || o.SlotsChanged
}

// Policy carries the tunable decisions of the controller.
type Policy struct {
	// RequireReviewForValidatorMove forces validator-initiated proposals
	// through the PENDING review loop instead of applying them immediately
	// as MOVED.
	RequireReviewForValidatorMove bool
}

// Controller applies lifecycle transitions to calendar events. It is pure:
// the input event is never mutated and all state lands in the returned
// copy. Time and identifiers come from injected functions so outcomes are
// reproducible.
type Controller struct {
	nextID func() string
	now    func() time.Time
	policy Policy
}

// NewController wires the controller's deterministic inputs.
func NewController(nextID func() string, now func() time.Time, policy Policy) *Controller {
	if nextID == nil {
		nextID = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &Controller{nextID: nextID, now: now, policy: policy}
}

var actionTargets = map[Action]EventState{
	ActionValidate:       StateValidated,
	ActionCancel:         StateCancelled,
	ActionMove:           StateMoved,
	ActionMarkInProgress: StateInProgress,
}

// ApplyTransition applies one lifecycle action on behalf of an actor and
// returns the resulting event. Proposed slots, when present, are validated
// up front and routed through the diff engine so audit trails stay minimal.
// Violations reject the transition as a whole; the input event is returned
// unchanged alongside the error.
func (c *Controller) ApplyTransition(event CalendarEvent, action Action, actor Actor, reason string, proposed []TimeSlot) (CalendarEvent, Outcome, error) {
	if err := validateProposedSlots(proposed); err != nil {
		return event, Outcome{}, err
	}

	switch action {
	case ActionValidate, ActionCancel, ActionMove, ActionMarkInProgress:
		return c.applyValidatorAction(event, action, actor, reason, proposed)
	case ActionProposeSlots:
		return c.applyProposal(event, actor, reason, proposed)
	default:
		return event, Outcome{}, &StateTransitionError{Action: action, State: event.State, Reason: "unknown action"}
	}
}

func (c *Controller) applyValidatorAction(event CalendarEvent, action Action, actor Actor, reason string, proposed []TimeSlot) (CalendarEvent, Outcome, error) {
	if actor.Role != RoleValidator {
		return event, Outcome{}, &StateTransitionError{Action: action, State: event.State, Reason: "requires validator capability"}
	}

	target := actionTargets[action]
	next := event.Clone()
	outcome := Outcome{}

	if proposed != nil {
		next.ProposedSlots, outcome = c.reconcileProposal(next.ProposedSlots, proposed, actor.UserID)
	}

	switch action {
	case ActionValidate, ActionMove:
		// Approving or moving makes the proposal authoritative.
		if SlotSetSignature(next.AcceptedSlots) != SlotSetSignature(next.ProposedSlots) {
			next.AcceptedSlots = cloneSlots(next.ProposedSlots)
			outcome.SlotsChanged = true
		}
	}

	if event.State == target {
		// Idempotent repeat: keep lastStateChange and reason untouched.
		return next, outcome, nil
	}

	next.State = target
	next.LastStateChange = &StateChange{
		From:      event.State,
		To:        target,
		Timestamp: c.now(),
		UserID:    actor.UserID,
		Reason:    reason,
	}
	next.StateChangeReason = reason
	outcome.StateChanged = true

	return next, outcome, nil
}

func (c *Controller) applyProposal(event CalendarEvent, actor Actor, reason string, proposed []TimeSlot) (CalendarEvent, Outcome, error) {
	if actor.Role != RoleOwner && actor.Role != RoleValidator {
		return event, Outcome{}, &StateTransitionError{Action: ActionProposeSlots, State: event.State, Reason: "requires owner or validator capability"}
	}
	if actor.Role == RoleOwner && actor.UserID != event.OwnerID {
		return event, Outcome{}, &StateTransitionError{Action: ActionProposeSlots, State: event.State, Reason: "owner proposals must come from the event owner"}
	}

	next := event.Clone()
	outcome := Outcome{}

	next.ProposedSlots, outcome = c.reconcileProposal(next.ProposedSlots, proposed, actor.UserID)

	// An owner-initiated time change always re-enters review. A validator
	// proposal takes effect immediately unless policy demands review.
	target := StatePending
	if actor.Role == RoleValidator && !c.policy.RequireReviewForValidatorMove {
		target = StateMoved
		if SlotSetSignature(next.AcceptedSlots) != SlotSetSignature(next.ProposedSlots) {
			next.AcceptedSlots = cloneSlots(next.ProposedSlots)
			outcome.SlotsChanged = true
		}
	}

	if event.State != target {
		next.State = target
		next.LastStateChange = &StateChange{
			From:      event.State,
			To:        target,
			Timestamp: c.now(),
			UserID:    actor.UserID,
			Reason:    reason,
		}
		next.StateChangeReason = reason
		outcome.StateChanged = true
	}

	return next, outcome, nil
}

func validateProposedSlots(slots []TimeSlot) error {
	for i, slot := range slots {
		if slot.Start.IsZero() {
			return &SlotValidationError{Index: i, Message: "start is required"}
		}
		if slot.End.IsZero() {
			return &SlotValidationError{Index: i, Message: "end is required"}
		}
		if !slot.Start.Before(slot.End) {
			return &SlotValidationError{Index: i, Message: "start must be before end"}
		}
	}
	return nil
}

// reconcileProposal routes a proposed set through the diff engine against
// the active portion of the stored set. Removed slots become soft-deleted
// tombstones so their audit trails stay with the event; tombstones from
// earlier rounds carry through untouched.
func (c *Controller) reconcileProposal(stored []TimeSlot, proposed []TimeSlot, actorID string) ([]TimeSlot, Outcome) {
	now := c.now()

	active := make([]TimeSlot, 0, len(stored))
	tombstones := make([]TimeSlot, 0)
	for _, slot := range stored {
		if slot.Status == SlotStatusDeleted {
			tombstones = append(tombstones, slot.Clone())
			continue
		}
		active = append(active, slot)
	}

	reconciled := ReconcileSlots(proposed, active, actorID, now, c.nextID)

	deleted := make(map[string]struct{}, len(reconciled.DeletedIDs))
	for _, id := range reconciled.DeletedIDs {
		deleted[id] = struct{}{}
	}
	for _, slot := range active {
		if _, ok := deleted[slot.ID]; !ok {
			continue
		}
		tombstone := slot.Clone()
		tombstone.Status = SlotStatusDeleted
		tombstone.ModifiedBy = append(tombstone.ModifiedBy, AuditEntry{UserID: actorID, Timestamp: now, Action: AuditActionDeleted})
		tombstones = append(tombstones, tombstone)
	}

	next := append(reconciled.Slots, tombstones...)
	outcome := Outcome{
		SlotsChanged:   SlotSetSignature(stored) != SlotSetSignature(next),
		DeletedSlotIDs: reconciled.DeletedIDs,
	}
	return next, outcome
}
