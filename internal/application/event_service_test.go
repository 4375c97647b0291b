package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/example/lab-booking/internal/booking"
	"github.com/example/lab-booking/internal/layout"
	"github.com/example/lab-booking/internal/persistence"
)

type eventRepoStub struct {
	events    map[string]persistence.Event
	created   *persistence.Event
	updated   *persistence.Event
	listCalls int
	err       error
}

func newEventRepoStub(events ...persistence.Event) *eventRepoStub {
	stub := &eventRepoStub{events: make(map[string]persistence.Event)}
	for _, event := range events {
		stub.events[event.ID] = event
	}
	return stub
}

func (s *eventRepoStub) CreateEvent(ctx context.Context, event persistence.Event) error {
	if s.err != nil {
		return s.err
	}
	s.created = &event
	s.events[event.ID] = event
	return nil
}

func (s *eventRepoStub) UpdateEvent(ctx context.Context, event persistence.Event) error {
	if s.err != nil {
		return s.err
	}
	s.updated = &event
	s.events[event.ID] = event
	return nil
}

func (s *eventRepoStub) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	if s.err != nil {
		return persistence.Event{}, s.err
	}
	event, ok := s.events[id]
	if !ok {
		return persistence.Event{}, persistence.ErrNotFound
	}
	return event, nil
}

func (s *eventRepoStub) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.listCalls++
	out := make([]persistence.Event, 0, len(s.events))
	for _, event := range s.events {
		out = append(out, event)
	}
	return out, nil
}

type resourceDirectoryStub struct {
	resources []persistence.Resource
}

func (s *resourceDirectoryStub) ListResources(ctx context.Context) ([]persistence.Resource, error) {
	return s.resources, nil
}

type notifierStub struct {
	changes []EventChange
}

func (n *notifierStub) EventChanged(ctx context.Context, change EventChange) {
	n.changes = append(n.changes, change)
}

func fixedClock(t *testing.T) func() time.Time {
	t.Helper()
	instant := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return instant }
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func newTestEventService(repo *eventRepoStub, notifier *notifierStub, resources *resourceDirectoryStub, now func() time.Time) *EventService {
	if resources == nil {
		resources = &resourceDirectoryStub{}
	}
	return NewEventService(EventServiceConfig{
		Events:      repo,
		Resources:   resources,
		Notifier:    notifier,
		IDGenerator: sequentialIDs("id"),
		Now:         now,
	})
}

func slotAt(t *testing.T, startHour, endHour int) SlotInput {
	t.Helper()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	return SlotInput{
		Start:       day.Add(time.Duration(startHour) * time.Hour),
		End:         day.Add(time.Duration(endHour) * time.Hour),
		ResourceIDs: []string{"room-a"},
	}
}

func TestEventService_CreateEvent_ValidatesInput(t *testing.T) {
	t.Parallel()

	svc := newTestEventService(newEventRepoStub(), &notifierStub{}, nil, fixedClock(t))

	_, err := svc.CreateEvent(context.Background(), CreateEventParams{
		Principal: Principal{UserID: "user-1"},
		Input: EventInput{
			Slots: []SlotInput{{Start: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), End: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}},
		},
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["title"]; !ok {
		t.Fatalf("expected title validation error, got %v", vErr.FieldErrors)
	}
	if _, ok := vErr.FieldErrors["slots[0]"]; !ok {
		t.Fatalf("expected slot order validation error, got %v", vErr.FieldErrors)
	}
}

func TestEventService_CreateEvent_StartsPendingWithAuditedSlots(t *testing.T) {
	t.Parallel()

	repo := newEventRepoStub()
	notifier := &notifierStub{}
	svc := newTestEventService(repo, notifier, nil, fixedClock(t))

	event, err := svc.CreateEvent(context.Background(), CreateEventParams{
		Principal: Principal{UserID: "user-1"},
		Input: EventInput{
			Title: "Chemistry practical",
			Slots: []SlotInput{slotAt(t, 9, 11)},
		},
	})
	if err != nil {
		t.Fatalf("CreateEvent returned error: %v", err)
	}

	if event.State != booking.StatePending {
		t.Fatalf("expected PENDING, got %s", event.State)
	}
	if len(event.AcceptedSlots) != 0 {
		t.Fatalf("expected no accepted slots on creation, got %d", len(event.AcceptedSlots))
	}
	if len(event.ProposedSlots) != 1 {
		t.Fatalf("expected one proposed slot, got %d", len(event.ProposedSlots))
	}
	slot := event.ProposedSlots[0]
	if slot.ID == "" {
		t.Fatal("expected slot to receive an id")
	}
	if slot.CreatedBy != "user-1" {
		t.Fatalf("expected creator user-1, got %q", slot.CreatedBy)
	}
	if len(slot.ModifiedBy) != 1 || slot.ModifiedBy[0].Action != booking.AuditActionCreated {
		t.Fatalf("expected a single created audit entry, got %v", slot.ModifiedBy)
	}
	if repo.created == nil {
		t.Fatal("expected event to be persisted")
	}
	if len(notifier.changes) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.changes))
	}
}

func TestEventService_ApplyTransition_RejectsStrangers(t *testing.T) {
	t.Parallel()

	repo := newEventRepoStub(persistence.Event{ID: "event-1", OwnerID: "user-1", State: string(booking.StatePending)})
	svc := newTestEventService(repo, &notifierStub{}, nil, fixedClock(t))

	_, err := svc.ApplyTransition(context.Background(), TransitionParams{
		Principal: Principal{UserID: "user-2"},
		EventID:   "event-1",
		Action:    booking.ActionProposeSlots,
		Slots:     []SlotInput{slotAt(t, 9, 10)},
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestEventService_ApplyTransition_ValidateAcceptsProposal(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	repo := newEventRepoStub(persistence.Event{
		ID:      "event-1",
		OwnerID: "user-1",
		State:   string(booking.StatePending),
		ProposedSlots: []persistence.TimeSlotRecord{{
			ID:     "slot-1",
			Start:  day.Add(9 * time.Hour),
			End:    day.Add(11 * time.Hour),
			Status: string(booking.SlotStatusActive),
		}},
	})
	notifier := &notifierStub{}
	svc := newTestEventService(repo, notifier, nil, fixedClock(t))

	event, err := svc.ApplyTransition(context.Background(), TransitionParams{
		Principal: Principal{UserID: "validator-1", IsValidator: true},
		EventID:   "event-1",
		Action:    booking.ActionValidate,
		Reason:    "room confirmed",
	})
	if err != nil {
		t.Fatalf("ApplyTransition returned error: %v", err)
	}

	if event.State != booking.StateValidated {
		t.Fatalf("expected VALIDATED, got %s", event.State)
	}
	if len(event.AcceptedSlots) != 1 || event.AcceptedSlots[0].ID != "slot-1" {
		t.Fatalf("expected accepted slots to follow the proposal, got %v", event.AcceptedSlots)
	}
	if event.LastStateChange == nil || event.LastStateChange.UserID != "validator-1" {
		t.Fatalf("expected state change attributed to validator-1, got %v", event.LastStateChange)
	}
	if repo.updated == nil {
		t.Fatal("expected event update to be persisted")
	}
	if len(notifier.changes) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.changes))
	}
}

func TestEventService_ApplyTransition_IdempotentRepeatIsSilent(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	slots := []persistence.TimeSlotRecord{{
		ID:     "slot-1",
		Start:  day.Add(9 * time.Hour),
		End:    day.Add(11 * time.Hour),
		Status: string(booking.SlotStatusActive),
	}}
	change := &persistence.StateChangeRecord{From: string(booking.StatePending), To: string(booking.StateValidated), UserID: "validator-1", Timestamp: day}
	repo := newEventRepoStub(persistence.Event{
		ID:              "event-1",
		OwnerID:         "user-1",
		State:           string(booking.StateValidated),
		ProposedSlots:   slots,
		AcceptedSlots:   slots,
		LastStateChange: change,
	})
	notifier := &notifierStub{}
	svc := newTestEventService(repo, notifier, nil, fixedClock(t))

	event, err := svc.ApplyTransition(context.Background(), TransitionParams{
		Principal: Principal{UserID: "validator-2", IsValidator: true},
		EventID:   "event-1",
		Action:    booking.ActionValidate,
	})
	if err != nil {
		t.Fatalf("ApplyTransition returned error: %v", err)
	}

	if repo.updated != nil {
		t.Fatal("expected no persistence write for an idempotent repeat")
	}
	if len(notifier.changes) != 0 {
		t.Fatalf("expected no notification, got %d", len(notifier.changes))
	}
	if event.LastStateChange == nil || event.LastStateChange.UserID != "validator-1" {
		t.Fatalf("expected original state change to survive, got %v", event.LastStateChange)
	}
}

func TestEventService_ApplyTransition_OwnerProposalReentersReview(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	slots := []persistence.TimeSlotRecord{{
		ID:     "slot-1",
		Start:  day.Add(9 * time.Hour),
		End:    day.Add(11 * time.Hour),
		Status: string(booking.SlotStatusActive),
	}}
	repo := newEventRepoStub(persistence.Event{
		ID:            "event-1",
		OwnerID:       "user-1",
		State:         string(booking.StateValidated),
		ProposedSlots: slots,
		AcceptedSlots: slots,
	})
	notifier := &notifierStub{}
	svc := newTestEventService(repo, notifier, nil, fixedClock(t))

	moved := slotAt(t, 13, 15)
	moved.ID = "slot-1"
	event, err := svc.ApplyTransition(context.Background(), TransitionParams{
		Principal: Principal{UserID: "user-1"},
		EventID:   "event-1",
		Action:    booking.ActionProposeSlots,
		Slots:     []SlotInput{moved},
	})
	if err != nil {
		t.Fatalf("ApplyTransition returned error: %v", err)
	}

	if event.State != booking.StatePending {
		t.Fatalf("expected PENDING after owner proposal, got %s", event.State)
	}
	if event.ValidationState() != booking.ValidationOwnerPending {
		t.Fatalf("expected ownerPending, got %s", event.ValidationState())
	}
	if len(event.AcceptedSlots) != 1 || !event.AcceptedSlots[0].Start.Equal(day.Add(9*time.Hour)) {
		t.Fatalf("expected accepted slots to stay authoritative, got %v", event.AcceptedSlots)
	}
	if len(notifier.changes) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.changes))
	}
}

func TestEventService_UpdateEventDetails_NotifiesOnlyOnObservableChange(t *testing.T) {
	t.Parallel()

	repo := newEventRepoStub(persistence.Event{ID: "event-1", Title: "Old title", OwnerID: "user-1", State: string(booking.StatePending)})
	notifier := &notifierStub{}
	svc := newTestEventService(repo, notifier, nil, fixedClock(t))

	_, err := svc.UpdateEventDetails(context.Background(), Principal{UserID: "user-1"}, "event-1", EventInput{Title: "New title"})
	if err != nil {
		t.Fatalf("UpdateEventDetails returned error: %v", err)
	}
	if len(notifier.changes) != 0 {
		t.Fatalf("expected retitle to stay silent, got %d notifications", len(notifier.changes))
	}

	_, err = svc.UpdateEventDetails(context.Background(), Principal{UserID: "user-1"}, "event-1", EventInput{Title: "New title", Attachments: []string{"protocol.pdf"}})
	if err != nil {
		t.Fatalf("UpdateEventDetails returned error: %v", err)
	}
	if len(notifier.changes) != 1 {
		t.Fatalf("expected attachment change to notify, got %d notifications", len(notifier.changes))
	}
}

func TestEventService_ListOccupancy_SkipsCancelledAndTombstones(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	repo := newEventRepoStub(
		persistence.Event{
			ID:    "event-1",
			State: string(booking.StateValidated),
			AcceptedSlots: []persistence.TimeSlotRecord{
				{ID: "slot-1", Start: day.Add(9 * time.Hour), End: day.Add(11 * time.Hour), Status: string(booking.SlotStatusActive), ResourceIDs: []string{"room-a"}},
				{ID: "slot-2", Start: day.Add(9 * time.Hour), End: day.Add(10 * time.Hour), Status: string(booking.SlotStatusDeleted), ResourceIDs: []string{"room-a"}},
			},
		},
		persistence.Event{
			ID:    "event-2",
			State: string(booking.StateCancelled),
			AcceptedSlots: []persistence.TimeSlotRecord{
				{ID: "slot-3", Start: day.Add(9 * time.Hour), End: day.Add(10 * time.Hour), Status: string(booking.SlotStatusActive), ResourceIDs: []string{"room-a"}},
			},
		},
	)
	svc := newTestEventService(repo, &notifierStub{}, nil, fixedClock(t))

	placements, err := svc.ListOccupancy(context.Background(), OccupancyParams{
		From: day,
		To:   day.Add(24 * time.Hour),
		Mode: layout.ModeByBooking,
	})
	if err != nil {
		t.Fatalf("ListOccupancy returned error: %v", err)
	}

	if len(placements) != 1 {
		t.Fatalf("expected a single placement, got %v", placements)
	}
	if placements[0].ItemID != "slot-1" {
		t.Fatalf("expected slot-1, got %s", placements[0].ItemID)
	}
}

func TestEventService_ListOccupancy_CachesUntilMutation(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	repo := newEventRepoStub(persistence.Event{
		ID:    "event-1",
		State: string(booking.StateValidated),
		AcceptedSlots: []persistence.TimeSlotRecord{
			{ID: "slot-1", Start: day.Add(9 * time.Hour), End: day.Add(11 * time.Hour), Status: string(booking.SlotStatusActive)},
		},
	})
	svc := newTestEventService(repo, &notifierStub{}, nil, fixedClock(t))

	params := OccupancyParams{From: day, To: day.Add(24 * time.Hour), Mode: layout.ModeByBooking}
	if _, err := svc.ListOccupancy(context.Background(), params); err != nil {
		t.Fatalf("ListOccupancy returned error: %v", err)
	}
	if _, err := svc.ListOccupancy(context.Background(), params); err != nil {
		t.Fatalf("ListOccupancy returned error: %v", err)
	}
	if repo.listCalls != 1 {
		t.Fatalf("expected second projection to hit the cache, got %d repository reads", repo.listCalls)
	}

	if _, err := svc.UpdateEventDetails(context.Background(), Principal{UserID: "", IsValidator: true}, "event-1", EventInput{Title: "Renamed", Attachments: []string{"sheet.pdf"}}); err != nil {
		t.Fatalf("UpdateEventDetails returned error: %v", err)
	}
	if _, err := svc.ListOccupancy(context.Background(), params); err != nil {
		t.Fatalf("ListOccupancy returned error: %v", err)
	}
	if repo.listCalls != 2 {
		t.Fatalf("expected mutation to flush the cache, got %d repository reads", repo.listCalls)
	}
}

func TestEventService_ListOccupancy_ByResourceUsesCatalogNames(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	repo := newEventRepoStub(persistence.Event{
		ID:    "event-1",
		State: string(booking.StateValidated),
		AcceptedSlots: []persistence.TimeSlotRecord{
			{ID: "slot-1", Start: day.Add(9 * time.Hour), End: day.Add(10 * time.Hour), Status: string(booking.SlotStatusActive), ResourceIDs: []string{"room-z", "room-a"}},
		},
	})
	resources := &resourceDirectoryStub{resources: []persistence.Resource{
		{ID: "room-z", Name: "Annex lab"},
		{ID: "room-a", Name: "Main lab"},
	}}
	svc := newTestEventService(repo, &notifierStub{}, resources, fixedClock(t))

	placements, err := svc.ListOccupancy(context.Background(), OccupancyParams{
		From: day,
		To:   day.Add(24 * time.Hour),
		Mode: layout.ModeByResource,
	})
	if err != nil {
		t.Fatalf("ListOccupancy returned error: %v", err)
	}

	if len(placements) != 2 {
		t.Fatalf("expected two lane placements, got %v", placements)
	}
	// Annex lab sorts before Main lab, so room-z owns the left lane.
	for _, placement := range placements {
		switch placement.LaneResourceID {
		case "room-z":
			if placement.Col != 0 {
				t.Fatalf("expected Annex lab in the left lane, got col %d", placement.Col)
			}
		case "room-a":
			if placement.Col != 1 {
				t.Fatalf("expected Main lab in the right lane, got col %d", placement.Col)
			}
		default:
			t.Fatalf("unexpected lane %q", placement.LaneResourceID)
		}
	}
}
