package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/lab-booking/internal/persistence"
	"github.com/example/lab-booking/internal/testfixtures"
)

func newTestPool(t *testing.T) *ConnectionPool {
	t.Helper()

	ctx := context.Background()
	pool, err := Open(ctx, "file:"+t.Name()+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	if err := Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

func TestEventRepository_CreateAndGetRoundTrip(t *testing.T) {
	repo := NewEventRepository(newTestPool(t))
	ctx := context.Background()

	event := testfixtures.EventRecord("event-1",
		testfixtures.SlotRecord("slot-1", 0, 2, "room-a"),
		testfixtures.SlotRecord("slot-2", 3, 5, "room-b"),
	)
	event.LastStateChange = &persistence.StateChangeRecord{
		From:      "PENDING",
		To:        "VALIDATED",
		Timestamp: testfixtures.BaseTime,
		UserID:    "validator-1",
		Reason:    "approved",
	}
	event.Attachments = []string{"protocol.pdf"}

	if err := repo.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent returned error: %v", err)
	}

	got, err := repo.GetEvent(ctx, "event-1")
	if err != nil {
		t.Fatalf("GetEvent returned error: %v", err)
	}
	if got.Title != event.Title || got.OwnerID != event.OwnerID || got.State != event.State {
		t.Fatalf("unexpected event %+v", got)
	}
	if len(got.ProposedSlots) != 2 || got.ProposedSlots[0].ID != "slot-1" {
		t.Fatalf("unexpected proposed slots %+v", got.ProposedSlots)
	}
	if !got.ProposedSlots[0].Start.Equal(testfixtures.BaseTime) {
		t.Fatalf("slot start must survive the round trip, got %v", got.ProposedSlots[0].Start)
	}
	if got.LastStateChange == nil || got.LastStateChange.Reason != "approved" {
		t.Fatalf("unexpected state change %+v", got.LastStateChange)
	}
	if len(got.Attachments) != 1 || got.Attachments[0] != "protocol.pdf" {
		t.Fatalf("unexpected attachments %+v", got.Attachments)
	}
}

func TestEventRepository_CreateRejectsDuplicateID(t *testing.T) {
	repo := NewEventRepository(newTestPool(t))
	ctx := context.Background()

	event := testfixtures.EventRecord("event-1")
	if err := repo.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent returned error: %v", err)
	}
	if err := repo.CreateEvent(ctx, event); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestEventRepository_UpdateMissingEventFails(t *testing.T) {
	repo := NewEventRepository(newTestPool(t))

	err := repo.UpdateEvent(context.Background(), testfixtures.EventRecord("ghost"))
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEventRepository_ListFiltersByOwnerStateAndWindow(t *testing.T) {
	repo := NewEventRepository(newTestPool(t))
	ctx := context.Background()

	mine := testfixtures.EventRecord("event-1")
	mine.State = "VALIDATED"
	mine.AcceptedSlots = []persistence.TimeSlotRecord{testfixtures.SlotRecord("slot-1", 0, 2, "room-a")}

	other := testfixtures.EventRecord("event-2")
	other.OwnerID = "user-2"
	other.State = "VALIDATED"
	other.AcceptedSlots = []persistence.TimeSlotRecord{testfixtures.SlotRecord("slot-2", 0, 2, "room-a")}

	outside := testfixtures.EventRecord("event-3")
	outside.State = "VALIDATED"
	outside.AcceptedSlots = []persistence.TimeSlotRecord{testfixtures.SlotRecord("slot-3", 48, 50, "room-a")}

	pending := testfixtures.EventRecord("event-4")

	for _, event := range []persistence.Event{mine, other, outside, pending} {
		if err := repo.CreateEvent(ctx, event); err != nil {
			t.Fatalf("seed %s: %v", event.ID, err)
		}
	}

	from := testfixtures.BaseTime.Add(-time.Hour)
	to := testfixtures.BaseTime.Add(24 * time.Hour)
	events, err := repo.ListEvents(ctx, persistence.EventFilter{
		OwnerID:      "user-1",
		States:       []string{"VALIDATED"},
		EndsAfter:    &from,
		StartsBefore: &to,
	})
	if err != nil {
		t.Fatalf("ListEvents returned error: %v", err)
	}
	if len(events) != 1 || events[0].ID != "event-1" {
		t.Fatalf("expected only event-1, got %+v", events)
	}
}

func TestEventRepository_DeleteRemovesRow(t *testing.T) {
	repo := NewEventRepository(newTestPool(t))
	ctx := context.Background()

	if err := repo.CreateEvent(ctx, testfixtures.EventRecord("event-1")); err != nil {
		t.Fatalf("CreateEvent returned error: %v", err)
	}
	if err := repo.DeleteEvent(ctx, "event-1"); err != nil {
		t.Fatalf("DeleteEvent returned error: %v", err)
	}
	if _, err := repo.GetEvent(ctx, "event-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.DeleteEvent(ctx, "event-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for second delete, got %v", err)
	}
}
