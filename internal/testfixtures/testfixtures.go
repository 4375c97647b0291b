// Package testfixtures provides deterministic clocks, id generators and
// stored-record builders shared by repository and service tests.
package testfixtures

import (
	"fmt"
	"time"

	"github.com/example/lab-booking/internal/persistence"
)

// BaseTime is the reference instant fixtures are built around.
var BaseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// FixedClock returns a clock frozen at the given instant. A zero instant
// freezes the clock at BaseTime.
func FixedClock(at time.Time) func() time.Time {
	if at.IsZero() {
		at = BaseTime
	}
	return func() time.Time { return at }
}

// SequentialIDs returns an id generator producing prefix-1, prefix-2, ...
func SequentialIDs(prefix string) func() string {
	var n int
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// SlotRecord builds an active stored slot spanning the given hours offset
// from BaseTime on the given resources.
func SlotRecord(id string, startHour, endHour int, resourceIDs ...string) persistence.TimeSlotRecord {
	return persistence.TimeSlotRecord{
		ID:          id,
		Start:       BaseTime.Add(time.Duration(startHour) * time.Hour),
		End:         BaseTime.Add(time.Duration(endHour) * time.Hour),
		Status:      "active",
		ResourceIDs: resourceIDs,
		CreatedBy:   "user-1",
	}
}

// EventRecord builds a pending stored event owned by user-1 with the given
// proposed slots.
func EventRecord(id string, slots ...persistence.TimeSlotRecord) persistence.Event {
	return persistence.Event{
		ID:            id,
		Title:         "Physics practical",
		Discipline:    "physics",
		OwnerID:       "user-1",
		State:         "PENDING",
		ProposedSlots: slots,
		CreatedAt:     BaseTime,
		UpdatedAt:     BaseTime,
	}
}

// ResourceRecord builds a stored resource catalog entry.
func ResourceRecord(id, name string) persistence.Resource {
	return persistence.Resource{
		ID:        id,
		Name:      name,
		Location:  "building A",
		Capacity:  16,
		CreatedAt: BaseTime,
		UpdatedAt: BaseTime,
	}
}

// UserRecord builds a stored account.
func UserRecord(id, email string, isValidator bool) persistence.User {
	return persistence.User{
		ID:           id,
		Email:        email,
		DisplayName:  "Test User",
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdHNhbHRzYWx0c2E$aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaGhhc2g",
		IsValidator:  isValidator,
		CreatedAt:    BaseTime,
		UpdatedAt:    BaseTime,
	}
}
