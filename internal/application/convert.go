package application

import (
	"errors"

	"github.com/example/lab-booking/internal/booking"
	"github.com/example/lab-booking/internal/persistence"
)

func toStoredEvent(event Event) persistence.Event {
	return persistence.Event{
		ID:                event.ID,
		Title:             event.Title,
		Discipline:        event.Discipline,
		OwnerID:           event.OwnerID,
		State:             string(event.State),
		ProposedSlots:     toStoredSlots(event.ProposedSlots),
		AcceptedSlots:     toStoredSlots(event.AcceptedSlots),
		LastStateChange:   toStoredStateChange(event.LastStateChange),
		StateChangeReason: event.StateChangeReason,
		Attachments:       append([]string(nil), event.Attachments...),
		CreatedAt:         event.CreatedAt,
		UpdatedAt:         event.UpdatedAt,
	}
}

func fromStoredEvent(record persistence.Event) Event {
	return Event{
		CalendarEvent: booking.CalendarEvent{
			ID:                record.ID,
			Title:             record.Title,
			Discipline:        record.Discipline,
			OwnerID:           record.OwnerID,
			State:             booking.EventState(record.State),
			ProposedSlots:     fromStoredSlots(record.ProposedSlots),
			AcceptedSlots:     fromStoredSlots(record.AcceptedSlots),
			LastStateChange:   fromStoredStateChange(record.LastStateChange),
			StateChangeReason: record.StateChangeReason,
		},
		Attachments: append([]string(nil), record.Attachments...),
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

func toStoredSlots(slots []booking.TimeSlot) []persistence.TimeSlotRecord {
	out := make([]persistence.TimeSlotRecord, len(slots))
	for i, slot := range slots {
		entries := make([]persistence.AuditRecord, len(slot.ModifiedBy))
		for j, entry := range slot.ModifiedBy {
			entries[j] = persistence.AuditRecord{
				UserID:    entry.UserID,
				Timestamp: entry.Timestamp,
				Action:    string(entry.Action),
			}
		}
		out[i] = persistence.TimeSlotRecord{
			ID:          slot.ID,
			Start:       slot.Start,
			End:         slot.End,
			Status:      string(slot.Status),
			ResourceIDs: append([]string(nil), slot.ResourceIDs...),
			GroupIDs:    append([]string(nil), slot.GroupIDs...),
			Note:        slot.Note,
			CreatedBy:   slot.CreatedBy,
			ModifiedBy:  entries,
		}
	}
	return out
}

func fromStoredSlots(records []persistence.TimeSlotRecord) []booking.TimeSlot {
	out := make([]booking.TimeSlot, len(records))
	for i, record := range records {
		entries := make([]booking.AuditEntry, len(record.ModifiedBy))
		for j, entry := range record.ModifiedBy {
			entries[j] = booking.AuditEntry{
				UserID:    entry.UserID,
				Timestamp: entry.Timestamp,
				Action:    booking.AuditAction(entry.Action),
			}
		}
		out[i] = booking.TimeSlot{
			ID:          record.ID,
			Start:       record.Start,
			End:         record.End,
			Status:      booking.SlotStatus(record.Status),
			ResourceIDs: append([]string(nil), record.ResourceIDs...),
			GroupIDs:    append([]string(nil), record.GroupIDs...),
			Note:        record.Note,
			CreatedBy:   record.CreatedBy,
			ModifiedBy:  entries,
		}
	}
	return out
}

func toStoredStateChange(change *booking.StateChange) *persistence.StateChangeRecord {
	if change == nil {
		return nil
	}
	return &persistence.StateChangeRecord{
		From:      string(change.From),
		To:        string(change.To),
		Timestamp: change.Timestamp,
		UserID:    change.UserID,
		Reason:    change.Reason,
	}
}

func fromStoredStateChange(record *persistence.StateChangeRecord) *booking.StateChange {
	if record == nil {
		return nil
	}
	return &booking.StateChange{
		From:      booking.EventState(record.From),
		To:        booking.EventState(record.To),
		Timestamp: record.Timestamp,
		UserID:    record.UserID,
		Reason:    record.Reason,
	}
}

func toDomainSlots(inputs []SlotInput) []booking.TimeSlot {
	if inputs == nil {
		return nil
	}
	out := make([]booking.TimeSlot, len(inputs))
	for i, input := range inputs {
		out[i] = booking.TimeSlot{
			ID:          input.ID,
			Start:       input.Start,
			End:         input.End,
			Status:      booking.SlotStatusActive,
			ResourceIDs: append([]string(nil), input.ResourceIDs...),
			GroupIDs:    append([]string(nil), input.GroupIDs...),
			Note:        input.Note,
		}
	}
	return out
}

// mapRepoError translates persistence sentinels into application sentinels
// so HTTP handlers only ever see the application error taxonomy.
func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	}
	return err
}
