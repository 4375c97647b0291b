package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/example/lab-booking/internal/persistence"
)

// EventRepository implements persistence.EventRepository. Slot sets, the
// last state change and attachment references are stored as JSON columns
// and validated when decoded.
type EventRepository struct {
	pool *ConnectionPool
}

// NewEventRepository creates an event repository on the shared pool.
func NewEventRepository(pool *ConnectionPool) *EventRepository {
	return &EventRepository{pool: pool}
}

const eventColumns = "id, title, discipline, owner_id, state, proposed_slots, accepted_slots, last_state_change, state_change_reason, attachments, created_at, updated_at"

// CreateEvent inserts a new event.
func (r *EventRepository) CreateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" {
		return persistence.ErrConstraintViolation
	}

	encoded, err := encodeEvent(event)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = r.pool.db.ExecContext(ctx,
		"INSERT INTO events ("+eventColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		event.ID,
		event.Title,
		event.Discipline,
		event.OwnerID,
		event.State,
		encoded.proposed,
		encoded.accepted,
		encoded.lastChange,
		event.StateChangeReason,
		encoded.attachments,
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	return mapError(err)
}

// UpdateEvent overwrites an existing event.
func (r *EventRepository) UpdateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" {
		return persistence.ErrNotFound
	}

	encoded, err := encodeEvent(event)
	if err != nil {
		return err
	}

	result, err := r.pool.db.ExecContext(ctx,
		`UPDATE events
		 SET title = ?, discipline = ?, state = ?, proposed_slots = ?, accepted_slots = ?,
		     last_state_change = ?, state_change_reason = ?, attachments = ?, updated_at = ?
		 WHERE id = ?`,
		event.Title,
		event.Discipline,
		event.State,
		encoded.proposed,
		encoded.accepted,
		encoded.lastChange,
		event.StateChangeReason,
		encoded.attachments,
		time.Now().UTC().Format(time.RFC3339),
		event.ID,
	)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetEvent retrieves an event by id.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	if id == "" {
		return persistence.Event{}, persistence.ErrNotFound
	}
	row := r.pool.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id = ?", id)
	return scanEvent(row)
}

// ListEvents returns events matching the filter ordered by creation time,
// ids breaking ties.
func (r *EventRepository) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	query := "SELECT " + eventColumns + " FROM events"
	var conditions []string
	var args []any

	if filter.OwnerID != "" {
		conditions = append(conditions, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if len(filter.States) > 0 {
		placeholders := make([]string, len(filter.States))
		for i, state := range filter.States {
			placeholders[i] = "?"
			args = append(args, state)
		}
		conditions = append(conditions, "state IN ("+strings.Join(placeholders, ",")+")")
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var events []persistence.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		if !overlapsWindow(event, filter) {
			continue
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return events, nil
}

// DeleteEvent removes an event entirely. The scheduling core never calls
// this; it backs the administrative CRUD surface.
func (r *EventRepository) DeleteEvent(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	result, err := r.pool.db.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// The time window filter inspects decoded accepted slots rather than SQL:
// slot sets live in JSON columns, and windows are per-day queries over
// modest row counts.
func overlapsWindow(event persistence.Event, filter persistence.EventFilter) bool {
	if filter.EndsAfter == nil && filter.StartsBefore == nil {
		return true
	}
	for _, slot := range event.AcceptedSlots {
		if filter.EndsAfter != nil && !slot.End.After(*filter.EndsAfter) {
			continue
		}
		if filter.StartsBefore != nil && !slot.Start.Before(*filter.StartsBefore) {
			continue
		}
		return true
	}
	return false
}

type encodedEvent struct {
	proposed    string
	accepted    string
	lastChange  sql.NullString
	attachments string
}

func encodeEvent(event persistence.Event) (encodedEvent, error) {
	proposed, err := encodeSlots(event.ProposedSlots)
	if err != nil {
		return encodedEvent{}, err
	}
	accepted, err := encodeSlots(event.AcceptedSlots)
	if err != nil {
		return encodedEvent{}, err
	}

	var lastChange sql.NullString
	if event.LastStateChange != nil {
		raw, err := json.Marshal(event.LastStateChange)
		if err != nil {
			return encodedEvent{}, fmt.Errorf("sqlite: encode state change: %w", err)
		}
		lastChange = sql.NullString{String: string(raw), Valid: true}
	}

	attachments := event.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	rawAttachments, err := json.Marshal(attachments)
	if err != nil {
		return encodedEvent{}, fmt.Errorf("sqlite: encode attachments: %w", err)
	}

	return encodedEvent{
		proposed:    proposed,
		accepted:    accepted,
		lastChange:  lastChange,
		attachments: string(rawAttachments),
	}, nil
}

func encodeSlots(slots []persistence.TimeSlotRecord) (string, error) {
	if slots == nil {
		slots = []persistence.TimeSlotRecord{}
	}
	raw, err := json.Marshal(slots)
	if err != nil {
		return "", fmt.Errorf("sqlite: encode slots: %w", err)
	}
	return string(raw), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (persistence.Event, error) {
	var event persistence.Event
	var proposedRaw, acceptedRaw, attachmentsRaw string
	var lastChangeRaw sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Discipline,
		&event.OwnerID,
		&event.State,
		&proposedRaw,
		&acceptedRaw,
		&lastChangeRaw,
		&event.StateChangeReason,
		&attachmentsRaw,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Event{}, mapError(err)
	}

	if event.ProposedSlots, err = decodeSlots(proposedRaw); err != nil {
		return persistence.Event{}, err
	}
	if event.AcceptedSlots, err = decodeSlots(acceptedRaw); err != nil {
		return persistence.Event{}, err
	}
	if lastChangeRaw.Valid {
		var change persistence.StateChangeRecord
		if err := json.Unmarshal([]byte(lastChangeRaw.String), &change); err != nil {
			return persistence.Event{}, fmt.Errorf("sqlite: decode state change: %w", err)
		}
		event.LastStateChange = &change
	}
	if err := json.Unmarshal([]byte(attachmentsRaw), &event.Attachments); err != nil {
		return persistence.Event{}, fmt.Errorf("sqlite: decode attachments: %w", err)
	}
	if event.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return persistence.Event{}, fmt.Errorf("sqlite: parse created_at: %w", err)
	}
	if event.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return persistence.Event{}, fmt.Errorf("sqlite: parse updated_at: %w", err)
	}

	return event, nil
}

// decodeSlots validates required slot fields at the deserialization
// boundary instead of trusting stored blobs.
func decodeSlots(raw string) ([]persistence.TimeSlotRecord, error) {
	var slots []persistence.TimeSlotRecord
	if err := json.Unmarshal([]byte(raw), &slots); err != nil {
		return nil, fmt.Errorf("sqlite: decode slots: %w", err)
	}
	for i, slot := range slots {
		if slot.ID == "" {
			return nil, fmt.Errorf("sqlite: decode slots: slot %d missing id", i)
		}
		if slot.Start.IsZero() || slot.End.IsZero() {
			return nil, fmt.Errorf("sqlite: decode slots: slot %q missing bounds", slot.ID)
		}
	}
	return slots, nil
}
