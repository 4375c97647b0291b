package persistence

import "time"

// AuditRecord is the stored form of one slot audit entry. The JSON tags
// define the column encoding for the slot blobs on the events table.
type AuditRecord struct {
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
}

// TimeSlotRecord is the stored form of a booked time slot.
type TimeSlotRecord struct {
	ID          string        `json:"id"`
	Start       time.Time     `json:"start"`
	End         time.Time     `json:"end"`
	Status      string        `json:"status"`
	ResourceIDs []string      `json:"resourceIds"`
	GroupIDs    []string      `json:"groupIds"`
	Note        string        `json:"note,omitempty"`
	CreatedBy   string        `json:"createdBy"`
	ModifiedBy  []AuditRecord `json:"modifiedBy"`
}

// StateChangeRecord is the stored form of the most recent transition.
type StateChangeRecord struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"userId"`
	Reason    string    `json:"reason,omitempty"`
}

// Event is a calendar event as stored. Slot sets and the last state change
// persist as JSON-encoded columns; the application layer treats them as
// plain data regardless of the storage encoding.
type Event struct {
	ID                string
	Title             string
	Discipline        string
	OwnerID           string
	State             string
	ProposedSlots     []TimeSlotRecord
	AcceptedSlots     []TimeSlotRecord
	LastStateChange   *StateChangeRecord
	StateChangeReason string
	Attachments       []string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Resource is a bookable room or instrument catalog entry.
type Resource struct {
	ID        string
	Name      string
	Location  string
	Capacity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Group is a class group that slots can be assigned to.
type Group struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// User is an account in the booking system.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	IsValidator  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session is an authentication session persisted for a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}
