package application

import (
	"time"

	"github.com/example/lab-booking/internal/booking"
	"github.com/example/lab-booking/internal/layout"
)

// Principal represents the authenticated user invoking a service method.
// Validators hold the operator capability over every event; owners only
// over their own.
type Principal struct {
	UserID      string
	IsValidator bool
}

// SlotInput captures one caller provided time slot. An empty ID marks a
// newly added slot; a populated ID addresses an existing one.
type SlotInput struct {
	ID          string
	Start       time.Time
	End         time.Time
	ResourceIDs []string
	GroupIDs    []string
	Note        string
}

// EventInput captures caller provided event fields.
type EventInput struct {
	Title       string
	Discipline  string
	Slots       []SlotInput
	Attachments []string
}

// Event is a calendar event as exposed by the application services,
// enriched with persistence metadata the domain model does not carry.
type Event struct {
	booking.CalendarEvent
	Attachments []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateEventParams wraps the data required to create an event.
type CreateEventParams struct {
	Principal Principal
	Input     EventInput
}

// TransitionParams wraps the data required to apply a lifecycle transition.
// Slots is nil when the action carries no slot payload; an empty non-nil
// set proposes clearing the schedule.
type TransitionParams struct {
	Principal Principal
	EventID   string
	Action    booking.Action
	Reason    string
	Slots     []SlotInput
}

// ListEventsParams wraps the data required to list events.
type ListEventsParams struct {
	Principal Principal
	OwnerID   string
	States    []booking.EventState
	From      *time.Time
	To        *time.Time
}

// OccupancyParams wraps the data required to project occupancy blocks.
type OccupancyParams struct {
	Principal   Principal
	From        time.Time
	To          time.Time
	Mode        layout.Mode
	ResourceIDs []string
}

// ResourceInput captures caller provided resource fields.
type ResourceInput struct {
	Name     string
	Location string
	Capacity int
}

// Resource represents a bookable room or instrument.
type Resource struct {
	ID        string
	Name      string
	Location  string
	Capacity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GroupInput captures caller provided class group fields.
type GroupInput struct {
	Name string
}

// Group represents a class group assignable to slots.
type Group struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserInput captures caller provided user attributes.
type UserInput struct {
	Email       string
	DisplayName string
	Password    string
	IsValidator bool
}

// User represents an account exposed by the application services.
type User struct {
	ID          string
	Email       string
	DisplayName string
	IsValidator bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// LoginParams captures the data required to authenticate a user.
type LoginParams struct {
	Email    string
	Password string
}

// LoginResult captures the outcome of a successful authentication attempt.
type LoginResult struct {
	User    User
	Session Session
}
