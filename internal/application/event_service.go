package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/lab-booking/internal/booking"
	"github.com/example/lab-booking/internal/layout"
	"github.com/example/lab-booking/internal/persistence"
)

// EventRepository captures the persistence interactions needed by the service.
type EventRepository interface {
	CreateEvent(ctx context.Context, event persistence.Event) error
	UpdateEvent(ctx context.Context, event persistence.Event) error
	GetEvent(ctx context.Context, id string) (persistence.Event, error)
	ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error)
}

// ResourceDirectory exposes the resource lookups the projector needs.
type ResourceDirectory interface {
	ListResources(ctx context.Context) ([]persistence.Resource, error)
}

// EventChange describes an observable mutation handed to the dispatcher.
type EventChange struct {
	EventID        string
	OwnerID        string
	Action         booking.Action
	State          booking.EventState
	DeletedSlotIDs []string
	Timestamp      time.Time
}

// ChangeNotifier receives observable event mutations. Implementations must
// not block the request path; failures are theirs to log.
type ChangeNotifier interface {
	EventChanged(ctx context.Context, change EventChange)
}

// EventService orchestrates validation, the transition controller and
// persistence for calendar events. It decides whether a mutation is
// observable before informing the notifier, so subscribers never see
// no-op saves.
type EventService struct {
	events      EventRepository
	resources   ResourceDirectory
	notifier    ChangeNotifier
	controller  *booking.Controller
	cache       *occupancyCache
	logger      *slog.Logger
	idGenerator func() string
	now         func() time.Time
}

// EventServiceConfig wires dependencies for the event service.
type EventServiceConfig struct {
	Events      EventRepository
	Resources   ResourceDirectory
	Notifier    ChangeNotifier
	Policy      booking.Policy
	Logger      *slog.Logger
	IDGenerator func() string
	Now         func() time.Time
	CacheTTL    time.Duration
}

// NewEventService wires dependencies for event operations.
func NewEventService(cfg EventServiceConfig) *EventService {
	idGenerator := cfg.IDGenerator
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &EventService{
		events:      cfg.Events,
		resources:   cfg.Resources,
		notifier:    cfg.Notifier,
		controller:  booking.NewController(idGenerator, now, cfg.Policy),
		cache:       newOccupancyCache(cfg.CacheTTL, 0, now),
		logger:      defaultLogger(cfg.Logger),
		idGenerator: idGenerator,
		now:         now,
	}
}

// CreateEvent validates the request, routes the initial slot set through
// the reconciler so every slot carries a creation audit entry, and persists
// the event in PENDING awaiting validator review.
func (s *EventService) CreateEvent(ctx context.Context, params CreateEventParams) (Event, error) {
	if s == nil || s.events == nil {
		return Event{}, fmt.Errorf("event service not configured")
	}
	logger := serviceLogger(ctx, s.logger, "event", "create", "user_id", params.Principal.UserID)

	input := params.Input
	vErr := &ValidationError{}
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	validateSlotInputs(input.Slots, vErr)
	if vErr.HasErrors() {
		return Event{}, vErr
	}

	createdAt := s.now()
	reconciled := booking.ReconcileSlots(toDomainSlots(input.Slots), nil, params.Principal.UserID, createdAt, s.idGenerator)

	event := Event{
		CalendarEvent: booking.CalendarEvent{
			ID:            s.idGenerator(),
			Title:         strings.TrimSpace(input.Title),
			Discipline:    input.Discipline,
			OwnerID:       params.Principal.UserID,
			State:         booking.StatePending,
			ProposedSlots: reconciled.Slots,
		},
		Attachments: uniqueStrings(input.Attachments),
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}

	if err := s.events.CreateEvent(ctx, toStoredEvent(event)); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "event creation failed", "error", err, "error_kind", ErrorKind(err))
		return Event{}, err
	}

	s.cache.Invalidate()
	s.dispatch(ctx, EventChange{
		EventID:   event.ID,
		OwnerID:   event.OwnerID,
		Action:    booking.ActionProposeSlots,
		State:     event.State,
		Timestamp: createdAt,
	})
	logger.InfoContext(ctx, "event created", "event_id", event.ID, "slots", len(event.ProposedSlots))
	return event, nil
}

// GetEvent retrieves a single event.
func (s *EventService) GetEvent(ctx context.Context, id string) (Event, error) {
	if s == nil || s.events == nil {
		return Event{}, fmt.Errorf("event service not configured")
	}
	record, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return Event{}, mapRepoError(err)
	}
	return fromStoredEvent(record), nil
}

// ListEvents returns events matching the caller's filter.
func (s *EventService) ListEvents(ctx context.Context, params ListEventsParams) ([]Event, error) {
	if s == nil || s.events == nil {
		return nil, fmt.Errorf("event service not configured")
	}
	filter := persistence.EventFilter{
		OwnerID:      params.OwnerID,
		EndsAfter:    params.From,
		StartsBefore: params.To,
	}
	for _, state := range params.States {
		filter.States = append(filter.States, string(state))
	}

	records, err := s.events.ListEvents(ctx, filter)
	if err != nil {
		return nil, mapRepoError(err)
	}
	events := make([]Event, len(records))
	for i, record := range records {
		events[i] = fromStoredEvent(record)
	}
	return events, nil
}

// ApplyTransition loads the event, applies the lifecycle action through the
// transition controller and persists the result. A transition whose outcome
// is not observable leaves the stored event and its audit trails untouched
// and informs nobody; this signature check is also the only concurrency
// guard between simultaneous writers.
func (s *EventService) ApplyTransition(ctx context.Context, params TransitionParams) (Event, error) {
	if s == nil || s.events == nil {
		return Event{}, fmt.Errorf("event service not configured")
	}
	logger := serviceLogger(ctx, s.logger, "event", "transition",
		"event_id", params.EventID, "action", string(params.Action), "user_id", params.Principal.UserID)

	record, err := s.events.GetEvent(ctx, params.EventID)
	if err != nil {
		return Event{}, mapRepoError(err)
	}
	current := fromStoredEvent(record)

	actor, err := resolveActor(params.Principal, current.CalendarEvent)
	if err != nil {
		logger.WarnContext(ctx, "transition rejected", "error_kind", ErrorKind(err))
		return Event{}, err
	}

	next, outcome, err := s.controller.ApplyTransition(current.CalendarEvent, params.Action, actor, params.Reason, toDomainSlots(params.Slots))
	if err != nil {
		logger.WarnContext(ctx, "transition failed", "error", err)
		return Event{}, err
	}

	sigBefore := booking.Signature(current.CalendarEvent, current.Attachments)
	sigAfter := booking.Signature(next, current.Attachments)
	if !outcome.StateChanged && sigBefore == sigAfter {
		logger.DebugContext(ctx, "transition was a no-op")
		return current, nil
	}

	updated := Event{
		CalendarEvent: next,
		Attachments:   current.Attachments,
		CreatedAt:     current.CreatedAt,
		UpdatedAt:     s.now(),
	}
	if err := s.events.UpdateEvent(ctx, toStoredEvent(updated)); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "transition persistence failed", "error", err, "error_kind", ErrorKind(err))
		return Event{}, err
	}

	s.cache.Invalidate()
	s.dispatch(ctx, EventChange{
		EventID:        updated.ID,
		OwnerID:        updated.OwnerID,
		Action:         params.Action,
		State:          updated.State,
		DeletedSlotIDs: outcome.DeletedSlotIDs,
		Timestamp:      updated.UpdatedAt,
	})
	logger.InfoContext(ctx, "transition applied",
		"state", string(updated.State), "slots_changed", outcome.SlotsChanged, "deleted_slots", len(outcome.DeletedSlotIDs))
	return updated, nil
}

// UpdateEventDetails changes the descriptive fields of an event. Slots and
// state are out of reach here; use ApplyTransition for those. Notification
// follows the signature comparison, so retitling never pings subscribers
// while an attachment change does.
func (s *EventService) UpdateEventDetails(ctx context.Context, principal Principal, eventID string, input EventInput) (Event, error) {
	if s == nil || s.events == nil {
		return Event{}, fmt.Errorf("event service not configured")
	}
	logger := serviceLogger(ctx, s.logger, "event", "update_details", "event_id", eventID, "user_id", principal.UserID)

	record, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return Event{}, mapRepoError(err)
	}
	current := fromStoredEvent(record)

	if principal.UserID != current.OwnerID && !principal.IsValidator {
		return Event{}, ErrUnauthorized
	}

	vErr := &ValidationError{}
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if vErr.HasErrors() {
		return Event{}, vErr
	}

	updated := current
	updated.Title = strings.TrimSpace(input.Title)
	updated.Discipline = input.Discipline
	updated.Attachments = uniqueStrings(input.Attachments)
	updated.UpdatedAt = s.now()

	if err := s.events.UpdateEvent(ctx, toStoredEvent(updated)); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "update persistence failed", "error", err, "error_kind", ErrorKind(err))
		return Event{}, err
	}

	if booking.Signature(current.CalendarEvent, current.Attachments) != booking.Signature(updated.CalendarEvent, updated.Attachments) {
		s.cache.Invalidate()
		s.dispatch(ctx, EventChange{
			EventID:   updated.ID,
			OwnerID:   updated.OwnerID,
			State:     updated.State,
			Timestamp: updated.UpdatedAt,
		})
	}
	logger.InfoContext(ctx, "event details updated")
	return updated, nil
}

// ListOccupancy projects accepted slots inside the window into positioned
// blocks. Cancelled events never occupy the grid; tombstoned slots are
// filtered out with them. Results are cached until the next event mutation.
func (s *EventService) ListOccupancy(ctx context.Context, params OccupancyParams) ([]layout.Placement, error) {
	if s == nil || s.events == nil {
		return nil, fmt.Errorf("event service not configured")
	}
	logger := serviceLogger(ctx, s.logger, "event", "occupancy", "mode", string(params.Mode))

	vErr := &ValidationError{}
	if params.From.IsZero() || params.To.IsZero() {
		vErr.add("window", "from and to are required")
	} else if !params.From.Before(params.To) {
		vErr.add("window", "from must be before to")
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	key := buildOccupancyCacheKey(params)
	if placements, ok := s.cache.Get(key); ok {
		return placements, nil
	}

	records, err := s.events.ListEvents(ctx, persistence.EventFilter{
		EndsAfter:    &params.From,
		StartsBefore: &params.To,
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	var slots []layout.Slot
	for _, record := range records {
		if booking.EventState(record.State) == booking.StateCancelled {
			continue
		}
		for _, slot := range record.AcceptedSlots {
			if booking.SlotStatus(slot.Status) == booking.SlotStatusDeleted {
				continue
			}
			if !slot.End.After(params.From) || !slot.Start.Before(params.To) {
				continue
			}
			slots = append(slots, layout.Slot{
				ID:          slot.ID,
				Start:       slot.Start,
				End:         slot.End,
				ResourceIDs: slot.ResourceIDs,
			})
		}
	}

	namer, err := s.resourceNamer(ctx, params.Mode)
	if err != nil {
		return nil, err
	}

	placements := layout.Project(slots, params.Mode, params.ResourceIDs, namer)
	s.cache.Store(key, placements)
	logger.DebugContext(ctx, "occupancy projected", "slots", len(slots), "placements", len(placements))
	return placements, nil
}

// resourceNamer loads the catalog once per projection so lane ordering
// follows current display names. By-booking mode never needs names.
func (s *EventService) resourceNamer(ctx context.Context, mode layout.Mode) (layout.ResourceNamer, error) {
	if mode != layout.ModeByResource || s.resources == nil {
		return nil, nil
	}
	resources, err := s.resources.ListResources(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	names := make(map[string]string, len(resources))
	for _, resource := range resources {
		names[resource.ID] = resource.Name
	}
	return func(id string) string { return names[id] }, nil
}

func (s *EventService) dispatch(ctx context.Context, change EventChange) {
	if s.notifier == nil {
		return
	}
	s.notifier.EventChanged(ctx, change)
}

// resolveActor maps a principal onto the capability it holds over the
// event. Validators always act with operator capability.
func resolveActor(principal Principal, event booking.CalendarEvent) (booking.Actor, error) {
	if principal.IsValidator {
		return booking.Actor{UserID: principal.UserID, Role: booking.RoleValidator}, nil
	}
	if principal.UserID != "" && principal.UserID == event.OwnerID {
		return booking.Actor{UserID: principal.UserID, Role: booking.RoleOwner}, nil
	}
	return booking.Actor{}, ErrUnauthorized
}

func validateSlotInputs(slots []SlotInput, vErr *ValidationError) {
	for i, slot := range slots {
		switch {
		case slot.Start.IsZero():
			vErr.add(fmt.Sprintf("slots[%d].start", i), "start is required")
		case slot.End.IsZero():
			vErr.add(fmt.Sprintf("slots[%d].end", i), "end is required")
		case !slot.Start.Before(slot.End):
			vErr.add(fmt.Sprintf("slots[%d]", i), "start must be before end")
		}
	}
}

func uniqueStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
