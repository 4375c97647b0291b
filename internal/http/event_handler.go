package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/lab-booking/internal/application"
	"github.com/example/lab-booking/internal/booking"
	"github.com/example/lab-booking/internal/layout"
)

type eventService interface {
	CreateEvent(ctx context.Context, params application.CreateEventParams) (application.Event, error)
	GetEvent(ctx context.Context, id string) (application.Event, error)
	ListEvents(ctx context.Context, params application.ListEventsParams) ([]application.Event, error)
	ApplyTransition(ctx context.Context, params application.TransitionParams) (application.Event, error)
	UpdateEventDetails(ctx context.Context, principal application.Principal, eventID string, input application.EventInput) (application.Event, error)
	ListOccupancy(ctx context.Context, params application.OccupancyParams) ([]layout.Placement, error)
}

type EventHandler struct {
	service   eventService
	responder responder
	logger    *slog.Logger
}

func NewEventHandler(service eventService, logger *slog.Logger) *EventHandler {
	base := defaultLogger(logger)
	return &EventHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	event, err := h.service.CreateEvent(r.Context(), application.CreateEventParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, eventResponse{Event: toEventDTO(event)})
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	event, err := h.service.GetEvent(r.Context(), eventID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventResponse{Event: toEventDTO(event)})
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params := buildListEventsParams(r.URL.Query(), principal)

	events, err := h.service.ListEvents(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEventsResponse{Events: toEventDTOs(events)})
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	event, err := h.service.UpdateEventDetails(r.Context(), principal, eventID, req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventResponse{Event: toEventDTO(event)})
}

// Transition applies one lifecycle action. The slot payload is optional:
// absent means the action carries no slot change, while an explicit empty
// array proposes clearing the schedule.
func (h *EventHandler) Transition(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var slots []application.SlotInput
	if req.Slots != nil {
		slots = make([]application.SlotInput, 0, len(*req.Slots))
		for _, slot := range *req.Slots {
			slots = append(slots, slot.toInput())
		}
	}

	event, err := h.service.ApplyTransition(r.Context(), application.TransitionParams{
		Principal: principal,
		EventID:   eventID,
		Action:    booking.Action(strings.TrimSpace(req.Action)),
		Reason:    strings.TrimSpace(req.Reason),
		Slots:     slots,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventResponse{Event: toEventDTO(event)})
}

func (h *EventHandler) Occupancy(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	mode := layout.ModeByBooking
	if query.Get("mode") == string(layout.ModeByResource) {
		mode = layout.ModeByResource
	}

	placements, err := h.service.ListOccupancy(r.Context(), application.OccupancyParams{
		Principal:   principal,
		From:        parseTime(query.Get("from")),
		To:          parseTime(query.Get("to")),
		Mode:        mode,
		ResourceIDs: parseCSV(query.Get("resources")),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, occupancyResponse{Blocks: toPlacementDTOs(placements)})
}

type eventRequest struct {
	Title       string        `json:"title"`
	Discipline  string        `json:"discipline"`
	Slots       []slotRequest `json:"slots"`
	Attachments []string      `json:"attachments"`
}

func (r eventRequest) toInput() application.EventInput {
	slots := make([]application.SlotInput, 0, len(r.Slots))
	for _, slot := range r.Slots {
		slots = append(slots, slot.toInput())
	}
	return application.EventInput{
		Title:       strings.TrimSpace(r.Title),
		Discipline:  strings.TrimSpace(r.Discipline),
		Slots:       slots,
		Attachments: append([]string(nil), r.Attachments...),
	}
}

type slotRequest struct {
	ID          string   `json:"id"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	ResourceIDs []string `json:"resource_ids"`
	GroupIDs    []string `json:"group_ids"`
	Note        string   `json:"note"`
}

func (r slotRequest) toInput() application.SlotInput {
	return application.SlotInput{
		ID:          strings.TrimSpace(r.ID),
		Start:       parseTime(r.Start),
		End:         parseTime(r.End),
		ResourceIDs: append([]string(nil), r.ResourceIDs...),
		GroupIDs:    append([]string(nil), r.GroupIDs...),
		Note:        r.Note,
	}
}

// Slots is a pointer so handlers can distinguish "no slot payload" from
// "propose an empty slot set".
type transitionRequest struct {
	Action string         `json:"action"`
	Reason string         `json:"reason"`
	Slots  *[]slotRequest `json:"slots"`
}

type eventResponse struct {
	Event eventDTO `json:"event"`
}

type listEventsResponse struct {
	Events []eventDTO `json:"events"`
}

type eventDTO struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Discipline        string          `json:"discipline,omitempty"`
	OwnerID           string          `json:"owner_id"`
	State             string          `json:"state"`
	ValidationState   string          `json:"validation_state"`
	ProposedSlots     []slotDTO       `json:"proposed_slots"`
	AcceptedSlots     []slotDTO       `json:"accepted_slots"`
	LastStateChange   *stateChangeDTO `json:"last_state_change,omitempty"`
	StateChangeReason string          `json:"state_change_reason,omitempty"`
	Attachments       []string        `json:"attachments,omitempty"`
	CreatedAt         string          `json:"created_at"`
	UpdatedAt         string          `json:"updated_at"`
}

type slotDTO struct {
	ID          string          `json:"id"`
	Start       string          `json:"start"`
	End         string          `json:"end"`
	Status      string          `json:"status"`
	ResourceIDs []string        `json:"resource_ids,omitempty"`
	GroupIDs    []string        `json:"group_ids,omitempty"`
	Note        string          `json:"note,omitempty"`
	CreatedBy   string          `json:"created_by"`
	ModifiedBy  []auditEntryDTO `json:"modified_by"`
}

type auditEntryDTO struct {
	UserID    string `json:"user_id"`
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
}

type stateChangeDTO struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Timestamp string `json:"timestamp"`
	UserID    string `json:"user_id"`
	Reason    string `json:"reason,omitempty"`
}

func toEventDTO(event application.Event) eventDTO {
	dto := eventDTO{
		ID:                event.ID,
		Title:             event.Title,
		Discipline:        event.Discipline,
		OwnerID:           event.OwnerID,
		State:             string(event.State),
		ValidationState:   string(event.ValidationState()),
		ProposedSlots:     toSlotDTOs(event.ProposedSlots),
		AcceptedSlots:     toSlotDTOs(event.AcceptedSlots),
		StateChangeReason: event.StateChangeReason,
		Attachments:       append([]string(nil), event.Attachments...),
		CreatedAt:         event.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:         event.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if event.LastStateChange != nil {
		dto.LastStateChange = &stateChangeDTO{
			From:      string(event.LastStateChange.From),
			To:        string(event.LastStateChange.To),
			Timestamp: event.LastStateChange.Timestamp.UTC().Format(time.RFC3339Nano),
			UserID:    event.LastStateChange.UserID,
			Reason:    event.LastStateChange.Reason,
		}
	}
	return dto
}

func toEventDTOs(events []application.Event) []eventDTO {
	if len(events) == 0 {
		return nil
	}
	out := make([]eventDTO, 0, len(events))
	for _, event := range events {
		out = append(out, toEventDTO(event))
	}
	return out
}

func toSlotDTOs(slots []booking.TimeSlot) []slotDTO {
	out := make([]slotDTO, 0, len(slots))
	for _, slot := range slots {
		entries := make([]auditEntryDTO, 0, len(slot.ModifiedBy))
		for _, entry := range slot.ModifiedBy {
			entries = append(entries, auditEntryDTO{
				UserID:    entry.UserID,
				Timestamp: entry.Timestamp.UTC().Format(time.RFC3339Nano),
				Action:    string(entry.Action),
			})
		}
		out = append(out, slotDTO{
			ID:          slot.ID,
			Start:       slot.Start.UTC().Format(time.RFC3339Nano),
			End:         slot.End.UTC().Format(time.RFC3339Nano),
			Status:      string(slot.Status),
			ResourceIDs: append([]string(nil), slot.ResourceIDs...),
			GroupIDs:    append([]string(nil), slot.GroupIDs...),
			Note:        slot.Note,
			CreatedBy:   slot.CreatedBy,
			ModifiedBy:  entries,
		})
	}
	return out
}

type occupancyResponse struct {
	Blocks []placementDTO `json:"blocks"`
}

type placementDTO struct {
	SlotID         string `json:"slot_id"`
	Col            int    `json:"col"`
	Cols           int    `json:"cols"`
	LaneResourceID string `json:"lane_resource_id,omitempty"`
}

func toPlacementDTOs(placements []layout.Placement) []placementDTO {
	if len(placements) == 0 {
		return nil
	}
	out := make([]placementDTO, 0, len(placements))
	for _, placement := range placements {
		out = append(out, placementDTO{
			SlotID:         placement.ItemID,
			Col:            placement.Col,
			Cols:           placement.Cols,
			LaneResourceID: placement.LaneResourceID,
		})
	}
	return out
}

func buildListEventsParams(values url.Values, principal application.Principal) application.ListEventsParams {
	params := application.ListEventsParams{Principal: principal}

	if owner := strings.TrimSpace(values.Get("owner")); owner != "" {
		params.OwnerID = owner
	}
	for _, state := range parseCSV(values.Get("states")) {
		params.States = append(params.States, booking.EventState(state))
	}
	if from := parseTime(values.Get("from")); !from.IsZero() {
		params.From = &from
	}
	if to := parseTime(values.Get("to")); !to.IsZero() {
		params.To = &to
	}
	return params
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}

func parseCSV(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
