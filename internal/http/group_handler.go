package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/lab-booking/internal/application"
)

type groupService interface {
	CreateGroup(ctx context.Context, principal application.Principal, input application.GroupInput) (application.Group, error)
	GetGroup(ctx context.Context, id string) (application.Group, error)
	ListGroups(ctx context.Context) ([]application.Group, error)
	DeleteGroup(ctx context.Context, principal application.Principal, id string) error
}

type GroupHandler struct {
	service   groupService
	responder responder
}

func NewGroupHandler(service groupService, logger *slog.Logger) *GroupHandler {
	return &GroupHandler{service: service, responder: newResponder(defaultLogger(logger))}
}

func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req groupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	group, err := h.service.CreateGroup(r.Context(), principal, application.GroupInput{Name: strings.TrimSpace(req.Name)})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, groupResponse{Group: toGroupDTO(group)})
}

func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	groupID, ok := GroupIDFromContext(r.Context())
	if !ok || strings.TrimSpace(groupID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidGroupID)
		return
	}

	group, err := h.service.GetGroup(r.Context(), groupID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, groupResponse{Group: toGroupDTO(group)})
}

func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	groups, err := h.service.ListGroups(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]groupDTO, 0, len(groups))
	for _, group := range groups {
		dtos = append(dtos, toGroupDTO(group))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listGroupsResponse{Groups: dtos})
}

func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	groupID, ok := GroupIDFromContext(r.Context())
	if !ok || strings.TrimSpace(groupID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidGroupID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteGroup(r.Context(), principal, groupID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type groupRequest struct {
	Name string `json:"name"`
}

type groupResponse struct {
	Group groupDTO `json:"group"`
}

type listGroupsResponse struct {
	Groups []groupDTO `json:"groups"`
}

type groupDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toGroupDTO(group application.Group) groupDTO {
	return groupDTO{
		ID:        group.ID,
		Name:      group.Name,
		CreatedAt: group.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: group.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}
