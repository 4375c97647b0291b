package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/lab-booking/internal/persistence"
)

// GroupRepository captures the persistence interactions for class groups.
type GroupRepository interface {
	CreateGroup(ctx context.Context, group persistence.Group) error
	GetGroup(ctx context.Context, id string) (persistence.Group, error)
	ListGroups(ctx context.Context) ([]persistence.Group, error)
	DeleteGroup(ctx context.Context, id string) error
}

// GroupService manages the catalog of class groups slots can be assigned
// to. Writes require the validator capability.
type GroupService struct {
	groups      GroupRepository
	logger      *slog.Logger
	idGenerator func() string
}

// NewGroupService wires dependencies for group operations.
func NewGroupService(groups GroupRepository, logger *slog.Logger, idGenerator func() string) *GroupService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	return &GroupService{groups: groups, logger: defaultLogger(logger), idGenerator: idGenerator}
}

// CreateGroup adds a class group.
func (s *GroupService) CreateGroup(ctx context.Context, principal Principal, input GroupInput) (Group, error) {
	if s == nil || s.groups == nil {
		return Group{}, fmt.Errorf("group service not configured")
	}
	if !principal.IsValidator {
		return Group{}, ErrUnauthorized
	}
	if strings.TrimSpace(input.Name) == "" {
		vErr := &ValidationError{}
		vErr.add("name", "name is required")
		return Group{}, vErr
	}

	record := persistence.Group{ID: s.idGenerator(), Name: strings.TrimSpace(input.Name)}
	if err := s.groups.CreateGroup(ctx, record); err != nil {
		err = mapRepoError(err)
		serviceLogger(ctx, s.logger, "group", "create").ErrorContext(ctx, "group creation failed", "error", err, "error_kind", ErrorKind(err))
		return Group{}, err
	}
	return s.getGroup(ctx, record.ID)
}

// GetGroup retrieves a class group.
func (s *GroupService) GetGroup(ctx context.Context, id string) (Group, error) {
	if s == nil || s.groups == nil {
		return Group{}, fmt.Errorf("group service not configured")
	}
	return s.getGroup(ctx, id)
}

// ListGroups returns all class groups ordered by name.
func (s *GroupService) ListGroups(ctx context.Context) ([]Group, error) {
	if s == nil || s.groups == nil {
		return nil, fmt.Errorf("group service not configured")
	}
	records, err := s.groups.ListGroups(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	groups := make([]Group, len(records))
	for i, record := range records {
		groups[i] = Group{ID: record.ID, Name: record.Name, CreatedAt: record.CreatedAt, UpdatedAt: record.UpdatedAt}
	}
	return groups, nil
}

// DeleteGroup removes a class group.
func (s *GroupService) DeleteGroup(ctx context.Context, principal Principal, id string) error {
	if s == nil || s.groups == nil {
		return fmt.Errorf("group service not configured")
	}
	if !principal.IsValidator {
		return ErrUnauthorized
	}
	if err := s.groups.DeleteGroup(ctx, id); err != nil {
		return mapRepoError(err)
	}
	return nil
}

func (s *GroupService) getGroup(ctx context.Context, id string) (Group, error) {
	record, err := s.groups.GetGroup(ctx, id)
	if err != nil {
		return Group{}, mapRepoError(err)
	}
	return Group{ID: record.ID, Name: record.Name, CreatedAt: record.CreatedAt, UpdatedAt: record.UpdatedAt}, nil
}
