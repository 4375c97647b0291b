package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/lab-booking/internal/persistence"
)

// ResourceRepository captures the persistence interactions for the catalog.
type ResourceRepository interface {
	CreateResource(ctx context.Context, resource persistence.Resource) error
	UpdateResource(ctx context.Context, resource persistence.Resource) error
	GetResource(ctx context.Context, id string) (persistence.Resource, error)
	ListResources(ctx context.Context) ([]persistence.Resource, error)
	DeleteResource(ctx context.Context, id string) error
}

// ResourceService manages the catalog of bookable rooms and instruments.
// Reads are open to any authenticated user; writes require the validator
// capability.
type ResourceService struct {
	resources   ResourceRepository
	logger      *slog.Logger
	idGenerator func() string
}

// NewResourceService wires dependencies for catalog operations.
func NewResourceService(resources ResourceRepository, logger *slog.Logger, idGenerator func() string) *ResourceService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	return &ResourceService{resources: resources, logger: defaultLogger(logger), idGenerator: idGenerator}
}

// CreateResource adds a catalog entry.
func (s *ResourceService) CreateResource(ctx context.Context, principal Principal, input ResourceInput) (Resource, error) {
	if s == nil || s.resources == nil {
		return Resource{}, fmt.Errorf("resource service not configured")
	}
	if !principal.IsValidator {
		return Resource{}, ErrUnauthorized
	}
	if err := validateResourceInput(input); err != nil {
		return Resource{}, err
	}

	record := persistence.Resource{
		ID:       s.idGenerator(),
		Name:     strings.TrimSpace(input.Name),
		Location: strings.TrimSpace(input.Location),
		Capacity: input.Capacity,
	}
	if err := s.resources.CreateResource(ctx, record); err != nil {
		err = mapRepoError(err)
		serviceLogger(ctx, s.logger, "resource", "create").ErrorContext(ctx, "resource creation failed", "error", err, "error_kind", ErrorKind(err))
		return Resource{}, err
	}
	return s.getResource(ctx, record.ID)
}

// UpdateResource overwrites a catalog entry.
func (s *ResourceService) UpdateResource(ctx context.Context, principal Principal, id string, input ResourceInput) (Resource, error) {
	if s == nil || s.resources == nil {
		return Resource{}, fmt.Errorf("resource service not configured")
	}
	if !principal.IsValidator {
		return Resource{}, ErrUnauthorized
	}
	if err := validateResourceInput(input); err != nil {
		return Resource{}, err
	}

	record := persistence.Resource{
		ID:       id,
		Name:     strings.TrimSpace(input.Name),
		Location: strings.TrimSpace(input.Location),
		Capacity: input.Capacity,
	}
	if err := s.resources.UpdateResource(ctx, record); err != nil {
		return Resource{}, mapRepoError(err)
	}
	return s.getResource(ctx, id)
}

// GetResource retrieves a catalog entry.
func (s *ResourceService) GetResource(ctx context.Context, id string) (Resource, error) {
	if s == nil || s.resources == nil {
		return Resource{}, fmt.Errorf("resource service not configured")
	}
	return s.getResource(ctx, id)
}

// ListResources returns the catalog ordered by display name.
func (s *ResourceService) ListResources(ctx context.Context) ([]Resource, error) {
	if s == nil || s.resources == nil {
		return nil, fmt.Errorf("resource service not configured")
	}
	records, err := s.resources.ListResources(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	resources := make([]Resource, len(records))
	for i, record := range records {
		resources[i] = fromStoredResource(record)
	}
	return resources, nil
}

// DeleteResource removes a catalog entry. Slots keep referencing the id;
// occupancy lanes fall back to a placeholder name from then on.
func (s *ResourceService) DeleteResource(ctx context.Context, principal Principal, id string) error {
	if s == nil || s.resources == nil {
		return fmt.Errorf("resource service not configured")
	}
	if !principal.IsValidator {
		return ErrUnauthorized
	}
	if err := s.resources.DeleteResource(ctx, id); err != nil {
		return mapRepoError(err)
	}
	serviceLogger(ctx, s.logger, "resource", "delete").InfoContext(ctx, "resource deleted", "resource_id", id)
	return nil
}

func (s *ResourceService) getResource(ctx context.Context, id string) (Resource, error) {
	record, err := s.resources.GetResource(ctx, id)
	if err != nil {
		return Resource{}, mapRepoError(err)
	}
	return fromStoredResource(record), nil
}

func fromStoredResource(record persistence.Resource) Resource {
	return Resource{
		ID:        record.ID,
		Name:      record.Name,
		Location:  record.Location,
		Capacity:  record.Capacity,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}

func validateResourceInput(input ResourceInput) error {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if input.Capacity < 0 {
		vErr.add("capacity", "capacity must not be negative")
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}
