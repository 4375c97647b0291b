package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/example/lab-booking/internal/persistence"
)

// ResourceRepository implements persistence.ResourceRepository on SQLite.
type ResourceRepository struct {
	pool *ConnectionPool
}

// NewResourceRepository creates a resource repository on the shared pool.
func NewResourceRepository(pool *ConnectionPool) *ResourceRepository {
	return &ResourceRepository{pool: pool}
}

// CreateResource inserts a new resource catalog entry.
func (r *ResourceRepository) CreateResource(ctx context.Context, resource persistence.Resource) error {
	if resource.ID == "" {
		return persistence.ErrConstraintViolation
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.pool.db.ExecContext(ctx,
		"INSERT INTO resources (id, name, location, capacity, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		resource.ID, resource.Name, resource.Location, resource.Capacity, now, now)
	return mapError(err)
}

// UpdateResource overwrites an existing resource.
func (r *ResourceRepository) UpdateResource(ctx context.Context, resource persistence.Resource) error {
	result, err := r.pool.db.ExecContext(ctx,
		"UPDATE resources SET name = ?, location = ?, capacity = ?, updated_at = ? WHERE id = ?",
		resource.Name, resource.Location, resource.Capacity, time.Now().UTC().Format(time.RFC3339), resource.ID)
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

// GetResource retrieves a resource by id.
func (r *ResourceRepository) GetResource(ctx context.Context, id string) (persistence.Resource, error) {
	if id == "" {
		return persistence.Resource{}, persistence.ErrNotFound
	}
	var resource persistence.Resource
	var createdAt, updatedAt string
	err := r.pool.db.QueryRowContext(ctx,
		"SELECT id, name, location, capacity, created_at, updated_at FROM resources WHERE id = ?", id).
		Scan(&resource.ID, &resource.Name, &resource.Location, &resource.Capacity, &createdAt, &updatedAt)
	if err != nil {
		return persistence.Resource{}, mapError(err)
	}
	if resource.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return persistence.Resource{}, fmt.Errorf("sqlite: parse created_at: %w", err)
	}
	if resource.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return persistence.Resource{}, fmt.Errorf("sqlite: parse updated_at: %w", err)
	}
	return resource, nil
}

// ListResources returns all resources ordered by name, ids breaking ties.
func (r *ResourceRepository) ListResources(ctx context.Context) ([]persistence.Resource, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		"SELECT id, name, location, capacity, created_at, updated_at FROM resources ORDER BY name ASC, id ASC")
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var resources []persistence.Resource
	for rows.Next() {
		var resource persistence.Resource
		var createdAt, updatedAt string
		if err := rows.Scan(&resource.ID, &resource.Name, &resource.Location, &resource.Capacity, &createdAt, &updatedAt); err != nil {
			return nil, mapError(err)
		}
		if resource.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: parse created_at: %w", err)
		}
		if resource.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: parse updated_at: %w", err)
		}
		resources = append(resources, resource)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return resources, nil
}

// DeleteResource removes a resource from the catalog. Events keep their
// slot assignments; the occupancy projector simply falls back to a
// placeholder lane name for unknown ids.
func (r *ResourceRepository) DeleteResource(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	result, err := r.pool.db.ExecContext(ctx, "DELETE FROM resources WHERE id = ?", id)
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
