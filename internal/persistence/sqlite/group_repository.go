package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/example/lab-booking/internal/persistence"
)

// GroupRepository implements persistence.GroupRepository on SQLite.
type GroupRepository struct {
	pool *ConnectionPool
}

// NewGroupRepository creates a group repository on the shared pool.
func NewGroupRepository(pool *ConnectionPool) *GroupRepository {
	return &GroupRepository{pool: pool}
}

// CreateGroup inserts a new class group.
func (r *GroupRepository) CreateGroup(ctx context.Context, group persistence.Group) error {
	if group.ID == "" {
		return persistence.ErrConstraintViolation
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.pool.db.ExecContext(ctx,
		"INSERT INTO groups (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)",
		group.ID, group.Name, now, now)
	return mapError(err)
}

// GetGroup retrieves a group by id.
func (r *GroupRepository) GetGroup(ctx context.Context, id string) (persistence.Group, error) {
	if id == "" {
		return persistence.Group{}, persistence.ErrNotFound
	}
	var group persistence.Group
	var createdAt, updatedAt string
	err := r.pool.db.QueryRowContext(ctx,
		"SELECT id, name, created_at, updated_at FROM groups WHERE id = ?", id).
		Scan(&group.ID, &group.Name, &createdAt, &updatedAt)
	if err != nil {
		return persistence.Group{}, mapError(err)
	}
	if group.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return persistence.Group{}, fmt.Errorf("sqlite: parse created_at: %w", err)
	}
	if group.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return persistence.Group{}, fmt.Errorf("sqlite: parse updated_at: %w", err)
	}
	return group, nil
}

// ListGroups returns all groups ordered by name, ids breaking ties.
func (r *GroupRepository) ListGroups(ctx context.Context) ([]persistence.Group, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		"SELECT id, name, created_at, updated_at FROM groups ORDER BY name ASC, id ASC")
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var groups []persistence.Group
	for rows.Next() {
		var group persistence.Group
		var createdAt, updatedAt string
		if err := rows.Scan(&group.ID, &group.Name, &createdAt, &updatedAt); err != nil {
			return nil, mapError(err)
		}
		if group.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: parse created_at: %w", err)
		}
		if group.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: parse updated_at: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return groups, nil
}

// DeleteGroup removes a group by id.
func (r *GroupRepository) DeleteGroup(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	result, err := r.pool.db.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", id)
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
