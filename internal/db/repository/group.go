package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"zbx-import/internal/domain"
)

// GroupRepo stores host groups.
type GroupRepo struct {
	db *sql.DB
}

// NewGroupRepo creates a GroupRepo on db.
func NewGroupRepo(db *sql.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

var _ domain.GroupRepository = (*GroupRepo)(nil)

// Create adds a host group. An existing name is a ConflictError.
func (r *GroupRepo) Create(ctx context.Context, name domain.GroupName) (*domain.HostGroup, error) {
	if name == "" {
		return nil, domain.ErrValidation("host group name is required")
	}
	var (
		id        int64
		createdAt string
	)
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO host_groups (name) VALUES (?) RETURNING id, created_at`, string(name),
	).Scan(&id, &createdAt)
	if err != nil {
		var conflict *domain.ConflictError
		if err := mapDBError(err); errors.As(err, &conflict) {
			return nil, domain.ErrConflict("host group %q already exists", name)
		}
		return nil, fmt.Errorf("insert host group: %w", err)
	}
	return &domain.HostGroup{ID: domain.GroupID(formatID(id)), Name: name, CreatedAt: parseTime(createdAt)}, nil
}

// GetByName returns the host group called name.
func (r *GroupRepo) GetByName(ctx context.Context, name domain.GroupName) (*domain.HostGroup, error) {
	var (
		id        int64
		createdAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, created_at FROM host_groups WHERE name = ?`, string(name),
	).Scan(&id, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("host group %q not found", name)
	}
	if err != nil {
		return nil, mapDBError(err)
	}
	return &domain.HostGroup{ID: domain.GroupID(formatID(id)), Name: name, CreatedAt: parseTime(createdAt)}, nil
}

// List returns every host group ordered by name.
func (r *GroupRepo) List(ctx context.Context) ([]domain.HostGroup, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, created_at FROM host_groups ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list host groups: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	out := []domain.HostGroup{}
	for rows.Next() {
		var (
			id              int64
			name, createdAt string
		)
		if err := rows.Scan(&id, &name, &createdAt); err != nil {
			return nil, err
		}
		out = append(out, domain.HostGroup{ID: domain.GroupID(formatID(id)), Name: domain.GroupName(name), CreatedAt: parseTime(createdAt)})
	}
	return out, rows.Err()
}
