package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"zbx-import/internal/domain"
)

// Resolver resolves group and template names against the store.
type Resolver struct {
	db *sql.DB
}

// NewResolver creates a Resolver on db.
func NewResolver(db *sql.DB) *Resolver {
	return &Resolver{db: db}
}

var _ domain.ReferenceResolver = (*Resolver)(nil)

// ResolveGroupID implements domain.ReferenceResolver.
func (r *Resolver) ResolveGroupID(ctx context.Context, name domain.GroupName) (domain.GroupID, bool, error) {
	id, ok, err := lookupID(ctx, r.db, `SELECT id FROM host_groups WHERE name = ?`, string(name))
	if err != nil {
		return "", false, fmt.Errorf("lookup host group: %w", err)
	}
	return domain.GroupID(id), ok, nil
}

// ResolveTemplateID implements domain.ReferenceResolver.
func (r *Resolver) ResolveTemplateID(ctx context.Context, name domain.TemplateName) (domain.TemplateID, bool, error) {
	id, ok, err := lookupID(ctx, r.db, `SELECT id FROM templates WHERE host = ?`, string(name))
	if err != nil {
		return "", false, fmt.Errorf("lookup template: %w", err)
	}
	return domain.TemplateID(id), ok, nil
}

func lookupID(ctx context.Context, q querier, query, name string) (string, bool, error) {
	var id int64
	err := q.QueryRowContext(ctx, query, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return formatID(id), true, nil
}
