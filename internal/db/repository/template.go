package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"zbx-import/internal/domain"
)

// TemplateRepo stores templates with their groups, parents and macros. Every
// batch runs in one transaction, so a failing record leaves the store
// unchanged.
type TemplateRepo struct {
	db *sql.DB
}

// NewTemplateRepo creates a TemplateRepo on db.
func NewTemplateRepo(db *sql.DB) *TemplateRepo {
	return &TemplateRepo{db: db}
}

var _ domain.TemplateRepository = (*TemplateRepo)(nil)

// CreateTemplates inserts batch and returns the new ids in batch order.
func (r *TemplateRepo) CreateTemplates(ctx context.Context, batch []domain.TemplateRecord) ([]domain.TemplateID, error) {
	ids := make([]domain.TemplateID, 0, len(batch))
	err := withTx(ctx, r.db, "create templates", func(tx *sql.Tx) error {
		for _, rec := range batch {
			var id int64
			err := tx.QueryRowContext(ctx,
				`INSERT INTO templates (host, name, description) VALUES (?, ?, ?) RETURNING id`,
				string(rec.Name), visibleName(rec), rec.Description,
			).Scan(&id)
			if err != nil {
				return recordError(rec, err)
			}
			if err := writeLinks(ctx, tx, id, rec); err != nil {
				return err
			}
			ids = append(ids, domain.TemplateID(formatID(id)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// UpdateTemplates rewrites the templates identified by each record's ID. The
// groups and macros of a record replace the stored ones; parents are replaced
// only when the record has LinkParents set.
func (r *TemplateRepo) UpdateTemplates(ctx context.Context, batch []domain.TemplateRecord) error {
	return withTx(ctx, r.db, "update templates", func(tx *sql.Tx) error {
		for _, rec := range batch {
			id, err := parseID("template", string(rec.ID))
			if err != nil {
				return err
			}
			res, err := tx.ExecContext(ctx,
				`UPDATE templates
				    SET host = ?, name = ?, description = ?,
				        updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
				  WHERE id = ?`,
				string(rec.Name), visibleName(rec), rec.Description, id)
			if err != nil {
				return recordError(rec, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return domain.ErrNotFound("template %s not found", rec.ID)
			}
			stmts := []string{
				`DELETE FROM template_groups WHERE template_id = ?`,
				`DELETE FROM template_macros WHERE template_id = ?`,
			}
			if rec.LinkParents {
				stmts = append(stmts, `DELETE FROM template_parents WHERE template_id = ?`)
			}
			for _, stmt := range stmts {
				if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
					return fmt.Errorf("clear links of template %q: %w", rec.Name, err)
				}
			}
			if err := writeLinks(ctx, tx, id, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByName returns the stored template with technical name name.
func (r *TemplateRepo) GetByName(ctx context.Context, name domain.TemplateName) (*domain.Template, error) {
	var (
		id                   int64
		t                    domain.Template
		createdAt, updatedAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, host, name, description, created_at, updated_at FROM templates WHERE host = ?`, string(name),
	).Scan(&id, &t.Name, &t.VisibleName, &t.Description, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("template %q not found", name)
	}
	if err != nil {
		return nil, mapDBError(err)
	}
	t.ID = domain.TemplateID(formatID(id))
	t.CreatedAt, t.UpdatedAt = parseTime(createdAt), parseTime(updatedAt)

	if err := loadLinks(ctx, r.db, id, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns every stored template ordered by technical name.
func (r *TemplateRepo) List(ctx context.Context) ([]domain.Template, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, host, name, description, created_at, updated_at FROM templates ORDER BY host`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	var (
		out []domain.Template
		ids []int64
	)
	for rows.Next() {
		var (
			id                   int64
			t                    domain.Template
			createdAt, updatedAt string
		)
		if err := rows.Scan(&id, &t.Name, &t.VisibleName, &t.Description, &createdAt, &updatedAt); err != nil {
			_ = rows.Close()
			return nil, err
		}
		t.ID = domain.TemplateID(formatID(id))
		t.CreatedAt, t.UpdatedAt = parseTime(createdAt), parseTime(updatedAt)
		out = append(out, t)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	for i := range out {
		if err := loadLinks(ctx, r.db, ids[i], &out[i]); err != nil {
			return nil, err
		}
	}
	if out == nil {
		out = []domain.Template{}
	}
	return out, nil
}

func visibleName(rec domain.TemplateRecord) string {
	if rec.VisibleName == "" {
		return string(rec.Name)
	}
	return rec.VisibleName
}

func recordError(rec domain.TemplateRecord, err error) error {
	err = mapDBError(err)
	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		return domain.ErrConflict("template %q already exists", rec.Name)
	}
	return fmt.Errorf("write template %q: %w", rec.Name, err)
}

func writeLinks(ctx context.Context, tx *sql.Tx, id int64, rec domain.TemplateRecord) error {
	for _, gid := range rec.GroupIDs {
		groupID, err := parseID("host group", string(gid))
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO template_groups (template_id, group_id) VALUES (?, ?)`, id, groupID); err != nil {
			return linkError(rec, "host group", string(gid), err)
		}
	}
	if !rec.LinkParents {
		return writeMacros(ctx, tx, id, rec)
	}
	for pos, pid := range rec.ParentIDs {
		parentID, err := parseID("template", string(pid))
		if err != nil {
			return err
		}
		if parentID == id {
			return domain.ErrValidation("template %q cannot link to itself", rec.Name)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO template_parents (template_id, parent_id, position) VALUES (?, ?, ?)`, id, parentID, pos); err != nil {
			return linkError(rec, "parent template", string(pid), err)
		}
	}
	return writeMacros(ctx, tx, id, rec)
}

func writeMacros(ctx context.Context, tx *sql.Tx, id int64, rec domain.TemplateRecord) error {
	for _, m := range rec.Macros {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO template_macros (template_id, macro, value) VALUES (?, ?, ?)`, id, m.Macro, m.Value); err != nil {
			return linkError(rec, "macro", m.Macro, err)
		}
	}
	return nil
}

func linkError(rec domain.TemplateRecord, kind, ref string, err error) error {
	err = mapDBError(err)
	var (
		validation *domain.ValidationError
		conflict   *domain.ConflictError
	)
	switch {
	case errors.As(err, &validation):
		return domain.ErrValidation("template %q: %s %s does not exist", rec.Name, kind, ref)
	case errors.As(err, &conflict):
		return domain.ErrValidation("template %q: %s %s listed more than once", rec.Name, kind, ref)
	}
	return fmt.Errorf("link template %q to %s %s: %w", rec.Name, kind, ref, err)
}

func loadLinks(ctx context.Context, q querier, id int64, t *domain.Template) error {
	groups, err := queryStrings(ctx, q,
		`SELECT g.name FROM template_groups tg JOIN host_groups g ON g.id = tg.group_id
		  WHERE tg.template_id = ? ORDER BY g.name`, id)
	if err != nil {
		return fmt.Errorf("load groups of template %q: %w", t.Name, err)
	}
	for _, g := range groups {
		t.Groups = append(t.Groups, domain.GroupName(g))
	}

	parents, err := queryStrings(ctx, q,
		`SELECT p.host FROM template_parents tp JOIN templates p ON p.id = tp.parent_id
		  WHERE tp.template_id = ? ORDER BY tp.position`, id)
	if err != nil {
		return fmt.Errorf("load parents of template %q: %w", t.Name, err)
	}
	for _, p := range parents {
		t.Parents = append(t.Parents, domain.TemplateName(p))
	}

	rows, err := q.QueryContext(ctx,
		`SELECT macro, value FROM template_macros WHERE template_id = ? ORDER BY macro`, id)
	if err != nil {
		return fmt.Errorf("load macros of template %q: %w", t.Name, err)
	}
	defer rows.Close() //nolint:errcheck
	for rows.Next() {
		var m domain.Macro
		if err := rows.Scan(&m.Macro, &m.Value); err != nil {
			return err
		}
		t.Macros = append(t.Macros, m)
	}
	return rows.Err()
}

func queryStrings(ctx context.Context, q querier, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
