package importer

import (
	"context"
	"fmt"
	"sort"

	"zbx-import/internal/domain"
)

// ReferenceTable resolves names to identifiers for a single import run. It
// layers the identifiers of templates created during the run over a backend
// resolver. Entries are only ever added.
type ReferenceTable struct {
	base      domain.ReferenceResolver
	templates map[domain.TemplateName]domain.TemplateID
	groups    map[domain.GroupName]domain.GroupID
	processed map[domain.TemplateName]struct{}
}

// NewReferenceTable creates an empty table backed by base.
func NewReferenceTable(base domain.ReferenceResolver) *ReferenceTable {
	return &ReferenceTable{
		base:      base,
		templates: make(map[domain.TemplateName]domain.TemplateID),
		groups:    make(map[domain.GroupName]domain.GroupID),
		processed: make(map[domain.TemplateName]struct{}),
	}
}

// ResolveTemplate returns the identifier of a template created in this run or
// already present in the backend.
func (t *ReferenceTable) ResolveTemplate(ctx context.Context, name domain.TemplateName) (domain.TemplateID, bool, error) {
	if id, ok := t.templates[name]; ok {
		return id, true, nil
	}
	id, ok, err := t.base.ResolveTemplateID(ctx, name)
	if err != nil {
		return "", false, fmt.Errorf("resolve template %q: %w", name, err)
	}
	if ok {
		t.templates[name] = id
	}
	return id, ok, nil
}

// ResolveGroup returns the identifier of an existing host group.
func (t *ReferenceTable) ResolveGroup(ctx context.Context, name domain.GroupName) (domain.GroupID, bool, error) {
	if id, ok := t.groups[name]; ok {
		return id, true, nil
	}
	id, ok, err := t.base.ResolveGroupID(ctx, name)
	if err != nil {
		return "", false, fmt.Errorf("resolve group %q: %w", name, err)
	}
	if ok {
		t.groups[name] = id
	}
	return id, ok, nil
}

// RegisterCreatedTemplate records the identifier of a template created by the
// run so later iterations can link to it. An existing entry is kept.
func (t *ReferenceTable) RegisterCreatedTemplate(name domain.TemplateName, id domain.TemplateID) {
	if _, ok := t.templates[name]; ok {
		return
	}
	t.templates[name] = id
}

// MarkProcessed records that name was created or updated by the run.
func (t *ReferenceTable) MarkProcessed(name domain.TemplateName) {
	t.processed[name] = struct{}{}
}

// Processed returns the names marked processed, sorted.
func (t *ReferenceTable) Processed() []domain.TemplateName {
	out := make([]domain.TemplateName, 0, len(t.processed))
	for name := range t.processed {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
