// Package testutil provides shared mock implementations of domain interfaces
// for use in tests across the codebase. This follows the Go convention of a
// shared test utility package (like net/http/httptest).
package testutil

import (
	"context"
	"fmt"

	"zbx-import/internal/domain"
)

// === Reference Resolver Mock ===

// MockResolver implements domain.ReferenceResolver over fixed name maps.
type MockResolver struct {
	Groups    map[domain.GroupName]domain.GroupID
	Templates map[domain.TemplateName]domain.TemplateID

	ResolveGroupIDFn    func(ctx context.Context, name domain.GroupName) (domain.GroupID, bool, error)
	ResolveTemplateIDFn func(ctx context.Context, name domain.TemplateName) (domain.TemplateID, bool, error)
}

// ResolveGroupID implements the interface method for testing.
func (m *MockResolver) ResolveGroupID(ctx context.Context, name domain.GroupName) (domain.GroupID, bool, error) {
	if m.ResolveGroupIDFn != nil {
		return m.ResolveGroupIDFn(ctx, name)
	}
	id, ok := m.Groups[name]
	return id, ok, nil
}

// ResolveTemplateID implements the interface method for testing.
func (m *MockResolver) ResolveTemplateID(ctx context.Context, name domain.TemplateName) (domain.TemplateID, bool, error) {
	if m.ResolveTemplateIDFn != nil {
		return m.ResolveTemplateIDFn(ctx, name)
	}
	id, ok := m.Templates[name]
	return id, ok, nil
}

var _ domain.ReferenceResolver = (*MockResolver)(nil)

// === Template API Mock ===

// MockTemplateAPI implements domain.TemplateAPI and records every batch.
// Without CreateFn, created templates get sequential ids "t1", "t2", ...
type MockTemplateAPI struct {
	CreateFn func(ctx context.Context, batch []domain.TemplateRecord) ([]domain.TemplateID, error)
	UpdateFn func(ctx context.Context, batch []domain.TemplateRecord) error

	CreateCalls [][]domain.TemplateRecord
	UpdateCalls [][]domain.TemplateRecord

	next int
}

// CreateTemplates implements the interface method for testing.
func (m *MockTemplateAPI) CreateTemplates(ctx context.Context, batch []domain.TemplateRecord) ([]domain.TemplateID, error) {
	m.CreateCalls = append(m.CreateCalls, batch)
	if m.CreateFn != nil {
		return m.CreateFn(ctx, batch)
	}
	ids := make([]domain.TemplateID, len(batch))
	for i := range batch {
		m.next++
		ids[i] = domain.TemplateID(fmt.Sprintf("t%d", m.next))
	}
	return ids, nil
}

// UpdateTemplates implements the interface method for testing.
func (m *MockTemplateAPI) UpdateTemplates(ctx context.Context, batch []domain.TemplateRecord) error {
	m.UpdateCalls = append(m.UpdateCalls, batch)
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, batch)
	}
	return nil
}

// Calls returns the total number of create and update calls.
func (m *MockTemplateAPI) Calls() int {
	return len(m.CreateCalls) + len(m.UpdateCalls)
}

// CreatedNames returns the template names of every create call, in order.
func (m *MockTemplateAPI) CreatedNames() [][]domain.TemplateName {
	out := make([][]domain.TemplateName, len(m.CreateCalls))
	for i, batch := range m.CreateCalls {
		for _, record := range batch {
			out[i] = append(out[i], record.Name)
		}
	}
	return out
}

var _ domain.TemplateAPI = (*MockTemplateAPI)(nil)
