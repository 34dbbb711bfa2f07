package domain

import "context"

// ReferenceResolver maps names to identifiers of entities that already exist
// in a backend. It is queried, never mutated, by the importer. A missing
// entity is reported as ok == false; err is reserved for backend failures.
type ReferenceResolver interface {
	ResolveGroupID(ctx context.Context, name GroupName) (id GroupID, ok bool, err error)
	ResolveTemplateID(ctx context.Context, name TemplateName) (id TemplateID, ok bool, err error)
}

// TemplateAPI creates and updates templates in a backend.
type TemplateAPI interface {
	// CreateTemplates creates every record of the batch or none of them.
	// The returned identifiers are ordered to match the input.
	CreateTemplates(ctx context.Context, batch []TemplateRecord) ([]TemplateID, error)

	// UpdateTemplates updates existing templates; each record carries its ID.
	UpdateTemplates(ctx context.Context, batch []TemplateRecord) error
}

// GroupRepository manages host groups in the local metastore.
type GroupRepository interface {
	Create(ctx context.Context, name GroupName) (*HostGroup, error)
	GetByName(ctx context.Context, name GroupName) (*HostGroup, error)
	List(ctx context.Context) ([]HostGroup, error)
}

// TemplateRepository reads templates from the local metastore.
type TemplateRepository interface {
	TemplateAPI
	GetByName(ctx context.Context, name TemplateName) (*Template, error)
	List(ctx context.Context) ([]Template, error)
}
