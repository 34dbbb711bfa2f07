package domain

import "time"

// TemplateName is the technical (unique) name of a template, the "host"
// field in Zabbix terms.
type TemplateName string

// GroupName is the name of a host group.
type GroupName string

// TemplateID is an opaque backend identifier of a persisted template.
type TemplateID string

// GroupID is an opaque backend identifier of a persisted host group.
type GroupID string

// Macro is a user macro defined on a template.
type Macro struct {
	Macro string `json:"macro"`
	Value string `json:"value"`
}

// Screen is a template screen. Screens are imported by a separate phase and
// are stripped from definitions before templates are created.
type Screen struct {
	Name string `json:"name"`
}

// TemplateDefinition is a template as read from an import document. Group and
// parent references are still names.
type TemplateDefinition struct {
	Name        TemplateName
	VisibleName string
	Description string
	Groups      []GroupName
	Parents     []TemplateName
	Macros      []Macro
	Screens     []Screen
}

// TemplateRecord is a template with every reference rewritten to backend
// identifiers. ID is set only when the record updates an existing template.
//
// LinkParents reports whether the record manages parent linkage. When it is
// false, backends ignore ParentIDs and keep the links of an existing
// template. Groups and macros of a record always replace the stored ones.
type TemplateRecord struct {
	ID          TemplateID   `json:"templateid,omitempty"`
	Name        TemplateName `json:"host"`
	VisibleName string       `json:"name,omitempty"`
	Description string       `json:"description,omitempty"`
	GroupIDs    []GroupID    `json:"groupids"`
	ParentIDs   []TemplateID `json:"parentids,omitempty"`
	Macros      []Macro      `json:"macros,omitempty"`
	LinkParents bool         `json:"link_parents"`
}

// HostGroup is a persisted host group.
type HostGroup struct {
	ID        GroupID   `json:"id"`
	Name      GroupName `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Template is a persisted template as read back from a backend.
type Template struct {
	ID          TemplateID     `json:"id"`
	Name        TemplateName   `json:"host"`
	VisibleName string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Groups      []GroupName    `json:"groups"`
	Parents     []TemplateName `json:"parents,omitempty"`
	Macros      []Macro        `json:"macros,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
