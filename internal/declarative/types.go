package declarative

import "zbx-import/internal/domain"

// Document envelope values accepted by Load.
const (
	SupportedAPIVersion = "zabbix-import/v1"
	KindTemplateList    = "TemplateList"
)

// TemplateListDoc declares a set of templates and the import rules to apply.
type TemplateListDoc struct {
	APIVersion string                     `yaml:"apiVersion" json:"apiVersion"`
	Kind       string                     `yaml:"kind" json:"kind"`
	Rules      map[string]map[string]bool `yaml:"rules,omitempty" json:"rules,omitempty"`
	Templates  []TemplateSpec             `yaml:"templates" json:"templates"`
}

// TemplateSpec describes a single template in Zabbix export terms: Template is
// the technical name (host), Name the optional visible name.
type TemplateSpec struct {
	Template    string      `yaml:"template" json:"template"`
	Name        string      `yaml:"name,omitempty" json:"name,omitempty"`
	Description string      `yaml:"description,omitempty" json:"description,omitempty"`
	Groups      []NameRef   `yaml:"groups" json:"groups"`
	Templates   []NameRef   `yaml:"templates,omitempty" json:"templates,omitempty"` // parent templates
	Macros      []MacroSpec `yaml:"macros,omitempty" json:"macros,omitempty"`
	Screens     []NameRef   `yaml:"screens,omitempty" json:"screens,omitempty"`
}

// NameRef references a group, template or screen by name.
type NameRef struct {
	Name string `yaml:"name" json:"name"`
}

// MacroSpec is a user macro defined on a template.
type MacroSpec struct {
	Macro string `yaml:"macro" json:"macro"`
	Value string `yaml:"value" json:"value"`
}

// HasRules reports whether the document declares any import rules.
func (d *TemplateListDoc) HasRules() bool {
	return len(d.Rules) > 0
}

// Options converts the document rules into import options. Unrecognised rules
// are returned as warnings.
func (d *TemplateListDoc) Options() (domain.ImportOptions, []string) {
	return domain.ParseImportRules(d.Rules)
}

// Definitions converts the document templates into importer input, in
// document order. The visible name defaults to the technical name.
func (d *TemplateListDoc) Definitions() []domain.TemplateDefinition {
	defs := make([]domain.TemplateDefinition, 0, len(d.Templates))
	for _, t := range d.Templates {
		def := domain.TemplateDefinition{
			Name:        domain.TemplateName(t.Template),
			VisibleName: t.Name,
			Description: t.Description,
		}
		if def.VisibleName == "" {
			def.VisibleName = t.Template
		}
		for _, g := range t.Groups {
			def.Groups = append(def.Groups, domain.GroupName(g.Name))
		}
		for _, p := range t.Templates {
			def.Parents = append(def.Parents, domain.TemplateName(p.Name))
		}
		for _, m := range t.Macros {
			def.Macros = append(def.Macros, domain.Macro{Macro: m.Macro, Value: m.Value})
		}
		for _, s := range t.Screens {
			def.Screens = append(def.Screens, domain.Screen{Name: s.Name})
		}
		defs = append(defs, def)
	}
	return defs
}
