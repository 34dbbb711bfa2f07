package declarative

import (
	"fmt"
	"regexp"
	"strings"

	"zbx-import/internal/domain"
)

// ValidationError represents a single validation problem.
type ValidationError struct {
	Path    string // e.g. "template[Template OS Linux]" or "templates[3]"
	Message string
}

func (e ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// User macro syntax accepted by Zabbix, with an optional context suffix.
var macroPattern = regexp.MustCompile(`^\{\$[A-Z0-9_.]+(:.*)?\}$`)

// Validate checks doc for structural problems that can be found without a
// backend. Parent cycles are not checked here.
func Validate(doc *TemplateListDoc) []ValidationError {
	var errs []ValidationError

	if err := validateDocument(doc.APIVersion, doc.Kind); err != nil {
		addErr(&errs, "", "%s", err.Error())
	}
	if len(doc.Templates) == 0 {
		addErr(&errs, "templates", "at least one template is required")
		return errs
	}

	seen := make(map[string]bool, len(doc.Templates))
	for i, t := range doc.Templates {
		path := fmt.Sprintf("template[%s]", t.Template)
		if strings.TrimSpace(t.Template) == "" {
			addErr(&errs, fmt.Sprintf("templates[%d]", i), "template (technical name) is required")
			continue
		}
		if seen[t.Template] {
			addErr(&errs, path, "duplicate template name")
		}
		seen[t.Template] = true

		validateGroups(t.Groups, path, &errs)
		validateParents(t.Templates, path, &errs)
		validateMacros(t.Macros, path, &errs)
	}

	return errs
}

// AsError joins errs into a single domain validation error, or returns nil.
func AsError(errs []ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return domain.ErrValidation("%s", strings.Join(msgs, "; "))
}

func addErr(errs *[]ValidationError, path, msg string, args ...any) {
	*errs = append(*errs, ValidationError{
		Path:    path,
		Message: fmt.Sprintf(msg, args...),
	})
}

func validateGroups(groups []NameRef, path string, errs *[]ValidationError) {
	if len(groups) == 0 {
		addErr(errs, path, "at least one group is required")
		return
	}
	seen := make(map[string]bool, len(groups))
	for j, g := range groups {
		if g.Name == "" {
			addErr(errs, fmt.Sprintf("%s.groups[%d]", path, j), "name is required")
			continue
		}
		if seen[g.Name] {
			addErr(errs, path, "group %q listed more than once", g.Name)
		}
		seen[g.Name] = true
	}
}

func validateParents(parents []NameRef, path string, errs *[]ValidationError) {
	seen := make(map[string]bool, len(parents))
	for j, p := range parents {
		if p.Name == "" {
			addErr(errs, fmt.Sprintf("%s.templates[%d]", path, j), "name is required")
			continue
		}
		if seen[p.Name] {
			addErr(errs, path, "parent template %q listed more than once", p.Name)
		}
		seen[p.Name] = true
	}
}

func validateMacros(macros []MacroSpec, path string, errs *[]ValidationError) {
	seen := make(map[string]bool, len(macros))
	for j, m := range macros {
		if !macroPattern.MatchString(m.Macro) {
			addErr(errs, fmt.Sprintf("%s.macros[%d]", path, j), "invalid macro %q (expected {$NAME})", m.Macro)
			continue
		}
		if seen[m.Macro] {
			addErr(errs, path, "macro %q defined more than once", m.Macro)
		}
		seen[m.Macro] = true
	}
}
