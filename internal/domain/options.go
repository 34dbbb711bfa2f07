package domain

import (
	"fmt"
	"sort"
)

// Import rule names and keys recognised by ParseImportRules.
const (
	RuleTemplates       = "templates"
	RuleMaps            = "maps"
	RuleTemplateLinkage = "templateLinkage"

	RuleKeyCreateMissing  = "createMissing"
	RuleKeyUpdateExisting = "updateExisting"
)

// ImportOptions gates each phase of a template import. The zero value does
// nothing.
type ImportOptions struct {
	CreateMissingTemplates  bool `json:"create_missing_templates"`
	UpdateExistingTemplates bool `json:"update_existing_templates"`
	CreateMissingLinkage    bool `json:"create_missing_linkage"`
}

// Any reports whether at least one phase is enabled.
func (o ImportOptions) Any() bool {
	return o.CreateMissingTemplates || o.UpdateExistingTemplates || o.CreateMissingLinkage
}

// ParseImportRules converts the nested rule map of an import document into
// ImportOptions. Update of existing templates is gated by the "maps" rule, as
// in the Zabbix frontend. Rules or keys that are not recognised leave the
// corresponding phase disabled and are returned as warnings.
func ParseImportRules(rules map[string]map[string]bool) (ImportOptions, []string) {
	var (
		opts     ImportOptions
		warnings []string
	)

	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		keys := make([]string, 0, len(rules[name]))
		for key := range rules[name] {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			value := rules[name][key]
			switch {
			case name == RuleTemplates && key == RuleKeyCreateMissing:
				opts.CreateMissingTemplates = value
			case name == RuleMaps && key == RuleKeyUpdateExisting:
				opts.UpdateExistingTemplates = value
			case name == RuleTemplateLinkage && key == RuleKeyCreateMissing:
				opts.CreateMissingLinkage = value
			default:
				warnings = append(warnings, fmt.Sprintf("unsupported import rule %s.%s ignored", name, key))
			}
		}
	}

	return opts, warnings
}

// Rules returns the nested rule map equivalent of o.
func (o ImportOptions) Rules() map[string]map[string]bool {
	return map[string]map[string]bool{
		RuleTemplates:       {RuleKeyCreateMissing: o.CreateMissingTemplates},
		RuleMaps:            {RuleKeyUpdateExisting: o.UpdateExistingTemplates},
		RuleTemplateLinkage: {RuleKeyCreateMissing: o.CreateMissingLinkage},
	}
}
