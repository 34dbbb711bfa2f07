package importer

import (
	"slices"
	"sort"

	"zbx-import/internal/domain"
)

// DetectCycle follows parent references starting at ref and reports whether
// the walk revisits a name already on the path. visited holds the path so far
// and normally starts as the name of the template that references ref.
//
// Only the first parent of every visited template is followed. A template
// with several parents therefore has a single chain checked below each of its
// direct parents; CheckCircularReferences compensates for the top level by
// starting a walk at every direct parent.
//
// The returned chain starts at the first occurrence of the repeated name and
// ends with it again, e.g. [A B C A]. It is nil when no cycle is found.
func DetectCycle(ref domain.TemplateName, defs map[domain.TemplateName]domain.TemplateDefinition, visited []domain.TemplateName) []domain.TemplateName {
	path := slices.Clone(visited)
	current := ref

	for {
		if idx := slices.Index(path, current); idx >= 0 {
			chain := slices.Clone(path[idx:])
			return append(chain, current)
		}
		path = append(path, current)

		def, ok := defs[current]
		if !ok || len(def.Parents) == 0 {
			return nil
		}
		current = def.Parents[0]
	}
}

// CheckCircularReferences runs DetectCycle for every parent of every
// definition and returns a CycleError for the first chain found. Definitions
// are checked in name order so the reported chain is deterministic.
func CheckCircularReferences(defs map[domain.TemplateName]domain.TemplateDefinition) error {
	names := make([]domain.TemplateName, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	for _, name := range names {
		for _, parent := range defs[name].Parents {
			if chain := DetectCycle(parent, defs, []domain.TemplateName{name}); chain != nil {
				return &domain.CycleError{Chain: chain}
			}
		}
	}
	return nil
}
