package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zbx-import/internal/domain"
)

// defsOf builds a definition table from name -> parents.
func defsOf(parents map[domain.TemplateName][]domain.TemplateName) map[domain.TemplateName]domain.TemplateDefinition {
	defs := make(map[domain.TemplateName]domain.TemplateDefinition, len(parents))
	for name, p := range parents {
		defs[name] = domain.TemplateDefinition{Name: name, Groups: []domain.GroupName{"Templates"}, Parents: p}
	}
	return defs
}

func TestDetectCycle(t *testing.T) {
	tests := []struct {
		name    string
		parents map[domain.TemplateName][]domain.TemplateName
		start   domain.TemplateName
		ref     domain.TemplateName
		want    []domain.TemplateName
	}{
		{
			name:    "three_node_loop",
			parents: map[domain.TemplateName][]domain.TemplateName{"A": {"B"}, "B": {"C"}, "C": {"A"}},
			start:   "A",
			ref:     "B",
			want:    []domain.TemplateName{"A", "B", "C", "A"},
		},
		{
			name:    "two_node_loop",
			parents: map[domain.TemplateName][]domain.TemplateName{"A": {"B"}, "B": {"A"}},
			start:   "B",
			ref:     "A",
			want:    []domain.TemplateName{"B", "A", "B"},
		},
		{
			name:    "self_reference",
			parents: map[domain.TemplateName][]domain.TemplateName{"A": {"A"}},
			start:   "A",
			ref:     "A",
			want:    []domain.TemplateName{"A", "A"},
		},
		{
			name:    "loop_below_start_is_truncated",
			parents: map[domain.TemplateName][]domain.TemplateName{"A": {"B"}, "B": {"C"}, "C": {"B"}},
			start:   "A",
			ref:     "B",
			want:    []domain.TemplateName{"B", "C", "B"},
		},
		{
			name:    "chain_ends_at_root",
			parents: map[domain.TemplateName][]domain.TemplateName{"A": {"B"}, "B": {"C"}, "C": nil},
			start:   "A",
			ref:     "B",
			want:    nil,
		},
		{
			name:    "reference_outside_batch",
			parents: map[domain.TemplateName][]domain.TemplateName{"A": {"Existing"}},
			start:   "A",
			ref:     "Existing",
			want:    nil,
		},
		{
			name:    "only_first_parent_followed",
			parents: map[domain.TemplateName][]domain.TemplateName{"A": {"B"}, "B": {"C", "A"}, "C": nil},
			start:   "A",
			ref:     "B",
			want:    nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			visited := []domain.TemplateName{tc.start}
			got := DetectCycle(tc.ref, defsOf(tc.parents), visited)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, []domain.TemplateName{tc.start}, visited, "visited must not be modified")
		})
	}
}

func TestCheckCircularReferences(t *testing.T) {
	t.Run("acyclic", func(t *testing.T) {
		defs := defsOf(map[domain.TemplateName][]domain.TemplateName{
			"Base": nil, "Linux": {"Base"}, "App": {"Linux", "Base"},
		})
		assert.NoError(t, CheckCircularReferences(defs))
	})

	t.Run("three_node_loop_reported_from_first_name", func(t *testing.T) {
		defs := defsOf(map[domain.TemplateName][]domain.TemplateName{"A": {"B"}, "B": {"C"}, "C": {"A"}})
		err := CheckCircularReferences(defs)
		var cycleErr *domain.CycleError
		require.ErrorAs(t, err, &cycleErr)
		assert.Equal(t, []domain.TemplateName{"A", "B", "C", "A"}, cycleErr.Chain)
		assert.Contains(t, err.Error(), "A -> B -> C -> A")
	})

	t.Run("second_direct_parent_checked", func(t *testing.T) {
		defs := defsOf(map[domain.TemplateName][]domain.TemplateName{"A": {"Base", "B"}, "B": {"A"}, "Base": nil})
		err := CheckCircularReferences(defs)
		var cycleErr *domain.CycleError
		require.ErrorAs(t, err, &cycleErr)
		assert.Equal(t, []domain.TemplateName{"A", "B", "A"}, cycleErr.Chain)
	})

	t.Run("loop_reachable_only_through_non_first_parents_is_missed", func(t *testing.T) {
		// X and Y link each other, but each has an unrelated first parent.
		defs := defsOf(map[domain.TemplateName][]domain.TemplateName{
			"X": {"W", "Y"}, "Y": {"V", "X"}, "V": nil, "W": nil,
		})
		assert.NoError(t, CheckCircularReferences(defs))
	})
}
