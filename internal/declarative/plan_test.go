package declarative

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zbx-import/internal/domain"
	"zbx-import/internal/service/importer"
)

func sampleResult() *importer.Result {
	return &importer.Result{
		RunID: "run-1",
		Iterations: []importer.Iteration{
			{Number: 1, Created: []domain.TemplateName{"Base"}, Updated: []domain.TemplateName{"Legacy"}},
			{Number: 2, Skipped: []domain.TemplateName{"App"}},
		},
		Skipped: []domain.TemplateName{"App", "App child"},
	}
}

func TestNewPlan(t *testing.T) {
	p := NewPlan(sampleResult(), nil, false)

	require.Len(t, p.Actions, 4)
	assert.Equal(t, Action{Iteration: 1, Operation: OpCreate, Template: "Base"}, p.Actions[0])
	assert.Equal(t, Action{Iteration: 1, Operation: OpUpdate, Template: "Legacy"}, p.Actions[1])
	assert.Equal(t, Action{Iteration: 2, Operation: OpSkip, Template: "App"}, p.Actions[2])
	assert.Equal(t, Action{Iteration: 0, Operation: OpSkip, Template: "App child"}, p.Actions[3])

	assert.Equal(t, PlanSummary{Iterations: 2, Creates: 1, Updates: 1, Skips: 2}, p.Summary())
	assert.True(t, p.HasChanges())
}

func TestNewPlan_Errors(t *testing.T) {
	t.Run("cycle", func(t *testing.T) {
		err := &domain.CycleError{Chain: []domain.TemplateName{"A", "B", "A"}}
		p := NewPlan(&importer.Result{}, err, true)
		require.Len(t, p.Errors, 1)
		assert.Equal(t, "A", p.Errors[0].Template)
		assert.Equal(t, []string{"A", "B", "A"}, p.Errors[0].Chain)
		assert.False(t, p.HasChanges())
	})

	t.Run("wrapped unresolved", func(t *testing.T) {
		err := fmt.Errorf("iteration 2: %w", domain.ErrUnresolvedGroup("Nope", "Linux"))
		p := NewPlan(nil, err, false)
		require.Len(t, p.Errors, 1)
		assert.Equal(t, "Linux", p.Errors[0].Template)
		assert.Contains(t, p.Errors[0].Message, "iteration 2")
	})

	t.Run("other", func(t *testing.T) {
		p := NewPlan(nil, errors.New("boom"), false)
		assert.Equal(t, []PlanError{{Message: "boom"}}, p.Errors)
	})
}

func TestFormatText(t *testing.T) {
	var buf bytes.Buffer
	FormatText(&buf, NewPlan(sampleResult(), nil, false), true)
	out := buf.String()

	assert.Contains(t, out, "# iteration 1")
	assert.Contains(t, out, `+ template "Base" created`)
	assert.Contains(t, out, `~ template "Legacy" updated`)
	assert.Contains(t, out, "# blocked by skipped parents")
	assert.Contains(t, out, `= template "App child" skipped`)
	assert.Contains(t, out, "Import: 2 iteration(s), 1 created, 1 updated, 2 skipped.")
	assert.NotContains(t, out, "\033[")
}

func TestFormatText_DryRunWithCycle(t *testing.T) {
	err := &domain.CycleError{Chain: []domain.TemplateName{"A", "B", "C", "A"}}
	var buf bytes.Buffer
	FormatText(&buf, NewPlan(&importer.Result{}, err, true), false)
	out := buf.String()

	assert.Contains(t, out, "chain: A -> B -> C -> A")
	assert.Contains(t, out, "Plan:")
	assert.Contains(t, out, "1 error(s)")
	assert.Contains(t, out, colorRed)
}

func TestFormatText_Empty(t *testing.T) {
	var buf bytes.Buffer
	FormatText(&buf, &Plan{}, true)
	assert.Contains(t, buf.String(), "No templates to import")
}

func TestFormatJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatJSON(&buf, NewPlan(sampleResult(), nil, true)))

	var decoded struct {
		RunID   string `json:"run_id"`
		DryRun  bool   `json:"dry_run"`
		Actions []struct {
			Iteration int    `json:"iteration"`
			Operation string `json:"operation"`
			Template  string `json:"template"`
		} `json:"actions"`
		Summary PlanSummary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	assert.True(t, decoded.DryRun)
	require.Len(t, decoded.Actions, 4)
	assert.Equal(t, "update", decoded.Actions[1].Operation)
	assert.Equal(t, 1, decoded.Summary.Creates)
}
