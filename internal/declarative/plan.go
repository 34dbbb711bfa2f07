package declarative

import (
	"errors"

	"zbx-import/internal/domain"
	"zbx-import/internal/service/importer"
)

// Operation is what an import did, or would do, with one template.
type Operation int

// Operation values.
const (
	OpCreate Operation = iota
	OpUpdate
	OpSkip
)

// String returns the lowercase operation name.
func (o Operation) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	default:
		return "skip"
	}
}

// Action is a single template outcome. Iteration is 0 for templates skipped
// because a parent was never imported.
type Action struct {
	Iteration int
	Operation Operation
	Template  domain.TemplateName
}

// PlanError is a failure reported by the import run.
type PlanError struct {
	Template string   `json:"template,omitempty"`
	Chain    []string `json:"chain,omitempty"`
	Message  string   `json:"message"`
}

// Plan is the rendering model of an import run or dry run.
type Plan struct {
	RunID      string
	DryRun     bool
	Iterations int
	Actions    []Action
	Errors     []PlanError
}

// PlanSummary holds counts of template outcomes.
type PlanSummary struct {
	Iterations int `json:"iterations"`
	Creates    int `json:"creates"`
	Updates    int `json:"updates"`
	Skips      int `json:"skips"`
	Errors     int `json:"errors"`
}

// NewPlan converts an import result, and the error the run returned, into a
// Plan. result may describe a partial run.
func NewPlan(result *importer.Result, runErr error, dryRun bool) *Plan {
	p := &Plan{DryRun: dryRun}
	if result != nil {
		p.RunID = result.RunID
		p.Iterations = len(result.Iterations)

		inIteration := make(map[domain.TemplateName]bool)
		for _, it := range result.Iterations {
			for _, name := range it.Created {
				p.Actions = append(p.Actions, Action{Iteration: it.Number, Operation: OpCreate, Template: name})
			}
			for _, name := range it.Updated {
				p.Actions = append(p.Actions, Action{Iteration: it.Number, Operation: OpUpdate, Template: name})
			}
			for _, name := range it.Skipped {
				inIteration[name] = true
				p.Actions = append(p.Actions, Action{Iteration: it.Number, Operation: OpSkip, Template: name})
			}
		}
		for _, name := range result.Skipped {
			if !inIteration[name] {
				p.Actions = append(p.Actions, Action{Operation: OpSkip, Template: name})
			}
		}
	}

	if runErr != nil {
		p.Errors = append(p.Errors, planError(runErr))
	}
	return p
}

func planError(err error) PlanError {
	pe := PlanError{Message: err.Error()}

	var cycle *domain.CycleError
	var unresolved *domain.UnresolvedReferenceError
	switch {
	case errors.As(err, &cycle):
		for _, name := range cycle.Chain {
			pe.Chain = append(pe.Chain, string(name))
		}
		if len(cycle.Chain) > 0 {
			pe.Template = string(cycle.Chain[0])
		}
	case errors.As(err, &unresolved):
		pe.Template = string(unresolved.Template)
	}
	return pe
}

// Summary returns counts of creates, updates, skips and errors.
func (p *Plan) Summary() PlanSummary {
	s := PlanSummary{Iterations: p.Iterations, Errors: len(p.Errors)}
	for _, a := range p.Actions {
		switch a.Operation {
		case OpCreate:
			s.Creates++
		case OpUpdate:
			s.Updates++
		case OpSkip:
			s.Skips++
		}
	}
	return s
}

// HasChanges reports whether the plan creates or updates anything.
func (p *Plan) HasChanges() bool {
	for _, a := range p.Actions {
		if a.Operation != OpSkip {
			return true
		}
	}
	return false
}
