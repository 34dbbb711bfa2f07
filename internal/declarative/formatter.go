package declarative

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// ANSI color codes.
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorCyan   = "\033[36m"
	colorDim    = "\033[2m"
)

// FormatText writes a human-readable plan to w, one section per iteration.
// If noColor is true, ANSI codes are suppressed.
func FormatText(w io.Writer, plan *Plan, noColor bool) {
	c := func(code string) string {
		if noColor {
			return ""
		}
		return code
	}

	verb := map[Operation]string{OpCreate: "created", OpUpdate: "updated", OpSkip: "skipped"}
	if plan.DryRun {
		verb = map[Operation]string{OpCreate: "will be created", OpUpdate: "will be updated", OpSkip: "will be skipped"}
	}

	if len(plan.Actions) == 0 && len(plan.Errors) == 0 {
		fmt.Fprintln(w, "No templates to import.")
		return
	}

	current := -1
	for _, a := range plan.Actions {
		if a.Iteration != current {
			current = a.Iteration
			if current == 0 {
				fmt.Fprintf(w, "\n%s# blocked by skipped parents%s\n", c(colorCyan), c(colorReset))
			} else {
				fmt.Fprintf(w, "\n%s# iteration %d%s\n", c(colorCyan), current, c(colorReset))
			}
		}

		switch a.Operation {
		case OpCreate:
			fmt.Fprintf(w, "  %s+%s template %q %s\n", c(colorGreen), c(colorReset), a.Template, verb[a.Operation])
		case OpUpdate:
			fmt.Fprintf(w, "  %s~%s template %q %s\n", c(colorYellow), c(colorReset), a.Template, verb[a.Operation])
		case OpSkip:
			fmt.Fprintf(w, "  %s=%s template %q %s\n", c(colorDim), c(colorReset), a.Template, verb[a.Operation])
		}
	}

	for _, e := range plan.Errors {
		fmt.Fprintf(w, "\n  %s✗%s %s\n", c(colorRed), c(colorReset), e.Message)
		if len(e.Chain) > 0 {
			fmt.Fprintf(w, "      chain: %s\n", strings.Join(e.Chain, " -> "))
		}
	}

	s := plan.Summary()
	label := "Import"
	if plan.DryRun {
		label = "Plan"
	}
	fmt.Fprintf(w, "\n%s%s:%s %d iteration(s), %d created, %d updated, %d skipped.",
		c(colorDim), label, c(colorReset), s.Iterations, s.Creates, s.Updates, s.Skips)
	if s.Errors > 0 {
		fmt.Fprintf(w, " %s%d error(s).%s", c(colorRed), s.Errors, c(colorReset))
	}
	fmt.Fprintln(w)
}

// FormatJSON writes the plan as JSON to w.
func FormatJSON(w io.Writer, plan *Plan) error {
	type jsonAction struct {
		Iteration int    `json:"iteration"`
		Operation string `json:"operation"`
		Template  string `json:"template"`
	}
	type jsonPlan struct {
		RunID   string       `json:"run_id,omitempty"`
		DryRun  bool         `json:"dry_run"`
		Actions []jsonAction `json:"actions"`
		Errors  []PlanError  `json:"errors,omitempty"`
		Summary PlanSummary  `json:"summary"`
	}

	jp := jsonPlan{
		RunID:   plan.RunID,
		DryRun:  plan.DryRun,
		Actions: make([]jsonAction, 0, len(plan.Actions)),
		Summary: plan.Summary(),
	}
	if len(plan.Errors) > 0 {
		jp.Errors = plan.Errors
	}

	for _, a := range plan.Actions {
		jp.Actions = append(jp.Actions, jsonAction{
			Iteration: a.Iteration,
			Operation: a.Operation.String(),
			Template:  string(a.Template),
		})
	}

	data, err := json.MarshalIndent(jp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("write plan: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}
