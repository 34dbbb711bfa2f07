package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"zbx-import/internal/declarative"
	"zbx-import/internal/domain"
	"zbx-import/internal/service/importer"
)

func newValidateCmd() *cobra.Command {
	var allowUnknownFields bool

	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a template document offline",
		Long: "Reads a YAML or JSON template document and checks its structure and " +
			"parent links for circular references without contacting a backend.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := declarative.LoadFile(args[0], declarative.LoadOptions{
				AllowUnknownFields: allowUnknownFields,
			})
			if err != nil {
				return fmt.Errorf("load document: %w", err)
			}

			var problems []string
			for _, ve := range declarative.Validate(doc) {
				problems = append(problems, ve.Error())
			}
			if len(problems) == 0 {
				if err := checkCycles(doc); err != nil {
					problems = append(problems, err.Error())
				}
			}

			out := cmd.OutOrStdout()
			if getOutputFormat(cmd) == "json" {
				body := map[string]interface{}{"valid": len(problems) == 0}
				if len(problems) > 0 {
					body["errors"] = problems
				}
				if err := printJSON(out, body); err != nil {
					return err
				}
				if len(problems) > 0 {
					return errFailed
				}
				return nil
			}

			if len(problems) > 0 {
				errOut := cmd.ErrOrStderr()
				fmt.Fprintf(errOut, "Document has %d validation error(s):\n", len(problems))
				for _, p := range problems {
					fmt.Fprintf(errOut, "  - %s\n", p)
				}
				return errFailed
			}
			_, _ = fmt.Fprintf(out, "Document is valid: %d template(s).\n", len(doc.Templates))
			return nil
		},
	}

	cmd.Flags().BoolVar(&allowUnknownFields, "allow-unknown-fields", false, "Allow unknown fields in the document")

	return cmd
}

// checkCycles runs the circular reference check on the document templates.
func checkCycles(doc *declarative.TemplateListDoc) error {
	defs := make(map[domain.TemplateName]domain.TemplateDefinition, len(doc.Templates))
	for _, def := range doc.Definitions() {
		defs[def.Name] = def
	}
	return importer.CheckCircularReferences(defs)
}
