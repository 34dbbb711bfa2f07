package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"zbx-import/internal/app"
	"zbx-import/internal/declarative"
)

func newPlanCmd(flags *globalFlags) *cobra.Command {
	var (
		noColor bool
		rules   ruleFlags
	)

	cmd := &cobra.Command{
		Use:   "plan FILE",
		Short: "Show what an import of a template document would do",
		Long: "Resolves the document against the backend and prints the import " +
			"iterations without creating or updating anything.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := declarative.LoadFile(args[0], declarative.LoadOptions{})
			if err != nil {
				return fmt.Errorf("load document: %w", err)
			}

			a, closeFn, err := flags.openApp(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			plan, err := a.Run(cmd.Context(), app.RunRequest{
				Doc:     doc,
				Options: rules.options(cmd, a, doc),
				DryRun:  true,
			})
			if plan != nil {
				if werr := writePlan(cmd.OutOrStdout(), getOutputFormat(cmd), plan, noColor); werr != nil {
					return werr
				}
				if err != nil {
					return errFailed
				}
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rules.register(cmd)

	return cmd
}

func writePlan(w io.Writer, format string, plan *declarative.Plan, noColor bool) error {
	if format == "json" {
		return declarative.FormatJSON(w, plan)
	}
	declarative.FormatText(w, plan, noColor)
	return nil
}
