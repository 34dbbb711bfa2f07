package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"zbx-import/internal/app"
	"zbx-import/internal/declarative"
)

func newImportCmd(flags *globalFlags) *cobra.Command {
	var (
		autoApprove bool
		noColor     bool
		rules       ruleFlags
	)

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a template document into the backend",
		Long: "Shows the import plan, asks for confirmation and then creates or " +
			"updates the templates iteration by iteration, parents first.",
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

			format := getOutputFormat(cmd)
			out := cmd.OutOrStdout()
			req := app.RunRequest{Doc: doc, Options: rules.options(cmd, a, doc)}

			// Preview first, unless auto-approved.
			if !autoApprove {
				req.DryRun = true
				preview, err := a.Run(cmd.Context(), req)
				if preview != nil {
					declarative.FormatText(out, preview, noColor)
				}
				if err != nil {
					if preview != nil {
						return errFailed
					}
					return err
				}
				if !preview.HasChanges() {
					return nil
				}
				if !isStdinTTY() {
					return fmt.Errorf("confirmation required but stdin is not a terminal; use --auto-approve")
				}
				_, _ = fmt.Fprint(out, "\nImport these templates? [y/N] ")
				answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil {
					return fmt.Errorf("read confirmation: %w", err)
				}
				answer = strings.TrimSpace(strings.ToLower(answer))
				if answer != "y" && answer != "yes" {
					_, _ = fmt.Fprintln(out, "Import cancelled.")
					return nil
				}
				req.DryRun = false
			}

			plan, err := a.Run(cmd.Context(), req)
			if plan != nil {
				if werr := writePlan(out, format, plan, noColor); werr != nil {
					return werr
				}
				if err != nil {
					return errFailed
				}
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&autoApprove, "auto-approve", false, "Skip the plan preview and confirmation prompt")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rules.register(cmd)

	return cmd
}

func isStdinTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) //nolint:gosec // fd fits in int
}
