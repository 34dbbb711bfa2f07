package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func newTemplateCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Inspect templates of the local template store",
	}
	cmd.AddCommand(newTemplateListCmd(flags))
	return cmd
}

func newTemplateListCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List templates with their groups and parent templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, closeFn, err := flags.openApp(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			templates, err := a.ListTemplates(cmd.Context())
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), templates)
			}

			rows := make([][]string, len(templates))
			for i, t := range templates {
				rows[i] = []string{
					string(t.ID),
					string(t.Name),
					t.VisibleName,
					joinNames(t.Groups),
					joinNames(t.Parents),
				}
			}
			printTable(cmd.OutOrStdout(), []string{"id", "template", "name", "groups", "parents"}, rows)
			return nil
		},
	}
}

func joinNames[T ~string](names []T) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ",")
}

