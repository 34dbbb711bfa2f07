package cli

import (
	"time"

	"github.com/spf13/cobra"

	"zbx-import/internal/domain"
)

func newGroupCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage host groups of the local template store",
	}
	cmd.AddCommand(newGroupAddCmd(flags), newGroupListCmd(flags))
	return cmd
}

func newGroupAddCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "add NAME...",
		Short: "Create host groups",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closeFn, err := flags.openApp(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			created := make([]domain.HostGroup, 0, len(args))
			for _, name := range args {
				g, err := a.CreateGroup(cmd.Context(), domain.GroupName(name))
				if err != nil {
					return err
				}
				created = append(created, *g)
			}
			return printGroups(cmd, created)
		},
	}
}

func newGroupListCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List host groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, closeFn, err := flags.openApp(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			groups, err := a.ListGroups(cmd.Context())
			if err != nil {
				return err
			}
			return printGroups(cmd, groups)
		},
	}
}

func printGroups(cmd *cobra.Command, groups []domain.HostGroup) error {
	if getOutputFormat(cmd) == "json" {
		return printJSON(cmd.OutOrStdout(), groups)
	}
	rows := make([][]string, len(groups))
	for i, g := range groups {
		rows[i] = []string{string(g.ID), string(g.Name), g.CreatedAt.Format(time.RFC3339)}
	}
	printTable(cmd.OutOrStdout(), []string{"id", "name", "created_at"}, rows)
	return nil
}
