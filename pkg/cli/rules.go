package cli

import (
	"github.com/spf13/cobra"

	"zbx-import/internal/app"
	"zbx-import/internal/declarative"
	"zbx-import/internal/domain"
)

// ruleFlags override individual import rules. Flags that are not set keep
// the value from the document rules or the configured defaults.
type ruleFlags struct {
	createMissing  bool
	updateExisting bool
	linkTemplates  bool
}

func (r *ruleFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&r.createMissing, "create-missing", false, "Create templates missing from the backend")
	cmd.Flags().BoolVar(&r.updateExisting, "update-existing", false, "Update templates that already exist")
	cmd.Flags().BoolVar(&r.linkTemplates, "link-templates", false, "Link templates to their parent templates")
}

// options returns nil when no rule flag was set.
func (r *ruleFlags) options(cmd *cobra.Command, a *app.App, doc *declarative.TemplateListDoc) *domain.ImportOptions {
	f := cmd.Flags()
	if !f.Changed("create-missing") && !f.Changed("update-existing") && !f.Changed("link-templates") {
		return nil
	}
	opts, _ := a.Options(doc)
	if f.Changed("create-missing") {
		opts.CreateMissingTemplates = r.createMissing
	}
	if f.Changed("update-existing") {
		opts.UpdateExistingTemplates = r.updateExisting
	}
	if f.Changed("link-templates") {
		opts.CreateMissingLinkage = r.linkTemplates
	}
	return &opts
}
