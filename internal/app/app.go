// Package app wires configuration, backends and the importer into the
// application used by the server, the CLI and scheduled sync.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"zbx-import/internal/config"
	"zbx-import/internal/db/repository"
	"zbx-import/internal/declarative"
	"zbx-import/internal/domain"
	"zbx-import/internal/service/importer"
	"zbx-import/internal/zabbixapi"
)

// ErrNoStore is returned by operations that need the local template store
// when the app runs against a remote backend.
var ErrNoStore = errors.New("operation requires the sqlite backend")

// Deps holds the external dependencies that main() must provide.
// WriteDB and ReadDB are only required for the sqlite backend.
type Deps struct {
	Cfg     *config.Config
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Logger  *slog.Logger
}

// Backend is the pair of ports an import runs against.
type Backend struct {
	Name     string
	Resolver domain.ReferenceResolver
	API      domain.TemplateAPI
}

// App holds the fully-wired application.
type App struct {
	Backend Backend

	// Groups and Templates are nil unless the backend is sqlite.
	Groups    domain.GroupRepository
	Templates domain.TemplateRepository

	defaults domain.ImportOptions
	logger   *slog.Logger
}

// New wires the backend selected by deps.Cfg.
func New(deps Deps) (*App, error) {
	cfg := deps.Cfg
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	a := &App{defaults: cfg.DefaultOptions, logger: logger}

	switch cfg.Backend {
	case config.BackendSQLite, "":
		if deps.WriteDB == nil || deps.ReadDB == nil {
			return nil, fmt.Errorf("sqlite backend: database handles are required")
		}
		groups := repository.NewGroupRepo(deps.WriteDB)
		templates := repository.NewTemplateRepo(deps.WriteDB)
		a.Groups = groups
		a.Templates = templates
		a.Backend = Backend{
			Name:     config.BackendSQLite,
			Resolver: repository.NewResolver(deps.ReadDB),
			API:      templates,
		}
	case config.BackendZabbix:
		client, err := zabbixapi.New(cfg.Zabbix.URL, cfg.Zabbix.Token, zabbixapi.Options{
			RPS:            cfg.Zabbix.RPS,
			Timeout:        cfg.Zabbix.Timeout,
			TemplateGroups: cfg.Zabbix.TemplateGroups,
			Logger:         logger.With("component", "zabbix-api"),
		})
		if err != nil {
			return nil, fmt.Errorf("zabbix backend: %w", err)
		}
		a.Backend = Backend{Name: config.BackendZabbix, Resolver: client, API: client}
	default:
		return nil, fmt.Errorf("unknown import backend %q", cfg.Backend)
	}

	logger.Info("import backend ready", "backend", a.Backend.Name)
	return a, nil
}

// RunRequest describes one import of a template document.
type RunRequest struct {
	Doc *declarative.TemplateListDoc
	// Options overrides both the document rules and the configured defaults.
	Options *domain.ImportOptions
	// DryRun resolves references against the backend but persists nothing.
	DryRun bool
}

// Options returns the import options for doc: its own rules when it declares
// any, otherwise the configured defaults. Unrecognised rules are returned as
// warnings.
func (a *App) Options(doc *declarative.TemplateListDoc) (domain.ImportOptions, []string) {
	if doc.HasRules() {
		return doc.Options()
	}
	return a.defaults, nil
}

// Run validates req.Doc and imports it. The returned Plan is non-nil whenever
// the document passed validation, including when the import fails part way.
func (a *App) Run(ctx context.Context, req RunRequest) (*declarative.Plan, error) {
	if req.Doc == nil {
		return nil, domain.ErrValidation("no document")
	}
	if err := declarative.AsError(declarative.Validate(req.Doc)); err != nil {
		return nil, err
	}

	opts, warnings := a.Options(req.Doc)
	for _, w := range warnings {
		a.logger.Warn(w)
	}
	if req.Options != nil {
		opts = *req.Options
	}

	api := a.Backend.API
	if req.DryRun {
		api = &importer.DryRunAPI{}
	}

	result, err := importer.New(a.Backend.Resolver, api, opts, a.logger).Import(ctx, req.Doc.Definitions())
	return declarative.NewPlan(result, err, req.DryRun), err
}

// ListTemplates returns the templates of the local store.
func (a *App) ListTemplates(ctx context.Context) ([]domain.Template, error) {
	if a.Templates == nil {
		return nil, ErrNoStore
	}
	return a.Templates.List(ctx)
}

// ListGroups returns the host groups of the local store.
func (a *App) ListGroups(ctx context.Context) ([]domain.HostGroup, error) {
	if a.Groups == nil {
		return nil, ErrNoStore
	}
	return a.Groups.List(ctx)
}

// CreateGroup adds a host group to the local store.
func (a *App) CreateGroup(ctx context.Context, name domain.GroupName) (*domain.HostGroup, error) {
	if a.Groups == nil {
		return nil, ErrNoStore
	}
	return a.Groups.Create(ctx, name)
}
