// Package api serves template imports and the local template store over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"zbx-import/internal/app"
	"zbx-import/internal/declarative"
	"zbx-import/internal/domain"
	"zbx-import/internal/middleware"
)

// maxDocumentBytes bounds the size of an uploaded import document.
const maxDocumentBytes = 8 << 20

// Service is the application surface used by the handlers. *app.App
// implements it.
type Service interface {
	Run(ctx context.Context, req app.RunRequest) (*declarative.Plan, error)
	Options(doc *declarative.TemplateListDoc) (domain.ImportOptions, []string)
	ListTemplates(ctx context.Context) ([]domain.Template, error)
	ListGroups(ctx context.Context) ([]domain.HostGroup, error)
	CreateGroup(ctx context.Context, name domain.GroupName) (*domain.HostGroup, error)
}

// Handler implements the HTTP endpoints.
type Handler struct {
	svc    Service
	logger *slog.Logger
}

// NewHandler creates a Handler. A nil logger discards output.
func NewHandler(svc Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{svc: svc, logger: logger}
}

// ImportTemplates handles POST /v1/imports/templates.
func (h *Handler) ImportTemplates(w http.ResponseWriter, r *http.Request) {
	h.runImport(w, r, false)
}

// PlanTemplates handles POST /v1/imports/templates/plan.
func (h *Handler) PlanTemplates(w http.ResponseWriter, r *http.Request) {
	h.runImport(w, r, true)
}

// runImport reads a YAML or JSON document from the body. The query
// parameters create_missing, update_existing and link_templates override the
// matching import rule; rules without a parameter keep the value from the
// document or the configured defaults.
func (h *Handler) runImport(w http.ResponseWriter, r *http.Request, dryRun bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "document too large")
			return
		}
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}

	doc, err := declarative.Load(data, declarative.LoadOptions{})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	base, _ := h.svc.Options(doc)
	opts, err := optionsFromQuery(r, base)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	operator, _ := middleware.OperatorFromContext(r.Context())
	plan, err := h.svc.Run(r.Context(), app.RunRequest{Doc: doc, Options: opts, DryRun: dryRun})
	if err != nil {
		h.logger.Warn("template import failed",
			"operator", operator,
			"request_id", middleware.RequestIDFromContext(r.Context()),
			"dry_run", dryRun,
			"error", err)
		if plan == nil {
			writeError(w, httpStatusFromDomainError(err), err.Error())
			return
		}
		writePlan(w, httpStatusFromDomainError(err), plan)
		return
	}

	h.logger.Info("template import",
		"operator", operator,
		"request_id", middleware.RequestIDFromContext(r.Context()),
		"run_id", plan.RunID,
		"dry_run", dryRun)
	writePlan(w, http.StatusOK, plan)
}

// optionsFromQuery applies the rule parameters of r to base. It returns nil
// when no parameter is present.
func optionsFromQuery(r *http.Request, base domain.ImportOptions) (*domain.ImportOptions, error) {
	q := r.URL.Query()
	params := []struct {
		key string
		dst func(*domain.ImportOptions) *bool
	}{
		{"create_missing", func(o *domain.ImportOptions) *bool { return &o.CreateMissingTemplates }},
		{"update_existing", func(o *domain.ImportOptions) *bool { return &o.UpdateExistingTemplates }},
		{"link_templates", func(o *domain.ImportOptions) *bool { return &o.CreateMissingLinkage }},
	}

	var opts *domain.ImportOptions
	for _, p := range params {
		if !q.Has(p.key) {
			continue
		}
		v, err := strconv.ParseBool(q.Get(p.key))
		if err != nil {
			return nil, fmt.Errorf("query parameter %s: invalid boolean %q", p.key, q.Get(p.key))
		}
		if opts == nil {
			opts = &base
		}
		*p.dst(opts) = v
	}
	return opts, nil
}

func writePlan(w http.ResponseWriter, code int, plan *declarative.Plan) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = declarative.FormatJSON(w, plan)
}

type listResponse[T any] struct {
	Data []T `json:"data"`
}

// ListTemplates handles GET /v1/templates.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.svc.ListTemplates(r.Context())
	if err != nil {
		writeError(w, httpStatusFromDomainError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.Template]{Data: templates})
}

// ListGroups handles GET /v1/groups.
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.svc.ListGroups(r.Context())
	if err != nil {
		writeError(w, httpStatusFromDomainError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.HostGroup]{Data: groups})
}

type createGroupRequest struct {
	Name string `json:"name"`
}

// CreateGroup handles POST /v1/groups.
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	group, err := h.svc.CreateGroup(r.Context(), domain.GroupName(req.Name))
	if err != nil {
		writeError(w, httpStatusFromDomainError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
