// Package importer imports template definitions into a backend in parent
// dependency order, after rejecting circular parent-template chains.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"zbx-import/internal/domain"
)

// Iteration describes one pass of the import loop.
type Iteration struct {
	Number  int                   `json:"number"`
	Created []domain.TemplateName `json:"created,omitempty"`
	Updated []domain.TemplateName `json:"updated,omitempty"`
	Skipped []domain.TemplateName `json:"skipped,omitempty"`
}

// Result is the outcome of an import run. On failure it describes the
// iterations that completed before the error; their changes stay persisted.
type Result struct {
	RunID      string                `json:"run_id"`
	Options    domain.ImportOptions  `json:"options"`
	Iterations []Iteration           `json:"iterations"`
	Processed  []domain.TemplateName `json:"processed"`
	Skipped    []domain.TemplateName `json:"skipped,omitempty"`
}

// Counts returns the number of created, updated and skipped templates.
func (r *Result) Counts() (created, updated, skipped int) {
	for _, it := range r.Iterations {
		created += len(it.Created)
		updated += len(it.Updated)
	}
	return created, updated, len(r.Skipped)
}

// Importer runs template imports against a resolver and a TemplateAPI.
type Importer struct {
	resolver domain.ReferenceResolver
	api      domain.TemplateAPI
	opts     domain.ImportOptions
	logger   *slog.Logger
}

// New creates an Importer. A nil logger discards output.
func New(resolver domain.ReferenceResolver, api domain.TemplateAPI, opts domain.ImportOptions, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Importer{resolver: resolver, api: api, opts: opts, logger: logger}
}

// workingSet holds the definitions not yet extracted by the import loop. It
// is owned by a single run and replaced, not mutated, between iterations.
type workingSet map[domain.TemplateName]domain.TemplateDefinition

func newWorkingSet(defs []domain.TemplateDefinition) (workingSet, error) {
	ws := make(workingSet, len(defs))
	for i, def := range defs {
		if def.Name == "" {
			return nil, domain.ErrValidation("template[%d]: technical name is required", i)
		}
		if _, dup := ws[def.Name]; dup {
			return nil, domain.ErrValidation("duplicate template %q", def.Name)
		}
		ws[def.Name] = def
	}
	return ws, nil
}

func (ws workingSet) names() []domain.TemplateName {
	out := make([]domain.TemplateName, 0, len(ws))
	for name := range ws {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// strip drops screens, which are imported by a separate phase, and parent
// references when linkage is not requested.
func (ws workingSet) strip(keepParents bool) workingSet {
	out := make(workingSet, len(ws))
	for name, def := range ws {
		def.Screens = nil
		if !keepParents {
			def.Parents = nil
		}
		out[name] = def
	}
	return out
}

func (ws workingSet) without(names []domain.TemplateName) workingSet {
	drop := make(map[domain.TemplateName]struct{}, len(names))
	for _, name := range names {
		drop[name] = struct{}{}
	}
	out := make(workingSet, len(ws))
	for name, def := range ws {
		if _, ok := drop[name]; !ok {
			out[name] = def
		}
	}
	return out
}

// Import validates defs, rejects circular parent chains and then creates or
// updates templates iteration by iteration. Each iteration handles the
// templates whose parents are all resolvable at that point.
//
// The returned Result is never nil. Errors are *domain.ValidationError,
// *domain.CycleError, *domain.UnresolvedReferenceError or
// *domain.RemoteOperationError; only the last two can follow backend changes.
func (im *Importer) Import(ctx context.Context, defs []domain.TemplateDefinition) (*Result, error) {
	result := &Result{RunID: uuid.NewString(), Options: im.opts}
	logger := im.logger.With("run_id", result.RunID)

	if len(defs) == 0 {
		return result, domain.ErrValidation("no templates to import")
	}
	ws, err := newWorkingSet(defs)
	if err != nil {
		return result, err
	}
	if err := CheckCircularReferences(ws); err != nil {
		logger.Warn("template import rejected", "error", err)
		return result, err
	}

	logger.Info("template import started",
		"templates", len(ws),
		"create_missing", im.opts.CreateMissingTemplates,
		"update_existing", im.opts.UpdateExistingTemplates,
		"link_templates", im.opts.CreateMissingLinkage)

	ws = ws.strip(im.opts.CreateMissingLinkage)
	table := NewReferenceTable(im.resolver)
	skipped := make(map[domain.TemplateName]struct{})

	for number := 1; len(ws) > 0; number++ {
		next, it, err := im.step(ctx, logger, table, ws, number)
		if err != nil {
			result.Processed = table.Processed()
			return result, fmt.Errorf("iteration %d: %w", number, err)
		}
		if it == nil {
			break
		}
		result.Iterations = append(result.Iterations, *it)
		for _, name := range it.Skipped {
			skipped[name] = struct{}{}
		}
		result.Skipped = append(result.Skipped, it.Skipped...)
		ws = next
	}

	result.Processed = table.Processed()

	if len(ws) > 0 {
		blocked, err := blockedTemplates(ctx, table, ws, skipped)
		if err != nil {
			logger.Error("template import left unresolved templates", "remaining", len(ws), "error", err)
			return result, err
		}
		for _, name := range blocked {
			logger.Warn("template skipped, parent was not imported", "template", name)
		}
		result.Skipped = append(result.Skipped, blocked...)
	}

	created, updated, skippedCount := result.Counts()
	logger.Info("template import finished",
		"iterations", len(result.Iterations),
		"created", created,
		"updated", updated,
		"skipped", skippedCount)
	return result, nil
}

// step runs one iteration. It returns a nil Iteration when no remaining
// definition is independent.
func (im *Importer) step(ctx context.Context, logger *slog.Logger, table *ReferenceTable, ws workingSet, number int) (workingSet, *Iteration, error) {
	if err := ctx.Err(); err != nil {
		return ws, nil, err
	}

	independent, err := independentTemplates(ctx, table, ws)
	if err != nil {
		return ws, nil, err
	}
	if len(independent) == 0 {
		return ws, nil, nil
	}

	var toCreate, toUpdate []domain.TemplateRecord
	for _, name := range independent {
		existingID, exists, err := table.ResolveTemplate(ctx, name)
		if err != nil {
			return ws, nil, err
		}
		record, err := resolveReferences(ctx, table, ws[name], im.opts.CreateMissingLinkage)
		if err != nil {
			return ws, nil, err
		}
		if exists {
			record.ID = existingID
			toUpdate = append(toUpdate, record)
		} else {
			toCreate = append(toCreate, record)
		}
	}

	it := &Iteration{Number: number}

	if len(toCreate) > 0 {
		if im.opts.CreateMissingTemplates {
			logger.Debug("creating templates", "iteration", number, "count", len(toCreate))
			ids, err := im.api.CreateTemplates(ctx, toCreate)
			if err != nil {
				return ws, nil, remoteError("create", err)
			}
			if len(ids) != len(toCreate) {
				return ws, nil, domain.ErrRemote("create",
					fmt.Errorf("backend returned %d identifiers for %d templates", len(ids), len(toCreate)))
			}
			for i, record := range toCreate {
				table.RegisterCreatedTemplate(record.Name, ids[i])
				table.MarkProcessed(record.Name)
				it.Created = append(it.Created, record.Name)
			}
		} else {
			for _, record := range toCreate {
				it.Skipped = append(it.Skipped, record.Name)
			}
		}
	}

	if len(toUpdate) > 0 {
		if im.opts.UpdateExistingTemplates {
			logger.Debug("updating templates", "iteration", number, "count", len(toUpdate))
			if err := im.api.UpdateTemplates(ctx, toUpdate); err != nil {
				return ws, nil, remoteError("update", err)
			}
			for _, record := range toUpdate {
				table.MarkProcessed(record.Name)
				it.Updated = append(it.Updated, record.Name)
			}
		} else {
			for _, record := range toUpdate {
				it.Skipped = append(it.Skipped, record.Name)
			}
		}
	}

	logger.Info("import iteration",
		"iteration", number,
		"independent", len(independent),
		"created", len(it.Created),
		"updated", len(it.Updated),
		"skipped", len(it.Skipped))

	return ws.without(independent), it, nil
}

// independentTemplates returns, sorted, the names of definitions whose parent
// references all resolve. Definitions without parents are always included.
func independentTemplates(ctx context.Context, table *ReferenceTable, ws workingSet) ([]domain.TemplateName, error) {
	var out []domain.TemplateName
	for _, name := range ws.names() {
		ready := true
		for _, parent := range ws[name].Parents {
			_, ok, err := table.ResolveTemplate(ctx, parent)
			if err != nil {
				return nil, err
			}
			if !ok {
				ready = false
				break
			}
		}
		if ready {
			out = append(out, name)
		}
	}
	return out, nil
}

// resolveReferences rewrites group and parent names of def to identifiers.
// link marks the record as managing parent linkage.
func resolveReferences(ctx context.Context, table *ReferenceTable, def domain.TemplateDefinition, link bool) (domain.TemplateRecord, error) {
	record := domain.TemplateRecord{
		Name:        def.Name,
		VisibleName: def.VisibleName,
		Description: def.Description,
		Macros:      def.Macros,
		LinkParents: link,
	}

	for _, group := range def.Groups {
		id, ok, err := table.ResolveGroup(ctx, group)
		if err != nil {
			return record, err
		}
		if !ok {
			return record, domain.ErrUnresolvedGroup(group, def.Name)
		}
		record.GroupIDs = append(record.GroupIDs, id)
	}

	for _, parent := range def.Parents {
		id, ok, err := table.ResolveTemplate(ctx, parent)
		if err != nil {
			return record, err
		}
		if !ok {
			return record, domain.ErrUnresolvedParent(parent, def.Name)
		}
		record.ParentIDs = append(record.ParentIDs, id)
	}

	return record, nil
}

// blockedTemplates classifies the definitions left over once no iteration can
// make progress. A definition is blocked when one of its parents was skipped
// by the run, directly or transitively; blocked names are returned sorted. Any
// other leftover references a parent that was never defined and never existed,
// which is reported as an error.
func blockedTemplates(ctx context.Context, table *ReferenceTable, ws workingSet, skipped map[domain.TemplateName]struct{}) ([]domain.TemplateName, error) {
	names := ws.names()
	blocked := make(map[domain.TemplateName]bool, len(ws))

	for changed := true; changed; {
		changed = false
		for _, name := range names {
			if blocked[name] {
				continue
			}
			for _, parent := range ws[name].Parents {
				if _, ok := skipped[parent]; ok || blocked[parent] {
					blocked[name] = true
					changed = true
					break
				}
			}
		}
	}

	var out []domain.TemplateName
	for _, name := range names {
		if blocked[name] {
			out = append(out, name)
			continue
		}
		for _, parent := range ws[name].Parents {
			_, ok, err := table.ResolveTemplate(ctx, parent)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, domain.ErrUnresolvedParent(parent, name)
			}
		}
	}
	return out, nil
}

func remoteError(operation string, err error) error {
	var remote *domain.RemoteOperationError
	if errors.As(err, &remote) {
		return err
	}
	return domain.ErrRemote(operation, err)
}
