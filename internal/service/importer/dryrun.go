package importer

import (
	"context"

	"zbx-import/internal/domain"
)

// DryRunIDPrefix prefixes the placeholder identifiers handed out by DryRunAPI.
const DryRunIDPrefix = "new:"

// DryRunAPI is a TemplateAPI that records batches instead of persisting them.
// Paired with a real resolver it previews the iterations an import would run.
type DryRunAPI struct {
	Created []domain.TemplateRecord
	Updated []domain.TemplateRecord
}

var _ domain.TemplateAPI = (*DryRunAPI)(nil)

// CreateTemplates records batch and returns one placeholder id per record.
func (d *DryRunAPI) CreateTemplates(_ context.Context, batch []domain.TemplateRecord) ([]domain.TemplateID, error) {
	ids := make([]domain.TemplateID, len(batch))
	for i, record := range batch {
		ids[i] = domain.TemplateID(DryRunIDPrefix + string(record.Name))
	}
	d.Created = append(d.Created, batch...)
	return ids, nil
}

// UpdateTemplates records batch.
func (d *DryRunAPI) UpdateTemplates(_ context.Context, batch []domain.TemplateRecord) error {
	d.Updated = append(d.Updated, batch...)
	return nil
}
