package zabbixapi

import (
	"context"
	"fmt"

	"zbx-import/internal/domain"
)

var (
	_ domain.ReferenceResolver = (*Client)(nil)
	_ domain.TemplateAPI       = (*Client)(nil)
)

type groupRef struct {
	GroupID string `json:"groupid"`
}

type templateRef struct {
	TemplateID string `json:"templateid"`
}

type templateObject struct {
	TemplateID  string         `json:"templateid,omitempty"`
	Host        string         `json:"host"`
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Groups      []groupRef     `json:"groups"`
	Templates   *[]templateRef `json:"templates,omitempty"`
	Macros      []domain.Macro `json:"macros"`
}

type templateIDs struct {
	TemplateIDs []string `json:"templateids"`
}

func getParams(output, field, value string) map[string]any {
	return map[string]any{
		"output": []string{output},
		"filter": map[string][]string{field: {value}},
	}
}

// ResolveGroupID implements domain.ReferenceResolver.
func (c *Client) ResolveGroupID(ctx context.Context, name domain.GroupName) (domain.GroupID, bool, error) {
	method := "hostgroup.get"
	if c.templateGroups {
		method = "templategroup.get"
	}
	var groups []groupRef
	if err := c.Call(ctx, method, getParams("groupid", "name", string(name)), &groups); err != nil {
		return "", false, err
	}
	if len(groups) == 0 {
		return "", false, nil
	}
	return domain.GroupID(groups[0].GroupID), true, nil
}

// ResolveTemplateID implements domain.ReferenceResolver.
func (c *Client) ResolveTemplateID(ctx context.Context, name domain.TemplateName) (domain.TemplateID, bool, error) {
	var templates []templateRef
	if err := c.Call(ctx, "template.get", getParams("templateid", "host", string(name)), &templates); err != nil {
		return "", false, err
	}
	if len(templates) == 0 {
		return "", false, nil
	}
	return domain.TemplateID(templates[0].TemplateID), true, nil
}

// CreateTemplates calls template.create with the whole batch.
func (c *Client) CreateTemplates(ctx context.Context, batch []domain.TemplateRecord) ([]domain.TemplateID, error) {
	var out templateIDs
	if err := c.Call(ctx, "template.create", toObjects(batch), &out); err != nil {
		return nil, err
	}
	ids := make([]domain.TemplateID, len(out.TemplateIDs))
	for i, id := range out.TemplateIDs {
		ids[i] = domain.TemplateID(id)
	}
	return ids, nil
}

// UpdateTemplates calls template.update with the whole batch. Groups and
// macros of each record replace the existing ones. Linked templates are sent,
// and so replaced, only for records with LinkParents set.
func (c *Client) UpdateTemplates(ctx context.Context, batch []domain.TemplateRecord) error {
	var out templateIDs
	if err := c.Call(ctx, "template.update", toObjects(batch), &out); err != nil {
		return err
	}
	if len(out.TemplateIDs) != len(batch) {
		return fmt.Errorf("template.update: %d identifiers for %d templates", len(out.TemplateIDs), len(batch))
	}
	return nil
}

func toObjects(batch []domain.TemplateRecord) []templateObject {
	objs := make([]templateObject, len(batch))
	for i, rec := range batch {
		obj := templateObject{
			TemplateID:  string(rec.ID),
			Host:        string(rec.Name),
			Name:        rec.VisibleName,
			Description: rec.Description,
			Groups:      make([]groupRef, 0, len(rec.GroupIDs)),
			Macros:      rec.Macros,
		}
		if obj.Macros == nil {
			obj.Macros = []domain.Macro{}
		}
		for _, id := range rec.GroupIDs {
			obj.Groups = append(obj.Groups, groupRef{GroupID: string(id)})
		}
		if rec.LinkParents {
			parents := make([]templateRef, 0, len(rec.ParentIDs))
			for _, id := range rec.ParentIDs {
				parents = append(parents, templateRef{TemplateID: string(id)})
			}
			obj.Templates = &parents
		}
		objs[i] = obj
	}
	return objs
}
