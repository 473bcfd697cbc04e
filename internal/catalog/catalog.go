package catalog

import (
	"errors"
	"fmt"
)

// ErrUnknownPermission indicates a permission code absent from the catalog.
// A grant or check referencing such a code is a configuration-integrity
// failure, surfaced to the caller rather than retried.
var ErrUnknownPermission = errors.New("catalog: unknown permission code")

// seed is the fixed permission list loaded at process start. No runtime
// mutation happens after New returns.
var seed = []Permission{
	{Code: "kb_read", ResourceType: ResourceKnowledgebase, Operation: OpRead},
	{Code: "kb_write", ResourceType: ResourceKnowledgebase, Operation: OpWrite},
	{Code: "kb_delete", ResourceType: ResourceKnowledgebase, Operation: OpDelete},
	{Code: "kb_share", ResourceType: ResourceKnowledgebase, Operation: OpShare},
	{Code: "kb_manage", ResourceType: ResourceKnowledgebase, Operation: OpManage},
	{Code: "doc_read", ResourceType: ResourceDocument, Operation: OpRead},
	{Code: "doc_write", ResourceType: ResourceDocument, Operation: OpWrite},
	{Code: "doc_delete", ResourceType: ResourceDocument, Operation: OpDelete},
	{Code: "doc_share", ResourceType: ResourceDocument, Operation: OpShare},
	{Code: "team_read", ResourceType: ResourceTeam, Operation: OpRead},
	{Code: "team_write", ResourceType: ResourceTeam, Operation: OpWrite},
	{Code: "team_manage", ResourceType: ResourceTeam, Operation: OpManage},
	{Code: "system_manage", ResourceType: ResourceSystem, Operation: OpManage},
}

// Catalog holds the seeded permission definitions, indexed by code.
type Catalog struct {
	byCode map[string]Permission
	byType map[ResourceType][]Permission
}

// New builds the catalog from the built-in seed list.
func New() *Catalog {
	c := &Catalog{
		byCode: make(map[string]Permission, len(seed)),
		byType: make(map[ResourceType][]Permission),
	}
	for _, p := range seed {
		c.byCode[p.Code] = p
		c.byType[p.ResourceType] = append(c.byType[p.ResourceType], p)
	}
	return c
}

// Lookup returns the permission for code, or ErrUnknownPermission.
func (c *Catalog) Lookup(code string) (Permission, error) {
	p, ok := c.byCode[code]
	if !ok {
		return Permission{}, fmt.Errorf("%w: %q", ErrUnknownPermission, code)
	}
	return p, nil
}

// AllForResourceType returns every permission defined for the given
// resource type.
func (c *Catalog) AllForResourceType(rt ResourceType) []Permission {
	perms := c.byType[rt]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}
