package roles

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/knowflow/permd/internal/catalog"
)

// Defaults is the built-in role hierarchy shipped with the service.
// A catalog file may replace or extend it.
func Defaults() []Role {
	return []Role{
		{Code: "viewer", Name: "Viewer", Permissions: []string{"kb_read", "doc_read", "team_read"}},
		{Code: "editor", Name: "Editor", Permissions: []string{"kb_write", "doc_write"}, Implies: []string{"viewer"}},
		{Code: "admin", Name: "Administrator", Permissions: []string{"kb_delete", "kb_share", "kb_manage", "doc_delete", "doc_share", "team_write", "team_manage"}, Implies: []string{"editor"}},
		{Code: "super_admin", Name: "Super Administrator", Permissions: []string{"system_manage"}, Implies: []string{"admin"}},
	}
}

type catalogFile struct {
	Roles []Role `yaml:"roles"`
}

// Load builds the role catalog from the built-in defaults, overlaid with
// definitions from path when it is non-empty. File roles with a code that
// matches a default replace that default.
func Load(perms *catalog.Catalog, path string) (*Catalog, error) {
	defs := Defaults()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("roles: read catalog file: %w", err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return nil, fmt.Errorf("roles: parse catalog file: %w", err)
		}
		defs = merge(defs, file.Roles)
	}
	return NewCatalog(perms, defs)
}

func merge(defaults, overrides []Role) []Role {
	index := make(map[string]int, len(defaults))
	merged := make([]Role, len(defaults))
	copy(merged, defaults)
	for i, r := range merged {
		index[r.Code] = i
	}
	for _, r := range overrides {
		if i, ok := index[r.Code]; ok {
			merged[i] = r
			continue
		}
		index[r.Code] = len(merged)
		merged = append(merged, r)
	}
	return merged
}
