package roles

import (
	"errors"
	"fmt"
	"sort"

	"github.com/knowflow/permd/internal/catalog"
)

var (
	// ErrUnknownRole indicates a role code absent from the catalog.
	ErrUnknownRole = errors.New("roles: unknown role code")
	// ErrCyclicRole indicates a role that directly or transitively
	// implies itself. Detected when the catalog is built, never at
	// request time.
	ErrCyclicRole = errors.New("roles: cyclic role definition")
)

// Catalog holds the role hierarchy with each role's permission closure
// precomputed. The hierarchy is static after load, so Resolve is a map
// lookup on the request path.
type Catalog struct {
	roles    map[string]Role
	resolved map[string]map[string]struct{}
}

// NewCatalog validates the given role definitions and precomputes the
// implies closure of every role. Each permission code must exist in the
// permission catalog and the implies relation must be acyclic; violations
// are configuration bugs and abort startup.
func NewCatalog(perms *catalog.Catalog, defs []Role) (*Catalog, error) {
	c := &Catalog{
		roles:    make(map[string]Role, len(defs)),
		resolved: make(map[string]map[string]struct{}, len(defs)),
	}
	for _, def := range defs {
		if def.Code == "" {
			return nil, errors.New("roles: role code required")
		}
		if _, dup := c.roles[def.Code]; dup {
			return nil, fmt.Errorf("roles: duplicate role %q", def.Code)
		}
		for _, code := range def.Permissions {
			if _, err := perms.Lookup(code); err != nil {
				return nil, fmt.Errorf("roles: role %q: %w", def.Code, err)
			}
		}
		c.roles[def.Code] = def
	}
	for code := range c.roles {
		set := make(map[string]struct{})
		onStack := map[string]struct{}{}
		if err := c.expand(code, set, onStack); err != nil {
			return nil, err
		}
		c.resolved[code] = set
	}
	return c, nil
}

// expand walks the implies graph depth-first, accumulating permission
// codes into set. onStack tracks the current path so that revisiting a
// role signals a cycle.
func (c *Catalog) expand(code string, set map[string]struct{}, onStack map[string]struct{}) error {
	if _, ok := onStack[code]; ok {
		return fmt.Errorf("%w: %q implies itself", ErrCyclicRole, code)
	}
	role, ok := c.roles[code]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRole, code)
	}
	onStack[code] = struct{}{}
	for _, p := range role.Permissions {
		set[p] = struct{}{}
	}
	for _, implied := range role.Implies {
		if err := c.expand(implied, set, onStack); err != nil {
			return err
		}
	}
	delete(onStack, code)
	return nil
}

// Resolve returns the sorted transitive permission set for the role.
func (c *Catalog) Resolve(code string) ([]string, error) {
	set, ok := c.resolved[code]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, code)
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

// Lookup returns the role definition for code.
func (c *Catalog) Lookup(code string) (Role, error) {
	role, ok := c.roles[code]
	if !ok {
		return Role{}, fmt.Errorf("%w: %q", ErrUnknownRole, code)
	}
	return role, nil
}

// All returns every role ordered by code.
func (c *Catalog) All() []Role {
	out := make([]Role, 0, len(c.roles))
	for _, role := range c.roles {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
