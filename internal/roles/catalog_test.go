package roles

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/knowflow/permd/internal/catalog"
)

func TestResolveClosure(t *testing.T) {
	perms := catalog.New()
	defs := []Role{
		{Code: "viewer", Permissions: []string{"kb_read"}},
		{Code: "editor", Permissions: []string{"kb_read", "kb_write"}, Implies: []string{"viewer"}},
		{Code: "admin", Permissions: []string{"kb_delete", "kb_share"}, Implies: []string{"editor"}},
	}
	c, err := NewCatalog(perms, defs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := c.Resolve("admin")
	if err != nil {
		t.Fatalf("resolve admin: %v", err)
	}
	want := []string{"kb_delete", "kb_read", "kb_share", "kb_write"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("admin closure mismatch: got %v want %v", got, want)
	}

	got, err = c.Resolve("viewer")
	if err != nil {
		t.Fatalf("resolve viewer: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"kb_read"}) {
		t.Fatalf("viewer closure mismatch: got %v", got)
	}
}

func TestDiamondHierarchyNotACycle(t *testing.T) {
	perms := catalog.New()
	defs := []Role{
		{Code: "base", Permissions: []string{"kb_read"}},
		{Code: "left", Permissions: []string{"kb_write"}, Implies: []string{"base"}},
		{Code: "right", Permissions: []string{"kb_share"}, Implies: []string{"base"}},
		{Code: "top", Permissions: []string{"kb_delete"}, Implies: []string{"left", "right"}},
	}
	c, err := NewCatalog(perms, defs)
	if err != nil {
		t.Fatalf("diamond hierarchy rejected: %v", err)
	}
	got, err := c.Resolve("top")
	if err != nil {
		t.Fatalf("resolve top: %v", err)
	}
	want := []string{"kb_delete", "kb_read", "kb_share", "kb_write"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("top closure mismatch: got %v want %v", got, want)
	}
}

func TestCycleRejectedAtLoad(t *testing.T) {
	perms := catalog.New()
	defs := []Role{
		{Code: "a", Permissions: []string{"kb_read"}, Implies: []string{"b"}},
		{Code: "b", Permissions: []string{"kb_write"}, Implies: []string{"a"}},
	}
	_, err := NewCatalog(perms, defs)
	if !errors.Is(err, ErrCyclicRole) {
		t.Fatalf("expected ErrCyclicRole, got %v", err)
	}
}

func TestSelfImplyRejected(t *testing.T) {
	perms := catalog.New()
	defs := []Role{
		{Code: "a", Permissions: []string{"kb_read"}, Implies: []string{"a"}},
	}
	_, err := NewCatalog(perms, defs)
	if !errors.Is(err, ErrCyclicRole) {
		t.Fatalf("expected ErrCyclicRole, got %v", err)
	}
}

func TestUnknownImpliedRole(t *testing.T) {
	perms := catalog.New()
	defs := []Role{
		{Code: "a", Permissions: []string{"kb_read"}, Implies: []string{"ghost"}},
	}
	_, err := NewCatalog(perms, defs)
	if !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}

func TestUnknownPermissionRejected(t *testing.T) {
	perms := catalog.New()
	defs := []Role{
		{Code: "a", Permissions: []string{"kb_levitate"}},
	}
	_, err := NewCatalog(perms, defs)
	if !errors.Is(err, catalog.ErrUnknownPermission) {
		t.Fatalf("expected ErrUnknownPermission, got %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load(catalog.New(), "")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	got, err := c.Resolve("super_admin")
	if err != nil {
		t.Fatalf("resolve super_admin: %v", err)
	}
	set := make(map[string]struct{}, len(got))
	for _, p := range got {
		set[p] = struct{}{}
	}
	for _, p := range []string{"system_manage", "kb_delete", "kb_write", "kb_read"} {
		if _, ok := set[p]; !ok {
			t.Fatalf("super_admin missing %s", p)
		}
	}
}

func TestLoadOverlayFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yml")
	content := []byte(`roles:
  - code: viewer
    name: Read Only
    permissions: [kb_read]
  - code: auditor
    name: Auditor
    permissions: [kb_read, doc_read]
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write catalog file: %v", err)
	}
	c, err := Load(catalog.New(), path)
	if err != nil {
		t.Fatalf("load overlay: %v", err)
	}

	viewer, err := c.Resolve("viewer")
	if err != nil {
		t.Fatalf("resolve viewer: %v", err)
	}
	if !reflect.DeepEqual(viewer, []string{"kb_read"}) {
		t.Fatalf("viewer override not applied: %v", viewer)
	}

	auditor, err := c.Resolve("auditor")
	if err != nil {
		t.Fatalf("resolve auditor: %v", err)
	}
	if !reflect.DeepEqual(auditor, []string{"doc_read", "kb_read"}) {
		t.Fatalf("auditor closure mismatch: %v", auditor)
	}
}
