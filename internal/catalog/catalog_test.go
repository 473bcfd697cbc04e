package catalog

import (
	"errors"
	"testing"
)

func TestLookupKnownCode(t *testing.T) {
	c := New()
	p, err := c.Lookup("kb_delete")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ResourceType != ResourceKnowledgebase {
		t.Fatalf("expected knowledgebase resource type, got %s", p.ResourceType)
	}
	if p.Operation != OpDelete {
		t.Fatalf("expected delete operation, got %s", p.Operation)
	}
}

func TestLookupUnknownCode(t *testing.T) {
	c := New()
	_, err := c.Lookup("kb_teleport")
	if !errors.Is(err, ErrUnknownPermission) {
		t.Fatalf("expected ErrUnknownPermission, got %v", err)
	}
}

func TestAllForResourceType(t *testing.T) {
	c := New()
	perms := c.AllForResourceType(ResourceKnowledgebase)
	if len(perms) != 5 {
		t.Fatalf("expected 5 knowledgebase permissions, got %d", len(perms))
	}
	for _, p := range perms {
		if p.ResourceType != ResourceKnowledgebase {
			t.Fatalf("permission %s has wrong resource type %s", p.Code, p.ResourceType)
		}
	}
	if got := c.AllForResourceType(ResourceType("widget")); len(got) != 0 {
		t.Fatalf("expected no permissions for unknown type, got %d", len(got))
	}
}

func TestResourceTypeValid(t *testing.T) {
	if !ResourceDocument.Valid() {
		t.Fatal("document should be valid")
	}
	if ResourceType("widget").Valid() {
		t.Fatal("widget should not be valid")
	}
}
