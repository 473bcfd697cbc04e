package catalog

// ResourceType is a closed category of protected entities.
type ResourceType string

const (
	ResourceKnowledgebase ResourceType = "knowledgebase"
	ResourceDocument      ResourceType = "document"
	ResourceTeam          ResourceType = "team"
	ResourceSystem        ResourceType = "system"
)

// Valid reports whether rt is one of the known resource types.
func (rt ResourceType) Valid() bool {
	switch rt {
	case ResourceKnowledgebase, ResourceDocument, ResourceTeam, ResourceSystem:
		return true
	}
	return false
}

// Operation classifies what a permission lets its holder do.
type Operation string

const (
	OpRead   Operation = "read"
	OpWrite  Operation = "write"
	OpDelete Operation = "delete"
	OpShare  Operation = "share"
	OpManage Operation = "manage"
)

// Permission is an atomic capability tied to a resource type.
// Immutable once seeded.
type Permission struct {
	Code         string
	ResourceType ResourceType
	Operation    Operation
}
