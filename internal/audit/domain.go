package audit

import "time"

// Lifecycle actions recorded in the permission audit trail.
const (
	ActionGrant  = "permission.grant"
	ActionRevoke = "permission.revoke"
)

// Entry is one grant lifecycle event.
type Entry struct {
	ActorID    string
	Action     string
	UserID     string
	RoleCode   string
	Scope      string
	Meta       map[string]any
	OccurredAt time.Time
}

// TimelineFilters narrows a timeline query.
type TimelineFilters struct {
	From     time.Time
	To       time.Time
	Actor    string
	Action   string
	UserID   string
	Page     int
	PageSize int
}

// TimelineRow is one row of the audit timeline.
type TimelineRow struct {
	At       time.Time      `json:"at"`
	Actor    string         `json:"actor"`
	Action   string         `json:"action"`
	UserID   string         `json:"user_id"`
	RoleCode string         `json:"role_code"`
	Scope    string         `json:"scope"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// PagingInfo carries pagination metadata.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result wraps timeline rows with paging information.
type Result struct {
	Rows   []TimelineRow `json:"rows"`
	Paging PagingInfo    `json:"paging"`
}
