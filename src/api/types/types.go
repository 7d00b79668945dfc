package types

import "time"

// Item kinds
const (
	KindPost          = "post"
	KindMedia         = "media"
	KindDeleteRequest = "delete_request"
)

// Item statuses
const (
	ItemPending  = "pending"
	ItemApproved = "approved"
	ItemRejected = "rejected"
)

// Decision actions
const (
	ActionApprove         = "approve"
	ActionReject          = "reject"
	ActionOverrideApprove = "override_approve"
	ActionOverrideReject  = "override_reject"
)

// ScopeCross is the sentinel scope for content shared across institutions.
// Every other scope value is a single institution slug.
const ScopeCross = "cross-institution"

// Staff roles
const (
	RoleDevAdmin        = "dev_admin"
	RoleCampusAdmin     = "campus_admin"
	RoleCrossAdmin      = "cross_admin"
	RoleCampusModerator = "campus_moderator"
	RoleCrossModerator  = "cross_moderator"
	RoleUser            = "user"
)

// Ticket statuses
const (
	TicketOpen          = "open"
	TicketAwaitingAdmin = "awaiting_admin"
	TicketAwaitingUser  = "awaiting_user"
	TicketResolved      = "resolved"
	TicketClosed        = "closed"
)

// Message author types
const (
	AuthorUser  = "user"
	AuthorAdmin = "admin"
)

// Item is a moderatable submission (post, media attachment or delete
// request). Status only ever changes through the decision engine; Version
// backs the optimistic check that serializes concurrent decisions.
type Item struct {
	ID                   uint64    `gorm:"primaryKey" json:"id"`
	Kind                 string    `gorm:"size:32;index;not null" json:"kind"`
	Status               string    `gorm:"size:16;index;not null;default:pending" json:"status"`
	Scope                string    `gorm:"size:64;index;not null" json:"scope"`
	SubmitterID          string    `gorm:"size:128" json:"submitter"`
	SubmitterFingerprint string    `gorm:"size:256" json:"-"`
	Title                string    `gorm:"size:255" json:"title"`
	Excerpt              string    `gorm:"type:text" json:"excerpt"`
	Version              uint32    `gorm:"not null;default:1" json:"-"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// AuditRecord is one row per applied transition. Append-only: nothing in
// this codebase updates or deletes rows of this table.
type AuditRecord struct {
	ID         uint64    `gorm:"primaryKey" json:"id"`
	TargetKind string    `gorm:"size:32;index:idx_audit_target;not null" json:"targetKind"`
	TargetID   uint64    `gorm:"index:idx_audit_target;not null" json:"targetId"`
	Action     string    `gorm:"size:32;not null" json:"action"`
	OldStatus  string    `gorm:"size:16;not null" json:"oldStatus"`
	NewStatus  string    `gorm:"size:16;not null" json:"newStatus"`
	Reason     string    `gorm:"type:text" json:"reason"`
	Moderator  string    `gorm:"size:128;index;not null" json:"moderator"`
	ScopeLabel string    `gorm:"size:64;index" json:"scopeLabel"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Ticket is a support request. PublicID is the identifier exposed to
// submitters and guest links; the numeric ID stays internal.
type Ticket struct {
	ID             uint64    `gorm:"primaryKey" json:"-"`
	PublicID       string    `gorm:"size:36;uniqueIndex;not null" json:"id"`
	Subject        string    `gorm:"size:255;not null" json:"subject"`
	Category       string    `gorm:"size:64" json:"category"`
	Priority       string    `gorm:"size:16;index" json:"priority"`
	Status         string    `gorm:"size:16;index;not null;default:open" json:"status"`
	Scope          string    `gorm:"size:64;index;not null" json:"scope"`
	SubmitterID    string    `gorm:"size:128;index" json:"submitter,omitempty"`
	GuestEmail     string    `gorm:"size:256" json:"guestEmail,omitempty"`
	AssignedTo     *string   `gorm:"size:128;index" json:"assignedTo"`
	Version        uint32    `gorm:"not null;default:1" json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
}

// TicketMessage is one entry of a ticket's thread. Append-only; Internal
// messages are admin notes never shown to the submitter.
type TicketMessage struct {
	ID         uint64    `gorm:"primaryKey" json:"id"`
	TicketID   uint64    `gorm:"index;not null" json:"-"`
	Author     string    `gorm:"size:128;not null" json:"author"`
	AuthorType string    `gorm:"size:8;not null" json:"authorType"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	Internal   bool      `gorm:"default:false" json:"internal"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Staff is the identity registry for everyone with a role above plain user.
// JWT subjects resolve against this table; anyone not present is a user.
type Staff struct {
	ID          string  `gorm:"primaryKey;size:128" json:"id"`
	DisplayName string  `gorm:"size:128" json:"displayName"`
	Role        string  `gorm:"size:32;not null" json:"role"`
	HomeScope   *string `gorm:"size:64" json:"homeScope"`
}

// Settings
type Setting struct {
	ID    uint8  `gorm:"primaryKey"`
	Name  string `gorm:"size:32;not null"`
	Value string `gorm:"size:256;not null"`
}

// AdminCapable reports whether a role may hold ticket assignments.
func AdminCapable(role string) bool {
	switch role {
	case RoleDevAdmin, RoleCampusAdmin, RoleCrossAdmin:
		return true
	}
	return false
}

// ValidItemKind reports whether k names a moderatable kind.
func ValidItemKind(k string) bool {
	return k == KindPost || k == KindMedia || k == KindDeleteRequest
}

// ValidTicketStatus reports whether s is one of the five ticket states.
func ValidTicketStatus(s string) bool {
	switch s {
	case TicketOpen, TicketAwaitingAdmin, TicketAwaitingUser, TicketResolved, TicketClosed:
		return true
	}
	return false
}
