// Package access resolves a caller's role and home institution into the
// capability predicates that gate every mutating operation. It is the only
// place authority rules live; handlers and engines ask, they never decide.
package access

import (
	"github.com/campusnet/modboard/src/api/types"
)

// Identity is a resolved caller: the JWT subject plus whatever the staff
// registry says about them. Unknown subjects resolve to role user.
type Identity struct {
	Subject   string
	Role      string
	HomeScope string // empty for dev_admin and plain users
}

// Guest marks identities produced by the guest gate. They carry no role at
// all; ticket handlers authorize them against the bound ticket directly.
func (id Identity) Guest() bool { return id.Role == "" }

// CanView reports whether the caller may see entities in the given scope.
func (id Identity) CanView(scope string) bool {
	switch id.Role {
	case types.RoleDevAdmin:
		return true
	case types.RoleCampusAdmin, types.RoleCampusModerator:
		return scope == id.HomeScope
	case types.RoleCrossAdmin, types.RoleCrossModerator:
		return scope == types.ScopeCross
	}
	return false
}

// VisibleScopes returns the scope filter for queue and audit queries: nil
// means unrestricted (dev_admin), an empty slice means no visibility.
func (id Identity) VisibleScopes() []string {
	switch id.Role {
	case types.RoleDevAdmin:
		return nil
	case types.RoleCampusAdmin, types.RoleCampusModerator:
		if id.HomeScope == "" {
			return []string{}
		}
		return []string{id.HomeScope}
	case types.RoleCrossAdmin, types.RoleCrossModerator:
		return []string{types.ScopeCross}
	}
	return []string{}
}

// CanDecide reports whether the caller may make an initial approve/reject
// decision on the item.
func (id Identity) CanDecide(item *types.Item) bool {
	switch id.Role {
	case types.RoleDevAdmin:
		return true
	case types.RoleCampusAdmin, types.RoleCampusModerator:
		return item.Scope == id.HomeScope
	case types.RoleCrossAdmin, types.RoleCrossModerator:
		return item.Scope == types.ScopeCross
	}
	return false
}

// CanOverride reports whether the caller may reverse a finalized decision.
// Moderators never override; admins only within their own scope.
func (id Identity) CanOverride(item *types.Item) bool {
	switch id.Role {
	case types.RoleDevAdmin:
		return true
	case types.RoleCampusAdmin:
		return item.Scope == id.HomeScope
	case types.RoleCrossAdmin:
		return item.Scope == types.ScopeCross
	}
	return false
}

// CanManage reports whether the caller may work a ticket: change status,
// reply as staff, read internal notes.
func (id Identity) CanManage(t *types.Ticket) bool {
	switch id.Role {
	case types.RoleDevAdmin:
		return true
	case types.RoleCampusAdmin:
		return t.Scope == id.HomeScope
	case types.RoleCrossAdmin:
		return t.Scope == types.ScopeCross
	}
	return false
}

// CanAssign reports whether the caller may bind a ticket to an admin.
// Assignment redirects responsibility to a named individual, so it is held
// to the top role only.
func (id Identity) CanAssign() bool {
	return id.Role == types.RoleDevAdmin
}

// CanReopen reports whether the caller may pull a closed ticket back to
// open. Closed is terminal for everyone else.
func (id Identity) CanReopen() bool {
	return id.Role == types.RoleDevAdmin
}

// Owns reports whether the caller is the ticket's authenticated submitter.
func (id Identity) Owns(t *types.Ticket) bool {
	return t.SubmitterID != "" && t.SubmitterID == id.Subject
}
