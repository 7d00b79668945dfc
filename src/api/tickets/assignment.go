package tickets

import (
	"context"
	"fmt"
	"time"

	"github.com/campusnet/modboard/src/api/access"
	"github.com/campusnet/modboard/src/api/notify"
	"github.com/campusnet/modboard/src/api/types"
	"gorm.io/gorm"
)

// Assigner binds tickets to admin identities. Assignment is a separate
// authority from ticket management and never touches the status field.
type Assigner struct {
	db       *gorm.DB
	notifier notify.Notifier
}

func NewAssigner(db *gorm.DB, notifier notify.Notifier) *Assigner {
	return &Assigner{db: db, notifier: notifier}
}

// Assign sets the ticket's assignee. adminID must resolve to an
// admin-capable staff identity.
func (a *Assigner) Assign(ctx context.Context, publicID, adminID string, caller access.Identity) (*types.Ticket, error) {
	if !caller.CanAssign() {
		return nil, fmt.Errorf("%w: assignment requires platform admin", types.ErrForbidden)
	}

	var staff types.Staff
	if err := a.db.WithContext(ctx).First(&staff, "id = ?", adminID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: admin %s", types.ErrNotFound, adminID)
		}
		return nil, err
	}
	if !types.AdminCapable(staff.Role) {
		return nil, fmt.Errorf("%w: %s cannot hold assignments", types.ErrNotFound, adminID)
	}

	return a.set(ctx, publicID, &staff.ID, "ticket.assigned")
}

// Unassign clears the ticket's assignee.
func (a *Assigner) Unassign(ctx context.Context, publicID string, caller access.Identity) (*types.Ticket, error) {
	if !caller.CanAssign() {
		return nil, fmt.Errorf("%w: assignment requires platform admin", types.ErrForbidden)
	}
	return a.set(ctx, publicID, nil, "ticket.unassigned")
}

func (a *Assigner) set(ctx context.Context, publicID string, assignee *string, event string) (*types.Ticket, error) {
	var t types.Ticket
	if err := a.db.WithContext(ctx).First(&t, "public_id = ?", publicID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: ticket %s", types.ErrNotFound, publicID)
		}
		return nil, err
	}

	now := time.Now()
	if err := a.db.WithContext(ctx).Model(&types.Ticket{}).
		Where("id = ?", t.ID).
		Updates(map[string]any{"assigned_to": assignee, "last_activity_at": now}).Error; err != nil {
		return nil, err
	}

	t.AssignedTo = assignee
	t.LastActivityAt = now
	a.notifier.Publish(ctx, notify.Event{Name: event, TargetID: t.PublicID, Scope: t.Scope})
	return &t, nil
}
