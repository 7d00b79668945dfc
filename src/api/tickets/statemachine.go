// Package tickets governs the support-ticket lifecycle: status transitions,
// the append-only message thread, and assignment.
package tickets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/campusnet/modboard/src/api/access"
	"github.com/campusnet/modboard/src/api/audit"
	"github.com/campusnet/modboard/src/api/notify"
	"github.com/campusnet/modboard/src/api/types"
	"gorm.io/gorm"
)

const actionSetStatus = "set_status"

type Machine struct {
	db       *gorm.DB
	log      *audit.Log
	notifier notify.Notifier
}

func NewMachine(db *gorm.DB, log *audit.Log, notifier notify.Notifier) *Machine {
	return &Machine{db: db, log: log, notifier: notifier}
}

// Load fetches a ticket by its public id.
func (m *Machine) Load(ctx context.Context, publicID string) (*types.Ticket, error) {
	var t types.Ticket
	if err := m.db.WithContext(ctx).First(&t, "public_id = ?", publicID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: ticket %s", types.ErrNotFound, publicID)
		}
		return nil, err
	}
	return &t, nil
}

// SetStatus applies an explicit status change. There is no transition graph
// between the five states except that closed is terminal: only a reopen by
// the top role leaves it, and only back to open. Every accepted change
// writes one audit record in the same transaction and publishes
// ticket.updated after commit.
func (m *Machine) SetStatus(ctx context.Context, publicID, status string, caller access.Identity) (*types.Ticket, error) {
	if !types.ValidTicketStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", types.ErrValidation, status)
	}

	t, err := m.Load(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if !caller.CanManage(t) {
		return nil, fmt.Errorf("%w: no manage authority for ticket %s", types.ErrForbidden, publicID)
	}
	if t.Status == status {
		return nil, fmt.Errorf("%w: ticket already %s", types.ErrInvalidState, status)
	}
	if t.Status == types.TicketClosed {
		if !caller.CanReopen() {
			return nil, fmt.Errorf("%w: ticket is closed", types.ErrInvalidState)
		}
		if status != types.TicketOpen {
			return nil, fmt.Errorf("%w: a closed ticket can only be reopened", types.ErrInvalidState)
		}
	}

	rec := &types.AuditRecord{
		TargetKind: "ticket",
		TargetID:   t.ID,
		Action:     actionSetStatus,
		OldStatus:  t.Status,
		NewStatus:  status,
		Moderator:  caller.Subject,
		ScopeLabel: t.Scope,
	}

	now := time.Now()
	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&types.Ticket{}).
			Where("id = ? AND version = ?", t.ID, t.Version).
			Updates(map[string]any{"status": status, "version": t.Version + 1, "last_activity_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: ticket %s changed concurrently", types.ErrInvalidState, publicID)
		}
		return m.log.Append(tx, rec)
	})
	if err != nil {
		return nil, err
	}

	t.Status = status
	t.Version++
	t.LastActivityAt = now
	m.publishUpdated(ctx, t)
	return t, nil
}

// Reply appends a message to a ticket's thread. The handler has already
// authorized the author (manage authority, ownership, or a guest token) and
// fixed the author type; this enforces the state rules:
//
//   - resolved and closed tickets reject user replies outright; staff may
//     still append (a note on a closed ticket stays closed).
//   - a user reply on awaiting_user moves the ticket to awaiting_admin.
//   - a staff reply on open or awaiting_admin moves it to awaiting_user,
//     unless the message is an internal note.
func (m *Machine) Reply(ctx context.Context, publicID, author, authorType, body string, internal bool) (*types.Ticket, *types.TicketMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, nil, fmt.Errorf("%w: empty message body", types.ErrValidation)
	}
	if authorType != types.AuthorUser && authorType != types.AuthorAdmin {
		return nil, nil, fmt.Errorf("%w: bad author type %q", types.ErrValidation, authorType)
	}
	if internal && authorType != types.AuthorAdmin {
		return nil, nil, fmt.Errorf("%w: internal notes are staff-only", types.ErrForbidden)
	}

	t, err := m.Load(ctx, publicID)
	if err != nil {
		return nil, nil, err
	}

	if authorType == types.AuthorUser &&
		(t.Status == types.TicketResolved || t.Status == types.TicketClosed) {
		return nil, nil, fmt.Errorf("%w: ticket is %s", types.ErrInvalidState, t.Status)
	}

	status := t.Status
	if authorType == types.AuthorUser && t.Status == types.TicketAwaitingUser {
		status = types.TicketAwaitingAdmin
	}
	if authorType == types.AuthorAdmin && !internal &&
		(t.Status == types.TicketOpen || t.Status == types.TicketAwaitingAdmin) {
		status = types.TicketAwaitingUser
	}

	msg := &types.TicketMessage{
		TicketID:   t.ID,
		Author:     author,
		AuthorType: authorType,
		Body:       body,
		Internal:   internal,
		CreatedAt:  time.Now(),
	}

	now := time.Now()
	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&types.Ticket{}).
			Where("id = ? AND version = ?", t.ID, t.Version).
			Updates(map[string]any{"status": status, "version": t.Version + 1, "last_activity_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: ticket %s changed concurrently", types.ErrInvalidState, publicID)
		}
		return tx.Create(msg).Error
	})
	if err != nil {
		return nil, nil, err
	}

	t.Status = status
	t.Version++
	t.LastActivityAt = now
	m.publishUpdated(ctx, t)
	return t, msg, nil
}

// Messages returns a ticket's thread in creation order. Internal notes are
// stripped unless the viewer has staff visibility.
func (m *Machine) Messages(ctx context.Context, t *types.Ticket, includeInternal bool) ([]types.TicketMessage, error) {
	q := m.db.WithContext(ctx).Where("ticket_id = ?", t.ID)
	if !includeInternal {
		q = q.Where("internal = ?", false)
	}
	var msgs []types.TicketMessage
	if err := q.Order("created_at asc, id asc").Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (m *Machine) publishUpdated(ctx context.Context, t *types.Ticket) {
	m.notifier.Publish(ctx, notify.Event{
		Name:     "ticket.updated",
		TargetID: t.PublicID,
		Scope:    t.Scope,
	})
}
