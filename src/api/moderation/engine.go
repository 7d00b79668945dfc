// Package moderation applies approve/reject/override decisions to
// moderatable items and maintains the pending-queue read-model.
package moderation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/campusnet/modboard/src/api/access"
	"github.com/campusnet/modboard/src/api/audit"
	"github.com/campusnet/modboard/src/api/notify"
	"github.com/campusnet/modboard/src/api/types"
	"gorm.io/gorm"
)

type Engine struct {
	db       *gorm.DB
	log      *audit.Log
	notifier notify.Notifier
}

func NewEngine(db *gorm.DB, log *audit.Log, notifier notify.Notifier) *Engine {
	return &Engine{db: db, log: log, notifier: notifier}
}

// transition returns (required current status, resulting status, override)
// for an action, or an error for an unknown action.
func transition(action string) (string, string, bool, error) {
	switch action {
	case types.ActionApprove:
		return types.ItemPending, types.ItemApproved, false, nil
	case types.ActionReject:
		return types.ItemPending, types.ItemRejected, false, nil
	case types.ActionOverrideApprove:
		return types.ItemRejected, types.ItemApproved, true, nil
	case types.ActionOverrideReject:
		return types.ItemApproved, types.ItemRejected, true, nil
	}
	return "", "", false, fmt.Errorf("%w: unknown action %q", types.ErrValidation, action)
}

// Decide validates and applies one decision. The status flip, version bump
// and audit append happen in one transaction with the current status in the
// WHERE clause, so of two concurrent calls on the same item exactly one
// commits; the other sees no rows updated and fails with ErrInvalidState.
// The event publishes only after commit.
func (e *Engine) Decide(ctx context.Context, kind string, itemID uint64, action, reason string, caller access.Identity) (*types.Item, *types.AuditRecord, error) {
	if !types.ValidItemKind(kind) {
		return nil, nil, fmt.Errorf("%w: unknown kind %q", types.ErrValidation, kind)
	}
	from, to, override, err := transition(action)
	if err != nil {
		return nil, nil, err
	}

	reason = strings.TrimSpace(reason)
	if reason == "" && action != types.ActionApprove {
		return nil, nil, fmt.Errorf("%w: reason is required for %s", types.ErrValidation, action)
	}

	var item types.Item
	if err := e.db.WithContext(ctx).First(&item, "id = ? AND kind = ?", itemID, kind).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, fmt.Errorf("%w: %s %d", types.ErrNotFound, kind, itemID)
		}
		return nil, nil, err
	}

	if override {
		if !caller.CanOverride(&item) {
			return nil, nil, fmt.Errorf("%w: override on %s requires admin authority in scope %s", types.ErrForbidden, kind, item.Scope)
		}
	} else if !caller.CanDecide(&item) {
		return nil, nil, fmt.Errorf("%w: no decision authority in scope %s", types.ErrForbidden, item.Scope)
	}

	if item.Status != from {
		return nil, nil, fmt.Errorf("%w: %s requires status %s, item is %s", types.ErrInvalidState, action, from, item.Status)
	}

	rec := &types.AuditRecord{
		TargetKind: item.Kind,
		TargetID:   item.ID,
		Action:     action,
		OldStatus:  from,
		NewStatus:  to,
		Reason:     reason,
		Moderator:  caller.Subject,
		ScopeLabel: item.Scope,
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&types.Item{}).
			Where("id = ? AND status = ? AND version = ?", item.ID, from, item.Version).
			Updates(map[string]any{"status": to, "version": item.Version + 1})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// lost the race to a concurrent decision
			return fmt.Errorf("%w: item %d already transitioned", types.ErrInvalidState, item.ID)
		}
		return e.log.Append(tx, rec)
	})
	if err != nil {
		return nil, nil, err
	}

	item.Status = to
	item.Version++

	suffix := "approved"
	if to == types.ItemRejected {
		suffix = "rejected"
	}
	e.notifier.Publish(ctx, notify.Event{
		Name:     item.Kind + "." + suffix,
		TargetID: strconv.FormatUint(item.ID, 10),
		Scope:    item.Scope,
	})

	return &item, rec, nil
}
