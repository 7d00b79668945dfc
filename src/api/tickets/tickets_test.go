package tickets

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/campusnet/modboard/src/api/access"
	"github.com/campusnet/modboard/src/api/audit"
	"github.com/campusnet/modboard/src/api/data"
	"github.com/campusnet/modboard/src/api/notify"
	"github.com/campusnet/modboard/src/api/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, data.Migrate(db))
	return db
}

func newTestMachine(t *testing.T) (*Machine, *gorm.DB, *notify.MemoryNotifier) {
	t.Helper()
	db := testDB(t)
	n := notify.NewMemory()
	return NewMachine(db, audit.New(db), n), db, n
}

func seedTicket(t *testing.T, db *gorm.DB, status, scope string) *types.Ticket {
	t.Helper()
	now := time.Now().Add(-time.Hour)
	ticket := &types.Ticket{
		PublicID:       uuid.NewString(),
		Subject:        "cannot log in",
		Category:       "account",
		Priority:       "normal",
		Status:         status,
		Scope:          scope,
		SubmitterID:    "student-9",
		Version:        1,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	require.NoError(t, db.Create(ticket).Error)
	return ticket
}

func campusAdmin(scope string) access.Identity {
	return access.Identity{Subject: "admin-1", Role: types.RoleCampusAdmin, HomeScope: scope}
}

func devAdmin() access.Identity {
	return access.Identity{Subject: "root-1", Role: types.RoleDevAdmin}
}

func owner() access.Identity {
	return access.Identity{Subject: "student-9", Role: types.RoleUser}
}

func TestSetStatusWritesAuditAndEvent(t *testing.T) {
	machine, db, n := newTestMachine(t)
	ticket := seedTicket(t, db, types.TicketOpen, "northfield")

	updated, err := machine.SetStatus(context.Background(), ticket.PublicID, types.TicketResolved, campusAdmin("northfield"))
	require.NoError(t, err)
	assert.Equal(t, types.TicketResolved, updated.Status)
	assert.True(t, updated.LastActivityAt.After(ticket.LastActivityAt))

	var recs []types.AuditRecord
	require.NoError(t, db.Where("target_kind = ?", "ticket").Find(&recs).Error)
	require.Len(t, recs, 1)
	assert.Equal(t, types.TicketOpen, recs[0].OldStatus)
	assert.Equal(t, types.TicketResolved, recs[0].NewStatus)
	assert.Equal(t, "admin-1", recs[0].Moderator)

	events := n.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "ticket.updated", events[0].Name)
	assert.Equal(t, ticket.PublicID, events[0].TargetID)
}

func TestSetStatusAuthority(t *testing.T) {
	machine, db, _ := newTestMachine(t)
	ticket := seedTicket(t, db, types.TicketOpen, "northfield")

	_, err := machine.SetStatus(context.Background(), ticket.PublicID, types.TicketClosed, campusAdmin("eastview"))
	assert.ErrorIs(t, err, types.ErrForbidden)

	mod := access.Identity{Subject: "mod-1", Role: types.RoleCampusModerator, HomeScope: "northfield"}
	_, err = machine.SetStatus(context.Background(), ticket.PublicID, types.TicketClosed, mod)
	assert.ErrorIs(t, err, types.ErrForbidden)

	_, err = machine.SetStatus(context.Background(), ticket.PublicID, "archived", campusAdmin("northfield"))
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = machine.SetStatus(context.Background(), uuid.NewString(), types.TicketClosed, devAdmin())
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestClosedIsTerminal(t *testing.T) {
	machine, db, _ := newTestMachine(t)
	ticket := seedTicket(t, db, types.TicketClosed, "northfield")

	// campus admin manages the ticket but cannot leave closed
	_, err := machine.SetStatus(context.Background(), ticket.PublicID, types.TicketOpen, campusAdmin("northfield"))
	assert.ErrorIs(t, err, types.ErrInvalidState)

	// dev_admin reopens, but only to open
	_, err = machine.SetStatus(context.Background(), ticket.PublicID, types.TicketResolved, devAdmin())
	assert.ErrorIs(t, err, types.ErrInvalidState)

	updated, err := machine.SetStatus(context.Background(), ticket.PublicID, types.TicketOpen, devAdmin())
	require.NoError(t, err)
	assert.Equal(t, types.TicketOpen, updated.Status)
}

func TestUserReplyTransitionsAwaitingUser(t *testing.T) {
	machine, db, n := newTestMachine(t)
	ticket := seedTicket(t, db, types.TicketAwaitingUser, "northfield")

	updated, msg, err := machine.Reply(context.Background(), ticket.PublicID, "student-9", types.AuthorUser, "still broken", false)
	require.NoError(t, err)
	assert.Equal(t, types.TicketAwaitingAdmin, updated.Status)
	assert.True(t, updated.LastActivityAt.After(ticket.LastActivityAt))
	assert.Equal(t, "still broken", msg.Body)
	assert.Equal(t, types.AuthorUser, msg.AuthorType)

	events := n.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "ticket.updated", events[0].Name)
}

func TestUserReplyKeepsOpenStatus(t *testing.T) {
	machine, db, _ := newTestMachine(t)
	ticket := seedTicket(t, db, types.TicketOpen, "northfield")

	updated, _, err := machine.Reply(context.Background(), ticket.PublicID, "student-9", types.AuthorUser, "more details", false)
	require.NoError(t, err)
	assert.Equal(t, types.TicketOpen, updated.Status)
}

func TestAdminReplyTransitionsToAwaitingUser(t *testing.T) {
	machine, db, _ := newTestMachine(t)

	for _, start := range []string{types.TicketOpen, types.TicketAwaitingAdmin} {
		ticket := seedTicket(t, db, start, "northfield")
		updated, _, err := machine.Reply(context.Background(), ticket.PublicID, "admin-1", types.AuthorAdmin, "looking into it", false)
		require.NoError(t, err)
		assert.Equal(t, types.TicketAwaitingUser, updated.Status)
	}
}

func TestInternalNoteDoesNotTransition(t *testing.T) {
	machine, db, _ := newTestMachine(t)
	ticket := seedTicket(t, db, types.TicketAwaitingAdmin, "northfield")

	updated, msg, err := machine.Reply(context.Background(), ticket.PublicID, "admin-1", types.AuthorAdmin, "user seems confused", true)
	require.NoError(t, err)
	assert.Equal(t, types.TicketAwaitingAdmin, updated.Status)
	assert.True(t, msg.Internal)

	// internal notes are staff-only
	_, _, err = machine.Reply(context.Background(), ticket.PublicID, "student-9", types.AuthorUser, "note", true)
	assert.ErrorIs(t, err, types.ErrForbidden)
}

func TestClosedTicketRejectsUserReply(t *testing.T) {
	machine, db, _ := newTestMachine(t)

	for _, status := range []string{types.TicketResolved, types.TicketClosed} {
		ticket := seedTicket(t, db, status, "northfield")

		_, _, err := machine.Reply(context.Background(), ticket.PublicID, "student-9", types.AuthorUser, "hello?", false)
		assert.ErrorIs(t, err, types.ErrInvalidState)

		// state and thread untouched
		var stored types.Ticket
		require.NoError(t, db.First(&stored, ticket.ID).Error)
		assert.Equal(t, status, stored.Status)
		var count int64
		require.NoError(t, db.Model(&types.TicketMessage{}).Where("ticket_id = ?", ticket.ID).Count(&count).Error)
		assert.Zero(t, count)
	}
}

func TestStaffMayAnnotateClosedTicket(t *testing.T) {
	machine, db, _ := newTestMachine(t)
	ticket := seedTicket(t, db, types.TicketClosed, "northfield")

	updated, _, err := machine.Reply(context.Background(), ticket.PublicID, "admin-1", types.AuthorAdmin, "closing note", false)
	require.NoError(t, err)
	assert.Equal(t, types.TicketClosed, updated.Status)
}

func TestReplyValidation(t *testing.T) {
	machine, db, _ := newTestMachine(t)
	ticket := seedTicket(t, db, types.TicketOpen, "northfield")

	_, _, err := machine.Reply(context.Background(), ticket.PublicID, "student-9", types.AuthorUser, "   ", false)
	assert.ErrorIs(t, err, types.ErrValidation)
	_, _, err = machine.Reply(context.Background(), ticket.PublicID, "student-9", "system", "body", false)
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestMessagesHideInternalFromNonStaff(t *testing.T) {
	machine, db, _ := newTestMachine(t)
	ticket := seedTicket(t, db, types.TicketOpen, "northfield")

	_, _, err := machine.Reply(context.Background(), ticket.PublicID, "student-9", types.AuthorUser, "public one", false)
	require.NoError(t, err)
	_, _, err = machine.Reply(context.Background(), ticket.PublicID, "admin-1", types.AuthorAdmin, "internal one", true)
	require.NoError(t, err)

	all, err := machine.Messages(context.Background(), ticket, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	visible, err := machine.Messages(context.Background(), ticket, false)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "public one", visible[0].Body)
}

func TestAssignment(t *testing.T) {
	db := testDB(t)
	n := notify.NewMemory()
	assigner := NewAssigner(db, n)
	ticket := seedTicket(t, db, types.TicketOpen, "northfield")

	home := "northfield"
	require.NoError(t, db.Create(&types.Staff{ID: "admin-1", Role: types.RoleCampusAdmin, HomeScope: &home}).Error)
	require.NoError(t, db.Create(&types.Staff{ID: "mod-1", Role: types.RoleCampusModerator, HomeScope: &home}).Error)

	// only the top role assigns
	_, err := assigner.Assign(context.Background(), ticket.PublicID, "admin-1", campusAdmin("northfield"))
	assert.ErrorIs(t, err, types.ErrForbidden)

	updated, err := assigner.Assign(context.Background(), ticket.PublicID, "admin-1", devAdmin())
	require.NoError(t, err)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, "admin-1", *updated.AssignedTo)
	assert.Equal(t, types.TicketOpen, updated.Status) // assignment never touches status

	// unknown or non-admin-capable identities are NotFound
	_, err = assigner.Assign(context.Background(), ticket.PublicID, "ghost", devAdmin())
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = assigner.Assign(context.Background(), ticket.PublicID, "mod-1", devAdmin())
	assert.ErrorIs(t, err, types.ErrNotFound)

	updated, err = assigner.Unassign(context.Background(), ticket.PublicID, devAdmin())
	require.NoError(t, err)
	assert.Nil(t, updated.AssignedTo)

	names := []string{}
	for _, ev := range n.Events() {
		names = append(names, ev.Name)
	}
	assert.Equal(t, []string{"ticket.assigned", "ticket.unassigned"}, names)
}
