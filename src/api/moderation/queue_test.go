package moderation

import (
	"testing"

	"github.com/campusnet/modboard/src/api/access"
	"github.com/campusnet/modboard/src/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueScopedToViewer(t *testing.T) {
	db := testDB(t)
	queue := NewQueue(db)

	seedItem(t, db, types.KindPost, types.ItemPending, "northfield")
	seedItem(t, db, types.KindMedia, types.ItemPending, "northfield")
	seedItem(t, db, types.KindPost, types.ItemPending, "eastview")
	seedItem(t, db, types.KindPost, types.ItemPending, types.ScopeCross)
	seedItem(t, db, types.KindPost, types.ItemApproved, "northfield")

	items, err := queue.List(QueueFilter{}, devAdmin())
	require.NoError(t, err)
	assert.Len(t, items, 4) // everything pending, nothing decided

	items, err = queue.List(QueueFilter{}, moderator("northfield"))
	require.NoError(t, err)
	assert.Len(t, items, 2)
	for _, it := range items {
		assert.Equal(t, "northfield", it.Scope)
	}

	crossMod := access.Identity{Subject: "xmod-1", Role: types.RoleCrossModerator}
	items, err = queue.List(QueueFilter{}, crossMod)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, types.ScopeCross, items[0].Scope)

	items, err = queue.List(QueueFilter{}, access.Identity{Subject: "u-1", Role: types.RoleUser})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestQueueFilters(t *testing.T) {
	db := testDB(t)
	queue := NewQueue(db)

	seedItem(t, db, types.KindPost, types.ItemPending, "northfield")
	seedItem(t, db, types.KindMedia, types.ItemPending, "northfield")
	rejected := seedItem(t, db, types.KindPost, types.ItemRejected, "northfield")

	items, err := queue.List(QueueFilter{Kind: types.KindMedia}, devAdmin())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, types.KindMedia, items[0].Kind)

	items, err = queue.List(QueueFilter{Status: types.ItemRejected}, devAdmin())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, rejected.ID, items[0].ID)

	items, err = queue.List(QueueFilter{Keyword: "meetup"}, devAdmin())
	require.NoError(t, err)
	assert.Len(t, items, 2)
	items, err = queue.List(QueueFilter{Keyword: "nomatch"}, devAdmin())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestQueueExplicitScopeRequiresVisibility(t *testing.T) {
	db := testDB(t)
	queue := NewQueue(db)
	seedItem(t, db, types.KindPost, types.ItemPending, "eastview")

	_, err := queue.List(QueueFilter{Scope: "eastview"}, moderator("northfield"))
	assert.ErrorIs(t, err, types.ErrForbidden)

	items, err := queue.List(QueueFilter{Scope: "eastview"}, devAdmin())
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
