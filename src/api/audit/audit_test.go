package audit

import (
	"fmt"
	"testing"
	"time"

	"github.com/campusnet/modboard/src/api/data"
	"github.com/campusnet/modboard/src/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testLog(t *testing.T) (*Log, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, data.Migrate(db))
	return New(db), db
}

func record(kind string, id uint64, moderator, scope string, at time.Time) *types.AuditRecord {
	return &types.AuditRecord{
		TargetKind: kind,
		TargetID:   id,
		Action:     types.ActionReject,
		OldStatus:  types.ItemPending,
		NewStatus:  types.ItemRejected,
		Reason:     "spam",
		Moderator:  moderator,
		ScopeLabel: scope,
		CreatedAt:  at,
	}
}

func TestQueryOrderAndFilters(t *testing.T) {
	log, db := testLog(t)
	base := time.Now().Add(-time.Hour)

	require.NoError(t, log.Append(db, record("post", 1, "mod-1", "northfield", base.Add(2*time.Minute))))
	require.NoError(t, log.Append(db, record("post", 2, "mod-2", "eastview", base.Add(time.Minute))))
	require.NoError(t, log.Append(db, record("media", 1, "mod-1", "northfield", base)))

	recs, err := log.Query(Filter{})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	// oldest first
	assert.Equal(t, "media", recs[0].TargetKind)
	assert.EqualValues(t, 2, recs[1].TargetID)

	recs, err = log.Query(Filter{TargetKind: "post", TargetID: 1})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "mod-1", recs[0].Moderator)

	recs, err = log.Query(Filter{Moderator: "mod-1"})
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	recs, err = log.Query(Filter{Scopes: []string{"eastview"}})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "eastview", recs[0].ScopeLabel)

	// empty (not nil) scope set means the viewer sees nothing
	recs, err = log.Query(Filter{Scopes: []string{}})
	require.NoError(t, err)
	assert.Empty(t, recs)
}
