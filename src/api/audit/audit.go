// Package audit is the append-only decision trail. Every engine transition
// writes exactly one record inside the same transaction that applies it;
// nothing here can update or delete a row once written.
package audit

import (
	"github.com/campusnet/modboard/src/api/types"
	"gorm.io/gorm"
)

type Log struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Log { return &Log{db: db} }

// Append writes one record using tx, which must be the transaction applying
// the transition the record describes. The caller aborts the whole
// transition if this fails.
func (l *Log) Append(tx *gorm.DB, rec *types.AuditRecord) error {
	return tx.Create(rec).Error
}

// Filter selects records. Zero fields are ignored; Scopes nil means
// unrestricted, empty means nothing visible.
type Filter struct {
	TargetKind string
	TargetID   uint64
	Moderator  string
	Scopes     []string
}

// Query returns matching records in creation order, oldest first.
func (l *Log) Query(f Filter) ([]types.AuditRecord, error) {
	q := l.db.Model(&types.AuditRecord{})
	if f.TargetKind != "" {
		q = q.Where("target_kind = ?", f.TargetKind)
	}
	if f.TargetID != 0 {
		q = q.Where("target_id = ?", f.TargetID)
	}
	if f.Moderator != "" {
		q = q.Where("moderator = ?", f.Moderator)
	}
	if f.Scopes != nil {
		if len(f.Scopes) == 0 {
			return nil, nil
		}
		q = q.Where("scope_label IN ?", f.Scopes)
	}

	var recs []types.AuditRecord
	if err := q.Order("created_at asc, id asc").Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}
