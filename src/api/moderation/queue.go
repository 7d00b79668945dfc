package moderation

import (
	"github.com/campusnet/modboard/src/api/access"
	"github.com/campusnet/modboard/src/api/types"
	"gorm.io/gorm"
)

// Queue is the pending-items read-model. It holds no state of its own:
// every listing re-derives from the items table, the event stream is only a
// hint to re-query.
type Queue struct {
	db *gorm.DB
}

func NewQueue(db *gorm.DB) *Queue { return &Queue{db: db} }

type QueueFilter struct {
	Status  string // defaults to pending
	Kind    string
	Scope   string
	Keyword string
}

// List returns items visible to the viewer, newest submissions first. An
// explicit scope filter narrows within the viewer's visibility, never
// beyond it.
func (q *Queue) List(f QueueFilter, viewer access.Identity) ([]types.Item, error) {
	status := f.Status
	if status == "" {
		status = types.ItemPending
	}

	query := q.db.Model(&types.Item{}).Where("status = ?", status)
	if f.Kind != "" {
		query = query.Where("kind = ?", f.Kind)
	}

	if f.Scope != "" {
		if !viewer.CanView(f.Scope) {
			return nil, types.ErrForbidden
		}
		query = query.Where("scope = ?", f.Scope)
	} else if scopes := viewer.VisibleScopes(); scopes != nil {
		if len(scopes) == 0 {
			return nil, nil
		}
		query = query.Where("scope IN ?", scopes)
	}

	if f.Keyword != "" {
		kw := "%" + f.Keyword + "%"
		query = query.Where("title LIKE ? OR excerpt LIKE ?", kw, kw)
	}

	var items []types.Item
	if err := query.Order("created_at asc, id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
