package webserver

import (
	"net/http"
	"strconv"

	"github.com/campusnet/modboard/src/api/audit"
	"github.com/campusnet/modboard/src/api/moderation"
	"github.com/campusnet/modboard/src/api/types"
	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
)

type Moderation struct {
	engine    *moderation.Engine
	queue     *moderation.Queue
	log       *audit.Log
	sanitizer *bluemonday.Policy
}

func NewModeration(engine *moderation.Engine, queue *moderation.Queue, log *audit.Log) Moderation {
	return Moderation{
		engine:    engine,
		queue:     queue,
		log:       log,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func (m Moderation) Decide(c *gin.Context) {
	var req struct {
		Kind   string `json:"kind" binding:"required"`
		ID     uint64 `json:"id" binding:"required"`
		Action string `json:"action" binding:"required,oneof=approve reject override_approve override_reject"`
		Reason string `json:"reason" binding:"max=2000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation", "err": err.Error()})
		return
	}

	reason := m.sanitizer.Sanitize(req.Reason)

	item, rec, err := m.engine.Decide(c.Request.Context(), req.Kind, req.ID, req.Action, reason, callerIdentity(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item, "auditRecordId": rec.ID})
}

func (m Moderation) Queue(c *gin.Context) {
	f := moderation.QueueFilter{
		Status:  c.Query("status"),
		Kind:    c.Query("kind"),
		Scope:   c.Query("scope"),
		Keyword: c.Query("q"),
	}
	if f.Status != "" && f.Status != types.ItemPending &&
		f.Status != types.ItemApproved && f.Status != types.ItemRejected {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation", "err": "invalid status"})
		return
	}
	if f.Kind != "" && !types.ValidItemKind(f.Kind) {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation", "err": "invalid kind"})
		return
	}

	items, err := m.queue.List(f, callerIdentity(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (m Moderation) Audit(c *gin.Context) {
	caller := callerIdentity(c)

	f := audit.Filter{
		TargetKind: c.Query("target_kind"),
		Moderator:  c.Query("moderator"),
		Scopes:     caller.VisibleScopes(),
	}
	if raw := c.Query("target_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "validation", "err": "invalid target_id"})
			return
		}
		f.TargetID = id
	}

	recs, err := m.log.Query(f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs})
}
