package webserver

import (
	"net/http"
	"time"

	"github.com/campusnet/modboard/src/api/tickets"
	"github.com/campusnet/modboard/src/api/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

type Tickets struct {
	db        *gorm.DB
	machine   *tickets.Machine
	assigner  *tickets.Assigner
	sanitizer *bluemonday.Policy
}

func NewTickets(db *gorm.DB, machine *tickets.Machine, assigner *tickets.Assigner) Tickets {
	// Allow basic formatting in ticket messages, nothing active.
	sanitizer := bluemonday.StrictPolicy()
	sanitizer.AllowElements("p", "br", "strong", "em", "code", "pre", "blockquote")
	sanitizer.AllowElements("ul", "ol", "li")

	return Tickets{db: db, machine: machine, assigner: assigner, sanitizer: sanitizer}
}

func (t Tickets) List(c *gin.Context) {
	caller := callerIdentity(c)

	// dev_admin sees everything, campus/cross admins their scope, everyone
	// else only their own submissions. Moderators hold no ticket authority.
	q := t.db.Model(&types.Ticket{})
	if caller.Role != types.RoleDevAdmin {
		if scopes := caller.VisibleScopes(); types.AdminCapable(caller.Role) && len(scopes) > 0 {
			q = q.Where("scope IN ?", scopes)
		} else {
			q = q.Where("submitter_id = ?", caller.Subject)
		}
	}
	if status := c.Query("status"); status != "" {
		if !types.ValidTicketStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{"code": "validation", "err": "invalid status"})
			return
		}
		q = q.Where("status = ?", status)
	}

	var list []types.Ticket
	if err := q.Order("last_activity_at desc").Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": list})
}

func (t Tickets) Get(c *gin.Context) {
	caller := callerIdentity(c)

	ticket, err := t.machine.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	manages := caller.CanManage(ticket)
	if !manages && !caller.Owns(ticket) {
		fail(c, types.ErrForbidden)
		return
	}

	msgs, err := t.machine.Messages(c.Request.Context(), ticket, manages)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": ticket, "messages": msgs})
}

// Create is the authenticated intake path. Guest intake lives on the guest
// routes so it can be rate-limited separately.
func (t Tickets) Create(c *gin.Context) {
	var req struct {
		Subject  string `json:"subject" binding:"required,min=1,max=255"`
		Category string `json:"category" binding:"max=64"`
		Priority string `json:"priority" binding:"omitempty,oneof=low normal high urgent"`
		Scope    string `json:"scope" binding:"required,max=64"`
		Body     string `json:"body" binding:"required,min=1,max=10000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation", "err": err.Error()})
		return
	}
	caller := callerIdentity(c)

	body := t.sanitizer.Sanitize(req.Body)
	now := time.Now()
	ticket := types.Ticket{
		PublicID:       uuid.NewString(),
		Subject:        req.Subject,
		Category:       req.Category,
		Priority:       req.Priority,
		Status:         types.TicketOpen,
		Scope:          req.Scope,
		SubmitterID:    caller.Subject,
		CreatedAt:      now,
		LastActivityAt: now,
		Version:        1,
	}

	err := t.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ticket).Error; err != nil {
			return err
		}
		return tx.Create(&types.TicketMessage{
			TicketID:   ticket.ID,
			Author:     caller.Subject,
			AuthorType: types.AuthorUser,
			Body:       body,
			CreatedAt:  now,
		}).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ticket": ticket})
}

func (t Tickets) SetStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation", "err": err.Error()})
		return
	}

	ticket, err := t.machine.SetStatus(c.Request.Context(), c.Param("id"), req.Status, callerIdentity(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": ticket})
}

func (t Tickets) Reply(c *gin.Context) {
	var req struct {
		Body     string `json:"body" binding:"required,min=1,max=10000"`
		Internal bool   `json:"internal"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation", "err": err.Error()})
		return
	}
	caller := callerIdentity(c)

	ticket, err := t.machine.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	authorType := types.AuthorUser
	switch {
	case caller.CanManage(ticket):
		authorType = types.AuthorAdmin
	case caller.Owns(ticket):
	default:
		fail(c, types.ErrForbidden)
		return
	}

	body := t.sanitizer.Sanitize(req.Body)
	ticket, msg, err := t.machine.Reply(c.Request.Context(), ticket.PublicID, caller.Subject, authorType, body, req.Internal)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": ticket, "message": msg})
}

// Assignee sets or clears the ticket's assigned admin. A null adminId
// unassigns.
func (t Tickets) Assignee(c *gin.Context) {
	var req struct {
		AdminID *string `json:"adminId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation", "err": err.Error()})
		return
	}
	caller := callerIdentity(c)

	var ticket *types.Ticket
	var err error
	if req.AdminID == nil {
		ticket, err = t.assigner.Unassign(c.Request.Context(), c.Param("id"), caller)
	} else {
		ticket, err = t.assigner.Assign(c.Request.Context(), c.Param("id"), *req.AdminID, caller)
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": ticket})
}
