package webserver

import (
	"log"
	"net/http"
	"regexp"
	"time"

	"github.com/campusnet/modboard/src/api/data"
	"github.com/campusnet/modboard/src/api/guest"
	"github.com/campusnet/modboard/src/api/tickets"
	"github.com/campusnet/modboard/src/api/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	return emailRegex.MatchString(email) && len(email) <= 255
}

// Guest serves unauthenticated ticket participants. Every route here runs
// behind the guest rate limiter and authorizes through the gate, never a
// session.
type Guest struct {
	db        *gorm.DB
	machine   *tickets.Machine
	gate      *guest.Gate
	sanitizer *bluemonday.Policy
}

func NewGuest(db *gorm.DB, machine *tickets.Machine, gate *guest.Gate) Guest {
	sanitizer := bluemonday.StrictPolicy()
	sanitizer.AllowElements("p", "br", "strong", "em", "code", "pre", "blockquote")
	sanitizer.AllowElements("ul", "ol", "li")

	return Guest{db: db, machine: machine, gate: gate, sanitizer: sanitizer}
}

// Verify resolves a token to its bound ticket id.
func (g Guest) Verify(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation", "err": err.Error()})
		return
	}

	grant, err := g.gate.Verify(c.Request.Context(), req.Token)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticketId": grant.TicketID})
}

// Create is the guest intake path: opens a ticket bound to an email address
// and returns the access token for the confirmation mail.
func (g Guest) Create(c *gin.Context) {
	var req struct {
		Subject  string `json:"subject" binding:"required,min=1,max=255"`
		Category string `json:"category" binding:"max=64"`
		Priority string `json:"priority" binding:"omitempty,oneof=low normal high urgent"`
		Scope    string `json:"scope" binding:"required,max=64"`
		Email    string `json:"email" binding:"required"`
		Body     string `json:"body" binding:"required,min=1,max=10000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation", "err": err.Error()})
		return
	}
	if !isValidEmail(req.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation", "err": "invalid email format"})
		return
	}

	body := g.sanitizer.Sanitize(req.Body)
	now := time.Now()
	ticket := types.Ticket{
		PublicID:       uuid.NewString(),
		Subject:        req.Subject,
		Category:       req.Category,
		Priority:       req.Priority,
		Status:         types.TicketOpen,
		Scope:          req.Scope,
		GuestEmail:     req.Email,
		CreatedAt:      now,
		LastActivityAt: now,
		Version:        1,
	}

	err := g.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ticket).Error; err != nil {
			return err
		}
		return tx.Create(&types.TicketMessage{
			TicketID:   ticket.ID,
			Author:     req.Email,
			AuthorType: types.AuthorUser,
			Body:       body,
			CreatedAt:  now,
		}).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	token, err := g.gate.Issue(ticket.PublicID, req.Email)
	if err != nil {
		log.Printf("guest: token issue failed for ticket %s: %v", ticket.PublicID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "failed to issue access token"})
		return
	}

	resp := gin.H{"ticket": ticket, "token": token}
	// tracking link for the confirmation mail
	if base := data.GetSetting("portal_url"); base != "" {
		resp["url"] = base + "/support/" + token
	}
	c.JSON(http.StatusCreated, resp)
}

// Get returns the ticket bound to the token, internal notes excluded.
func (g Guest) Get(c *gin.Context) {
	ticket, _, err := g.resolve(c)
	if err != nil {
		fail(c, err)
		return
	}

	msgs, err := g.machine.Messages(c.Request.Context(), ticket, false)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": ticket, "messages": msgs})
}

// Reply appends a guest message. Guests follow the same transition rules as
// authenticated submitters.
func (g Guest) Reply(c *gin.Context) {
	var req struct {
		Body string `json:"body" binding:"required,min=1,max=10000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation", "err": err.Error()})
		return
	}

	ticket, grant, err := g.resolve(c)
	if err != nil {
		fail(c, err)
		return
	}

	body := g.sanitizer.Sanitize(req.Body)
	ticket, msg, err := g.machine.Reply(c.Request.Context(), ticket.PublicID, grant.Contact, types.AuthorUser, body, false)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": ticket, "message": msg})
}

func (g Guest) resolve(c *gin.Context) (*types.Ticket, *guest.Grant, error) {
	grant, err := g.gate.Verify(c.Request.Context(), c.Param("token"))
	if err != nil {
		return nil, nil, err
	}
	ticket, err := g.machine.Load(c.Request.Context(), grant.TicketID)
	if err != nil {
		return nil, nil, err
	}
	return ticket, grant, nil
}
