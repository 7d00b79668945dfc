// Package guest lets unauthenticated ticket submitters read and reply to
// their own ticket through a signed token instead of an account. A token
// binds one (ticket, contact) pair, grants nothing else, never expires, and
// can be revoked.
package guest

import (
	"context"
	"fmt"
	"sync"

	"github.com/campusnet/modboard/src/api/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Revocations records revoked token ids. Redis in production (revocation
// must outlive the process), in-memory in tests.
type Revocations interface {
	Revoke(ctx context.Context, jti string) error
	Revoked(ctx context.Context, jti string) (bool, error)
}

type Gate struct {
	secret []byte
	revoc  Revocations
}

func NewGate(secret []byte, revoc Revocations) *Gate {
	return &Gate{secret: secret, revoc: revoc}
}

// Grant is a verified guest credential.
type Grant struct {
	TicketID string // ticket public id
	Contact  string
	JTI      string
}

// Issue mints a token for a ticket/contact pair. Deliberately no exp claim:
// the ticket thread must stay reachable from the original email for as long
// as the ticket exists, so revocation is the only kill switch.
func (g *Gate) Issue(ticketID, contact string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"tid":     ticketID,
		"contact": contact,
		"jti":     uuid.NewString(),
	})
	return token.SignedString(g.secret)
}

// Verify checks signature, shape and revocation, and returns the grant.
// Every failure mode collapses to ErrInvalidToken: a guest learns nothing
// about why a token stopped working.
func (g *Gate) Verify(ctx context.Context, raw string) (*Grant, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return g.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, types.ErrInvalidToken
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, types.ErrInvalidToken
	}
	tid, _ := claims["tid"].(string)
	contact, _ := claims["contact"].(string)
	jti, _ := claims["jti"].(string)
	if tid == "" || jti == "" {
		return nil, types.ErrInvalidToken
	}

	revoked, err := g.revoc.Revoked(ctx, jti)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, types.ErrInvalidToken
	}

	return &Grant{TicketID: tid, Contact: contact, JTI: jti}, nil
}

// Revoke invalidates a token by id, effective on the next Verify.
func (g *Gate) Revoke(ctx context.Context, jti string) error {
	return g.revoc.Revoke(ctx, jti)
}

// MemoryRevocations is the in-process Revocations used by tests.
type MemoryRevocations struct {
	mu   sync.Mutex
	seen map[string]bool
}

func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{seen: make(map[string]bool)}
}

func (m *MemoryRevocations) Revoke(_ context.Context, jti string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[jti] = true
	return nil
}

func (m *MemoryRevocations) Revoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen[jti], nil
}
