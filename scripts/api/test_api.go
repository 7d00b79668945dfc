// Minimal end-to-end integration test for the Modboard API.
//
// Needs a running API plus its MySQL (to seed a staff identity) and the
// shared JWT secret. Exercises the guest ticket flow, staff replies, status
// transitions and assignment.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/campusnet/modboard/src/api/types"
)

var (
	baseURL   = getenv("API_URL", "http://localhost:8080/v1")
	mysqlDSN  = getenv("MYSQL_DSN", "dev:test@tcp(localhost:3306)/modboard?parseTime=true")
	jwtSecret = getenv("JWT_SECRET", "")
	scope     = getenv("SMOKE_SCOPE", "northfield")
)

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func main() {
	adminID := "smoke-admin-" + uuid.NewString()[:8]
	seedAdmin(adminID)
	adminTok := mustJWT(adminID)

	ticketID, guestTok := guestCreate()
	guestVerify(guestTok, ticketID)

	adminReply(adminTok, ticketID)                                // open -> awaiting_user
	guestReply(guestTok, ticketID, http.StatusOK)                 // -> awaiting_admin
	setStatus(adminTok, ticketID, "closed")                       //
	guestReply(guestTok, ticketID, http.StatusConflict)           // closed rejects guests
	assign(adminTok, ticketID, adminID, http.StatusForbidden)     // campus admin cannot assign

	fmt.Println("✓ all endpoints passed")
}

func seedAdmin(id string) {
	db, err := gorm.Open(mysql.Open(mysqlDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	home := scope
	if err := db.Create(&types.Staff{ID: id, Role: types.RoleCampusAdmin, HomeScope: &home}).Error; err != nil {
		log.Fatalf("seed staff: %v", err)
	}
}

func mustJWT(subject string) string {
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": subject}).
		SignedString([]byte(jwtSecret))
	if err != nil {
		log.Fatalf("jwt: %v", err)
	}
	return tok
}

// ----------------------------- guest flow

func guestCreate() (string, string) {
	var resp struct {
		Ticket struct{ ID string }
		Token  string
	}
	doJSON("POST", "/guest/tickets", map[string]any{
		"subject": "integration-test " + uuid.NewString(),
		"scope":   scope,
		"email":   "smoke@example.com",
		"body":    "opened by the smoke script",
	}, &resp, http.StatusCreated)
	if resp.Ticket.ID == "" || resp.Token == "" {
		log.Fatal("guest create: missing ticket id or token")
	}
	return resp.Ticket.ID, resp.Token
}

func guestVerify(token, want string) {
	var resp struct{ TicketID string }
	doJSON("POST", "/guest/verify", map[string]any{"token": token}, &resp, http.StatusOK)
	if resp.TicketID != want {
		log.Fatalf("guest verify: want %s got %s", want, resp.TicketID)
	}
}

func guestReply(token, _ string, want int) {
	doJSON("POST", "/guest/tickets/"+token+"/reply", map[string]any{
		"body": "guest follow-up",
	}, nil, want)
}

// ----------------------------- staff flow

func adminReply(tok, ticketID string) {
	var resp struct {
		Ticket struct{ Status string }
	}
	doAuth(tok, "POST", "/tickets/"+ticketID+"/reply", map[string]any{
		"body": "staff answer",
	}, &resp, http.StatusOK)
	if resp.Ticket.Status != "awaiting_user" {
		log.Fatalf("admin reply: want awaiting_user got %s", resp.Ticket.Status)
	}
}

func setStatus(tok, ticketID, status string) {
	doAuth(tok, "PUT", "/tickets/"+ticketID+"/status", map[string]any{
		"status": status,
	}, nil, http.StatusOK)
}

func assign(tok, ticketID, adminID string, want int) {
	doAuth(tok, "PUT", "/tickets/"+ticketID+"/assignee", map[string]any{
		"adminId": adminID,
	}, nil, want)
}

// ----------------------------- helpers

func doAuth(token, method, path string, body, out any, want int) {
	doReq(method, path, token, body, out, want)
}

func doJSON(method, path string, body, out any, want int) {
	doReq(method, path, "", body, out, want)
}

func doReq(method, path, token string, body, out any, want int) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			log.Fatalf("%s %s encode: %v", method, path, err)
		}
	}
	req, _ := http.NewRequest(method, baseURL+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	if res.StatusCode != want {
		log.Fatalf("%s %s: want %d got %d", method, path, want, res.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			log.Fatalf("%s %s decode: %v", method, path, err)
		}
	}
}
