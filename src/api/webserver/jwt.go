package webserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/campusnet/modboard/src/api/access"
	"github.com/campusnet/modboard/src/api/types"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

const identityKey = "identity"

// JWTMiddleware authenticates the Bearer token minted by the platform SSO
// and resolves the subject against the staff registry. Subjects without a
// staff row are plain users; the token never carries the role itself, so a
// role change takes effect on the next request.
func JWTMiddleware(secret []byte, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		tok, err := jwt.Parse(h[7:], func(t *jwt.Token) (interface{}, error) { return secret, nil })
		if err != nil || !tok.Valid {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		sub, _ := tok.Claims.(jwt.MapClaims)["sub"].(string)
		if sub == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		id := access.Identity{Subject: sub, Role: types.RoleUser}
		var staff types.Staff
		if err := db.First(&staff, "id = ?", sub).Error; err == nil {
			id.Role = staff.Role
			if staff.HomeScope != nil {
				id.HomeScope = *staff.HomeScope
			}
		}

		c.Set(identityKey, id)
		c.Next()
	}
}

func callerIdentity(c *gin.Context) access.Identity {
	id, _ := c.MustGet(identityKey).(access.Identity)
	return id
}

// IssueJWT mints a session token. The production issuer is the platform
// SSO; this is used by the integration smoke script and tests.
func IssueJWT(subject string, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	return token.SignedString(secret)
}
