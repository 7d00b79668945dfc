package webserver

import (
	"errors"
	"net/http"

	"github.com/campusnet/modboard/src/api/types"
	"github.com/gin-gonic/gin"
)

// fail maps the domain error taxonomy onto HTTP statuses. Every outcome is
// user-displayable; nothing is swallowed or retried here.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, types.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"code": "forbidden", "err": err.Error()})
	case errors.Is(err, types.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"code": "invalid_state", "err": err.Error()})
	case errors.Is(err, types.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation", "err": err.Error()})
	case errors.Is(err, types.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "err": err.Error()})
	case errors.Is(err, types.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"code": "invalid_token", "err": "invalid token"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
	}
}
