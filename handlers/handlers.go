// Package handlers holds the HTTP layer: thin gin handlers that bind and
// validate input, call the auth gateway or poll service, and translate typed
// failures into the {error} response contract.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"pollboard-backend/auth"
	"pollboard-backend/polls"
	"pollboard-backend/validation"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Handlers bundles the dependencies every endpoint needs. sessionMaxAge is
// the configured session lifetime; the cookies set here must use the same
// value the session middleware enforces.
type Handlers struct {
	gateway       *auth.Gateway
	polls         *polls.Service
	sessionMaxAge time.Duration
}

// New builds the handler set.
func New(gateway *auth.Gateway, pollService *polls.Service, sessionMaxAge time.Duration) *Handlers {
	return &Handlers{gateway: gateway, polls: pollService, sessionMaxAge: sessionMaxAge}
}

// ok writes the success shape shared by all mutating endpoints.
func ok(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"error": nil})
}

// okData writes a success with a payload.
func okData(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"error": nil, "data": data})
}

// fail maps a typed failure onto status code + {error} body. Unknown errors
// are logged and masked with a generic message.
func fail(c *gin.Context, err error) {
	var fe validation.FieldErrors
	switch {
	case errors.As(err, &fe):
		c.JSON(http.StatusBadRequest, gin.H{"error": fe.First(), "fields": fe})
	case errors.Is(err, auth.ErrAuthenticationRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	case errors.Is(err, auth.ErrAuthorizationDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, polls.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, polls.ErrDuplicateVote):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, polls.ErrAuthRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, polls.ErrOptionOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.WithError(err).Error("unhandled request failure")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong, please try again"})
	}
}
