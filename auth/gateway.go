package auth

import (
	"context"
	"errors"
	"strings"

	"pollboard-backend/models"
	"pollboard-backend/validation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Gin context keys the session middleware populates.
const (
	ContextUserKey    = "auth.user"
	ContextSessionKey = "auth.session"
)

// SessionCookie is the name of the opaque session token cookie.
const SessionCookie = "pollboard_session"

// Gateway wraps the identity provider with the request-facing operations the
// rest of the server uses. Authentication failures come back as generic
// sentinel errors; provider failures are logged and mapped, never surfaced
// verbatim to the client.
type Gateway struct {
	provider Provider
}

// NewGateway builds a Gateway over the given provider.
func NewGateway(provider Provider) *Gateway {
	return &Gateway{provider: provider}
}

// Provider exposes the underlying provider for the session middleware, whose
// refresh call must go straight to it.
func (g *Gateway) Provider() Provider {
	return g.provider
}

// SignIn normalizes the email and delegates. Any failure maps to
// ErrInvalidCredentials so responses cannot distinguish "no such user" from
// "wrong password".
func (g *Gateway) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	email = strings.ToLower(validation.SanitizeText(email, 255))
	session, err := g.provider.SignIn(ctx, email, password)
	if err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			log.WithError(err).Error("sign-in provider failure")
		}
		return nil, ErrInvalidCredentials
	}
	return session, nil
}

// SignUp sanitizes the inputs, pre-checks for an existing account
// (best-effort; the unique index on email resolves any race) and delegates.
func (g *Gateway) SignUp(ctx context.Context, name, email, password string) (*models.Session, error) {
	name = validation.SanitizeText(name, 100)
	email = strings.ToLower(validation.SanitizeText(email, 255))

	if _, err := g.provider.UserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	}

	session, err := g.provider.SignUp(ctx, name, email, password)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		log.WithError(err).Error("sign-up provider failure")
		return nil, ErrEmailTaken
	}
	return session, nil
}

// SignOut delegates to the provider. Sign-out errors are low sensitivity and
// passed through.
func (g *Gateway) SignOut(ctx context.Context, token string) error {
	return g.provider.SignOut(ctx, token)
}

// CurrentSession returns the session attached to the request, or nil. It
// never returns an error.
func (g *Gateway) CurrentSession(c *gin.Context) *models.Session {
	if v, ok := c.Get(ContextSessionKey); ok {
		if s, ok := v.(*models.Session); ok {
			return s
		}
	}

	token, err := c.Cookie(SessionCookie)
	if err != nil || token == "" {
		return nil
	}
	session, err := g.provider.SessionByToken(c.Request.Context(), token)
	if err != nil {
		return nil
	}
	c.Set(ContextSessionKey, session)
	return session
}

// CurrentUser returns the authenticated principal, or nil.
func (g *Gateway) CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(ContextUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	session := g.CurrentSession(c)
	if session == nil {
		return nil
	}
	user := session.User
	c.Set(ContextUserKey, &user)
	return &user
}

// IsAdmin reports whether the given user is flagged as admin. Any missing
// user or provider error yields false.
func (g *Gateway) IsAdmin(ctx context.Context, userID uuid.UUID) bool {
	if userID == uuid.Nil {
		return false
	}
	user, err := g.provider.UserByID(ctx, userID)
	if err != nil {
		return false
	}
	return user.Metadata.IsAdmin
}

// RequireAdmin returns the current user when they are an admin, and a typed
// failure otherwise. Callers branch on the sentinel rather than recovering
// from a panic.
func (g *Gateway) RequireAdmin(c *gin.Context) (*models.User, error) {
	user := g.CurrentUser(c)
	if user == nil {
		return nil, ErrAuthenticationRequired
	}
	if !g.IsAdmin(c.Request.Context(), user.ID) {
		return nil, ErrAuthorizationDenied
	}
	return user, nil
}
