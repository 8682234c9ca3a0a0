package handlers

import (
	"net/http"

	"pollboard-backend/auth"
	"pollboard-backend/validation"

	"github.com/gin-gonic/gin"
)

// Login handles POST /api/auth/login.
func (h *Handlers) Login(c *gin.Context) {
	var input validation.LoginInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if fe := input.Validate(); !fe.Empty() {
		fail(c, fe)
		return
	}

	session, err := h.gateway.SignIn(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		fail(c, err)
		return
	}

	h.setSessionCookie(c, session.Token)
	ok(c)
}

// Register handles POST /api/auth/register.
func (h *Handlers) Register(c *gin.Context) {
	var input validation.RegisterInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if fe := input.Validate(); !fe.Empty() {
		fail(c, fe)
		return
	}

	session, err := h.gateway.SignUp(c.Request.Context(), input.Name, input.Email, input.Password)
	if err != nil {
		fail(c, err)
		return
	}

	h.setSessionCookie(c, session.Token)
	ok(c)
}

// Logout handles POST /api/auth/logout.
func (h *Handlers) Logout(c *gin.Context) {
	token, _ := c.Cookie(auth.SessionCookie)
	if err := h.gateway.SignOut(c.Request.Context(), token); err != nil {
		fail(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.SessionCookie, "", -1, "/", "", false, true)
	ok(c)
}

// Me handles GET /api/auth/me, returning the current principal or null.
func (h *Handlers) Me(c *gin.Context) {
	okData(c, h.gateway.CurrentUser(c))
}

func (h *Handlers) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.SessionCookie, token, int(h.sessionMaxAge.Seconds()), "/", "", false, true)
}
