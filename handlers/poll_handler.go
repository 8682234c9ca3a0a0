package handlers

import (
	"errors"
	"net/http"

	"pollboard-backend/auth"
	"pollboard-backend/polls"
	"pollboard-backend/validation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreatePoll handles POST /api/polls. Accepts form-encoded (question,
// repeated options, the two flags) or JSON.
func (h *Handlers) CreatePoll(c *gin.Context) {
	user := h.gateway.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var input validation.CreatePollInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	params, fe := input.Validate()
	if !fe.Empty() {
		fail(c, fe)
		return
	}

	poll, err := h.polls.Create(c.Request.Context(), user.ID, params)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"error": nil, "data": poll})
}

// MyPolls handles GET /api/polls/mine, newest first.
func (h *Handlers) MyPolls(c *gin.Context) {
	user := h.gateway.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "data": []interface{}{}})
		return
	}

	list, err := h.polls.UserPolls(c.Request.Context(), user.ID)
	if err != nil {
		fail(c, err)
		return
	}
	okData(c, list)
}

// GetPoll handles GET /api/polls/:id — the public voting read. A malformed
// ID answers exactly like a missing poll.
func (h *Handlers) GetPoll(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, polls.ErrNotFound)
		return
	}

	poll, err := h.polls.ByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	counts, err := h.polls.Results(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	okData(c, gin.H{"poll": poll, "results": counts})
}

// GetPollForEdit handles GET /api/polls/:id/edit, gated on owner-or-admin.
func (h *Handlers) GetPollForEdit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, polls.ErrNotFound)
		return
	}

	poll, err := h.polls.ByIDForEdit(c.Request.Context(), id, h.gateway.CurrentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	okData(c, poll)
}

// UpdatePoll handles PUT /api/polls/:id. A malformed ID answers exactly like
// a missing poll, same as the read path.
func (h *Handlers) UpdatePoll(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, polls.ErrNotFound)
		return
	}

	var input validation.UpdatePollInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	question, options, fe := input.Validate()
	if !fe.Empty() {
		fail(c, fe)
		return
	}

	if err := h.polls.Update(c.Request.Context(), id, h.gateway.CurrentUser(c), question, options); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

// DeletePoll handles DELETE /api/polls/:id.
func (h *Handlers) DeletePoll(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, polls.ErrNotFound)
		return
	}

	if err := h.polls.Delete(c.Request.Context(), id, h.gateway.CurrentUser(c)); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

// SubmitVote handles POST /api/polls/:id/vote. The caller may be anonymous
// when the poll allows it.
func (h *Handlers) SubmitVote(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, polls.ErrNotFound)
		return
	}

	var input validation.VoteInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	idx, fe := input.Validate()
	if !fe.Empty() {
		fail(c, fe)
		return
	}

	if err := h.polls.SubmitVote(c.Request.Context(), id, h.gateway.CurrentUser(c), idx); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

// AllPolls handles GET /api/admin/polls. Authorization failures come back as
// {error, data: null}, never as a panic past the boundary.
func (h *Handlers) AllPolls(c *gin.Context) {
	user, err := h.gateway.RequireAdmin(c)
	if err != nil {
		status := http.StatusForbidden
		if errors.Is(err, auth.ErrAuthenticationRequired) {
			status = http.StatusUnauthorized
		}
		c.JSON(status, gin.H{"error": "access denied", "data": nil})
		return
	}

	list, err := h.polls.All(c.Request.Context(), user)
	if err != nil {
		fail(c, err)
		return
	}
	okData(c, list)
}
