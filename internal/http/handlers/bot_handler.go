// Bot HTTP handlers.
//
//   - GET    /bots       (list)
//   - POST   /bots       (create; assistant provisioning runs async)
//   - PUT    /bots/:id   (partial update)
//   - DELETE /bots/:id   (delete; best-effort assistant cleanup)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/agentchief/go-emailbots-backend/internal/services"
)

// CreateBotRequest is the JSON payload for creating a bot.
type CreateBotRequest struct {
	Name                     string `json:"name" binding:"required,min=1,max=255"`
	EmailAddress             string `json:"emailAddress" binding:"required,email"`
	Description              string `json:"description"`
	ResponseTime             string `json:"responseTime"`
	ForwardTemplateID        string `json:"forwardTemplateId"`
	ForwardEmailAddress      string `json:"forwardEmailAddress"`
	IncludeCustomerInForward bool   `json:"includeCustomerInForward"`
}

// UpdateBotRequest is the partial JSON payload for updating a bot. Absent
// fields are left untouched.
type UpdateBotRequest struct {
	Name                     *string `json:"name"`
	EmailAddress             *string `json:"emailAddress"`
	Description              *string `json:"description"`
	ForwardTemplateID        *string `json:"forwardTemplateId"`
	ForwardEmailAddress      *string `json:"forwardEmailAddress"`
	IncludeCustomerInForward *bool   `json:"includeCustomerInForward"`
}

// ListBots returns all bots owned by the caller.
func (h *Handlers) ListBots(c *gin.Context) {
	uid, okID := h.identity(c)
	if !okID {
		return
	}
	bots, err := h.storeFor(uid).ListBots(c.Request.Context())
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, bots)
}

// CreateBot creates a bot and returns the stored row. The assistant is
// provisioned in the background; the response carries the pending state.
func (h *Handlers) CreateBot(c *gin.Context) {
	uid, okID := h.identity(c)
	if !okID {
		return
	}
	var req CreateBotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	b, err := h.storeFor(uid).AddBot(c.Request.Context(), services.CreateBotInput{
		Name:                     strings.TrimSpace(req.Name),
		EmailAddress:             strings.TrimSpace(req.EmailAddress),
		Description:              req.Description,
		ResponseTime:             req.ResponseTime,
		ForwardTemplateID:        req.ForwardTemplateID,
		ForwardEmailAddress:      req.ForwardEmailAddress,
		IncludeCustomerInForward: req.IncludeCustomerInForward,
	})
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, b)
}

// UpdateBot applies a partial update to a bot owned by the caller.
func (h *Handlers) UpdateBot(c *gin.Context) {
	uid, okID := h.identity(c)
	if !okID {
		return
	}
	var req UpdateBotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	b, err := h.storeFor(uid).UpdateBot(c.Request.Context(), c.Param("id"), services.UpdateBotInput{
		Name:                     req.Name,
		EmailAddress:             req.EmailAddress,
		Description:              req.Description,
		ForwardTemplateID:        req.ForwardTemplateID,
		ForwardEmailAddress:      req.ForwardEmailAddress,
		IncludeCustomerInForward: req.IncludeCustomerInForward,
	})
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, b)
}

// DeleteBot removes a bot owned by the caller.
func (h *Handlers) DeleteBot(c *gin.Context) {
	uid, okID := h.identity(c)
	if !okID {
		return
	}
	if err := h.storeFor(uid).DeleteBot(c.Request.Context(), c.Param("id")); err != nil {
		failService(c, err)
		return
	}
	noContent(c)
}
