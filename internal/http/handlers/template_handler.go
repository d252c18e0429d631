// Email template HTTP handlers.
//
//   - GET    /templates       (list)
//   - POST   /templates       (create)
//   - PUT    /templates/:id   (partial update)
//   - DELETE /templates/:id   (delete)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/agentchief/go-emailbots-backend/internal/services"
)

// CreateTemplateRequest is the JSON payload for creating a template.
type CreateTemplateRequest struct {
	Name      string   `json:"name" binding:"required,min=1,max=255"`
	Category  string   `json:"category" binding:"required"`
	Subject   string   `json:"subject"`
	Content   string   `json:"content"`
	Variables []string `json:"variables"`
	Language  string   `json:"language"`
	IsActive  *bool    `json:"isActive"`
	Tags      []string `json:"tags"`
}

// UpdateTemplateRequest is the partial JSON payload for updating a
// template. Absent fields are left untouched; nil slices leave the stored
// sets alone.
type UpdateTemplateRequest struct {
	Name      *string  `json:"name"`
	Category  *string  `json:"category"`
	Subject   *string  `json:"subject"`
	Content   *string  `json:"content"`
	Variables []string `json:"variables"`
	Language  *string  `json:"language"`
	IsActive  *bool    `json:"isActive"`
	Tags      []string `json:"tags"`
}

// ListTemplates returns all templates owned by the caller.
func (h *Handlers) ListTemplates(c *gin.Context) {
	uid, okID := h.identity(c)
	if !okID {
		return
	}
	items, err := h.storeFor(uid).ListTemplates(c.Request.Context())
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}

// CreateTemplate creates a template owned by the caller.
func (h *Handlers) CreateTemplate(c *gin.Context) {
	uid, okID := h.identity(c)
	if !okID {
		return
	}
	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	t, err := h.storeFor(uid).AddTemplate(c.Request.Context(), services.CreateTemplateInput{
		Name:      strings.TrimSpace(req.Name),
		Category:  req.Category,
		Subject:   req.Subject,
		Content:   req.Content,
		Variables: req.Variables,
		Language:  req.Language,
		IsActive:  req.IsActive,
		Tags:      req.Tags,
	})
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, t)
}

// UpdateTemplate applies a partial update to a template owned by the caller.
func (h *Handlers) UpdateTemplate(c *gin.Context) {
	uid, okID := h.identity(c)
	if !okID {
		return
	}
	var req UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	t, err := h.storeFor(uid).UpdateTemplate(c.Request.Context(), c.Param("id"), services.UpdateTemplateInput{
		Name:      req.Name,
		Category:  req.Category,
		Subject:   req.Subject,
		Content:   req.Content,
		Variables: req.Variables,
		Language:  req.Language,
		IsActive:  req.IsActive,
		Tags:      req.Tags,
	})
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, t)
}

// DeleteTemplate removes a template owned by the caller.
func (h *Handlers) DeleteTemplate(c *gin.Context) {
	uid, okID := h.identity(c)
	if !okID {
		return
	}
	if err := h.storeFor(uid).DeleteTemplate(c.Request.Context(), c.Param("id")); err != nil {
		failService(c, err)
		return
	}
	noContent(c)
}
