// Knowledge-base HTTP handlers.
//
//   - GET    /knowledge-base       (list)
//   - POST   /knowledge-base       (create; websites normalized + validated)
//   - PUT    /knowledge-base/:id   (partial update)
//   - DELETE /knowledge-base/:id   (delete)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/agentchief/go-emailbots-backend/internal/services"
)

// CreateKnowledgeRequest is the JSON payload for adding a knowledge item.
type CreateKnowledgeRequest struct {
	Name        string   `json:"name" binding:"required,min=1,max=255"`
	Type        string   `json:"type" binding:"required,oneof=document website"`
	Source      string   `json:"source" binding:"required"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// UpdateKnowledgeRequest is the partial JSON payload for updating an item.
type UpdateKnowledgeRequest struct {
	Name        *string  `json:"name"`
	Type        *string  `json:"type"`
	Source      *string  `json:"source"`
	Description *string  `json:"description"`
	Tags        []string `json:"tags"`
}

// ListKnowledge returns all knowledge-base items owned by the caller.
func (h *Handlers) ListKnowledge(c *gin.Context) {
	uid, okID := h.identity(c)
	if !okID {
		return
	}
	items, err := h.storeFor(uid).ListKnowledge(c.Request.Context())
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}

// CreateKnowledge adds a knowledge-base item. Website sources are
// normalized to carry an https scheme and validated as absolute URLs
// before the uniqueness check.
func (h *Handlers) CreateKnowledge(c *gin.Context) {
	uid, okID := h.identity(c)
	if !okID {
		return
	}
	var req CreateKnowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	item, err := h.storeFor(uid).AddKnowledge(c.Request.Context(), services.CreateKnowledgeInput{
		Name:        strings.TrimSpace(req.Name),
		Type:        req.Type,
		Source:      req.Source,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, item)
}

// UpdateKnowledge applies a partial update to an item owned by the caller.
func (h *Handlers) UpdateKnowledge(c *gin.Context) {
	uid, okID := h.identity(c)
	if !okID {
		return
	}
	var req UpdateKnowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	item, err := h.storeFor(uid).UpdateKnowledge(c.Request.Context(), c.Param("id"), services.UpdateKnowledgeInput{
		Name:        req.Name,
		Type:        req.Type,
		Source:      req.Source,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, item)
}

// DeleteKnowledge removes an item owned by the caller.
func (h *Handlers) DeleteKnowledge(c *gin.Context) {
	uid, okID := h.identity(c)
	if !okID {
		return
	}
	if err := h.storeFor(uid).DeleteKnowledge(c.Request.Context(), c.Param("id")); err != nil {
		failService(c, err)
		return
	}
	noContent(c)
}
