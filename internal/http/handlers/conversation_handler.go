// Conversation HTTP handlers.
//
//   - GET /conversations             (list, paginated)
//   - GET /conversations/:id         (single, messages included)
//   - PUT /conversations/:id/status  (monitoring status flip)
//   - GET /conversations/export      (CSV download, optional bot filter)
//
// Conversations are written by the mail-processing pipeline; the dashboard
// reads them and flips their status, nothing more.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentchief/go-emailbots-backend/internal/export"
)

// UpdateConversationStatusRequest is the JSON payload for a status flip.
type UpdateConversationStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListConversations returns a page of the caller's conversations.
func (h *Handlers) ListConversations(c *gin.Context) {
	uid, okID := h.identity(c)
	if !okID {
		return
	}
	page, pageSize := clampPagination(c)

	items, total, err := h.convSvc.ListPage(c.Request.Context(), uid, page, pageSize)
	if err != nil {
		failService(c, err)
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	body := gin.H{
		"conversations": items,
		"pagination": Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	}
	ok(c, http.StatusOK, body)
}

// GetConversation returns a single conversation visible to the caller.
func (h *Handlers) GetConversation(c *gin.Context) {
	uid, okID := h.identity(c)
	if !okID {
		return
	}
	conv, err := h.convSvc.Get(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, conv)
}

// UpdateConversationStatus flips the status of a conversation visible to
// the caller (active|resolved|pending|forwarded).
func (h *Handlers) UpdateConversationStatus(c *gin.Context) {
	uid, okID := h.identity(c)
	if !okID {
		return
	}
	var req UpdateConversationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status required")
		return
	}
	conv, err := h.convSvc.UpdateStatus(c.Request.Context(), uid, c.Param("id"), req.Status)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, conv)
}

// ExportConversations streams the caller's conversations as a CSV
// download. The optional bot_id query param ("all" or empty exports
// everything) filters to one bot; the filename follows the bot name.
func (h *Handlers) ExportConversations(c *gin.Context) {
	uid, okID := h.identity(c)
	if !okID {
		return
	}
	ctx := c.Request.Context()
	botID := c.Query("bot_id")

	convs, err := h.convSvc.List(ctx, uid)
	if err != nil {
		failService(c, err)
		return
	}
	bots, err := h.storeFor(uid).ListBots(ctx)
	if err != nil {
		failService(c, err)
		return
	}

	names := make(map[string]string, len(bots))
	var botName string
	for _, b := range bots {
		names[b.ID] = b.Name
		if b.ID == botID {
			botName = b.Name
		}
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+export.Filename(botID, botName)+`"`)
	if err := export.Conversations(c.Writer, export.FilterByBot(convs, botID), names); err != nil {
		// Headers may already be out; surface in logs via the envelope path
		// only when nothing has been written.
		if !c.Writer.Written() {
			fail(c, http.StatusInternalServerError, ErrCodeExportFailed, err.Error())
		}
		return
	}
}
