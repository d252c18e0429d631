// Settings HTTP handlers.
//
//   - GET  /settings       (current settings)
//   - PUT  /settings       (section-level patch, validated as a whole)
//   - POST /settings/save  (validate + persist the process-local object)
//
// Validation failures answer 422 with the field message list and leave the
// stored settings untouched.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentchief/go-emailbots-backend/internal/settings"
)

// SettingsErrorResponse is the 422 envelope carrying field-level messages.
type SettingsErrorResponse struct {
	RequestID string   `json:"request_id,omitempty"`
	Code      string   `json:"code"`
	Message   string   `json:"message"`
	Errors    []string `json:"errors"`
}

// GetSettings returns the current settings object.
func (h *Handlers) GetSettings(c *gin.Context) {
	if _, okID := h.identity(c); !okID {
		return
	}
	ok(c, http.StatusOK, h.stores.Settings().Current())
}

// UpdateSettings merges a section-level patch into the settings and
// validates the merged object. Each present section replaces the stored
// section wholesale.
func (h *Handlers) UpdateSettings(c *gin.Context) {
	uid, okID := h.identity(c)
	if !okID {
		return
	}
	var patch settings.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	merged, errs := h.storeFor(uid).UpdateSettings(patch)
	if len(errs) > 0 {
		failValidation(c, errs)
		return
	}
	ok(c, http.StatusOK, merged)
}

// SaveSettings validates and persists the current settings object.
func (h *Handlers) SaveSettings(c *gin.Context) {
	if _, okID := h.identity(c); !okID {
		return
	}
	if errs := h.stores.Settings().Save(); len(errs) > 0 {
		failValidation(c, errs)
		return
	}
	ok(c, http.StatusOK, h.stores.Settings().Current())
}

// failValidation writes the 422 envelope with the field error list.
func failValidation(c *gin.Context, errs []string) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, SettingsErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      ErrCodeValidationFailed,
		Message:   "settings validation failed",
		Errors:    errs,
	})
}
