// Dashboard state endpoints.
//
//   - POST /state/refresh  (load all collections, all-or-nothing)
//   - GET  /state          (current snapshot plus loading/error status)
//
// Refresh is the dashboard's bootstrap call: five collection reads issued
// concurrently, with the snapshot replaced only when every read succeeds.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentchief/go-emailbots-backend/internal/store"
)

// StateResponse wraps the snapshot with its loading status.
type StateResponse struct {
	Initialized bool           `json:"initialized"`
	Busy        bool           `json:"busy"`
	LastError   string         `json:"lastError,omitempty"`
	State       store.Snapshot `json:"state"`
}

// GetState returns the caller's current snapshot and status flags.
func (h *Handlers) GetState(c *gin.Context) {
	uid, okID := h.identity(c)
	if !okID {
		return
	}
	st := h.storeFor(uid)
	ok(c, http.StatusOK, StateResponse{
		Initialized: st.Initialized(),
		Busy:        st.Busy(),
		LastError:   st.LastError(),
		State:       st.Snapshot(),
	})
}

// RefreshState reloads every collection for the caller. On any failure the
// previous snapshot is kept and the error is surfaced both in the response
// and on the store's status.
func (h *Handlers) RefreshState(c *gin.Context) {
	uid, okID := h.identity(c)
	if !okID {
		return
	}
	st := h.storeFor(uid)
	if err := st.Initialize(c.Request.Context()); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInitFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, StateResponse{
		Initialized: st.Initialized(),
		Busy:        st.Busy(),
		LastError:   st.LastError(),
		State:       st.Snapshot(),
	})
}
