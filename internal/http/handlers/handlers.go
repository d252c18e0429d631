// Package handlers provides HTTP handler implementations for the public API.
//
// Handlers are transport-thin: they resolve the caller identity, validate
// input, route every mutation through the caller's domain store (so the
// in-memory snapshot stays reconciled with confirmed gateway state), and
// translate service errors into the uniform error envelope.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentchief/go-emailbots-backend/internal/auth"
	"github.com/agentchief/go-emailbots-backend/internal/domain"
	"github.com/agentchief/go-emailbots-backend/internal/services"
	"github.com/agentchief/go-emailbots-backend/internal/store"
	"github.com/agentchief/go-emailbots-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// ConversationService defines the conversation read/status surface consumed
// by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ConversationService interface {
	// List returns all conversations visible to userID, messages included.
	List(ctx context.Context, userID string) ([]domain.Conversation, error)
	// ListPage returns a page of conversations and the total count.
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Conversation, int64, error)
	// Get returns a single conversation visible to userID.
	Get(ctx context.Context, userID, id string) (*domain.Conversation, error)
	// UpdateStatus flips a conversation's status.
	UpdateStatus(ctx context.Context, userID, id, status string) (*domain.Conversation, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints of the dashboard API. Entity reads and
// mutations go through the per-user domain store; conversation reads go
// straight to the service (they are written by the mail pipeline, not by
// the dashboard).
type Handlers struct {
	stores  *store.Manager
	convSvc ConversationService
}

// New constructs a Handlers instance bound to the given store manager and
// conversation service.
func New(stores *store.Manager, convSvc ConversationService) *Handlers {
	return &Handlers{stores: stores, convSvc: convSvc}
}

// identity resolves the authenticated user or writes the 401 envelope.
// The boolean reports whether the request may proceed.
func (h *Handlers) identity(c *gin.Context) (string, bool) {
	uid, err := auth.UserID(c)
	if err != nil {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "please sign in to continue")
		return "", false
	}
	return uid, true
}

// storeFor returns the caller's domain store.
func (h *Handlers) storeFor(userID string) *store.Store {
	return h.stores.For(userID)
}

// failService translates a service-layer error into the HTTP envelope,
// keeping the status mapping in one place.
func failService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, err.Error())
	case errors.Is(err, services.ErrDuplicateEmail),
		errors.Is(err, services.ErrDuplicateSource):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, services.ErrInvalidURL),
		errors.Is(err, services.ErrInvalidCategory),
		errors.Is(err, services.ErrInvalidDifficulty),
		errors.Is(err, services.ErrInvalidLanguage),
		errors.Is(err, services.ErrInvalidStatus):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

//
// Shared DTO helpers
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}
