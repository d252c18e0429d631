// Fine-tuning question HTTP handlers.
//
//   - GET    /fine-tuning/questions              (list, associations included)
//   - POST   /fine-tuning/questions              (create)
//   - PUT    /fine-tuning/questions/:id          (partial update)
//   - POST   /fine-tuning/questions/bulk-delete  (per-id results)
//   - POST   /fine-tuning/questions/import       (CSV upload, per-row results)
//
// Bulk delete is deliberately not all-or-nothing: each id is attempted
// independently and the response reports which succeeded, matching the
// snapshot reconciliation (only succeeded ids leave the snapshot).
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agentchief/go-emailbots-backend/internal/domain"
	"github.com/agentchief/go-emailbots-backend/internal/importer"
	"github.com/agentchief/go-emailbots-backend/internal/services"
	"github.com/agentchief/go-emailbots-backend/internal/store"
)

// storeCreator adapts the caller's store to the importer's create
// contract so imported rows reconcile the snapshot like any other create.
type storeCreator struct{ st *store.Store }

func (s storeCreator) Create(ctx context.Context, _ string, in services.CreateQuestionInput) (*domain.FineTuningQuestion, error) {
	return s.st.AddQuestion(ctx, in)
}

// CreateQuestionRequest is the JSON payload for creating a question.
type CreateQuestionRequest struct {
	Question       string   `json:"question" binding:"required"`
	ExpectedAnswer string   `json:"expectedAnswer"`
	Category       string   `json:"category"`
	Difficulty     string   `json:"difficulty" binding:"required"`
	Tags           []string `json:"tags"`
	IsActive       *bool    `json:"isActive"`
	BotIDs         []string `json:"botIds"`
}

// UpdateQuestionRequest is the partial JSON payload for updating a
// question. A present botIds array (even empty) fully replaces the
// existing bot associations; an absent one leaves them untouched.
type UpdateQuestionRequest struct {
	Question       *string    `json:"question"`
	ExpectedAnswer *string    `json:"expectedAnswer"`
	Category       *string    `json:"category"`
	Difficulty     *string    `json:"difficulty"`
	Tags           []string   `json:"tags"`
	IsActive       *bool      `json:"isActive"`
	LastUsed       *time.Time `json:"lastUsed"`
	SuccessRate    *float64   `json:"successRate"`
	BotIDs         []string   `json:"botIds"`
}

// BulkDeleteRequest carries the ids to delete.
type BulkDeleteRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

// BulkDeleteItem is one entry of the bulk-delete response.
type BulkDeleteItem struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
	Error   string `json:"error,omitempty"`
}

// BulkDeleteResponse reports the per-id outcome of a bulk delete.
type BulkDeleteResponse struct {
	Results []BulkDeleteItem `json:"results"`
	Failed  int              `json:"failed"`
}

// ImportItem is one entry of the import response.
type ImportItem struct {
	Line     int    `json:"line"`
	Imported bool   `json:"imported"`
	ID       string `json:"id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ImportResponse reports the per-row outcome of a CSV import.
type ImportResponse struct {
	Results  []ImportItem `json:"results"`
	Imported int          `json:"imported"`
	Failed   int          `json:"failed"`
}

// ListQuestions returns all questions owned by the caller with their bot
// association lists populated.
func (h *Handlers) ListQuestions(c *gin.Context) {
	uid, okID := h.identity(c)
	if !okID {
		return
	}
	items, err := h.storeFor(uid).ListQuestions(c.Request.Context())
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}

// CreateQuestion creates a question; the returned botIds reflect the join
// rows actually persisted, not the requested set.
func (h *Handlers) CreateQuestion(c *gin.Context) {
	uid, okID := h.identity(c)
	if !okID {
		return
	}
	var req CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	q, err := h.storeFor(uid).AddQuestion(c.Request.Context(), services.CreateQuestionInput{
		Question:       req.Question,
		ExpectedAnswer: req.ExpectedAnswer,
		Category:       req.Category,
		Difficulty:     req.Difficulty,
		Tags:           req.Tags,
		IsActive:       req.IsActive,
		BotIDs:         req.BotIDs,
	})
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, q)
}

// UpdateQuestion applies a partial update to a question owned by the caller.
func (h *Handlers) UpdateQuestion(c *gin.Context) {
	uid, okID := h.identity(c)
	if !okID {
		return
	}
	// The body is read once and decoded twice: the struct carries the
	// values, the raw-key probe distinguishes an absent botIds from an
	// explicit empty array (the latter clears all associations).
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable request body")
		return
	}
	var req UpdateQuestionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	_, botIDsSet := probe["botIds"]

	q, err := h.storeFor(uid).UpdateQuestion(c.Request.Context(), c.Param("id"), services.UpdateQuestionInput{
		Question:       req.Question,
		ExpectedAnswer: req.ExpectedAnswer,
		Category:       req.Category,
		Difficulty:     req.Difficulty,
		Tags:           req.Tags,
		IsActive:       req.IsActive,
		LastUsed:       req.LastUsed,
		SuccessRate:    req.SuccessRate,
		BotIDs:         req.BotIDs,
		BotIDsSet:      botIDsSet,
	})
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, q)
}

// BulkDeleteQuestions deletes each requested question independently and
// returns per-id results. The response is 200 even when some ids failed;
// clients inspect the result list.
func (h *Handlers) BulkDeleteQuestions(c *gin.Context) {
	uid, okID := h.identity(c)
	if !okID {
		return
	}
	var req BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "ids required")
		return
	}
	results, _ := h.storeFor(uid).DeleteQuestions(c.Request.Context(), req.IDs)

	resp := BulkDeleteResponse{Results: make([]BulkDeleteItem, 0, len(results))}
	for _, r := range results {
		item := BulkDeleteItem{ID: r.ID, Deleted: r.Err == nil}
		if r.Err != nil {
			item.Error = r.Err.Error()
			resp.Failed++
		}
		resp.Results = append(resp.Results, item)
	}
	ok(c, http.StatusOK, resp)
}

// ImportQuestions ingests a CSV request body and feeds each row through
// the question create path. Bad rows never abort the batch.
func (h *Handlers) ImportQuestions(c *gin.Context) {
	uid, okID := h.identity(c)
	if !okID {
		return
	}
	results, err := importer.Import(c.Request.Context(), storeCreator{h.storeFor(uid)}, uid, c.Request.Body)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeImportFailed, err.Error())
		return
	}

	resp := ImportResponse{Results: make([]ImportItem, 0, len(results))}
	for _, r := range results {
		item := ImportItem{Line: r.Line, Imported: r.Err == nil}
		if r.Err != nil {
			item.Error = r.Err.Error()
			resp.Failed++
		} else {
			item.ID = r.Question.ID
			resp.Imported++
		}
		resp.Results = append(resp.Results, item)
	}
	ok(c, http.StatusOK, resp)
}
