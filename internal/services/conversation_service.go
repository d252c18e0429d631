// Package services – ConversationService
//
// Conversations are written by the mail-processing pipeline; the dashboard
// only reads them (monitoring, CSV export) and flips their status. Access
// is always scoped through the owning bot's creator identity.
package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/agentchief/go-emailbots-backend/internal/domain"
	"github.com/agentchief/go-emailbots-backend/internal/repo"
)

// ConversationService provides read and status operations over email
// conversations.
type ConversationService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// List returns all conversations visible to userID with messages preloaded.
// Prefer ListPage for large datasets.
func (s *ConversationService) List(ctx context.Context, userID string) ([]domain.Conversation, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	return repo.ListConversations(ctx, s.DB, userID)
}

// ListPage returns a page of conversations for a user (paginated).
// It applies defaults for invalid page/pageSize and returns the total count.
func (s *ConversationService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Conversation, int64, error) {
	if userID == "" {
		return nil, 0, ErrUnauthenticated
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountConversations(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Conversation{}, 0, nil
	}

	items, err := repo.ListConversationsPage(ctx, s.DB, userID, offset, pageSize)
	return items, total, err
}

// Get returns a single conversation visible to userID.
func (s *ConversationService) Get(ctx context.Context, userID, id string) (*domain.Conversation, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	c, err := repo.GetConversation(ctx, s.DB, id, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// UpdateStatus flips the status of a conversation visible to userID.
func (s *ConversationService) UpdateStatus(ctx context.Context, userID, id, status string) (*domain.Conversation, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if !domain.ValidConversationStatus(status) {
		return nil, ErrInvalidStatus
	}
	c, err := repo.UpdateConversationStatus(ctx, s.DB, id, userID, status)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}
