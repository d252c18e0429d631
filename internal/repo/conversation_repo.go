// Repository functions for the Conversation and Message models.
//
// Conversations have no owner column of their own; ownership is derived by
// joining through the owning bot's created_by, so a user can only ever see
// threads handled by their own bots.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agentchief/go-emailbots-backend/internal/domain"
)

// ListConversations returns all conversations whose owning bot belongs to
// userID, most recent message first, with messages preloaded in timestamp
// order.
func ListConversations(ctx context.Context, db *gorm.DB, userID string) ([]domain.Conversation, error) {
	var out []domain.Conversation
	err := db.WithContext(ctx).
		Joins("JOIN bots ON bots.id = conversations.bot_id").
		Where("bots.created_by = ?", userID).
		Order("conversations.last_message_at desc").
		Preload("Messages", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("messages.timestamp asc")
		}).
		Find(&out).Error
	return out, err
}

// CountConversations returns the total number of conversations visible to
// userID, for pagination metadata.
func CountConversations(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Joins("JOIN bots ON bots.id = conversations.bot_id").
		Where("bots.created_by = ?", userID).
		Count(&total).Error
	return total, err
}

// ListConversationsPage returns one page of conversations visible to
// userID, most recent message first, with messages preloaded.
func ListConversationsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Conversation, error) {
	var out []domain.Conversation
	err := db.WithContext(ctx).
		Joins("JOIN bots ON bots.id = conversations.bot_id").
		Where("bots.created_by = ?", userID).
		Order("conversations.last_message_at desc").
		Offset(offset).
		Limit(limit).
		Preload("Messages", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("messages.timestamp asc")
		}).
		Find(&out).Error
	return out, err
}

// GetConversation fetches a single conversation by ID, verifying through
// the bot join that it is visible to userID. Returns ErrNotFound otherwise.
func GetConversation(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Conversation, error) {
	var c domain.Conversation
	err := db.WithContext(ctx).
		Joins("JOIN bots ON bots.id = conversations.bot_id").
		Where("conversations.id = ? AND bots.created_by = ?", id, userID).
		Preload("Messages", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("messages.timestamp asc")
		}).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateConversationStatus sets the status of a conversation visible to
// userID. last_message_at is left untouched (a status change is not a
// message). Returns ErrNotFound when no row matches.
func UpdateConversationStatus(ctx context.Context, db *gorm.DB, id, userID, status string) (*domain.Conversation, error) {
	res := db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ? AND bot_id IN (?)",
			id,
			db.Model(&domain.Bot{}).Select("id").Where("created_by = ?", userID),
		).
		Update("status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return GetConversation(ctx, db, id, userID)
}

// CreateConversation inserts a conversation row (used by tests and by the
// mail-processing pipeline, which writes threads as they arrive).
func CreateConversation(ctx context.Context, db *gorm.DB, c *domain.Conversation) (*domain.Conversation, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	for i := range c.Messages {
		if c.Messages[i].ID == "" {
			c.Messages[i].ID = uuid.NewString()
		}
	}
	now := time.Now().UTC()
	if c.StartedAt.IsZero() {
		c.StartedAt = now
	}
	if c.LastMessageAt.IsZero() {
		c.LastMessageAt = now
	}
	if c.TotalMessages == 0 {
		c.TotalMessages = len(c.Messages)
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}
