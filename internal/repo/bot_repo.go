// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Bot model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a bot is not found, functions return gorm.ErrRecordNotFound
//     (also exported in this package as ErrNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated; the service layer maps unique
//     violations on email_address to its ErrDuplicateEmail sentinel.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agentchief/go-emailbots-backend/internal/domain"
)

// CreateBot inserts a new Bot row owned by userID. The caller provides the
// row with domain defaults already applied; ID and timestamps are filled in
// here when unset.
func CreateBot(ctx context.Context, db *gorm.DB, b *domain.Bot) (*domain.Bot, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	if b.LastActive.IsZero() {
		b.LastActive = now
	}
	if err := db.WithContext(ctx).Create(b).Error; err != nil {
		return nil, err
	}
	return b, nil
}

// ListBots returns all bots owned by userID, newest first. It returns an
// empty slice if the user has no bots.
func ListBots(ctx context.Context, db *gorm.DB, userID string) ([]domain.Bot, error) {
	var out []domain.Bot
	err := db.WithContext(ctx).
		Where("created_by = ?", userID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// GetBot fetches a single bot by its ID and owner. Returns ErrNotFound if
// the record does not exist or belongs to someone else.
func GetBot(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Bot, error) {
	var b domain.Bot
	err := db.WithContext(ctx).
		Where("id = ? AND created_by = ?", id, userID).
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// FindBotByEmail looks up a bot by email address within userID's bots,
// optionally excluding one id (used by updates to skip the row being
// edited). Returns (nil, nil) when no bot matches.
func FindBotByEmail(ctx context.Context, db *gorm.DB, userID, email, excludeID string) (*domain.Bot, error) {
	q := db.WithContext(ctx).
		Where("created_by = ? AND email_address = ?", userID, email)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var b domain.Bot
	err := q.First(&b).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

// UpdateBot applies a partial column update to a bot owned by userID and
// returns the refreshed row. Returns ErrNotFound when no row matches.
func UpdateBot(ctx context.Context, db *gorm.DB, id, userID string, fields map[string]any) (*domain.Bot, error) {
	res := db.WithContext(ctx).
		Model(&domain.Bot{}).
		Where("id = ? AND created_by = ?", id, userID).
		Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return GetBot(ctx, db, id, userID)
}

// UpdateBotAssistant attaches the provisioned assistant reference to a bot.
// It deliberately ignores ownership: provisioning runs with the creating
// request's identity already verified and may complete after that request
// has finished.
func UpdateBotAssistant(ctx context.Context, db *gorm.DB, id, assistantID, model, status, apiKey string) error {
	res := db.WithContext(ctx).
		Model(&domain.Bot{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"assistant_id":      assistantID,
			"assistant_model":   model,
			"assistant_status":  status,
			"assistant_api_key": apiKey,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteBot removes a bot owned by userID. Returns ErrNotFound when no row
// matches.
func DeleteBot(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND created_by = ?", id, userID).
		Delete(&domain.Bot{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
