// Repository functions for the EmailTemplate model. Thin CRUD only; the
// category enum and other business rules are enforced in the service layer.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agentchief/go-emailbots-backend/internal/domain"
)

// CreateTemplate inserts a new EmailTemplate row. ID and LastModified are
// filled in when unset.
func CreateTemplate(ctx context.Context, db *gorm.DB, t *domain.EmailTemplate) (*domain.EmailTemplate, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.LastModified.IsZero() {
		t.LastModified = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// ListTemplates returns all templates owned by userID, most recently
// modified first.
func ListTemplates(ctx context.Context, db *gorm.DB, userID string) ([]domain.EmailTemplate, error) {
	var out []domain.EmailTemplate
	err := db.WithContext(ctx).
		Where("created_by = ?", userID).
		Order("last_modified desc").
		Find(&out).Error
	return out, err
}

// GetTemplate fetches a single template by ID and owner. Returns ErrNotFound
// if missing or owned by someone else.
func GetTemplate(ctx context.Context, db *gorm.DB, id, userID string) (*domain.EmailTemplate, error) {
	var t domain.EmailTemplate
	err := db.WithContext(ctx).
		Where("id = ? AND created_by = ?", id, userID).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTemplate applies a partial column update and returns the refreshed
// row. last_modified is always bumped. Returns ErrNotFound when no row
// matches.
func UpdateTemplate(ctx context.Context, db *gorm.DB, id, userID string, fields map[string]any) (*domain.EmailTemplate, error) {
	fields["last_modified"] = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.EmailTemplate{}).
		Where("id = ? AND created_by = ?", id, userID).
		Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return GetTemplate(ctx, db, id, userID)
}

// DeleteTemplate removes a template owned by userID. Returns ErrNotFound
// when no row matches.
func DeleteTemplate(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND created_by = ?", id, userID).
		Delete(&domain.EmailTemplate{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
