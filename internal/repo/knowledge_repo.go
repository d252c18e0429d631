// Repository functions for the KnowledgeBaseItem model.
//
// knowledge_base.source carries a unique index; a unique-violation from the
// driver is the second line of defense behind the service-level duplicate
// pre-check and is remapped by the service to ErrDuplicateSource.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agentchief/go-emailbots-backend/internal/domain"
)

// CreateKnowledgeItem inserts a new KnowledgeBaseItem row.
func CreateKnowledgeItem(ctx context.Context, db *gorm.DB, item *domain.KnowledgeBaseItem) (*domain.KnowledgeBaseItem, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.LastUpdated.IsZero() {
		item.LastUpdated = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// ListKnowledgeItems returns all knowledge-base items owned by userID, most
// recently updated first.
func ListKnowledgeItems(ctx context.Context, db *gorm.DB, userID string) ([]domain.KnowledgeBaseItem, error) {
	var out []domain.KnowledgeBaseItem
	err := db.WithContext(ctx).
		Where("created_by = ?", userID).
		Order("last_updated desc").
		Find(&out).Error
	return out, err
}

// GetKnowledgeItem fetches a single item by ID and owner. Returns
// ErrNotFound if missing or owned by someone else.
func GetKnowledgeItem(ctx context.Context, db *gorm.DB, id, userID string) (*domain.KnowledgeBaseItem, error) {
	var item domain.KnowledgeBaseItem
	err := db.WithContext(ctx).
		Where("id = ? AND created_by = ?", id, userID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// FindKnowledgeItemBySource looks up an item by its (normalized) source,
// optionally excluding one id. Returns (nil, nil) when no item matches.
func FindKnowledgeItemBySource(ctx context.Context, db *gorm.DB, source, excludeID string) (*domain.KnowledgeBaseItem, error) {
	q := db.WithContext(ctx).Where("source = ?", source)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var item domain.KnowledgeBaseItem
	err := q.First(&item).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// UpdateKnowledgeItem applies a partial column update and returns the
// refreshed row. last_updated is always bumped. Returns ErrNotFound when no
// row matches.
func UpdateKnowledgeItem(ctx context.Context, db *gorm.DB, id, userID string, fields map[string]any) (*domain.KnowledgeBaseItem, error) {
	fields["last_updated"] = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.KnowledgeBaseItem{}).
		Where("id = ? AND created_by = ?", id, userID).
		Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return GetKnowledgeItem(ctx, db, id, userID)
}

// DeleteKnowledgeItem removes an item owned by userID. Returns ErrNotFound
// when no row matches.
func DeleteKnowledgeItem(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND created_by = ?", id, userID).
		Delete(&domain.KnowledgeBaseItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
