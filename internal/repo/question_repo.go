// Repository functions for FineTuningQuestion rows and their
// bot_fine_tuning_questions join rows.
//
// The join table is the only place the question↔bot association lives; the
// FineTuningQuestion.BotIDs field is transient and must be populated from
// ListQuestionBotIDs after every write that touches the association.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agentchief/go-emailbots-backend/internal/domain"
)

// CreateQuestion inserts a new FineTuningQuestion row. Association rows are
// handled separately (see ReplaceQuestionBots / AddQuestionBots).
func CreateQuestion(ctx context.Context, db *gorm.DB, q *domain.FineTuningQuestion) (*domain.FineTuningQuestion, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(q).Error; err != nil {
		return nil, err
	}
	return q, nil
}

// ListQuestions returns all fine-tuning questions owned by userID, newest
// first. BotIDs is not populated here; use ListAllQuestionBotIDs for a bulk
// association map.
func ListQuestions(ctx context.Context, db *gorm.DB, userID string) ([]domain.FineTuningQuestion, error) {
	var out []domain.FineTuningQuestion
	err := db.WithContext(ctx).
		Where("created_by = ?", userID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// GetQuestion fetches a single question by ID and owner. Returns ErrNotFound
// if missing or owned by someone else.
func GetQuestion(ctx context.Context, db *gorm.DB, id, userID string) (*domain.FineTuningQuestion, error) {
	var q domain.FineTuningQuestion
	err := db.WithContext(ctx).
		Where("id = ? AND created_by = ?", id, userID).
		First(&q).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// UpdateQuestion applies a partial column update and returns the refreshed
// row. Returns ErrNotFound when no row matches.
func UpdateQuestion(ctx context.Context, db *gorm.DB, id, userID string, fields map[string]any) (*domain.FineTuningQuestion, error) {
	res := db.WithContext(ctx).
		Model(&domain.FineTuningQuestion{}).
		Where("id = ? AND created_by = ?", id, userID).
		Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return GetQuestion(ctx, db, id, userID)
}

// DeleteQuestion removes a question row. Join rows are deleted separately
// (and first) by the service layer. Returns ErrNotFound when no row matches.
func DeleteQuestion(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND created_by = ?", id, userID).
		Delete(&domain.FineTuningQuestion{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AddQuestionBots inserts one join row per bot id for questionID.
// Duplicate pairs fail on the composite primary key.
func AddQuestionBots(ctx context.Context, db *gorm.DB, questionID string, botIDs []string) error {
	if len(botIDs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]domain.BotQuestion, 0, len(botIDs))
	for _, botID := range botIDs {
		rows = append(rows, domain.BotQuestion{
			BotID:      botID,
			QuestionID: questionID,
			CreatedAt:  now,
		})
	}
	return db.WithContext(ctx).Create(&rows).Error
}

// DeleteQuestionBots removes every join row for questionID.
func DeleteQuestionBots(ctx context.Context, db *gorm.DB, questionID string) error {
	return db.WithContext(ctx).
		Where("question_id = ?", questionID).
		Delete(&domain.BotQuestion{}).Error
}

// ReplaceQuestionBots atomically replaces the association set for
// questionID: all existing join rows are deleted, then the new set is
// inserted. An empty botIDs leaves the question associated with no bots.
func ReplaceQuestionBots(ctx context.Context, db *gorm.DB, questionID string, botIDs []string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := DeleteQuestionBots(ctx, tx, questionID); err != nil {
			return err
		}
		return AddQuestionBots(ctx, tx, questionID, botIDs)
	})
}

// ListQuestionBotIDs returns the bot ids currently associated with
// questionID. This is the authoritative read used to populate BotIDs after
// any association write.
func ListQuestionBotIDs(ctx context.Context, db *gorm.DB, questionID string) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.BotQuestion{}).
		Where("question_id = ?", questionID).
		Pluck("bot_id", &ids).Error
	return ids, err
}

// ListAllQuestionBotIDs returns a question-id → bot-ids map covering every
// join row for the given owner's questions. Used by the bulk fetch path.
func ListAllQuestionBotIDs(ctx context.Context, db *gorm.DB, userID string) (map[string][]string, error) {
	var rows []domain.BotQuestion
	err := db.WithContext(ctx).
		Joins("JOIN fine_tuning_questions q ON q.id = bot_fine_tuning_questions.question_id").
		Where("q.created_by = ?", userID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(rows))
	for _, r := range rows {
		out[r.QuestionID] = append(out[r.QuestionID], r.BotID)
	}
	return out, nil
}
