// Package services – FineTuningService
//
// Fine-tuning questions carry a derived many-to-many association to bots
// held in the bot_fine_tuning_questions join table, never on the question
// row itself. The association contract:
//
//   - create: insert the question, then best-effort join inserts — a join
//     failure is logged, not raised, because the question row already
//     exists. The response association list is re-read from the join table
//     so callers see what was actually persisted, not what was requested.
//   - update: a supplied bot-id set (even empty) fully replaces the
//     existing joins; there are no merge semantics.
//   - delete: joins are removed best-effort first, then the question row;
//     only the row delete can fail the operation.
package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/agentchief/go-emailbots-backend/internal/domain"
	"github.com/agentchief/go-emailbots-backend/internal/repo"
)

// CreateQuestionInput is the payload accepted by FineTuningService.Create.
type CreateQuestionInput struct {
	Question       string
	ExpectedAnswer string
	Category       string
	Difficulty     string
	Tags           []string
	IsActive       *bool
	BotIDs         []string
}

// UpdateQuestionInput is the partial payload accepted by Update. BotIDs nil
// means "leave the association untouched"; an empty non-nil slice removes
// every association.
type UpdateQuestionInput struct {
	Question       *string
	ExpectedAnswer *string
	Category       *string
	Difficulty     *string
	Tags           []string
	IsActive       *bool
	LastUsed       *time.Time
	SuccessRate    *float64
	BotIDs         []string
	BotIDsSet      bool
}

// FineTuningService provides CRUD over fine-tuning questions and reconciles
// their bot associations.
type FineTuningService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// List returns all questions owned by userID with their association lists
// populated from a single bulk join-table read.
func (s *FineTuningService) List(ctx context.Context, userID string) ([]domain.FineTuningQuestion, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	questions, err := repo.ListQuestions(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	assoc, err := repo.ListAllQuestionBotIDs(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	for i := range questions {
		ids := assoc[questions[i].ID]
		if ids == nil {
			ids = []string{}
		}
		questions[i].BotIDs = ids
	}
	return questions, nil
}

// Create inserts a new question owned by userID, then associates it with
// the requested bots best-effort. The returned BotIDs reflect the join rows
// actually persisted.
func (s *FineTuningService) Create(ctx context.Context, userID string, in CreateQuestionInput) (*domain.FineTuningQuestion, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if !domain.ValidDifficulty(in.Difficulty) {
		return nil, ErrInvalidDifficulty
	}

	q := &domain.FineTuningQuestion{
		Question:       in.Question,
		ExpectedAnswer: in.ExpectedAnswer,
		Category:       in.Category,
		Difficulty:     in.Difficulty,
		Tags:           emptyIfNil(in.Tags),
		IsActive:       true,
		CreatedBy:      userID,
	}
	if in.IsActive != nil {
		q.IsActive = *in.IsActive
	}

	created, err := repo.CreateQuestion(ctx, s.DB, q)
	if err != nil {
		return nil, err
	}

	// Best-effort: the question row already exists, so a join failure must
	// not fail the create. The caller detects partial association through
	// the re-read below.
	if len(in.BotIDs) > 0 {
		if err := repo.AddQuestionBots(ctx, s.DB, created.ID, in.BotIDs); err != nil {
			log.Warn().Err(err).Str("question_id", created.ID).
				Msg("failed to create bot associations")
		}
	}

	created.BotIDs = s.readAssociations(ctx, created.ID)
	return created, nil
}

// Update applies a partial update to a question owned by userID. When the
// input carries a bot-id set (BotIDsSet), all existing joins are replaced
// by the new set; replacement failures are logged, and the re-read below
// keeps the returned association list authoritative either way.
func (s *FineTuningService) Update(ctx context.Context, userID, id string, in UpdateQuestionInput) (*domain.FineTuningQuestion, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if in.Difficulty != nil && !domain.ValidDifficulty(*in.Difficulty) {
		return nil, ErrInvalidDifficulty
	}

	fields := map[string]any{}
	if in.Question != nil {
		fields["question"] = *in.Question
	}
	if in.ExpectedAnswer != nil {
		fields["expected_answer"] = *in.ExpectedAnswer
	}
	if in.Category != nil {
		fields["category"] = *in.Category
	}
	if in.Difficulty != nil {
		fields["difficulty"] = *in.Difficulty
	}
	if in.Tags != nil {
		fields["tags"] = jsonSet(in.Tags)
	}
	if in.IsActive != nil {
		fields["is_active"] = *in.IsActive
	}
	if in.LastUsed != nil {
		fields["last_used"] = *in.LastUsed
	}
	if in.SuccessRate != nil {
		fields["success_rate"] = *in.SuccessRate
	}

	var q *domain.FineTuningQuestion
	var err error
	if len(fields) > 0 {
		q, err = repo.UpdateQuestion(ctx, s.DB, id, userID, fields)
	} else {
		q, err = repo.GetQuestion(ctx, s.DB, id, userID)
	}
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if in.BotIDsSet {
		if err := repo.ReplaceQuestionBots(ctx, s.DB, id, in.BotIDs); err != nil {
			log.Warn().Err(err).Str("question_id", id).
				Msg("failed to replace bot associations")
		}
	}

	q.BotIDs = s.readAssociations(ctx, id)
	return q, nil
}

// Delete removes a question owned by userID. Join rows are removed first,
// best-effort; only a failure of the question-row delete is surfaced.
func (s *FineTuningService) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrUnauthenticated
	}
	if err := repo.DeleteQuestionBots(ctx, s.DB, id); err != nil {
		log.Warn().Err(err).Str("question_id", id).
			Msg("failed to remove bot associations")
	}
	if err := repo.DeleteQuestion(ctx, s.DB, id, userID); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// readAssociations returns the persisted association list for a question,
// falling back to the empty set on read failure (logged).
func (s *FineTuningService) readAssociations(ctx context.Context, questionID string) []string {
	ids, err := repo.ListQuestionBotIDs(ctx, s.DB, questionID)
	if err != nil {
		log.Warn().Err(err).Str("question_id", questionID).
			Msg("failed to read bot associations")
		return []string{}
	}
	if ids == nil {
		ids = []string{}
	}
	return ids
}
