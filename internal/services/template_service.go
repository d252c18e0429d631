// Package services – TemplateService
//
// Templates have no uniqueness constraint; the service enforces the fixed
// category enum, validates language codes against BCP 47, and applies
// creation defaults (language "en", active, empty variable/tag sets).
package services

import (
	"context"
	"encoding/json"

	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/agentchief/go-emailbots-backend/internal/domain"
	"github.com/agentchief/go-emailbots-backend/internal/repo"
)

// CreateTemplateInput is the payload accepted by TemplateService.Create.
type CreateTemplateInput struct {
	Name      string
	Category  string
	Subject   string
	Content   string
	Variables []string
	Language  string
	IsActive  *bool
	Tags      []string
}

// UpdateTemplateInput is the partial payload accepted by Update; only
// non-nil fields are sent to the gateway.
type UpdateTemplateInput struct {
	Name      *string
	Category  *string
	Subject   *string
	Content   *string
	Variables []string
	Language  *string
	IsActive  *bool
	Tags      []string
}

// TemplateService provides CRUD over email templates.
type TemplateService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// List returns all templates owned by userID.
func (s *TemplateService) List(ctx context.Context, userID string) ([]domain.EmailTemplate, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	return repo.ListTemplates(ctx, s.DB, userID)
}

// Create inserts a new template owned by userID with creation defaults
// applied. The category must be one of the fixed enum values.
func (s *TemplateService) Create(ctx context.Context, userID string, in CreateTemplateInput) (*domain.EmailTemplate, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if !domain.ValidTemplateCategory(in.Category) {
		return nil, ErrInvalidCategory
	}

	lang := "en"
	if in.Language != "" {
		var err error
		if lang, err = normalizeLanguage(in.Language); err != nil {
			return nil, err
		}
	}

	t := &domain.EmailTemplate{
		Name:      in.Name,
		Category:  in.Category,
		Subject:   in.Subject,
		Content:   in.Content,
		Variables: emptyIfNil(in.Variables),
		Language:  lang,
		IsActive:  true,
		Tags:      emptyIfNil(in.Tags),
		CreatedBy: userID,
	}
	if in.IsActive != nil {
		t.IsActive = *in.IsActive
	}
	return repo.CreateTemplate(ctx, s.DB, t)
}

// Update applies a partial update to a template owned by userID.
func (s *TemplateService) Update(ctx context.Context, userID, id string, in UpdateTemplateInput) (*domain.EmailTemplate, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if in.Category != nil && !domain.ValidTemplateCategory(*in.Category) {
		return nil, ErrInvalidCategory
	}

	fields := map[string]any{}
	if in.Name != nil {
		fields["name"] = *in.Name
	}
	if in.Category != nil {
		fields["category"] = *in.Category
	}
	if in.Subject != nil {
		fields["subject"] = *in.Subject
	}
	if in.Content != nil {
		fields["content"] = *in.Content
	}
	if in.Variables != nil {
		fields["variables"] = jsonSet(in.Variables)
	}
	if in.Language != nil {
		lang, err := normalizeLanguage(*in.Language)
		if err != nil {
			return nil, err
		}
		fields["language"] = lang
	}
	if in.IsActive != nil {
		fields["is_active"] = *in.IsActive
	}
	if in.Tags != nil {
		fields["tags"] = jsonSet(in.Tags)
	}

	t, err := repo.UpdateTemplate(ctx, s.DB, id, userID, fields)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// Delete removes a template owned by userID.
func (s *TemplateService) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrUnauthenticated
	}
	if err := repo.DeleteTemplate(ctx, s.DB, id, userID); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// emptyIfNil keeps JSON-serialized set columns as [] instead of null.
func emptyIfNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

// jsonSet encodes a string-set column value for a map-based partial update.
// Map updates bypass the model's JSON serializer, so the encoding has to
// happen before the value reaches the SQL layer.
func jsonSet(ss []string) string {
	b, _ := json.Marshal(emptyIfNil(ss))
	return string(b)
}

// normalizeLanguage validates a template language against BCP 47 and
// returns its canonical form (e.g. "EN-us" becomes "en-US").
func normalizeLanguage(code string) (string, error) {
	tag, err := language.Parse(code)
	if err != nil {
		return "", ErrInvalidLanguage
	}
	return tag.String(), nil
}
