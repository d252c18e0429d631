// Package services – KnowledgeService
//
// Knowledge-base items enforce two invariants: website sources must be
// well-formed absolute URLs (normalized to carry an explicit scheme before
// any comparison or storage), and the source is unique across all items.
// Uniqueness relies on the database constraint as the real guarantee; the
// pre-insert check only provides the friendlier fast path, and a
// constraint-violation error is remapped to the same ErrDuplicateSource.
package services

import (
	"context"
	"net/url"
	"strings"

	"gorm.io/gorm"

	"github.com/agentchief/go-emailbots-backend/internal/domain"
	"github.com/agentchief/go-emailbots-backend/internal/repo"
)

// CreateKnowledgeInput is the payload accepted by KnowledgeService.Create.
type CreateKnowledgeInput struct {
	Name        string
	Type        string // document|website
	Source      string
	Description string
	Tags        []string
}

// UpdateKnowledgeInput is the partial payload accepted by Update.
type UpdateKnowledgeInput struct {
	Name        *string
	Type        *string
	Source      *string
	Description *string
	Tags        []string
}

// KnowledgeService provides CRUD over knowledge-base items.
type KnowledgeService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// List returns all knowledge-base items owned by userID.
func (s *KnowledgeService) List(ctx context.Context, userID string) ([]domain.KnowledgeBaseItem, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	return repo.ListKnowledgeItems(ctx, s.DB, userID)
}

// Create inserts a new knowledge-base item owned by userID. Website sources
// are normalized and validated first; the item starts in the processing
// state.
func (s *KnowledgeService) Create(ctx context.Context, userID string, in CreateKnowledgeInput) (*domain.KnowledgeBaseItem, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	source := in.Source
	if in.Type == domain.KnowledgeTypeWebsite {
		normalized, err := NormalizeWebsiteSource(source)
		if err != nil {
			return nil, err
		}
		source = normalized
	}

	existing, err := repo.FindKnowledgeItemBySource(ctx, s.DB, source, "")
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateSource
	}

	item := &domain.KnowledgeBaseItem{
		Name:        in.Name,
		Type:        in.Type,
		Source:      source,
		Status:      domain.KnowledgeStatusProcessing,
		Description: in.Description,
		Tags:        emptyIfNil(in.Tags),
		CreatedBy:   userID,
	}
	created, err := repo.CreateKnowledgeItem(ctx, s.DB, item)
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicateSource
		}
		return nil, err
	}
	return created, nil
}

// Update applies a partial update to an item owned by userID. A changed
// website source is re-normalized and re-checked for duplicates excluding
// the current id. Website updates reset the item to processing (the source
// must be re-crawled); other updates mark it ready.
func (s *KnowledgeService) Update(ctx context.Context, userID, id string, in UpdateKnowledgeInput) (*domain.KnowledgeBaseItem, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	isWebsite := in.Type != nil && *in.Type == domain.KnowledgeTypeWebsite
	if isWebsite && in.Source != nil {
		normalized, err := NormalizeWebsiteSource(*in.Source)
		if err != nil {
			return nil, err
		}
		in.Source = &normalized
	}
	if in.Source != nil {
		existing, err := repo.FindKnowledgeItemBySource(ctx, s.DB, *in.Source, id)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, ErrDuplicateSource
		}
	}

	fields := map[string]any{}
	if in.Name != nil {
		fields["name"] = *in.Name
	}
	if in.Type != nil {
		fields["type"] = *in.Type
	}
	if in.Source != nil {
		fields["source"] = *in.Source
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.Tags != nil {
		fields["tags"] = jsonSet(in.Tags)
	}
	if isWebsite {
		fields["status"] = domain.KnowledgeStatusProcessing
	} else {
		fields["status"] = domain.KnowledgeStatusReady
	}

	item, err := repo.UpdateKnowledgeItem(ctx, s.DB, id, userID, fields)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		if isDuplicate(err) {
			return nil, ErrDuplicateSource
		}
		return nil, err
	}
	return item, nil
}

// Delete removes an item owned by userID.
func (s *KnowledgeService) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrUnauthenticated
	}
	if err := repo.DeleteKnowledgeItem(ctx, s.DB, id, userID); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// NormalizeWebsiteSource prefixes https:// when the source has no explicit
// scheme, then validates the result as an absolute URL with a host.
// The normalized form is what gets compared and stored.
func NormalizeWebsiteSource(source string) (string, error) {
	src := strings.TrimSpace(source)
	if src == "" {
		return "", ErrInvalidURL
	}
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		src = "https://" + src
	}
	u, err := url.Parse(src)
	if err != nil || !u.IsAbs() || u.Host == "" || strings.Contains(u.Host, " ") {
		return "", ErrInvalidURL
	}
	return src, nil
}
