// Package store implements the Domain Store: the single authoritative
// in-memory snapshot of every entity collection for one dashboard user,
// plus loading/error status.
//
// The snapshot is a cache of confirmed server state, never optimistic:
// every mutation calls the corresponding entity service first and only
// reconciles the in-memory copy after the remote call succeeds. There is
// no background polling or push-based sync; staleness between two
// dashboard sessions is expected and unaddressed.
//
// Mutation entry points are the only way the snapshot changes (no ad-hoc
// external mutation); each produces a new consistent snapshot under the
// store's lock.
package store

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/agentchief/go-emailbots-backend/internal/domain"
	"github.com/agentchief/go-emailbots-backend/internal/services"
	"github.com/agentchief/go-emailbots-backend/internal/settings"
)

// BotOps is the bot entity-service surface the store depends on.
type BotOps interface {
	List(ctx context.Context, userID string) ([]domain.Bot, error)
	Create(ctx context.Context, userID string, in services.CreateBotInput) (*domain.Bot, error)
	Update(ctx context.Context, userID, id string, in services.UpdateBotInput) (*domain.Bot, error)
	Delete(ctx context.Context, userID, id string) error
}

// TemplateOps is the template entity-service surface the store depends on.
type TemplateOps interface {
	List(ctx context.Context, userID string) ([]domain.EmailTemplate, error)
	Create(ctx context.Context, userID string, in services.CreateTemplateInput) (*domain.EmailTemplate, error)
	Update(ctx context.Context, userID, id string, in services.UpdateTemplateInput) (*domain.EmailTemplate, error)
	Delete(ctx context.Context, userID, id string) error
}

// KnowledgeOps is the knowledge-base service surface the store depends on.
type KnowledgeOps interface {
	List(ctx context.Context, userID string) ([]domain.KnowledgeBaseItem, error)
	Create(ctx context.Context, userID string, in services.CreateKnowledgeInput) (*domain.KnowledgeBaseItem, error)
	Update(ctx context.Context, userID, id string, in services.UpdateKnowledgeInput) (*domain.KnowledgeBaseItem, error)
	Delete(ctx context.Context, userID, id string) error
}

// QuestionOps is the fine-tuning service surface the store depends on.
type QuestionOps interface {
	List(ctx context.Context, userID string) ([]domain.FineTuningQuestion, error)
	Create(ctx context.Context, userID string, in services.CreateQuestionInput) (*domain.FineTuningQuestion, error)
	Update(ctx context.Context, userID, id string, in services.UpdateQuestionInput) (*domain.FineTuningQuestion, error)
	Delete(ctx context.Context, userID, id string) error
}

// ConversationOps is the read surface the store uses for conversations.
type ConversationOps interface {
	List(ctx context.Context, userID string) ([]domain.Conversation, error)
}

// Snapshot is the store's point-in-time copy of all entity collections.
type Snapshot struct {
	Bots          []domain.Bot                `json:"bots"`
	Templates     []domain.EmailTemplate      `json:"templates"`
	Questions     []domain.FineTuningQuestion `json:"fineTuningQuestions"`
	Knowledge     []domain.KnowledgeBaseItem  `json:"knowledgeBase"`
	Conversations []domain.Conversation       `json:"conversations"`
	Settings      settings.Settings           `json:"settings"`
}

// DeleteResult is one entry of the per-item result list returned by
// DeleteQuestions.
type DeleteResult struct {
	ID  string `json:"id"`
	Err error  `json:"-"`
}

// Store holds the confirmed-state snapshot for a single user and routes
// every mutation through the entity services.
//
// Safe for concurrent use. Concurrent mutations are not serialized against
// each other beyond the snapshot lock: two racing updates to the same
// entity resolve last-write-wins at the gateway, and their completions
// apply to the snapshot in completion order.
type Store struct {
	userID string

	bots          BotOps
	templates     TemplateOps
	knowledge     KnowledgeOps
	questions     QuestionOps
	conversations ConversationOps
	settings      *settings.Service

	mu          sync.RWMutex
	snap        Snapshot
	busy        bool
	lastErr     string
	initialized bool
}

// New constructs a Store bound to one user identity.
func New(userID string, bots BotOps, templates TemplateOps, knowledge KnowledgeOps,
	questions QuestionOps, conversations ConversationOps, cfg *settings.Service) *Store {
	return &Store{
		userID:        userID,
		bots:          bots,
		templates:     templates,
		knowledge:     knowledge,
		questions:     questions,
		conversations: conversations,
		settings:      cfg,
	}
}

// Initialize issues the five collection reads concurrently and, when every
// one of them succeeds, replaces the entire snapshot atomically. Any single
// failure discards all five results and leaves the prior snapshot
// completely unchanged — never a mixed partial snapshot. The busy flag is
// set for the duration and cleared in all outcomes.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	s.busy = true
	s.lastErr = ""
	s.mu.Unlock()

	var (
		bots          []domain.Bot
		templates     []domain.EmailTemplate
		questions     []domain.FineTuningQuestion
		knowledge     []domain.KnowledgeBaseItem
		conversations []domain.Conversation
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { bots, err = s.bots.List(gctx, s.userID); return })
	g.Go(func() (err error) { templates, err = s.templates.List(gctx, s.userID); return })
	g.Go(func() (err error) { questions, err = s.questions.List(gctx, s.userID); return })
	g.Go(func() (err error) { knowledge, err = s.knowledge.List(gctx, s.userID); return })
	g.Go(func() (err error) { conversations, err = s.conversations.List(gctx, s.userID); return })

	err := g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	if err != nil {
		s.lastErr = err.Error()
		return err
	}
	s.snap = Snapshot{
		Bots:          bots,
		Templates:     templates,
		Questions:     questions,
		Knowledge:     knowledge,
		Conversations: conversations,
		Settings:      s.settings.Current(),
	}
	s.initialized = true
	return nil
}

// Snapshot returns a copy of the current snapshot with up-to-date settings.
// The collection headers are copied; callers must not mutate entity
// internals.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := Snapshot{
		Bots:          append([]domain.Bot(nil), s.snap.Bots...),
		Templates:     append([]domain.EmailTemplate(nil), s.snap.Templates...),
		Questions:     append([]domain.FineTuningQuestion(nil), s.snap.Questions...),
		Knowledge:     append([]domain.KnowledgeBaseItem(nil), s.snap.Knowledge...),
		Conversations: append([]domain.Conversation(nil), s.snap.Conversations...),
		Settings:      s.settings.Current(),
	}
	return out
}

// Busy reports whether an Initialize is currently in flight.
func (s *Store) Busy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.busy
}

// LastError returns the most recent Initialize failure message, if any.
func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Initialized reports whether a full snapshot has ever been loaded.
func (s *Store) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

//
// Read-through lists
//
// Each list call reads the gateway directly and, on success, refreshes the
// corresponding snapshot slice. Failures leave the snapshot untouched. The
// snapshot keeps its own copy so later reconciliation never rewrites an
// array a caller is still holding.
//

// ListBots returns the caller's bots from the gateway.
func (s *Store) ListBots(ctx context.Context) ([]domain.Bot, error) {
	items, err := s.bots.List(ctx, s.userID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.snap.Bots = append([]domain.Bot(nil), items...)
	s.mu.Unlock()
	return items, nil
}

// ListTemplates returns the caller's templates from the gateway.
func (s *Store) ListTemplates(ctx context.Context) ([]domain.EmailTemplate, error) {
	items, err := s.templates.List(ctx, s.userID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.snap.Templates = append([]domain.EmailTemplate(nil), items...)
	s.mu.Unlock()
	return items, nil
}

// ListKnowledge returns the caller's knowledge-base items from the gateway.
func (s *Store) ListKnowledge(ctx context.Context) ([]domain.KnowledgeBaseItem, error) {
	items, err := s.knowledge.List(ctx, s.userID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.snap.Knowledge = append([]domain.KnowledgeBaseItem(nil), items...)
	s.mu.Unlock()
	return items, nil
}

// ListQuestions returns the caller's fine-tuning questions from the gateway.
func (s *Store) ListQuestions(ctx context.Context) ([]domain.FineTuningQuestion, error) {
	items, err := s.questions.List(ctx, s.userID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.snap.Questions = append([]domain.FineTuningQuestion(nil), items...)
	s.mu.Unlock()
	return items, nil
}

//
// Bots
//

// AddBot creates a bot through the entity service and, on success, appends
// the canonical returned entity to the snapshot.
func (s *Store) AddBot(ctx context.Context, in services.CreateBotInput) (*domain.Bot, error) {
	b, err := s.bots.Create(ctx, s.userID, in)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.snap.Bots = append(s.snap.Bots, *b)
	s.mu.Unlock()
	return b, nil
}

// UpdateBot updates a bot through the entity service and, on success,
// merges the canonical returned entity into the snapshot by id.
func (s *Store) UpdateBot(ctx context.Context, id string, in services.UpdateBotInput) (*domain.Bot, error) {
	b, err := s.bots.Update(ctx, s.userID, id, in)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	for i := range s.snap.Bots {
		if s.snap.Bots[i].ID == id {
			s.snap.Bots[i] = *b
			break
		}
	}
	s.mu.Unlock()
	return b, nil
}

// DeleteBot deletes a bot through the entity service and removes it from
// the snapshot.
func (s *Store) DeleteBot(ctx context.Context, id string) error {
	if err := s.bots.Delete(ctx, s.userID, id); err != nil {
		return err
	}
	s.mu.Lock()
	s.snap.Bots = removeByID(s.snap.Bots, func(b domain.Bot) string { return b.ID }, id)
	s.mu.Unlock()
	return nil
}

//
// Templates
//

// AddTemplate creates a template and appends it to the snapshot.
func (s *Store) AddTemplate(ctx context.Context, in services.CreateTemplateInput) (*domain.EmailTemplate, error) {
	t, err := s.templates.Create(ctx, s.userID, in)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.snap.Templates = append(s.snap.Templates, *t)
	s.mu.Unlock()
	return t, nil
}

// UpdateTemplate updates a template and merges it into the snapshot by id.
func (s *Store) UpdateTemplate(ctx context.Context, id string, in services.UpdateTemplateInput) (*domain.EmailTemplate, error) {
	t, err := s.templates.Update(ctx, s.userID, id, in)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	for i := range s.snap.Templates {
		if s.snap.Templates[i].ID == id {
			s.snap.Templates[i] = *t
			break
		}
	}
	s.mu.Unlock()
	return t, nil
}

// DeleteTemplate deletes a template and removes it from the snapshot.
func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	if err := s.templates.Delete(ctx, s.userID, id); err != nil {
		return err
	}
	s.mu.Lock()
	s.snap.Templates = removeByID(s.snap.Templates, func(t domain.EmailTemplate) string { return t.ID }, id)
	s.mu.Unlock()
	return nil
}

//
// Knowledge base
//

// AddKnowledge creates a knowledge-base item and appends it to the snapshot.
func (s *Store) AddKnowledge(ctx context.Context, in services.CreateKnowledgeInput) (*domain.KnowledgeBaseItem, error) {
	item, err := s.knowledge.Create(ctx, s.userID, in)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.snap.Knowledge = append(s.snap.Knowledge, *item)
	s.mu.Unlock()
	return item, nil
}

// UpdateKnowledge updates an item and merges it into the snapshot by id.
func (s *Store) UpdateKnowledge(ctx context.Context, id string, in services.UpdateKnowledgeInput) (*domain.KnowledgeBaseItem, error) {
	item, err := s.knowledge.Update(ctx, s.userID, id, in)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	for i := range s.snap.Knowledge {
		if s.snap.Knowledge[i].ID == id {
			s.snap.Knowledge[i] = *item
			break
		}
	}
	s.mu.Unlock()
	return item, nil
}

// DeleteKnowledge deletes an item and removes it from the snapshot.
func (s *Store) DeleteKnowledge(ctx context.Context, id string) error {
	if err := s.knowledge.Delete(ctx, s.userID, id); err != nil {
		return err
	}
	s.mu.Lock()
	s.snap.Knowledge = removeByID(s.snap.Knowledge, func(k domain.KnowledgeBaseItem) string { return k.ID }, id)
	s.mu.Unlock()
	return nil
}

//
// Fine-tuning questions
//

// AddQuestion creates a question and appends the canonical entity
// (association list included) to the snapshot.
func (s *Store) AddQuestion(ctx context.Context, in services.CreateQuestionInput) (*domain.FineTuningQuestion, error) {
	q, err := s.questions.Create(ctx, s.userID, in)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.snap.Questions = append(s.snap.Questions, *q)
	s.mu.Unlock()
	return q, nil
}

// UpdateQuestion updates a question and merges it into the snapshot by id.
func (s *Store) UpdateQuestion(ctx context.Context, id string, in services.UpdateQuestionInput) (*domain.FineTuningQuestion, error) {
	q, err := s.questions.Update(ctx, s.userID, id, in)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	for i := range s.snap.Questions {
		if s.snap.Questions[i].ID == id {
			s.snap.Questions[i] = *q
			break
		}
	}
	s.mu.Unlock()
	return q, nil
}

// DeleteQuestions deletes each question concurrently and returns a per-id
// result list. The snapshot is reconciled with exactly the ids whose
// deletes individually succeeded; a failed id stays in the snapshot. The
// returned error is non-nil when any item failed.
func (s *Store) DeleteQuestions(ctx context.Context, ids []string) ([]DeleteResult, error) {
	results := make([]DeleteResult, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			results[i] = DeleteResult{ID: id, Err: s.questions.Delete(ctx, s.userID, id)}
		}(i, id)
	}
	wg.Wait()

	succeeded := make(map[string]struct{}, len(ids))
	failed := 0
	for _, r := range results {
		if r.Err == nil {
			succeeded[r.ID] = struct{}{}
		} else {
			failed++
		}
	}

	if len(succeeded) > 0 {
		s.mu.Lock()
		kept := make([]domain.FineTuningQuestion, 0, len(s.snap.Questions))
		for _, q := range s.snap.Questions {
			if _, ok := succeeded[q.ID]; !ok {
				kept = append(kept, q)
			}
		}
		s.snap.Questions = kept
		s.mu.Unlock()
	}

	if failed > 0 {
		return results, fmt.Errorf("%d of %d question deletions failed", failed, len(ids))
	}
	return results, nil
}

//
// Settings
//

// UpdateSettings merges the patch into the process-local settings object.
// On validation failure the stored settings are untouched and the field
// error list is returned.
func (s *Store) UpdateSettings(p settings.Patch) (settings.Settings, []string) {
	merged, errs := s.settings.Update(p)
	if len(errs) > 0 {
		return merged, errs
	}
	s.mu.Lock()
	s.snap.Settings = merged
	s.mu.Unlock()
	return merged, nil
}

// removeByID filters out the element whose key matches id. The result is a
// fresh allocation: the input array may still be referenced by slices
// previously handed to callers and must not be rewritten in place.
func removeByID[T any](items []T, key func(T) string, id string) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if key(it) != id {
			out = append(out, it)
		}
	}
	return out
}
