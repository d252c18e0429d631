// Package services – BotService
//
// This file implements the BotService, which manages the lifecycle of email
// bots. It enforces the email-address uniqueness invariant (pre-insert check
// plus remapping of the database unique-constraint error), applies creation
// defaults, and kicks off best-effort assistant provisioning decoupled from
// the synchronous create path.
//
// Service-level errors (e.g. ErrDuplicateEmail) are returned for predictable
// cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/agentchief/go-emailbots-backend/internal/assistant"
	"github.com/agentchief/go-emailbots-backend/internal/domain"
)

// BotRepo defines the repository contract required by BotService.
// Implementations are responsible for persistence of bot rows.
type BotRepo interface {
	// CreateBot inserts a new bot row.
	CreateBot(ctx context.Context, db *gorm.DB, b *domain.Bot) (*domain.Bot, error)

	// ListBots returns all bots owned by the user, newest first.
	ListBots(ctx context.Context, db *gorm.DB, userID string) ([]domain.Bot, error)

	// GetBot fetches a bot by ID ensuring it belongs to the user.
	GetBot(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Bot, error)

	// FindBotByEmail looks up a bot by email within the user's bots,
	// optionally excluding one id. Returns (nil, nil) when absent.
	FindBotByEmail(ctx context.Context, db *gorm.DB, userID, email, excludeID string) (*domain.Bot, error)

	// UpdateBot applies a partial column update and returns the fresh row.
	UpdateBot(ctx context.Context, db *gorm.DB, id, userID string, fields map[string]any) (*domain.Bot, error)

	// UpdateBotAssistant attaches a provisioned assistant reference.
	UpdateBotAssistant(ctx context.Context, db *gorm.DB, id, assistantID, model, status, apiKey string) error

	// DeleteBot removes a bot owned by the user.
	DeleteBot(ctx context.Context, db *gorm.DB, id, userID string) error
}

// Provisioner is the Assistant Provisioning Service contract consumed by
// BotService. All calls are best-effort from the bot's point of view.
type Provisioner interface {
	CreateAssistant(ctx context.Context, p assistant.CreateParams) (*assistant.Assistant, error)
	UpdateAssistant(ctx context.Context, id string, p assistant.UpdateParams) (*assistant.Assistant, error)
	DeleteAssistant(ctx context.Context, id string) error
}

// CreateBotInput is the payload accepted by Create. ResponseTime is a UI
// hint carried by the dashboard form; it is accepted but not persisted.
type CreateBotInput struct {
	Name                     string
	EmailAddress             string
	Description              string
	ResponseTime             string
	ForwardTemplateID        string
	ForwardEmailAddress      string
	IncludeCustomerInForward bool
}

// UpdateBotInput is the partial payload accepted by Update. Only non-nil
// fields are sent to the gateway.
type UpdateBotInput struct {
	Name                     *string
	EmailAddress             *string
	Description              *string
	ForwardTemplateID        *string
	ForwardEmailAddress      *string
	IncludeCustomerInForward *bool
}

// BotService provides bot lifecycle operations: creation with uniqueness
// checks and assistant provisioning, partial updates, and deletion with
// best-effort assistant cleanup.
type BotService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the bot repository used by this service.
	Repo BotRepo
	// Assistants provisions external assistants; may be nil, in which case
	// bots simply stay in the pending provisioning state.
	Assistants Provisioner

	// ProvisionTimeout bounds the background provisioning call.
	ProvisionTimeout time.Duration
}

// NewBotService constructs a BotService with a sane provisioning timeout.
func NewBotService(db *gorm.DB, r BotRepo, p Provisioner) *BotService {
	return &BotService{
		DB:               db,
		Repo:             r,
		Assistants:       p,
		ProvisionTimeout: 30 * time.Second,
	}
}

// List returns all bots owned by userID.
func (s *BotService) List(ctx context.Context, userID string) ([]domain.Bot, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	return s.Repo.ListBots(ctx, s.DB, userID)
}

// Get returns a single bot owned by userID.
func (s *BotService) Get(ctx context.Context, userID, id string) (*domain.Bot, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	b, err := s.Repo.GetBot(ctx, s.DB, id, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

// Create inserts a new bot owned by userID.
//
// Steps: (a) require an authenticated identity; (b) check for an existing
// bot with the same email address (ErrDuplicateEmail); (c) insert the row
// with derived defaults (status=active, totalEmails=0, responseRate=100,
// assistantStatus=pending); (d) kick off assistant provisioning in the
// background. Provisioning failures never fail the create; the bot stays
// in the pending state.
func (s *BotService) Create(ctx context.Context, userID string, in CreateBotInput) (*domain.Bot, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	existing, err := s.Repo.FindBotByEmail(ctx, s.DB, userID, in.EmailAddress, "")
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateEmail
	}

	b := &domain.Bot{
		Name:                     in.Name,
		Status:                   domain.BotStatusActive,
		EmailAddress:             in.EmailAddress,
		Description:              in.Description,
		CreatedBy:                userID,
		TotalEmails:              0,
		ResponseRate:             100,
		ForwardTemplateID:        optional(in.ForwardTemplateID),
		ForwardEmailAddress:      optional(in.ForwardEmailAddress),
		ForwardEmailDisplay:      domain.DefaultForwardEmailDisplay,
		IncludeCustomerInForward: in.IncludeCustomerInForward,
		AssistantModel:           domain.DefaultAssistantModel,
		AssistantStatus:          domain.AssistantStatusPending,
	}

	created, err := s.Repo.CreateBot(ctx, s.DB, b)
	if err != nil {
		// The unique index on email_address is the race-free guarantee; the
		// pre-check above only exists for the friendlier fast path.
		if isDuplicate(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	if s.Assistants != nil {
		go s.provision(context.WithoutCancel(ctx), created.ID, created.Name, created.Description)
	}
	return created, nil
}

// provision performs the asynchronous assistant-provisioning side effect.
// On success the bot row is transitioned to assistantStatus=active with the
// returned assistant id, model, and a freshly minted API key. On failure the
// bot remains pending; the error is logged and swallowed.
func (s *BotService) provision(ctx context.Context, botID, name, description string) {
	ctx, cancel := context.WithTimeout(ctx, s.ProvisionTimeout)
	defer cancel()

	a, err := s.Assistants.CreateAssistant(ctx, assistant.CreateParams{
		Name:        name,
		Description: description,
	})
	if err != nil {
		log.Warn().Err(err).Str("bot_id", botID).Msg("assistant provisioning failed, bot stays pending")
		return
	}

	apiKey := "agc-" + uuid.NewString()
	if err := s.Repo.UpdateBotAssistant(ctx, s.DB, botID, a.ID, a.Model, domain.AssistantStatusActive, apiKey); err != nil {
		log.Warn().Err(err).Str("bot_id", botID).Str("assistant_id", a.ID).
			Msg("failed to attach provisioned assistant")
	}
}

// Update applies a partial update to a bot owned by userID. If the email
// address is being changed, the duplicate check is re-run excluding the
// current id. Only fields present in the input are sent to the gateway.
func (s *BotService) Update(ctx context.Context, userID, id string, in UpdateBotInput) (*domain.Bot, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	if in.EmailAddress != nil {
		existing, err := s.Repo.FindBotByEmail(ctx, s.DB, userID, *in.EmailAddress, id)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, ErrDuplicateEmail
		}
	}

	fields := map[string]any{}
	if in.Name != nil {
		fields["name"] = *in.Name
	}
	if in.EmailAddress != nil {
		fields["email_address"] = *in.EmailAddress
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.ForwardTemplateID != nil {
		fields["forward_template_id"] = optional(*in.ForwardTemplateID)
	}
	if in.ForwardEmailAddress != nil {
		fields["forward_email_address"] = optional(*in.ForwardEmailAddress)
	}
	if in.IncludeCustomerInForward != nil {
		fields["include_customer_in_forward"] = *in.IncludeCustomerInForward
	}
	if len(fields) == 0 {
		return s.Get(ctx, userID, id)
	}

	b, err := s.Repo.UpdateBot(ctx, s.DB, id, userID, fields)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		if isDuplicate(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return b, nil
}

// Delete removes a bot owned by userID. When the bot carries a provisioned
// assistant, the external assistant is deleted best-effort first; a provider
// failure is logged and does not block the row delete.
func (s *BotService) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrUnauthenticated
	}

	b, err := s.Repo.GetBot(ctx, s.DB, id, userID)
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return err
	}

	if s.Assistants != nil && b.AssistantID != "" {
		if err := s.Assistants.DeleteAssistant(ctx, b.AssistantID); err != nil {
			log.Warn().Err(err).Str("bot_id", id).Str("assistant_id", b.AssistantID).
				Msg("assistant deletion failed, removing bot row anyway")
		}
	}

	if err := s.Repo.DeleteBot(ctx, s.DB, id, userID); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// optional maps "" to a NULL-able column value.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
