// Package settings models the process-wide dashboard configuration object
// (general, email, notifications, security, api sections) and its schema
// validation. Partial updates are merged section-by-section into the full
// object before validation; validation never runs against a partial.
//
// Persistence is deliberately process-local: the observed save path logs
// the validated object and nothing else, and this implementation keeps
// that contract.
package settings

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// General holds company-wide display preferences.
type General struct {
	CompanyName     string `json:"companyName"     validate:"required"`
	DefaultLanguage string `json:"defaultLanguage"`
	Timezone        string `json:"timezone"`
	DateFormat      string `json:"dateFormat"`
}

// Email holds outgoing-mail defaults.
type Email struct {
	DefaultFromName   string `json:"defaultFromName"   validate:"required"`
	DefaultFromEmail  string `json:"defaultFromEmail"  validate:"required,email"`
	ReplyToEmail      string `json:"replyToEmail"      validate:"required,email"`
	EmailFooter       string `json:"emailFooter"`
	MaxAttachmentSize int    `json:"maxAttachmentSize" validate:"min=1"`
}

// Notifications holds alerting preferences. Webhook fields are optional but
// must be well-formed URLs when present.
type Notifications struct {
	EmailNotifications      bool   `json:"emailNotifications"`
	SlackWebhook            string `json:"slackWebhook" validate:"omitempty,url"`
	SlackChannel            string `json:"slackChannel"`
	NotifyOnNewConversation bool   `json:"notifyOnNewConversation"`
	NotifyOnHandoff         bool   `json:"notifyOnHandoff"`
	NotifyOnError           bool   `json:"notifyOnError"`
}

// Security holds access-control preferences.
type Security struct {
	TwoFactorEnabled bool     `json:"twoFactorEnabled"`
	AllowedDomains   []string `json:"allowedDomains"`
	IPWhitelist      []string `json:"ipWhitelist"`
	SessionTimeout   int      `json:"sessionTimeout" validate:"min=1"`
}

// API holds integration credentials and webhook targets.
type API struct {
	APIKey        string `json:"apiKey"`
	WebhookURL    string `json:"webhookUrl"    validate:"omitempty,url"`
	WebhookSecret string `json:"webhookSecret"`
}

// Settings is the full configuration object validated as a whole.
type Settings struct {
	General       General       `json:"general"`
	Email         Email         `json:"email"`
	Notifications Notifications `json:"notifications"`
	Security      Security      `json:"security"`
	API           API           `json:"api"`
}

// Patch is a section-level partial update. Non-nil sections replace the
// corresponding section wholesale (shallow merge, matching the observed
// dashboard behavior).
type Patch struct {
	General       *General       `json:"general,omitempty"`
	Email         *Email         `json:"email,omitempty"`
	Notifications *Notifications `json:"notifications,omitempty"`
	Security      *Security      `json:"security,omitempty"`
	API           *API           `json:"api,omitempty"`
}

// Defaults returns the settings a fresh deployment starts with.
func Defaults() Settings {
	return Settings{
		General: General{
			CompanyName:     "AgentChief EmailBots",
			DefaultLanguage: "en",
			Timezone:        "UTC",
			DateFormat:      "MM/DD/YYYY",
		},
		Email: Email{
			DefaultFromName:   "AI Assistant",
			DefaultFromEmail:  "ai@example.com",
			ReplyToEmail:      "support@example.com",
			EmailFooter:       "Powered by AgentChief EmailBots",
			MaxAttachmentSize: 10,
		},
		Notifications: Notifications{
			EmailNotifications:      true,
			NotifyOnNewConversation: true,
			NotifyOnHandoff:         true,
			NotifyOnError:           true,
		},
		Security: Security{
			AllowedDomains: []string{},
			IPWhitelist:    []string{},
			SessionTimeout: 30,
		},
		API: API{
			APIKey: uuid.NewString(),
		},
	}
}

// validate is shared; validator instances cache struct metadata.
var validate = validator.New()

// Validate checks a full Settings object against the schema and returns a
// list of field-level error messages (empty on success).
func Validate(s Settings) []string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return msgs
}

// fieldMessage renders one validation failure as a user-facing message.
func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace() // e.g. "Settings.Email.DefaultFromEmail"
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s must not be empty", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// Service holds the current validated Settings behind a mutex.
// Updates merge a Patch into the current object, validate the merged
// result, and only then replace the stored value.
type Service struct {
	mu      sync.RWMutex
	current Settings
}

// NewService starts from the given settings (usually Defaults()).
func NewService(initial Settings) *Service {
	return &Service{current: initial}
}

// Current returns a copy of the stored settings.
func (s *Service) Current() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update merges the patch into the current settings, validates the merged
// object, and stores it on success. On validation failure the stored
// settings are left untouched and the field error list is returned.
func (s *Service) Update(p Patch) (Settings, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := s.current
	if p.General != nil {
		merged.General = *p.General
	}
	if p.Email != nil {
		merged.Email = *p.Email
	}
	if p.Notifications != nil {
		merged.Notifications = *p.Notifications
	}
	if p.Security != nil {
		merged.Security = *p.Security
	}
	if p.API != nil {
		merged.API = *p.API
	}

	if errs := Validate(merged); len(errs) > 0 {
		return s.current, errs
	}
	s.current = merged
	return merged, nil
}

// Save validates the current settings and, on success, logs them as the
// persisted object. There is no remote persistence collaborator; settings
// are intentionally process-local.
func (s *Service) Save() []string {
	s.mu.RLock()
	cur := s.current
	s.mu.RUnlock()

	if errs := Validate(cur); len(errs) > 0 {
		return errs
	}
	log.Info().Interface("settings", redact(cur)).Msg("settings saved")
	return nil
}

// redact blanks credentials before the settings object reaches the logs.
func redact(s Settings) Settings {
	if s.API.APIKey != "" {
		s.API.APIKey = "********"
	}
	if s.API.WebhookSecret != "" {
		s.API.WebhookSecret = "********"
	}
	return s
}
