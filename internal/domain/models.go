// Package domain defines the persistence models for bots, templates,
// fine-tuning questions, knowledge-base items, conversations, and messages.
// These types are mapped with GORM and form the core data layer of the
// email-bot dashboard backend.
//
// Every row that can be created from the dashboard carries a CreatedBy
// column; all reads are scoped to that identity (no cross-identity access).
package domain

import (
	"time"
)

// Bot statuses.
const (
	BotStatusActive   = "active"
	BotStatusInactive = "inactive"
)

// Assistant provisioning states. A bot is inserted as "pending" and moves to
// "active" only after the external assistant has been provisioned for it.
// Failed provisioning leaves the bot in "pending"; it stays usable for CRUD.
const (
	AssistantStatusPending = "pending"
	AssistantStatusActive  = "active"
)

// DefaultAssistantModel is the model requested when provisioning a new
// assistant for a bot.
const DefaultAssistantModel = "gpt-4-turbo-preview"

// DefaultForwardEmailDisplay is the display string shown next to a bot's
// forwarding configuration when none has been customized.
const DefaultForwardEmailDisplay = "Forward your emails here"

// Bot represents an AI-powered email responder owned by a dashboard user.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - EmailAddress: the address the bot answers from; unique across all bots
//     (DB-level unique index; services also pre-check for a friendlier error).
//   - CreatedBy: identity of the creating user; all reads are scoped to it.
//   - TotalEmails / ResponseRate: aggregate counters maintained by the
//     mail-processing pipeline (created as 0 / 100).
//   - AssistantID / AssistantModel / AssistantStatus: external assistant
//     reference attached asynchronously after creation.
//   - AssistantAPIKey: per-bot credential minted at provisioning time; never
//     serialized to clients.
type Bot struct {
	ID                       string    `json:"id"                       gorm:"type:char(36);primaryKey"`
	Name                     string    `json:"name"                     gorm:"type:varchar(255);not null"`
	Status                   string    `json:"status"                   gorm:"type:varchar(16);not null;default:'active'"`
	EmailAddress             string    `json:"emailAddress"             gorm:"type:varchar(320);not null;uniqueIndex:idx_bots_email"`
	Description              string    `json:"description"              gorm:"type:text"`
	CreatedBy                string    `json:"-"                        gorm:"type:varchar(64);not null;index:idx_bots_owner"`
	CreatedAt                time.Time `json:"createdAt"`
	LastActive               time.Time `json:"lastActive"`
	TotalEmails              int       `json:"totalEmails"              gorm:"not null;default:0"`
	ResponseRate             float64   `json:"responseRate"             gorm:"not null;default:100"`
	ForwardTemplateID        *string   `json:"forwardTemplateId,omitempty"    gorm:"type:char(36)"`
	ForwardEmailAddress      *string   `json:"forwardEmailAddress,omitempty"  gorm:"type:varchar(320)"`
	ForwardEmailDisplay      string    `json:"forwardEmailDisplay"      gorm:"type:varchar(255)"`
	IncludeCustomerInForward bool      `json:"includeCustomerInForward" gorm:"not null;default:false"`
	AssistantID              string    `json:"assistantId,omitempty"    gorm:"type:varchar(128)"`
	AssistantModel           string    `json:"assistantModel,omitempty" gorm:"type:varchar(64)"`
	AssistantStatus          string    `json:"assistantStatus"          gorm:"type:varchar(16);not null;default:'pending'"`
	AssistantAPIKey          string    `json:"-"                        gorm:"type:varchar(128)"`
}

// TableName returns the database table name for Bot.
func (Bot) TableName() string { return "bots" }

// TemplateCategories is the closed set of accepted template categories.
var TemplateCategories = []string{"support", "sales", "onboarding", "handoff", "other"}

// ValidTemplateCategory reports whether c is one of TemplateCategories.
func ValidTemplateCategory(c string) bool {
	for _, v := range TemplateCategories {
		if v == c {
			return true
		}
	}
	return false
}

// EmailTemplate is a reusable response template with {{variable}}
// placeholders. Variables and tags are free-form string sets stored as JSON.
type EmailTemplate struct {
	ID           string    `json:"id"           gorm:"type:char(36);primaryKey"`
	Name         string    `json:"name"         gorm:"type:varchar(255);not null"`
	Category     string    `json:"category"     gorm:"type:varchar(16);not null"`
	Subject      string    `json:"subject"      gorm:"type:text"`
	Content      string    `json:"content"      gorm:"type:text"`
	Variables    []string  `json:"variables"    gorm:"serializer:json"`
	Language     string    `json:"language"     gorm:"type:varchar(16);not null;default:'en'"`
	IsActive     bool      `json:"isActive"     gorm:"not null;default:true"`
	Tags         []string  `json:"tags"         gorm:"serializer:json"`
	CreatedBy    string    `json:"createdBy"    gorm:"type:varchar(64);not null;index:idx_templates_owner"`
	LastModified time.Time `json:"lastModified"`
}

// TableName returns the database table name for EmailTemplate.
func (EmailTemplate) TableName() string { return "templates" }

// Difficulties accepted for fine-tuning questions.
var QuestionDifficulties = []string{"easy", "medium", "hard"}

// ValidDifficulty reports whether d is one of QuestionDifficulties.
func ValidDifficulty(d string) bool {
	for _, v := range QuestionDifficulties {
		if v == d {
			return true
		}
	}
	return false
}

// FineTuningQuestion is a Q/A pair used to tune bot behavior. The
// many-to-many association to bots is NOT stored on this row; it lives in
// the bot_fine_tuning_questions join table and is surfaced through the
// transient BotIDs field, populated from a re-read of the join rows.
type FineTuningQuestion struct {
	ID             string     `json:"id"             gorm:"type:char(36);primaryKey"`
	Question       string     `json:"question"       gorm:"type:text;not null"`
	ExpectedAnswer string     `json:"expectedAnswer" gorm:"type:text"`
	Category       string     `json:"category"       gorm:"type:varchar(64)"`
	Difficulty     string     `json:"difficulty"     gorm:"type:varchar(16);not null"`
	Tags           []string   `json:"tags"           gorm:"serializer:json"`
	IsActive       bool       `json:"isActive"       gorm:"not null;default:true"`
	CreatedBy      string     `json:"-"              gorm:"type:varchar(64);not null;index:idx_ftq_owner"`
	CreatedAt      time.Time  `json:"createdAt"`
	LastUsed       *time.Time `json:"lastUsed,omitempty"`
	SuccessRate    *float64   `json:"successRate,omitempty"`

	// BotIDs is the derived association set; authoritative only after a
	// re-read of the join table, never trusted from request input.
	BotIDs []string `json:"botIds" gorm:"-"`
}

// TableName returns the database table name for FineTuningQuestion.
func (FineTuningQuestion) TableName() string { return "fine_tuning_questions" }

// BotQuestion is one join row linking a fine-tuning question to a bot.
type BotQuestion struct {
	BotID      string    `json:"botId"      gorm:"type:char(36);primaryKey"`
	QuestionID string    `json:"questionId" gorm:"type:char(36);primaryKey;index:idx_bfq_question"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TableName returns the database table name for BotQuestion.
func (BotQuestion) TableName() string { return "bot_fine_tuning_questions" }

// Knowledge-base item types and statuses.
const (
	KnowledgeTypeDocument = "document"
	KnowledgeTypeWebsite  = "website"

	KnowledgeStatusProcessing = "processing"
	KnowledgeStatusReady      = "ready"
	KnowledgeStatusError      = "error"
)

// KnowledgeBaseItem is an ingested knowledge source (uploaded document or
// crawled website). Source is unique across all items; website sources are
// normalized to carry an explicit scheme before they reach this row.
type KnowledgeBaseItem struct {
	ID          string    `json:"id"          gorm:"type:char(36);primaryKey"`
	Name        string    `json:"name"        gorm:"type:varchar(255);not null"`
	Type        string    `json:"type"        gorm:"type:varchar(16);not null"`
	Source      string    `json:"source"      gorm:"type:varchar(2048);not null;uniqueIndex:idx_kb_source"`
	Status      string    `json:"status"      gorm:"type:varchar(16);not null;default:'processing'"`
	Description string    `json:"description" gorm:"type:text"`
	Tags        []string  `json:"tags"        gorm:"serializer:json"`
	CreatedBy   string    `json:"-"           gorm:"type:varchar(64);not null;index:idx_kb_owner"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// TableName returns the database table name for KnowledgeBaseItem.
func (KnowledgeBaseItem) TableName() string { return "knowledge_base" }

// Conversation statuses.
const (
	ConversationStatusActive    = "active"
	ConversationStatusResolved  = "resolved"
	ConversationStatusPending   = "pending"
	ConversationStatusForwarded = "forwarded"
)

// ValidConversationStatus reports whether s is an accepted conversation status.
func ValidConversationStatus(s string) bool {
	switch s {
	case ConversationStatusActive, ConversationStatusResolved,
		ConversationStatusPending, ConversationStatusForwarded:
		return true
	}
	return false
}

// Conversation is an email thread handled by a bot. Ownership is derived
// through the owning bot's CreatedBy; conversations carry no owner column
// of their own.
type Conversation struct {
	ID            string    `json:"id"            gorm:"type:char(36);primaryKey"`
	BotID         string    `json:"botId"         gorm:"type:char(36);not null;index:idx_conv_bot"`
	CustomerEmail string    `json:"customerEmail" gorm:"type:varchar(320);not null"`
	Subject       string    `json:"subject"       gorm:"type:text"`
	Status        string    `json:"status"        gorm:"type:varchar(16);not null;default:'active'"`
	StartedAt     time.Time `json:"startedAt"`
	LastMessageAt time.Time `json:"lastMessageAt"`
	TotalMessages int       `json:"totalMessages" gorm:"not null;default:0"`
	Tags          []string  `json:"tags"          gorm:"serializer:json"`
	Sentiment     string    `json:"sentiment"     gorm:"type:varchar(16);not null;default:'neutral'"`

	// Messages is the ordered message sequence (timestamp ascending).
	Messages []Message `json:"messages" gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// Message senders.
const (
	SenderBot      = "bot"
	SenderCustomer = "customer"
	SenderHuman    = "human"
)

// Attachment describes one file attached to a message. Attachments are
// stored inline as JSON on the message row.
type Attachment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

// Message is a single utterance within a conversation, authored by the bot,
// the customer, or a human agent.
type Message struct {
	ID             string       `json:"id"             gorm:"type:char(36);primaryKey"`
	ConversationID string       `json:"conversationId" gorm:"type:char(36);not null;index:idx_msg_conv"`
	Sender         string       `json:"sender"         gorm:"type:varchar(16);not null"`
	Content        string       `json:"content"        gorm:"type:text"`
	Timestamp      time.Time    `json:"timestamp"`
	Attachments    []Attachment `json:"attachments,omitempty" gorm:"serializer:json"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }
