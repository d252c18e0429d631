package store

import (
	"sync"

	"github.com/agentchief/go-emailbots-backend/internal/settings"
)

// Manager hands out one Store per authenticated user, creating it lazily
// on first use. All stores share the same entity services and the same
// process-local settings object.
type Manager struct {
	bots          BotOps
	templates     TemplateOps
	knowledge     KnowledgeOps
	questions     QuestionOps
	conversations ConversationOps
	settings      *settings.Service

	mu     sync.Mutex
	stores map[string]*Store
}

// NewManager wires a Manager over the shared entity services.
func NewManager(bots BotOps, templates TemplateOps, knowledge KnowledgeOps,
	questions QuestionOps, conversations ConversationOps, cfg *settings.Service) *Manager {
	return &Manager{
		bots:          bots,
		templates:     templates,
		knowledge:     knowledge,
		questions:     questions,
		conversations: conversations,
		settings:      cfg,
		stores:        make(map[string]*Store),
	}
}

// For returns the store owned by userID, creating it if absent.
func (m *Manager) For(userID string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[userID]
	if !ok {
		s = New(userID, m.bots, m.templates, m.knowledge, m.questions, m.conversations, m.settings)
		m.stores[userID] = s
	}
	return s
}

// Settings exposes the shared settings service.
func (m *Manager) Settings() *settings.Service {
	return m.settings
}
