package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/agentchief/go-emailbots-backend/internal/domain"
	"github.com/agentchief/go-emailbots-backend/internal/services"
	"github.com/agentchief/go-emailbots-backend/internal/settings"
)

//
// Fakes
//

type fakeBots struct {
	mu      sync.Mutex
	items   []domain.Bot
	listErr error
	crtErr  error
	updErr  error
	delErr  error
}

func (f *fakeBots) List(ctx context.Context, userID string) ([]domain.Bot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Bot(nil), f.items...), nil
}

func (f *fakeBots) Create(ctx context.Context, userID string, in services.CreateBotInput) (*domain.Bot, error) {
	if f.crtErr != nil {
		return nil, f.crtErr
	}
	b := domain.Bot{ID: "bot-" + in.Name, Name: in.Name, EmailAddress: in.EmailAddress}
	f.mu.Lock()
	f.items = append(f.items, b)
	f.mu.Unlock()
	return &b, nil
}

func (f *fakeBots) Update(ctx context.Context, userID, id string, in services.UpdateBotInput) (*domain.Bot, error) {
	if f.updErr != nil {
		return nil, f.updErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id {
			if in.Name != nil {
				f.items[i].Name = *in.Name
			}
			b := f.items[i]
			return &b, nil
		}
	}
	return nil, services.ErrNotFound
}

func (f *fakeBots) Delete(ctx context.Context, userID, id string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return services.ErrNotFound
}

type fakeTemplates struct {
	items   []domain.EmailTemplate
	listErr error
}

func (f *fakeTemplates) List(ctx context.Context, userID string) ([]domain.EmailTemplate, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.EmailTemplate(nil), f.items...), nil
}

func (f *fakeTemplates) Create(ctx context.Context, userID string, in services.CreateTemplateInput) (*domain.EmailTemplate, error) {
	t := domain.EmailTemplate{ID: "tpl-" + in.Name, Name: in.Name}
	f.items = append(f.items, t)
	return &t, nil
}

func (f *fakeTemplates) Update(ctx context.Context, userID, id string, in services.UpdateTemplateInput) (*domain.EmailTemplate, error) {
	for i := range f.items {
		if f.items[i].ID == id {
			if in.Name != nil {
				f.items[i].Name = *in.Name
			}
			t := f.items[i]
			return &t, nil
		}
	}
	return nil, services.ErrNotFound
}

func (f *fakeTemplates) Delete(ctx context.Context, userID, id string) error {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return services.ErrNotFound
}

type fakeKnowledge struct {
	items   []domain.KnowledgeBaseItem
	listErr error
}

func (f *fakeKnowledge) List(ctx context.Context, userID string) ([]domain.KnowledgeBaseItem, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.KnowledgeBaseItem(nil), f.items...), nil
}

func (f *fakeKnowledge) Create(ctx context.Context, userID string, in services.CreateKnowledgeInput) (*domain.KnowledgeBaseItem, error) {
	k := domain.KnowledgeBaseItem{ID: "kb-" + in.Name, Name: in.Name, Source: in.Source}
	f.items = append(f.items, k)
	return &k, nil
}

func (f *fakeKnowledge) Update(ctx context.Context, userID, id string, in services.UpdateKnowledgeInput) (*domain.KnowledgeBaseItem, error) {
	for i := range f.items {
		if f.items[i].ID == id {
			k := f.items[i]
			return &k, nil
		}
	}
	return nil, services.ErrNotFound
}

func (f *fakeKnowledge) Delete(ctx context.Context, userID, id string) error { return nil }

// fakeQuestions lets individual ids fail deletion, for per-id reconciliation
// checks.
type fakeQuestions struct {
	mu       sync.Mutex
	items    []domain.FineTuningQuestion
	listErr  error
	failDels map[string]error
}

func (f *fakeQuestions) List(ctx context.Context, userID string) ([]domain.FineTuningQuestion, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.FineTuningQuestion(nil), f.items...), nil
}

func (f *fakeQuestions) Create(ctx context.Context, userID string, in services.CreateQuestionInput) (*domain.FineTuningQuestion, error) {
	q := domain.FineTuningQuestion{ID: "q-" + in.Question, Question: in.Question, BotIDs: in.BotIDs}
	f.mu.Lock()
	f.items = append(f.items, q)
	f.mu.Unlock()
	return &q, nil
}

func (f *fakeQuestions) Update(ctx context.Context, userID, id string, in services.UpdateQuestionInput) (*domain.FineTuningQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id {
			if in.Question != nil {
				f.items[i].Question = *in.Question
			}
			q := f.items[i]
			return &q, nil
		}
	}
	return nil, services.ErrNotFound
}

func (f *fakeQuestions) Delete(ctx context.Context, userID, id string) error {
	if err, bad := f.failDels[id]; bad {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return services.ErrNotFound
}

type fakeConversations struct {
	items   []domain.Conversation
	listErr error
}

func (f *fakeConversations) List(ctx context.Context, userID string) ([]domain.Conversation, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Conversation(nil), f.items...), nil
}

func newTestStore() (*Store, *fakeBots, *fakeTemplates, *fakeKnowledge, *fakeQuestions, *fakeConversations) {
	bots := &fakeBots{items: []domain.Bot{{ID: "b1", Name: "Support"}}}
	templates := &fakeTemplates{items: []domain.EmailTemplate{{ID: "t1", Name: "Welcome"}}}
	knowledge := &fakeKnowledge{items: []domain.KnowledgeBaseItem{{ID: "k1", Name: "Docs"}}}
	questions := &fakeQuestions{items: []domain.FineTuningQuestion{
		{ID: "q1", Question: "How do refunds work?"},
		{ID: "q2", Question: "What is the SLA?"},
		{ID: "q3", Question: "How do I reset a password?"},
	}}
	convs := &fakeConversations{items: []domain.Conversation{{ID: "c1", Subject: "Hello"}}}
	st := New("u1", bots, templates, knowledge, questions, convs, settings.NewService(settings.Defaults()))
	return st, bots, templates, knowledge, questions, convs
}

//
// Initialize
//

func TestStore_Initialize_LoadsAllCollections(t *testing.T) {
	st, _, _, _, _, _ := newTestStore()

	if st.Initialized() {
		t.Fatalf("store should not be initialized before Initialize")
	}
	if err := st.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if !st.Initialized() || st.Busy() || st.LastError() != "" {
		t.Fatalf("flags wrong after init: initialized=%v busy=%v lastErr=%q",
			st.Initialized(), st.Busy(), st.LastError())
	}

	snap := st.Snapshot()
	if len(snap.Bots) != 1 || len(snap.Templates) != 1 || len(snap.Questions) != 3 ||
		len(snap.Knowledge) != 1 || len(snap.Conversations) != 1 {
		t.Fatalf("unexpected snapshot sizes: %+v", snap)
	}
	if snap.Settings.General.CompanyName == "" {
		t.Fatalf("snapshot settings should carry defaults")
	}
}

func TestStore_Initialize_OneFailureKeepsPriorSnapshot(t *testing.T) {
	st, bots, _, _, questions, _ := newTestStore()

	if err := st.Initialize(context.Background()); err != nil {
		t.Fatalf("first Initialize: %v", err)
	}

	// One collection fails on the second load; the others would have
	// returned new data. Nothing may change.
	bots.mu.Lock()
	bots.items = append(bots.items, domain.Bot{ID: "b2", Name: "Sales"})
	bots.mu.Unlock()
	questions.listErr = errors.New("gateway timeout")

	err := st.Initialize(context.Background())
	if err == nil {
		t.Fatalf("expected Initialize to fail")
	}
	if st.LastError() == "" || !strings.Contains(st.LastError(), "gateway timeout") {
		t.Fatalf("LastError = %q", st.LastError())
	}
	if st.Busy() {
		t.Fatalf("busy flag must clear on failure")
	}

	snap := st.Snapshot()
	if len(snap.Bots) != 1 {
		t.Fatalf("partial snapshot leaked: bots=%d (want prior 1)", len(snap.Bots))
	}
	if !st.Initialized() {
		t.Fatalf("a failed refresh must not reset the initialized flag")
	}
}

func TestStore_Initialize_FirstFailureLeavesEmptySnapshot(t *testing.T) {
	st, bots, _, _, _, _ := newTestStore()
	bots.listErr = errors.New("boom")

	if err := st.Initialize(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if st.Initialized() {
		t.Fatalf("initialized must stay false")
	}
	snap := st.Snapshot()
	if len(snap.Templates) != 0 || len(snap.Questions) != 0 {
		t.Fatalf("no collection may be populated after an all-or-nothing failure: %+v", snap)
	}
}

//
// Read-through lists
//

func TestStore_ListBots_RefreshesSnapshotSlice(t *testing.T) {
	st, bots, _, _, _, _ := newTestStore()
	if err := st.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	bots.mu.Lock()
	bots.items = append(bots.items, domain.Bot{ID: "b2", Name: "Sales"})
	bots.mu.Unlock()

	got, err := st.ListBots(context.Background())
	if err != nil {
		t.Fatalf("ListBots: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 bots, got %d", len(got))
	}
	if snap := st.Snapshot(); len(snap.Bots) != 2 {
		t.Fatalf("snapshot not refreshed: %d", len(snap.Bots))
	}
}

func TestStore_ListTemplates_FailureLeavesSnapshot(t *testing.T) {
	st, _, templates, _, _, _ := newTestStore()
	if err := st.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	templates.listErr = errors.New("down")
	if _, err := st.ListTemplates(context.Background()); err == nil {
		t.Fatalf("expected list error")
	}
	if snap := st.Snapshot(); len(snap.Templates) != 1 {
		t.Fatalf("snapshot must be untouched on failure: %d", len(snap.Templates))
	}
}

//
// Mutations reconcile only on success
//

func TestStore_AddBot_AppendsReturnedEntity(t *testing.T) {
	st, _, _, _, _, _ := newTestStore()
	if err := st.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	b, err := st.AddBot(context.Background(), services.CreateBotInput{Name: "Sales", EmailAddress: "sales@x.com"})
	if err != nil {
		t.Fatalf("AddBot: %v", err)
	}
	snap := st.Snapshot()
	if len(snap.Bots) != 2 || snap.Bots[1].ID != b.ID {
		t.Fatalf("snapshot must append the canonical returned entity: %+v", snap.Bots)
	}
}

func TestStore_AddBot_FailureLeavesSnapshot(t *testing.T) {
	st, bots, _, _, _, _ := newTestStore()
	if err := st.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	bots.crtErr = services.ErrDuplicateEmail

	if _, err := st.AddBot(context.Background(), services.CreateBotInput{Name: "X"}); !errors.Is(err, services.ErrDuplicateEmail) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if snap := st.Snapshot(); len(snap.Bots) != 1 {
		t.Fatalf("failed create must not touch the snapshot: %d", len(snap.Bots))
	}
}

func TestStore_UpdateBot_MergesByID(t *testing.T) {
	st, _, _, _, _, _ := newTestStore()
	if err := st.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	name := "Renamed"
	if _, err := st.UpdateBot(context.Background(), "b1", services.UpdateBotInput{Name: &name}); err != nil {
		t.Fatalf("UpdateBot: %v", err)
	}
	snap := st.Snapshot()
	if snap.Bots[0].Name != "Renamed" {
		t.Fatalf("snapshot not merged: %+v", snap.Bots[0])
	}
}

func TestStore_DeleteBot_RemovesFromSnapshot(t *testing.T) {
	st, _, _, _, _, _ := newTestStore()
	if err := st.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := st.DeleteBot(context.Background(), "b1"); err != nil {
		t.Fatalf("DeleteBot: %v", err)
	}
	if snap := st.Snapshot(); len(snap.Bots) != 0 {
		t.Fatalf("bot not removed: %+v", snap.Bots)
	}
}

func TestStore_DeleteBot_FailureKeepsEntry(t *testing.T) {
	st, bots, _, _, _, _ := newTestStore()
	if err := st.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	bots.delErr = errors.New("gateway down")
	if err := st.DeleteBot(context.Background(), "b1"); err == nil {
		t.Fatalf("expected delete error")
	}
	if snap := st.Snapshot(); len(snap.Bots) != 1 {
		t.Fatalf("failed delete must keep the entry: %+v", snap.Bots)
	}
}

//
// Bulk question deletion
//

func TestStore_DeleteQuestions_AllSucceed(t *testing.T) {
	st, _, _, _, _, _ := newTestStore()
	if err := st.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	results, err := st.DeleteQuestions(context.Background(), []string{"q1", "q3"})
	if err != nil {
		t.Fatalf("DeleteQuestions: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Err != nil {
			t.Fatalf("unexpected failure for %s: %v", r.ID, r.Err)
		}
	}
	snap := st.Snapshot()
	if len(snap.Questions) != 1 || snap.Questions[0].ID != "q2" {
		t.Fatalf("snapshot should keep only q2: %+v", snap.Questions)
	}
}

func TestStore_DeleteQuestions_PartialFailureReconcilesPerID(t *testing.T) {
	st, _, _, _, questions, _ := newTestStore()
	if err := st.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	questions.failDels = map[string]error{"q2": errors.New("locked")}

	results, err := st.DeleteQuestions(context.Background(), []string{"q1", "q2", "q3"})
	if err == nil {
		t.Fatalf("expected aggregate error when any delete fails")
	}
	if !strings.Contains(err.Error(), "1 of 3") {
		t.Fatalf("aggregate error should count failures: %v", err)
	}

	// Results align with the input id order.
	if results[0].ID != "q1" || results[1].ID != "q2" || results[2].ID != "q3" {
		t.Fatalf("result order mismatch: %+v", results)
	}
	if results[0].Err != nil || results[1].Err == nil || results[2].Err != nil {
		t.Fatalf("per-id errors wrong: %+v", results)
	}

	// Only the succeeded ids disappear from the snapshot.
	snap := st.Snapshot()
	if len(snap.Questions) != 1 || snap.Questions[0].ID != "q2" {
		t.Fatalf("snapshot should keep exactly the failed id: %+v", snap.Questions)
	}
}

//
// Settings
//

func TestStore_UpdateSettings_InvalidLeavesStored(t *testing.T) {
	st, _, _, _, _, _ := newTestStore()
	if err := st.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	bad := settings.Defaults().Email
	bad.DefaultFromEmail = "not-an-email"
	_, errs := st.UpdateSettings(settings.Patch{Email: &bad})
	if len(errs) == 0 {
		t.Fatalf("expected validation errors")
	}
	if got := st.Snapshot().Settings.Email.DefaultFromEmail; got != "ai@example.com" {
		t.Fatalf("stored settings must be untouched, got %q", got)
	}
}

func TestStore_UpdateSettings_ValidReplacesSection(t *testing.T) {
	st, _, _, _, _, _ := newTestStore()
	if err := st.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	general := settings.General{CompanyName: "Acme", DefaultLanguage: "de", Timezone: "Europe/Berlin", DateFormat: "DD.MM.YYYY"}
	merged, errs := st.UpdateSettings(settings.Patch{General: &general})
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if merged.General.CompanyName != "Acme" {
		t.Fatalf("merged = %+v", merged.General)
	}
	if got := st.Snapshot().Settings.General.CompanyName; got != "Acme" {
		t.Fatalf("snapshot settings stale: %q", got)
	}
}

//
// Manager
//

func TestManager_For_ReturnsSameStorePerUser(t *testing.T) {
	_, bots, templates, knowledge, questions, convs := newTestStore()
	m := NewManager(bots, templates, knowledge, questions, convs, settings.NewService(settings.Defaults()))

	a := m.For("u1")
	b := m.For("u1")
	c := m.For("u2")
	if a != b {
		t.Fatalf("same user must map to the same store")
	}
	if a == c {
		t.Fatalf("different users must not share a store")
	}
	if m.Settings() == nil {
		t.Fatalf("manager must expose the shared settings service")
	}
}

//
// Snapshot isolation
//

func TestStore_DeleteBot_LeavesCallerHeldListIntact(t *testing.T) {
	st, bots, _, _, _, _ := newTestStore()
	bots.items = append(bots.items, domain.Bot{ID: "b2", Name: "Sales"})
	if err := st.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	held, err := st.ListBots(context.Background())
	if err != nil {
		t.Fatalf("ListBots: %v", err)
	}

	if err := st.DeleteBot(context.Background(), "b1"); err != nil {
		t.Fatalf("DeleteBot: %v", err)
	}

	// The reconciliation must not rewrite the array a caller already holds,
	// e.g. a list response still being serialized.
	if len(held) != 2 || held[0].ID != "b1" || held[1].ID != "b2" {
		t.Fatalf("caller-held list mutated by delete: %+v", held)
	}
	snap := st.Snapshot()
	if len(snap.Bots) != 1 || snap.Bots[0].ID != "b2" {
		t.Fatalf("snapshot not reconciled: %+v", snap.Bots)
	}
}

func TestStore_DeleteQuestions_LeavesCallerHeldListIntact(t *testing.T) {
	st, _, _, _, _, _ := newTestStore()
	if err := st.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	held, err := st.ListQuestions(context.Background())
	if err != nil {
		t.Fatalf("ListQuestions: %v", err)
	}

	if _, err := st.DeleteQuestions(context.Background(), []string{"q1", "q2"}); err != nil {
		t.Fatalf("DeleteQuestions: %v", err)
	}

	if len(held) != 3 || held[0].ID != "q1" || held[1].ID != "q2" {
		t.Fatalf("caller-held list mutated by bulk delete: %+v", held)
	}
	snap := st.Snapshot()
	if len(snap.Questions) != 1 || snap.Questions[0].ID != "q3" {
		t.Fatalf("snapshot not reconciled: %+v", snap.Questions)
	}
}
