package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/agentchief/go-emailbots-backend/internal/domain"
)

// seedConversations creates a bot per owner plus two threads for u1 and one
// for u2, returning the u1 conversation ids (older, newer).
func seedConversations(t *testing.T, db *gorm.DB) (older, newer string) {
	t.Helper()
	ctx := context.Background()

	b1, err := CreateBot(ctx, db, newBot("u1", "Mine", "mine@x.com"))
	if err != nil {
		t.Fatalf("seed bot: %v", err)
	}
	b2, _ := CreateBot(ctx, db, newBot("u2", "Theirs", "theirs@x.com"))

	t0 := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	c1, err := CreateConversation(ctx, db, &domain.Conversation{
		BotID: b1.ID, CustomerEmail: "a@x.com", Subject: "Older",
		Status: domain.ConversationStatusActive, StartedAt: t0, LastMessageAt: t0,
		Messages: []domain.Message{
			{Sender: domain.SenderCustomer, Content: "hi", Timestamp: t0},
			{Sender: domain.SenderBot, Content: "hello", Timestamp: t0.Add(time.Minute)},
		},
	})
	if err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	c2, _ := CreateConversation(ctx, db, &domain.Conversation{
		BotID: b1.ID, CustomerEmail: "b@x.com", Subject: "Newer",
		Status: domain.ConversationStatusPending, StartedAt: t0.Add(time.Hour), LastMessageAt: t0.Add(2 * time.Hour),
	})
	CreateConversation(ctx, db, &domain.Conversation{
		BotID: b2.ID, CustomerEmail: "c@y.com", Subject: "Foreign",
		StartedAt: t0, LastMessageAt: t0,
	})
	return c1.ID, c2.ID
}

func TestListConversations_OwnershipThroughBotJoin(t *testing.T) {
	db := newTestDB(t, "conv_list")
	older, newer := seedConversations(t, db)
	ctx := context.Background()

	convs, err := ListConversations(ctx, db, "u1")
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(convs))
	}
	// Newest message first.
	if convs[0].ID != newer || convs[1].ID != older {
		t.Fatalf("order wrong: %s, %s", convs[0].ID, convs[1].ID)
	}
	// Messages preloaded in timestamp order.
	if len(convs[1].Messages) != 2 || convs[1].Messages[0].Content != "hi" {
		t.Fatalf("messages wrong: %+v", convs[1].Messages)
	}
	// TotalMessages derived from the seeded message count.
	if convs[1].TotalMessages != 2 {
		t.Fatalf("total messages = %d", convs[1].TotalMessages)
	}
}

func TestCountAndPageConversations(t *testing.T) {
	db := newTestDB(t, "conv_page")
	older, newer := seedConversations(t, db)
	ctx := context.Background()

	total, err := CountConversations(ctx, db, "u1")
	if err != nil || total != 2 {
		t.Fatalf("CountConversations = %d, %v", total, err)
	}

	page1, err := ListConversationsPage(ctx, db, "u1", 0, 1)
	if err != nil || len(page1) != 1 || page1[0].ID != newer {
		t.Fatalf("page 1 = %+v, %v", page1, err)
	}
	page2, err := ListConversationsPage(ctx, db, "u1", 1, 1)
	if err != nil || len(page2) != 1 || page2[0].ID != older {
		t.Fatalf("page 2 = %+v, %v", page2, err)
	}
}

func TestGetConversation_ForeignOwnerIsNotFound(t *testing.T) {
	db := newTestDB(t, "conv_get")
	older, _ := seedConversations(t, db)
	ctx := context.Background()

	got, err := GetConversation(ctx, db, older, "u1")
	if err != nil || got.Subject != "Older" {
		t.Fatalf("GetConversation: %+v, %v", got, err)
	}
	if _, err := GetConversation(ctx, db, older, "u2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign read must be not found, got %v", err)
	}
}

func TestUpdateConversationStatus(t *testing.T) {
	db := newTestDB(t, "conv_status")
	older, _ := seedConversations(t, db)
	ctx := context.Background()

	before, _ := GetConversation(ctx, db, older, "u1")

	got, err := UpdateConversationStatus(ctx, db, older, "u1", domain.ConversationStatusResolved)
	if err != nil {
		t.Fatalf("UpdateConversationStatus: %v", err)
	}
	if got.Status != domain.ConversationStatusResolved {
		t.Fatalf("status = %q", got.Status)
	}
	// A status change is not a message.
	if !got.LastMessageAt.Equal(before.LastMessageAt) {
		t.Fatalf("last_message_at moved: %v -> %v", before.LastMessageAt, got.LastMessageAt)
	}

	if _, err := UpdateConversationStatus(ctx, db, older, "u2", domain.ConversationStatusActive); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign status change must be not found, got %v", err)
	}
}
