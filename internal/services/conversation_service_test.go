package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agentchief/go-emailbots-backend/internal/domain"
	"github.com/agentchief/go-emailbots-backend/internal/repo"
)

// seedThreads creates one bot for u1 with three conversations, returning the
// conversation ids newest-message-first.
func seedThreads(t *testing.T, svc *ConversationService) []string {
	t.Helper()
	ctx := context.Background()

	bot, err := repo.CreateBot(ctx, svc.DB, &domain.Bot{
		Name: "Support", EmailAddress: "support@x.com", CreatedBy: "u1",
		Status: domain.BotStatusActive,
	})
	if err != nil {
		t.Fatalf("seed bot: %v", err)
	}

	t0 := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	ids := make([]string, 3)
	for i := 0; i < 3; i++ {
		c, err := repo.CreateConversation(ctx, svc.DB, &domain.Conversation{
			BotID: bot.ID, CustomerEmail: "c@x.com", Subject: "Thread",
			Status:    domain.ConversationStatusActive,
			StartedAt: t0, LastMessageAt: t0.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("seed conversation: %v", err)
		}
		ids[2-i] = c.ID // invert so ids[0] is the newest
	}
	return ids
}

func TestConversationService_ListPage(t *testing.T) {
	svc := &ConversationService{DB: newServiceDB(t, "conv_svc_page")}
	ids := seedThreads(t, svc)
	ctx := context.Background()

	items, total, err := svc.ListPage(ctx, "u1", 1, 2)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 3 || len(items) != 2 {
		t.Fatalf("page 1: total=%d len=%d", total, len(items))
	}
	if items[0].ID != ids[0] {
		t.Fatalf("newest first violated: %s != %s", items[0].ID, ids[0])
	}

	items, total, err = svc.ListPage(ctx, "u1", 2, 2)
	if err != nil || total != 3 || len(items) != 1 {
		t.Fatalf("page 2: total=%d len=%d err=%v", total, len(items), err)
	}

	// Out-of-range page/pageSize fall back to defaults.
	items, _, err = svc.ListPage(ctx, "u1", -1, 0)
	if err != nil || len(items) != 3 {
		t.Fatalf("defaulted page: len=%d err=%v", len(items), err)
	}
}

func TestConversationService_ListPage_EmptyUser(t *testing.T) {
	svc := &ConversationService{DB: newServiceDB(t, "conv_svc_empty")}
	items, total, err := svc.ListPage(context.Background(), "nobody", 1, 20)
	if err != nil || total != 0 || len(items) != 0 {
		t.Fatalf("empty user: items=%v total=%d err=%v", items, total, err)
	}
}

func TestConversationService_UpdateStatus_ValidatesEnum(t *testing.T) {
	svc := &ConversationService{DB: newServiceDB(t, "conv_svc_status")}
	ids := seedThreads(t, svc)
	ctx := context.Background()

	if _, err := svc.UpdateStatus(ctx, "u1", ids[0], "escalated"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}

	c, err := svc.UpdateStatus(ctx, "u1", ids[0], domain.ConversationStatusResolved)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if c.Status != domain.ConversationStatusResolved {
		t.Fatalf("status = %q", c.Status)
	}

	if _, err := svc.UpdateStatus(ctx, "u2", ids[0], domain.ConversationStatusActive); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign status change must be not found, got %v", err)
	}
}

func TestConversationService_Get(t *testing.T) {
	svc := &ConversationService{DB: newServiceDB(t, "conv_svc_get")}
	ids := seedThreads(t, svc)
	ctx := context.Background()

	c, err := svc.Get(ctx, "u1", ids[1])
	if err != nil || c.ID != ids[1] {
		t.Fatalf("Get: %+v, %v", c, err)
	}
	if _, err := svc.Get(ctx, "u1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Get(ctx, "", ids[1]); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}
