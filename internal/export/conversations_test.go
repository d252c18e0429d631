package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/agentchief/go-emailbots-backend/internal/domain"
)

func sampleConversations() []domain.Conversation {
	t0 := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	return []domain.Conversation{
		{
			ID: "c1", CustomerEmail: "alice@example.com", Subject: "Refund request",
			Status: "active", StartedAt: t0, LastMessageAt: t0.Add(45 * time.Minute),
			TotalMessages: 4, Sentiment: "neutral", BotID: "b1",
		},
		{
			ID: "c2", CustomerEmail: "bob@example.com", Subject: "Login issue",
			Status: "resolved", StartedAt: t0.Add(time.Hour), LastMessageAt: t0.Add(2 * time.Hour),
			TotalMessages: 7, Sentiment: "positive", BotID: "b2",
		},
	}
}

func TestFilename(t *testing.T) {
	cases := []struct {
		botID, botName, want string
	}{
		{"", "", "all-conversations.csv"},
		{"all", "Support Bot", "all-conversations.csv"},
		{"b1", "Support Bot", "support-bot-conversations.csv"},
		{"b1", "  Multi   Word  Name ", "multi-word-name-conversations.csv"},
		{"b1", "", "b1-conversations.csv"}, // slug fallback to id
	}
	for _, c := range cases {
		if got := Filename(c.botID, c.botName); got != c.want {
			t.Errorf("Filename(%q, %q) = %q, want %q", c.botID, c.botName, got, c.want)
		}
	}
}

func TestFilterByBot(t *testing.T) {
	convs := sampleConversations()

	if got := FilterByBot(convs, ""); len(got) != 2 {
		t.Fatalf("empty id should select all, got %d", len(got))
	}
	if got := FilterByBot(convs, "all"); len(got) != 2 {
		t.Fatalf("'all' should select all, got %d", len(got))
	}
	got := FilterByBot(convs, "b2")
	if len(got) != 1 || got[0].ID != "c2" {
		t.Fatalf("filter by b2 got %+v", got)
	}
	if got := FilterByBot(convs, "absent"); len(got) != 0 {
		t.Fatalf("unknown bot should select none, got %d", len(got))
	}
}

func TestConversations_WritesHeaderAndRows(t *testing.T) {
	var buf bytes.Buffer
	names := map[string]string{"b1": "Support Bot"}

	if err := Conversations(&buf, sampleConversations(), names); err != nil {
		t.Fatalf("Conversations: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(records))
	}

	header := strings.Join(records[0], "|")
	want := "Conversation ID|Customer Email|Subject|Status|Started At|Last Message|Total Messages|Sentiment|Bot"
	if header != want {
		t.Fatalf("header = %q", header)
	}

	r1 := records[1]
	if r1[0] != "c1" || r1[1] != "alice@example.com" || r1[4] != "2025-03-10 09:30:00" ||
		r1[6] != "4" || r1[8] != "Support Bot" {
		t.Fatalf("row 1 = %v", r1)
	}
	// b2 missing from the name map renders the fallback.
	if records[2][8] != "Unknown Bot" {
		t.Fatalf("row 2 bot = %q, want Unknown Bot", records[2][8])
	}
}

func TestConversations_EmptyCollectionStillWritesHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := Conversations(&buf, nil, nil); err != nil {
		t.Fatalf("Conversations: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected header only, got %d records", len(records))
	}
}
