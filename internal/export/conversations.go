// Package export renders the conversation collection as a downloadable
// CSV blob. Pure formatting: no persistence, no identity checks — callers
// pass in an already-scoped collection.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/agentchief/go-emailbots-backend/internal/domain"
)

// conversationHeader mirrors the dashboard's download column order.
var conversationHeader = []string{
	"Conversation ID", "Customer Email", "Subject", "Status",
	"Started At", "Last Message", "Total Messages", "Sentiment", "Bot",
}

const timeLayout = "2006-01-02 15:04:05"

// Filename returns the suggested download name: the bot name slugified,
// or "all-conversations.csv" when exporting every bot.
func Filename(botID, botName string) string {
	if botID == "" || botID == "all" {
		return "all-conversations.csv"
	}
	slug := strings.Join(strings.Fields(strings.ToLower(botName)), "-")
	if slug == "" {
		slug = botID
	}
	return slug + "-conversations.csv"
}

// FilterByBot returns the subset of conversations belonging to botID.
// An empty id or "all" selects everything.
func FilterByBot(convs []domain.Conversation, botID string) []domain.Conversation {
	if botID == "" || botID == "all" {
		return convs
	}
	out := make([]domain.Conversation, 0, len(convs))
	for _, c := range convs {
		if c.BotID == botID {
			out = append(out, c)
		}
	}
	return out
}

// Conversations writes the collection as CSV. botNames maps bot id to
// display name; unknown ids render as "Unknown Bot".
func Conversations(w io.Writer, convs []domain.Conversation, botNames map[string]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(conversationHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, c := range convs {
		name, ok := botNames[c.BotID]
		if !ok || name == "" {
			name = "Unknown Bot"
		}
		row := []string{
			c.ID,
			c.CustomerEmail,
			c.Subject,
			c.Status,
			c.StartedAt.Format(timeLayout),
			c.LastMessageAt.Format(timeLayout),
			fmt.Sprintf("%d", c.TotalMessages),
			c.Sentiment,
			name,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
