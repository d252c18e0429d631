// Package importer turns an uploaded CSV of fine-tuning questions into
// create calls against the question service. Rows are independent: a bad
// row is recorded in its result entry and never aborts the batch.
//
// Expected columns (header names matched case-insensitively):
//
//	question, expected_answer, category, difficulty, tags, bot_ids
//
// question/expected_answer/category/difficulty are required headers;
// difficulty falls back to "medium" when a cell is empty; tags and
// bot_ids are optional comma-joined lists.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/agentchief/go-emailbots-backend/internal/domain"
	"github.com/agentchief/go-emailbots-backend/internal/services"
)

// requiredColumns must all appear in the header row.
var requiredColumns = []string{"question", "expected_answer", "category", "difficulty"}

// Row is one parsed question line.
type Row struct {
	Question       string
	ExpectedAnswer string
	Category       string
	Difficulty     string
	Tags           []string
	BotIDs         []string
}

// Result reports the outcome of one row's create call. Line is the
// 1-based CSV line number (header is line 1).
type Result struct {
	Line     int                        `json:"line"`
	Question *domain.FineTuningQuestion `json:"question,omitempty"`
	Err      error                      `json:"-"`
}

// QuestionCreator is the slice of the fine-tuning service the importer
// needs.
type QuestionCreator interface {
	Create(ctx context.Context, userID string, in services.CreateQuestionInput) (*domain.FineTuningQuestion, error)
}

// ParseQuestions reads the CSV and returns one Row per data line. It fails
// as a whole only on unreadable input or missing required columns.
func ParseQuestions(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("no data found in the file")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}
		rows = append(rows, Row{
			Question:       cell(rec, cols, "question"),
			ExpectedAnswer: cell(rec, cols, "expected_answer"),
			Category:       cell(rec, cols, "category"),
			Difficulty:     normalizeDifficulty(cell(rec, cols, "difficulty")),
			Tags:           splitList(cell(rec, cols, "tags")),
			BotIDs:         splitList(cell(rec, cols, "bot_ids")),
		})
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data found in the file")
	}
	return rows, nil
}

// Import parses the CSV and feeds each row through the question create
// path, returning per-row results in input order.
func Import(ctx context.Context, svc QuestionCreator, userID string, r io.Reader) ([]Result, error) {
	rows, err := ParseQuestions(r)
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(rows))
	for i, row := range rows {
		res := Result{Line: i + 2} // +1 for header, +1 for 1-based
		if row.Question == "" {
			res.Err = fmt.Errorf("question must not be empty")
			results = append(results, res)
			continue
		}
		q, err := svc.Create(ctx, userID, services.CreateQuestionInput{
			Question:       row.Question,
			ExpectedAnswer: row.ExpectedAnswer,
			Category:       row.Category,
			Difficulty:     row.Difficulty,
			Tags:           row.Tags,
			BotIDs:         row.BotIDs,
		})
		res.Question, res.Err = q, err
		results = append(results, res)
	}
	return results, nil
}

func cell(rec []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func normalizeDifficulty(s string) string {
	s = strings.ToLower(s)
	if s == "" {
		return "medium"
	}
	return s
}

// splitList parses a comma-joined cell into trimmed, non-empty items.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
