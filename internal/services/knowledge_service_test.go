package services

import (
	"context"
	"errors"
	"testing"

	"github.com/agentchief/go-emailbots-backend/internal/domain"
)

func TestNormalizeWebsiteSource(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"example.com", "https://example.com", false},
		{"example.com/docs", "https://example.com/docs", false},
		{"http://example.com", "http://example.com", false},
		{"https://example.com", "https://example.com", false},
		{"  example.com  ", "https://example.com", false},
		{"", "", true},
		{"   ", "", true},
		{"https://", "", true},
		{"not a url", "", true},
	}
	for _, c := range cases {
		got, err := NormalizeWebsiteSource(c.in)
		if c.wantErr {
			if !errors.Is(err, ErrInvalidURL) {
				t.Errorf("NormalizeWebsiteSource(%q) err = %v, want ErrInvalidURL", c.in, err)
			}
			continue
		}
		if err != nil || got != c.want {
			t.Errorf("NormalizeWebsiteSource(%q) = %q, %v; want %q", c.in, got, err, c.want)
		}
	}
}

func TestKnowledgeService_Create_NormalizesWebsiteSource(t *testing.T) {
	svc := &KnowledgeService{DB: newServiceDB(t, "kb_create")}
	ctx := context.Background()

	item, err := svc.Create(ctx, "u1", CreateKnowledgeInput{
		Name: "Docs site", Type: domain.KnowledgeTypeWebsite, Source: "docs.example.com",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if item.Source != "https://docs.example.com" {
		t.Fatalf("source not normalized: %q", item.Source)
	}
	if item.Status != domain.KnowledgeStatusProcessing {
		t.Fatalf("new items must start processing, got %q", item.Status)
	}
}

func TestKnowledgeService_Create_InvalidWebsiteURL(t *testing.T) {
	svc := &KnowledgeService{DB: newServiceDB(t, "kb_badurl")}
	_, err := svc.Create(context.Background(), "u1", CreateKnowledgeInput{
		Name: "Bad", Type: domain.KnowledgeTypeWebsite, Source: "not a url",
	})
	if !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL, got %v", err)
	}
}

func TestKnowledgeService_Create_DuplicateSourceAfterNormalization(t *testing.T) {
	svc := &KnowledgeService{DB: newServiceDB(t, "kb_dup")}
	ctx := context.Background()

	if _, err := svc.Create(ctx, "u1", CreateKnowledgeInput{
		Name: "Docs", Type: domain.KnowledgeTypeWebsite, Source: "https://docs.example.com",
	}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	// The scheme-less form normalizes to the same source.
	_, err := svc.Create(ctx, "u1", CreateKnowledgeInput{
		Name: "Docs again", Type: domain.KnowledgeTypeWebsite, Source: "docs.example.com",
	})
	if !errors.Is(err, ErrDuplicateSource) {
		t.Fatalf("expected ErrDuplicateSource, got %v", err)
	}
}

func TestKnowledgeService_Create_DocumentSourceNotNormalized(t *testing.T) {
	svc := &KnowledgeService{DB: newServiceDB(t, "kb_doc")}
	item, err := svc.Create(context.Background(), "u1", CreateKnowledgeInput{
		Name: "Handbook", Type: domain.KnowledgeTypeDocument, Source: "handbook.pdf",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if item.Source != "handbook.pdf" {
		t.Fatalf("document sources must be stored verbatim, got %q", item.Source)
	}
}

func TestKnowledgeService_Update_WebsiteResetsToProcessing(t *testing.T) {
	svc := &KnowledgeService{DB: newServiceDB(t, "kb_update_site")}
	ctx := context.Background()

	item, _ := svc.Create(ctx, "u1", CreateKnowledgeInput{
		Name: "Docs", Type: domain.KnowledgeTypeWebsite, Source: "docs.example.com",
	})

	typ := domain.KnowledgeTypeWebsite
	src := "docs2.example.com"
	upd, err := svc.Update(ctx, "u1", item.ID, UpdateKnowledgeInput{Type: &typ, Source: &src})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if upd.Source != "https://docs2.example.com" {
		t.Fatalf("updated source not normalized: %q", upd.Source)
	}
	// A changed website source needs a re-crawl.
	if upd.Status != domain.KnowledgeStatusProcessing {
		t.Fatalf("website update must reset to processing, got %q", upd.Status)
	}
}

func TestKnowledgeService_Update_NonWebsiteMarksReady(t *testing.T) {
	svc := &KnowledgeService{DB: newServiceDB(t, "kb_update_doc")}
	ctx := context.Background()

	item, _ := svc.Create(ctx, "u1", CreateKnowledgeInput{
		Name: "Handbook", Type: domain.KnowledgeTypeDocument, Source: "handbook.pdf",
	})

	name := "Handbook v2"
	upd, err := svc.Update(ctx, "u1", item.ID, UpdateKnowledgeInput{Name: &name})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if upd.Status != domain.KnowledgeStatusReady {
		t.Fatalf("non-website update should mark ready, got %q", upd.Status)
	}
}

func TestKnowledgeService_Update_DuplicateSourceExcludesSelf(t *testing.T) {
	svc := &KnowledgeService{DB: newServiceDB(t, "kb_update_dup")}
	ctx := context.Background()

	a, _ := svc.Create(ctx, "u1", CreateKnowledgeInput{
		Name: "A", Type: domain.KnowledgeTypeWebsite, Source: "a.example.com",
	})
	svc.Create(ctx, "u1", CreateKnowledgeInput{
		Name: "B", Type: domain.KnowledgeTypeWebsite, Source: "b.example.com",
	})

	// Re-submitting the item's own source is fine.
	own := "https://a.example.com"
	if _, err := svc.Update(ctx, "u1", a.ID, UpdateKnowledgeInput{Source: &own}); err != nil {
		t.Fatalf("own source must not conflict: %v", err)
	}

	taken := "https://b.example.com"
	if _, err := svc.Update(ctx, "u1", a.ID, UpdateKnowledgeInput{Source: &taken}); !errors.Is(err, ErrDuplicateSource) {
		t.Fatalf("expected ErrDuplicateSource, got %v", err)
	}
}

func TestKnowledgeService_Delete(t *testing.T) {
	svc := &KnowledgeService{DB: newServiceDB(t, "kb_delete")}
	ctx := context.Background()

	item, _ := svc.Create(ctx, "u1", CreateKnowledgeInput{
		Name: "Handbook", Type: domain.KnowledgeTypeDocument, Source: "handbook.pdf",
	})
	if err := svc.Delete(ctx, "u1", item.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, "u1", item.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete must be not found, got %v", err)
	}
}

func TestKnowledgeService_Update_TagsPersist(t *testing.T) {
	svc := &KnowledgeService{DB: newServiceDB(t, "kb_update_tags")}
	ctx := context.Background()

	item, _ := svc.Create(ctx, "u1", CreateKnowledgeInput{
		Name: "Handbook", Type: domain.KnowledgeTypeDocument, Source: "handbook.pdf",
	})

	upd, err := svc.Update(ctx, "u1", item.ID, UpdateKnowledgeInput{Tags: []string{"hr", "policies"}})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(upd.Tags) != 2 || upd.Tags[1] != "policies" {
		t.Fatalf("tags wrong after update: %+v", upd.Tags)
	}

	items, err := svc.List(ctx, "u1")
	if err != nil || len(items) != 1 || len(items[0].Tags) != 2 {
		t.Fatalf("persisted tags wrong: err=%v items=%+v", err, items)
	}
}
