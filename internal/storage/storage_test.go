package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/iWorld-y/weflow/internal/model"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(context.Background(), "sqlite://"+filepath.Join(t.TempDir(), "weflow.db"))
	if err != nil {
		t.Fatalf("NewStorage() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveArticleUpsert(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	a := model.NewArticle("First", "https://a.com/1", "2026-10-14")
	a.SourceName = "a.com"
	if err := s.SaveArticle(ctx, a); err != nil {
		t.Fatalf("SaveArticle() error = %v", err)
	}

	a.Title = "First (updated)"
	a.Content = "body\x00with null"
	a.Status = model.StatusCrawled
	a.Analysis = &model.Analysis{Topic: "Robotics", Recommended: true, Reason: "r", Summary: "s"}
	if err := s.SaveArticle(ctx, a); err != nil {
		t.Fatalf("SaveArticle() second save error = %v", err)
	}

	var n int
	if err := s.db.Get(&n, `SELECT COUNT(*) FROM articles`); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("row count = %d, want 1", n)
	}

	got, err := s.GetArticle(ctx, "https://a.com/1")
	if err != nil {
		t.Fatalf("GetArticle() error = %v", err)
	}
	if got.Title != "First (updated)" || got.Status != model.StatusCrawled || got.Content != "bodywith null" {
		t.Errorf("unexpected stored article: %+v", got)
	}
	if got.PublishedDate != "2026-10-14" || got.SourceName != "a.com" {
		t.Errorf("unexpected stored metadata: %+v", got)
	}
	if got.Analysis == nil || *got.Analysis != *a.Analysis {
		t.Errorf("analysis = %+v, want %+v", got.Analysis, a.Analysis)
	}
}

func TestArticleExists(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	exists, err := s.ArticleExists(ctx, "https://a.com/1")
	if err != nil || exists {
		t.Fatalf("ArticleExists() = %v, %v; want false", exists, err)
	}
	if err := s.SaveArticle(ctx, model.NewArticle("T", "https://a.com/1", "")); err != nil {
		t.Fatal(err)
	}
	exists, err = s.ArticleExists(ctx, "https://a.com/1")
	if err != nil || !exists {
		t.Fatalf("ArticleExists() = %v, %v; want true", exists, err)
	}
}

func TestGetArticleMissing(t *testing.T) {
	s := newTestStorage(t)
	if _, err := s.GetArticle(context.Background(), "https://nope"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetArticle() error = %v, want sql.ErrNoRows", err)
	}
}

func TestSaveArticleCanceledContext(t *testing.T) {
	s := newTestStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.SaveArticle(ctx, model.NewArticle("T", "https://a.com/x", "")); err == nil {
		t.Error("SaveArticle() with canceled context should fail")
	}
	exists, err := s.ArticleExists(context.Background(), "https://a.com/x")
	if err != nil || exists {
		t.Errorf("failed save should leave no row: exists=%v err=%v", exists, err)
	}
}

func TestParseDatabaseURL(t *testing.T) {
	tests := []struct {
		in         string
		wantDriver string
		wantDSN    string
		wantErr    bool
	}{
		{"postgres://u:p@localhost/weflow", "postgres", "postgres://u:p@localhost/weflow", false},
		{"postgresql://u@db/weflow?sslmode=disable", "postgres", "postgresql://u@db/weflow?sslmode=disable", false},
		{"sqlite://data/weflow.db", "sqlite3", "data/weflow.db", false},
		{"file:weflow.db?cache=shared", "sqlite3", "file:weflow.db?cache=shared", false},
		{"mysql://x", "", "", true},
	}
	for _, tt := range tests {
		driver, dsn, err := parseDatabaseURL(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseDatabaseURL(%q) error = %v", tt.in, err)
			continue
		}
		if tt.wantErr && !errors.Is(err, ErrUnsupportedDatabase) {
			t.Errorf("error should wrap ErrUnsupportedDatabase: %v", err)
		}
		if driver != tt.wantDriver || dsn != tt.wantDSN {
			t.Errorf("parseDatabaseURL(%q) = (%q, %q), want (%q, %q)", tt.in, driver, dsn, tt.wantDriver, tt.wantDSN)
		}
	}
}
