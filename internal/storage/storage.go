package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/iWorld-y/weflow/internal/model"
)

// ErrUnsupportedDatabase DATABASE_URL 的协议无法识别
var ErrUnsupportedDatabase = errors.New("unsupported database url")

const schema = `
CREATE TABLE IF NOT EXISTS articles (
	url               TEXT PRIMARY KEY,
	title             TEXT NOT NULL,
	published_date    TEXT,
	source_name       TEXT,
	content           TEXT,
	summary           TEXT,
	analysis          TEXT,
	image_url         TEXT,
	external_media_id TEXT,
	status            TEXT NOT NULL DEFAULT 'pending',
	created_at        TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at        TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

const upsertArticle = `
INSERT INTO articles (url, title, published_date, source_name, content, summary, analysis, image_url, external_media_id, status)
VALUES (:url, :title, :published_date, :source_name, :content, :summary, :analysis, :image_url, :external_media_id, :status)
ON CONFLICT (url) DO UPDATE SET
	title = excluded.title,
	published_date = excluded.published_date,
	source_name = excluded.source_name,
	content = excluded.content,
	summary = excluded.summary,
	analysis = excluded.analysis,
	image_url = excluded.image_url,
	external_media_id = excluded.external_media_id,
	status = excluded.status,
	updated_at = CURRENT_TIMESTAMP`

// Storage 文章持久化，url 为唯一键
type Storage struct {
	db *sqlx.DB
}

// articleRow 数据库行，可空字段用 sql.NullString
type articleRow struct {
	URL             string         `db:"url"`
	Title           string         `db:"title"`
	PublishedDate   sql.NullString `db:"published_date"`
	SourceName      sql.NullString `db:"source_name"`
	Content         sql.NullString `db:"content"`
	Summary         sql.NullString `db:"summary"`
	Analysis        sql.NullString `db:"analysis"`
	ImageURL        sql.NullString `db:"image_url"`
	ExternalMediaID sql.NullString `db:"external_media_id"`
	Status          string         `db:"status"`
}

// NewStorage 根据 DATABASE_URL 选择驱动并建表。
// postgres:// 与 postgresql:// 使用 PostgreSQL，sqlite://<path> 与 file: 使用 SQLite
func NewStorage(ctx context.Context, databaseURL string) (*Storage, error) {
	driver, dsn, err := parseDatabaseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if driver == "sqlite3" {
		// SQLite 单写者，避免并发写入时出现 database is locked
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Storage{db: db}, nil
}

func parseDatabaseURL(raw string) (driver, dsn string, err error) {
	switch {
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return "postgres", raw, nil
	case strings.HasPrefix(raw, "sqlite://"):
		return "sqlite3", strings.TrimPrefix(raw, "sqlite://"), nil
	case strings.HasPrefix(raw, "file:"):
		return "sqlite3", raw, nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedDatabase, raw)
	}
}

// Close 关闭连接
func (s *Storage) Close() error {
	return s.db.Close()
}

// SaveArticle 按 url 插入或整体更新文章，失败时回滚事务
func (s *Storage) SaveArticle(ctx context.Context, a *model.Article) error {
	row, err := toRow(a)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.NamedExecContext(ctx, upsertArticle, row); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			err = fmt.Errorf("%w: %v", err, rerr)
		}
		return fmt.Errorf("save article %s: %w", a.URL, err)
	}
	return tx.Commit()
}

// ArticleExists 判断 url 是否已入库
func (s *Storage) ArticleExists(ctx context.Context, url string) (bool, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, s.db.Rebind(`SELECT COUNT(*) FROM articles WHERE url = ?`), url); err != nil {
		return false, fmt.Errorf("check article %s: %w", url, err)
	}
	return n > 0, nil
}

// GetArticle 按 url 读取文章，不存在时返回 sql.ErrNoRows
func (s *Storage) GetArticle(ctx context.Context, url string) (*model.Article, error) {
	var row articleRow
	query := s.db.Rebind(`SELECT url, title, published_date, source_name, content, summary, analysis, image_url, external_media_id, status
		FROM articles WHERE url = ?`)
	if err := s.db.GetContext(ctx, &row, query, url); err != nil {
		return nil, err
	}
	return fromRow(&row)
}

func toRow(a *model.Article) (*articleRow, error) {
	row := &articleRow{
		URL:             a.URL,
		Title:           clean(a.Title),
		PublishedDate:   nullString(a.PublishedDate),
		SourceName:      nullString(a.SourceName),
		Content:         nullString(clean(a.Content)),
		Summary:         nullString(clean(a.Summary)),
		ImageURL:        nullString(a.ImageURL),
		ExternalMediaID: nullString(a.ExternalMediaID),
		Status:          string(a.Status),
	}
	if row.Status == "" {
		row.Status = string(model.StatusPending)
	}
	if a.Analysis != nil {
		data, err := json.Marshal(a.Analysis)
		if err != nil {
			return nil, fmt.Errorf("marshal analysis: %w", err)
		}
		row.Analysis = nullString(string(data))
	}
	return row, nil
}

func fromRow(row *articleRow) (*model.Article, error) {
	a := &model.Article{
		URL:             row.URL,
		Title:           row.Title,
		PublishedDate:   row.PublishedDate.String,
		SourceName:      row.SourceName.String,
		Content:         row.Content.String,
		Summary:         row.Summary.String,
		ImageURL:        row.ImageURL.String,
		ExternalMediaID: row.ExternalMediaID.String,
		Status:          model.Status(row.Status),
	}
	if row.Analysis.Valid && row.Analysis.String != "" {
		var analysis model.Analysis
		if err := json.Unmarshal([]byte(row.Analysis.String), &analysis); err != nil {
			return nil, fmt.Errorf("unmarshal analysis: %w", err)
		}
		a.Analysis = &analysis
	}
	return a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// clean 去掉无效 UTF-8 与 NULL 字节，PostgreSQL 文本字段不接受这两者
func clean(s string) string {
	return strings.ReplaceAll(strings.ToValidUTF8(s, ""), "\x00", "")
}
