package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/iWorld-y/weflow/internal/model"
)

// Source 订阅源，返回的文章只包含标题、链接与发布日期
type Source interface {
	Name() string
	FetchArticles(ctx context.Context) ([]*model.Article, error)
}

// RSS 通用 RSS/Atom 订阅源
type RSS struct {
	url    string
	parser *gofeed.Parser
}

// Ensure RSS implements Source
var _ Source = (*RSS)(nil)

// NewRSS 创建订阅源，client 为空时使用 30 秒超时的默认客户端
func NewRSS(feedURL string, client *http.Client) *RSS {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	p := gofeed.NewParser()
	p.Client = client
	p.UserAgent = "WeFlow/1.0"
	return &RSS{url: feedURL, parser: p}
}

// Name 返回订阅源所在域名，作为文章的 source_name
func (r *RSS) Name() string {
	return Domain(r.url)
}

// URL 订阅地址
func (r *RSS) URL() string {
	return r.url
}

// FetchArticles 拉取并解析订阅源
func (r *RSS) FetchArticles(ctx context.Context) ([]*model.Article, error) {
	f, err := r.parser.ParseURLWithContext(r.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", r.url, err)
	}

	articles := make([]*model.Article, 0, len(f.Items))
	for _, item := range f.Items {
		if item == nil || item.Link == "" {
			continue
		}
		articles = append(articles, model.NewArticle(strings.TrimSpace(item.Title), item.Link, publishedDate(item)))
	}
	return articles, nil
}

func publishedDate(item *gofeed.Item) string {
	switch {
	case item.PublishedParsed != nil:
		return item.PublishedParsed.UTC().Format(time.DateOnly)
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.UTC().Format(time.DateOnly)
	default:
		return ""
	}
}

// Domain 提取 URL 的主机名，解析失败时返回原值
func Domain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}
