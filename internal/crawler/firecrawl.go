package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iWorld-y/weflow/internal/logger"
)

const firecrawlURL = "https://api.firecrawl.dev/v0/scrape"

// Firecrawl Firecrawl 抓取服务客户端
type Firecrawl struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// Ensure Firecrawl implements Crawler
var _ Crawler = (*Firecrawl)(nil)

// NewFirecrawl 创建 Firecrawl 客户端
func NewFirecrawl(apiKey string) *Firecrawl {
	return &Firecrawl{
		apiKey:  apiKey,
		baseURL: firecrawlURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// WithEndpoint 替换接口地址与 HTTP 客户端
func (f *Firecrawl) WithEndpoint(endpoint string, client *http.Client) *Firecrawl {
	f.baseURL = endpoint
	if client != nil {
		f.client = client
	}
	return f
}

type scrapeRequest struct {
	URL         string      `json:"url"`
	PageOptions pageOptions `json:"pageOptions"`
}

type pageOptions struct {
	OnlyMainContent bool `json:"onlyMainContent"`
}

// scrapeResponse 兼容 data.markdown 与顶层 markdown 两种结构
type scrapeResponse struct {
	Data *struct {
		Markdown string `json:"markdown"`
	} `json:"data"`
	Markdown string `json:"markdown"`
}

// Crawl 抓取页面主体内容，任何失败都只记录日志并返回 false
func (f *Firecrawl) Crawl(ctx context.Context, url string) (string, bool) {
	md, err := f.scrape(ctx, url)
	if err != nil {
		logger.Log.Warnf("抓取失败 [%s]: %v", url, err)
		return "", false
	}
	if md == "" {
		logger.Log.Warnf("抓取结果为空 [%s]", url)
		return "", false
	}
	return md, true
}

func (f *Firecrawl) scrape(ctx context.Context, url string) (string, error) {
	payload, err := json.Marshal(scrapeRequest{
		URL:         url,
		PageOptions: pageOptions{OnlyMainContent: true},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request failed: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request failed: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+f.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := f.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("read body failed: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("firecrawl api error (status %d): %s", res.StatusCode, string(body))
	}

	var resp scrapeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unmarshal response failed: %w", err)
	}
	if resp.Data != nil && resp.Data.Markdown != "" {
		return resp.Data.Markdown, nil
	}
	return resp.Markdown, nil
}
