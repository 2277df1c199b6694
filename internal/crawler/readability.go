package crawler

import (
	"context"
	"fmt"
	"net/http"
	nurl "net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"github.com/iWorld-y/weflow/internal/logger"
)

// Readability 本地抽取正文，无需第三方抓取服务
type Readability struct {
	client *http.Client
}

// Ensure Readability implements Crawler
var _ Crawler = (*Readability)(nil)

// NewReadability 创建本地抽取器
func NewReadability(client *http.Client) *Readability {
	return &Readability{client: client}
}

// Crawl 抽取正文纯文本，并把正文中的图片以 Markdown 图片引用的形式追加在末尾
func (r *Readability) Crawl(ctx context.Context, url string) (string, bool) {
	text, err := r.fetch(ctx, url)
	if err != nil {
		logger.Log.Warnf("抓取失败 [%s]: %v", url, err)
		return "", false
	}
	if strings.TrimSpace(text) == "" {
		logger.Log.Warnf("抓取结果为空 [%s]", url)
		return "", false
	}
	return text, true
}

func (r *Readability) fetch(ctx context.Context, url string) (string, error) {
	pageURL, err := nurl.Parse(url)
	if err != nil {
		return "", fmt.Errorf("parse url failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("User-Agent", "WeFlow/1.0")

	res, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", res.StatusCode)
	}

	article, err := readability.FromReader(res.Body, pageURL)
	if err != nil {
		return "", fmt.Errorf("readability failed: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(article.TextContent))
	for _, img := range imageRefs(article.Content, pageURL) {
		sb.WriteString("\n\n")
		sb.WriteString(img)
	}
	return sb.String(), nil
}

// imageRefs 把正文 HTML 中的图片转成 ![alt](src)，只保留 http(s) 绝对地址
func imageRefs(content string, base *nurl.URL) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var refs []string
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok || src == "" {
			return
		}
		u, err := base.Parse(src)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return
		}
		abs := u.String()
		if seen[abs] {
			return
		}
		seen[abs] = true
		alt := strings.TrimSpace(s.AttrOr("alt", ""))
		refs = append(refs, fmt.Sprintf("![%s](%s)", alt, abs))
	})
	return refs
}
