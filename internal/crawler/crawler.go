package crawler

import (
	"context"
	"net/http"
	"time"

	"github.com/iWorld-y/weflow/internal/config"
	"github.com/iWorld-y/weflow/internal/logger"
)

// Crawler 获取页面正文（Markdown 或纯文本）。
// 第二个返回值为 false 表示本次没有拿到内容，调用方跳过该文章即可。
type Crawler interface {
	Crawl(ctx context.Context, url string) (string, bool)
}

// New 配置了 Firecrawl 密钥时使用 Firecrawl，否则回退到本地 readability 抽取
func New(cfg config.FirecrawlConfig) Crawler {
	if cfg.APIKey != "" {
		return NewFirecrawl(cfg.APIKey)
	}
	logger.Log.Info("未配置 FIRECRAWL_API_KEY，使用 readability 抽取正文")
	return NewReadability(&http.Client{Timeout: 30 * time.Second})
}
