package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/iWorld-y/weflow/internal/crawler"
	"github.com/iWorld-y/weflow/internal/feed"
	"github.com/iWorld-y/weflow/internal/image"
	"github.com/iWorld-y/weflow/internal/llm"
	"github.com/iWorld-y/weflow/internal/logger"
	dm "github.com/iWorld-y/weflow/internal/model"
	"github.com/iWorld-y/weflow/internal/notifier"
	"github.com/iWorld-y/weflow/internal/publisher"
	"github.com/iWorld-y/weflow/internal/storage"
	"github.com/iWorld-y/weflow/internal/vision"
)

var (
	_ Store     = (*storage.Storage)(nil)
	_ Analyst   = (*llm.Client)(nil)
	_ Publisher = (*publisher.WeChat)(nil)
)

// Store 文章持久化
type Store interface {
	SaveArticle(ctx context.Context, a *dm.Article) error
	ArticleExists(ctx context.Context, url string) (bool, error)
}

// Analyst 文章分析与报告写作
type Analyst interface {
	Analyze(ctx context.Context, content string) dm.Result[dm.Analysis]
	SynthesizeReport(ctx context.Context, articles []*dm.Article, topic string, images []dm.ImageCandidate) dm.Result[string]
	UnifyDailyDigest(ctx context.Context, combined string) dm.Result[string]
	GenerateDigestTitle(ctx context.Context, topics []string) dm.Result[string]
}

// Publisher 内容平台发布
type Publisher interface {
	UploadImage(ctx context.Context, src string) (string, error)
	UploadArticleImage(ctx context.Context, src string) (string, error)
	PushDraft(ctx context.Context, req publisher.DraftRequest) (publisher.DraftResult, error)
	GetDraft(ctx context.Context, mediaID string) (*publisher.DraftInfo, bool)
}

// Deps 流水线依赖的各个服务
type Deps struct {
	Sources   []feed.Source
	Crawler   crawler.Crawler
	Analyst   Analyst
	Images    image.Generator
	Vision    vision.Describer
	Store     Store
	Publisher Publisher
	Notifier  notifier.Notifier
}

// Options 运行参数
type Options struct {
	Author       string
	SnapshotPath string
	Workers      int
	Now          func() time.Time
}

// Engine 日报流水线：拉取、抓取、分析、聚类、写作、排版、发布
type Engine struct {
	Deps
	opts Options
}

// Report 一次运行的结果摘要
type Report struct {
	Fetched  int
	Selected int
	Crawled  int
	Analyzed int
	Fallback bool
	Clusters []Cluster
	Sections []Section
	Title    string
	Draft    *publisher.DraftResult
	DraftURL string
	Notified bool
}

// NewEngine 创建引擎实例
func NewEngine(deps Deps, opts Options) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = 5
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if deps.Vision == nil {
		deps.Vision = vision.Mock{}
	}
	if deps.Images == nil {
		deps.Images = image.Mock{}
	}
	return &Engine{Deps: deps, opts: opts}
}

// Run 执行一次完整流程。没有可用文章或主题时提前结束并返回 nil；
// 返回的错误只来自发布阶段，此时已推送的草稿不会回滚
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	rep := &Report{}
	logger.Log.Info("开始生成日报")

	// 1. 拉取
	all := e.fetchAll(ctx)
	rep.Fetched = len(all)
	e.writeSnapshot(all)

	date := e.opts.Now().AddDate(0, 0, -1).Format(time.DateOnly)
	selected, fallback := selectArticles(all, date)
	rep.Selected, rep.Fallback = len(selected), fallback
	if len(selected) == 0 {
		logger.Log.Warn("没有可处理的文章，结束本次运行")
		return rep, nil
	}
	logger.Log.Infof("本次处理 %d 篇文章 (fallback: %v)", len(selected), fallback)

	// 2. 抓取
	crawled := runPool(ctx, e.opts.Workers, "crawl", selected, e.crawlArticle)
	rep.Crawled = len(crawled)
	logger.Log.Infof("抓取完成: %d/%d", len(crawled), len(selected))

	// 3. 分析
	analyzed := runPool(ctx, e.opts.Workers, "analyze", crawled, e.analyzeArticle)
	rep.Analyzed = len(analyzed)
	logger.Log.Infof("分析完成: %d/%d", len(analyzed), len(crawled))

	// 4. 聚类
	clusters := clusterArticles(analyzed)
	rep.Clusters = clusters
	if len(clusters) == 0 {
		logger.Log.Warn("没有推荐的主题，结束本次运行")
		return rep, nil
	}
	logger.Log.Infof("形成 %d 个主题: %v", len(clusters), topicsOf(clusters))

	// 5. 逐个主题写作，已用图片集合在主题之间共享
	used := make(UsedImages)
	for _, c := range clusters {
		sec, err := e.synthesizeTopic(ctx, c, used)
		if err != nil {
			logger.Log.Errorf("主题写作失败 [%s]: %v", c.Topic, err)
			continue
		}
		rep.Sections = append(rep.Sections, sec)
	}
	if len(rep.Sections) == 0 {
		logger.Log.Warn("没有生成任何章节，结束本次运行")
		return rep, nil
	}

	// 6. 排版
	html := e.assemble(ctx, rep.Sections, date)

	// 7. 发布
	if err := e.publish(ctx, rep, html); err != nil {
		return rep, fmt.Errorf("publish: %w", err)
	}
	return rep, nil
}
