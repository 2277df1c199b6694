package engine

import (
	"context"
	"sync"

	"github.com/iWorld-y/weflow/internal/logger"
	dm "github.com/iWorld-y/weflow/internal/model"
)

// runPool 用固定数量的 worker 并发处理文章，fn 返回 false 的文章被丢弃。
// 所有任务结束后才返回，结果保持输入顺序
func runPool(ctx context.Context, workers int, stage string, items []*dm.Article, fn func(context.Context, *dm.Article) bool) []*dm.Article {
	keep := make([]bool, len(items))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, a := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, a *dm.Article) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					logger.Log.Errorf("[%s] 处理文章异常 [%s]: %v", stage, a.URL, r)
				}
			}()
			keep[i] = fn(ctx, a)
		}(i, a)
	}
	wg.Wait()

	out := make([]*dm.Article, 0, len(items))
	for i, a := range items {
		if keep[i] {
			out = append(out, a)
		}
	}
	return out
}

// crawlArticle 抓取正文并入库，入库失败不影响后续处理
func (e *Engine) crawlArticle(ctx context.Context, a *dm.Article) bool {
	if e.Store != nil {
		exists, err := e.Store.ArticleExists(ctx, a.URL)
		if err != nil {
			logger.Log.Warnf("检查文章是否存在失败 [%s]: %v", a.URL, err)
		} else if exists {
			logger.Log.Debugf("文章已入库，重新抓取 [%s]", a.URL)
		}
	}

	content, ok := e.Crawler.Crawl(ctx, a.URL)
	if !ok {
		return false
	}
	a.Content = content
	a.Status = dm.StatusCrawled
	e.save(ctx, a)
	return true
}

// analyzeArticle 分类文章，失败的文章被丢弃
func (e *Engine) analyzeArticle(ctx context.Context, a *dm.Article) bool {
	if a.Content == "" {
		return false
	}
	res := e.Analyst.Analyze(ctx, a.Content)
	if !res.OK {
		logger.Log.Warnf("文章分析失败 [%s]: %v", a.Title, res.Err)
		return false
	}
	analysis := res.Value
	a.Analysis = &analysis
	a.Summary = analysis.Summary
	a.Status = dm.StatusSummarized
	e.save(ctx, a)
	return true
}

func (e *Engine) save(ctx context.Context, a *dm.Article) {
	if e.Store == nil {
		return
	}
	if err := e.Store.SaveArticle(ctx, a); err != nil {
		logger.Log.Errorf("保存文章失败 [%s]: %v", a.URL, err)
	}
}
