package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"os"

	"github.com/iWorld-y/weflow/internal/logger"
	dm "github.com/iWorld-y/weflow/internal/model"
)

// fallbackLimit 没有昨天的文章时取前 N 篇
const fallbackLimit = 20

// fetchAll 依次拉取所有订阅源，单个源失败只记录日志
func (e *Engine) fetchAll(ctx context.Context) []*dm.Article {
	var all []*dm.Article
	for _, src := range e.Sources {
		articles, err := src.FetchArticles(ctx)
		if err != nil {
			logger.Log.Errorf("拉取订阅源失败 [%s]: %v", src.Name(), err)
			continue
		}
		for _, a := range articles {
			a.SourceName = src.Name()
		}
		logger.Log.Debugf("订阅源 [%s] 返回 %d 篇文章", src.Name(), len(articles))
		all = append(all, articles...)
	}
	logger.Log.Infof("共拉取 %d 篇文章", len(all))
	return all
}

// writeSnapshot 把原始文章列表写成 JSON 供审计，失败不影响流程
func (e *Engine) writeSnapshot(articles []*dm.Article) {
	if e.opts.SnapshotPath == "" {
		return
	}
	if articles == nil {
		articles = []*dm.Article{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(articles); err != nil {
		logger.Log.Warnf("序列化文章快照失败: %v", err)
		return
	}
	if err := os.WriteFile(e.opts.SnapshotPath, buf.Bytes(), 0o644); err != nil {
		logger.Log.Warnf("写入文章快照失败 [%s]: %v", e.opts.SnapshotPath, err)
	}
}

// selectArticles 选出发布日期为 date 的文章；一篇都没有时取前 20 篇并标记为 fallback
func selectArticles(all []*dm.Article, date string) ([]*dm.Article, bool) {
	var selected []*dm.Article
	for _, a := range all {
		if a.PublishedDate == date {
			selected = append(selected, a)
		}
	}
	if len(selected) > 0 {
		return selected, false
	}

	logger.Log.Warnf("没有 %s 发布的文章，改用最近 %d 篇", date, fallbackLimit)
	if len(all) > fallbackLimit {
		all = all[:fallbackLimit]
	}
	return all, true
}
