package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/iWorld-y/weflow/internal/logger"
	dm "github.com/iWorld-y/weflow/internal/model"
	"github.com/iWorld-y/weflow/internal/publisher"
)

// DefaultDraftURL 查询不到草稿地址时通知中使用的链接
const DefaultDraftURL = "https://mp.weixin.qq.com"

const titleSuffix = " | WeFlow Daily"

// publish 生成封面、推送草稿并发送通知。任何一步出错都终止后续步骤，不回滚已推送的草稿
func (e *Engine) publish(ctx context.Context, rep *Report, html string) error {
	topics := make([]string, len(rep.Sections))
	for i, s := range rep.Sections {
		topics[i] = s.Topic
	}
	topicList := strings.Join(topics, ", ")

	logger.Log.Info("生成封面")
	cover, err := e.Images.GenerateImage(ctx, "Futuristic collage for topics: "+topicList)
	if err != nil {
		return fmt.Errorf("generate cover: %w", err)
	}
	mediaID, err := e.Publisher.UploadImage(ctx, cover)
	if err != nil {
		return fmt.Errorf("upload cover: %w", err)
	}

	titleRes := e.Analyst.GenerateDigestTitle(ctx, topics)
	title := titleRes.Value
	if titleRes.OK {
		title += titleSuffix
	}
	rep.Title = title

	summary := "Topics: " + topicList
	res, err := e.Publisher.PushDraft(ctx, publisher.DraftRequest{
		Title:        title,
		Author:       e.opts.Author,
		Digest:       summary,
		Content:      html,
		ThumbMediaID: mediaID,
	})
	if err != nil {
		return fmt.Errorf("push draft: %w", err)
	}
	rep.Draft = &res
	logger.Log.Infof("草稿已推送: %s", res)
	e.markPublished(ctx, rep.Sections)

	articleURL := DefaultDraftURL
	if res.HasMediaID() {
		if info, ok := e.Publisher.GetDraft(ctx, res.MediaID); ok && info.URL != "" {
			articleURL = info.URL
		}
	}
	rep.DraftURL = articleURL

	if e.Notifier != nil {
		rep.Notified = e.Notifier.SendCard(ctx, title, summary, articleURL)
	}
	return nil
}

// markPublished 把进入草稿的文章标记为已发布
func (e *Engine) markPublished(ctx context.Context, sections []Section) {
	for _, s := range sections {
		for _, a := range s.Articles {
			a.Status = dm.StatusPublished
			e.save(ctx, a)
		}
	}
}
