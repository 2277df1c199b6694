package publisher

import (
	"context"
	"fmt"

	"github.com/iWorld-y/weflow/internal/logger"
)

// DraftKind 草稿推送结果类型
type DraftKind int

const (
	// DraftMediaID 返回了可查询的草稿 media_id
	DraftMediaID DraftKind = iota + 1
	// DraftAccepted 接口只返回 errcode=0，没有可查询的标识
	DraftAccepted
)

// DraftRequest 草稿内容
type DraftRequest struct {
	Title        string
	Author       string
	Digest       string
	Content      string
	SourceURL    string
	ThumbMediaID string
}

// DraftResult 草稿推送结果
type DraftResult struct {
	Kind    DraftKind
	MediaID string
}

// HasMediaID 是否可以用 GetDraft 查询
func (r DraftResult) HasMediaID() bool {
	return r.Kind == DraftMediaID && r.MediaID != ""
}

func (r DraftResult) String() string {
	if r.HasMediaID() {
		return r.MediaID
	}
	return "Success"
}

// DraftInfo 草稿详情
type DraftInfo struct {
	Title        string `json:"title"`
	Author       string `json:"author"`
	Digest       string `json:"digest"`
	URL          string `json:"url"`
	ThumbMediaID string `json:"thumb_media_id"`
}

type draftArticle struct {
	Title            string `json:"title"`
	Author           string `json:"author"`
	Digest           string `json:"digest"`
	Content          string `json:"content"`
	ContentSourceURL string `json:"content_source_url"`
	ThumbMediaID     string `json:"thumb_media_id"`
}

// PushDraft 新建草稿。非成功响应返回 ErrDraftRejected
func (w *WeChat) PushDraft(ctx context.Context, req DraftRequest) (DraftResult, error) {
	token, err := w.accessToken(ctx)
	if err != nil {
		return DraftResult{}, err
	}

	payload := map[string][]draftArticle{
		"articles": {{
			Title:            req.Title,
			Author:           req.Author,
			Digest:           req.Digest,
			Content:          req.Content,
			ContentSourceURL: req.SourceURL,
			ThumbMediaID:     req.ThumbMediaID,
		}},
	}

	var resp struct {
		apiError
		MediaID string `json:"media_id"`
	}
	if err := w.postJSON(ctx, w.endpoint("/cgi-bin/draft/add", token, nil), payload, &resp); err != nil {
		return DraftResult{}, fmt.Errorf("push draft: %w", err)
	}

	switch {
	case resp.MediaID != "":
		return DraftResult{Kind: DraftMediaID, MediaID: resp.MediaID}, nil
	case resp.ErrCode != nil && *resp.ErrCode == 0:
		return DraftResult{Kind: DraftAccepted}, nil
	default:
		return DraftResult{}, fmt.Errorf("%w: %s", ErrDraftRejected, resp.apiError)
	}
}

// GetDraft 查询草稿，任何失败都返回 false
func (w *WeChat) GetDraft(ctx context.Context, mediaID string) (*DraftInfo, bool) {
	token, err := w.accessToken(ctx)
	if err != nil {
		logger.Log.Warnf("查询草稿失败: %v", err)
		return nil, false
	}

	var resp struct {
		apiError
		NewsItem []DraftInfo `json:"news_item"`
	}
	if err := w.postJSON(ctx, w.endpoint("/cgi-bin/draft/get", token, nil), map[string]string{"media_id": mediaID}, &resp); err != nil {
		logger.Log.Warnf("查询草稿失败 [%s]: %v", mediaID, err)
		return nil, false
	}
	if len(resp.NewsItem) == 0 {
		logger.Log.Warnf("草稿不存在 [%s]: %s", mediaID, resp.apiError)
		return nil, false
	}
	return &resp.NewsItem[0], true
}
