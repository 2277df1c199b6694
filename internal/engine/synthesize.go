package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/iWorld-y/weflow/internal/formatter"
	"github.com/iWorld-y/weflow/internal/logger"
	dm "github.com/iWorld-y/weflow/internal/model"
)

const (
	// maxCandidates 每个主题最多检查的图片数
	maxCandidates = 5
	// HeaderPlaceholder 题图生成也失败时使用的占位图
	HeaderPlaceholder = "https://via.placeholder.com/600x300?text=No+Image"
)

// UsedImages 本次运行中已被某个主题使用过的图片地址
type UsedImages map[string]struct{}

// Has 是否已使用
func (u UsedImages) Has(url string) bool {
	_, ok := u[url]
	return ok
}

// Add 标记为已使用
func (u UsedImages) Add(url string) {
	u[url] = struct{}{}
}

// Section 一个主题的报告
type Section struct {
	Topic     string
	Markdown  string
	HeaderURL string
	Articles  []*dm.Article
}

// synthesizeTopic 为一个主题挑选配图并写作。写作失败或 panic 时返回错误，该主题被跳过
func (e *Engine) synthesizeTopic(ctx context.Context, c Cluster, used UsedImages) (sec Section, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	logger.Log.Infof("开始写作主题: %s (%d 篇)", c.Topic, len(c.Articles))

	candidates := e.imageCandidates(ctx, c.Articles, used)

	res := e.Analyst.SynthesizeReport(ctx, c.Articles, c.Topic, candidates)
	if !res.OK {
		return Section{}, fmt.Errorf("synthesize report: %w", res.Err)
	}

	uploaded := make(map[string]string)
	body := formatter.RewriteImages(res.Value, func(alt, url string) string {
		hosted, err := e.Publisher.UploadArticleImage(ctx, url)
		if err != nil {
			logger.Log.Warnf("正文图片上传失败，保留原地址 [%s]: %v", url, err)
			return fmt.Sprintf("![%s](%s)", alt, url)
		}
		uploaded[url] = hosted
		return fmt.Sprintf("![%s](%s)", alt, hosted)
	})

	return Section{
		Topic:     c.Topic,
		Markdown:  body,
		HeaderURL: e.headerImage(ctx, c, candidates, body, uploaded),
		Articles:  c.Articles,
	}, nil
}

// imageCandidates 从文章正文中挑选候选配图并生成说明。
// 只考虑 http(s) 地址，跳过其他主题已用过的图片，每个主题最多检查 maxCandidates 张
func (e *Engine) imageCandidates(ctx context.Context, articles []*dm.Article, used UsedImages) []dm.ImageCandidate {
	var candidates []dm.ImageCandidate
	examined := 0
	for _, a := range articles {
		for _, url := range formatter.ImageURLs(a.Content) {
			if examined >= maxCandidates {
				return candidates
			}
			if !formatter.IsRemote(url) || used.Has(url) {
				continue
			}
			used.Add(url)
			examined++

			desc := e.Vision.DescribeImage(ctx, url)
			if desc == "" {
				continue
			}
			logger.Log.Debugf("图片说明 [%s]: %s", url, desc)
			candidates = append(candidates, dm.ImageCandidate{URL: url, Description: desc})
		}
	}
	return candidates
}

// headerImage 选择主题题图：优先使用正文中没有出现过的候选图，
// 否则用主题与首篇标题生成一张，仍失败时使用占位图
func (e *Engine) headerImage(ctx context.Context, c Cluster, candidates []dm.ImageCandidate, body string, uploaded map[string]string) string {
	for _, img := range candidates {
		if strings.Contains(body, img.URL) {
			continue
		}
		if hosted, ok := uploaded[img.URL]; ok && strings.Contains(body, hosted) {
			continue
		}
		hosted, err := e.Publisher.UploadArticleImage(ctx, img.URL)
		if err != nil || hosted == "" {
			logger.Log.Warnf("[%s] 候选题图上传失败 [%s]: %v", c.Topic, img.URL, err)
			continue
		}
		logger.Log.Infof("[%s] 使用原文图片作为题图: %s", c.Topic, img.URL)
		return hosted
	}

	logger.Log.Infof("[%s] 生成 AI 题图", c.Topic)
	prompt := fmt.Sprintf("Abstract tech illustration for %s: %s", c.Topic, c.Articles[0].Title)
	generated, err := e.Images.GenerateImage(ctx, prompt)
	if err != nil {
		logger.Log.Warnf("[%s] 题图生成失败: %v", c.Topic, err)
		return HeaderPlaceholder
	}
	hosted, err := e.Publisher.UploadArticleImage(ctx, generated)
	if err != nil {
		logger.Log.Warnf("[%s] 题图上传失败: %v", c.Topic, err)
		return HeaderPlaceholder
	}
	return hosted
}
