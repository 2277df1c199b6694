package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iWorld-y/weflow/internal/formatter"
	"github.com/iWorld-y/weflow/internal/logger"
	dm "github.com/iWorld-y/weflow/internal/model"
)

const (
	maxAnalyzeRunes    = 15000
	maxSynthesizeRunes = 8000
)

// Analyze 判断文章主题与是否推荐，失败时返回未成功的空结果
func (c *Client) Analyze(ctx context.Context, content string) dm.Result[dm.Analysis] {
	resp, err := c.chat(ctx, analyzeSystem, fmt.Sprintf(analyzePrompt, truncate(content, maxAnalyzeRunes)))
	if err != nil {
		logger.Log.Warnf("文章分析失败: %v", err)
		return dm.Degraded(dm.Analysis{}, err)
	}

	var analysis dm.Analysis
	if err := json.Unmarshal([]byte(cleanJSON(resp)), &analysis); err != nil {
		logger.Log.Warnf("分析结果解析失败: %v", err)
		return dm.Degraded(dm.Analysis{}, fmt.Errorf("json unmarshal: %w", err))
	}
	return dm.Ok(analysis)
}

// SynthesizeReport 把同一主题的多篇文章融合成一篇 Markdown 报告，
// 图片只能引用 images 中提供的候选
func (c *Client) SynthesizeReport(ctx context.Context, articles []*dm.Article, topic string, images []dm.ImageCandidate) dm.Result[string] {
	var material strings.Builder
	for i, a := range articles {
		source := a.SourceName
		if source == "" {
			source = "Unknown Source"
		}
		fmt.Fprintf(&material, "--- Article %d ---\nTitle: %s\nSource: %s\nContent: %s\n\n",
			i+1, a.Title, source, truncate(a.Content, maxSynthesizeRunes))
	}

	var imageCtx strings.Builder
	for _, img := range images {
		fmt.Fprintf(&imageCtx, "- Link: %s\n  Description: %s\n", img.URL, img.Description)
	}

	prompt := fmt.Sprintf(synthesizePrompt, topic, imageCtx.String(), material.String())
	resp, err := c.chat(ctx, synthesizeSystem, prompt)
	if err != nil {
		logger.Log.Errorf("生成主题报告失败 [%s]: %v", topic, err)
		return dm.Degraded(fmt.Sprintf("Error generating report for %s.", topic), err)
	}
	return dm.Ok(resp)
}

// UnifyDailyDigest 统一润色整篇日报。输出丢失任何图片引用时视为失败，原样返回输入
func (c *Client) UnifyDailyDigest(ctx context.Context, combined string) dm.Result[string] {
	resp, err := c.chat(ctx, unifySystem, fmt.Sprintf(unifyPrompt, combined))
	if err != nil {
		logger.Log.Errorf("日报润色失败: %v", err)
		return dm.Degraded(combined, err)
	}

	if missing := missingRefs(combined, resp); len(missing) > 0 {
		err := fmt.Errorf("unified digest dropped %d image refs", len(missing))
		logger.Log.Warnf("日报润色结果丢失图片引用，使用原稿: %v", missing)
		return dm.Degraded(combined, err)
	}
	return dm.Ok(resp)
}

func missingRefs(before, after string) []string {
	kept := make(map[string]bool)
	for _, ref := range formatter.ImageRefs(after) {
		kept[ref] = true
	}
	var missing []string
	for _, ref := range formatter.ImageRefs(before) {
		if !kept[ref] {
			missing = append(missing, ref)
		}
	}
	return missing
}
