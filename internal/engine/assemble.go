package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/iWorld-y/weflow/internal/formatter"
	"github.com/iWorld-y/weflow/internal/logger"
	dm "github.com/iWorld-y/weflow/internal/model"
)

// combineSections 拼接各主题：栏目标题、可选题图、正文，以空行分隔
func combineSections(sections []Section) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		var sb strings.Builder
		fmt.Fprintf(&sb, "## %s\n\n", s.Topic)
		if s.HeaderURL != "" {
			fmt.Fprintf(&sb, "![Header](%s)\n\n", s.HeaderURL)
		}
		sb.WriteString(s.Markdown)
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, "\n\n")
}

// assemble 统一润色后转换为 HTML，附上原文链接并套上文章外框
func (e *Engine) assemble(ctx context.Context, sections []Section, date string) string {
	combined := combineSections(sections)

	logger.Log.Info("统一润色日报")
	unified := e.Analyst.UnifyDailyDigest(ctx, combined)
	if !unified.OK {
		logger.Log.Warnf("润色失败，使用原稿: %v", unified.Err)
	}

	var sources []*dm.Article
	for _, s := range sections {
		sources = append(sources, s.Articles...)
	}

	body := formatter.MarkdownToHTML(unified.Value) + formatter.SourceLinks(sources)
	return formatter.WrapFullArticle(body, date, e.opts.Author)
}
