package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/iWorld-y/weflow/internal/logger"
	dm "github.com/iWorld-y/weflow/internal/model"
)

// maxTitleWidth 标题最大显示宽度，中文字符按两列计，即最多 20 个汉字
const maxTitleWidth = 40

var titleCleaner = strings.NewReplacer(
	`"`, "", "“", "", "”", "", "'", "", "「", "", "」", "",
	"*", "", "`", "", "#", "",
)

// GenerateDigestTitle 根据主题列表生成日报标题，失败时返回带日期的默认标题
func (c *Client) GenerateDigestTitle(ctx context.Context, topics []string) dm.Result[string] {
	fallback := FallbackTitle(c.now())

	resp, err := c.chat(ctx, titleSystem, fmt.Sprintf(titlePrompt, strings.Join(topics, ", ")))
	if err != nil {
		logger.Log.Warnf("生成标题失败: %v", err)
		return dm.Degraded(fallback, err)
	}

	title := CleanTitle(resp)
	if title == "" {
		return dm.Degraded(fallback, ErrEmptyResponse)
	}
	return dm.Ok(title)
}

// FallbackTitle 默认标题
func FallbackTitle(t time.Time) string {
	return "WeFlow Daily - " + t.Format(time.DateOnly)
}

// CleanTitle 去掉引号与 Markdown 标记，只取第一行，并截断到最大显示宽度
func CleanTitle(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(titleCleaner.Replace(s))
	return runewidth.Truncate(s, maxTitleWidth, "")
}
