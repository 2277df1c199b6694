package formatter

import (
	"fmt"
	"html"
	"strings"

	"github.com/iWorld-y/weflow/internal/model"
)

const fontStack = `-apple-system, BlinkMacSystemFont, 'Helvetica Neue', 'PingFang SC', 'Microsoft YaHei', 'Source Han Sans SC', 'Noto Sans CJK SC', 'WenQuanYi Micro Hei', sans-serif`

// WrapFullArticle 为正文加上标题、日期与可选的作者栏
func WrapFullArticle(body, date, author string) string {
	var authorHTML string
	if author != "" {
		authorHTML = fmt.Sprintf(`<p style="color: #888; font-size: 14px; margin-left: 10px;">Editor: %s</p>`, html.EscapeString(author))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<div style="padding: 15px; font-family: %s;">`, fontStack)
	sb.WriteString(`<header style="margin-bottom: 30px; text-align: center;">`)
	sb.WriteString(`<h1 style="font-size: 22px; font-weight: bold; margin-bottom: 5px;">每日技术精选</h1>`)
	sb.WriteString(`<div style="display: flex; justify-content: center; align-items: center; margin-top: 5px;">`)
	fmt.Fprintf(&sb, `<p style="color: #888; font-size: 14px;">%s</p>%s`, html.EscapeString(date), authorHTML)
	sb.WriteString(`</div></header>`)
	sb.WriteString(body)
	sb.WriteString(`</div>`)
	return sb.String()
}

// SourceLinks 生成原文链接列表
func SourceLinks(articles []*model.Article) string {
	var sb strings.Builder
	sb.WriteString(`<div style="margin-top:20px; font-size:12px; color:#999;">Sources:<br>`)
	for _, a := range articles {
		fmt.Fprintf(&sb, `<a href="%s" style="color:#999; margin-right:10px; text-decoration: none;">• %s</a><br>`,
			html.EscapeString(a.URL), html.EscapeString(a.Title))
	}
	sb.WriteString(`</div>`)
	return sb.String()
}
