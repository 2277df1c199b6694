// Package formatter 把 Markdown 报告转换成适合公众号编辑器的内联样式 HTML。
package formatter

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// 公众号编辑器会丢弃 <style>，样式只能写在标签上
const (
	styleH2     = `font-size: 20px; font-weight: bold; margin-top: 30px; margin-bottom: 20px; color: #000;`
	styleH3     = `font-size: 18px; font-weight: bold; margin-top: 25px; margin-bottom: 15px; color: #333; border-left: 4px solid #576b95; padding-left: 10px;`
	styleP      = `margin-bottom: 15px; line-height: 1.8; color: #444;`
	styleList   = `padding-left: 20px; color: #555; margin-bottom: 20px;`
	styleLi     = `margin-bottom: 8px; line-height: 1.6;`
	styleStrong = `font-weight: bold; color: #222;`
	styleHr     = `margin: 40px 0; border-bottom: 1px solid #eee;`
	styleFigure = `margin: 20px 0;`
	styleImg    = `width: 100%; border-radius: 6px; box-shadow: 0 2px 8px rgba(0,0,0,0.1);`
	styleCap    = `font-size: 12px; color: #999; text-align: center; margin-top: 5px;`
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.Table, extension.Strikethrough),
	goldmark.WithRendererOptions(html.WithXHTML(), html.WithUnsafe()),
)

// 只替换不带属性的标签，已处理过的 HTML 再次处理时保持不变
var tagStyler = strings.NewReplacer(
	"<h2>", `<h2 style="`+styleH2+`">`,
	"<h3>", `<h3 style="`+styleH3+`">`,
	"<p>", `<p style="`+styleP+`">`,
	"<ul>", `<ul style="`+styleList+`">`,
	"<ol>", `<ol style="`+styleList+`">`,
	"<li>", `<li style="`+styleLi+`">`,
	"<strong>", `<span style="`+styleStrong+`">`,
	"</strong>", "</span>",
	"<hr />", `<div style="`+styleHr+`"></div>`,
	"<hr>", `<div style="`+styleHr+`"></div>`,
)

var (
	imageOnlyParagraph = regexp.MustCompile(`(?s)<p style="[^"]+">\s*(<img [^>]+>)\s*</p>`)
	imgSrc             = regexp.MustCompile(`src="([^"]*)"`)
	imgAlt             = regexp.MustCompile(`alt="([^"]*)"`)
)

// MarkdownToHTML 渲染 Markdown 并注入内联样式，单独成段的图片转换为带说明的 figure
func MarkdownToHTML(text string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		// goldmark 写入 bytes.Buffer 不会失败，这里保底输出原文
		return text
	}
	return StyleHTML(buf.String())
}

// StyleHTML 给基础 HTML 标签加上内联样式
func StyleHTML(h string) string {
	h = tagStyler.Replace(h)
	return imageOnlyParagraph.ReplaceAllStringFunc(h, func(p string) string {
		tag := imageOnlyParagraph.FindStringSubmatch(p)[1]
		var src, alt string
		if m := imgSrc.FindStringSubmatch(tag); m != nil {
			src = m[1]
		}
		if m := imgAlt.FindStringSubmatch(tag); m != nil {
			alt = m[1]
		}
		return `<figure style="` + styleFigure + `"><img src="` + src + `" style="` + styleImg + `" />` +
			`<figcaption style="` + styleCap + `">` + alt + `</figcaption></figure>`
	})
}
