package formatter

import (
	"regexp"
	"strings"
)

var (
	imageRef     = regexp.MustCompile(`!\[(.*?)\]\((.*?)\)`)
	httpImageRef = regexp.MustCompile(`!\[(.*?)\]\((http.*?)\)`)
)

// ImageURLs 按出现顺序返回 Markdown 中所有图片地址
func ImageURLs(text string) []string {
	var urls []string
	for _, m := range imageRef.FindAllStringSubmatch(text, -1) {
		urls = append(urls, m[2])
	}
	return urls
}

// ImageRefs 返回完整的图片引用文本，例如 ![alt](url)
func ImageRefs(text string) []string {
	return imageRef.FindAllString(text, -1)
}

// RewriteImages 对每个 http(s) 图片引用调用 fn，用其返回值替换原引用
func RewriteImages(text string, fn func(alt, url string) string) string {
	return httpImageRef.ReplaceAllStringFunc(text, func(ref string) string {
		m := httpImageRef.FindStringSubmatch(ref)
		return fn(m[1], m[2])
	})
}

// IsRemote 判断是否为 http(s) 地址
func IsRemote(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}
