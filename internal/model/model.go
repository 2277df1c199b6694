package model

// Status 文章处理状态
type Status string

const (
	StatusPending        Status = "pending"
	StatusCrawled        Status = "crawled"
	StatusSummarized     Status = "summarized"
	StatusImageGenerated Status = "image_generated"
	StatusUploaded       Status = "uploaded"
	StatusPublished      Status = "published"
)

// Article 文章记录，URL 为唯一键
type Article struct {
	Title           string    `json:"title"`
	URL             string    `json:"url"`
	PublishedDate   string    `json:"published_date,omitempty"` // YYYY-MM-DD，未知时为空
	SourceName      string    `json:"source_name,omitempty"`
	Content         string    `json:"content,omitempty"`
	Summary         string    `json:"summary,omitempty"`
	Analysis        *Analysis `json:"analysis,omitempty"` // 分类完成前为 nil
	ImageURL        string    `json:"image_url,omitempty"`
	ExternalMediaID string    `json:"external_media_id,omitempty"`
	Status          Status    `json:"status"`
}

// NewArticle 创建待处理文章
func NewArticle(title, url, publishedDate string) *Article {
	return &Article{
		Title:         title,
		URL:           url,
		PublishedDate: publishedDate,
		Status:        StatusPending,
	}
}

// Analysis LLM 对单篇文章的分类结果
type Analysis struct {
	Topic       string `json:"topic"`
	Recommended bool   `json:"recommended"`
	Reason      string `json:"reason"`
	Summary     string `json:"summary"`
}

// ImageCandidate 可供报告引用的图片及其描述
type ImageCandidate struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

// Result 区分成功与降级：OK 为 false 时 Value 是降级值（可能为零值），Err 记录原因
type Result[T any] struct {
	Value T
	OK    bool
	Err   error
}

// Ok 构造成功结果
func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v, OK: true}
}

// Degraded 构造降级结果
func Degraded[T any](fallback T, err error) Result[T] {
	return Result[T]{Value: fallback, Err: err}
}
