package vision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/iWorld-y/weflow/internal/logger"
)

const (
	compatibleBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	visionModel       = "qwen-vl-max"
	captionPrompt     = "Briefly describe this image for a technical article caption. Keep it under 20 words."
)

// MockCaption Mock 识图返回的固定描述
const MockCaption = "A placeholder description for the image."

// Describer 为图片生成简短说明，空字符串表示没有说明，不返回错误
type Describer interface {
	DescribeImage(ctx context.Context, imageURL string) string
}

// Mock 返回固定描述
type Mock struct{}

// Ensure Mock implements Describer
var _ Describer = Mock{}

// DescribeImage 返回固定描述
func (Mock) DescribeImage(ctx context.Context, imageURL string) string {
	return MockCaption
}

// Generator 多模态对话模型的最小接口
type Generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Qwen 通过 DashScope 的 OpenAI 兼容接口调用通义千问 VL
type Qwen struct {
	gen Generator
}

// Ensure Qwen implements Describer
var _ Describer = (*Qwen)(nil)

// NewQwen 创建 Qwen-VL 识图客户端
func NewQwen(ctx context.Context, apiKey string) (*Qwen, error) {
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: compatibleBaseURL,
		APIKey:  apiKey,
		Model:   visionModel,
		Timeout: 60 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("vision model init failed: %w", err)
	}
	return &Qwen{gen: chatModel}, nil
}

// NewQwenWithGenerator 使用已有模型创建客户端
func NewQwenWithGenerator(gen Generator) *Qwen {
	return &Qwen{gen: gen}
}

// DescribeImage 调用失败时记录日志并返回空字符串
func (q *Qwen) DescribeImage(ctx context.Context, imageURL string) string {
	msg := &schema.Message{
		Role: schema.User,
		MultiContent: []schema.ChatMessagePart{
			{
				Type:     schema.ChatMessagePartTypeImageURL,
				ImageURL: &schema.ChatMessageImageURL{URL: imageURL},
			},
			{
				Type: schema.ChatMessagePartTypeText,
				Text: captionPrompt,
			},
		},
	}

	resp, err := q.gen.Generate(ctx, []*schema.Message{msg})
	if err != nil {
		logger.Log.Warnf("识图失败 [%s]: %v", imageURL, err)
		return ""
	}
	return caption(resp)
}

// caption 兼容纯文本与分段文本两种回复
func caption(resp *schema.Message) string {
	if resp == nil {
		return ""
	}
	if text := strings.TrimSpace(resp.Content); text != "" {
		return text
	}
	var sb strings.Builder
	for _, part := range resp.MultiContent {
		if part.Type == schema.ChatMessagePartTypeText {
			sb.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}

// New 配置了 DashScope 密钥时使用 Qwen-VL，否则使用 Mock
func New(ctx context.Context, dashScopeKey string) Describer {
	if dashScopeKey == "" {
		return Mock{}
	}
	q, err := NewQwen(ctx, dashScopeKey)
	if err != nil {
		logger.Log.Warnf("Qwen-VL 初始化失败，使用 Mock 识图: %v", err)
		return Mock{}
	}
	return q
}
