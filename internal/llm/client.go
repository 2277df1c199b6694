package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/weflow/internal/config"
)

// ErrEmptyResponse 模型返回了空内容
var ErrEmptyResponse = errors.New("empty model response")

// Generator 对话模型的最小接口，eino 的 ChatModel 满足该接口
type Generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Client 分析与写作客户端，所有调用共享同一个限流器，失败不重试
type Client struct {
	gen     Generator
	limiter *rate.Limiter
	now     func() time.Time
}

// NewClient 使用给定的模型与限流器创建客户端，limiter 为空时不限流
func NewClient(gen Generator, limiter *rate.Limiter) *Client {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Client{gen: gen, limiter: limiter, now: time.Now}
}

// NewDeepSeek 创建 OpenAI 兼容协议的模型客户端（默认 DeepSeek）
func NewDeepSeek(ctx context.Context, cfg config.LLMConfig, conc config.ConcurrencyConfig) (*Client, error) {
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}

	limit := rate.Limit(float64(conc.RPM) / 60.0)
	burst := conc.QPS
	if burst < 1 {
		burst = 1
	}
	return NewClient(chatModel, rate.NewLimiter(limit, burst)), nil
}

// WithClock 替换时钟，用于生成日期相关的降级标题
func (c *Client) WithClock(now func() time.Time) *Client {
	c.now = now
	return c
}

func (c *Client) chat(ctx context.Context, system, user string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	messages := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	}
	resp, err := c.gen.Generate(ctx, messages)
	if err != nil {
		return "", err
	}
	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

// cleanJSON 去掉模型常见的 ```json 代码块包裹
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// truncate 按字符（rune）截断
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
