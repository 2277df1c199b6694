package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iWorld-y/weflow/internal/logger"
)

// Notifier 发布结果通知，只做旁路告知，失败不影响发布
type Notifier interface {
	SendCard(ctx context.Context, title, summary, articleURL string) bool
}

// Feishu 飞书自定义机器人
type Feishu struct {
	webhookURL string
	client     *http.Client
}

// Ensure Feishu implements Notifier
var _ Notifier = (*Feishu)(nil)

// NewFeishu 创建飞书通知客户端，webhookURL 为空时所有通知都会跳过
func NewFeishu(webhookURL string, client *http.Client) *Feishu {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Feishu{webhookURL: webhookURL, client: client}
}

type text struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

type button struct {
	Tag  string `json:"tag"`
	Text text   `json:"text"`
	URL  string `json:"url"`
	Type string `json:"type"`
}

type element struct {
	Tag     string   `json:"tag"`
	Text    *text    `json:"text,omitempty"`
	Actions []button `json:"actions,omitempty"`
}

type card struct {
	Config struct {
		WideScreenMode bool `json:"wide_screen_mode"`
	} `json:"config"`
	Header struct {
		Title    text   `json:"title"`
		Template string `json:"template"`
	} `json:"header"`
	Elements []element `json:"elements"`
}

type cardMessage struct {
	MsgType string `json:"msg_type"`
	Card    card   `json:"card"`
}

func buildCard(title, summary, articleURL string) cardMessage {
	var c card
	c.Config.WideScreenMode = true
	c.Header.Title = text{Tag: "plain_text", Content: title}
	c.Header.Template = "blue"
	c.Elements = []element{
		{
			Tag:  "div",
			Text: &text{Tag: "lark_md", Content: fmt.Sprintf("**Status**: Draft Pushed ✅\n**Summary**: %s", summary)},
		},
		{
			Tag: "action",
			Actions: []button{{
				Tag:  "button",
				Text: text{Tag: "plain_text", Content: "View Article"},
				URL:  articleURL,
				Type: "primary",
			}},
		},
	}
	return cardMessage{MsgType: "interactive", Card: c}
}

// SendCard 发送卡片消息，成功需要 HTTP 2xx 且响应 code 为 0
func (f *Feishu) SendCard(ctx context.Context, title, summary, articleURL string) bool {
	if f.webhookURL == "" {
		logger.Log.Info("未配置飞书 webhook，跳过通知")
		return false
	}
	if err := f.send(ctx, buildCard(title, summary, articleURL)); err != nil {
		logger.Log.Errorf("飞书通知发送失败: %v", err)
		return false
	}
	logger.Log.Info("飞书通知发送成功")
	return true
}

func (f *Feishu) send(ctx context.Context, msg cardMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal card failed: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, f.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := f.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read body failed: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("feishu api error (status %d): %s", res.StatusCode, string(body))
	}

	var resp struct {
		Code *int   `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("unmarshal response failed: %w", err)
	}
	if resp.Code == nil || *resp.Code != 0 {
		return fmt.Errorf("feishu api error: %s", string(body))
	}
	return nil
}
