package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/iWorld-y/weflow/internal/logger"
	dm "github.com/iWorld-y/weflow/internal/model"
)

func init() {
	logger.Silence()
}

// mockGenerator 依次返回预设的回复，并记录收到的消息
type mockGenerator struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   [][]*schema.Message
}

func (m *mockGenerator) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, input)
	if m.err != nil {
		return nil, m.err
	}
	reply := ""
	if len(m.replies) > 0 {
		reply = m.replies[0]
		m.replies = m.replies[1:]
	}
	return schema.AssistantMessage(reply, nil), nil
}

func (m *mockGenerator) lastUser() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.calls[len(m.calls)-1]
	return msgs[len(msgs)-1].Content
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		err    error
		wantOK bool
		want   dm.Analysis
	}{
		{
			name:   "plain json",
			reply:  `{"topic":"Robotics","recommended":true,"reason":"deep","summary":"s"}`,
			wantOK: true,
			want:   dm.Analysis{Topic: "Robotics", Recommended: true, Reason: "deep", Summary: "s"},
		},
		{
			name:   "fenced json",
			reply:  "```json\n{\"topic\":\"Other\",\"recommended\":false}\n```",
			wantOK: true,
			want:   dm.Analysis{Topic: "Other"},
		},
		{name: "not json", reply: "I think this is about robots", wantOK: false},
		{name: "model error", err: errors.New("429 too many requests"), wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &mockGenerator{replies: []string{tt.reply}, err: tt.err}
			got := NewClient(gen, nil).Analyze(context.Background(), "content")
			if got.OK != tt.wantOK {
				t.Fatalf("Analyze().OK = %v, want %v (err %v)", got.OK, tt.wantOK, got.Err)
			}
			if got.Value != tt.want {
				t.Errorf("Analyze().Value = %+v, want %+v", got.Value, tt.want)
			}
			if !tt.wantOK && got.Err == nil {
				t.Error("degraded result should carry an error")
			}
		})
	}
}

func TestAnalyzeTruncatesContent(t *testing.T) {
	gen := &mockGenerator{replies: []string{`{}`}}
	long := strings.Repeat("字", maxAnalyzeRunes) + "TAIL"
	NewClient(gen, nil).Analyze(context.Background(), long)
	if strings.Contains(gen.lastUser(), "TAIL") {
		t.Error("content beyond the analysis limit should be cut")
	}
}

func TestSynthesizeReport(t *testing.T) {
	articles := []*dm.Article{
		{Title: "A", SourceName: "a.com", Content: strings.Repeat("x", maxSynthesizeRunes) + "CUT"},
		{Title: "B", Content: "b body"},
	}
	images := []dm.ImageCandidate{{URL: "https://img/1.png", Description: "chip die"}}

	gen := &mockGenerator{replies: []string{"  ### 概述\n正文  "}}
	got := NewClient(gen, nil).SynthesizeReport(context.Background(), articles, "芯片与硬件", images)
	if !got.OK || got.Value != "### 概述\n正文" {
		t.Fatalf("SynthesizeReport() = %+v", got)
	}

	prompt := gen.lastUser()
	for _, want := range []string{`"芯片与硬件"`, "- Link: https://img/1.png", "Description: chip die", "Source: a.com", "Source: Unknown Source"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "CUT") {
		t.Error("article content beyond the synthesis limit should be cut")
	}
}

func TestSynthesizeReportFailure(t *testing.T) {
	gen := &mockGenerator{err: errors.New("boom")}
	got := NewClient(gen, nil).SynthesizeReport(context.Background(), nil, "机器人技术", nil)
	if got.OK {
		t.Fatal("expected degraded result")
	}
	if got.Value != "Error generating report for 机器人技术." {
		t.Errorf("placeholder = %q", got.Value)
	}
}

func TestUnifyDailyDigest(t *testing.T) {
	draft := "## 生成式 AI\n\n![Header](https://wx/h.png)\n\n正文 ![chart](https://wx/c.png)"

	tests := []struct {
		name   string
		reply  string
		err    error
		wantOK bool
		want   string
	}{
		{
			name:   "keeps every image",
			reply:  "## 生成式 AI\n\n![Header](https://wx/h.png)\n\n润色 ![chart](https://wx/c.png)",
			wantOK: true,
			want:   "## 生成式 AI\n\n![Header](https://wx/h.png)\n\n润色 ![chart](https://wx/c.png)",
		},
		{
			name:   "drops an image",
			reply:  "## 生成式 AI\n\n润色 ![chart](https://wx/c.png)",
			wantOK: false,
			want:   draft,
		},
		{
			name:   "changes a url",
			reply:  "![Header](https://wx/h.png) ![chart](https://other/c.png)",
			wantOK: false,
			want:   draft,
		},
		{name: "model error", err: errors.New("timeout"), wantOK: false, want: draft},
		{name: "empty reply", reply: "   ", wantOK: false, want: draft},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &mockGenerator{replies: []string{tt.reply}, err: tt.err}
			got := NewClient(gen, nil).UnifyDailyDigest(context.Background(), draft)
			if got.OK != tt.wantOK || got.Value != tt.want {
				t.Errorf("UnifyDailyDigest() = (%q, %v), want (%q, %v)", got.Value, got.OK, tt.want, tt.wantOK)
			}
		})
	}
}

func TestGenerateDigestTitle(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	gen := &mockGenerator{replies: []string{"“**智能体与芯片的新纪元**”\n解释文字"}}
	got := NewClient(gen, nil).WithClock(func() time.Time { return now }).
		GenerateDigestTitle(context.Background(), []string{"生成式 AI", "芯片与硬件"})
	if !got.OK || got.Value != "智能体与芯片的新纪元" {
		t.Errorf("GenerateDigestTitle() = %+v", got)
	}
	if !strings.Contains(gen.lastUser(), "生成式 AI, 芯片与硬件") {
		t.Error("prompt should list topics")
	}

	failing := &mockGenerator{err: errors.New("down")}
	got = NewClient(failing, nil).WithClock(func() time.Time { return now }).
		GenerateDigestTitle(context.Background(), []string{"其他"})
	if got.OK || got.Value != "WeFlow Daily - 2026-10-15" {
		t.Errorf("fallback title = %+v", got)
	}
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"Hello"`, "Hello"},
		{"# 标题", "标题"},
		{"`code`", "code"},
		{strings.Repeat("长", 25), strings.Repeat("长", 20)},
		{strings.Repeat("a", 50), strings.Repeat("a", 40)},
	}
	for _, tt := range tests {
		if got := CleanTitle(tt.in); got != tt.want {
			t.Errorf("CleanTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
