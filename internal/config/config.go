package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// 配置校验错误，启动阶段遇到即终止
var (
	ErrMissingLLMKey        = errors.New("DEEPSEEK_API_KEY is required")
	ErrMissingDatabaseURL   = errors.New("DATABASE_URL is required")
	ErrMissingWeChat        = errors.New("WECHAT_APP_ID and WECHAT_APP_SECRET are required")
	ErrMissingDashScopeKey  = errors.New("DASHSCOPE_API_KEY is required for image provider qwen")
	ErrMissingGoogleKey     = errors.New("GOOGLE_API_KEY is required for image provider gemini")
	ErrUnknownImageProvider = errors.New("unknown image provider")
)

// 图片生成服务
const (
	ImageProviderMock   = "mock"
	ImageProviderQwen   = "qwen"
	ImageProviderGemini = "gemini"
)

// DefaultRSSFeeds 未配置 RSS_FEEDS 时使用的订阅源
var DefaultRSSFeeds = []string{
	"https://openai.com/blog/rss.xml",
	"http://bair.berkeley.edu/blog/feed.xml",
	"https://deepmind.com/blog/feed/basic/",
	"https://distill.pub/rss.xml",
	"https://www.technologyreview.com/feed/",
	"https://huggingface.co/blog/feed.xml",
	"https://www.ai-shift.co.jp/techblog/feed",
	"https://ethicsandsociety.org/feed",
	"https://thegradient.pub/rss/",
	"https://machinelearningmastery.com/feed/",
	"https://kdnuggets.com/feed",
	"https://www.artificialintelligence-news.com/feed/rss/",
}

// Config 项目配置结构体
type Config struct {
	LLM          LLMConfig         `yaml:"llm"`
	Firecrawl    FirecrawlConfig   `yaml:"firecrawl"`
	DatabaseURL  string            `yaml:"database_url"`
	WeChat       WeChatConfig      `yaml:"wechat"`
	Feishu       FeishuConfig      `yaml:"feishu"`
	Image        ImageConfig       `yaml:"image"`
	RSSFeeds     []string          `yaml:"rss_feeds"`
	SnapshotPath string            `yaml:"snapshot_path"`
	Cron         string            `yaml:"cron"`
	HTTP         HTTPConfig        `yaml:"http"`
	Log          LogConfig         `yaml:"log"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency"`
}

// LLMConfig LLM 相关配置，兼容 OpenAI 协议
type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// FirecrawlConfig 抓取服务配置，APIKey 为空时使用本地 readability 抽取
type FirecrawlConfig struct {
	APIKey string `yaml:"api_key"`
}

// WeChatConfig 公众号配置
type WeChatConfig struct {
	AppID     string `yaml:"app_id"`
	AppSecret string `yaml:"app_secret"`
	Author    string `yaml:"author"`
}

// FeishuConfig 飞书机器人配置
type FeishuConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

// ImageConfig 图片生成与识图配置
type ImageConfig struct {
	Provider     string `yaml:"provider"`
	DashScopeKey string `yaml:"dashscope_api_key"`
	GoogleKey    string `yaml:"google_api_key"`
}

// HTTPConfig 状态与手动触发接口，Addr 为空时不启动
type HTTPConfig struct {
	Addr    string `yaml:"addr"`
	Timeout string `yaml:"timeout"`
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ConcurrencyConfig 并发控制配置
type ConcurrencyConfig struct {
	Workers int `yaml:"workers"`
	QPS     int `yaml:"qps"`
	RPM     int `yaml:"rpm"`
}

// Default 返回带默认值的配置
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			BaseURL: "https://api.deepseek.com",
			Model:   "deepseek-chat",
		},
		Image:        ImageConfig{Provider: ImageProviderMock},
		RSSFeeds:     DefaultRSSFeeds,
		SnapshotPath: "articles.json",
		HTTP:         HTTPConfig{Timeout: "5s"},
		Log:          LogConfig{Level: "info"},
		Concurrency:  ConcurrencyConfig{Workers: 5, QPS: 5, RPM: 60},
	}
}

// Load 读取可选的 YAML 配置文件，再用环境变量覆盖
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.LLM.APIKey = getEnv("DEEPSEEK_API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = getEnv("DEEPSEEK_BASE_URL", c.LLM.BaseURL)
	c.LLM.Model = getEnv("DEEPSEEK_MODEL", c.LLM.Model)
	c.Firecrawl.APIKey = getEnv("FIRECRAWL_API_KEY", c.Firecrawl.APIKey)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.WeChat.AppID = getEnv("WECHAT_APP_ID", c.WeChat.AppID)
	c.WeChat.AppSecret = getEnv("WECHAT_APP_SECRET", c.WeChat.AppSecret)
	c.WeChat.Author = getEnv("WECHAT_AUTHOR", c.WeChat.Author)
	c.Feishu.WebhookURL = getEnv("FEISHU_WEBHOOK_URL", c.Feishu.WebhookURL)
	c.Image.Provider = strings.ToLower(getEnv("IMAGE_PROVIDER", c.Image.Provider))
	c.Image.DashScopeKey = getEnv("DASHSCOPE_API_KEY", c.Image.DashScopeKey)
	c.Image.GoogleKey = getEnv("GOOGLE_API_KEY", c.Image.GoogleKey)
	c.SnapshotPath = getEnv("SNAPSHOT_PATH", c.SnapshotPath)
	c.Cron = getEnv("WEFLOW_CRON", c.Cron)
	c.HTTP.Addr = getEnv("WEFLOW_HTTP_ADDR", c.HTTP.Addr)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnv("LOG_FILE", c.Log.File)
	c.Concurrency.Workers = getEnvInt("WEFLOW_WORKERS", c.Concurrency.Workers)
	c.Concurrency.QPS = getEnvInt("LLM_QPS", c.Concurrency.QPS)
	c.Concurrency.RPM = getEnvInt("LLM_RPM", c.Concurrency.RPM)

	if feeds := os.Getenv("RSS_FEEDS"); feeds != "" {
		c.RSSFeeds = splitList(feeds)
	}
	if c.Image.Provider == "" {
		c.Image.Provider = ImageProviderMock
	}
}

// Validate 检查必填项，被选中的图片服务必须提供对应密钥
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return ErrMissingLLMKey
	}
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	if c.WeChat.AppID == "" || c.WeChat.AppSecret == "" {
		return ErrMissingWeChat
	}

	switch c.Image.Provider {
	case ImageProviderMock:
	case ImageProviderQwen:
		if c.Image.DashScopeKey == "" {
			return ErrMissingDashScopeKey
		}
	case ImageProviderGemini:
		if c.Image.GoogleKey == "" {
			return ErrMissingGoogleKey
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownImageProvider, c.Image.Provider)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
