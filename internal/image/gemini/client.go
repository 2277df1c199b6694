package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/iWorld-y/weflow/internal/image"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "imagen-3.0-generate-001"
)

// Client Google Imagen 文生图客户端，图片保存为本地文件
type Client struct {
	apiKey  string
	baseURL string
	model   string
	outDir  string
	client  *http.Client
}

// Ensure Client implements image.Generator
var _ image.Generator = (*Client)(nil)

// NewClient 创建客户端，生成的图片写入 outDir
func NewClient(apiKey, outDir string) *Client {
	if outDir == "" {
		outDir = "tmp"
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   defaultModel,
		outDir:  outDir,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// WithEndpoint 替换接口地址与 HTTP 客户端
func (c *Client) WithEndpoint(baseURL string, client *http.Client) *Client {
	c.baseURL = baseURL
	if client != nil {
		c.client = client
	}
	return c
}

type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParameters `json:"parameters"`
}

type predictInstance struct {
	Prompt string `json:"prompt"`
}

type predictParameters struct {
	SampleCount int `json:"sampleCount"`
}

type predictResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MimeType           string `json:"mimeType"`
	} `json:"predictions"`
}

// GenerateImage 生成一张图片并返回其本地绝对路径
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(predictRequest{
		Instances:  []predictInstance{{Prompt: prompt}},
		Parameters: predictParameters{SampleCount: 1},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request failed: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:predict", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	res, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("read body failed: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("imagen api error (status %d): %s", res.StatusCode, string(body))
	}

	var resp predictResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unmarshal response failed: %w", err)
	}
	if len(resp.Predictions) == 0 || resp.Predictions[0].BytesBase64Encoded == "" {
		return "", fmt.Errorf("imagen returned no image")
	}

	data, err := base64.StdEncoding.DecodeString(resp.Predictions[0].BytesBase64Encoded)
	if err != nil {
		return "", fmt.Errorf("decode image failed: %w", err)
	}
	return c.save(data, resp.Predictions[0].MimeType)
}

func (c *Client) save(data []byte, mimeType string) (string, error) {
	if err := os.MkdirAll(c.outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir failed: %w", err)
	}

	ext := ".png"
	if mimeType == "image/jpeg" {
		ext = ".jpg"
	}
	path := filepath.Join(c.outDir, "gen_"+uuid.NewString()+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write image failed: %w", err)
	}
	return filepath.Abs(path)
}
