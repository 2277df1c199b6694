package qwen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iWorld-y/weflow/internal/image"
	"github.com/iWorld-y/weflow/internal/logger"
)

const (
	defaultBaseURL = "https://dashscope.aliyuncs.com/api/v1"
	model          = "wanx-v1"
	imageSize      = "1024*1024"
)

// 任务状态
const (
	statusSucceeded = "SUCCEEDED"
	statusFailed    = "FAILED"
	statusCanceled  = "CANCELED"
	statusUnknown   = "UNKNOWN"
)

// ErrTaskFailed 文生图任务失败
var ErrTaskFailed = errors.New("wanx task failed")

// Client 通义万相文生图客户端（DashScope 异步任务接口）
type Client struct {
	apiKey       string
	baseURL      string
	pollInterval time.Duration
	maxPolls     int
	client       *http.Client
}

// Ensure Client implements image.Generator
var _ image.Generator = (*Client)(nil)

// NewClient 创建客户端
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:       apiKey,
		baseURL:      defaultBaseURL,
		pollInterval: 2 * time.Second,
		maxPolls:     90,
		client:       &http.Client{Timeout: 30 * time.Second},
	}
}

// WithEndpoint 替换接口地址、HTTP 客户端与轮询间隔
func (c *Client) WithEndpoint(baseURL string, client *http.Client, pollInterval time.Duration) *Client {
	c.baseURL = baseURL
	if client != nil {
		c.client = client
	}
	if pollInterval > 0 {
		c.pollInterval = pollInterval
	}
	return c
}

type synthesisRequest struct {
	Model      string              `json:"model"`
	Input      synthesisInput      `json:"input"`
	Parameters synthesisParameters `json:"parameters"`
}

type synthesisInput struct {
	Prompt string `json:"prompt"`
}

type synthesisParameters struct {
	Size string `json:"size"`
	N    int    `json:"n"`
}

// TaskResponse 提交任务与查询任务共用的响应结构
type TaskResponse struct {
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Output    struct {
		TaskID     string `json:"task_id"`
		TaskStatus string `json:"task_status"`
		Code       string `json:"code"`
		Message    string `json:"message"`
		Results    []struct {
			URL string `json:"url"`
		} `json:"results"`
	} `json:"output"`
}

// GenerateImage 提交异步任务并轮询到结束，返回第一张图片的 URL
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	taskID, err := c.submit(ctx, prompt)
	if err != nil {
		return "", err
	}
	logger.Log.Debugf("万相任务已提交: %s", taskID)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for i := 0; i < c.maxPolls; i++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		task, err := c.fetchTask(ctx, taskID)
		if err != nil {
			return "", err
		}

		switch task.Output.TaskStatus {
		case statusSucceeded:
			if len(task.Output.Results) == 0 || task.Output.Results[0].URL == "" {
				return "", fmt.Errorf("%w: empty results for task %s", ErrTaskFailed, taskID)
			}
			return task.Output.Results[0].URL, nil
		case statusFailed, statusCanceled, statusUnknown:
			return "", fmt.Errorf("%w: %s %s - %s", ErrTaskFailed, task.Output.TaskStatus, task.Output.Code, task.Output.Message)
		}
	}
	return "", fmt.Errorf("%w: task %s not finished after %d polls", ErrTaskFailed, taskID, c.maxPolls)
}

func (c *Client) submit(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(synthesisRequest{
		Model:      model,
		Input:      synthesisInput{Prompt: prompt},
		Parameters: synthesisParameters{Size: imageSize, N: 1},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request failed: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/services/aigc/text2image/image-synthesis", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-DashScope-Async", "enable")

	task, err := c.do(httpReq)
	if err != nil {
		return "", err
	}
	if task.Output.TaskID == "" {
		return "", fmt.Errorf("%w: no task id returned", ErrTaskFailed)
	}
	return task.Output.TaskID, nil
}

func (c *Client) fetchTask(ctx context.Context, taskID string) (*TaskResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tasks/"+taskID, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	return c.do(httpReq)
}

func (c *Client) do(httpReq *http.Request) (*TaskResponse, error) {
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dashscope api error (status %d): %s", res.StatusCode, string(body))
	}

	var task TaskResponse
	if err := json.Unmarshal(body, &task); err != nil {
		return nil, fmt.Errorf("unmarshal response failed: %w", err)
	}
	return &task, nil
}
