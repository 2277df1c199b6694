package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/iWorld-y/weflow/internal/config"
	"github.com/iWorld-y/weflow/internal/logger"
)

const defaultBaseURL = "https://api.weixin.qq.com"

// 公众号接口错误
var (
	ErrToken         = errors.New("wechat access token failed")
	ErrUpload        = errors.New("wechat upload failed")
	ErrDraftRejected = errors.New("wechat draft rejected")
)

// WeChat 公众号草稿箱发布客户端。
// access_token 不缓存，每次调用都会重新获取
type WeChat struct {
	appID     string
	appSecret string
	baseURL   string
	tmpDir    string
	client    *http.Client
}

// NewWeChat 创建公众号客户端，远程图片下载到 ./tmp 后上传
func NewWeChat(cfg config.WeChatConfig) *WeChat {
	return &WeChat{
		appID:     cfg.AppID,
		appSecret: cfg.AppSecret,
		baseURL:   defaultBaseURL,
		tmpDir:    "tmp",
		client:    &http.Client{Timeout: 60 * time.Second},
	}
}

// WithEndpoint 替换接口地址与 HTTP 客户端
func (w *WeChat) WithEndpoint(baseURL string, client *http.Client) *WeChat {
	w.baseURL = baseURL
	if client != nil {
		w.client = client
	}
	return w
}

// WithTempDir 替换临时文件目录
func (w *WeChat) WithTempDir(dir string) *WeChat {
	w.tmpDir = dir
	return w
}

// apiError 公众号接口的通用错误字段，errcode 缺省表示成功
type apiError struct {
	ErrCode *int   `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

func (e apiError) String() string {
	if e.ErrCode == nil {
		return "no errcode"
	}
	return fmt.Sprintf("errcode=%d errmsg=%s", *e.ErrCode, e.ErrMsg)
}

func (w *WeChat) accessToken(ctx context.Context) (string, error) {
	q := url.Values{}
	q.Set("grant_type", "client_credential")
	q.Set("appid", w.appID)
	q.Set("secret", w.appSecret)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"/cgi-bin/token?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("create request failed: %w", err)
	}

	var resp struct {
		apiError
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := w.do(httpReq, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrToken, err)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("%w: %s", ErrToken, resp.apiError)
	}
	return resp.AccessToken, nil
}

// endpoint 拼接带 access_token 的接口地址
func (w *WeChat) endpoint(path, token string, extra url.Values) string {
	q := url.Values{}
	for k, v := range extra {
		q[k] = v
	}
	q.Set("access_token", token)
	return w.baseURL + path + "?" + q.Encode()
}

// postJSON 以 UTF-8 JSON 提交，HTML 不转义
func (w *WeChat) postJSON(ctx context.Context, endpoint string, payload, out any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("marshal request failed: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")
	return w.do(httpReq, out)
}

func (w *WeChat) do(httpReq *http.Request, out any) error {
	res, err := w.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read body failed: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("wechat api error (status %d): %s", res.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response failed: %w", err)
	}
	logger.Log.Debugf("wechat %s -> %s", httpReq.URL.Path, string(body))
	return nil
}
