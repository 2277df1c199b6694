package publisher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/iWorld-y/weflow/internal/logger"
)

// UploadImage 上传永久图片素材（用作封面），返回 media_id
func (w *WeChat) UploadImage(ctx context.Context, src string) (string, error) {
	var resp struct {
		apiError
		MediaID string `json:"media_id"`
		URL     string `json:"url"`
	}
	if err := w.upload(ctx, "/cgi-bin/material/add_material", url.Values{"type": {"image"}}, "temp_", src, &resp); err != nil {
		return "", err
	}
	if resp.MediaID == "" {
		return "", fmt.Errorf("%w: %s", ErrUpload, resp.apiError)
	}
	return resp.MediaID, nil
}

// UploadArticleImage 上传正文图片，返回公众号托管的图片地址
func (w *WeChat) UploadArticleImage(ctx context.Context, src string) (string, error) {
	var resp struct {
		apiError
		URL string `json:"url"`
	}
	if err := w.upload(ctx, "/cgi-bin/media/uploadimg", nil, "temp_art_", src, &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", fmt.Errorf("%w: %s", ErrUpload, resp.apiError)
	}
	return resp.URL, nil
}

// upload 获取 token 并以 multipart 字段 media 上传 src。
// src 为本地文件时直接使用；为远程地址时下载到临时文件，上传结束（包括失败）后立即删除
func (w *WeChat) upload(ctx context.Context, path string, query url.Values, prefix, src string, out any) error {
	token, err := w.accessToken(ctx)
	if err != nil {
		return err
	}

	file := src
	if _, statErr := os.Stat(src); statErr != nil {
		tmp, err := w.download(ctx, src, prefix)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUpload, err)
		}
		defer func() {
			if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
				logger.Log.Warnf("删除临时文件失败 [%s]: %v", tmp, err)
			}
		}()
		file = tmp
	}

	body, contentType, err := multipartBody(file)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpload, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint(path, token, query), body)
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	if err := w.do(httpReq, out); err != nil {
		return fmt.Errorf("%w: %v", ErrUpload, err)
	}
	return nil
}

// download 把远程图片写入临时目录，返回文件路径
func (w *WeChat) download(ctx context.Context, src, prefix string) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", fmt.Errorf("create download request: %w", err)
	}
	res, err := w.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", src, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: status %d", src, res.StatusCode)
	}

	if err := os.MkdirAll(w.tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	path := filepath.Join(w.tmpDir, prefix+uuid.NewString()+".jpg")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(f, res.Body); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return path, nil
}

func multipartBody(path string) (*bytes.Buffer, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("media", filepath.Base(path))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
