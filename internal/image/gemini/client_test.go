package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerateImage(t *testing.T) {
	png := []byte("\x89PNG fake image bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/imagen-3.0-generate-001:predict") {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "g-key" {
			t.Errorf("missing api key header")
		}
		_, _ = w.Write([]byte(`{"predictions":[{"mimeType":"image/png","bytesBase64Encoded":"` +
			base64.StdEncoding.EncodeToString(png) + `"}]}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := NewClient("g-key", dir).WithEndpoint(srv.URL, srv.Client())
	path, err := c.GenerateImage(context.Background(), "a robot")
	if err != nil {
		t.Fatalf("GenerateImage() error = %v", err)
	}
	if !filepath.IsAbs(path) || filepath.Dir(path) != dir || filepath.Ext(path) != ".png" {
		t.Errorf("unexpected path %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || !bytes.Equal(data, png) {
		t.Errorf("saved image mismatch: %v", err)
	}
}

func TestGenerateImageNoPrediction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"predictions":[]}`))
	}))
	defer srv.Close()

	c := NewClient("g-key", t.TempDir()).WithEndpoint(srv.URL, srv.Client())
	if _, err := c.GenerateImage(context.Background(), "a robot"); err == nil {
		t.Error("expected error when no image is returned")
	}
}
