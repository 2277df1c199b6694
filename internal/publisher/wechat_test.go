package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/iWorld-y/weflow/internal/config"
	"github.com/iWorld-y/weflow/internal/logger"
)

func init() {
	logger.Silence()
}

// fakeWeChat 模拟公众号接口
type fakeWeChat struct {
	t           *testing.T
	tokenCalls  int32
	uploadFail  bool
	draftReply  string
	draftBody   []byte
	uploadNames []string
}

func (f *fakeWeChat) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/cgi-bin/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.tokenCalls, 1)
		q := r.URL.Query()
		if q.Get("grant_type") != "client_credential" || q.Get("appid") != "app" || q.Get("secret") != "sec" {
			_, _ = w.Write([]byte(`{"errcode":40013,"errmsg":"invalid appid"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":7200}`))
	})
	upload := func(reply string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("access_token") != "tok" {
				f.t.Errorf("missing access token on %s", r.URL.Path)
			}
			file, header, err := r.FormFile("media")
			if err != nil {
				f.t.Errorf("missing media field: %v", err)
				return
			}
			data, _ := io.ReadAll(file)
			if string(data) != "IMG" {
				f.t.Errorf("uploaded data = %q", data)
			}
			f.uploadNames = append(f.uploadNames, header.Filename)
			if f.uploadFail {
				_, _ = w.Write([]byte(`{"errcode":40005,"errmsg":"invalid file type"}`))
				return
			}
			_, _ = w.Write([]byte(reply))
		}
	}
	mux.HandleFunc("/cgi-bin/material/add_material", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("type") != "image" {
			f.t.Errorf("type = %q", r.URL.Query().Get("type"))
		}
		upload(`{"media_id":"cover-1","url":"http://mmbiz/cover"}`)(w, r)
	})
	mux.HandleFunc("/cgi-bin/media/uploadimg", upload(`{"url":"http://mmbiz.qpic.cn/art.jpg"}`))
	mux.HandleFunc("/cgi-bin/draft/add", func(w http.ResponseWriter, r *http.Request) {
		f.draftBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(f.draftReply))
	})
	mux.HandleFunc("/cgi-bin/draft/get", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["media_id"] != "draft-1" {
			_, _ = w.Write([]byte(`{"errcode":40007,"errmsg":"invalid media_id"}`))
			return
		}
		_, _ = w.Write([]byte(`{"news_item":[{"title":"T","url":"http://mp.weixin.qq.com/s/abc"}]}`))
	})
	mux.HandleFunc("/remote.png", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("IMG"))
	})
	return mux
}

func newTestWeChat(t *testing.T, f *fakeWeChat) (*WeChat, *httptest.Server, string) {
	t.Helper()
	f.t = t
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	tmp := t.TempDir()
	w := NewWeChat(config.WeChatConfig{AppID: "app", AppSecret: "sec"}).
		WithEndpoint(srv.URL, srv.Client()).
		WithTempDir(tmp)
	return w, srv, tmp
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch dir should be empty, found %d entries", len(entries))
	}
}

func TestUploadImageRemote(t *testing.T) {
	f := &fakeWeChat{}
	w, srv, tmp := newTestWeChat(t, f)

	mediaID, err := w.UploadImage(context.Background(), srv.URL+"/remote.png")
	if err != nil {
		t.Fatalf("UploadImage() error = %v", err)
	}
	if mediaID != "cover-1" {
		t.Errorf("media id = %q", mediaID)
	}
	if len(f.uploadNames) != 1 || !strings.HasPrefix(f.uploadNames[0], "temp_") {
		t.Errorf("upload names = %v", f.uploadNames)
	}
	assertEmptyDir(t, tmp)
}

func TestUploadArticleImageLocal(t *testing.T) {
	f := &fakeWeChat{}
	w, _, tmp := newTestWeChat(t, f)

	local := filepath.Join(t.TempDir(), "gen.png")
	if err := os.WriteFile(local, []byte("IMG"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := w.UploadArticleImage(context.Background(), local)
	if err != nil {
		t.Fatalf("UploadArticleImage() error = %v", err)
	}
	if got != "http://mmbiz.qpic.cn/art.jpg" {
		t.Errorf("url = %q", got)
	}
	if _, err := os.Stat(local); err != nil {
		t.Error("local source file must not be deleted")
	}
	assertEmptyDir(t, tmp)
}

func TestUploadFailureRemovesScratchFile(t *testing.T) {
	f := &fakeWeChat{uploadFail: true}
	w, srv, tmp := newTestWeChat(t, f)

	_, err := w.UploadArticleImage(context.Background(), srv.URL+"/remote.png")
	if !errors.Is(err, ErrUpload) {
		t.Fatalf("UploadArticleImage() error = %v, want ErrUpload", err)
	}
	assertEmptyDir(t, tmp)
}

func TestTokenFetchedPerCall(t *testing.T) {
	f := &fakeWeChat{draftReply: `{"media_id":"draft-1"}`}
	w, srv, _ := newTestWeChat(t, f)
	ctx := context.Background()

	if _, err := w.UploadImage(ctx, srv.URL+"/remote.png"); err != nil {
		t.Fatal(err)
	}
	if _, err := w.PushDraft(ctx, DraftRequest{Title: "t"}); err != nil {
		t.Fatal(err)
	}
	if _, ok := w.GetDraft(ctx, "draft-1"); !ok {
		t.Fatal("GetDraft() should succeed")
	}
	if got := atomic.LoadInt32(&f.tokenCalls); got != 3 {
		t.Errorf("token calls = %d, want 3", got)
	}
}

func TestBadCredentials(t *testing.T) {
	f := &fakeWeChat{}
	f.t = t
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	w := NewWeChat(config.WeChatConfig{AppID: "wrong", AppSecret: "sec"}).WithEndpoint(srv.URL, srv.Client())
	if _, err := w.PushDraft(context.Background(), DraftRequest{}); !errors.Is(err, ErrToken) {
		t.Errorf("PushDraft() error = %v, want ErrToken", err)
	}
}

func TestPushDraft(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		wantKind DraftKind
		wantID   string
		wantErr  bool
	}{
		{"media id", `{"media_id":"draft-1"}`, DraftMediaID, "draft-1", false},
		{"bare success", `{"errcode":0,"errmsg":"ok"}`, DraftAccepted, "", false},
		{"rejected", `{"errcode":45009,"errmsg":"reach max api daily quota limit"}`, 0, "", true},
		{"empty object", `{}`, 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeWeChat{draftReply: tt.reply}
			w, _, _ := newTestWeChat(t, f)

			res, err := w.PushDraft(context.Background(), DraftRequest{
				Title:        "今日 | WeFlow Daily",
				Author:       "Ed",
				Digest:       "Topics: 生成式 AI",
				Content:      `<p style="color: #444;">a & b</p>`,
				ThumbMediaID: "cover-1",
			})
			if tt.wantErr {
				if !errors.Is(err, ErrDraftRejected) {
					t.Errorf("PushDraft() error = %v, want ErrDraftRejected", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("PushDraft() error = %v", err)
			}
			if res.Kind != tt.wantKind || res.MediaID != tt.wantID {
				t.Errorf("PushDraft() = %+v", res)
			}

			body := string(f.draftBody)
			for _, want := range []string{`"title":"今日 | WeFlow Daily"`, `<p style=\"color: #444;\">a & b</p>`, `"thumb_media_id":"cover-1"`, `"content_source_url":""`} {
				if !strings.Contains(body, want) {
					t.Errorf("draft body %s missing %s", body, want)
				}
			}
		})
	}
}

func TestGetDraftMissing(t *testing.T) {
	f := &fakeWeChat{}
	w, _, _ := newTestWeChat(t, f)
	if info, ok := w.GetDraft(context.Background(), "unknown"); ok || info != nil {
		t.Errorf("GetDraft() = %+v, %v; want absent", info, ok)
	}
	info, ok := w.GetDraft(context.Background(), "draft-1")
	if !ok || info.URL != "http://mp.weixin.qq.com/s/abc" {
		t.Errorf("GetDraft() = %+v, %v", info, ok)
	}
}

func TestDraftResultString(t *testing.T) {
	if got := (DraftResult{Kind: DraftAccepted}).String(); got != "Success" {
		t.Errorf("String() = %q", got)
	}
	if got := (DraftResult{Kind: DraftMediaID, MediaID: "m"}).String(); got != "m" {
		t.Errorf("String() = %q", got)
	}
}
