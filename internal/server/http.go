package server

import (
	"context"
	"database/sql"
	stderrors "errors"
	nethttp "net/http"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/weflow/internal/config"
	"github.com/iWorld-y/weflow/internal/engine"
	dm "github.com/iWorld-y/weflow/internal/model"
	"github.com/iWorld-y/weflow/internal/scheduler"
	"github.com/iWorld-y/weflow/internal/storage"
)

// Controller 运行控制
type Controller interface {
	Trigger() bool
	Running() bool
	Last() (*engine.Report, error)
}

// ArticleReader 文章查询
type ArticleReader interface {
	GetArticle(ctx context.Context, url string) (*dm.Article, error)
}

var (
	_ Controller    = (*scheduler.Scheduler)(nil)
	_ ArticleReader = (*storage.Storage)(nil)
)

// ReportView 最近一次运行的摘要
type ReportView struct {
	Running  bool     `json:"running"`
	Fetched  int      `json:"fetched"`
	Selected int      `json:"selected"`
	Crawled  int      `json:"crawled"`
	Analyzed int      `json:"analyzed"`
	Fallback bool     `json:"fallback"`
	Topics   []string `json:"topics"`
	Title    string   `json:"title,omitempty"`
	Draft    string   `json:"draft,omitempty"`
	DraftURL string   `json:"draft_url,omitempty"`
	Notified bool     `json:"notified"`
	Error    string   `json:"error,omitempty"`
}

// NewHTTPServer 创建状态与手动触发接口
func NewHTTPServer(c config.HTTPConfig, ctl Controller, articles ArticleReader) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
	}
	if c.Addr != "" {
		opts = append(opts, http.Address(c.Addr))
	}
	if c.Timeout != "" {
		if d, err := time.ParseDuration(c.Timeout); err == nil {
			opts = append(opts, http.Timeout(d))
		}
	}

	srv := http.NewServer(opts...)
	h := &handler{ctl: ctl, articles: articles}

	r := srv.Route("/")
	r.GET("/healthz", h.health)
	r.GET("/api/report", h.report)
	r.POST("/api/run", h.run)
	r.GET("/api/article", h.article)
	return srv
}

type handler struct {
	ctl      Controller
	articles ArticleReader
}

func (h *handler) health(ctx http.Context) error {
	return ctx.JSON(nethttp.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) report(ctx http.Context) error {
	rep, runErr := h.ctl.Last()
	if rep == nil && runErr == nil {
		return errors.NotFound("REPORT_NOT_FOUND", "no run has finished yet")
	}
	return ctx.JSON(nethttp.StatusOK, newReportView(rep, runErr, h.ctl.Running()))
}

func (h *handler) run(ctx http.Context) error {
	if !h.ctl.Trigger() {
		return errors.Conflict("RUN_IN_PROGRESS", scheduler.ErrBusy.Error())
	}
	return ctx.JSON(nethttp.StatusAccepted, map[string]string{"status": "started"})
}

func (h *handler) article(ctx http.Context) error {
	url := ctx.Query().Get("url")
	if url == "" {
		return errors.BadRequest("MISSING_URL", "query parameter url is required")
	}
	a, err := h.articles.GetArticle(ctx, url)
	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.NotFound("ARTICLE_NOT_FOUND", "article not found")
	}
	if err != nil {
		return errors.InternalServer("STORAGE_ERROR", err.Error())
	}
	return ctx.JSON(nethttp.StatusOK, a)
}

func newReportView(rep *engine.Report, runErr error, running bool) ReportView {
	v := ReportView{Running: running, Topics: []string{}}
	if runErr != nil {
		v.Error = runErr.Error()
	}
	if rep == nil {
		return v
	}
	v.Fetched, v.Selected, v.Crawled, v.Analyzed = rep.Fetched, rep.Selected, rep.Crawled, rep.Analyzed
	v.Fallback = rep.Fallback
	for _, s := range rep.Sections {
		v.Topics = append(v.Topics, s.Topic)
	}
	v.Title = rep.Title
	if rep.Draft != nil {
		v.Draft = rep.Draft.String()
	}
	v.DraftURL = rep.DraftURL
	v.Notified = rep.Notified
	return v
}
