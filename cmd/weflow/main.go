package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kratos/kratos/v2"

	"github.com/iWorld-y/weflow/internal/config"
	"github.com/iWorld-y/weflow/internal/crawler"
	"github.com/iWorld-y/weflow/internal/engine"
	"github.com/iWorld-y/weflow/internal/feed"
	"github.com/iWorld-y/weflow/internal/image/factory"
	"github.com/iWorld-y/weflow/internal/llm"
	"github.com/iWorld-y/weflow/internal/logger"
	"github.com/iWorld-y/weflow/internal/notifier"
	"github.com/iWorld-y/weflow/internal/publisher"
	"github.com/iWorld-y/weflow/internal/scheduler"
	"github.com/iWorld-y/weflow/internal/server"
	"github.com/iWorld-y/weflow/internal/storage"
	"github.com/iWorld-y/weflow/internal/vision"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name 服务名
	Name = "weflow"
	// Version 版本号
	Version string

	flagConf = flag.String("conf", os.Getenv("WEFLOW_CONFIG"), "config file path, eg: -conf config.yaml")
	flagOnce = flag.Bool("once", false, "run once even if a cron schedule is configured")
)

func main() {
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*flagConf)
	if err != nil {
		log.Fatalf("无法加载配置文件: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("配置错误: %v", err)
	}

	// 2. 初始化日志
	if err := logger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		log.Fatalf("无法初始化日志: %v", err)
	}
	logger.Log.Info("启动 WeFlow...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. 初始化存储
	store, err := storage.NewStorage(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatalf("数据库初始化失败: %v", err)
	}
	defer store.Close()

	// 4. 初始化 LLM 与图片服务
	analyst, err := llm.NewDeepSeek(ctx, cfg.LLM, cfg.Concurrency)
	if err != nil {
		logger.Log.Fatalf("LLM 初始化失败: %v", err)
	}
	images, err := factory.NewGenerator(cfg.Image)
	if err != nil {
		logger.Log.Fatalf("图片服务初始化失败: %v", err)
	}
	logger.Log.Infof("图片服务: %s", cfg.Image.Provider)

	// 5. 订阅源
	sources := make([]feed.Source, 0, len(cfg.RSSFeeds))
	for _, u := range cfg.RSSFeeds {
		sources = append(sources, feed.NewRSS(u, nil))
	}

	deps := engine.Deps{
		Sources:   sources,
		Crawler:   crawler.New(cfg.Firecrawl),
		Analyst:   analyst,
		Images:    images,
		Vision:    vision.New(ctx, cfg.Image.DashScopeKey),
		Store:     store,
		Publisher: publisher.NewWeChat(cfg.WeChat),
	}
	if cfg.Feishu.WebhookURL != "" {
		deps.Notifier = notifier.NewFeishu(cfg.Feishu.WebhookURL, nil)
	} else {
		logger.Log.Warn("未配置 FEISHU_WEBHOOK_URL，跳过飞书通知")
	}

	eng := engine.NewEngine(deps, engine.Options{
		Author:       cfg.WeChat.Author,
		SnapshotPath: cfg.SnapshotPath,
		Workers:      cfg.Concurrency.Workers,
	})

	// 6. 单次运行，或定时运行并提供状态接口
	if (cfg.Cron == "" && cfg.HTTP.Addr == "") || *flagOnce {
		rep, err := eng.Run(ctx)
		if err != nil {
			logger.Log.Fatalf("运行失败: %v", err)
		}
		logger.Log.Infof("✅ 日报生成完毕: %s (%s)", rep.Title, rep.DraftURL)
		return
	}

	s, err := scheduler.New(ctx, cfg.Cron, eng)
	if err != nil {
		logger.Log.Fatalf("定时任务配置错误: %v", err)
	}

	opts := []kratos.Option{
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Context(ctx),
		kratos.Logger(logger.Kratos{}),
		kratos.AfterStart(func(context.Context) error {
			s.Start()
			return nil
		}),
		kratos.BeforeStop(func(context.Context) error {
			logger.Log.Info("正在停止，等待当前任务结束...")
			<-s.Stop().Done()
			return nil
		}),
	}
	if cfg.HTTP.Addr != "" {
		opts = append(opts, kratos.Server(server.NewHTTPServer(cfg.HTTP, s, store)))
		logger.Log.Infof("状态接口监听 %s", cfg.HTTP.Addr)
	}

	app := kratos.New(opts...)
	if err := app.Run(); err != nil {
		logger.Log.Fatalf("服务异常退出: %v", err)
	}
}
