package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/weflow/internal/engine"
	"github.com/iWorld-y/weflow/internal/logger"
)

// ErrBusy 上一轮仍在运行
var ErrBusy = errors.New("a run is already in progress")

// Runner 一次完整的日报流程
type Runner interface {
	Run(ctx context.Context) (*engine.Report, error)
}

var _ Runner = (*engine.Engine)(nil)

// Scheduler 按 cron 表达式定时触发流程，也可手动触发。任意时刻最多一轮在运行
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	ctx    context.Context

	running sync.Mutex

	mu      sync.Mutex
	last    *engine.Report
	lastErr error
}

// New 创建调度器，spec 为标准五段 cron 表达式，为空时只能手动触发
func New(ctx context.Context, spec string, runner Runner) (*Scheduler, error) {
	l := cronLogger{entry: logger.Log.WithField("component", "scheduler")}
	c := cron.New(
		cron.WithLogger(l),
		cron.WithChain(cron.Recover(l)),
	)

	s := &Scheduler{cron: c, runner: runner, ctx: ctx}
	if spec == "" {
		return s, nil
	}
	if _, err := c.AddFunc(spec, s.runScheduled); err != nil {
		return nil, fmt.Errorf("parse cron spec %q: %w", spec, err)
	}
	return s, nil
}

// Start 启动调度，不阻塞
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		logger.Log.Infof("下次运行时间: %s", e.Next.Format("2006-01-02 15:04:05"))
	}
}

// Stop 停止调度，返回的 context 在正在运行的任务（定时或手动）结束后关闭
func (s *Scheduler) Stop() context.Context {
	cronDone := s.cron.Stop()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer cancel()
		<-cronDone.Done()
		s.running.Lock()
		s.running.Unlock()
	}()
	return ctx
}

// RunOnce 立即同步执行一次，已有任务在运行时返回 ErrBusy
func (s *Scheduler) RunOnce() (*engine.Report, error) {
	if !s.running.TryLock() {
		return nil, ErrBusy
	}
	defer s.running.Unlock()
	return s.run()
}

// Trigger 在后台启动一次运行，已有任务在运行时返回 false
func (s *Scheduler) Trigger() bool {
	if !s.running.TryLock() {
		return false
	}
	go func() {
		defer s.running.Unlock()
		if _, err := s.run(); err != nil {
			logger.Log.Errorf("手动任务失败: %v", err)
		}
	}()
	return true
}

// Running 当前是否有任务在运行
func (s *Scheduler) Running() bool {
	if !s.running.TryLock() {
		return true
	}
	s.running.Unlock()
	return false
}

// Last 最近一次运行的结果和错误，尚未运行过时均为 nil
func (s *Scheduler) Last() (*engine.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.lastErr
}

func (s *Scheduler) runScheduled() {
	_, err := s.RunOnce()
	switch {
	case errors.Is(err, ErrBusy):
		logger.Log.Warn("上一轮尚未结束，跳过本次定时任务")
	case err != nil:
		logger.Log.Errorf("定时任务失败: %v", err)
	}
}

func (s *Scheduler) run() (rep *engine.Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		s.mu.Lock()
		s.last, s.lastErr = rep, err
		s.mu.Unlock()
	}()
	return s.runner.Run(s.ctx)
}

// cronLogger 把 cron 的日志转到 logrus
type cronLogger struct {
	entry *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).WithError(err).Error(msg)
}

func fields(kv []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
