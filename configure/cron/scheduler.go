package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gocrud/ioc/logging"
)

// SchedulerOptions 调度器选项
type SchedulerOptions struct {
	// Location 时区名称，默认 UTC
	Location string
	// Seconds 启用秒级表达式
	Seconds bool
	// TraceScheduling 把 cron 库的调度日志接入框架日志
	TraceScheduling bool
}

// Scheduler 命名任务的 cron 调度器，作为托管服务随应用启停
type Scheduler struct {
	cron    *cron.Cron
	logger  logging.Logger
	mu      sync.RWMutex
	entries map[string]cron.EntryID
}

// NewScheduler 创建调度器
func NewScheduler(logger logging.Logger, opts SchedulerOptions) (*Scheduler, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	loc := time.UTC
	if opts.Location != "" {
		var err error
		if loc, err = time.LoadLocation(opts.Location); err != nil {
			return nil, fmt.Errorf("cron: unknown location '%s': %w", opts.Location, err)
		}
	}

	cronOpts := []cron.Option{
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(&schedulerLog{logger: logger})),
	}
	if opts.Seconds {
		cronOpts = append(cronOpts, cron.WithSeconds())
	}
	if opts.TraceScheduling {
		cronOpts = append(cronOpts, cron.WithLogger(&schedulerLog{logger: logger}))
	}

	return &Scheduler{
		cron:    cron.New(cronOpts...),
		logger:  logger,
		entries: make(map[string]cron.EntryID),
	}, nil
}

// Schedule 按表达式注册命名任务；重名任务被替换
func (s *Scheduler) Schedule(spec, name string, job func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddFunc(spec, func() {
		s.logger.Debug("cron job run", logging.Field{Key: "job", Value: name})
		job()
	})
	if err != nil {
		return fmt.Errorf("cron: schedule '%s': %w", name, err)
	}

	if old, ok := s.entries[name]; ok {
		s.cron.Remove(old)
	}
	s.entries[name] = id
	s.logger.Info("cron job scheduled",
		logging.Field{Key: "job", Value: name},
		logging.Field{Key: "spec", Value: spec})
	return nil
}

// Unschedule 移除命名任务；不存在时静默
func (s *Scheduler) Unschedule(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[name]; ok {
		s.cron.Remove(id)
		delete(s.entries, name)
	}
}

// JobNames 当前已注册的任务名
func (s *Scheduler) JobNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	return names
}

// ServiceName 托管服务名
func (s *Scheduler) ServiceName() string {
	return "cronScheduler"
}

// Start 启动调度并阻塞到上下文取消
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.RLock()
	count := len(s.entries)
	s.mu.RUnlock()

	s.logger.Info("cron scheduler starting", logging.Field{Key: "jobs", Value: count})
	s.cron.Start()
	<-ctx.Done()
	return nil
}

// Stop 停止调度，等待运行中的任务收尾或超时
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("cron scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("cron scheduler stop timed out")
	}
	return nil
}

// schedulerLog 把 cron 库的键值对日志转成框架字段
type schedulerLog struct {
	logger logging.Logger
}

func (l *schedulerLog) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, pairFields(keysAndValues)...)
}

func (l *schedulerLog) Error(err error, msg string, keysAndValues ...any) {
	fields := append(pairFields(keysAndValues), logging.Field{Key: "error", Value: err.Error()})
	l.logger.Error(msg, fields...)
}

func pairFields(keysAndValues []any) []logging.Field {
	fields := make([]logging.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields = append(fields, logging.Field{
			Key:   fmt.Sprintf("%v", keysAndValues[i]),
			Value: keysAndValues[i+1],
		})
	}
	return fields
}
