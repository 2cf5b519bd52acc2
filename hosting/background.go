package hosting

import (
	"context"
	"sync"
	"time"

	"github.com/gocrud/ioc/logging"
)

// BackgroundService 后台服务基座，处理停止信号与完成通知
// 嵌入它的服务只需实现自己的工作循环
type BackgroundService struct {
	name     string
	logger   logging.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	doneOnce sync.Once
}

// NewBackgroundService 创建后台服务
func NewBackgroundService(name string, logger logging.Logger) *BackgroundService {
	return &BackgroundService{
		name:   name,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// ServiceName 实现 NamedService
func (s *BackgroundService) ServiceName() string {
	return s.name
}

// Start 阻塞直到停止信号或上下文取消
func (s *BackgroundService) Start(ctx context.Context) error {
	select {
	case <-s.stopCh:
	case <-ctx.Done():
	}
	s.Done()
	return nil
}

// Stop 发出停止信号并等待服务完成，超时返回 ctx.Err()
func (s *BackgroundService) Stop(ctx context.Context) error {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}

	select {
	case <-s.doneCh:
		return nil
	case <-ctx.Done():
		s.logger.Warn("Background service stop timeout",
			logging.Field{Key: "service", Value: s.name})
		return ctx.Err()
	}
}

// StopChan 返回停止通道，供工作循环在 select 中监听
func (s *BackgroundService) StopChan() <-chan struct{} {
	return s.stopCh
}

// Done 标记服务完成，可重复调用
func (s *BackgroundService) Done() {
	s.doneOnce.Do(func() { close(s.doneCh) })
}

// TimedHostedService 按固定间隔执行任务的托管服务
type TimedHostedService struct {
	*BackgroundService
	interval time.Duration
	task     func(ctx context.Context) error
}

// NewTimedHostedService 创建定时托管服务
func NewTimedHostedService(name string, interval time.Duration, task func(ctx context.Context) error, logger logging.Logger) *TimedHostedService {
	return &TimedHostedService{
		BackgroundService: NewBackgroundService(name, logger),
		interval:          interval,
		task:              task,
	}
}

// Start 运行定时循环，任务错误记录日志但不中止服务
func (s *TimedHostedService) Start(ctx context.Context) error {
	defer s.Done()

	s.logger.Info("Timed service running",
		logging.Field{Key: "service", Value: s.name},
		logging.Field{Key: "interval", Value: s.interval.String()})

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.task(ctx); err != nil {
				s.logger.Error("Timed task failed",
					logging.Field{Key: "service", Value: s.name},
					logging.Field{Key: "error", Value: err.Error()})
			}
		case <-s.StopChan():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
