package core

import (
	"context"
	"sync"

	"github.com/gocrud/ioc/logging"
)

// LifecycleEvents 应用生命周期钩子
// OnStarting 在托管服务启动前执行，任一失败即中止启动
// OnStopped 在托管服务停止后执行，错误只记录不中止
type LifecycleEvents struct {
	logger   logging.Logger
	starting []func(ctx context.Context) error
	stopped  []func(ctx context.Context) error
	mu       sync.Mutex
}

// NewLifecycle 创建生命周期事件
func NewLifecycle(logger logging.Logger) *LifecycleEvents {
	return &LifecycleEvents{logger: logger}
}

// OnStarting 注册启动钩子
func (l *LifecycleEvents) OnStarting(hook func(ctx context.Context) error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.starting = append(l.starting, hook)
}

// OnStopped 注册停止钩子
func (l *LifecycleEvents) OnStopped(hook func(ctx context.Context) error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopped = append(l.stopped, hook)
}

// Start 按注册顺序执行启动钩子
func (l *LifecycleEvents) Start(ctx context.Context) error {
	l.mu.Lock()
	hooks := append([]func(ctx context.Context) error(nil), l.starting...)
	l.mu.Unlock()

	for _, hook := range hooks {
		if err := hook(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Stop 逆序执行停止钩子
func (l *LifecycleEvents) Stop(ctx context.Context) {
	l.mu.Lock()
	hooks := append([]func(ctx context.Context) error(nil), l.stopped...)
	l.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			l.logger.Error("Lifecycle stop hook failed",
				logging.Field{Key: "error", Value: err.Error()})
		}
	}
}
