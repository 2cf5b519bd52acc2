package hosting

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gocrud/ioc/logging"
)

// HostedService 托管服务接口（类似于 .NET Core IHostedService）
// 框架会自动在 goroutine 中调用 Start，用户无需自己启动 goroutine
type HostedService interface {
	// Start 启动服务，应阻塞执行直到 context 被取消或发生错误
	Start(ctx context.Context) error

	// Stop 执行优雅关闭逻辑
	// Start 的 context 取消已触发停止，Stop 用于额外清理
	Stop(ctx context.Context) error
}

// NamedService 可选接口，为日志提供服务名
type NamedService interface {
	ServiceName() string
}

// HostedServiceManager 托管服务管理器
type HostedServiceManager struct {
	services []HostedService
	logger   logging.Logger
	mu       sync.RWMutex
	wg       sync.WaitGroup
}

// NewHostedServiceManager 创建托管服务管理器
func NewHostedServiceManager(logger logging.Logger) *HostedServiceManager {
	return &HostedServiceManager{logger: logger}
}

// Add 添加托管服务
func (m *HostedServiceManager) Add(service HostedService) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services = append(m.services, service)
}

// Count 返回托管服务数量
func (m *HostedServiceManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.services)
}

// StartAll 并发启动所有托管服务，每个服务独立 goroutine
// 返回的通道承载真正的服务错误，context 取消不算错误
func (m *HostedServiceManager) StartAll(ctx context.Context) <-chan error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	errCh := make(chan error, len(m.services))

	m.logger.Info("Starting hosted services",
		logging.Field{Key: "count", Value: len(m.services)})

	for i, service := range m.services {
		m.wg.Add(1)
		go func(name string, svc HostedService) {
			defer m.wg.Done()

			err := svc.Start(ctx)
			switch {
			case err == nil:
				m.logger.Info("Hosted service completed",
					logging.Field{Key: "service", Value: name})
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				m.logger.Debug("Hosted service stopped",
					logging.Field{Key: "service", Value: name})
			default:
				m.logger.Error("Hosted service failed",
					logging.Field{Key: "service", Value: name},
					logging.Field{Key: "error", Value: err.Error()})
				errCh <- err
			}
		}(serviceName(service, i), service)
	}

	return errCh
}

// StopAll 反向并发停止所有托管服务
func (m *HostedServiceManager) StopAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	m.logger.Info("Stopping hosted services",
		logging.Field{Key: "count", Value: len(m.services)})

	var wg sync.WaitGroup
	for i := len(m.services) - 1; i >= 0; i-- {
		wg.Add(1)
		go func(name string, svc HostedService) {
			defer wg.Done()

			if err := svc.Stop(ctx); err != nil {
				m.logger.Error("Failed to stop hosted service",
					logging.Field{Key: "service", Value: name},
					logging.Field{Key: "error", Value: err.Error()})
				return
			}
			m.logger.Debug("Hosted service stopped",
				logging.Field{Key: "service", Value: name})
		}(serviceName(m.services[i], i), m.services[i])
	}
	wg.Wait()

	return nil
}

// Wait 等待所有服务的 Start 返回
func (m *HostedServiceManager) Wait() {
	m.wg.Wait()
}

func serviceName(service HostedService, index int) string {
	if named, ok := service.(NamedService); ok {
		return named.ServiceName()
	}
	return fmt.Sprintf("%T#%d", service, index)
}
