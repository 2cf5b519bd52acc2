package core

import (
	"fmt"

	"github.com/gocrud/ioc/config"
	"github.com/gocrud/ioc/di"
	"github.com/gocrud/ioc/hosting"
	"github.com/gocrud/ioc/logging"
)

// Configurator 构建上下文配置器
type Configurator func(*BuildContext)

// BuildContext 构建上下文
// 在 Configure 阶段暴露给模块 Builder，用于注册选项、托管服务和清理函数
type BuildContext struct {
	container      di.Container
	configuration  *config.Environment
	logger         logging.Logger
	environment    Environment
	hostedServices []hosting.HostedService
	cleanups       map[string]func()
	lifecycle      *LifecycleEvents
}

// Container 获取服务容器
func (c *BuildContext) Container() di.Container {
	return c.container
}

// GetConfiguration 获取配置
func (c *BuildContext) GetConfiguration() config.Configuration {
	return c.configuration
}

// GetEnvironment 获取环境
func (c *BuildContext) GetEnvironment() Environment {
	return c.environment
}

// GetLogger 获取日志记录器
func (c *BuildContext) GetLogger() logging.Logger {
	return c.logger
}

// Lifecycle 获取生命周期事件
func (c *BuildContext) Lifecycle() *LifecycleEvents {
	return c.lifecycle
}

// AddHostedService 注册托管服务实例
func (c *BuildContext) AddHostedService(service hosting.HostedService) {
	c.hostedServices = append(c.hostedServices, service)
}

// SetCleanup 注册清理函数，在应用关闭时执行
// 同名的清理函数会被覆盖
func (c *BuildContext) SetCleanup(key string, cleanup func()) {
	if cleanup == nil {
		return
	}
	c.cleanups[key] = cleanup
}

// ConfigureOptions 绑定配置节并注册三种选项访问方式
//
//	Option[T]         启动时加载一次
//	OptionSnapshot[T] 每个作用域一份快照
//	OptionMonitor[T]  实时读取最新配置
//
// 使用示例: core.ConfigureOptions[ServerOptions](ctx, "server")
func ConfigureOptions[T any](ctx *BuildContext, section string) {
	cache := config.NewOptionsCache[T](ctx.configuration, section)

	di.Register[config.Option[T]](ctx.container,
		di.WithFactory(func() config.Option[T] {
			return config.NewOption(cache.Get())
		}))

	di.Register[config.OptionSnapshot[T]](ctx.container,
		di.WithFactory(func() config.OptionSnapshot[T] {
			return config.NewOptionSnapshot(cache.Snapshot())
		}),
		di.WithScoped())

	di.Register[config.OptionMonitor[T]](ctx.container,
		di.WithFactory(func() config.OptionMonitor[T] {
			return config.NewOptionMonitor(cache)
		}))
}

// BindOptions 把配置节绑定到一个新的 T 实例，绑定失败返回错误
func BindOptions[T any](ctx *BuildContext, section string) (*T, error) {
	opts := new(T)
	if !ctx.configuration.Has(section) {
		return opts, nil
	}
	if err := ctx.configuration.Bind(section, opts); err != nil {
		return nil, fmt.Errorf("core: failed to bind options section '%s': %w", section, err)
	}
	return opts, nil
}
