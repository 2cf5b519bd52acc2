package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"sync"
	"syscall"
	"time"

	"github.com/gocrud/ioc/beans"
	"github.com/gocrud/ioc/config"
	"github.com/gocrud/ioc/di"
	"github.com/gocrud/ioc/hosting"
	"github.com/gocrud/ioc/logging"
	"github.com/gocrud/ioc/meta"
	"github.com/gocrud/ioc/naming"
)

// Application 应用程序接口
type Application interface {
	Run() error
	RunAsync(ctx context.Context) error
	Stop(ctx context.Context) error
	Services() di.Container
	Configuration() config.Configuration
	Logger() logging.Logger
	Environment() Environment
	GetService(ptr any)
}

// ApplicationBuilder 应用程序构建器
// 引导顺序：配置环境 -> 配置类解析与校验 -> Bean 物化 -> 容器构建 -> 托管服务
type ApplicationBuilder struct {
	environment          string
	configBuilder        *config.ConfigurationBuilder
	loggingBuilder       *logging.LoggingBuilder
	metaRegistry         *meta.Registry
	namingService        naming.Service
	candidates           []beans.Candidate
	serviceConfigurators []func(*ServiceCollection)
	configurators        []Configurator
	shutdownTimeout      time.Duration
	mu                   sync.RWMutex
}

// NewApplicationBuilder 创建应用程序构建器
func NewApplicationBuilder() *ApplicationBuilder {
	return &ApplicationBuilder{
		environment:     "development",
		configBuilder:   config.NewConfigurationBuilder(),
		loggingBuilder:  logging.NewLoggingBuilder(),
		metaRegistry:    meta.Default(),
		shutdownTimeout: 30 * time.Second,
	}
}

// UseEnvironment 设置环境
func (b *ApplicationBuilder) UseEnvironment(env string) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.environment = env
	return b
}

// UseMetaRegistry 指定注解注册表（默认进程级注册表）
func (b *ApplicationBuilder) UseMetaRegistry(reg *meta.Registry) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.metaRegistry = reg
	return b
}

// UseNaming 指定命名服务，resource 注入的全局名称经它查找
func (b *ApplicationBuilder) UseNaming(svc naming.Service) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.namingService = svc
	return b
}

// ConfigureConfiguration 配置配置系统
func (b *ApplicationBuilder) ConfigureConfiguration(configure func(*config.ConfigurationBuilder)) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if configure != nil {
		configure(b.configBuilder)
	}
	return b
}

// ConfigureLogging 配置日志系统
func (b *ApplicationBuilder) ConfigureLogging(configure func(*logging.LoggingBuilder)) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if configure != nil {
		configure(b.loggingBuilder)
	}
	return b
}

// AddConfiguration 登记配置类候选，参数为原型实例
// 使用示例: builder.AddConfiguration(&AppConfig{})
func (b *ApplicationBuilder) AddConfiguration(prototypes ...any) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range prototypes {
		b.candidates = append(b.candidates, beans.CandidateOf(p, ""))
	}
	return b
}

// AddCandidate 登记带显式 Bean 名的配置类候选
func (b *ApplicationBuilder) AddCandidate(name string, prototype any) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.candidates = append(b.candidates, beans.CandidateOf(prototype, name))
	return b
}

// ConfigureServices 配置服务
func (b *ApplicationBuilder) ConfigureServices(configure func(*ServiceCollection)) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if configure != nil {
		b.serviceConfigurators = append(b.serviceConfigurators, configure)
	}
	return b
}

// Configure 添加构建上下文配置器
func (b *ApplicationBuilder) Configure(configurators ...Configurator) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.configurators = append(b.configurators, configurators...)
	return b
}

// AddExtension 添加应用程序扩展
func (b *ApplicationBuilder) AddExtension(ext Extension) *ApplicationBuilder {
	validateExtension(ext)

	b.mu.Lock()
	defer b.mu.Unlock()

	if sc, ok := ext.(ServiceConfigurator); ok {
		b.serviceConfigurators = append(b.serviceConfigurators, sc.ConfigureServices)
	}
	if ac, ok := ext.(AppConfigurator); ok {
		b.configurators = append(b.configurators, ac.ConfigureBuilder)
	}
	return b
}

// AddOptions 注册配置选项（语法糖）
// 使用示例: core.AddOptions[AppSetting](builder, "app")
func AddOptions[T any](b *ApplicationBuilder, section string) *ApplicationBuilder {
	return b.Configure(func(ctx *BuildContext) {
		ConfigureOptions[T](ctx, section)
	})
}

// AddTask 添加一个简单的后台任务
func (b *ApplicationBuilder) AddTask(task func(ctx context.Context) error) *ApplicationBuilder {
	return b.Configure(func(ctx *BuildContext) {
		ctx.AddHostedService(&functionalService{task: task})
	})
}

// AddTimedTask 添加按固定间隔执行的后台任务
func (b *ApplicationBuilder) AddTimedTask(name string, interval time.Duration, task func(ctx context.Context) error) *ApplicationBuilder {
	return b.Configure(func(ctx *BuildContext) {
		ctx.AddHostedService(hosting.NewTimedHostedService(name, interval, task, ctx.GetLogger()))
	})
}

// functionalService 函数式托管服务
type functionalService struct {
	task func(ctx context.Context) error
}

func (f *functionalService) Start(ctx context.Context) error {
	return f.task(ctx)
}

func (f *functionalService) Stop(ctx context.Context) error {
	return nil
}

// UseShutdownTimeout 设置关闭超时
func (b *ApplicationBuilder) UseShutdownTimeout(timeout time.Duration) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shutdownTimeout = timeout
	return b
}

// Build 构建应用程序
func (b *ApplicationBuilder) Build() (Application, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	environment, err := config.NewEnvironmentFrom(b.configBuilder)
	if err != nil {
		return nil, fmt.Errorf("core: failed to build configuration environment: %w", err)
	}

	// 配置中的 logging.level 覆盖构建器级别
	if levelStr := environment.Get("logging.level"); levelStr != "" {
		if level, err := logging.ParseLevel(levelStr); err == nil {
			b.loggingBuilder.SetMinimumLevel(level)
		}
	}

	loggerFactory := b.loggingBuilder.Build()
	logger := loggerFactory.CreateLogger("Application")

	logger.Info("Building application",
		logging.Field{Key: "environment", Value: b.environment})

	containerOpts := []di.ContainerOption{
		di.WithRegistry(b.metaRegistry),
		di.WithLogger(logger),
	}
	if b.namingService != nil {
		containerOpts = append(containerOpts, di.WithNaming(b.namingService))
	}
	container := di.NewContainer(containerOpts...)

	// 核心 Bean
	if err := di.RegisterInstance(container, "environment", environment); err != nil {
		return nil, err
	}
	if err := di.RegisterInstance(container, "loggerFactory", loggerFactory); err != nil {
		return nil, err
	}
	if err := di.RegisterInstance(container, "logger", logger); err != nil {
		return nil, err
	}

	buildContext := &BuildContext{
		container:      container,
		configuration:  environment,
		logger:         logger,
		environment:    NewEnvironment(b.environment),
		cleanups:       make(map[string]func()),
		lifecycle:      NewLifecycle(logger),
		hostedServices: nil,
	}

	for _, configurator := range b.configurators {
		configurator(buildContext)
	}

	services := &ServiceCollection{container: container, logger: logger}
	for _, configurator := range b.serviceConfigurators {
		configurator(services)
	}

	// 配置类流水线：解析 -> 校验 -> 物化
	if len(b.candidates) > 0 {
		parser := beans.NewParser(environment,
			beans.WithMetaRegistry(b.metaRegistry),
			beans.WithParserLogger(logger),
			beans.WithDefinitionRegistry(container),
		)
		if err := parser.Parse(b.candidates); err != nil {
			return nil, fmt.Errorf("core: configuration parsing failed: %w", err)
		}
		if err := parser.Validate(); err != nil {
			return nil, fmt.Errorf("core: configuration validation failed: %w", err)
		}

		reader := beans.NewReader(container, environment,
			beans.WithReaderRegistry(b.metaRegistry),
			beans.WithReaderLogger(logger),
		)
		if err := reader.Register(parser.ConfigurationClasses()); err != nil {
			return nil, fmt.Errorf("core: bean registration failed: %w", err)
		}
	}

	if err := container.Build(); err != nil {
		return nil, fmt.Errorf("core: failed to build container: %w", err)
	}
	logger.Info("DI container built successfully")

	hostedServices := append([]hosting.HostedService(nil), buildContext.hostedServices...)
	resolved, err := collectHostedServices(container)
	if err != nil {
		return nil, err
	}
	// 既显式登记又注册进容器的服务只启动一次
	seen := make(map[hosting.HostedService]struct{}, len(hostedServices))
	for _, hs := range hostedServices {
		seen[hs] = struct{}{}
	}
	for _, hs := range resolved {
		if _, dup := seen[hs]; dup {
			continue
		}
		seen[hs] = struct{}{}
		hostedServices = append(hostedServices, hs)
	}

	return &application{
		container:       container,
		environment:     environment,
		logger:          logger,
		profile:         NewEnvironment(b.environment),
		hostedServices:  hostedServices,
		lifecycle:       buildContext.lifecycle,
		cleanups:        buildContext.cleanups,
		shutdownTimeout: b.shutdownTimeout,
		stopCh:          make(chan struct{}),
	}, nil
}

// MustBuild 构建应用程序，失败即 panic
func (b *ApplicationBuilder) MustBuild() Application {
	app, err := b.Build()
	if err != nil {
		panic(err)
	}
	return app
}

var hostedServiceType = reflect.TypeOf((*hosting.HostedService)(nil)).Elem()

// collectHostedServices 从容器定义里找出实现托管服务接口的单例
func collectHostedServices(container di.Container) ([]hosting.HostedService, error) {
	var out []hosting.HostedService
	for _, name := range container.DefinitionNames() {
		def, ok := container.Definition(name)
		if !ok || def.Type == nil {
			continue
		}
		if def.Scope != di.ScopeSingleton || !def.Type.Implements(hostedServiceType) {
			continue
		}
		inst, err := container.GetNamed(name)
		if err != nil {
			return nil, fmt.Errorf("core: failed to resolve hosted service '%s': %w", name, err)
		}
		if hs, ok := inst.(hosting.HostedService); ok {
			out = append(out, hs)
		}
	}
	return out, nil
}

// application 应用程序实现
type application struct {
	container       di.Container
	environment     *config.Environment
	logger          logging.Logger
	profile         Environment
	hostedServices  []hosting.HostedService
	serviceManager  *hosting.HostedServiceManager
	lifecycle       *LifecycleEvents
	cleanups        map[string]func()
	shutdownTimeout time.Duration
	stopCh          chan struct{}
	running         bool
	runCancel       context.CancelFunc
	mu              sync.RWMutex
}

// Run 运行应用程序（阻塞）
func (a *application) Run() error {
	return a.RunAsync(context.Background())
}

// RunAsync 运行应用程序直到收到信号、Stop 调用或服务失败
func (a *application) RunAsync(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return errors.New("core: application is already running")
	}
	a.running = true

	runCtx, cancel := context.WithCancel(ctx)
	a.runCancel = cancel
	a.mu.Unlock()

	a.logger.Info("Starting application",
		logging.Field{Key: "environment", Value: a.profile.Name()})

	if err := a.lifecycle.Start(runCtx); err != nil {
		cancel()
		return fmt.Errorf("core: startup hook failed: %w", err)
	}

	a.serviceManager = hosting.NewHostedServiceManager(a.logger)
	for _, service := range a.hostedServices {
		a.serviceManager.Add(service)
	}
	errCh := a.serviceManager.StartAll(runCtx)

	a.logger.Info("Application started successfully")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		a.logger.Info("Received shutdown signal",
			logging.Field{Key: "signal", Value: sig.String()})
	case <-a.stopCh:
		a.logger.Info("Application stop requested")
	case <-ctx.Done():
		a.logger.Info("Context cancelled")
	case err := <-errCh:
		a.logger.Error("Hosted service failed, stopping application",
			logging.Field{Key: "error", Value: err.Error()})
		runErr = err
	}

	a.shutdown(cancel)
	return runErr
}

func (a *application) shutdown(cancel context.CancelFunc) {
	a.logger.Info("Shutting down application",
		logging.Field{Key: "timeout", Value: a.shutdownTimeout.String()})

	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer done()

	if err := a.serviceManager.StopAll(shutdownCtx); err != nil {
		a.logger.Error("Failed to stop hosted services",
			logging.Field{Key: "error", Value: err.Error()})
	}
	a.serviceManager.Wait()

	a.lifecycle.Stop(shutdownCtx)

	if len(a.cleanups) > 0 {
		a.logger.Info("Running cleanup functions",
			logging.Field{Key: "count", Value: len(a.cleanups)})
		for key, cleanup := range a.cleanups {
			a.logger.Debug("Running cleanup",
				logging.Field{Key: "key", Value: key})
			cleanup()
		}
	}

	a.container.Destroy()
	a.logger.Info("Application stopped")

	a.mu.Lock()
	a.running = false
	a.mu.Unlock()
}

// Stop 停止应用程序
func (a *application) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	select {
	case <-a.stopCh:
	default:
		close(a.stopCh)
	}
	return nil
}

// Services 获取服务容器
func (a *application) Services() di.Container {
	return a.container
}

// Configuration 获取配置
func (a *application) Configuration() config.Configuration {
	return a.environment
}

// Logger 获取日志记录器
func (a *application) Logger() logging.Logger {
	return a.logger
}

// Environment 获取环境
func (a *application) Environment() Environment {
	return a.profile
}

// GetService 获取服务实例（通过指针参数）
//
// 使用示例：
//
//	var myService *MyService
//	app.GetService(&myService)
func (a *application) GetService(ptr any) {
	ptrValue := reflect.ValueOf(ptr)
	if ptrValue.Kind() != reflect.Pointer {
		panic(fmt.Sprintf("core: GetService argument must be a pointer, got %T", ptr))
	}
	elemValue := ptrValue.Elem()
	if !elemValue.CanSet() {
		panic("core: GetService argument must be settable")
	}

	instance, err := a.container.Get(elemValue.Type())
	if err != nil {
		panic(fmt.Sprintf("core: failed to get service %s: %v", elemValue.Type().String(), err))
	}
	elemValue.Set(reflect.ValueOf(instance))
}

// ServiceCollection 服务集合
type ServiceCollection struct {
	container di.Container
	logger    logging.Logger
}

// Container 返回底层容器
func (s *ServiceCollection) Container() di.Container {
	return s.container
}

// Environment 环境接口
type Environment interface {
	Name() string
	IsDevelopment() bool
	IsProduction() bool
	IsStaging() bool
}

type environment struct {
	name string
}

// NewEnvironment 创建环境
func NewEnvironment(name string) Environment {
	return &environment{name: name}
}

func (e *environment) Name() string {
	return e.name
}

func (e *environment) IsDevelopment() bool {
	return e.name == "development"
}

func (e *environment) IsProduction() bool {
	return e.name == "production"
}

func (e *environment) IsStaging() bool {
	return e.name == "staging"
}
