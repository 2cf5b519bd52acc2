package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"reflect"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/gocrud/ioc/di"
	"github.com/gocrud/ioc/logging"
)

// Controller 路由贡献者，Host 启动前逐个挂载
type Controller interface {
	RegisterRoutes(router gin.IRouter)
}

// Builder Web 主机构建器（基于 Gin）
type Builder struct {
	logger      logging.Logger
	port        int
	engine      *gin.Engine
	controllers []any
}

// NewBuilder 创建 Web 构建器
func NewBuilder(logger logging.Logger) *Builder {
	// 设置 Gin 为发布模式（默认）
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()

	// 默认中间件：恢复 panic
	engine.Use(gin.Recovery())

	return &Builder{
		logger: logger,
		port:   8080,
		engine: engine,
	}
}

// UsePort 设置端口
func (b *Builder) UsePort(port int) *Builder {
	b.port = port
	return b
}

// Get 注册 GET 路由
func (b *Builder) Get(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.GET(path, handlers...)
	return b
}

// Post 注册 POST 路由
func (b *Builder) Post(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.POST(path, handlers...)
	return b
}

// Put 注册 PUT 路由
func (b *Builder) Put(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.PUT(path, handlers...)
	return b
}

// Delete 注册 DELETE 路由
func (b *Builder) Delete(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.DELETE(path, handlers...)
	return b
}

// Patch 注册 PATCH 路由
func (b *Builder) Patch(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.PATCH(path, handlers...)
	return b
}

// Any 注册任意方法路由
func (b *Builder) Any(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.Any(path, handlers...)
	return b
}

// Group 创建路由组
func (b *Builder) Group(relativePath string, handlers ...gin.HandlerFunc) *gin.RouterGroup {
	return b.engine.Group(relativePath, handlers...)
}

// Use 使用全局中间件
func (b *Builder) Use(middleware ...gin.HandlerFunc) *Builder {
	b.engine.Use(middleware...)
	return b
}

// Static 服务静态文件
func (b *Builder) Static(relativePath, root string) *Builder {
	b.engine.Static(relativePath, root)
	return b
}

// StaticFS 服务静态文件系统
func (b *Builder) StaticFS(relativePath string, fs http.FileSystem) *Builder {
	b.engine.StaticFS(relativePath, fs)
	return b
}

// StaticFile 服务单个静态文件
func (b *Builder) StaticFile(relativePath, filepath string) *Builder {
	b.engine.StaticFile(relativePath, filepath)
	return b
}

// LoadHTMLGlob 加载 HTML 模板（通配符）
func (b *Builder) LoadHTMLGlob(pattern string) *Builder {
	b.engine.LoadHTMLGlob(pattern)
	return b
}

// LoadHTMLFiles 加载 HTML 模板（文件列表）
func (b *Builder) LoadHTMLFiles(files ...string) *Builder {
	b.engine.LoadHTMLFiles(files...)
	return b
}

// NoRoute 处理 404
func (b *Builder) NoRoute(handlers ...gin.HandlerFunc) *Builder {
	b.engine.NoRoute(handlers...)
	return b
}

// NoMethod 处理 405
func (b *Builder) NoMethod(handlers ...gin.HandlerFunc) *Builder {
	b.engine.NoMethod(handlers...)
	return b
}

// SetMode 设置 Gin 模式
func (b *Builder) SetMode(mode string) *Builder {
	gin.SetMode(mode)
	return b
}

// Engine 获取 Gin 引擎（用于高级定制）
func (b *Builder) Engine() *gin.Engine {
	return b.engine
}

// AddControllers 登记控制器，接受构造函数或实例指针
// 控制器注册进 DI 容器，Host 启动前解析并挂载路由
func (b *Builder) AddControllers(controllers ...any) *Builder {
	b.controllers = append(b.controllers, controllers...)
	return b
}

// Build 构建 Web 主机并把控制器注册进容器
func (b *Builder) Build(container di.Container) *Host {
	host := &Host{
		port:      b.port,
		engine:    b.engine,
		container: container,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", b.port),
			Handler: b.engine, // Gin Engine 实现了 http.Handler
		},
		logger: b.logger,
	}

	for _, controller := range b.controllers {
		ctype, err := b.registerController(container, controller)
		if err != nil {
			b.logger.Warn("Controller registration failed, routes may be duplicated",
				logging.Field{Key: "type", Value: fmt.Sprintf("%T", controller)},
				logging.Field{Key: "error", Value: err.Error()})
		}
		if ctype != nil {
			host.controllerTypes = append(host.controllerTypes, ctype)
		}
	}

	return host
}

// registerController 把构造函数或实例登记到容器，返回控制器类型
func (b *Builder) registerController(container di.Container, controller any) (reflect.Type, error) {
	if container == nil {
		return nil, fmt.Errorf("web: container is required for controllers")
	}

	val := reflect.ValueOf(controller)
	switch val.Kind() {
	case reflect.Func:
		fnType := val.Type()
		if fnType.NumOut() == 0 {
			return nil, fmt.Errorf("web: controller constructor must return the controller")
		}
		ctype := fnType.Out(0)
		return ctype, di.RegisterFactory(container, controller)
	case reflect.Pointer:
		ctype := val.Type()
		return ctype, di.RegisterInstance(container, di.DefaultBeanName(ctype), controller)
	default:
		return nil, fmt.Errorf("web: controller must be a constructor or a pointer, got %T", controller)
	}
}

// Host Web 主机
type Host struct {
	port            int
	engine          *gin.Engine
	server          *http.Server
	logger          logging.Logger
	container       di.Container
	controllerTypes []reflect.Type

	mu   sync.RWMutex
	addr string
}

// Address 返回实际监听地址，启动前为空
// 端口为 0 时可用它获取系统分配的端口
func (h *Host) Address() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.addr
}

// mapControllers 从容器解析控制器并挂载路由
func (h *Host) mapControllers() error {
	for _, ctype := range h.controllerTypes {
		instance, err := h.container.Get(ctype)
		if err != nil {
			return fmt.Errorf("web: failed to resolve controller %v: %w", ctype, err)
		}
		controller, ok := instance.(Controller)
		if !ok {
			return fmt.Errorf("web: %v does not implement Controller", ctype)
		}
		controller.RegisterRoutes(h.engine)
	}
	return nil
}

// Start 启动 Web 主机
func (h *Host) Start(ctx context.Context) error {
	h.logger.Info("Starting web host",
		logging.Field{Key: "port", Value: h.port})

	if err := h.mapControllers(); err != nil {
		return err
	}

	// 先建立监听再服务，端口为 0 时也能拿到实际地址
	listener, err := net.Listen("tcp", h.server.Addr)
	if err != nil {
		return fmt.Errorf("web: listen on %s: %w", h.server.Addr, err)
	}
	h.mu.Lock()
	h.addr = listener.Addr().String()
	h.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		if err := h.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	h.logger.Info("Web host started",
		logging.Field{Key: "address", Value: h.Address()})

	// 等待错误或上下文取消
	select {
	case err := <-errCh:
		if err != nil {
			h.logger.Error("Web host error",
				logging.Field{Key: "error", Value: err.Error()})
			return err
		}
		return nil
	case <-ctx.Done():
		// 上下文取消，触发关闭
		return nil // Stop 会负责关闭
	}
}

// Stop 停止 Web 主机
func (h *Host) Stop(ctx context.Context) error {
	h.logger.Info("Stopping web host")

	if err := h.server.Shutdown(ctx); err != nil {
		h.logger.Error("Failed to shutdown web host gracefully",
			logging.Field{Key: "error", Value: err.Error()})
		return err
	}

	h.logger.Info("Web host stopped")
	return nil
}
