package web

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/ioc/di"
	"github.com/gocrud/ioc/logging"
)

func newTestLogger() logging.Logger {
	builder := logging.NewLoggingBuilder()
	builder.AddConsole(logging.ConsoleLoggerOptions{
		Output:      os.Stdout,
		ColorOutput: false,
	})
	return builder.Build().CreateLogger("test")
}

// SimpleController 普通控制器
type SimpleController struct {
	Check string
}

func (c *SimpleController) RegisterRoutes(router gin.IRouter) {
	router.GET("/simple", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "simple")
	})
}

// DepService 模拟依赖服务
type DepService struct {
	Value string
}

// ControllerWithDep 构造函数注入的控制器
type ControllerWithDep struct {
	Svc *DepService
}

func NewControllerWithDep(svc *DepService) *ControllerWithDep {
	return &ControllerWithDep{Svc: svc}
}

func (c *ControllerWithDep) RegisterRoutes(router gin.IRouter) {
	router.GET("/dep", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, c.Svc.Value)
	})
}

// ControllerWithTag 字段标签注入的控制器
type ControllerWithTag struct {
	Svc *DepService `autowired:""`
}

func (c *ControllerWithTag) RegisterRoutes(router gin.IRouter) {
	router.GET("/tag", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "tag:"+c.Svc.Value)
	})
}

func TestBuilderMountsControllers(t *testing.T) {
	logger := newTestLogger()
	container := di.NewContainer()

	require.NoError(t, di.RegisterFactory(container, func() *DepService {
		return &DepService{Value: "injected-value"}
	}))

	builder := NewBuilder(logger)
	builder.AddControllers(NewControllerWithDep)
	builder.AddControllers(&ControllerWithTag{})
	builder.AddControllers(&SimpleController{})

	host := builder.Build(container)

	require.NoError(t, container.Build())
	require.NoError(t, host.mapControllers())

	router := host.engine

	w1 := httptest.NewRecorder()
	req1, _ := http.NewRequest(http.MethodGet, "/simple", nil)
	router.ServeHTTP(w1, req1)
	assert.Equal(t, http.StatusOK, w1.Code)
	assert.Equal(t, "simple", w1.Body.String())

	w2 := httptest.NewRecorder()
	req2, _ := http.NewRequest(http.MethodGet, "/dep", nil)
	router.ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusOK, w2.Code)
	assert.Equal(t, "injected-value", w2.Body.String())

	w3 := httptest.NewRecorder()
	req3, _ := http.NewRequest(http.MethodGet, "/tag", nil)
	router.ServeHTTP(w3, req3)
	assert.Equal(t, http.StatusOK, w3.Code)
	assert.Equal(t, "tag:injected-value", w3.Body.String())
}

func TestBuilderToleratesDuplicateControllers(t *testing.T) {
	logger := newTestLogger()
	container := di.NewContainer()

	require.NoError(t, di.RegisterFactory(container, func() *DepService {
		return &DepService{Value: "v"}
	}))

	builder := NewBuilder(logger)
	builder.AddControllers(NewControllerWithDep)
	builder.AddControllers(NewControllerWithDep)

	// 重复登记不 panic，记录警告后继续
	host := builder.Build(container)
	assert.NotEmpty(t, host.controllerTypes)
}

func TestBuilderRoutesWithoutControllers(t *testing.T) {
	builder := NewBuilder(newTestLogger())
	builder.Get("/ping", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "pong")
	})

	host := builder.Build(di.NewContainer())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	host.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}
