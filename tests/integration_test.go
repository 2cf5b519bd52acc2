package tests

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gocrud/ioc/config"
	"github.com/gocrud/ioc/configure/database"
	"github.com/gocrud/ioc/configure/web"
	"github.com/gocrud/ioc/core"
	"github.com/gocrud/ioc/di"
	"github.com/gocrud/ioc/meta"
)

// Note 测试用数据模型
type Note struct {
	ID    uint `gorm:"primarykey"`
	Title string
}

// noteService 业务服务，依赖数据库与应用配置
type noteService struct {
	db      *gorm.DB
	appName string
}

func (s *noteService) Count() (int64, error) {
	var count int64
	err := s.db.Model(&Note{}).Count(&count).Error
	return count, err
}

func (s *noteService) AppName() string {
	return s.appName
}

// appConfig 配置类，通过 Bean 方法装配业务服务
type appConfig struct{}

func (c *appConfig) Notes(db *gorm.DB, env *config.Environment) (*noteService, error) {
	if err := db.AutoMigrate(&Note{}); err != nil {
		return nil, err
	}
	if err := db.Create(&Note{Title: "first"}).Error; err != nil {
		return nil, err
	}
	return &noteService{db: db, appName: env.Get("app.name")}, nil
}

func newAppRegistry() *meta.Registry {
	reg := meta.NewRegistry()
	meta.RegisterFor[appConfig](reg,
		meta.Configuration(),
		meta.Bean("Notes", meta.WithBeanName("noteService")))
	return reg
}

// pingController 构造函数注入业务服务
type pingController struct {
	service *noteService
}

func newPingController(service *noteService) *pingController {
	return &pingController{service: service}
}

func (c *pingController) RegisterRoutes(router gin.IRouter) {
	router.GET("/ping", func(ctx *gin.Context) {
		count, err := c.service.Count()
		if err != nil {
			ctx.String(http.StatusInternalServerError, err.Error())
			return
		}
		ctx.String(http.StatusOK, fmt.Sprintf("%s:%d", c.service.AppName(), count))
	})
}

func TestApplicationPipeline(t *testing.T) {
	app, err := core.NewApplicationBuilder().
		UseEnvironment("development").
		UseShutdownTimeout(5 * time.Second).
		ConfigureConfiguration(func(b *config.ConfigurationBuilder) {
			b.AddInMemory(map[string]any{
				"app": map[string]any{"name": "integration"},
			})
		}).
		UseMetaRegistry(newAppRegistry()).
		AddConfiguration(&appConfig{}).
		Configure(
			database.Configure(func(b *database.Builder) {
				b.Add("default", sqlite.Open("file::memory:?cache=shared"), nil)
			}),
			web.Configure(func(b *web.Builder) {
				b.UsePort(0).AddControllers(newPingController)
			}),
		).
		Build()
	require.NoError(t, err)

	// 数据库与业务服务均可从容器解析
	db, err := di.Resolve[*gorm.DB](app.Services())
	require.NoError(t, err)
	require.NotNil(t, db)

	svc, err := di.ResolveNamed[*noteService](app.Services(), "noteService")
	require.NoError(t, err)
	assert.Equal(t, "integration", svc.AppName())

	done := make(chan error, 1)
	go func() {
		done <- app.RunAsync(context.Background())
	}()

	host, err := di.ResolveNamed[*web.Host](app.Services(), "webHost")
	require.NoError(t, err)

	// 等待端口分配
	addr := ""
	require.Eventually(t, func() bool {
		addr = host.Address()
		return addr != ""
	}, 5*time.Second, 20*time.Millisecond, "web host did not start")

	resp, err := http.Get(fmt.Sprintf("http://%s/ping", addr))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "integration:1", string(body))

	require.NoError(t, app.Stop(context.Background()))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("application did not stop")
	}
}

// blockingWorker 模拟阻塞型托管服务
type blockingWorker struct {
	started chan struct{}
	stopped chan struct{}
}

func (w *blockingWorker) Start(ctx context.Context) error {
	close(w.started)
	<-ctx.Done()
	return nil
}

func (w *blockingWorker) Stop(ctx context.Context) error {
	close(w.stopped)
	return nil
}

func TestHostedServiceLifecycle(t *testing.T) {
	worker := &blockingWorker{
		started: make(chan struct{}),
		stopped: make(chan struct{}),
	}

	app, err := core.NewApplicationBuilder().
		UseShutdownTimeout(5 * time.Second).
		ConfigureServices(func(s *core.ServiceCollection) {
			core.AddValue(s, "worker", worker)
		}).
		Build()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- app.RunAsync(context.Background())
	}()

	select {
	case <-worker.started:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not start")
	}

	require.NoError(t, app.Stop(context.Background()))

	select {
	case <-worker.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("worker was not stopped")
	}

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("application did not stop")
	}
}
