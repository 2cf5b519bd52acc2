package core_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/ioc/config"
	"github.com/gocrud/ioc/core"
	"github.com/gocrud/ioc/di"
	"github.com/gocrud/ioc/meta"
)

type greeter struct {
	Prefix string
}

func (g *greeter) Greet(name string) string {
	return g.Prefix + " " + name
}

type greeterConfig struct{}

func (c *greeterConfig) Greeter() *greeter {
	return &greeter{Prefix: "hello"}
}

func newGreeterRegistry() *meta.Registry {
	reg := meta.NewRegistry()
	meta.RegisterFor[greeterConfig](reg,
		meta.Configuration(),
		meta.Bean("Greeter"))
	return reg
}

func TestBuildMinimalApplication(t *testing.T) {
	app, err := core.NewApplicationBuilder().
		UseEnvironment("production").
		ConfigureConfiguration(func(b *config.ConfigurationBuilder) {
			b.AddInMemory(map[string]any{
				"app": map[string]any{"name": "demo"},
			})
		}).
		Build()
	require.NoError(t, err)

	assert.Equal(t, "demo", app.Configuration().Get("app.name"))
	assert.Equal(t, "production", app.Environment().Name())
	assert.True(t, app.Environment().IsProduction())
	assert.NotNil(t, app.Services())
	assert.NotNil(t, app.Logger())
}

func TestConfigurationClassPipeline(t *testing.T) {
	app, err := core.NewApplicationBuilder().
		UseMetaRegistry(newGreeterRegistry()).
		AddConfiguration(&greeterConfig{}).
		Build()
	require.NoError(t, err)

	g, err := di.ResolveNamed[*greeter](app.Services(), "greeter")
	require.NoError(t, err)
	assert.Equal(t, "hello world", g.Greet("world"))
}

func TestConfigureServicesRegistersBeans(t *testing.T) {
	app, err := core.NewApplicationBuilder().
		ConfigureServices(func(s *core.ServiceCollection) {
			core.AddSingleton[*greeter](s,
				di.WithFactory(func() *greeter { return &greeter{Prefix: "hey"} }))
		}).
		Build()
	require.NoError(t, err)

	g, err := di.Resolve[*greeter](app.Services())
	require.NoError(t, err)
	assert.Equal(t, "hey", g.Prefix)
}

type dbSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func TestConfigureOptionsBindsSection(t *testing.T) {
	app, err := core.NewApplicationBuilder().
		ConfigureConfiguration(func(b *config.ConfigurationBuilder) {
			b.AddInMemory(map[string]any{
				"db": map[string]any{"host": "localhost", "port": 5432},
			})
		}).
		Configure(func(ctx *core.BuildContext) {
			core.ConfigureOptions[dbSettings](ctx, "db")
		}).
		Build()
	require.NoError(t, err)

	opt, err := di.Resolve[config.Option[dbSettings]](app.Services())
	require.NoError(t, err)
	assert.Equal(t, "localhost", opt.Value().Host)
	assert.Equal(t, 5432, opt.Value().Port)
}

func TestAddTaskRunsAndStops(t *testing.T) {
	started := make(chan struct{})

	app, err := core.NewApplicationBuilder().
		UseShutdownTimeout(2 * time.Second).
		AddTask(func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return nil
		}).
		Build()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- app.RunAsync(context.Background())
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not start")
	}

	require.NoError(t, app.Stop(context.Background()))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("application did not stop")
	}
}

func TestAddTimedTaskExecutesPeriodically(t *testing.T) {
	var runs atomic.Int32

	app, err := core.NewApplicationBuilder().
		UseShutdownTimeout(2 * time.Second).
		AddTimedTask("counter", 10*time.Millisecond, func(ctx context.Context) error {
			runs.Add(1)
			return nil
		}).
		Build()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- app.RunAsync(context.Background())
	}()

	assert.Eventually(t, func() bool {
		return runs.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, app.Stop(context.Background()))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("application did not stop")
	}
}

type namelessExtension struct{}

func (namelessExtension) Name() string { return "nameless" }

func TestAddExtensionRejectsEmptyExtension(t *testing.T) {
	assert.Panics(t, func() {
		core.NewApplicationBuilder().AddExtension(namelessExtension{})
	})
}

type wiringExtension struct{}

func (wiringExtension) Name() string { return "wiring" }

func (wiringExtension) ConfigureServices(s *core.ServiceCollection) {
	core.AddSingleton[*greeter](s,
		di.WithFactory(func() *greeter { return &greeter{Prefix: "ext"} }))
}

func TestAddExtensionWiresServices(t *testing.T) {
	app, err := core.NewApplicationBuilder().
		AddExtension(wiringExtension{}).
		Build()
	require.NoError(t, err)

	g, err := di.Resolve[*greeter](app.Services())
	require.NoError(t, err)
	assert.Equal(t, "ext", g.Prefix)
}
