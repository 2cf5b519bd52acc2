package redis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goredis "github.com/redis/go-redis/v9"

	"github.com/gocrud/ioc/config"
	"github.com/gocrud/ioc/configure/redis"
	"github.com/gocrud/ioc/core"
	"github.com/gocrud/ioc/di"
	"github.com/gocrud/ioc/logging"
	"github.com/gocrud/ioc/meta"
)

func TestBuilderRejectsInvalidOptions(t *testing.T) {
	builder := redis.NewBuilder()
	builder.AddClient("invalid", func(o *redis.RedisClientOptions) {
		o.Addr = ""
	})

	_, err := builder.Build(logging.NewLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address is required")
}

func TestFactoryRegisterAndGet(t *testing.T) {
	factory := redis.NewRedisClientFactory()

	opts := *redis.NewDefaultOptions("cache")
	opts.LazyConnect = true
	require.NoError(t, factory.Register(opts))

	client, err := factory.Get("cache")
	require.NoError(t, err)
	assert.NotNil(t, client)

	err = factory.Register(opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	assert.ElementsMatch(t, []string{"cache"}, factory.Names())

	seen := map[string]bool{}
	factory.Each(func(name string, c *goredis.Client) { seen[name] = c != nil })
	assert.Equal(t, map[string]bool{"cache": true}, seen)

	_, err = factory.Get("missing")
	assert.Error(t, err)

	require.NoError(t, factory.Close())
	assert.Empty(t, factory.Names())
}

func TestConfigureRegistersFactoryAndDefaultClient(t *testing.T) {
	app, err := core.NewApplicationBuilder().
		Configure(redis.Configure(func(b *redis.Builder) {
			b.AddClient("default", func(o *redis.RedisClientOptions) {
				o.LazyConnect = true
			})
		})).
		Build()
	require.NoError(t, err)

	factory, err := di.Resolve[*redis.RedisClientFactory](app.Services())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"default"}, factory.Names())

	client, err := di.Resolve[*goredis.Client](app.Services())
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestBuilderPropagatesFactoryErrors(t *testing.T) {
	logger := logging.NewLogger()
	builder := redis.NewBuilder()

	builder.AddClient("duplicate", func(o *redis.RedisClientOptions) {
		o.LazyConnect = true
	})
	builder.AddClient("duplicate", func(o *redis.RedisClientOptions) {
		o.LazyConnect = true
	})

	_, err := builder.Build(logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

type redisAppConfig struct{}

func init() {
	meta.RegisterFor[redisAppConfig](meta.Default(),
		meta.Configuration(),
		meta.Import(redis.AutoConfigurationType()))
}

func TestAutoConfigurationProvidesClient(t *testing.T) {
	app, err := core.NewApplicationBuilder().
		ConfigureConfiguration(func(b *config.ConfigurationBuilder) {
			b.AddInMemory(map[string]any{
				"redis": map[string]any{"addr": "localhost:6379", "db": 2},
			})
		}).
		AddConfiguration(&redisAppConfig{}).
		Build()
	require.NoError(t, err)

	client, err := di.ResolveNamed[*goredis.Client](app.Services(), "redisClient")
	require.NoError(t, err)
	assert.Equal(t, 2, client.Options().DB)
}

func TestAutoConfigurationSkippedWithoutProperty(t *testing.T) {
	app, err := core.NewApplicationBuilder().
		AddConfiguration(&redisAppConfig{}).
		Build()
	require.NoError(t, err)

	assert.False(t, app.Services().Contains("redisClient"))
}
