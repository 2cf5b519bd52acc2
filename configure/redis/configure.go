package redis

import (
	"github.com/gocrud/ioc/core"
	"github.com/gocrud/ioc/di"
	"github.com/gocrud/ioc/logging"
)

// Configure 返回 Redis 配置器，显式注册多个命名客户端
// 使用示例: builder.Configure(redis.Configure(func(b *Builder) { b.AddClient("default", nil) }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder()
		if options != nil {
			options(builder)
		}

		factory, err := builder.Build(ctx.GetLogger())
		if err != nil {
			ctx.GetLogger().Fatal("Failed to build redis clients",
				logging.Field{Key: "error", Value: err.Error()})
			return
		}
		if factory == nil {
			return
		}

		container := ctx.Container()
		if err := di.RegisterInstance(container, "redisClientFactory", factory); err != nil {
			ctx.GetLogger().Fatal("Failed to register redis client factory",
				logging.Field{Key: "error", Value: err.Error()})
			return
		}

		// 默认客户端单独可按类型注入
		if defaultClient, err := factory.Get("default"); err == nil {
			if err := di.RegisterInstance(container, "redisClient", defaultClient); err != nil {
				ctx.GetLogger().Error("Failed to register default redis client",
					logging.Field{Key: "error", Value: err.Error()})
			}
		}

		ctx.SetCleanup("redis", func() {
			ctx.GetLogger().Info("Closing redis clients")
			if err := factory.Close(); err != nil {
				ctx.GetLogger().Error("Failed to close redis clients",
					logging.Field{Key: "error", Value: err.Error()})
			}
		})
	}
}
