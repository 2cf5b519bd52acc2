package mongodb

import (
	"github.com/gocrud/mgo"

	"github.com/gocrud/ioc/core"
	"github.com/gocrud/ioc/di"
	"github.com/gocrud/ioc/logging"
)

// Configure 返回 MongoDB 配置器
// 使用示例: builder.Configure(mongodb.Configure(func(b *mongodb.Builder) { ... }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder(ctx)
		if options != nil {
			options(builder)
		}

		factory, err := builder.Build(ctx.GetLogger())
		if err != nil {
			ctx.GetLogger().Fatal("Failed to build mongodb clients",
				logging.Field{Key: "error", Value: err.Error()})
			return
		}
		if factory == nil {
			return
		}

		container := ctx.Container()
		di.Register[*MongoFactory](container, di.WithValue(factory))

		// default 客户端标记为 Primary 供按类型解析
		factory.Each(func(name string, client *mgo.Client) {
			opts := []di.Option{di.WithName(name), di.WithValue(client)}
			if name == "default" {
				opts = append(opts, di.WithPrimary())
			}
			di.Register[*mgo.Client](container, opts...)
			ctx.GetLogger().Info("Mongo client registered to DI",
				logging.Field{Key: "name", Value: name})
		})

		ctx.SetCleanup("mongodb", func() {
			ctx.GetLogger().Info("Closing mongo clients")
			if err := factory.Close(); err != nil {
				ctx.GetLogger().Error("Failed to close mongo clients",
					logging.Field{Key: "error", Value: err.Error()})
			}
		})
	}
}
