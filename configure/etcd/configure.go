package etcd

import (
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/gocrud/ioc/core"
	"github.com/gocrud/ioc/di"
	"github.com/gocrud/ioc/logging"
)

// Configure 返回 Etcd 配置器
// 使用示例: builder.Configure(etcd.Configure(func(b *etcd.Builder) { ... }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder(ctx)
		if options != nil {
			options(builder)
		}

		factory, err := builder.Build(ctx.GetLogger())
		if err != nil {
			ctx.GetLogger().Fatal("Failed to build etcd clients",
				logging.Field{Key: "error", Value: err.Error()})
			return
		}
		if factory == nil {
			return
		}

		container := ctx.Container()
		di.Register[*EtcdClientFactory](container, di.WithValue(factory))

		// default 客户端标记为 Primary 供按类型解析
		factory.Each(func(name string, client *clientv3.Client) {
			opts := []di.Option{di.WithName(name), di.WithValue(client)}
			if name == "default" {
				opts = append(opts, di.WithPrimary())
			}
			di.Register[*clientv3.Client](container, opts...)
			ctx.GetLogger().Info("Etcd client registered to DI",
				logging.Field{Key: "name", Value: name})
		})

		ctx.SetCleanup("etcd", func() {
			ctx.GetLogger().Info("Closing etcd clients")
			if err := factory.Close(); err != nil {
				ctx.GetLogger().Error("Failed to close etcd clients",
					logging.Field{Key: "error", Value: err.Error()})
			}
		})
	}
}
