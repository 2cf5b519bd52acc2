package database

import (
	"github.com/gocrud/ioc/core"
	"github.com/gocrud/ioc/di"
	"github.com/gocrud/ioc/logging"
	"gorm.io/gorm"
)

// Configure 返回数据库配置器
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		// 注入 Context
		builder := NewBuilder(ctx)
		if options != nil {
			options(builder)
		}

		factory, err := builder.Build(ctx.GetLogger())
		if err != nil {
			ctx.GetLogger().Fatal("Failed to build databases",
				logging.Field{Key: "error", Value: err.Error()})
			return
		}

		if factory != nil {
			// 注册工厂
			di.Register[*DatabaseFactory](ctx.Container(), di.WithValue(factory))

			// 注册所有实例，default 实例标记为 Primary 供按类型解析
			factory.Each(func(name string, db *gorm.DB) {
				opts := []di.Option{di.WithName(name), di.WithValue(db)}
				if name == "default" {
					opts = append(opts, di.WithPrimary())
				}
				di.Register[*gorm.DB](ctx.Container(), opts...)
				ctx.GetLogger().Info("Database client registered to DI", logging.Field{Key: "name", Value: name})
			})

			// 注册清理
			ctx.SetCleanup("database", func() {
				ctx.GetLogger().Info("Closing database connections")
				if err := factory.Close(); err != nil {
					ctx.GetLogger().Error("Failed to close databases",
						logging.Field{Key: "error", Value: err.Error()})
				}
			})
		}
	}
}
