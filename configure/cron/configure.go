package cron

import (
	"github.com/gocrud/ioc/core"
	"github.com/gocrud/ioc/di"
	"github.com/gocrud/ioc/logging"
)

// Configure 返回 Cron 配置器
// 使用示例: builder.Configure(cron.Configure(func(b *cron.Builder) { ... }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder()
		if options != nil {
			options(builder)
		}

		scheduler, err := builder.build(ctx.Container(), ctx.GetLogger())
		if err != nil {
			ctx.GetLogger().Fatal("Failed to build cron scheduler",
				logging.Field{Key: "error", Value: err.Error()})
			return
		}

		// 调度器既是托管服务也可按名注入，供运行期追加任务
		if err := di.RegisterInstance(ctx.Container(), "cronScheduler", scheduler); err != nil {
			ctx.GetLogger().Warn("Failed to register cron scheduler bean",
				logging.Field{Key: "error", Value: err.Error()})
		}
		ctx.AddHostedService(scheduler)

		ctx.GetLogger().Info("Cron scheduler configured")
	}
}
