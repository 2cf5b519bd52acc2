package web

import (
	"github.com/gocrud/ioc/core"
	"github.com/gocrud/ioc/di"
	"github.com/gocrud/ioc/logging"
)

// Configure 返回 Web 配置器
// 使用示例: builder.Configure(web.Configure(func(b *web.Builder) { ... }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder(ctx.GetLogger())
		if options != nil {
			options(builder)
		}

		// 构建 Web Host
		// 传入 DI 容器，以便 Host 启动时能解析 Controller
		webHost := builder.Build(ctx.Container())

		// 注册到容器供按名解析，再加入托管服务列表
		if err := di.RegisterInstance(ctx.Container(), "webHost", webHost); err != nil {
			ctx.GetLogger().Warn("Web host already registered",
				logging.Field{Key: "error", Value: err.Error()})
		}
		ctx.AddHostedService(webHost)

		ctx.GetLogger().Info("Web host configured",
			logging.Field{Key: "port", Value: webHost.port})
	}
}
