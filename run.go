package app

import (
	"context"

	"github.com/gocrud/ioc/core"
)

// NewApplicationBuilder 创建应用程序构建器
func NewApplicationBuilder() *core.ApplicationBuilder {
	return core.NewApplicationBuilder()
}

// Run 构建并运行应用程序，阻塞直到收到退出信号
// 这是最简入口，细粒度控制请直接使用 ApplicationBuilder
func Run(configure func(builder *core.ApplicationBuilder)) error {
	builder := core.NewApplicationBuilder()
	if configure != nil {
		configure(builder)
	}

	application, err := builder.Build()
	if err != nil {
		return err
	}
	return application.Run()
}

// RunContext 同 Run，但由调用方控制生命周期上下文
func RunContext(ctx context.Context, configure func(builder *core.ApplicationBuilder)) error {
	builder := core.NewApplicationBuilder()
	if configure != nil {
		configure(builder)
	}

	application, err := builder.Build()
	if err != nil {
		return err
	}
	return application.RunAsync(ctx)
}
