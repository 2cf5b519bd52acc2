package core

import (
	"github.com/gocrud/ioc/config"
	"github.com/gocrud/ioc/logging"
)

// ConfigurationContext 配置阶段的受限只读能力
type ConfigurationContext interface {
	GetConfiguration() config.Configuration
	GetEnvironment() Environment
	GetLogger() logging.Logger
}

// BaseBuilder 模块构建器的公共底座，持有构建上下文
// 各 configure 子包的 Builder 嵌入它获得配置与日志访问能力
type BaseBuilder struct {
	ctx *BuildContext
}

// NewBaseBuilder 创建基础构建器，ctx 允许为 nil（纯手工装配场景）
func NewBaseBuilder(ctx *BuildContext) BaseBuilder {
	return BaseBuilder{ctx: ctx}
}

// ConfigContext 以受限接口暴露构建上下文
// 模块 Builder 只能读配置、环境和日志，不能改动容器
func (b *BaseBuilder) ConfigContext() ConfigurationContext {
	return b.ctx
}

// RegisterCleanup 注册模块的清理函数，同 key 覆盖
func (b *BaseBuilder) RegisterCleanup(key string, cleanup func()) {
	if b.ctx == nil {
		return
	}
	b.ctx.SetCleanup(key, cleanup)
}
