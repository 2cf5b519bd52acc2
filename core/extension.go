package core

import "fmt"

// Extension 应用程序扩展的基础接口
// 扩展至少要实现 ServiceConfigurator 或 AppConfigurator 之一
type Extension interface {
	// Name 扩展名称，用于日志与错误定位
	Name() string
}

// ServiceConfigurator 在 ConfigureServices 阶段向容器注册服务
type ServiceConfigurator interface {
	ConfigureServices(services *ServiceCollection)
}

// AppConfigurator 在 Configure 阶段操作构建上下文
// 适合注册 Options、托管服务等
type AppConfigurator interface {
	ConfigureBuilder(ctx *BuildContext)
}

// validateExtension 校验扩展实现了至少一个装配接口，否则 panic
// 方法签名不匹配是最常见的原因
func validateExtension(ext Extension) {
	if _, ok := ext.(ServiceConfigurator); ok {
		return
	}
	if _, ok := ext.(AppConfigurator); ok {
		return
	}
	panic(fmt.Sprintf("core: extension '%s' implements neither ServiceConfigurator nor AppConfigurator", ext.Name()))
}
