package core

import (
	"github.com/gocrud/ioc/di"
)

// AddSingleton 注册单例服务
// 使用示例: core.AddSingleton[*UserService](services)
func AddSingleton[T any](s *ServiceCollection, opts ...di.Option) *ServiceCollection {
	di.Register[T](s.container, opts...)
	return s
}

// AddTransient 注册瞬态服务，每次解析都创建新实例
func AddTransient[T any](s *ServiceCollection, opts ...di.Option) *ServiceCollection {
	di.Register[T](s.container, append(opts, di.WithTransient())...)
	return s
}

// AddScoped 注册作用域服务，每个作用域一个实例
func AddScoped[T any](s *ServiceCollection, opts ...di.Option) *ServiceCollection {
	di.Register[T](s.container, append(opts, di.WithScoped())...)
	return s
}

// AddSingletonFactory 通过工厂函数注册单例服务
func AddSingletonFactory[T any](s *ServiceCollection, factory any, opts ...di.Option) *ServiceCollection {
	di.Register[T](s.container, append(opts, di.WithFactory(factory))...)
	return s
}

// AddValue 注册已构建的实例为具名单例
func AddValue(s *ServiceCollection, name string, instance any, opts ...di.Option) *ServiceCollection {
	if err := di.RegisterInstance(s.container, name, instance, opts...); err != nil {
		panic(err)
	}
	return s
}
