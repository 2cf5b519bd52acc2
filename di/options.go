package di

import "github.com/gocrud/ioc/injection"

// Option 配置服务注册。
type Option func(*ServiceDefinition)

// WithScope 设置服务的生命周期范围。
func WithScope(scope ScopeType) Option {
	return func(s *ServiceDefinition) {
		s.Scope = scope
	}
}

// WithSingleton 将范围设置为 Singleton（默认）。
func WithSingleton() Option {
	return WithScope(ScopeSingleton)
}

// WithTransient 将范围设置为 Transient。
func WithTransient() Option {
	return WithScope(ScopeTransient)
}

// WithScoped 将范围设置为 Scoped。
func WithScoped() Option {
	return WithScope(ScopeScoped)
}

// WithValue 将具体的实例注册为单例。
func WithValue(v any) Option {
	return func(s *ServiceDefinition) {
		s.Value = v
		s.IsValue = true
		s.Scope = ScopeSingleton
	}
}

// WithFactory 注册一个工厂函数来创建实例，参数由容器注入。
func WithFactory(fn any) Option {
	return func(s *ServiceDefinition) {
		s.Factory = fn
	}
}

// WithConstructors 声明构造函数候选，由注入解析器裁决。
func WithConstructors(ctors ...injection.Constructor) Option {
	return func(s *ServiceDefinition) {
		s.Constructors = append(s.Constructors, ctors...)
	}
}

// WithName 设置 Bean 名。
func WithName(name string) Option {
	return func(s *ServiceDefinition) {
		s.Name = name
	}
}

// WithPrimary 标记为类型搜索的首选候选。
func WithPrimary() Option {
	return func(s *ServiceDefinition) {
		s.Primary = true
	}
}

// WithLazyInit 单例不随 Build 急切构造。
func WithLazyInit() Option {
	return func(s *ServiceDefinition) {
		s.LazyInit = true
	}
}

// WithInitMethod 设置初始化方法名。
func WithInitMethod(method string) Option {
	return func(s *ServiceDefinition) {
		s.InitMethod = method
	}
}

// WithDestroyMethod 设置销毁方法名。
func WithDestroyMethod(method string) Option {
	return func(s *ServiceDefinition) {
		s.DestroyMethod = method
	}
}

// WithDependsOn 声明显式前置 Bean。
func WithDependsOn(names ...string) Option {
	return func(s *ServiceDefinition) {
		s.DependsOn = append(s.DependsOn, names...)
	}
}

// WithoutInjection 跳过创建后的注入流水线。
func WithoutInjection() Option {
	return func(s *ServiceDefinition) {
		s.SkipInjection = true
	}
}

// Use 指定接口的实现类型。
func Use[T any]() Option {
	return func(s *ServiceDefinition) {
		s.ImplType = typeFor[T]()
	}
}
