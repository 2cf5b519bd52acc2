package di

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gocrud/ioc/injection"
)

// ScopeType 定义了服务的生命周期。
type ScopeType int

const (
	// ScopeSingleton 每个容器创建一个实例。
	ScopeSingleton ScopeType = iota
	// ScopeTransient 每次请求创建一个新实例。
	ScopeTransient
	// ScopeScoped 每个作用域创建一个实例。
	ScopeScoped
)

// ServiceKey 类型加名称的服务标识。
type ServiceKey struct {
	Type reflect.Type
	Name string
}

// DependencyRef 一条预计算的依赖引用（图构建与急切构造用）。
type DependencyRef struct {
	Type reflect.Type
	Name string
	// Optional 可选依赖不参与图校验
	Optional bool
}

// InjectionSchema 包含预计算的依赖元数据。
type InjectionSchema struct {
	// Args 工厂/构造函数参数的依赖引用
	Args []DependencyRef
	// Fields 结构体 autowired 字段的依赖引用
	Fields []DependencyRef
}

// ServiceDefinition 包含注册服务的元数据。
type ServiceDefinition struct {
	ID int
	// Name Bean 名，容器内唯一；空名在注册时按类型推导
	Name string
	// Type 对外暴露的服务类型
	Type reflect.Type
	// ImplType 结构体反射构造用的实现类型
	ImplType reflect.Type
	Scope    ScopeType
	// Primary 类型搜索多候选时的首选标记
	Primary bool
	// LazyInit 单例不随 Build 急切构造
	LazyInit bool

	// Factory 工厂函数；与 Constructors 二选一
	Factory any
	// Constructors 声明的构造函数候选，交由注入解析器裁决
	Constructors []injection.Constructor
	// Value 预初始化实例
	Value   any
	IsValue bool
	// SkipInjection 跳过创建后的注入流水线
	SkipInjection bool

	// InitMethod 实例就绪后调用的无参方法名
	InitMethod string
	// DestroyMethod 容器销毁时调用的无参方法名
	DestroyMethod string
	// DependsOn 显式前置 Bean
	DependsOn []string

	// Schema 构建期预计算的依赖图
	Schema *InjectionSchema

	// 单例槽位
	singletonInst any
	singletonErr  error
	singletonOnce sync.Once
}

// DefaultBeanName 按类型推导 Bean 名：类型基名首字母小写。
func DefaultBeanName(typ reflect.Type) string {
	for typ != nil && typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ == nil {
		return ""
	}
	name := typ.Name()
	if name == "" {
		name = typ.String()
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return ""
	}
	return strings.ToLower(name[:1]) + name[1:]
}
