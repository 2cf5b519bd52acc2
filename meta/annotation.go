package meta

import (
	"reflect"
)

// Annotation 纯数据的注解载体
// 框架本身不定义行为，注解只是被核心消费的结构化元数据
type Annotation struct {
	// Type 注解类型名（如 "Configuration"、"Bean"）
	Type string
	// Method 方法级注解的目标方法名；类型级注解为空
	Method string
	// Attributes 属性表
	Attributes map[string]any
}

// 内建注解类型名
const (
	TypeConfiguration  = "Configuration"
	TypeComponent      = "Component"
	TypeService        = "Service"
	TypeRepository     = "Repository"
	TypeController     = "Controller"
	TypeBean           = "Bean"
	TypeImport         = "Import"
	TypeImportResource = "ImportResource"
	TypeComponentScan  = "ComponentScan"
	TypePropertySource = "PropertySource"
	TypeConditional    = "Conditional"
	TypeMembers        = "Members"
	TypeAutowired      = "Autowired"
	TypeResource       = "Resource"
	TypeOrder          = "Order"
	TypePrimary        = "Primary"
	TypeLazy           = "Lazy"
	TypeDependsOn      = "DependsOn"
	TypeQualifier      = "Qualifier"
)

// AnnotationOption 注解属性选项
type AnnotationOption func(*Annotation)

// WithAttribute 设置任意属性
func WithAttribute(key string, value any) AnnotationOption {
	return func(a *Annotation) {
		a.Attributes[key] = value
	}
}

func newAnnotation(atype string, opts ...AnnotationOption) Annotation {
	a := Annotation{Type: atype, Attributes: make(map[string]any)}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

// Configuration 声明配置类
// 默认启用 Bean 方法拦截（同类内互调返回容器单例）
func Configuration(opts ...AnnotationOption) Annotation {
	a := newAnnotation(TypeConfiguration, opts...)
	if _, ok := a.Attributes["interceptMethods"]; !ok {
		a.Attributes["interceptMethods"] = true
	}
	return a
}

// WithoutInterception 关闭 Bean 方法拦截
func WithoutInterception() AnnotationOption {
	return WithAttribute("interceptMethods", false)
}

// Component 声明组件，value 为显式 Bean 名称（可空）
func Component(name string) Annotation {
	return newAnnotation(TypeComponent, WithAttribute("value", name))
}

// Service 业务服务构造型（元注解 Component）
func Service(name string) Annotation {
	return newAnnotation(TypeService, WithAttribute("value", name))
}

// Repository 数据访问构造型（元注解 Component）
func Repository(name string) Annotation {
	return newAnnotation(TypeRepository, WithAttribute("value", name))
}

// Controller 控制器构造型（元注解 Component）
func Controller(name string) Annotation {
	return newAnnotation(TypeController, WithAttribute("value", name))
}

// Bean 把配置类上的方法声明为 Bean 工厂方法
func Bean(method string, opts ...AnnotationOption) Annotation {
	a := newAnnotation(TypeBean, opts...)
	a.Method = method
	return a
}

// WithBeanName 显式指定 Bean 名称
func WithBeanName(name string) AnnotationOption {
	return WithAttribute("name", name)
}

// WithInitMethod 指定初始化方法名
func WithInitMethod(name string) AnnotationOption {
	return WithAttribute("initMethod", name)
}

// WithDestroyMethod 指定销毁方法名
func WithDestroyMethod(name string) AnnotationOption {
	return WithAttribute("destroyMethod", name)
}

// AsPrimary 标记产出的 Bean 为首选
func AsPrimary() AnnotationOption {
	return WithAttribute("primary", true)
}

// AsLazy 标记产出的 Bean 延迟初始化
func AsLazy() AnnotationOption {
	return WithAttribute("lazy", true)
}

// InScope 指定作用域名：singleton、transient 或 scoped
func InScope(scope string) AnnotationOption {
	return WithAttribute("scope", scope)
}

// AfterBeans 声明产出 Bean 的显式前置依赖
func AfterBeans(names ...string) AnnotationOption {
	return WithAttribute("dependsOn", names)
}

// Import 导入其他配置类、选择器或注册器
// target 接受 reflect.Type（配置类/选择器/注册器类型）或其实例
func Import(targets ...any) Annotation {
	return newAnnotation(TypeImport, WithAttribute("targets", targets))
}

// ImportResource 记录外部 Bean 清单资源位置，交由外部读取器解析
func ImportResource(location string, reader string) Annotation {
	return newAnnotation(TypeImportResource,
		WithAttribute("location", location),
		WithAttribute("reader", reader))
}

// ComponentScan 扫描命名组件目录
func ComponentScan(catalogs ...string) Annotation {
	return newAnnotation(TypeComponentScan, WithAttribute("catalogs", catalogs))
}

// PropertySource 声明属性源
func PropertySource(name string, location string, opts ...AnnotationOption) Annotation {
	return newAnnotation(TypePropertySource,
		append([]AnnotationOption{
			WithAttribute("name", name),
			WithAttribute("location", location),
		}, opts...)...)
}

// Optional 标记属性源缺失时静默跳过
func Optional() AnnotationOption {
	return WithAttribute("optional", true)
}

// Conditional 声明条件门控，参数为条件实例
func Conditional(conditions ...any) Annotation {
	return newAnnotation(TypeConditional, WithAttribute("conditions", conditions))
}

// ConditionalMethod 给方法声明条件门控
func ConditionalMethod(method string, conditions ...any) Annotation {
	a := newAnnotation(TypeConditional, WithAttribute("conditions", conditions))
	a.Method = method
	return a
}

// Members 声明成员（嵌套）配置类
func Members(targets ...any) Annotation {
	return newAnnotation(TypeMembers, WithAttribute("targets", targets))
}

// Autowired 把方法声明为注入点（setter 注入）
func Autowired(method string, opts ...AnnotationOption) Annotation {
	a := newAnnotation(TypeAutowired, opts...)
	a.Method = method
	if _, ok := a.Attributes["required"]; !ok {
		a.Attributes["required"] = true
	}
	return a
}

// NotRequired 标记注入点为非必需
func NotRequired() AnnotationOption {
	return WithAttribute("required", false)
}

// Resource 把方法声明为资源注入点
func Resource(method string, name string, opts ...AnnotationOption) Annotation {
	a := newAnnotation(TypeResource, opts...)
	a.Method = method
	a.Attributes["name"] = name
	return a
}

// WithGlobalName 指定全局名称，直接走命名服务查找
func WithGlobalName(name string) AnnotationOption {
	return WithAttribute("globalName", name)
}

// Order 声明排序提示，值越小越靠前
func Order(value int) Annotation {
	return newAnnotation(TypeOrder, WithAttribute("value", value))
}

// Primary 在多候选中标记首选 Bean
func Primary() Annotation {
	return newAnnotation(TypePrimary)
}

// Lazy 延迟初始化
func Lazy() Annotation {
	return newAnnotation(TypeLazy)
}

// DependsOn 声明显式依赖顺序
func DependsOn(names ...string) Annotation {
	return newAnnotation(TypeDependsOn, WithAttribute("names", names))
}

// Qualifier 按名称限定依赖候选
func Qualifier(name string) Annotation {
	return newAnnotation(TypeQualifier, WithAttribute("value", name))
}

// ---- 属性访问 ----

// String 取字符串属性
func (a Annotation) String(key string) string {
	if v, ok := a.Attributes[key].(string); ok {
		return v
	}
	return ""
}

// Bool 取布尔属性
func (a Annotation) Bool(key string) bool {
	if v, ok := a.Attributes[key].(bool); ok {
		return v
	}
	return false
}

// Int 取整数属性
func (a Annotation) Int(key string) int {
	if v, ok := a.Attributes[key].(int); ok {
		return v
	}
	return 0
}

// Strings 取字符串切片属性
func (a Annotation) Strings(key string) []string {
	if v, ok := a.Attributes[key].([]string); ok {
		return v
	}
	return nil
}

// Targets 取类型目标属性，实例会被归一化为其 reflect.Type
func (a Annotation) Targets(key string) []reflect.Type {
	raw, ok := a.Attributes[key].([]any)
	if !ok {
		return nil
	}
	out := make([]reflect.Type, 0, len(raw))
	for _, v := range raw {
		if t, ok := v.(reflect.Type); ok {
			out = append(out, t)
		} else if v != nil {
			out = append(out, reflect.TypeOf(v))
		}
	}
	return out
}

// Values 取任意切片属性
func (a Annotation) Values(key string) []any {
	if v, ok := a.Attributes[key].([]any); ok {
		return v
	}
	return nil
}

// TypeOf 泛型辅助函数，获取 T 的 reflect.Type
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
