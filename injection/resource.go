package injection

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/gocrud/ioc/logging"
	"github.com/gocrud/ioc/meta"
)

// NamingService 命名服务协作者（JNDI 的 Go 对应物）
// 显式全局名的资源查找完全绕开依赖容器，直接走这里
type NamingService interface {
	// Lookup 按全局名称查找资源
	Lookup(ctx context.Context, name string) (any, error)
}

// ResourceResolver 资源注入解析器
// 解析 resource 标签字段与 Resource 注解方法
//
// 解析次序：
//  1. 显式全局名 -> 命名服务（绕开容器）
//  2. 显式名称 -> 容器按名精确查找（不做类型回退）
//  3. 缺省名称且无同名 Bean -> 按类型回退
type ResourceResolver struct {
	registry *meta.Registry
	logger   logging.Logger
	naming   NamingService
	cache    *MetadataCache
	// lookupTimeout 命名服务查找的超时上限
	lookupTimeout time.Duration
}

// NewResourceResolver 创建解析器；naming 可为 nil（禁用全局名查找）
func NewResourceResolver(registry *meta.Registry, logger logging.Logger, naming NamingService) *ResourceResolver {
	if registry == nil {
		registry = meta.Default()
	}
	return &ResourceResolver{
		registry:      registry,
		logger:        logger,
		naming:        naming,
		cache:         NewMetadataCache(),
		lookupTimeout: 5 * time.Second,
	}
}

// Metadata 取目标类型的资源注入元数据
func (r *ResourceResolver) Metadata(beanName string, typ reflect.Type) *Metadata {
	cacheKey := beanName
	if cacheKey == "" {
		cacheKey = meta.ClassName(typ)
	}
	return r.cache.Get(cacheKey, typ, func() *Metadata {
		return NewMetadata(typ, r.collect(deref(typ), nil))
	})
}

// InjectInto 便捷入口
func (r *ResourceResolver) InjectInto(target any, beanName string, resolver DependencyResolver) error {
	typ := reflect.TypeOf(target)
	return r.Metadata(beanName, typ).Inject(target, beanName, resolver)
}

// Invalidate 定向失效
func (r *ResourceResolver) Invalidate(beanName string) {
	r.cache.Invalidate(beanName)
}

func (r *ResourceResolver) collect(st reflect.Type, path []int) []Element {
	if st == nil || st.Kind() != reflect.Struct {
		return nil
	}

	var out []Element

	// 内嵌链在前
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			out = append(out, r.collect(f.Type, appendPath(path, i))...)
		}
	}

	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		tag, ok := f.Tag.Lookup("resource")
		if !ok {
			continue
		}
		el := parseResourceTag(tag)
		el.resolver = r
		el.owner = st
		el.field = f
		el.path = appendPath(path, i)
		if el.name == "" {
			// 缺省名：字段名首字母小写
			el.name = defaultName(f.Name)
			el.defaulted = true
		}
		out = append(out, el)
	}

	md := r.registry.MetadataFor(st)
	for _, ann := range md.MethodAnnotations(meta.TypeResource) {
		name := ann.String("name")
		el := &resourceMethodElement{
			resolver:   r,
			owner:      st,
			method:     ann.Method,
			name:       name,
			globalName: ann.String("globalName"),
		}
		if el.name == "" {
			// Setter 缺省名：去掉 Set 前缀后首字母小写
			el.name = defaultName(strings.TrimPrefix(ann.Method, "Set"))
			el.defaulted = true
		}
		out = append(out, el)
	}

	return out
}

// parseResourceTag 解析 "name,lazy,global=jdbc/primary" 形式的标签
func parseResourceTag(tag string) *resourceFieldElement {
	el := &resourceFieldElement{}
	parts := strings.Split(tag, ",")
	el.name = strings.TrimSpace(parts[0])
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		switch {
		case part == "lazy":
			el.lazy = true
		case strings.HasPrefix(part, "global="):
			el.globalName = strings.TrimPrefix(part, "global=")
		}
	}
	return el
}

func defaultName(field string) string {
	if field == "" {
		return ""
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// resolveResource 执行三段式资源解析
func (r *ResourceResolver) resolveResource(name string, defaulted bool, globalName string,
	targetType reflect.Type, point string, beanName string, dep DependencyResolver) (any, string, error) {

	// 1. 显式全局名：命名服务优先，完全绕开容器
	if globalName != "" {
		if r.naming == nil {
			return nil, "", fmt.Errorf("injection: resource %s declares global name %q but no naming service is configured", point, globalName)
		}
		ctx, cancel := context.WithTimeout(context.Background(), r.lookupTimeout)
		defer cancel()
		v, err := r.naming.Lookup(ctx, globalName)
		if err != nil {
			return nil, "", fmt.Errorf("injection: lookup of global resource %q failed: %w", globalName, err)
		}
		return v, "", nil
	}

	// 2. 按名精确查找
	byName := Descriptor{
		Type:      targetType,
		Required:  true,
		Qualifier: name,
		BeanName:  name,
		Point:     point,
		Declarer:  targetType,
	}
	v, matched, err := dep.ResolveDependency(byName, beanName)
	if err == nil {
		return v, matched, nil
	}

	// 3. 缺省名才允许类型回退；显式名查不到就是查不到
	if defaulted && errors.Is(err, ErrNoSuchBean) {
		byType := Descriptor{Type: targetType, Required: true, Point: point}
		return dep.ResolveDependency(byType, beanName)
	}
	return nil, "", err
}

// resourceFieldElement 字段资源注入元素
type resourceFieldElement struct {
	resolver   *ResourceResolver
	owner      reflect.Type
	field      reflect.StructField
	path       []int
	name       string
	defaulted  bool
	globalName string
	lazy       bool
}

func (e *resourceFieldElement) Point() string {
	return fmt.Sprintf("%s.%s", meta.ClassName(e.owner), e.field.Name)
}

var lazyBinderType = reflect.TypeOf((*lazyBinder)(nil)).Elem()

func (e *resourceFieldElement) Inject(target reflect.Value, beanName string, dep DependencyResolver) error {
	if e.field.PkgPath != "" {
		return fmt.Errorf("injection: cannot inject unexported field %s", e.Point())
	}

	fv := target
	if fv.Kind() == reflect.Ptr {
		fv = fv.Elem()
	}
	fv = fv.FieldByIndex(e.path)

	// 延迟持有器：注入一个挂好解析闭包的 Lazy 实例
	if e.lazy || (e.field.Type.Kind() == reflect.Ptr && e.field.Type.Implements(lazyBinderType)) {
		if e.field.Type.Kind() != reflect.Ptr || !e.field.Type.Implements(lazyBinderType) {
			return fmt.Errorf("injection: lazy resource field %s must be of type *injection.Lazy[T]", e.Point())
		}
		holder := reflect.New(e.field.Type.Elem())
		binder := holder.Interface().(lazyBinder)
		elemType := e.field.Type.Elem()
		// Lazy[T] 的 T 是首个字段以外的泛型槽位，取目标类型用声明的 T
		targetType := lazyTargetType(elemType)
		binder.bind(func() (any, error) {
			v, _, err := e.resolver.resolveResource(e.name, e.defaulted, e.globalName, targetType, e.Point(), beanName, dep)
			return v, err
		})
		fv.Set(holder)
		return nil
	}

	v, matched, err := e.resolver.resolveResource(e.name, e.defaulted, e.globalName, e.field.Type, e.Point(), beanName, dep)
	if err != nil {
		return &UnsatisfiedDependencyError{BeanName: beanName, Point: e.Point(), Err: err}
	}
	if matched != "" {
		dep.RegisterDependentBean(matched, beanName)
	}
	fv.Set(reflect.ValueOf(v))
	return nil
}

// lazyTargetType 从 Lazy[T] 实例类型提取 T
func lazyTargetType(lazyType reflect.Type) reflect.Type {
	if f, ok := lazyType.FieldByName("val"); ok {
		return f.Type
	}
	return nil
}

// resourceMethodElement 方法资源注入元素（setter）
type resourceMethodElement struct {
	resolver   *ResourceResolver
	owner      reflect.Type
	method     string
	name       string
	defaulted  bool
	globalName string
}

func (e *resourceMethodElement) Point() string {
	return fmt.Sprintf("%s.%s()", meta.ClassName(e.owner), e.method)
}

func (e *resourceMethodElement) Inject(target reflect.Value, beanName string, dep DependencyResolver) error {
	m := target.MethodByName(e.method)
	if !m.IsValid() {
		return fmt.Errorf("injection: resource method %s not found on target", e.Point())
	}
	mt := m.Type()
	if mt.NumIn() != 1 {
		return fmt.Errorf("injection: resource method %s must take exactly one parameter", e.Point())
	}

	v, matched, err := e.resolver.resolveResource(e.name, e.defaulted, e.globalName, mt.In(0), e.Point(), beanName, dep)
	if err != nil {
		return &UnsatisfiedDependencyError{BeanName: beanName, Point: e.Point(), Err: err}
	}
	if matched != "" {
		dep.RegisterDependentBean(matched, beanName)
	}
	m.Call([]reflect.Value{reflect.ValueOf(v)})
	return nil
}
