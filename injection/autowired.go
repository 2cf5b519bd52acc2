package injection

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gocrud/ioc/logging"
	"github.com/gocrud/ioc/meta"
)

// AutowiredResolver 自动装配解析器
// 沿内嵌链扫描 autowired 标签字段与 Autowired 注解方法，
// 解析结果按 Bean 缓存，单候选命中后走名称绑定的快路径
type AutowiredResolver struct {
	registry *meta.Registry
	logger   logging.Logger
	cache    *MetadataCache
	ctors    *OnceCache[reflect.Type, ctorSelection]
}

// NewAutowiredResolver 创建解析器
func NewAutowiredResolver(registry *meta.Registry, logger logging.Logger) *AutowiredResolver {
	if registry == nil {
		registry = meta.Default()
	}
	return &AutowiredResolver{
		registry: registry,
		logger:   logger,
		cache:    NewMetadataCache(),
		ctors:    NewOnceCache[reflect.Type, ctorSelection](),
	}
}

// Metadata 取目标类型的注入元数据（缓存 + 类型身份过期检测）
func (r *AutowiredResolver) Metadata(beanName string, typ reflect.Type) *Metadata {
	cacheKey := beanName
	if cacheKey == "" {
		cacheKey = meta.ClassName(typ)
	}
	return r.cache.Get(cacheKey, typ, func() *Metadata {
		return NewMetadata(typ, r.collect(deref(typ), nil))
	})
}

// InjectInto 便捷入口：构建/取缓存元数据并执行注入
func (r *AutowiredResolver) InjectInto(target any, beanName string, resolver DependencyResolver) error {
	typ := reflect.TypeOf(target)
	return r.Metadata(beanName, typ).Inject(target, beanName, resolver)
}

// Invalidate 定向失效某个 Bean 的元数据（定义重置时）
func (r *AutowiredResolver) Invalidate(beanName string) {
	r.cache.Invalidate(beanName)
}

// collect 递归收集注入元素
// 内嵌层级（父类）元素在前；每层内字段先于方法
func (r *AutowiredResolver) collect(st reflect.Type, path []int) []Element {
	if st == nil || st.Kind() != reflect.Struct {
		return nil
	}

	var out []Element

	// 1. 内嵌链（父类优先）
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			out = append(out, r.collect(f.Type, appendPath(path, i))...)
		}
	}

	// 2. 本层字段
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		tag, ok := f.Tag.Lookup("autowired")
		if !ok {
			continue
		}
		qualifier, required := parseAutowiredTag(tag)
		out = append(out, &fieldElement{
			owner:     st,
			field:     f,
			path:      appendPath(path, i),
			qualifier: qualifier,
			required:  required,
		})
	}

	// 3. 本层方法（注解声明的 setter 注入）
	md := r.registry.MetadataFor(st)
	for _, ann := range md.MethodAnnotations(meta.TypeAutowired) {
		out = append(out, &methodElement{
			owner:    st,
			method:   ann.Method,
			required: ann.Bool("required"),
		})
	}

	return out
}

func appendPath(base []int, i int) []int {
	out := make([]int, len(base), len(base)+1)
	copy(out, base)
	return append(out, i)
}

// parseAutowiredTag 解析 "name,optional" 形式的标签
func parseAutowiredTag(tag string) (qualifier string, required bool) {
	required = true
	parts := strings.Split(tag, ",")
	qualifier = strings.TrimSpace(parts[0])
	if qualifier == "?" || qualifier == "optional" {
		qualifier = ""
		required = false
	}
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if part == "optional" || part == "?" {
			required = false
		}
	}
	return qualifier, required
}

// fieldElement 字段注入元素
type fieldElement struct {
	owner     reflect.Type
	field     reflect.StructField
	path      []int
	qualifier string
	required  bool

	// 快路径缓存：首次解析唯一命中后绑定 Bean 名
	mu     sync.Mutex
	cached bool
	bound  Descriptor
}

func (e *fieldElement) Point() string {
	return fmt.Sprintf("%s.%s", meta.ClassName(e.owner), e.field.Name)
}

func (e *fieldElement) descriptor() Descriptor {
	return Descriptor{
		Type:      e.field.Type,
		Required:  e.required,
		Qualifier: e.qualifier,
		Point:     e.Point(),
		Declarer:  e.owner,
	}
}

func (e *fieldElement) Inject(target reflect.Value, beanName string, resolver DependencyResolver) error {
	if e.field.PkgPath != "" {
		// 非导出字段无法反射赋值，属结构性错误
		return fmt.Errorf("injection: cannot inject unexported field %s", e.Point())
	}

	fv := target
	if fv.Kind() == reflect.Ptr {
		fv = fv.Elem()
	}
	fv = fv.FieldByIndex(e.path)

	// 快路径：名称绑定的描述符
	e.mu.Lock()
	cached, bound := e.cached, e.bound
	e.mu.Unlock()
	if cached {
		if v, _, err := resolver.ResolveDependency(bound, beanName); err == nil {
			fv.Set(reflect.ValueOf(v))
			return nil
		}
		// 容器不再匹配：清除快路径，回退慢路径自愈
		e.mu.Lock()
		e.cached = false
		e.mu.Unlock()
	}

	v, matched, err := resolver.ResolveDependency(e.descriptor(), beanName)
	if err != nil {
		if errors.Is(err, ErrNoSuchBean) && !e.required {
			return nil
		}
		return &UnsatisfiedDependencyError{BeanName: beanName, Point: e.Point(), Err: err}
	}

	if matched != "" {
		resolver.RegisterDependentBean(matched, beanName)
		// 唯一命中：缓存名称绑定的快路径描述符
		shortcut := e.descriptor()
		shortcut.BeanName = matched
		e.mu.Lock()
		e.bound = shortcut
		e.cached = true
		e.mu.Unlock()
	}

	fv.Set(reflect.ValueOf(v))
	return nil
}

// methodElement 方法注入元素（setter 注入）
// 多参数方法遵循全有或全无：任一可选参数缺失即放弃整个方法
type methodElement struct {
	owner    reflect.Type
	method   string
	required bool

	mu     sync.Mutex
	cached bool
	bound  []Descriptor
}

func (e *methodElement) Point() string {
	return fmt.Sprintf("%s.%s()", meta.ClassName(e.owner), e.method)
}

func (e *methodElement) Inject(target reflect.Value, beanName string, resolver DependencyResolver) error {
	m := target.MethodByName(e.method)
	if !m.IsValid() {
		return fmt.Errorf("injection: method %s not found on target", e.Point())
	}
	mt := m.Type()

	// 快路径：全部参数按名绑定
	e.mu.Lock()
	cached := e.cached
	bound := e.bound
	e.mu.Unlock()
	if cached {
		args, err := e.resolveArgs(bound, beanName, resolver)
		if err == nil {
			m.Call(args)
			return nil
		}
		e.mu.Lock()
		e.cached = false
		e.mu.Unlock()
	}

	descs := make([]Descriptor, mt.NumIn())
	for i := 0; i < mt.NumIn(); i++ {
		descs[i] = Descriptor{
			Type:     mt.In(i),
			Required: e.required,
			Point:    fmt.Sprintf("%s arg %d", e.Point(), i),
			Declarer: e.owner,
		}
	}

	args := make([]reflect.Value, mt.NumIn())
	shortcuts := make([]Descriptor, mt.NumIn())
	matchedNames := make([]string, 0, mt.NumIn())
	allShortcut := true
	for i, d := range descs {
		v, matched, err := resolver.ResolveDependency(d, beanName)
		if err != nil {
			if errors.Is(err, ErrNoSuchBean) && !e.required {
				// 任一可选参数缺失即整体跳过，且不留下依赖边
				return nil
			}
			return &UnsatisfiedDependencyError{BeanName: beanName, Point: d.Point, Err: err}
		}
		args[i] = reflect.ValueOf(v)
		if matched != "" {
			matchedNames = append(matchedNames, matched)
			shortcuts[i] = d
			shortcuts[i].BeanName = matched
		} else {
			allShortcut = false
		}
	}

	// 全部参数就绪后才登记依赖关系
	for _, matched := range matchedNames {
		resolver.RegisterDependentBean(matched, beanName)
	}

	if allShortcut && mt.NumIn() > 0 {
		e.mu.Lock()
		e.bound = shortcuts
		e.cached = true
		e.mu.Unlock()
	}

	m.Call(args)
	return nil
}

func (e *methodElement) resolveArgs(descs []Descriptor, beanName string, resolver DependencyResolver) ([]reflect.Value, error) {
	args := make([]reflect.Value, len(descs))
	for i, d := range descs {
		v, _, err := resolver.ResolveDependency(d, beanName)
		if err != nil {
			return nil, err
		}
		args[i] = reflect.ValueOf(v)
	}
	return args, nil
}

func deref(typ reflect.Type) reflect.Type {
	if typ != nil && typ.Kind() == reflect.Ptr {
		return typ.Elem()
	}
	return typ
}
