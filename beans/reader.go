package beans

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/gocrud/ioc/config"
	"github.com/gocrud/ioc/di"
	"github.com/gocrud/ioc/injection"
	"github.com/gocrud/ioc/logging"
	"github.com/gocrud/ioc/meta"
	"github.com/gocrud/ioc/resolvable"
	"gopkg.in/yaml.v3"
)

// BeanRegistry Bean 定义的写入面，由 di 容器实现
type BeanRegistry interface {
	Add(def *di.ServiceDefinition) error
	Contains(name string) bool
}

// ResourceReader 把外部 Bean 清单物化为定义
type ResourceReader interface {
	Read(location string, registry BeanRegistry) error
}

// Reader 把解析出的配置类物化为容器内的 Bean 定义
type Reader struct {
	container   di.Container
	environment *config.Environment
	registry    *meta.Registry
	evaluator   *ConditionEvaluator
	logger      logging.Logger
	readers     map[string]ResourceReader

	// skipped 物化阶段条件判定缓存，类名 -> 是否跳过
	skipped map[string]bool
}

// ReaderOption 读取器选项
type ReaderOption func(*Reader)

// WithReaderRegistry 指定注解注册表
func WithReaderRegistry(r *meta.Registry) ReaderOption {
	return func(rd *Reader) { rd.registry = r }
}

// WithReaderLogger 指定日志器
func WithReaderLogger(l logging.Logger) ReaderOption {
	return func(rd *Reader) { rd.logger = l }
}

// WithResourceReader 登记命名资源读取器
func WithResourceReader(name string, reader ResourceReader) ReaderOption {
	return func(rd *Reader) { rd.readers[name] = reader }
}

// NewReader 创建配置类读取器，YAML 清单读取器默认就位
func NewReader(container di.Container, env *config.Environment, opts ...ReaderOption) *Reader {
	rd := &Reader{
		container:   container,
		environment: env,
		registry:    meta.Default(),
		logger:      logging.NewLogger(),
		readers:     make(map[string]ResourceReader),
		skipped:     make(map[string]bool),
	}
	rd.readers["yaml"] = &YamlBeanReader{Types: resolvable.DefaultRegistry(), Loader: fileResourceLoader{}}
	for _, opt := range opts {
		opt(rd)
	}
	rd.evaluator = NewConditionEvaluator(env, container)
	return rd
}

// Register 物化全部配置类：类自身、扫描组件、Bean 方法、注册器与导入资源
func (rd *Reader) Register(classes []*ConfigurationClass) error {
	for _, cc := range classes {
		if rd.shouldSkip(cc) {
			rd.logger.Debug("configuration class skipped by condition",
				logging.Field{Key: "class", Value: cc.ClassName()})
			continue
		}
		if err := rd.registerClass(cc); err != nil {
			return err
		}
	}
	return nil
}

// shouldSkip 物化阶段求值类上的条件
// 纯导入类的导入方全被跳过时，它也跟着跳过
func (rd *Reader) shouldSkip(cc *ConfigurationClass) bool {
	className := cc.ClassName()
	if cached, ok := rd.skipped[className]; ok {
		return cached
	}
	// 先占位断环，导入环不影响判定
	rd.skipped[className] = false

	skip := rd.evaluator.ShouldSkip(cc.Metadata(), PhaseRegisterBean)
	if !skip && cc.IsImported() {
		allSkipped := true
		for _, importer := range cc.ImportedBy() {
			if !rd.shouldSkip(importer) {
				allSkipped = false
				break
			}
		}
		skip = allSkipped
	}
	rd.skipped[className] = skip
	return skip
}

func (rd *Reader) registerClass(cc *ConfigurationClass) error {
	configBeanName, err := rd.registerClassBean(cc)
	if err != nil {
		return err
	}

	for _, comp := range cc.ScannedComponents() {
		if err := rd.registerScannedComponent(comp.Name, comp.Type); err != nil {
			return err
		}
	}

	for _, m := range cc.BeanMethods() {
		if cc.MethodSkipped(m.Name) {
			continue
		}
		if rd.evaluator.ShouldSkipMethod(cc.Metadata(), m.Name, PhaseRegisterBean) {
			continue
		}
		if err := rd.registerBeanMethod(configBeanName, cc, m); err != nil {
			return err
		}
	}

	for _, entry := range cc.registrars {
		entry.registrar.RegisterBeans(entry.importing, rd.container)
	}

	for _, res := range cc.ImportedResources() {
		reader := rd.readerFor(res)
		if reader == nil {
			return fmt.Errorf("beans: no resource reader for '%s'", res.Location)
		}
		if err := reader.Read(res.Location, rd.container); err != nil {
			return fmt.Errorf("beans: failed to read resource '%s': %w", res.Location, err)
		}
	}
	return nil
}

// registerClassBean 把配置类自身注册为 Bean，返回其 Bean 名
func (rd *Reader) registerClassBean(cc *ConfigurationClass) (string, error) {
	typ := beanServiceType(cc.Type())
	name := cc.BeanName()
	if name == "" {
		name = di.DefaultBeanName(typ)
	}
	if rd.container.Contains(name) {
		return name, nil
	}

	def := &di.ServiceDefinition{
		Name:     name,
		Type:     typ,
		ImplType: typ,
		Scope:    di.ScopeSingleton,
	}
	applyTypeAnnotations(def, cc.Metadata())
	if err := rd.container.Add(def); err != nil {
		return "", err
	}
	return name, nil
}

func (rd *Reader) registerScannedComponent(name string, typ reflect.Type) error {
	md := rd.registry.MetadataFor(typ)
	if rd.evaluator.ShouldSkip(md, PhaseRegisterBean) {
		return nil
	}
	if name == "" {
		derived, err := stereotypeBeanName(md)
		if err != nil {
			return fmt.Errorf("beans: %s", err)
		}
		name = derived
	}
	if rd.container.Contains(name) {
		rd.logger.Debug("scanned component already registered",
			logging.Field{Key: "bean", Value: name})
		return nil
	}

	styp := beanServiceType(typ)
	def := &di.ServiceDefinition{
		Name:     name,
		Type:     styp,
		ImplType: styp,
		Scope:    di.ScopeSingleton,
	}
	applyTypeAnnotations(def, md)
	return rd.container.Add(def)
}

func (rd *Reader) registerBeanMethod(configBeanName string, cc *ConfigurationClass, m *BeanMethod) error {
	mt, ok := methodOn(cc.Type(), m.Name)
	if !ok {
		return fmt.Errorf("beans: bean method '%s' not found on %s", m.Name, cc.ClassName())
	}
	if mt.Type.NumOut() == 0 {
		return fmt.Errorf("beans: bean method '%s' on %s returns nothing", m.Name, cc.ClassName())
	}

	name := m.BeanName()
	if rd.container.Contains(name) {
		rd.logger.Debug("bean method target already registered",
			logging.Field{Key: "bean", Value: name})
		return nil
	}

	ann := m.Annotation
	def := &di.ServiceDefinition{
		Name:          name,
		Type:          mt.Type.Out(0),
		Scope:         scopeFromName(ann.String("scope")),
		Primary:       ann.Bool("primary"),
		LazyInit:      ann.Bool("lazy"),
		InitMethod:    ann.String("initMethod"),
		DestroyMethod: ann.String("destroyMethod"),
		DependsOn:     append([]string{configBeanName}, ann.Strings("dependsOn")...),
		Factory:       rd.beanMethodFactory(configBeanName, name, cc, m),
	}
	return rd.container.Add(def)
}

var (
	errType          = reflect.TypeOf((*error)(nil)).Elem()
	diContainerType  = reflect.TypeOf((*di.Container)(nil)).Elem()
	environmentPtrTy = reflect.TypeOf((*config.Environment)(nil))
)

// beanMethodFactory 把 Bean 方法包装为绑定宿主实例的工厂
// 方法参数按依赖解析；容器与环境参数直接喂入
func (rd *Reader) beanMethodFactory(configBeanName, beanName string, cc *ConfigurationClass, m *BeanMethod) any {
	className := cc.ClassName()
	methodName := m.Name
	declarer := m.DeclaringType

	return func(c di.Container) (any, error) {
		host, err := c.GetNamed(configBeanName)
		if err != nil {
			return nil, fmt.Errorf("beans: configuration instance '%s' unavailable for bean method %s.%s: %w",
				configBeanName, className, methodName, err)
		}
		mv := reflect.ValueOf(host).MethodByName(methodName)
		if !mv.IsValid() {
			return nil, fmt.Errorf("beans: bean method '%s' not found on instance of %s", methodName, className)
		}

		ft := mv.Type()
		args := make([]reflect.Value, ft.NumIn())
		for i := range args {
			pt := ft.In(i)
			switch {
			case pt == diContainerType:
				args[i] = reflect.ValueOf(c)
			case rd.environment != nil && pt == environmentPtrTy:
				args[i] = reflect.ValueOf(rd.environment)
			default:
				point := fmt.Sprintf("%s.%s arg %d", className, methodName, i)
				val, matched, rerr := c.ResolveDependency(injection.Descriptor{
					Type:     pt,
					Required: true,
					Point:    point,
					Declarer: declarer,
				}, beanName)
				if rerr != nil {
					return nil, &injection.UnsatisfiedDependencyError{BeanName: beanName, Point: point, Err: rerr}
				}
				if matched != "" {
					c.RegisterDependentBean(matched, beanName)
				}
				args[i] = reflect.ValueOf(val)
			}
		}

		results := mv.Call(args)
		if n := len(results); n > 1 && results[n-1].Type() == errType {
			if e, _ := results[n-1].Interface().(error); e != nil {
				return nil, e
			}
		}
		return results[0].Interface(), nil
	}
}

func (rd *Reader) readerFor(res ResourceEntry) ResourceReader {
	if res.Reader != "" {
		return rd.readers[res.Reader]
	}
	switch strings.ToLower(filepath.Ext(res.Location)) {
	case ".yaml", ".yml":
		return rd.readers["yaml"]
	}
	return nil
}

// applyTypeAnnotations 把类型级生命周期注解搬到定义上
func applyTypeAnnotations(def *di.ServiceDefinition, md meta.TypeMetadata) {
	if md.HasAnnotation(meta.TypePrimary) {
		def.Primary = true
	}
	if md.HasAnnotation(meta.TypeLazy) {
		def.LazyInit = true
	}
	if ann, ok := md.Get(meta.TypeDependsOn); ok {
		def.DependsOn = append(def.DependsOn, ann.Strings("names")...)
	}
}

// beanServiceType 结构体按指针注册，Bean 是引用语义
func beanServiceType(typ reflect.Type) reflect.Type {
	if typ != nil && typ.Kind() == reflect.Struct {
		return reflect.PointerTo(typ)
	}
	return typ
}

func scopeFromName(name string) di.ScopeType {
	switch strings.ToLower(name) {
	case "transient":
		return di.ScopeTransient
	case "scoped":
		return di.ScopeScoped
	default:
		return di.ScopeSingleton
	}
}

// YamlBeanReader 读取 YAML Bean 清单
// 清单里的类型名经 resolvable 类型注册表解析
type YamlBeanReader struct {
	Types  *resolvable.TypeRegistry
	Loader ResourceLoader
}

type beanManifest struct {
	Beans []beanManifestEntry `yaml:"beans"`
}

type beanManifestEntry struct {
	Name          string   `yaml:"name"`
	Type          string   `yaml:"type"`
	Scope         string   `yaml:"scope"`
	Primary       bool     `yaml:"primary"`
	Lazy          bool     `yaml:"lazy"`
	InitMethod    string   `yaml:"initMethod"`
	DestroyMethod string   `yaml:"destroyMethod"`
	DependsOn     []string `yaml:"dependsOn"`
}

func (r *YamlBeanReader) Read(location string, registry BeanRegistry) error {
	loader := r.Loader
	if loader == nil {
		loader = fileResourceLoader{}
	}
	data, err := loader.Load(location)
	if err != nil {
		return err
	}

	var manifest beanManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("invalid bean manifest: %w", err)
	}

	types := r.Types
	if types == nil {
		types = resolvable.DefaultRegistry()
	}

	for _, entry := range manifest.Beans {
		typ := types.Lookup(entry.Type)
		if typ == nil {
			return fmt.Errorf("unknown bean type '%s'", entry.Type)
		}
		styp := beanServiceType(typ)
		name := entry.Name
		if name == "" {
			name = di.DefaultBeanName(styp)
		}
		if registry.Contains(name) {
			continue
		}
		def := &di.ServiceDefinition{
			Name:          name,
			Type:          styp,
			ImplType:      styp,
			Scope:         scopeFromName(entry.Scope),
			Primary:       entry.Primary,
			LazyInit:      entry.Lazy,
			InitMethod:    entry.InitMethod,
			DestroyMethod: entry.DestroyMethod,
			DependsOn:     entry.DependsOn,
		}
		if err := registry.Add(def); err != nil {
			return err
		}
	}
	return nil
}
