package di

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/gocrud/ioc/injection"
	"github.com/gocrud/ioc/logging"
	"github.com/gocrud/ioc/meta"
)

// BeanPostProcessor 实例创建后、初始化方法前的回调。
type BeanPostProcessor interface {
	PostProcess(instance any, beanName string) error
}

// Container 是依赖注入容器的接口。
// 同时作为注入解析器的协作方（injection.DependencyResolver）。
type Container interface {
	injection.DependencyResolver

	// Add 注册服务定义。
	Add(def *ServiceDefinition) error

	// Build 构建依赖图、校验循环并急切初始化非懒加载单例。
	Build() error

	// Get 按类型检索实例（唯一候选或 Primary 裁决）。
	Get(typ reflect.Type) (any, error)

	// GetNamed 按 Bean 名检索实例。
	GetNamed(name string) (any, error)

	// Contains 判断 Bean 名是否已注册。
	Contains(name string) bool

	// ContainsType 判断类型是否有候选定义。
	ContainsType(typ reflect.Type) bool

	// Definition 返回命名定义。
	Definition(name string) (*ServiceDefinition, bool)

	// DefinitionNames 按注册顺序返回全部 Bean 名。
	DefinitionNames() []string

	// CandidatesByType 返回类型的候选 Bean 名（注册顺序）。
	CandidatesByType(typ reflect.Type) []string

	// CreateScope 为作用域实例创建一个新作用域。
	CreateScope() Scope

	// Destroy 逆依赖序销毁单例并调用销毁方法。
	Destroy()

	// serviceCount 返回注册服务的总数（作用域槽位数组用）。
	serviceCount() int
}

// ContainerOption 配置容器。
type ContainerOption func(*container)

// WithRegistry 指定注解注册表。
func WithRegistry(reg *meta.Registry) ContainerOption {
	return func(c *container) { c.registry = reg }
}

// WithNaming 指定命名服务（资源注入的全局名查找）。
func WithNaming(naming injection.NamingService) ContainerOption {
	return func(c *container) { c.naming = naming }
}

// WithLogger 指定容器日志。
func WithLogger(logger logging.Logger) ContainerOption {
	return func(c *container) { c.logger = logger }
}

// WithPostProcessor 追加一个 Bean 后处理器。
func WithPostProcessor(pp BeanPostProcessor) ContainerOption {
	return func(c *container) { c.postProcessors = append(c.postProcessors, pp) }
}

type container struct {
	mu          sync.RWMutex
	definitions map[string]*ServiceDefinition
	// ordered 注册顺序，保证类型搜索与销毁的确定性
	ordered   []string
	typeIndex map[reflect.Type][]string

	built           atomic.Bool
	destroyed       atomic.Bool
	buildOrder      []string
	serviceCountVal int

	registry       *meta.Registry
	naming         injection.NamingService
	logger         logging.Logger
	autowired      *injection.AutowiredResolver
	resource       *injection.ResourceResolver
	postProcessors []BeanPostProcessor

	// dependents Bean 名 -> 依赖它的 Bean 名（销毁次序用）
	depMu      sync.Mutex
	dependents map[string][]string

	resolver *resolver
}

// NewContainer 创建一个新的空容器。
func NewContainer(opts ...ContainerOption) Container {
	c := &container{
		definitions: make(map[string]*ServiceDefinition),
		typeIndex:   make(map[reflect.Type][]string),
		dependents:  make(map[string][]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = meta.Default()
	}
	c.autowired = injection.NewAutowiredResolver(c.registry, c.logger)
	c.resource = injection.NewResourceResolver(c.registry, c.logger, c.naming)
	c.resolver = newResolver(c)
	return c
}

// Add 向容器添加服务定义。
func (c *container) Add(def *ServiceDefinition) error {
	if c.built.Load() {
		return fmt.Errorf("di: cannot register services after build")
	}
	if def.Type == nil {
		return fmt.Errorf("di: service definition requires a type")
	}
	if def.Name == "" {
		def.Name = DefaultBeanName(def.Type)
	}
	if def.Name == "" {
		return fmt.Errorf("di: cannot derive a bean name for %v", def.Type)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.definitions[def.Name]; exists {
		return fmt.Errorf("di: bean '%s' already registered", def.Name)
	}

	c.definitions[def.Name] = def
	c.ordered = append(c.ordered, def.Name)
	c.typeIndex[def.Type] = append(c.typeIndex[def.Type], def.Name)
	return nil
}

// Build 构建依赖图并急切初始化单例。
func (c *container) Build() error {
	if c.built.Load() {
		return nil
	}

	c.mu.Lock()
	if c.built.Load() {
		c.mu.Unlock()
		return nil
	}

	c.serviceCountVal = 0
	for _, name := range c.ordered {
		c.definitions[name].ID = c.serviceCountVal
		c.serviceCountVal++
	}

	graph := newGraphBuilder(c.definitions, c.ordered, c.typeIndex)
	order, err := graph.buildOrder()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.buildOrder = order

	// 此后 Add 失败，定义不可变；急切初始化在锁外进行避免死锁
	c.built.Store(true)
	c.mu.Unlock()

	for _, name := range order {
		def := c.definitions[name]
		if def.Scope == ScopeSingleton && !def.LazyInit {
			if _, err := c.GetNamed(name); err != nil {
				return fmt.Errorf("di: failed to build singleton '%s': %w", name, err)
			}
		}
	}
	return nil
}

// Get 按类型检索实例。
func (c *container) Get(typ reflect.Type) (any, error) {
	name, err := c.electCandidate(typ)
	if err != nil {
		return nil, err
	}
	return c.GetNamed(name)
}

// electCandidate 类型搜索加 Primary 裁决，返回唯一的候选 Bean 名。
func (c *container) electCandidate(typ reflect.Type) (string, error) {
	candidates := c.CandidatesByType(typ)
	switch len(candidates) {
	case 0:
		return "", fmt.Errorf("di: no bean of type %v: %w", typ, injection.ErrNoSuchBean)
	case 1:
		return candidates[0], nil
	}

	var primaries []string
	for _, name := range candidates {
		if c.definitions[name].Primary {
			primaries = append(primaries, name)
		}
	}
	if len(primaries) == 1 {
		return primaries[0], nil
	}
	return "", fmt.Errorf("di: %d candidate beans of type %v %v: %w",
		len(candidates), typ, candidates, injection.ErrAmbiguousBean)
}

// GetNamed 按 Bean 名检索实例。
func (c *container) GetNamed(name string) (any, error) {
	if !c.built.Load() {
		return nil, fmt.Errorf("di: container is not built")
	}

	def, ok := c.definitions[name]
	if !ok {
		return nil, fmt.Errorf("di: no bean named '%s': %w", name, injection.ErrNoSuchBean)
	}

	switch def.Scope {
	case ScopeSingleton:
		def.singletonOnce.Do(func() {
			def.singletonInst, def.singletonErr = c.resolver.createInstance(c, def)
		})
		return def.singletonInst, def.singletonErr
	case ScopeTransient:
		return c.resolver.createInstance(c, def)
	case ScopeScoped:
		return nil, fmt.Errorf("di: bean '%s' is scoped, resolve it through CreateScope()", name)
	}
	return nil, fmt.Errorf("di: unknown scope %v", def.Scope)
}

// Contains 判断 Bean 名是否已注册。
func (c *container) Contains(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.definitions[name]
	return ok
}

// ContainsType 判断类型是否有候选。
func (c *container) ContainsType(typ reflect.Type) bool {
	return len(c.CandidatesByType(typ)) > 0
}

// Definition 返回命名定义。
func (c *container) Definition(name string) (*ServiceDefinition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.definitions[name]
	return def, ok
}

// DefinitionNames 按注册顺序返回全部 Bean 名。
func (c *container) DefinitionNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// CandidatesByType 类型的候选 Bean 名：精确命中优先，接口与可赋值类型走全扫描。
func (c *container) CandidatesByType(typ reflect.Type) []string {
	if typ == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	if names, ok := c.typeIndex[typ]; ok && len(names) > 0 {
		out := make([]string, len(names))
		copy(out, names)
		return out
	}

	var out []string
	for _, name := range c.ordered {
		def := c.definitions[name]
		if def.Type != typ && def.Type.AssignableTo(typ) {
			out = append(out, name)
		}
	}
	return out
}

// ResolveDependency 注入解析协作：名绑定快路径、限定名、类型搜索三条路线。
func (c *container) ResolveDependency(d injection.Descriptor, requestingBean string) (any, string, error) {
	if d.BeanName != "" {
		v, err := c.GetNamed(d.BeanName)
		if err != nil {
			return nil, "", err
		}
		if d.Type != nil && !reflect.TypeOf(v).AssignableTo(d.Type) {
			return nil, "", fmt.Errorf("di: bean '%s' is %T, not assignable to %v: %w",
				d.BeanName, v, d.Type, injection.ErrNoSuchBean)
		}
		return v, d.BeanName, nil
	}

	if d.Qualifier != "" {
		v, err := c.GetNamed(d.Qualifier)
		if err != nil {
			return nil, "", err
		}
		if d.Type != nil && !reflect.TypeOf(v).AssignableTo(d.Type) {
			return nil, "", fmt.Errorf("di: bean '%s' is %T, not assignable to %v: %w",
				d.Qualifier, v, d.Type, injection.ErrNoSuchBean)
		}
		return v, d.Qualifier, nil
	}

	name, err := c.electCandidate(d.Type)
	if err != nil {
		return nil, "", err
	}
	v, err := c.GetNamed(name)
	if err != nil {
		return nil, "", err
	}
	return v, name, nil
}

// RegisterDependentBean 登记依赖关系：dependentBean 依赖 beanName。
func (c *container) RegisterDependentBean(beanName string, dependentBean string) {
	if beanName == "" || dependentBean == "" || beanName == dependentBean {
		return
	}
	c.depMu.Lock()
	defer c.depMu.Unlock()
	for _, existing := range c.dependents[beanName] {
		if existing == dependentBean {
			return
		}
	}
	c.dependents[beanName] = append(c.dependents[beanName], dependentBean)
}

// CreateScope 为作用域实例创建一个新作用域。
func (c *container) CreateScope() Scope {
	return newScope(c)
}

// Destroy 销毁全部单例：依赖者先于被依赖者，随后逆构建序收尾。
func (c *container) Destroy() {
	if !c.built.Load() || !c.destroyed.CompareAndSwap(false, true) {
		return
	}

	destroyed := make(map[string]bool)
	var destroyBean func(name string)
	destroyBean = func(name string) {
		if destroyed[name] {
			return
		}
		destroyed[name] = true

		c.depMu.Lock()
		deps := append([]string(nil), c.dependents[name]...)
		c.depMu.Unlock()
		for _, dep := range deps {
			destroyBean(dep)
		}

		def, ok := c.definitions[name]
		if !ok || def.Scope != ScopeSingleton {
			return
		}
		inst := def.singletonInst
		if inst == nil || def.singletonErr != nil {
			return
		}
		if err := c.resolver.destroyInstance(inst, def); err != nil && c.logger != nil {
			c.logger.Warn("Bean destroy method failed",
				logging.Field{Key: "bean", Value: name},
				logging.Field{Key: "error", Value: err})
		}
	}

	for i := len(c.buildOrder) - 1; i >= 0; i-- {
		destroyBean(c.buildOrder[i])
	}
}

func (c *container) serviceCount() int {
	return c.serviceCountVal
}
