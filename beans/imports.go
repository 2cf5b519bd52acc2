package beans

import (
	"os"
	"reflect"
	"sort"

	"github.com/gocrud/ioc/config"
	"github.com/gocrud/ioc/logging"
	"github.com/gocrud/ioc/meta"
)

// ImportSelector 导入选择器：按导入方元数据决定实际导入什么
type ImportSelector interface {
	// SelectImports 返回要导入的目标（类型或实例原型）
	SelectImports(importing meta.TypeMetadata) []any
}

// ExclusionFilterProvider 选择器可附带排除过滤器，命中的类名不再导入
type ExclusionFilterProvider interface {
	ExclusionFilter() func(className string) bool
}

// DeferredImportSelector 延迟到全部候选解析完后统一处理的选择器
type DeferredImportSelector interface {
	ImportSelector
	// Group 返回分组载体；nil 表示按选择器自身分组
	Group() Group
}

// Group 延迟导入的聚合分组
type Group interface {
	// Process 逐条收集一个延迟导入
	Process(importing meta.TypeMetadata, selector DeferredImportSelector)
	// Imports 返回归并后的导入条目
	Imports() []GroupEntry
}

// GroupEntry 分组归并出的一条导入
type GroupEntry struct {
	// Metadata 原始导入方元数据
	Metadata meta.TypeMetadata
	// Target 要导入的目标
	Target any
}

// ImportRegistrar 导入注册器：直接向注册表贡献 Bean 定义
type ImportRegistrar interface {
	RegisterBeans(importing meta.TypeMetadata, registry BeanRegistry)
}

// Ordered 排序提示，值越小越靠前
type Ordered interface {
	Order() int
}

// ResourceLoader 按位置加载资源内容
type ResourceLoader interface {
	Load(location string) ([]byte, error)
}

// 选择器与注册器可实现的环境感知回调，调用顺序固定：
// Environment -> ResourceLoader -> Registry -> Logger
type (
	// EnvironmentAware 注入配置环境
	EnvironmentAware interface {
		SetEnvironment(env *config.Environment)
	}
	// ResourceLoaderAware 注入资源加载器
	ResourceLoaderAware interface {
		SetResourceLoader(loader ResourceLoader)
	}
	// RegistryAware 注入注解注册表
	RegistryAware interface {
		SetRegistry(registry *meta.Registry)
	}
	// LoggerAware 注入日志器
	LoggerAware interface {
		SetLogger(logger logging.Logger)
	}
)

// invokeAware 按固定顺序触发目标实现的感知回调
func (p *Parser) invokeAware(target any) {
	if a, ok := target.(EnvironmentAware); ok {
		a.SetEnvironment(p.environment)
	}
	if a, ok := target.(ResourceLoaderAware); ok {
		a.SetResourceLoader(p.resourceLoader)
	}
	if a, ok := target.(RegistryAware); ok {
		a.SetRegistry(p.registry)
	}
	if a, ok := target.(LoggerAware); ok {
		a.SetLogger(p.logger)
	}
}

// importStack 导入递归栈加"谁导入了谁"登记
type importStack struct {
	stack []*ConfigurationClass
	// imports 被导入类名 -> 导入方元数据列表
	imports map[string][]meta.TypeMetadata
}

func newImportStack() *importStack {
	return &importStack{imports: make(map[string][]meta.TypeMetadata)}
}

func (s *importStack) push(cc *ConfigurationClass) {
	s.stack = append(s.stack, cc)
}

func (s *importStack) pop() {
	s.stack = s.stack[:len(s.stack)-1]
}

func (s *importStack) contains(className string) bool {
	for _, cc := range s.stack {
		if cc.ClassName() == className {
			return true
		}
	}
	return false
}

func (s *importStack) registerImport(importing meta.TypeMetadata, importedClassName string) {
	s.imports[importedClassName] = append(s.imports[importedClassName], importing)
}

// path 返回当前栈的类名链，问题消息用
func (s *importStack) path() []string {
	out := make([]string, 0, len(s.stack))
	for _, cc := range s.stack {
		out = append(out, cc.ClassName())
	}
	return out
}

// exclusionFilter 可 OR 归并的类名排除过滤器
type exclusionFilter func(className string) bool

func (f exclusionFilter) or(other exclusionFilter) exclusionFilter {
	if f == nil {
		return other
	}
	if other == nil {
		return f
	}
	return func(className string) bool {
		return f(className) || other(className)
	}
}

func (f exclusionFilter) matches(className string) bool {
	return f != nil && f(className)
}

// deferredImport 一条排队的延迟导入
type deferredImport struct {
	configClass *ConfigurationClass
	selector    DeferredImportSelector
}

// deferredHandler 延迟导入的两阶段处理器
type deferredHandler struct {
	queue []deferredImport
}

func (h *deferredHandler) add(cc *ConfigurationClass, selector DeferredImportSelector) {
	h.queue = append(h.queue, deferredImport{configClass: cc, selector: selector})
}

// process 排序、分组、归并，再把结果喂回导入处理（不做环检测）
func (h *deferredHandler) process(p *Parser, filter exclusionFilter) {
	if len(h.queue) == 0 {
		return
	}
	pending := h.queue
	h.queue = nil

	// 稳定排序保住同序条目的登记先后
	sort.SliceStable(pending, func(i, j int) bool {
		return deferredOrder(pending[i].selector) < deferredOrder(pending[j].selector)
	})

	type grouping struct {
		group   Group
		entries []deferredImport
	}
	groups := make(map[any]*grouping)
	var groupKeys []any

	for _, d := range pending {
		var key any
		group := d.selector.Group()
		if group != nil {
			// 同一分组类型共享一个分组实例
			key = reflect.TypeOf(group)
		} else {
			key = d.selector
			group = &defaultGroup{}
		}
		g, ok := groups[key]
		if !ok {
			g = &grouping{group: group}
			groups[key] = g
			groupKeys = append(groupKeys, key)
		}
		g.entries = append(g.entries, d)
	}

	for _, key := range groupKeys {
		g := groups[key]
		for _, d := range g.entries {
			g.group.Process(d.configClass.Metadata(), d.selector)
		}
		for _, entry := range g.group.Imports() {
			// 找回该条目对应的配置类；分组可能改写元数据，按类名回查
			owner := g.entries[0].configClass
			for _, d := range g.entries {
				if d.configClass.Metadata() == entry.Metadata {
					owner = d.configClass
					break
				}
			}
			p.processImports(owner, []any{entry.Target}, filter, false)
		}
	}
}

func deferredOrder(s DeferredImportSelector) int {
	if o, ok := s.(Ordered); ok {
		return o.Order()
	}
	return int(^uint(0) >> 1)
}

// defaultGroup 无显式分组时逐条透传
type defaultGroup struct {
	entries []GroupEntry
}

func (g *defaultGroup) Process(importing meta.TypeMetadata, selector DeferredImportSelector) {
	for _, target := range selector.SelectImports(importing) {
		g.entries = append(g.entries, GroupEntry{Metadata: importing, Target: target})
	}
}

func (g *defaultGroup) Imports() []GroupEntry {
	return g.entries
}

// fileResourceLoader 基于文件系统的默认资源加载器
type fileResourceLoader struct{}

func (fileResourceLoader) Load(location string) ([]byte, error) {
	return os.ReadFile(location)
}
