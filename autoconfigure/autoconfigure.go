// Package autoconfigure 提供基于目录的自动配置机制
//
// 配置模块在 init 阶段调用 Register 登记自己的自动配置类；
// 应用配置类通过 meta.Import(autoconfigure.NewSelector()) 引入全部登记项。
// 选择器延迟到用户配置类全部解析完成后才展开，保证用户 Bean 先于
// 自动配置 Bean 注册，条件注解因此能感知用户覆盖。
package autoconfigure

import (
	"math"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/gocrud/ioc/beans"
	"github.com/gocrud/ioc/config"
	"github.com/gocrud/ioc/meta"
	"github.com/gocrud/ioc/scan"
)

// CatalogName 自动配置类的目录名
const CatalogName = "autoconfigure"

// ExcludeProperty 排除配置键，值为逗号分隔的类名列表
const ExcludeProperty = "autoconfigure.exclude"

// Register 登记一个自动配置类原型，通常在模块的 init 中调用
func Register(prototype any) {
	scan.Of(CatalogName).Register(prototype)
}

// Selector 自动配置导入选择器
type Selector struct {
	env *config.Environment
	reg *meta.Registry
	mu  sync.Mutex
}

// NewSelector 创建自动配置选择器
func NewSelector() *Selector {
	return &Selector{}
}

// SetEnvironment 感知回调，解析器注入配置环境
func (s *Selector) SetEnvironment(env *config.Environment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.env = env
}

// SetRegistry 感知回调，解析器注入注解注册表
func (s *Selector) SetRegistry(reg *meta.Registry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reg = reg
}

func (s *Selector) registry() *meta.Registry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reg != nil {
		return s.reg
	}
	return meta.Default()
}

// SelectImports 返回目录中全部未被排除的自动配置类
func (s *Selector) SelectImports(importing meta.TypeMetadata) []any {
	catalog, ok := scan.Lookup(CatalogName)
	if !ok {
		return nil
	}
	excluded := s.excludedClasses()

	var out []any
	for _, component := range catalog.Components() {
		if excluded[meta.ClassName(component.Type)] {
			continue
		}
		out = append(out, component.Type)
	}
	return out
}

// Group 按注解声明的顺序归并自动配置类
func (s *Selector) Group() beans.Group {
	return &configurationGroup{selector: s}
}

// Order 自动配置最后展开
func (s *Selector) Order() int {
	return math.MaxInt
}

// ExclusionFilter 被排除的类名在后续导入中也一并屏蔽
func (s *Selector) ExclusionFilter() func(className string) bool {
	excluded := s.excludedClasses()
	if len(excluded) == 0 {
		return nil
	}
	return func(className string) bool {
		return excluded[className]
	}
}

// excludedClasses 读取排除配置键
func (s *Selector) excludedClasses() map[string]bool {
	s.mu.Lock()
	env := s.env
	s.mu.Unlock()
	if env == nil {
		return nil
	}

	raw := env.Get(ExcludeProperty)
	if raw == "" {
		return nil
	}
	out := make(map[string]bool)
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out[name] = true
		}
	}
	return out
}

// configurationGroup 延迟导入分组：去重并按 Order 注解排序
type configurationGroup struct {
	selector *Selector
	entries  []beans.GroupEntry
	seen     map[string]bool
}

func (g *configurationGroup) Process(importing meta.TypeMetadata, selector beans.DeferredImportSelector) {
	if g.seen == nil {
		g.seen = make(map[string]bool)
	}
	for _, target := range selector.SelectImports(importing) {
		key := targetClassName(target)
		if key != "" && g.seen[key] {
			continue
		}
		g.seen[key] = true
		g.entries = append(g.entries, beans.GroupEntry{Metadata: importing, Target: target})
	}
}

func (g *configurationGroup) Imports() []beans.GroupEntry {
	reg := g.selector.registry()
	sort.SliceStable(g.entries, func(i, j int) bool {
		return entryOrder(reg, g.entries[i]) < entryOrder(reg, g.entries[j])
	})
	return g.entries
}

// entryOrder 读取目标类上的 Order 注解，未声明排最后
func entryOrder(reg *meta.Registry, entry beans.GroupEntry) int {
	typ := targetType(entry.Target)
	if typ == nil {
		return math.MaxInt
	}
	md := reg.MetadataFor(typ)
	return beans.ConfigurationOrder(md)
}

// targetType 导入目标既可能是 reflect.Type 也可能是原型实例
func targetType(target any) reflect.Type {
	if typ, ok := target.(reflect.Type); ok {
		return typ
	}
	return reflect.TypeOf(target)
}

func targetClassName(target any) string {
	typ := targetType(target)
	if typ == nil {
		return ""
	}
	return meta.ClassName(typ)
}
