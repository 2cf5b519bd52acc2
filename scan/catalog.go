package scan

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Component 目录中的一条组件登记
type Component struct {
	// Type 组件类型（结构体指针）
	Type reflect.Type
	// Name 显式 Bean 名；空名由接收方推导
	Name string
}

// Catalog 命名组件目录
// 包在 init 阶段把组件登记进目录，扫描指令按目录名取出
type Catalog struct {
	name string

	mu         sync.RWMutex
	components []Component
}

// Name 目录名
func (c *Catalog) Name() string {
	return c.name
}

// Register 登记一个组件类型（传入该类型的零值指针）
func (c *Catalog) Register(prototype any) {
	c.RegisterNamed("", prototype)
}

// RegisterNamed 登记组件并指定 Bean 名
func (c *Catalog) RegisterNamed(name string, prototype any) {
	typ := reflect.TypeOf(prototype)
	if typ == nil {
		panic(fmt.Sprintf("scan: nil prototype registered in catalog '%s'", c.name))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.components = append(c.components, Component{Type: typ, Name: name})
}

// Components 登记顺序的组件副本
func (c *Catalog) Components() []Component {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Component, len(c.components))
	copy(out, c.components)
	return out
}

var (
	catalogsMu sync.RWMutex
	catalogs   = make(map[string]*Catalog)
)

// Of 取命名目录，不存在则创建
func Of(name string) *Catalog {
	catalogsMu.Lock()
	defer catalogsMu.Unlock()
	if c, ok := catalogs[name]; ok {
		return c
	}
	c := &Catalog{name: name}
	catalogs[name] = c
	return c
}

// Lookup 取既有目录
func Lookup(name string) (*Catalog, bool) {
	catalogsMu.RLock()
	defer catalogsMu.RUnlock()
	c, ok := catalogs[name]
	return c, ok
}

// Names 全部目录名，字典序
func Names() []string {
	catalogsMu.RLock()
	defer catalogsMu.RUnlock()
	out := make([]string, 0, len(catalogs))
	for name := range catalogs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Reset 清空全部目录（测试用）
func Reset() {
	catalogsMu.Lock()
	defer catalogsMu.Unlock()
	catalogs = make(map[string]*Catalog)
}
