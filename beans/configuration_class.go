package beans

import (
	"reflect"
	"strings"

	"github.com/gocrud/ioc/meta"
	"github.com/gocrud/ioc/scan"
)

// ConfigurationClass 一个待物化的配置类及解析期挂在它身上的贡献物
// 相等性只看类名，注册来源（显式/导入）不参与
type ConfigurationClass struct {
	metadata meta.TypeMetadata
	beanName string

	// importedBy 导入方集合，按类名去重累积
	importedBy map[string]*ConfigurationClass

	// beanMethods 声明顺序的 Bean 工厂方法
	beanMethods []*BeanMethod
	// seenMethods 方法名去重，嵌入链上同名方法不重复收
	seenMethods map[string]bool

	// importedResources 资源位置 -> 读取器名
	importedResources []importedResource

	// registrars 导入注册器及各自的导入方元数据
	registrars []registrarEntry

	// scannedComponents 组件扫描收进来的非候选组件
	scannedComponents []scan.Component

	// skippedMethods 条件跳过的方法名
	skippedMethods map[string]bool
}

// BeanMethod 配置类上的一个 Bean 工厂方法
type BeanMethod struct {
	// ConfigClass 宿主配置类
	ConfigClass *ConfigurationClass
	// Name 方法名
	Name string
	// Annotation 方法级 Bean 注解（名称、生命周期属性都在里面）
	Annotation meta.Annotation
	// DeclaringType 声明该方法的类型，嵌入贡献时与宿主不同
	DeclaringType reflect.Type
}

// BeanName 返回工厂方法产出的 Bean 名：显式 name 属性优先，否则方法名首字母小写
func (m *BeanMethod) BeanName() string {
	if name := m.Annotation.String("name"); name != "" {
		return name
	}
	return decapitalize(m.Name)
}

type importedResource struct {
	location string
	reader   string
}

type registrarEntry struct {
	registrar ImportRegistrar
	importing meta.TypeMetadata
}

func newConfigurationClass(md meta.TypeMetadata, beanName string) *ConfigurationClass {
	return &ConfigurationClass{
		metadata:       md,
		beanName:       beanName,
		importedBy:     make(map[string]*ConfigurationClass),
		seenMethods:    make(map[string]bool),
		skippedMethods: make(map[string]bool),
	}
}

func newImportedConfigurationClass(md meta.TypeMetadata, importer *ConfigurationClass) *ConfigurationClass {
	cc := newConfigurationClass(md, "")
	cc.importedBy[importer.ClassName()] = importer
	return cc
}

// ClassName 规范类名，也是相等性键
func (cc *ConfigurationClass) ClassName() string {
	return cc.metadata.ClassName()
}

// Metadata 返回类型元数据
func (cc *ConfigurationClass) Metadata() meta.TypeMetadata {
	return cc.metadata
}

// Type 返回底层类型
func (cc *ConfigurationClass) Type() reflect.Type {
	return cc.metadata.Type()
}

// BeanName 显式注册时的 Bean 名；纯导入类为空，物化时按类型推导
func (cc *ConfigurationClass) BeanName() string {
	return cc.beanName
}

// IsImported 只被导入注册（无显式 Bean 名）时为真
func (cc *ConfigurationClass) IsImported() bool {
	return len(cc.importedBy) > 0
}

// ImportedBy 返回导入方快照
func (cc *ConfigurationClass) ImportedBy() []*ConfigurationClass {
	out := make([]*ConfigurationClass, 0, len(cc.importedBy))
	for _, c := range cc.importedBy {
		out = append(out, c)
	}
	return out
}

// mergeImportedBy 把另一份同类登记的导入方并进来
func (cc *ConfigurationClass) mergeImportedBy(other *ConfigurationClass) {
	for name, c := range other.importedBy {
		cc.importedBy[name] = c
	}
}

// BeanMethods 返回声明顺序的 Bean 方法
func (cc *ConfigurationClass) BeanMethods() []*BeanMethod {
	return cc.beanMethods
}

func (cc *ConfigurationClass) addBeanMethod(m *BeanMethod) {
	if cc.seenMethods[m.Name] {
		return
	}
	cc.seenMethods[m.Name] = true
	cc.beanMethods = append(cc.beanMethods, m)
}

// ImportedResources 返回资源位置与读取器名对
func (cc *ConfigurationClass) ImportedResources() []ResourceEntry {
	out := make([]ResourceEntry, 0, len(cc.importedResources))
	for _, r := range cc.importedResources {
		out = append(out, ResourceEntry{Location: r.location, Reader: r.reader})
	}
	return out
}

// ResourceEntry 一条导入资源声明
type ResourceEntry struct {
	Location string
	Reader   string
}

func (cc *ConfigurationClass) addImportedResource(location, reader string) {
	for _, r := range cc.importedResources {
		if r.location == location {
			return
		}
	}
	cc.importedResources = append(cc.importedResources, importedResource{location: location, reader: reader})
}

func (cc *ConfigurationClass) addRegistrar(r ImportRegistrar, importing meta.TypeMetadata) {
	cc.registrars = append(cc.registrars, registrarEntry{registrar: r, importing: importing})
}

// ScannedComponents 返回扫描收进来的组件
func (cc *ConfigurationClass) ScannedComponents() []scan.Component {
	return cc.scannedComponents
}

func (cc *ConfigurationClass) addScannedComponent(comp scan.Component) {
	cc.scannedComponents = append(cc.scannedComponents, comp)
}

// SkipMethod 把条件不满足的方法记为跳过
func (cc *ConfigurationClass) SkipMethod(name string) {
	cc.skippedMethods[name] = true
}

// MethodSkipped 判断方法是否被条件跳过
func (cc *ConfigurationClass) MethodSkipped(name string) bool {
	return cc.skippedMethods[name]
}

func decapitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
