package beans

import (
	"fmt"
	"reflect"

	"github.com/gocrud/ioc/meta"
)

// Validate 解析后的独立校验遍
// 检查拦截可行性与 Bean 方法的可达性，问题交给汇报器
func (p *Parser) Validate() error {
	for _, cc := range p.ConfigurationClasses() {
		p.validateClass(cc)
	}
	return p.reporter.Err()
}

func (p *Parser) validateClass(cc *ConfigurationClass) {
	md := cc.Metadata()
	if md.HasAnnotation(meta.TypeConfiguration) && interceptionEnabled(md) {
		if kindOf(cc.Type()) != reflect.Struct {
			p.reporter.Report(Problem{
				Message:  fmt.Sprintf("configuration class '%s' enables method interception but is not a struct type", cc.ClassName()),
				Location: cc.ClassName(),
			})
		}
	}

	for _, m := range cc.BeanMethods() {
		p.validateBeanMethod(cc, m)
	}
}

func (p *Parser) validateBeanMethod(cc *ConfigurationClass, m *BeanMethod) {
	if m.Name == "" {
		p.reporter.Report(Problem{
			Message:  "bean method annotation without a method name",
			Location: cc.ClassName(),
		})
		return
	}
	if !isExported(m.Name) {
		p.reporter.Report(Problem{
			Message:  fmt.Sprintf("bean method '%s' is unexported and cannot be invoked", m.Name),
			Location: cc.ClassName(),
		})
		return
	}

	mt, ok := methodOn(cc.Type(), m.Name)
	if !ok {
		p.reporter.Report(Problem{
			Message:  fmt.Sprintf("bean method '%s' not found on %s", m.Name, cc.ClassName()),
			Location: cc.ClassName(),
		})
		return
	}
	if mt.Type.NumOut() == 0 || mt.Type.Out(0) == errType {
		// 首个返回值必须是 Bean 实例本身，error 只能作为尾随返回值
		p.reporter.Report(Problem{
			Message:  fmt.Sprintf("bean method '%s' must return the bean instance as its first result", m.Name),
			Location: cc.ClassName(),
		})
	}
}

func kindOf(typ reflect.Type) reflect.Kind {
	for typ != nil && typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ == nil {
		return reflect.Invalid
	}
	return typ.Kind()
}

func isExported(name string) bool {
	return name != "" && name[0] >= 'A' && name[0] <= 'Z'
}

// methodOn 在指针方法集上查找方法
func methodOn(typ reflect.Type, name string) (reflect.Method, bool) {
	if typ == nil {
		return reflect.Method{}, false
	}
	if typ.Kind() != reflect.Ptr {
		typ = reflect.PointerTo(typ)
	}
	return typ.MethodByName(name)
}
