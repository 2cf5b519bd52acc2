package meta_test

import (
	"reflect"
	"testing"

	"github.com/gocrud/ioc/meta"
	"github.com/stretchr/testify/assert"
)

type plainType struct{}

type annotatedType struct{}

func (annotatedType) Annotations() []meta.Annotation {
	return []meta.Annotation{
		meta.Configuration(),
		meta.Bean("UserService"),
	}
}

type embeddedBase struct{}

type withEmbedded struct {
	embeddedBase
	Named string
}

func TestRegistryAndSelfDeclaredAreInterchangeable(t *testing.T) {
	reg := meta.NewRegistry()

	// 注册表路径
	reg.Register(reflect.TypeOf(plainType{}), meta.Configuration(), meta.Bean("Repo"))
	md := reg.MetadataFor(reflect.TypeOf(plainType{}))
	assert.True(t, md.HasAnnotation(meta.TypeConfiguration))
	beans := md.MethodAnnotations(meta.TypeBean)
	assert.Len(t, beans, 1)
	assert.Equal(t, "Repo", beans[0].Method)

	// 自声明路径，同一查询面
	md2 := reg.MetadataFor(reflect.TypeOf(annotatedType{}))
	assert.True(t, md2.HasAnnotation(meta.TypeConfiguration))
	assert.Len(t, md2.MethodAnnotations(meta.TypeBean), 1)
}

func TestStereotypeExpansion(t *testing.T) {
	reg := meta.NewRegistry()
	reg.Register(reflect.TypeOf(plainType{}), meta.Service("userService"))

	md := reg.MetadataFor(reflect.TypeOf(plainType{}))
	// Service 元注解 Component
	assert.True(t, md.HasAnnotation(meta.TypeComponent))
	assert.True(t, md.HasAnnotation(meta.TypeService))
	assert.False(t, md.HasAnnotation(meta.TypeConfiguration))
}

func TestCustomStereotype(t *testing.T) {
	reg := meta.NewRegistry()
	reg.RegisterStereotype("Gateway", meta.TypeService)
	reg.Register(reflect.TypeOf(plainType{}),
		meta.Annotation{Type: "Gateway", Attributes: map[string]any{"value": "gw"}})

	md := reg.MetadataFor(reflect.TypeOf(plainType{}))
	// 传递展开：Gateway -> Service -> Component
	assert.True(t, md.HasAnnotation(meta.TypeComponent))
}

func TestEmbeddedTypes(t *testing.T) {
	reg := meta.NewRegistry()
	md := reg.MetadataFor(reflect.TypeOf(withEmbedded{}))

	embedded := md.EmbeddedTypes()
	assert.Len(t, embedded, 1)
	assert.Equal(t, reflect.TypeOf(embeddedBase{}), embedded[0])
}

func TestAnnotationAttributes(t *testing.T) {
	a := meta.Bean("Conn", meta.WithBeanName("primaryConn"), meta.WithInitMethod("Open"))
	assert.Equal(t, "Conn", a.Method)
	assert.Equal(t, "primaryConn", a.String("name"))
	assert.Equal(t, "Open", a.String("initMethod"))
	assert.Equal(t, "", a.String("missing"))

	imp := meta.Import(meta.TypeOf[plainType](), annotatedType{})
	targets := imp.Targets("targets")
	assert.Len(t, targets, 2)
	assert.Equal(t, reflect.TypeOf(plainType{}), targets[0])
	assert.Equal(t, reflect.TypeOf(annotatedType{}), targets[1])
}

func TestPointerAndValueRegistrationsMerge(t *testing.T) {
	reg := meta.NewRegistry()
	reg.Register(reflect.TypeOf(&plainType{}), meta.Configuration())

	md := reg.MetadataFor(reflect.TypeOf(plainType{}))
	assert.True(t, md.HasAnnotation(meta.TypeConfiguration))
}
