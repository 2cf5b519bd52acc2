package resolvable_test

import (
	"io"
	"os"
	"reflect"
	"testing"

	"github.com/gocrud/ioc/resolvable"
	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

type holder struct {
	Lookup map[int][]string
	Plain  string
}

type base struct{}

type derived struct {
	base
}

type reader struct{}

func (reader) Read(p []byte) (int, error) { return 0, io.EOF }

func TestGenericNavigation(t *testing.T) {
	typ := resolvable.ForType(reflect.TypeOf(map[int][]string{}))

	assert.Equal(t, reflect.TypeOf(0), typ.Generic(0).Resolve())
	assert.Equal(t, reflect.TypeOf([]string{}), typ.Generic(1).Resolve())
	// 路径 [1,0]：先进值槽位，再进切片元素
	assert.Equal(t, reflect.TypeOf(""), typ.Generic(1, 0).Resolve())
}

func TestGenericOutOfRangeIsNone(t *testing.T) {
	typ := resolvable.ForType(reflect.TypeOf(map[int]string{}))

	got := typ.Generic(99)
	assert.True(t, got.IsNone())
	// None 继续导航依旧是 None，不会 panic
	assert.True(t, got.Generic(0).IsNone())
	assert.Nil(t, got.Resolve())
}

func TestForField(t *testing.T) {
	typ := resolvable.ForField(reflect.TypeOf(holder{}), 0)
	assert.Equal(t, reflect.TypeOf(map[int][]string{}), typ.Resolve())
	assert.Equal(t, reflect.TypeOf(""), typ.Generic(1, 0).Resolve())

	// 越界字段
	assert.True(t, resolvable.ForField(reflect.TypeOf(holder{}), 9).IsNone())
}

func TestEqualitySameSignatureDifferentPath(t *testing.T) {
	a := resolvable.ForType(reflect.TypeOf(map[int][]string{}))
	b := resolvable.ForType(reflect.TypeOf(map[int][]string{}))
	assert.True(t, a.Equal(b))

	// 不同来源（字段 vs 裸类型）不相等
	f := resolvable.ForField(reflect.TypeOf(holder{}), 0)
	assert.False(t, f.Equal(a))

	// 同一字段两次包装相等
	f2 := resolvable.ForField(reflect.TypeOf(holder{}), 0)
	assert.True(t, f.Equal(f2))
}

func TestAsInterfaceBeforeEmbedded(t *testing.T) {
	readerType := reflect.TypeOf((*io.Reader)(nil)).Elem()

	typ := resolvable.ForType(reflect.TypeOf(reader{}))
	assert.Equal(t, readerType, typ.As(readerType).Resolve())

	// 无关目标返回 None
	writerType := reflect.TypeOf((*io.Writer)(nil)).Elem()
	assert.True(t, typ.As(writerType).IsNone())
}

func TestAsEmbeddedChain(t *testing.T) {
	baseType := reflect.TypeOf(base{})
	typ := resolvable.ForType(reflect.TypeOf(derived{}))
	assert.Equal(t, baseType, typ.As(baseType).Resolve())
}

func TestAssignableFromExactGenericMatch(t *testing.T) {
	readers := resolvable.ForType(reflect.TypeOf(map[string]io.Reader{}))
	files := resolvable.ForType(reflect.TypeOf(map[string]*os.File{}))

	// 泛型槽位要求精确匹配：map[string]io.Reader 不可从 map[string]*os.File 赋值
	assert.False(t, readers.AssignableFrom(files))
	assert.True(t, readers.AssignableFrom(readers))
}

func TestAssignableFromSliceCovariance(t *testing.T) {
	anySlice := resolvable.ForType(reflect.TypeOf([][]int{}))
	same := resolvable.ForType(reflect.TypeOf([][]int{}))
	other := resolvable.ForType(reflect.TypeOf([][]string{}))

	assert.True(t, anySlice.AssignableFrom(same))
	assert.False(t, anySlice.AssignableFrom(other))
}

func TestAssignableFromInterfaceTarget(t *testing.T) {
	ifc := resolvable.ForType(reflect.TypeOf((*io.Reader)(nil)).Elem())
	impl := resolvable.ForType(reflect.TypeOf(reader{}))
	assert.True(t, ifc.AssignableFrom(impl))
}

type node struct {
	Next *node
}

func TestAssignableFromSelfReferential(t *testing.T) {
	a := resolvable.ForType(reflect.TypeOf(&node{}))
	b := resolvable.ForType(reflect.TypeOf(&node{}))
	// 自引用类型不得无限递归
	assert.True(t, a.AssignableFrom(b))
}

func TestNestedDefaultsToLastSlot(t *testing.T) {
	typ := resolvable.ForType(reflect.TypeOf(map[string]map[string][]int{}))

	// 第 2 层：缺省进 map 的值槽位
	lvl2 := typ.Nested(2, nil)
	assert.Equal(t, reflect.TypeOf(map[string][]int{}), lvl2.Resolve())

	lvl3 := typ.Nested(3, nil)
	assert.Equal(t, reflect.TypeOf([]int{}), lvl3.Resolve())

	// 指定槽位：第 2 层进键
	keyed := typ.Nested(2, map[int]int{2: 0})
	assert.Equal(t, reflect.TypeOf(""), keyed.Resolve())
}

func TestDescriptorRoundTrip(t *testing.T) {
	resolvable.ResetDefaultRegistry()
	reg := resolvable.DefaultRegistry()

	orig := resolvable.ForField(reflect.TypeOf(holder{}), 0)
	desc := resolvable.DescriptorOf(orig)

	data, err := yaml.Marshal(desc)
	assert.NoError(t, err)

	var restored resolvable.Descriptor
	assert.NoError(t, yaml.Unmarshal(data, &restored))

	got := restored.Resolve(reg, nil)
	assert.Equal(t, orig.Resolve(), got.Resolve())
	assert.Equal(t, orig.Generic(1, 0).Resolve(), got.Generic(1, 0).Resolve())
}

type customNamed struct{ V int }

func TestDescriptorNamedTypeNeedsRegistration(t *testing.T) {
	resolvable.ResetDefaultRegistry()
	reg := resolvable.DefaultRegistry()

	orig := resolvable.ForType(reflect.TypeOf([]customNamed{}))
	desc := resolvable.DescriptorOf(orig)

	// 未登记：降级为 None，不报错
	assert.True(t, desc.Resolve(reg, nil).IsNone())

	reg.RegisterValue(customNamed{})
	assert.Equal(t, orig.Resolve(), desc.Resolve(reg, nil).Resolve())
}

func TestCacheReturnsSameWrapper(t *testing.T) {
	resolvable.ClearCache()
	a := resolvable.ForType(reflect.TypeOf(map[int]string{}))
	b := resolvable.ForType(reflect.TypeOf(map[int]string{}))
	if a != b {
		t.Error("expected cached wrapper identity")
	}
}
