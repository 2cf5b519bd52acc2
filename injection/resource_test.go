package injection_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/gocrud/ioc/injection"
	"github.com/gocrud/ioc/meta"
	"github.com/stretchr/testify/assert"
)

type fakeNaming struct {
	entries map[string]any
	looked  []string
}

func (f *fakeNaming) Lookup(ctx context.Context, name string) (any, error) {
	f.looked = append(f.looked, name)
	if v, ok := f.entries[name]; ok {
		return v, nil
	}
	return nil, errors.New("naming: not bound: " + name)
}

type dataSource struct{ DSN string }

type resourceConsumer struct {
	// 缺省名：字段名首字母小写 -> "primary"
	Primary *dataSource `resource:""`
	// 显式名
	Named *dataSource `resource:"backup"`
	// 全局名走命名服务
	Global *dataSource `resource:",global=jdbc/reporting"`
}

func TestResourceDefaultNameThenTypeFallback(t *testing.T) {
	r := injection.NewResourceResolver(meta.NewRegistry(), nil, nil)
	// 没有名为 primary 的 Bean，只有一个同类型候选
	dep := newFakeResolver()
	dep.put("mainDS", &dataSource{DSN: "main"})

	target := &struct {
		Primary *dataSource `resource:""`
	}{}
	assert.NoError(t, r.InjectInto(target, "svc", dep))
	assert.Equal(t, "main", target.Primary.DSN)
}

func TestResourceDefaultNameAmbiguousFallback(t *testing.T) {
	r := injection.NewResourceResolver(meta.NewRegistry(), nil, nil)
	// 类型回退遇到多候选：二义错误
	dep := newFakeResolver()
	dep.put("mainDS", &dataSource{DSN: "main"})
	dep.put("otherDS", &dataSource{DSN: "other"})

	target := &struct {
		Primary *dataSource `resource:""`
	}{}
	err := r.InjectInto(target, "svc", dep)
	assert.True(t, errors.Is(err, injection.ErrAmbiguousBean))
}

func TestResourceExplicitNameNoFallback(t *testing.T) {
	r := injection.NewResourceResolver(meta.NewRegistry(), nil, nil)
	dep := newFakeResolver()
	// 只有类型匹配，没有名为 backup 的 Bean
	dep.put("other", &dataSource{DSN: "other"})

	target := &struct {
		Named *dataSource `resource:"backup"`
	}{}
	err := r.InjectInto(target, "svc", dep)
	var unsat *injection.UnsatisfiedDependencyError
	assert.True(t, errors.As(err, &unsat))
	assert.True(t, errors.Is(err, injection.ErrNoSuchBean))
}

func TestResourceGlobalNameBypassesContainer(t *testing.T) {
	naming := &fakeNaming{entries: map[string]any{
		"jdbc/reporting": &dataSource{DSN: "reporting"},
	}}
	r := injection.NewResourceResolver(meta.NewRegistry(), nil, naming)
	dep := newFakeResolver() // 容器为空也无所谓

	target := &struct {
		Global *dataSource `resource:",global=jdbc/reporting"`
	}{}
	assert.NoError(t, r.InjectInto(target, "svc", dep))
	assert.Equal(t, "reporting", target.Global.DSN)
	assert.Equal(t, []string{"jdbc/reporting"}, naming.looked)
}

func TestResourceGlobalNameWithoutNaming(t *testing.T) {
	r := injection.NewResourceResolver(meta.NewRegistry(), nil, nil)
	dep := newFakeResolver()

	target := &struct {
		Global *dataSource `resource:",global=jdbc/reporting"`
	}{}
	err := r.InjectInto(target, "svc", dep)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "naming service")
}

func TestResourceAllSlots(t *testing.T) {
	naming := &fakeNaming{entries: map[string]any{
		"jdbc/reporting": &dataSource{DSN: "reporting"},
	}}
	r := injection.NewResourceResolver(meta.NewRegistry(), nil, naming)
	dep := newFakeResolver()
	dep.put("primary", &dataSource{DSN: "p"})
	dep.put("backup", &dataSource{DSN: "b"})

	target := &resourceConsumer{}
	assert.NoError(t, r.InjectInto(target, "svc", dep))
	assert.Equal(t, "p", target.Primary.DSN)
	assert.Equal(t, "b", target.Named.DSN)
	assert.Equal(t, "reporting", target.Global.DSN)
}

type repositoryBase struct {
	Label   string
	Primary *dataSource `resource:""`
}

type orderRepository struct {
	repositoryBase
	Note   string
	Backup *dataSource `resource:"backup"`
}

func TestResourceEmbeddedFieldInjection(t *testing.T) {
	r := injection.NewResourceResolver(meta.NewRegistry(), nil, nil)
	dep := newFakeResolver()
	dep.put("primary", &dataSource{DSN: "p"})
	dep.put("backup", &dataSource{DSN: "b"})

	// 内嵌类型里声明的字段要注入到内嵌值，不能串到外层同下标字段
	target := &orderRepository{repositoryBase: repositoryBase{Label: "orders"}, Note: "keep"}
	assert.NoError(t, r.InjectInto(target, "repo", dep))
	assert.Equal(t, "p", target.Primary.DSN)
	assert.Equal(t, "b", target.Backup.DSN)
	assert.Equal(t, "orders", target.Label)
	assert.Equal(t, "keep", target.Note)
}

func TestResourceEmbeddedElementsFirst(t *testing.T) {
	r := injection.NewResourceResolver(meta.NewRegistry(), nil, nil)

	md := r.Metadata("repo", reflect.TypeOf(&orderRepository{}))
	els := md.Elements()
	assert.Len(t, els, 2)
	assert.Contains(t, els[0].Point(), "repositoryBase.Primary")
	assert.Contains(t, els[1].Point(), "orderRepository.Backup")
}

type lazyConsumer struct {
	DS *injection.Lazy[*dataSource] `resource:"slow,lazy"`
}

func TestLazyResourceDeferred(t *testing.T) {
	r := injection.NewResourceResolver(meta.NewRegistry(), nil, nil)
	dep := newFakeResolver()

	target := &lazyConsumer{}
	// 容器此刻是空的：懒注入本身不触发解析，不报错
	assert.NoError(t, r.InjectInto(target, "svc", dep))
	assert.NotNil(t, target.DS)

	// 解析推迟到首次 Get；此时 Bean 已就位
	dep.put("slow", &dataSource{DSN: "slow"})
	v, err := target.DS.Get()
	assert.NoError(t, err)
	assert.Equal(t, "slow", v.DSN)

	// 解析结果固定，后续 Get 不再查容器
	dep.remove("slow")
	v2, err := target.DS.Get()
	assert.NoError(t, err)
	assert.Equal(t, "slow", v2.DSN)
}

func TestLazyResourceErrorSticky(t *testing.T) {
	r := injection.NewResourceResolver(meta.NewRegistry(), nil, nil)
	dep := newFakeResolver()

	target := &lazyConsumer{}
	assert.NoError(t, r.InjectInto(target, "svc", dep))

	_, err := target.DS.Get()
	assert.Error(t, err)
	// 首次解析失败后结果同样固定
	dep.put("slow", &dataSource{DSN: "late"})
	_, err2 := target.DS.Get()
	assert.Error(t, err2)
}

type setterResource struct {
	ds *dataSource
}

func (s *setterResource) SetBackup(ds *dataSource) { s.ds = ds }

func TestResourceSetterInjection(t *testing.T) {
	reg := meta.NewRegistry()
	meta.RegisterFor[setterResource](reg, meta.Resource("SetBackup", ""))
	r := injection.NewResourceResolver(reg, nil, nil)

	dep := newFakeResolver()
	dep.put("backup", &dataSource{DSN: "b"})

	target := &setterResource{}
	assert.NoError(t, r.InjectInto(target, "svc", dep))
	// Setter 缺省名去掉 Set 前缀 -> backup
	assert.Equal(t, "b", target.ds.DSN)
}

func TestLazyMustGetPanics(t *testing.T) {
	l := injection.NewLazy[int](func() (any, error) {
		return nil, errors.New("boom")
	})
	assert.Panics(t, func() { l.MustGet() })
}

func TestLazyTypeMismatch(t *testing.T) {
	l := injection.NewLazy[*dataSource](func() (any, error) {
		return "not a datasource", nil
	})
	_, err := l.Get()
	assert.Error(t, err)
}
