package di_test

import (
	"errors"
	"testing"

	"github.com/gocrud/ioc/di"
	"github.com/gocrud/ioc/injection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type database struct {
	DSN string
}

type userRepo struct {
	DB *database `autowired:""`
}

type userService struct {
	Repo *userRepo `autowired:""`
}

func TestRegisterAndResolve(t *testing.T) {
	c := di.NewContainer()
	di.Register[database](c)
	di.Register[userRepo](c)
	di.Register[userService](c)
	require.NoError(t, c.Build())

	svc, err := di.Resolve[*userService](c)
	require.NoError(t, err)
	assert.NotNil(t, svc.Repo)
	assert.NotNil(t, svc.Repo.DB)
	// 单例：同一实例
	svc2, err := di.Resolve[*userService](c)
	require.NoError(t, err)
	assert.Same(t, svc, svc2)
	assert.Same(t, svc.Repo, svc2.Repo)
}

func TestResolveNamed(t *testing.T) {
	c := di.NewContainer()
	di.Register[database](c, di.WithName("primaryDB"))
	require.NoError(t, c.Build())

	db, err := di.ResolveNamed[*database](c, "primaryDB")
	require.NoError(t, err)
	assert.NotNil(t, db)

	_, err = di.ResolveNamed[*database](c, "missing")
	assert.True(t, errors.Is(err, injection.ErrNoSuchBean))
}

func TestDefaultBeanName(t *testing.T) {
	c := di.NewContainer()
	di.Register[database](c)
	require.NoError(t, c.Build())

	// 类型基名首字母小写
	db, err := di.ResolveNamed[*database](c, "database")
	require.NoError(t, err)
	assert.NotNil(t, db)
}

func TestFactoryRegistration(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, di.RegisterInstance(c, "config", &database{DSN: "file::memory:"}))
	require.NoError(t, di.RegisterFactory(c, func(db *database) *userRepo {
		return &userRepo{DB: db}
	}))
	require.NoError(t, c.Build())

	repo, err := di.Resolve[*userRepo](c)
	require.NoError(t, err)
	assert.Equal(t, "file::memory:", repo.DB.DSN)
}

func TestFactoryErrorPropagates(t *testing.T) {
	c := di.NewContainer()
	boom := errors.New("boom")
	require.NoError(t, di.RegisterFactory(c, func() (*database, error) {
		return nil, boom
	}))
	err := c.Build()
	assert.True(t, errors.Is(err, boom))
}

func TestFactoryReceivesContainer(t *testing.T) {
	c := di.NewContainer()
	di.Register[database](c)
	require.NoError(t, di.RegisterFactory(c, func(cc di.Container) (*userRepo, error) {
		db, err := di.Resolve[*database](cc)
		if err != nil {
			return nil, err
		}
		return &userRepo{DB: db}, nil
	}))
	require.NoError(t, c.Build())

	repo, err := di.Resolve[*userRepo](c)
	require.NoError(t, err)
	assert.NotNil(t, repo.DB)
}

type notifier interface {
	Notify(msg string)
}

type emailNotifier struct{ sent []string }

func (n *emailNotifier) Notify(msg string) { n.sent = append(n.sent, msg) }

type smsNotifier struct{}

func (n *smsNotifier) Notify(string) {}

func TestInterfaceResolution(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, di.RegisterFactory(c, func() notifier { return &emailNotifier{} }))
	require.NoError(t, c.Build())

	n, err := di.Resolve[notifier](c)
	require.NoError(t, err)
	n.Notify("hello")
}

func TestPrimaryTiebreak(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, di.RegisterInstance(c, "email", &emailNotifier{}))
	require.NoError(t, di.RegisterInstance(c, "sms", &smsNotifier{}, di.WithPrimary()))
	require.NoError(t, c.Build())

	n, err := di.Resolve[notifier](c)
	require.NoError(t, err)
	_, isSMS := n.(*smsNotifier)
	assert.True(t, isSMS)
}

func TestAmbiguousWithoutPrimary(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, di.RegisterInstance(c, "email", &emailNotifier{}))
	require.NoError(t, di.RegisterInstance(c, "sms", &smsNotifier{}))
	require.NoError(t, c.Build())

	_, err := di.Resolve[notifier](c)
	assert.True(t, errors.Is(err, injection.ErrAmbiguousBean))
}

func TestDuplicateNameRejected(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, di.RegisterInstance(c, "db", &database{}))
	err := di.RegisterInstance(c, "db", &database{})
	assert.Error(t, err)
}

func TestAddAfterBuildRejected(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, c.Build())
	err := di.RegisterInstance(c, "db", &database{})
	assert.Error(t, err)
}

type selfLoopA struct {
	B *selfLoopB `autowired:""`
}

type selfLoopB struct {
	A *selfLoopA `autowired:""`
}

func TestCircularDependencyDetected(t *testing.T) {
	c := di.NewContainer()
	di.Register[selfLoopA](c)
	di.Register[selfLoopB](c)
	err := c.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular dependency")
}

type lifecycleBean struct {
	started bool
	stopped *[]string
	name    string
}

func (b *lifecycleBean) Start() { b.started = true }
func (b *lifecycleBean) Stop()  { *b.stopped = append(*b.stopped, b.name) }

func TestInitAndDestroyMethods(t *testing.T) {
	var log []string
	c := di.NewContainer()
	require.NoError(t, di.RegisterInstance(c, "one", &lifecycleBean{stopped: &log, name: "one"},
		di.WithInitMethod("Start"), di.WithDestroyMethod("Stop")))
	require.NoError(t, c.Build())

	b, err := di.ResolveNamed[*lifecycleBean](c, "one")
	require.NoError(t, err)
	assert.True(t, b.started)

	c.Destroy()
	assert.Equal(t, []string{"one"}, log)
}

func TestDestroyDependentsFirst(t *testing.T) {
	var log []string
	c := di.NewContainer()
	require.NoError(t, di.RegisterInstance(c, "base", &lifecycleBean{stopped: &log, name: "base"},
		di.WithDestroyMethod("Stop")))
	require.NoError(t, di.RegisterFactory(c, func(b *lifecycleBean) *userRepo {
		return &userRepo{}
	}, di.WithName("consumer")))
	require.NoError(t, c.Build())

	// consumer 依赖 base：销毁时 consumer 先行（这里 consumer 无销毁方法，
	// 只验证 base 仍被销毁且不重复）
	c.Destroy()
	assert.Equal(t, []string{"base"}, log)
	c.Destroy()
	assert.Equal(t, []string{"base"}, log)
}

func TestLazyInitDeferred(t *testing.T) {
	created := 0
	c := di.NewContainer()
	require.NoError(t, di.RegisterFactory(c, func() *database {
		created++
		return &database{}
	}, di.WithLazyInit()))
	require.NoError(t, c.Build())
	assert.Equal(t, 0, created)

	_, err := di.Resolve[*database](c)
	require.NoError(t, err)
	assert.Equal(t, 1, created)
}

func TestOptionalFieldSkipped(t *testing.T) {
	type svc struct {
		DB *database `autowired:",optional"`
	}
	c := di.NewContainer()
	di.Register[svc](c)
	require.NoError(t, c.Build())

	s, err := di.Resolve[*svc](c)
	require.NoError(t, err)
	assert.Nil(t, s.DB)
}

func TestRequiredFieldMissingFailsBuild(t *testing.T) {
	type svc struct {
		DB *database `autowired:""`
	}
	c := di.NewContainer()
	di.Register[svc](c)
	err := c.Build()
	require.Error(t, err)
	var unsat *injection.UnsatisfiedDependencyError
	assert.True(t, errors.As(err, &unsat))
}
