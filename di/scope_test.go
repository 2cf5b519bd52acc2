package di_test

import (
	"sync"
	"testing"

	"github.com/gocrud/ioc/di"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type requestContext struct {
	ID int
}

type handler struct {
	Ctx *requestContext `autowired:""`
}

func TestScopedInstancePerScope(t *testing.T) {
	c := di.NewContainer()
	di.Register[requestContext](c, di.WithScoped())
	require.NoError(t, c.Build())

	s1 := c.CreateScope()
	s2 := c.CreateScope()

	r1a, err := di.ResolveScoped[*requestContext](s1)
	require.NoError(t, err)
	r1b, err := di.ResolveScoped[*requestContext](s1)
	require.NoError(t, err)
	r2, err := di.ResolveScoped[*requestContext](s2)
	require.NoError(t, err)

	// 同作用域同实例，跨作用域不同实例
	assert.Same(t, r1a, r1b)
	assert.NotSame(t, r1a, r2)
}

func TestScopedFromRootRejected(t *testing.T) {
	c := di.NewContainer()
	di.Register[requestContext](c, di.WithScoped())
	require.NoError(t, c.Build())

	_, err := di.Resolve[*requestContext](c)
	assert.Error(t, err)
}

func TestTransientInScopeSeesScopedDeps(t *testing.T) {
	c := di.NewContainer()
	di.Register[requestContext](c, di.WithScoped())
	di.Register[handler](c, di.WithTransient())
	require.NoError(t, c.Build())

	s := c.CreateScope()
	h1, err := di.ResolveScoped[*handler](s)
	require.NoError(t, err)
	h2, err := di.ResolveScoped[*handler](s)
	require.NoError(t, err)

	// 瞬态每次新实例，但其作用域依赖在同一作用域内共享
	assert.NotSame(t, h1, h2)
	assert.Same(t, h1.Ctx, h2.Ctx)
}

func TestSingletonSharedAcrossScopes(t *testing.T) {
	c := di.NewContainer()
	di.Register[database](c)
	require.NoError(t, c.Build())

	s1 := c.CreateScope()
	s2 := c.CreateScope()
	d1, err := di.ResolveScoped[*database](s1)
	require.NoError(t, err)
	d2, err := di.ResolveScoped[*database](s2)
	require.NoError(t, err)
	assert.Same(t, d1, d2)
}

func TestScopedConcurrentSingleCreation(t *testing.T) {
	created := 0
	var mu sync.Mutex
	c := di.NewContainer()
	require.NoError(t, di.RegisterFactory(c, func() *requestContext {
		mu.Lock()
		created++
		mu.Unlock()
		return &requestContext{}
	}, di.WithScoped()))
	require.NoError(t, c.Build())

	s := c.CreateScope()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := di.ResolveScoped[*requestContext](s)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, created)
}

type sessionBean struct {
	closed *bool
}

func (b *sessionBean) Shutdown() { *b.closed = true }

func TestDisposeCallsDestroyMethods(t *testing.T) {
	closed := false
	c := di.NewContainer()
	require.NoError(t, di.RegisterFactory(c, func() *sessionBean {
		return &sessionBean{closed: &closed}
	}, di.WithScoped(), di.WithDestroyMethod("Shutdown")))
	require.NoError(t, c.Build())

	s := c.CreateScope()
	_, err := di.ResolveScoped[*sessionBean](s)
	require.NoError(t, err)

	s.Dispose()
	assert.True(t, closed)
}
