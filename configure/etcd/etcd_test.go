package etcd_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/gocrud/ioc/configure/etcd"
	"github.com/gocrud/ioc/core"
	"github.com/gocrud/ioc/di"
	"github.com/gocrud/ioc/logging"
)

// registryWatcher 模拟依赖 etcd 客户端的服务
type registryWatcher struct {
	Master *clientv3.Client `autowired:"master"`
	Slave  *clientv3.Client `autowired:"slave,optional"`
}

func TestEtcdConfiguration(t *testing.T) {
	app, err := core.NewApplicationBuilder().
		Configure(etcd.Configure(func(b *etcd.Builder) {
			b.AddClient("master", func(o *etcd.EtcdClientOptions) {
				o.Endpoints = []string{"localhost:2379"}
			})
		})).
		ConfigureServices(func(s *core.ServiceCollection) {
			core.AddSingleton[*registryWatcher](s)
		}).
		Build()
	require.NoError(t, err)

	var svc *registryWatcher
	app.GetService(&svc)

	require.NotNil(t, svc.Master)
	assert.Nil(t, svc.Slave)

	master, err := di.ResolveNamed[*clientv3.Client](app.Services(), "master")
	require.NoError(t, err)
	assert.NotNil(t, master)

	factory, err := di.Resolve[*etcd.EtcdClientFactory](app.Services())
	require.NoError(t, err)
	assert.NotNil(t, factory)
}

func TestBuilderCollectsErrors(t *testing.T) {
	logger := logging.NewLogger()
	builder := etcd.NewBuilder(nil)

	// 必填项缺失
	builder.AddClient("invalid", func(o *etcd.EtcdClientOptions) {
		o.Endpoints = nil
	})

	// 重复名称
	builder.AddClient("duplicate", nil)
	builder.AddClient("duplicate", nil)

	_, err := builder.Build(logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid")
	assert.Contains(t, err.Error(), "duplicate")
}

func TestFactoryGetAndClose(t *testing.T) {
	factory := etcd.NewEtcdClientFactory()

	opts := *etcd.NewDefaultOptions("reg")
	require.NoError(t, factory.Register(opts))

	err := factory.Register(opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	client, err := factory.Get("reg")
	require.NoError(t, err)
	assert.NotNil(t, client)

	_, err = factory.Get("missing")
	assert.Error(t, err)

	require.NoError(t, factory.Close())
	_, err = factory.Get("reg")
	assert.Error(t, err)
}
