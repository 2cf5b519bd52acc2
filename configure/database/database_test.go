package database_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gocrud/ioc/config"
	"github.com/gocrud/ioc/configure/database"
	"github.com/gocrud/ioc/core"
	"github.com/gocrud/ioc/di"
	"github.com/gocrud/ioc/logging"
	"github.com/gocrud/ioc/meta"
)

type User struct {
	gorm.Model
	Name string
}

type reportService struct {
	Master *gorm.DB `autowired:"master"`
	Slave  *gorm.DB `autowired:"slave,optional"`
}

type dbConfig struct {
	DSN          string `json:"dsn"`
	MaxOpenConns int    `json:"max_open_conns"`
}

func TestDatabaseConfiguration(t *testing.T) {
	app, err := core.NewApplicationBuilder().
		ConfigureConfiguration(func(cb *config.ConfigurationBuilder) {
			cb.AddInMemory(map[string]any{
				"db": map[string]any{
					"master": map[string]any{
						"dsn":            "file::memory:?cache=shared",
						"max_open_conns": 5,
					},
				},
			})
		}).
		Configure(database.Configure(func(b *database.Builder) {
			conf, err := config.Load[dbConfig](b.ConfigContext().GetConfiguration(), "db.master")
			require.NoError(t, err)

			b.Add("master", sqlite.Open(conf.DSN), func(o *database.DatabaseOptions) {
				o.MaxOpenConns = conf.MaxOpenConns
				o.AutoMigrate = []any{&User{}}
			})
		})).
		ConfigureServices(func(s *core.ServiceCollection) {
			core.AddSingleton[*reportService](s)
		}).
		Build()
	require.NoError(t, err)

	var svc *reportService
	app.GetService(&svc)

	require.NotNil(t, svc.Master)
	assert.Nil(t, svc.Slave)

	sqlDB, err := svc.Master.DB()
	require.NoError(t, err)
	assert.Equal(t, 5, sqlDB.Stats().MaxOpenConnections)

	require.NoError(t, svc.Master.Create(&User{Name: "test"}).Error)

	var count int64
	require.NoError(t, svc.Master.Model(&User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	factory, err := di.Resolve[*database.DatabaseFactory](app.Services())
	require.NoError(t, err)
	assert.Equal(t, []string{"master"}, factory.Names())

	master, err := factory.Get("master")
	require.NoError(t, err)
	assert.NotNil(t, master)

	_, err = factory.Get("slave")
	require.Error(t, err)
}

func TestBuilderCollectsErrors(t *testing.T) {
	logger := logging.NewLogger()
	builder := database.NewBuilder(nil)

	// 缺少 dialector
	builder.Add("invalid", nil, nil)

	// 重复名称
	builder.Add("dup", sqlite.Open("file::memory:"), nil)
	builder.Add("dup", sqlite.Open("file::memory:"), nil)

	_, err := builder.Build(logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid")
	assert.Contains(t, err.Error(), "dup")
}

func TestEmptyBuilderProducesNoFactory(t *testing.T) {
	factory, err := database.NewBuilder(nil).Build(logging.NewLogger())
	require.NoError(t, err)
	assert.Nil(t, factory)
}

type dbAppConfig struct{}

func init() {
	meta.RegisterFor[dbAppConfig](meta.Default(),
		meta.Configuration(),
		meta.Import(database.AutoConfigurationType()))
}

func TestAutoConfigurationOpensDatabase(t *testing.T) {
	app, err := core.NewApplicationBuilder().
		ConfigureConfiguration(func(cb *config.ConfigurationBuilder) {
			cb.AddInMemory(map[string]any{
				"database": map[string]any{"dsn": "file::memory:"},
			})
		}).
		AddConfiguration(&dbAppConfig{}).
		Build()
	require.NoError(t, err)

	db, err := di.ResolveNamed[*gorm.DB](app.Services(), "database")
	require.NoError(t, err)
	assert.NotNil(t, db)
}

func TestAutoConfigurationRejectsUnknownDriver(t *testing.T) {
	_, err := core.NewApplicationBuilder().
		ConfigureConfiguration(func(cb *config.ConfigurationBuilder) {
			cb.AddInMemory(map[string]any{
				"database": map[string]any{"dsn": "file::memory:", "driver": "oracle"},
			})
		}).
		AddConfiguration(&dbAppConfig{}).
		Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
}
