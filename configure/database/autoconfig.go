package database

import (
	"fmt"
	"reflect"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gocrud/ioc/autoconfigure"
	"github.com/gocrud/ioc/beans"
	"github.com/gocrud/ioc/config"
	"github.com/gocrud/ioc/meta"
)

// Properties database 配置节
type Properties struct {
	// Driver 目前支持 sqlite
	Driver       string `json:"driver"`
	DSN          string `json:"dsn"`
	MaxIdleConns int    `json:"maxIdleConns"`
	MaxOpenConns int    `json:"maxOpenConns"`
	// MaxLifetimeSec 连接最大存活秒数
	MaxLifetimeSec int `json:"maxLifetimeSec"`
}

// DefaultProperties 默认配置
func DefaultProperties() Properties {
	return Properties{
		Driver:         "sqlite",
		MaxIdleConns:   10,
		MaxOpenConns:   100,
		MaxLifetimeSec: 3600,
	}
}

// AutoConfiguration 基于 database 配置节的自动配置类
// 仅在声明了 database.dsn 时生效；用户已注册 *gorm.DB 时让位
type AutoConfiguration struct{}

// Database 按配置节打开默认数据库连接
func (a *AutoConfiguration) Database(env *config.Environment) (*gorm.DB, error) {
	props := DefaultProperties()
	if err := env.Bind("database", &props); err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch props.Driver {
	case "", "sqlite":
		dialector = sqlite.Open(props.DSN)
	default:
		return nil, fmt.Errorf("database: unsupported driver '%s'", props.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("database: failed to open '%s': %w", props.DSN, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(props.MaxIdleConns)
	sqlDB.SetMaxOpenConns(props.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(props.MaxLifetimeSec) * time.Second)

	return db, nil
}

// AutoConfigurationType 供 meta.Import 显式引入本模块的自动配置
func AutoConfigurationType() reflect.Type {
	return meta.TypeOf[*AutoConfiguration]()
}

func init() {
	meta.RegisterFor[AutoConfiguration](meta.Default(),
		meta.Configuration(),
		meta.Conditional(beans.OnProperty{Key: "database.dsn"}),
		meta.Bean("Database", meta.WithBeanName("database")),
		meta.ConditionalMethod("Database",
			beans.OnMissingBean{Type: meta.TypeOf[*gorm.DB]()}),
	)
	autoconfigure.Register((*AutoConfiguration)(nil))
}
