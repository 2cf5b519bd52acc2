package redis

import (
	"reflect"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gocrud/ioc/autoconfigure"
	"github.com/gocrud/ioc/beans"
	"github.com/gocrud/ioc/config"
	"github.com/gocrud/ioc/meta"
)

// Properties redis 配置节
type Properties struct {
	Addr         string `json:"addr"`
	Password     string `json:"password"`
	DB           int    `json:"db"`
	PoolSize     int    `json:"poolSize"`
	MinIdleConns int    `json:"minIdleConns"`
	MaxRetries   int    `json:"maxRetries"`
	// DialTimeoutMs 连接超时毫秒数
	DialTimeoutMs int `json:"dialTimeoutMs"`
}

// DefaultProperties 默认配置
func DefaultProperties() Properties {
	return Properties{
		Addr:          "localhost:6379",
		PoolSize:      10,
		MinIdleConns:  5,
		MaxRetries:    3,
		DialTimeoutMs: 5000,
	}
}

// AutoConfiguration 基于 redis 配置节的自动配置类
// 仅在声明了 redis.addr 时生效；用户已注册 *redis.Client 时让位
type AutoConfiguration struct{}

// Client 构造默认 Redis 客户端
func (a *AutoConfiguration) Client(env *config.Environment) (*redis.Client, error) {
	props := DefaultProperties()
	if err := env.Bind("redis", &props); err != nil {
		return nil, err
	}

	return redis.NewClient(&redis.Options{
		Addr:         props.Addr,
		Password:     props.Password,
		DB:           props.DB,
		PoolSize:     props.PoolSize,
		MinIdleConns: props.MinIdleConns,
		MaxRetries:   props.MaxRetries,
		DialTimeout:  time.Duration(props.DialTimeoutMs) * time.Millisecond,
	}), nil
}

// AutoConfigurationType 供 meta.Import 显式引入本模块的自动配置
func AutoConfigurationType() reflect.Type {
	return meta.TypeOf[*AutoConfiguration]()
}

func init() {
	meta.RegisterFor[AutoConfiguration](meta.Default(),
		meta.Configuration(),
		meta.Conditional(beans.OnProperty{Key: "redis.addr"}),
		meta.Bean("Client",
			meta.WithBeanName("redisClient"),
			meta.WithDestroyMethod("Close")),
		meta.ConditionalMethod("Client",
			beans.OnMissingBean{Type: meta.TypeOf[*redis.Client]()}),
	)
	autoconfigure.Register((*AutoConfiguration)(nil))
}
