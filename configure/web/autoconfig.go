package web

import (
	"fmt"
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"

	"github.com/gocrud/ioc/autoconfigure"
	"github.com/gocrud/ioc/beans"
	"github.com/gocrud/ioc/config"
	"github.com/gocrud/ioc/di"
	"github.com/gocrud/ioc/logging"
	"github.com/gocrud/ioc/meta"
)

// Properties web 配置节
type Properties struct {
	Port int    `json:"port"`
	Mode string `json:"mode"`
}

// DefaultProperties 默认配置
func DefaultProperties() Properties {
	return Properties{
		Port: 8080,
		Mode: gin.ReleaseMode,
	}
}

var controllerType = reflect.TypeOf((*Controller)(nil)).Elem()

// AutoConfiguration 基于 web 配置节的自动配置类
// 仅在声明了 web.port 时生效
type AutoConfiguration struct{}

// Engine 构造默认 Gin 引擎
func (a *AutoConfiguration) Engine(env *config.Environment) (*gin.Engine, error) {
	props := DefaultProperties()
	if err := env.Bind("web", &props); err != nil {
		return nil, err
	}

	gin.SetMode(props.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	return engine, nil
}

// Server 构造 Web 主机，容器里实现 Controller 的 Bean 自动挂载路由
func (a *AutoConfiguration) Server(engine *gin.Engine, env *config.Environment, container di.Container, logger logging.Logger) (*Host, error) {
	props := DefaultProperties()
	if err := env.Bind("web", &props); err != nil {
		return nil, err
	}

	host := &Host{
		port:      props.Port,
		engine:    engine,
		container: container,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", props.Port),
			Handler: engine,
		},
		logger: logger,
	}

	for _, name := range container.DefinitionNames() {
		def, ok := container.Definition(name)
		if !ok || def.Type == nil {
			continue
		}
		if def.Type.Implements(controllerType) {
			host.controllerTypes = append(host.controllerTypes, def.Type)
		}
	}

	return host, nil
}

// AutoConfigurationType 供 meta.Import 显式引入本模块的自动配置
func AutoConfigurationType() reflect.Type {
	return meta.TypeOf[*AutoConfiguration]()
}

func init() {
	meta.RegisterFor[AutoConfiguration](meta.Default(),
		meta.Configuration(),
		meta.Conditional(beans.OnProperty{Key: "web.port"}),
		meta.Bean("Engine", meta.WithBeanName("ginEngine")),
		meta.ConditionalMethod("Engine",
			beans.OnMissingBean{Type: meta.TypeOf[*gin.Engine]()}),
		meta.Bean("Server", meta.WithBeanName("webHost")),
		meta.ConditionalMethod("Server",
			beans.OnMissingBean{Type: meta.TypeOf[*Host]()}),
	)
	autoconfigure.Register((*AutoConfiguration)(nil))
}
