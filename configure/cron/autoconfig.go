package cron

import (
	"reflect"

	"github.com/gocrud/ioc/autoconfigure"
	"github.com/gocrud/ioc/beans"
	"github.com/gocrud/ioc/config"
	"github.com/gocrud/ioc/logging"
	"github.com/gocrud/ioc/meta"
)

// Properties cron 配置节
type Properties struct {
	Enabled  bool   `json:"enabled"`
	Location string `json:"location"`
	Seconds  bool   `json:"seconds"`
}

// AutoConfiguration 基于 cron 配置节的自动配置类
// 仅在 cron.enabled=true 时生效；用户已注册 *Scheduler 时让位
type AutoConfiguration struct{}

// Scheduler 按配置节构造空调度器，任务由使用方运行期追加
func (a *AutoConfiguration) Scheduler(env *config.Environment, logger logging.Logger) (*Scheduler, error) {
	var props Properties
	if err := env.Bind("cron", &props); err != nil {
		return nil, err
	}
	return NewScheduler(logger, SchedulerOptions{
		Location: props.Location,
		Seconds:  props.Seconds,
	})
}

// AutoConfigurationType 供 meta.Import 显式引入本模块的自动配置
func AutoConfigurationType() reflect.Type {
	return meta.TypeOf[*AutoConfiguration]()
}

func init() {
	meta.RegisterFor[AutoConfiguration](meta.Default(),
		meta.Configuration(),
		meta.Conditional(beans.OnProperty{Key: "cron.enabled", HavingValue: "true"}),
		meta.Bean("Scheduler", meta.WithBeanName("cronScheduler")),
		meta.ConditionalMethod("Scheduler",
			beans.OnMissingBean{Type: meta.TypeOf[*Scheduler]()}),
	)
	autoconfigure.Register((*AutoConfiguration)(nil))
}
