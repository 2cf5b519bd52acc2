package cron

import (
	"fmt"
	"reflect"

	"github.com/gocrud/ioc/di"
	"github.com/gocrud/ioc/logging"
)

// Builder Cron 配置构建器
type Builder struct {
	opts SchedulerOptions
	jobs []jobEntry
}

// jobEntry 待注册的任务
type jobEntry struct {
	spec    string
	name    string
	handler any // func() 或参数从容器解析的函数
}

// NewBuilder 创建 Cron 构建器
func NewBuilder() *Builder {
	return &Builder{}
}

// WithSeconds 启用秒级表达式
func (b *Builder) WithSeconds() *Builder {
	b.opts.Seconds = true
	return b
}

// WithLocation 设置时区
func (b *Builder) WithLocation(location string) *Builder {
	b.opts.Location = location
	return b
}

// TraceScheduling 接入 cron 库的内部调度日志
func (b *Builder) TraceScheduling() *Builder {
	b.opts.TraceScheduling = true
	return b
}

// AddJob 添加无依赖任务
func (b *Builder) AddJob(spec, name string, handler func()) *Builder {
	b.jobs = append(b.jobs, jobEntry{spec: spec, name: name, handler: handler})
	return b
}

// AddJobWithDI 添加依赖注入任务；handler 的每个参数按类型从容器解析
//
// 示例：
//
//	builder.AddJobWithDI("0 */5 * * * *", "sync", func(svc *SyncService) { svc.Run() })
func (b *Builder) AddJobWithDI(spec, name string, handler any) *Builder {
	b.jobs = append(b.jobs, jobEntry{spec: spec, name: name, handler: handler})
	return b
}

// build 装配调度器并注册全部任务
func (b *Builder) build(container di.Container, logger logging.Logger) (*Scheduler, error) {
	scheduler, err := NewScheduler(logger, b.opts)
	if err != nil {
		return nil, err
	}

	for _, job := range b.jobs {
		fn, ok := job.handler.(func())
		if !ok {
			if fn, err = containerInvoker(container, logger, job.name, job.handler); err != nil {
				return nil, err
			}
		}
		if err := scheduler.Schedule(job.spec, job.name, fn); err != nil {
			return nil, err
		}
	}
	return scheduler, nil
}

// containerInvoker 把任意函数包成无参任务，参数运行时按类型解析
func containerInvoker(container di.Container, logger logging.Logger, name string, handler any) (func(), error) {
	hv := reflect.ValueOf(handler)
	ht := hv.Type()
	if ht.Kind() != reflect.Func {
		return nil, fmt.Errorf("cron: job '%s' handler must be a function, got %s", name, ht.Kind())
	}

	return func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("cron job panicked",
					logging.Field{Key: "job", Value: name},
					logging.Field{Key: "panic", Value: r})
			}
		}()

		args := make([]reflect.Value, ht.NumIn())
		for i := range args {
			instance, err := container.Get(ht.In(i))
			if err != nil {
				logger.Error("cron job dependency unresolved",
					logging.Field{Key: "job", Value: name},
					logging.Field{Key: "type", Value: ht.In(i).String()},
					logging.Field{Key: "error", Value: err.Error()})
				return
			}
			args[i] = reflect.ValueOf(instance)
		}
		hv.Call(args)
	}, nil
}
