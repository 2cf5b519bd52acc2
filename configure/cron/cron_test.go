package cron

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/ioc/config"
	"github.com/gocrud/ioc/core"
	"github.com/gocrud/ioc/di"
	"github.com/gocrud/ioc/logging"
	"github.com/gocrud/ioc/meta"
)

func TestScheduleAndUnschedule(t *testing.T) {
	s, err := NewScheduler(logging.NewLogger(), SchedulerOptions{Seconds: true})
	require.NoError(t, err)

	require.NoError(t, s.Schedule("* * * * * *", "tick", func() {}))
	assert.ElementsMatch(t, []string{"tick"}, s.JobNames())

	err = s.Schedule("not a spec", "broken", func() {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")

	// 重名任务替换而非叠加
	require.NoError(t, s.Schedule("* * * * * *", "tick", func() {}))
	assert.Len(t, s.JobNames(), 1)

	s.Unschedule("tick")
	assert.Empty(t, s.JobNames())

	// 移除不存在的任务不报错
	s.Unschedule("tick")
}

func TestSchedulerRejectsUnknownLocation(t *testing.T) {
	_, err := NewScheduler(logging.NewLogger(), SchedulerOptions{Location: "Mars/Olympus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "location")
}

func TestSchedulerRunsJobsUntilStopped(t *testing.T) {
	s, err := NewScheduler(logging.NewLogger(), SchedulerOptions{Seconds: true})
	require.NoError(t, err)

	var runs atomic.Int32
	require.NoError(t, s.Schedule("* * * * * *", "count", func() {
		runs.Add(1)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Start(ctx)
	}()

	assert.Eventually(t, func() bool {
		return runs.Load() >= 1
	}, 3*time.Second, 50*time.Millisecond)

	cancel()
	<-done

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	require.NoError(t, s.Stop(stopCtx))
}

func TestContainerInvokerRejectsNonFunction(t *testing.T) {
	_, err := containerInvoker(nil, logging.NewLogger(), "bad", "not a function")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a function")
}

type cronAppConfig struct{}

func init() {
	meta.RegisterFor[cronAppConfig](meta.Default(),
		meta.Configuration(),
		meta.Import(AutoConfigurationType()))
}

func TestAutoConfigurationProvidesScheduler(t *testing.T) {
	app, err := core.NewApplicationBuilder().
		ConfigureConfiguration(func(b *config.ConfigurationBuilder) {
			b.AddInMemory(map[string]any{
				"cron": map[string]any{"enabled": true, "seconds": true},
			})
		}).
		AddConfiguration(&cronAppConfig{}).
		Build()
	require.NoError(t, err)

	scheduler, err := di.ResolveNamed[*Scheduler](app.Services(), "cronScheduler")
	require.NoError(t, err)
	require.NoError(t, scheduler.Schedule("* * * * * *", "late", func() {}))
}

func TestAutoConfigurationSkippedWhenDisabled(t *testing.T) {
	app, err := core.NewApplicationBuilder().
		AddConfiguration(&cronAppConfig{}).
		Build()
	require.NoError(t, err)

	assert.False(t, app.Services().Contains("cronScheduler"))
}
