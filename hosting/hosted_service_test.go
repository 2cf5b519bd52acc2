package hosting_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/ioc/hosting"
	"github.com/gocrud/ioc/logging"
)

type stubService struct {
	name     string
	startErr error
	started  chan struct{}
	stopped  chan struct{}
}

func newStubService(name string, startErr error) *stubService {
	return &stubService{
		name:     name,
		startErr: startErr,
		started:  make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

func (s *stubService) ServiceName() string { return s.name }

func (s *stubService) Start(ctx context.Context) error {
	close(s.started)
	if s.startErr != nil {
		return s.startErr
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *stubService) Stop(ctx context.Context) error {
	close(s.stopped)
	return nil
}

func TestManagerStartsAndStopsServices(t *testing.T) {
	manager := hosting.NewHostedServiceManager(logging.NewNopLogger())
	first := newStubService("first", nil)
	second := newStubService("second", nil)
	manager.Add(first)
	manager.Add(second)
	assert.Equal(t, 2, manager.Count())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := manager.StartAll(ctx)

	<-first.started
	<-second.started

	cancel()
	require.NoError(t, manager.StopAll(context.Background()))
	<-first.stopped
	<-second.stopped

	manager.Wait()

	// context 取消不算服务错误
	select {
	case err := <-errCh:
		t.Fatalf("unexpected service error: %v", err)
	default:
	}
}

func TestManagerReportsServiceFailure(t *testing.T) {
	manager := hosting.NewHostedServiceManager(logging.NewNopLogger())
	failure := errors.New("listen failed")
	manager.Add(newStubService("broken", failure))

	errCh := manager.StartAll(context.Background())

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, failure)
	case <-time.After(2 * time.Second):
		t.Fatal("expected service failure to surface")
	}
	manager.Wait()
}

func TestBackgroundServiceStopsOnSignal(t *testing.T) {
	svc := hosting.NewBackgroundService("bg", logging.NewNopLogger())

	done := make(chan error, 1)
	go func() {
		done <- svc.Start(context.Background())
	}()

	require.NoError(t, svc.Stop(context.Background()))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop")
	}
}

func TestTimedHostedServiceRunsTask(t *testing.T) {
	var runs atomic.Int32
	svc := hosting.NewTimedHostedService("ticker", 10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, logging.NewNopLogger())

	done := make(chan error, 1)
	go func() {
		done <- svc.Start(context.Background())
	}()

	assert.Eventually(t, func() bool {
		return runs.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, svc.Stop(context.Background()))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed service did not stop")
	}
}
