package refresh

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = time.Second

// advance moves the mock clock one interval at a time and waits for each
// callback so that no tick is dropped.
func advance(t *testing.T, mc *clock.Mock, s *Scheduler, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		want := s.Fires() + 1
		mc.Add(s.Interval())
		require.Eventually(t, func() bool { return s.Fires() == want }, waitFor, time.Millisecond)
	}
}

func TestScheduler_FiresOncePerInterval(t *testing.T) {
	mc := clock.NewMock()
	var calls int64
	s := New(3*time.Second, mc, func(context.Context) { atomic.AddInt64(&calls, 1) })

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	mc.Add(2 * time.Second)
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt64(&calls), "no callback before the first interval")

	mc.Add(time.Second)
	require.Eventually(t, func() bool { return atomic.LoadInt64(&calls) == 1 }, waitFor, time.Millisecond)

	advance(t, mc, s, 4)
	assert.Equal(t, int64(5), atomic.LoadInt64(&calls))
	assert.Equal(t, 5, s.Fires())
}

func TestScheduler_NoCallbacksAfterStop(t *testing.T) {
	mc := clock.NewMock()
	var calls int64
	s := New(3*time.Second, mc, func(context.Context) { atomic.AddInt64(&calls, 1) })

	require.NoError(t, s.Start(context.Background()))
	advance(t, mc, s, 3)
	s.Stop()
	assert.False(t, s.Running())

	for i := 0; i < 10; i++ {
		mc.Add(3 * time.Second)
	}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(3), atomic.LoadInt64(&calls))

	s.Stop()
}

func TestScheduler_StopWaitsForInFlightCallback(t *testing.T) {
	mc := clock.NewMock()
	entered := make(chan struct{})
	var finished int64
	s := New(time.Second, mc, func(ctx context.Context) {
		close(entered)
		<-ctx.Done()
		atomic.StoreInt64(&finished, 1)
	})

	require.NoError(t, s.Start(context.Background()))
	mc.Add(time.Second)
	<-entered

	s.Stop()
	assert.Equal(t, int64(1), atomic.LoadInt64(&finished))
}

func TestScheduler_StartTwice(t *testing.T) {
	s := New(time.Second, clock.NewMock(), func(context.Context) {})
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyRunning)
}

func TestScheduler_Restart(t *testing.T) {
	mc := clock.NewMock()
	s := New(time.Second, mc, func(context.Context) {})

	require.NoError(t, s.Start(context.Background()))
	advance(t, mc, s, 2)
	s.Stop()

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()
	advance(t, mc, s, 1)
	assert.Equal(t, 3, s.Fires())
}

func TestScheduler_IndependentInstances(t *testing.T) {
	mc := clock.NewMock()
	var a, b int64
	sa := New(3*time.Second, mc, func(context.Context) { atomic.AddInt64(&a, 1) })
	sb := New(3*time.Second, mc, func(context.Context) { atomic.AddInt64(&b, 1) })

	require.NoError(t, sa.Start(context.Background()))
	advance(t, mc, sa, 2)

	require.NoError(t, sb.Start(context.Background()))
	mc.Add(time.Second)
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt64(&b), "second scheduler has its own cadence origin")

	sa.Stop()
	mc.Add(2 * time.Second)
	require.Eventually(t, func() bool { return atomic.LoadInt64(&b) == 1 }, waitFor, time.Millisecond)
	sb.Stop()

	assert.Equal(t, int64(2), atomic.LoadInt64(&a))
}

func TestScheduler_ParentContextCancel(t *testing.T) {
	mc := clock.NewMock()
	ctx, cancel := context.WithCancel(context.Background())
	s := New(time.Second, mc, func(context.Context) {})

	require.NoError(t, s.Start(ctx))
	cancel()
	mc.Add(5 * time.Second)
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, s.Fires())
	s.Stop()
}

func TestNew_DefaultInterval(t *testing.T) {
	s := New(0, nil, func(context.Context) {})
	assert.Equal(t, DefaultInterval, s.Interval())
}
