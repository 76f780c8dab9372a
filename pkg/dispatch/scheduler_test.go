package dispatch_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/dispatch"
	"github.com/dmitrymomot/notifykit/pkg/logger"
)

type countingProcessor struct {
	scans  atomic.Int32
	sweeps atomic.Int32
	err    error
}

func (p *countingProcessor) ProcessScheduledNotifications(context.Context) (dispatch.ScanResult, error) {
	p.scans.Add(1)
	return dispatch.ScanResult{}, p.err
}

func (p *countingProcessor) SweepExpired(context.Context) (int, error) {
	p.sweeps.Add(1)
	return 0, nil
}

func TestScheduler_RunsImmediatelyAndOnTick(t *testing.T) {
	t.Parallel()

	p := &countingProcessor{}
	s := dispatch.NewScheduler(p,
		dispatch.WithInterval(10*time.Millisecond),
		dispatch.WithSchedulerLogger(logger.Discard()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx)() }()

	require.Eventually(t, func() bool { return p.scans.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Positive(t, p.sweeps.Load())
}

func TestScheduler_StartReturnsContextError(t *testing.T) {
	t.Parallel()

	p := &countingProcessor{err: dispatch.ErrScanInProgress}
	s := dispatch.NewScheduler(p,
		dispatch.WithInterval(time.Hour),
		dispatch.WithExpirySweep(false),
		dispatch.WithSchedulerLogger(logger.Discard()),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.Start(ctx)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, int32(1), p.scans.Load())
	assert.Zero(t, p.sweeps.Load())
}
