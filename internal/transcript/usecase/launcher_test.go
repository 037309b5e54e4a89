package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLauncherRunsAndWaits(t *testing.T) {
	l := NewLauncher(context.Background(), nil)
	var ran int32
	l.SetRunner(func(ctx context.Context, id string) {
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&ran, 1)
	})

	require.NoError(t, l.Launch("a"))
	require.NoError(t, l.Launch("b"))
	l.Wait()
	assert.EqualValues(t, 2, atomic.LoadInt32(&ran))
}

func TestLauncherRefusesAfterShutdown(t *testing.T) {
	l := NewLauncher(context.Background(), nil)
	l.SetRunner(func(context.Context, string) {})
	require.NoError(t, l.Shutdown(context.Background()))

	err := l.Launch("a")
	assert.True(t, errors.Is(err, ErrLauncherClosed))
}

func TestLauncherShutdownCancelsOnDeadline(t *testing.T) {
	l := NewLauncher(context.Background(), nil)
	l.SetRunner(func(ctx context.Context, id string) {
		<-ctx.Done()
	})
	require.NoError(t, l.Launch("slow"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Shutdown(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestLauncherRecoversPanics(t *testing.T) {
	l := NewLauncher(context.Background(), nil)
	l.SetRunner(func(context.Context, string) { panic("boom") })
	require.NoError(t, l.Launch("a"))
	l.Wait()
}

func TestLauncherWithoutRunner(t *testing.T) {
	l := NewLauncher(context.Background(), nil)
	assert.Error(t, l.Launch("a"))
}
