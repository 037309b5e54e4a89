package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrLauncherClosed is returned by Launch after Shutdown.
var ErrLauncherClosed = errors.New("analysis launcher is shut down")

// Runner executes the analysis workflow for one transcript.
type Runner func(ctx context.Context, transcriptID string)

// Launcher starts analysis runs as tracked goroutines so shutdown can wait
// for in-flight work.
type Launcher struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	runner Runner
	closed bool
	logger *slog.Logger
}

// NewLauncher creates a Launcher whose runs inherit parent.
func NewLauncher(parent context.Context, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Launcher{
		ctx:    ctx,
		cancel: cancel,
		logger: logger.With("component", "launcher"),
	}
}

// SetRunner sets the workflow executed for each launch.
func (l *Launcher) SetRunner(runner Runner) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runner = runner
}

// Launch starts the workflow for transcriptID in the background.
func (l *Launcher) Launch(transcriptID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrLauncherClosed
	}
	if l.runner == nil {
		return fmt.Errorf("analysis runner not configured")
	}

	runner := l.runner
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				l.logger.Error("analysis run panicked", "transcript_id", transcriptID, "panic", r)
			}
		}()
		runner(l.ctx, transcriptID)
	}()
	return nil
}

// Wait blocks until every launched run has returned.
func (l *Launcher) Wait() {
	l.wg.Wait()
}

// Shutdown refuses new launches and waits for in-flight runs until ctx is
// done, at which point the runs are cancelled.
func (l *Launcher) Shutdown(ctx context.Context) error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		l.cancel()
		return nil
	case <-ctx.Done():
		l.cancel()
		<-done
		return ctx.Err()
	}
}
