package scan

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/specialistvlad/scopyflow/internal/ctxlog"
)

const (
	// DefaultPeriod is the time between two scans.
	DefaultPeriod = 5 * time.Second
	// DefaultStopTimeout bounds how long Stop waits for an in-flight scan.
	DefaultStopTimeout = 30 * time.Second
)

// ErrStopTimeout is returned by Stop when the scan goroutine did not finish
// in time.
var ErrStopTimeout = errors.New("scan: timed out waiting for scanner to stop")

// Scanner performs one synchronous discovery pass.
type Scanner interface {
	Scan(ctx context.Context) ([]string, error)
}

// ScannerFunc adapts a function to Scanner.
type ScannerFunc func(ctx context.Context) ([]string, error)

func (f ScannerFunc) Scan(ctx context.Context) ([]string, error) {
	return f(ctx)
}

// Result is the outcome of one scan.
type Result struct {
	URIs []string
	Err  error
	At   time.Time
}

// Options configure an Engine.
type Options struct {
	Period      time.Duration
	StopTimeout time.Duration
}

// Engine runs a Scanner periodically. Start and Stop may be called
// repeatedly; Results stays the same channel for the engine's lifetime.
type Engine struct {
	scanner     Scanner
	period      time.Duration
	stopTimeout time.Duration
	results     chan Result

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	// scanMu serializes scans between the loop and ScanOnce.
	scanMu sync.Mutex
}

func NewEngine(s Scanner, opts Options) *Engine {
	if opts.Period <= 0 {
		opts.Period = DefaultPeriod
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = DefaultStopTimeout
	}
	return &Engine{
		scanner:     s,
		period:      opts.Period,
		stopTimeout: opts.StopTimeout,
		results:     make(chan Result, 1),
	}
}

// Results delivers scan results. Only the latest undelivered result is kept.
func (e *Engine) Results() <-chan Result {
	return e.results
}

// Running reports whether the scan loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done != nil
}

// Start launches the scan loop. The first scan happens immediately.
// Starting a running engine is a no-op.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.done != nil {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	go e.loop(loopCtx, e.done)
	ctxlog.FromContext(ctx).Debug("Scan engine started.", "period", e.period)
}

func (e *Engine) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(e.period)
	defer ticker.Stop()

	for {
		e.publish(e.ScanOnce(ctx))
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ScanOnce runs a single scan on the calling goroutine. Scans never overlap.
func (e *Engine) ScanOnce(ctx context.Context) Result {
	e.scanMu.Lock()
	defer e.scanMu.Unlock()

	uris, err := e.scanner.Scan(ctx)
	uris = slices.Clone(uris)
	slices.Sort(uris)
	uris = slices.Compact(uris)
	if err != nil {
		ctxlog.FromContext(ctx).Debug("Scan finished with errors.", "found", len(uris), "error", err)
	}
	return Result{URIs: uris, Err: err, At: time.Now()}
}

// publish replaces an unconsumed result with r.
func (e *Engine) publish(r Result) {
	for {
		select {
		case e.results <- r:
			return
		default:
		}
		select {
		case <-e.results:
		default:
		}
	}
}

// Stop cancels the loop and waits for it to exit, at most the configured
// stop timeout. Stopping an idle engine is a no-op.
func (e *Engine) Stop() error {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.mu.Unlock()

	if done == nil {
		return nil
	}
	cancel()

	timer := time.NewTimer(e.stopTimeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		return fmt.Errorf("%w after %s", ErrStopTimeout, e.stopTimeout)
	}

	e.mu.Lock()
	if e.done == done {
		e.cancel, e.done = nil, nil
	}
	e.mu.Unlock()
	return nil
}
