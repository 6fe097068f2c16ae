// Package tap attaches consumers to the end points of signal paths each time
// the graph is built, and forgets them when it is torn down.
package tap

import (
	"context"
	"sync"

	"github.com/specialistvlad/scopyflow/internal/ctxlog"
	"github.com/specialistvlad/scopyflow/internal/flowgraph"
	"github.com/specialistvlad/scopyflow/internal/topblock"
)

// Endpointer is implemented by signal paths that expose their output.
type Endpointer interface {
	EndPoint() flowgraph.Endpoint
}

// Consumer receives the end points of signal paths.
type Consumer interface {
	// Attach connects blocks after end, the output of path, using
	// m.Connect. It runs on the control goroutine while the graph is stopped.
	Attach(m *topblock.Manager, path topblock.SignalPathNode, end flowgraph.Endpoint) error
	// Detach drops every block attached since the previous teardown.
	Detach()
}

// Tap feeds every enabled signal path to a Consumer after each build.
type Tap struct {
	m        *topblock.Manager
	consumer Consumer
	ctx      context.Context
	cancel   func()

	mu       sync.Mutex
	attached []string
}

// New subscribes to m. Close the tap to unsubscribe.
func New(ctx context.Context, m *topblock.Manager, c Consumer) *Tap {
	t := &Tap{m: m, consumer: c, ctx: ctx}
	t.cancel = m.Subscribe(t.handle)
	return t
}

func (t *Tap) handle(e topblock.Event) {
	switch e {
	case topblock.BuiltSignalPaths:
		t.attachAll()
	case topblock.TeardownSignalPaths:
		t.consumer.Detach()
		t.mu.Lock()
		t.attached = nil
		t.mu.Unlock()
	}
}

func (t *Tap) attachAll() {
	logger := ctxlog.FromContext(t.ctx)
	for _, p := range t.m.SignalPaths() {
		if !p.Enabled() {
			continue
		}
		ep, ok := p.(Endpointer)
		if !ok {
			continue
		}
		end := ep.EndPoint()
		if end.IsZero() {
			logger.Warn("Signal path has no end point, nothing to tap.", "path", p.Name())
			continue
		}
		if err := t.consumer.Attach(t.m, p, end); err != nil {
			logger.Error("Failed to tap signal path.", "path", p.Name(), "error", err)
			continue
		}
		t.mu.Lock()
		t.attached = append(t.attached, p.Name())
		t.mu.Unlock()
	}
}

// Attached returns the names of the paths tapped by the last build.
func (t *Tap) Attached() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.attached...)
}

func (t *Tap) Close() {
	t.cancel()
}
