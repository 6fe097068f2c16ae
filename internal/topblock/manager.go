package topblock

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
	"github.com/specialistvlad/scopyflow/internal/ctxlog"
	"github.com/specialistvlad/scopyflow/internal/flowgraph"
)

// Manager is the single authority over one flowgraph's lifecycle.
type Manager struct {
	graph  *flowgraph.Graph
	ctx    context.Context
	logger *slog.Logger
	// owner is the id of the control goroutine.
	owner int64

	running   atomic.Bool
	built     atomic.Bool
	suspended atomic.Bool
	pending   atomic.Bool

	// mu protects the registrations and the listener list. It is never held
	// while calling into nodes or listeners.
	mu           sync.Mutex
	paths        []SignalPathNode
	sources      []DeviceSourceNode
	listeners    []listener
	nextListener int

	// Nodes wired by the last Build, used by Teardown so that nodes
	// unregistered in between are still disconnected.
	builtPaths   []SignalPathNode
	builtSources []DeviceSourceNode
}

// New creates a Manager owning an empty graph called name. The calling
// goroutine becomes the control goroutine. ctx supplies the logger and is
// the parent context of every engine run.
func New(ctx context.Context, name string) *Manager {
	logger := ctxlog.FromContext(ctx).With("topblock", name)
	return &Manager{
		graph:  flowgraph.New(name),
		ctx:    ctxlog.WithLogger(ctx, logger),
		logger: logger,
		owner:  goid.Get(),
	}
}

// Graph returns the managed graph. Its identity never changes.
func (m *Manager) Graph() *flowgraph.Graph {
	return m.graph
}

func (m *Manager) Name() string {
	return m.graph.Name()
}

func (m *Manager) Running() bool   { return m.running.Load() }
func (m *Manager) Built() bool     { return m.built.Load() }
func (m *Manager) Suspended() bool { return m.suspended.Load() }

// checkOwner reports calls made outside the control goroutine. The call is
// still served.
func (m *Manager) checkOwner(op string) {
	if id := goid.Get(); id != m.owner {
		m.logger.Error("Manager used outside its control goroutine.", "op", op, "owner", m.owner, "caller", id)
	}
}

// SignalPaths returns the registered signal paths in registration order.
func (m *Manager) SignalPaths() []SignalPathNode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.paths)
}

// DeviceSources returns the registered device sources in registration order.
func (m *Manager) DeviceSources() []DeviceSourceNode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.sources)
}

// RegisterSignalPath adds p and rebuilds. Registering the same node twice is
// a no-op.
func (m *Manager) RegisterSignalPath(p SignalPathNode) {
	m.checkOwner("RegisterSignalPath")

	m.mu.Lock()
	if slices.Contains(m.paths, p) {
		m.mu.Unlock()
		return
	}
	m.paths = append(m.paths, p)
	m.mu.Unlock()

	m.logger.Debug("Signal path registered.", "path", p.Name())
	if a, ok := p.(Attachable); ok {
		a.Attach(m)
	}
	m.Rebuild()
}

// UnregisterSignalPath removes p and rebuilds. Unknown nodes are ignored.
func (m *Manager) UnregisterSignalPath(p SignalPathNode) {
	m.checkOwner("UnregisterSignalPath")

	m.mu.Lock()
	i := slices.Index(m.paths, p)
	if i < 0 {
		m.mu.Unlock()
		return
	}
	m.paths = slices.Delete(m.paths, i, i+1)
	m.mu.Unlock()

	m.logger.Debug("Signal path unregistered.", "path", p.Name())
	if a, ok := p.(Attachable); ok {
		a.Detach()
	}
	m.Rebuild()
}

// RegisterDeviceSource adds d and rebuilds. Registering the same node twice
// is a no-op.
func (m *Manager) RegisterDeviceSource(d DeviceSourceNode) {
	m.checkOwner("RegisterDeviceSource")

	m.mu.Lock()
	if slices.Contains(m.sources, d) {
		m.mu.Unlock()
		return
	}
	m.sources = append(m.sources, d)
	m.mu.Unlock()

	m.logger.Debug("Device source registered.", "source", d.Name())
	if a, ok := d.(Attachable); ok {
		a.Attach(m)
	}
	m.Rebuild()
}

// UnregisterDeviceSource removes d and rebuilds. Unknown nodes are ignored.
func (m *Manager) UnregisterDeviceSource(d DeviceSourceNode) {
	m.checkOwner("UnregisterDeviceSource")

	m.mu.Lock()
	i := slices.Index(m.sources, d)
	if i < 0 {
		m.mu.Unlock()
		return
	}
	m.sources = slices.Delete(m.sources, i, i+1)
	m.mu.Unlock()

	m.logger.Debug("Device source unregistered.", "source", d.Name())
	if a, ok := d.(Attachable); ok {
		a.Detach()
	}
	m.Rebuild()
}

// SuspendBuild defers rebuilds until UnsuspendBuild.
func (m *Manager) SuspendBuild() {
	m.checkOwner("SuspendBuild")
	m.suspended.Store(true)
}

// UnsuspendBuild leaves the suspended state and performs the deferred
// rebuild, if any was requested.
func (m *Manager) UnsuspendBuild() {
	m.checkOwner("UnsuspendBuild")
	if !m.suspended.Swap(false) {
		return
	}
	if m.pending.Swap(false) {
		m.Rebuild()
	}
}

// RequestRebuild rebuilds only when the graph is currently built. Nodes call
// it after a change to their enabled state or wiring.
func (m *Manager) RequestRebuild() {
	m.checkOwner("RequestRebuild")
	if !m.built.Load() {
		return
	}
	m.Rebuild()
}

// Rebuild reconciles the graph with the current registrations: stop, tear
// down, build, and restart if the engine was running. While suspended only a
// pending flag is recorded. Rebuild never fails; node errors are logged.
func (m *Manager) Rebuild() {
	m.checkOwner("Rebuild")
	if m.suspended.Load() {
		m.pending.Store(true)
		m.logger.Debug("Rebuild deferred while suspended.")
		return
	}

	wasRunning := m.running.Load()
	if wasRunning {
		if err := m.Stop(); err != nil {
			m.logger.Warn("Engine reported an error while stopping for rebuild.", "error", err)
		}
	}
	if m.built.Load() {
		m.Teardown()
	}
	m.Build()
	if wasRunning {
		if err := m.Start(); err != nil {
			m.logger.Error("Failed to restart engine after rebuild.", "error", err)
		}
	}
}

// Build connects every registered node into the graph: device sources are
// built and connected first, then every enabled signal path. Failing nodes
// are logged and skipped: a failed device source is disconnected and
// destroyed, and a failed path has already undone its own wiring. Building
// an already built graph is a no-op.
func (m *Manager) Build() {
	m.checkOwner("Build")
	if m.built.Load() {
		return
	}

	m.emit(AboutToBuild)

	m.mu.Lock()
	sources := slices.Clone(m.sources)
	paths := slices.Clone(m.paths)
	m.mu.Unlock()

	var builtSources []DeviceSourceNode
	for _, d := range sources {
		builtSources = append(builtSources, d)
		if err := d.Build(m.graph); err != nil {
			m.logger.Error("Device source failed to build.", "source", d.Name(), "error", err)
			m.dropSource(d)
			continue
		}
		if err := d.Connect(m.graph, flowgraph.Endpoint{}); err != nil {
			m.logger.Error("Device source failed to connect.", "source", d.Name(), "error", err)
			m.dropSource(d)
		}
	}

	var builtPaths []SignalPathNode
	for _, p := range paths {
		if !p.Enabled() {
			continue
		}
		builtPaths = append(builtPaths, p)
		if err := p.Connect(m.graph, flowgraph.Endpoint{}); err != nil {
			m.logger.Error("Signal path failed to connect.", "path", p.Name(), "error", err)
		}
	}

	m.builtSources = builtSources
	m.builtPaths = builtPaths
	m.built.Store(true)
	m.logger.Debug("Graph built.", "sources", len(builtSources), "paths", len(builtPaths))

	m.emit(BuiltSignalPaths)
}

// dropSource undoes whatever a failed Build or Connect left of d, so its
// blocks never reach validation.
func (m *Manager) dropSource(d DeviceSourceNode) {
	if err := d.Disconnect(m.graph); err != nil {
		m.logger.Warn("Device source failed to roll back.", "source", d.Name(), "error", err)
	}
	if err := d.Destroy(m.graph); err != nil {
		m.logger.Warn("Device source failed to roll back.", "source", d.Name(), "error", err)
	}
}

// Teardown disconnects every node wired by the last Build, destroys the
// device sources and clears all remaining connections. The engine is
// stopped first if it is running. Tearing down an unbuilt graph is a no-op.
func (m *Manager) Teardown() {
	m.checkOwner("Teardown")
	if !m.built.Load() {
		return
	}
	if m.running.Load() {
		if err := m.Stop(); err != nil {
			m.logger.Warn("Engine reported an error while stopping for teardown.", "error", err)
		}
	}

	m.emit(AboutToTeardown)

	for _, p := range m.builtPaths {
		if err := p.Disconnect(m.graph); err != nil {
			m.logger.Error("Signal path failed to disconnect.", "path", p.Name(), "error", err)
		}
	}
	for _, d := range m.builtSources {
		if err := d.Disconnect(m.graph); err != nil {
			m.logger.Error("Device source failed to disconnect.", "source", d.Name(), "error", err)
		}
		if err := d.Destroy(m.graph); err != nil {
			m.logger.Error("Device source failed to release its blocks.", "source", d.Name(), "error", err)
		}
	}
	if err := m.graph.DisconnectAll(); err != nil {
		m.logger.Error("Failed to clear graph connections.", "error", err)
	}

	m.builtPaths = nil
	m.builtSources = nil
	m.built.Store(false)
	m.logger.Debug("Graph torn down.")

	m.emit(TeardownSignalPaths)
}

// Start builds the graph if needed and starts the engine. Starting a running
// engine is a no-op.
func (m *Manager) Start() error {
	m.checkOwner("Start")
	if m.running.Load() {
		return nil
	}
	if !m.built.Load() {
		m.Build()
	}

	m.emit(AboutToStart)
	if err := m.graph.Start(m.ctx); err != nil {
		m.logger.Error("Engine failed to start.", "error", err)
		return err
	}
	m.running.Store(true)
	m.logger.Info("Engine started.")
	m.emit(Started)
	return nil
}

// Stop halts the engine and blocks until every block has returned. Stopping
// an idle engine is a no-op. The returned error is the engine's run error.
func (m *Manager) Stop() error {
	m.checkOwner("Stop")
	if !m.running.Load() {
		return nil
	}

	m.emit(AboutToStop)
	err := m.graph.Stop()
	m.running.Store(false)
	m.logger.Info("Engine stopped.")
	m.emit(Stopped)
	return err
}

// Run starts the engine and blocks until it finishes on its own or ctx is
// done, then stops it.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.Start(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- m.graph.Wait() }()

	var runErr error
	select {
	case runErr = <-done:
	case <-ctx.Done():
	}
	if err := m.Stop(); runErr == nil && !errors.Is(err, context.Canceled) {
		runErr = err
	}
	return runErr
}

// Connect is a pass-through to the graph, for listeners attaching blocks to
// a built graph.
func (m *Manager) Connect(src flowgraph.Block, srcPort int, dst flowgraph.Block, dstPort int) error {
	return m.graph.Connect(src, srcPort, dst, dstPort)
}
