package topblock

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/scopyflow/internal/blocks"
	"github.com/specialistvlad/scopyflow/internal/ctxlog"
	"github.com/specialistvlad/scopyflow/internal/flowgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// journal records node and engine activity in order.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	j.entries = append(j.entries, s)
	j.mu.Unlock()
}

func (j *journal) take() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := j.entries
	j.entries = nil
	return out
}

// fakePath wires "<name>.gen -> <name>.sink" when connected.
type fakePath struct {
	name    string
	enabled bool
	log     *journal
	failing bool
	blocks  []flowgraph.Block
}

func newFakePath(name string, log *journal) *fakePath {
	return &fakePath{name: name, enabled: true, log: log}
}

func (p *fakePath) Name() string  { return p.name }
func (p *fakePath) Enabled() bool { return p.enabled }

func (p *fakePath) Connect(g *flowgraph.Graph, _ flowgraph.Endpoint) error {
	p.log.add("connect:" + p.name)
	if p.failing {
		return errors.New("hardware vanished")
	}
	gen := blocks.NewSignalSource(p.name+".gen", blocks.SourceParams{Waveform: blocks.WaveConst, Amplitude: 1})
	sink := blocks.NewNullSink(p.name+".sink", 1)
	p.blocks = []flowgraph.Block{gen, sink}
	return g.Connect(gen, 0, sink, 0)
}

func (p *fakePath) Disconnect(g *flowgraph.Graph) error {
	p.log.add("disconnect:" + p.name)
	for _, b := range p.blocks {
		if _, err := g.DisconnectBlock(b); err != nil {
			return err
		}
	}
	p.blocks = nil
	return nil
}

// fakeSource allocates its generator in Build and wires it in Connect.
type fakeSource struct {
	fakePath
	gen  flowgraph.Block
	fail bool
	// half makes Connect fail after wiring its first edge.
	half bool
}

func newFakeSource(name string, log *journal) *fakeSource {
	return &fakeSource{fakePath: fakePath{name: name, enabled: true, log: log}}
}

func (s *fakeSource) Build(*flowgraph.Graph) error {
	s.log.add("build:" + s.name)
	if s.fail {
		return errors.New("no such device")
	}
	s.gen = blocks.NewSignalSource(s.name+".gen", blocks.SourceParams{Waveform: blocks.WaveConst, Amplitude: 1})
	return nil
}

func (s *fakeSource) Connect(g *flowgraph.Graph, _ flowgraph.Endpoint) error {
	s.log.add("connect:" + s.name)
	sink := blocks.NewNullSink(s.name+".sink", 1)
	s.blocks = []flowgraph.Block{s.gen, sink}
	if err := g.Connect(s.gen, 0, sink, 0); err != nil {
		return err
	}
	if s.half {
		return errors.New("second channel missing")
	}
	return nil
}

func (s *fakeSource) Destroy(*flowgraph.Graph) error {
	if s.gen == nil {
		return nil
	}
	s.log.add("destroy:" + s.name)
	s.gen = nil
	return nil
}

func (s *fakeSource) Built() bool { return s.gen != nil }

// connectedNodes returns the sorted node names present in g's edges.
func connectedNodes(g *flowgraph.Graph) []string {
	var names []string
	for _, b := range g.Blocks() {
		node, _, _ := strings.Cut(b.Name(), ".")
		if !slices.Contains(names, node) {
			names = append(names, node)
		}
	}
	slices.Sort(names)
	return names
}

func newManager(t *testing.T) (*Manager, *journal) {
	t.Helper()
	m := New(context.Background(), "top")
	log := &journal{}
	cancel := m.Subscribe(func(e Event) {
		switch e {
		case Started, Stopped, TeardownSignalPaths, BuiltSignalPaths:
			log.add(e.String())
		}
		// Never observable: running without being built.
		if m.Running() && !m.Built() {
			t.Errorf("running while not built at %s", e)
		}
	})
	t.Cleanup(func() {
		cancel()
		_ = m.Stop()
	})
	return m, log
}

func TestScenarioRegisterWhileRunning(t *testing.T) {
	m, log := newManager(t)
	a := newFakeSource("a", log)
	b := newFakePath("b", log)

	m.RegisterDeviceSource(a)
	assert.True(t, m.Built())
	assert.Equal(t, []string{"a"}, connectedNodes(m.Graph()))

	m.RegisterSignalPath(b)
	assert.True(t, m.Built())
	assert.False(t, m.Running())
	assert.Equal(t, []string{"a", "b"}, connectedNodes(m.Graph()))

	require.NoError(t, m.Start())
	assert.True(t, m.Running())
	log.take()

	m.UnregisterDeviceSource(a)
	assert.True(t, m.Running())
	assert.Equal(t, []string{"b"}, connectedNodes(m.Graph()))
	assert.Equal(t, []string{
		"stopped",
		"disconnect:b", "disconnect:a", "destroy:a",
		"teardown_signal_paths",
		"connect:b",
		"built_signal_paths",
		"started",
	}, log.take())
}

func TestScenarioSuspendCoalescing(t *testing.T) {
	m, log := newManager(t)
	b := newFakePath("b", log)
	m.RegisterSignalPath(b)
	require.NoError(t, m.Start())
	log.take()

	builds := 0
	cancel := m.Subscribe(func(e Event) {
		if e == BuiltSignalPaths {
			builds++
		}
	})
	defer cancel()

	m.SuspendBuild()
	m.UnregisterSignalPath(b)
	m.RegisterSignalPath(newFakePath("c", log))
	m.RegisterSignalPath(newFakePath("d", log))
	assert.Zero(t, builds)
	assert.Equal(t, []string{"b"}, connectedNodes(m.Graph()), "suspended changes leave the graph alone")
	m.UnsuspendBuild()

	assert.Equal(t, 1, builds)
	assert.Equal(t, []string{"c", "d"}, connectedNodes(m.Graph()))
	assert.True(t, m.Running())

	entries := log.take()
	assert.Equal(t, 1, count(entries, "teardown_signal_paths"))
	assert.Equal(t, 1, count(entries, "built_signal_paths"))

	// Unsuspending again does nothing.
	m.UnsuspendBuild()
	assert.Equal(t, 1, builds)
}

func count(entries []string, s string) int {
	n := 0
	for _, e := range entries {
		if e == s {
			n++
		}
	}
	return n
}

func TestSuspendMatchesSequential(t *testing.T) {
	apply := func(m *Manager, log *journal) {
		x, y, z := newFakePath("x", log), newFakePath("y", log), newFakeSource("z", log)
		m.RegisterSignalPath(x)
		m.RegisterDeviceSource(z)
		m.RegisterSignalPath(y)
		m.UnregisterSignalPath(x)
		y.enabled = false
		m.RegisterSignalPath(newFakePath("w", log))
	}

	seq, seqLog := newManager(t)
	apply(seq, seqLog)

	batch, batchLog := newManager(t)
	batch.SuspendBuild()
	apply(batch, batchLog)
	batch.UnsuspendBuild()

	assert.Equal(t, connectedNodes(seq.Graph()), connectedNodes(batch.Graph()))
	assert.Equal(t, []string{"w", "z"}, connectedNodes(batch.Graph()))
}

func TestNoDanglingConnections(t *testing.T) {
	m, log := newManager(t)
	nodes := map[string]*fakePath{}
	for _, n := range []string{"p0", "p1", "p2", "p3"} {
		nodes[n] = newFakePath(n, log)
	}
	src := newFakeSource("s0", log)

	type step struct {
		op   string
		node string
	}
	steps := []step{
		{"reg", "p0"}, {"reg", "p1"}, {"src", "s0"}, {"start", ""}, {"unreg", "p0"},
		{"reg", "p2"}, {"disable", "p1"}, {"reg", "p3"}, {"unsrc", "s0"}, {"unreg", "p2"},
		{"enable", "p1"}, {"reg", "p0"}, {"stop", ""}, {"unreg", "p3"},
	}

	registered := map[string]bool{}
	for _, s := range steps {
		switch s.op {
		case "reg":
			m.RegisterSignalPath(nodes[s.node])
			registered[s.node] = true
		case "unreg":
			m.UnregisterSignalPath(nodes[s.node])
			delete(registered, s.node)
		case "src":
			m.RegisterDeviceSource(src)
			registered[s.node] = true
		case "unsrc":
			m.UnregisterDeviceSource(src)
			delete(registered, s.node)
		case "disable", "enable":
			nodes[s.node].enabled = s.op == "enable"
			m.RequestRebuild()
		case "start":
			require.NoError(t, m.Start())
		case "stop":
			require.NoError(t, m.Stop())
		}

		var want []string
		for n := range registered {
			if p, ok := nodes[n]; ok && !p.enabled {
				continue
			}
			want = append(want, n)
		}
		slices.Sort(want)
		assert.Equal(t, want, connectedNodes(m.Graph()), "after %s %s", s.op, s.node)
		assert.False(t, m.Running() && !m.Built())
	}
}

func TestStopBeforeMutate(t *testing.T) {
	m, log := newManager(t)
	m.RegisterDeviceSource(newFakeSource("a", log))
	m.RegisterSignalPath(newFakePath("b", log))
	require.NoError(t, m.Start())
	log.take()

	m.Rebuild()

	entries := log.take()
	require.NotEmpty(t, entries)
	stopped := slices.Index(entries, "stopped")
	require.GreaterOrEqual(t, stopped, 0)
	for i, e := range entries {
		if strings.HasPrefix(e, "disconnect:") || strings.HasPrefix(e, "destroy:") {
			assert.Greater(t, i, stopped, "%s issued before the engine stopped", e)
		}
	}
	assert.True(t, m.Running())
}

func TestBestEffortBuild(t *testing.T) {
	m, log := newManager(t)
	broken := newFakeSource("broken", log)
	broken.fail = true
	flaky := newFakePath("flaky", log)
	flaky.failing = true

	m.SuspendBuild()
	m.RegisterDeviceSource(broken)
	m.RegisterSignalPath(flaky)
	m.RegisterSignalPath(newFakePath("ok", log))
	m.UnsuspendBuild()

	assert.True(t, m.Built())
	assert.Equal(t, []string{"ok"}, connectedNodes(m.Graph()))
	assert.NotContains(t, log.take(), "connect:broken", "a source that fails to build is not connected")

	require.NoError(t, m.Start())
	assert.True(t, m.Running())
}

func TestFailedSourceIsRolledBack(t *testing.T) {
	m, log := newManager(t)
	half := newFakeSource("half", log)
	half.half = true
	broken := newFakeSource("broken", log)
	broken.fail = true

	m.SuspendBuild()
	m.RegisterDeviceSource(half)
	m.RegisterDeviceSource(broken)
	m.RegisterSignalPath(newFakePath("ok", log))
	m.UnsuspendBuild()

	entries := log.take()
	assert.Contains(t, entries, "disconnect:half")
	assert.Contains(t, entries, "destroy:half")
	assert.False(t, half.Built())
	assert.False(t, broken.Built())
	assert.Equal(t, []string{"ok"}, connectedNodes(m.Graph()))

	require.NoError(t, m.Start())
	assert.True(t, m.Running())
}

func TestIdempotentOperations(t *testing.T) {
	m, log := newManager(t)
	p := newFakePath("p", log)

	t.Run("duplicate registration", func(t *testing.T) {
		m.RegisterSignalPath(p)
		log.take()
		m.RegisterSignalPath(p)
		assert.Empty(t, log.take())
		assert.Len(t, m.SignalPaths(), 1)
	})

	t.Run("unknown unregistration", func(t *testing.T) {
		m.UnregisterSignalPath(newFakePath("ghost", log))
		m.UnregisterDeviceSource(newFakeSource("ghost", log))
		assert.Empty(t, log.take())
	})

	t.Run("disconnect twice", func(t *testing.T) {
		g := flowgraph.New("scratch")
		q := newFakePath("q", log)
		require.NoError(t, q.Connect(g, flowgraph.Endpoint{}))
		require.NoError(t, q.Disconnect(g))
		before := g.EdgeList()
		require.NoError(t, q.Disconnect(g))
		assert.Equal(t, before, g.EdgeList())
	})

	t.Run("start and stop", func(t *testing.T) {
		require.NoError(t, m.Stop())
		require.NoError(t, m.Start())
		require.NoError(t, m.Start())
		assert.True(t, m.Running())
		require.NoError(t, m.Stop())
		require.NoError(t, m.Stop())
		assert.False(t, m.Running())
		assert.True(t, m.Built())
	})

	t.Run("teardown stops first", func(t *testing.T) {
		require.NoError(t, m.Start())
		m.Teardown()
		assert.False(t, m.Running())
		assert.False(t, m.Built())
		assert.Empty(t, m.Graph().Edges())
		m.Teardown()
	})
}

func TestStartBuildsFromIdle(t *testing.T) {
	m, log := newManager(t)
	m.SuspendBuild()
	m.RegisterSignalPath(newFakePath("p", log))
	assert.False(t, m.Built())
	assert.True(t, m.Suspended())

	require.NoError(t, m.Start())
	assert.True(t, m.Built())
	assert.True(t, m.Running())

	m.UnsuspendBuild()
	assert.True(t, m.Running())
	assert.Equal(t, []string{"p"}, connectedNodes(m.Graph()))
}

func TestRequestRebuildOnlyWhenBuilt(t *testing.T) {
	m, log := newManager(t)
	m.RequestRebuild()
	assert.False(t, m.Built())

	m.RegisterSignalPath(newFakePath("p", log))
	log.take()
	m.RequestRebuild()
	assert.Equal(t, []string{"disconnect:p", "teardown_signal_paths", "connect:p", "built_signal_paths"}, log.take())
}

func TestRun(t *testing.T) {
	m, log := newManager(t)
	m.RegisterSignalPath(newFakePath("p", log))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.NoError(t, m.Run(ctx))
	assert.False(t, m.Running())
}

func TestConnectPassThrough(t *testing.T) {
	m, _ := newManager(t)
	src := blocks.NewSignalSource("src", blocks.SourceParams{})
	vec := blocks.NewVectorSink("vec", 4)
	assert.ErrorIs(t, m.Connect(src, 0, vec, 0), flowgraph.ErrSignatureMismatch)
	require.NoError(t, m.Connect(src, 0, blocks.NewNullSink("null", 1), 0))
}

func TestEventOrder(t *testing.T) {
	m, _ := newManager(t)
	var got []Event
	cancel := m.Subscribe(func(e Event) { got = append(got, e) })

	m.RegisterSignalPath(newFakePath("p", &journal{}))
	require.NoError(t, m.Start())
	require.NoError(t, m.Stop())
	m.Teardown()
	cancel()
	m.Build()

	assert.Equal(t, []Event{
		AboutToBuild, BuiltSignalPaths,
		AboutToStart, Started,
		AboutToStop, Stopped,
		AboutToTeardown, TeardownSignalPaths,
	}, got)
}

func TestForeignGoroutineIsReported(t *testing.T) {
	var buf lockedBuffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	m := New(ctxlog.WithLogger(context.Background(), logger), "top")

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.RequestRebuild()
	}()
	<-done

	assert.Contains(t, buf.String(), "outside its control goroutine")
	assert.Contains(t, buf.String(), "op=RequestRebuild")
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
