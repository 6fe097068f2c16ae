package tap

import (
	"sync"

	"github.com/specialistvlad/scopyflow/internal/blocks"
	"github.com/specialistvlad/scopyflow/internal/flowgraph"
	"github.com/specialistvlad/scopyflow/internal/topblock"
)

// Capture collects a fixed number of vectors from every tapped path. Each
// build replaces the sinks of the previous one.
type Capture struct {
	samples int

	mu    sync.Mutex
	sinks []*blocks.VectorSink
	paths []string
}

// NewCapture records vectors of n items per path. The head block lets
// 2n-1 items through, so each sink ends up with exactly one full vector.
func NewCapture(n int) *Capture {
	return &Capture{samples: n}
}

// Attach wires end -> head -> stream_to_vector -> vector_sink.
func (c *Capture) Attach(m *topblock.Manager, path topblock.SignalPathNode, end flowgraph.Endpoint) error {
	g := m.Graph()
	size := end.Block.Signature().Outputs[end.Port]

	head := blocks.NewHead(g.UniqueName("head"), size, c.samples*2-1)
	s2v := blocks.NewStreamToVector(g.UniqueName("stream_to_vector"), size, c.samples)
	sink := blocks.NewVectorSink(g.UniqueName("vector_sink"), size*c.samples)

	if err := m.Connect(end.Block, end.Port, head, 0); err != nil {
		return err
	}
	if err := m.Connect(head, 0, s2v, 0); err != nil {
		return err
	}
	if err := m.Connect(s2v, 0, sink, 0); err != nil {
		return err
	}

	c.mu.Lock()
	c.sinks = append(c.sinks, sink)
	c.paths = append(c.paths, path.Name())
	c.mu.Unlock()
	return nil
}

// Detach drops the sinks of the previous build.
func (c *Capture) Detach() {
	c.mu.Lock()
	c.sinks = nil
	c.paths = nil
	c.mu.Unlock()
}

// Data returns what each sink received, in attach order.
func (c *Capture) Data() [][]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]float32, len(c.sinks))
	for i, s := range c.sinks {
		out[i] = s.Data()
	}
	return out
}

// Paths returns the tapped path names, in attach order.
func (c *Capture) Paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.paths...)
}
