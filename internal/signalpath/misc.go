package signalpath

import (
	"github.com/specialistvlad/scopyflow/internal/blocks"
	"github.com/specialistvlad/scopyflow/internal/flowgraph"
)

// AMDemod turns a complex stream into its envelope.
type AMDemod struct {
	BlockProxy
}

func NewAMDemod() *AMDemod {
	return &AMDemod{}
}

func (d *AMDemod) ConnectBlocks(g *flowgraph.Graph, upstream flowgraph.Endpoint) (flowgraph.Endpoint, error) {
	return d.Wire(g, upstream, func(g *flowgraph.Graph) (*Allocation, error) {
		mag := blocks.NewComplexToMag(g.UniqueName("complex_to_mag"))
		return &Allocation{
			In:     flowgraph.Endpoint{Block: mag},
			Out:    flowgraph.Endpoint{Block: mag},
			Blocks: []flowgraph.Block{mag},
		}, nil
	})
}

func (d *AMDemod) DisconnectBlocks(g *flowgraph.Graph) error {
	return d.Release(g)
}

// Throttle paces a float stream to a sample rate, for paths fed by
// synthetic sources.
type Throttle struct {
	BlockProxy
	rate float64
}

func NewThrottle(samplesPerSec float64) *Throttle {
	return &Throttle{rate: samplesPerSec}
}

func (t *Throttle) ConnectBlocks(g *flowgraph.Graph, upstream flowgraph.Endpoint) (flowgraph.Endpoint, error) {
	return t.Wire(g, upstream, func(g *flowgraph.Graph) (*Allocation, error) {
		th := blocks.NewThrottle(g.UniqueName("throttle"), 1, t.rate)
		return &Allocation{
			In:     flowgraph.Endpoint{Block: th},
			Out:    flowgraph.Endpoint{Block: th},
			Blocks: []flowgraph.Block{th},
		}, nil
	})
}

func (t *Throttle) DisconnectBlocks(g *flowgraph.Graph) error {
	return t.Release(g)
}
