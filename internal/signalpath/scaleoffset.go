package signalpath

import (
	"github.com/specialistvlad/scopyflow/internal/blocks"
	"github.com/specialistvlad/scopyflow/internal/flowgraph"
)

// ScaleOffset multiplies by a scale and then adds an offset.
type ScaleOffset struct {
	BlockProxy
	scale  float64
	offset float64
}

func NewScaleOffset(scale, offset float64) *ScaleOffset {
	return &ScaleOffset{scale: scale, offset: offset}
}

func (s *ScaleOffset) SetScale(scale float64) {
	s.mu.Lock()
	s.scale = scale
	s.mu.Unlock()
	if m, ok := s.Block(0).(*blocks.MultiplyConst); ok {
		m.SetK(float32(scale))
	}
}

func (s *ScaleOffset) SetOffset(offset float64) {
	s.mu.Lock()
	s.offset = offset
	s.mu.Unlock()
	if a, ok := s.Block(1).(*blocks.AddConst); ok {
		a.SetK(float32(offset))
	}
}

func (s *ScaleOffset) ConnectBlocks(g *flowgraph.Graph, upstream flowgraph.Endpoint) (flowgraph.Endpoint, error) {
	return s.Wire(g, upstream, func(g *flowgraph.Graph) (*Allocation, error) {
		mul := blocks.NewMultiplyConst(g.UniqueName("multiply_const_ff"), float32(s.scale))
		add := blocks.NewAddConst(g.UniqueName("add_const_ff"), float32(s.offset))
		a := &Allocation{
			In:     flowgraph.Endpoint{Block: mul},
			Out:    flowgraph.Endpoint{Block: add},
			Blocks: []flowgraph.Block{mul, add},
		}
		return a, g.Connect(mul, 0, add, 0)
	})
}

func (s *ScaleOffset) DisconnectBlocks(g *flowgraph.Graph) error {
	return s.Release(g)
}
