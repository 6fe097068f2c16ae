package signalpath

import (
	"slices"

	"github.com/specialistvlad/scopyflow/internal/blocks"
	"github.com/specialistvlad/scopyflow/internal/flowgraph"
)

// FIR filters the stream with fixed taps. New taps apply from the next build.
type FIR struct {
	BlockProxy
	taps []float64
}

func NewFIR(taps []float64) *FIR {
	return &FIR{taps: slices.Clone(taps)}
}

// SetTaps replaces the taps and asks for a rebuild.
func (f *FIR) SetTaps(taps []float64) {
	f.mu.Lock()
	f.taps = slices.Clone(taps)
	owner := f.owner
	f.mu.Unlock()
	if owner != nil {
		owner.RequestRebuild()
	}
}

func (f *FIR) ConnectBlocks(g *flowgraph.Graph, upstream flowgraph.Endpoint) (flowgraph.Endpoint, error) {
	return f.Wire(g, upstream, func(g *flowgraph.Graph) (*Allocation, error) {
		fir, err := blocks.NewFIR(g.UniqueName("fir_filter_fff"), f.taps)
		if err != nil {
			return nil, err
		}
		return &Allocation{
			In:     flowgraph.Endpoint{Block: fir},
			Out:    flowgraph.Endpoint{Block: fir},
			Blocks: []flowgraph.Block{fir},
		}, nil
	})
}

func (f *FIR) DisconnectBlocks(g *flowgraph.Graph) error {
	return f.Release(g)
}

// IIR filters the stream with feed-forward taps b and feedback taps a.
type IIR struct {
	BlockProxy
	b, a []float64
}

func NewIIR(b, a []float64) *IIR {
	return &IIR{b: slices.Clone(b), a: slices.Clone(a)}
}

func (f *IIR) ConnectBlocks(g *flowgraph.Graph, upstream flowgraph.Endpoint) (flowgraph.Endpoint, error) {
	return f.Wire(g, upstream, func(g *flowgraph.Graph) (*Allocation, error) {
		iir, err := blocks.NewIIR(g.UniqueName("iir_filter_ffd"), f.b, f.a)
		if err != nil {
			return nil, err
		}
		return &Allocation{
			In:     flowgraph.Endpoint{Block: iir},
			Out:    flowgraph.Endpoint{Block: iir},
			Blocks: []flowgraph.Block{iir},
		}, nil
	})
}

func (f *IIR) DisconnectBlocks(g *flowgraph.Graph) error {
	return f.Release(g)
}
