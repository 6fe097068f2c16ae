package signalpath

import (
	"github.com/specialistvlad/scopyflow/internal/blocks"
	"github.com/specialistvlad/scopyflow/internal/flowgraph"
)

// SignalSource is a proxy around a waveform generator.
type SignalSource struct {
	BlockProxy
	params blocks.SourceParams
}

func NewSignalSource(p blocks.SourceParams) *SignalSource {
	return &SignalSource{params: p}
}

// Params returns the parameters the next build will use.
func (s *SignalSource) Params() blocks.SourceParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// Update changes the waveform parameters. A built generator picks them up
// without a rebuild.
func (s *SignalSource) Update(fn func(p *blocks.SourceParams)) {
	s.mu.Lock()
	fn(&s.params)
	p := s.params
	s.mu.Unlock()

	if src, ok := s.Block(0).(*blocks.SignalSource); ok {
		src.SetParams(p)
	}
}

func (s *SignalSource) SetWaveform(w blocks.Waveform) { s.Update(func(p *blocks.SourceParams) { p.Waveform = w }) }
func (s *SignalSource) SetSampleRate(sr float64)      { s.Update(func(p *blocks.SourceParams) { p.SampleRate = sr }) }
func (s *SignalSource) SetFrequency(f float64)        { s.Update(func(p *blocks.SourceParams) { p.Frequency = f }) }
func (s *SignalSource) SetAmplitude(a float64)        { s.Update(func(p *blocks.SourceParams) { p.Amplitude = a }) }
func (s *SignalSource) SetOffset(o float64)           { s.Update(func(p *blocks.SourceParams) { p.Offset = o }) }

func (s *SignalSource) ConnectBlocks(g *flowgraph.Graph, upstream flowgraph.Endpoint) (flowgraph.Endpoint, error) {
	return s.Wire(g, upstream, func(g *flowgraph.Graph) (*Allocation, error) {
		// Called with s.mu held.
		src := blocks.NewSignalSource(g.UniqueName("sig_source"), s.params)
		return &Allocation{
			Out:    flowgraph.Endpoint{Block: src},
			Blocks: []flowgraph.Block{src},
		}, nil
	})
}

func (s *SignalSource) DisconnectBlocks(g *flowgraph.Graph) error {
	return s.Release(g)
}
