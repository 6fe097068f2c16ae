package blocks

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/specialistvlad/scopyflow/internal/flowgraph"
)

// Waveform selects the shape produced by a SignalSource.
type Waveform int

const (
	WaveConst Waveform = iota
	WaveSin
	WaveCos
	WaveSquare
	WaveTriangle
	WaveSawtooth
)

func (w Waveform) String() string {
	switch w {
	case WaveConst:
		return "const"
	case WaveSin:
		return "sin"
	case WaveCos:
		return "cos"
	case WaveSquare:
		return "square"
	case WaveTriangle:
		return "triangle"
	case WaveSawtooth:
		return "sawtooth"
	default:
		return fmt.Sprintf("invalid waveform: %d", int(w))
	}
}

// ParseWaveform is the inverse of Waveform.String.
func ParseWaveform(s string) (Waveform, error) {
	switch strings.ToLower(s) {
	case "const", "constant":
		return WaveConst, nil
	case "sin", "sine":
		return WaveSin, nil
	case "cos", "cosine":
		return WaveCos, nil
	case "square", "sqr":
		return WaveSquare, nil
	case "triangle", "tri":
		return WaveTriangle, nil
	case "sawtooth", "saw":
		return WaveSawtooth, nil
	default:
		return WaveConst, fmt.Errorf("invalid waveform: %s", s)
	}
}

// SourceParams holds the tunable parameters of a SignalSource.
type SourceParams struct {
	Waveform   Waveform
	SampleRate float64
	Frequency  float64
	Amplitude  float64
	Offset     float64
}

// SignalSource generates a periodic float stream. Parameters may be changed
// while the graph runs; the next chunk picks them up.
type SignalSource struct {
	base
	mu     sync.Mutex
	params SourceParams
	index  int64
	chunk  int
}

// NewSignalSource creates a signal source producing DefaultChunk samples per call.
func NewSignalSource(name string, p SourceParams) *SignalSource {
	return &SignalSource{
		base:   base{name: name, sig: flowgraph.Signature{Outputs: []int{1}}},
		params: p,
		chunk:  DefaultChunk,
	}
}

// SetParams replaces the source parameters.
func (s *SignalSource) SetParams(p SourceParams) {
	s.mu.Lock()
	s.params = p
	s.mu.Unlock()
}

// Params returns the current parameters.
func (s *SignalSource) Params() SourceParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

func (s *SignalSource) Work(ctx context.Context, _ [][]float32) ([][]float32, bool, error) {
	s.mu.Lock()
	p := s.params
	start := s.index
	s.index += int64(s.chunk)
	s.mu.Unlock()

	out := make([]float32, s.chunk)
	for i := range out {
		out[i] = float32(Sample(p, start+int64(i)))
	}
	return [][]float32{out}, false, ctx.Err()
}

// Sample computes sample n of the waveform described by p. The square wave
// sits at Offset for the first half of each period and at Amplitude+Offset
// for the second half.
func Sample(p SourceParams, n int64) float64 {
	if p.Waveform == WaveConst {
		return p.Amplitude + p.Offset
	}
	if p.SampleRate <= 0 {
		return p.Offset
	}

	// Fraction of the current period, computed from the integer product so
	// that integer frequency ratios land exactly on period boundaries.
	frac := math.Mod(float64(n)*p.Frequency, p.SampleRate) / p.SampleRate
	if frac < 0 {
		frac += 1
	}

	switch p.Waveform {
	case WaveSin:
		return p.Amplitude*math.Sin(2*math.Pi*frac) + p.Offset
	case WaveCos:
		return p.Amplitude*math.Cos(2*math.Pi*frac) + p.Offset
	case WaveSquare:
		if frac < 0.5 {
			return p.Offset
		}
		return p.Amplitude + p.Offset
	case WaveTriangle:
		return p.Amplitude*math.Abs(1-2*frac) + p.Offset
	case WaveSawtooth:
		return p.Amplitude*frac + p.Offset
	default:
		return p.Offset
	}
}
