package blocks

import (
	"context"
	"sync"

	"github.com/specialistvlad/scopyflow/internal/flowgraph"
)

// MultiplyConst multiplies every sample by a constant.
type MultiplyConst struct {
	base
	mu sync.Mutex
	k  float32
}

func NewMultiplyConst(name string, k float32) *MultiplyConst {
	return &MultiplyConst{base: base{name: name, sig: flowgraph.Signature{Inputs: []int{1}, Outputs: []int{1}}}, k: k}
}

// SetK changes the factor; running graphs pick it up on the next chunk.
func (m *MultiplyConst) SetK(k float32) {
	m.mu.Lock()
	m.k = k
	m.mu.Unlock()
}

func (m *MultiplyConst) K() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.k
}

func (m *MultiplyConst) Work(_ context.Context, in [][]float32) ([][]float32, bool, error) {
	k := m.K()
	out := make([]float32, len(in[0]))
	for i, v := range in[0] {
		out[i] = v * k
	}
	return [][]float32{out}, false, nil
}

// AddConst adds a constant to every sample.
type AddConst struct {
	base
	mu sync.Mutex
	k  float32
}

func NewAddConst(name string, k float32) *AddConst {
	return &AddConst{base: base{name: name, sig: flowgraph.Signature{Inputs: []int{1}, Outputs: []int{1}}}, k: k}
}

func (a *AddConst) SetK(k float32) {
	a.mu.Lock()
	a.k = k
	a.mu.Unlock()
}

func (a *AddConst) K() float32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.k
}

func (a *AddConst) Work(_ context.Context, in [][]float32) ([][]float32, bool, error) {
	k := a.K()
	out := make([]float32, len(in[0]))
	for i, v := range in[0] {
		out[i] = v + k
	}
	return [][]float32{out}, false, nil
}

// ShortToFloat converts raw 16-bit ADC codes to floats, dividing by scale.
type ShortToFloat struct {
	base
	scale float32
}

func NewShortToFloat(name string, scale float32) *ShortToFloat {
	if scale == 0 {
		scale = 1
	}
	return &ShortToFloat{base: base{name: name, sig: flowgraph.Signature{Inputs: []int{1}, Outputs: []int{1}}}, scale: scale}
}

func (s *ShortToFloat) Work(_ context.Context, in [][]float32) ([][]float32, bool, error) {
	out := make([]float32, len(in[0]))
	for i, v := range in[0] {
		// Saturate the way a 16-bit register would.
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		out[i] = float32(int16(v)) / s.scale
	}
	return [][]float32{out}, false, nil
}
