package blocks

import (
	"context"
	"errors"

	"github.com/specialistvlad/scopyflow/internal/flowgraph"
)

// ErrInvalidTaps is returned when a filter is created without usable coefficients.
var ErrInvalidTaps = errors.New("blocks: invalid filter taps")

// FIR is a real-valued finite impulse response filter. Filter state carries
// over between chunks.
type FIR struct {
	base
	taps    []float64
	history []float64
}

func NewFIR(name string, taps []float64) (*FIR, error) {
	if len(taps) == 0 {
		return nil, ErrInvalidTaps
	}
	return &FIR{
		base:    base{name: name, sig: flowgraph.Signature{Inputs: []int{1}, Outputs: []int{1}}},
		taps:    append([]float64(nil), taps...),
		history: make([]float64, len(taps)-1),
	}, nil
}

func (f *FIR) Start(context.Context) error {
	clear(f.history)
	return nil
}

func (f *FIR) Work(_ context.Context, in [][]float32) ([][]float32, bool, error) {
	x := in[0]
	out := make([]float32, len(x))
	n := len(f.history)
	for i, v := range x {
		acc := f.taps[0] * float64(v)
		for k := 1; k < len(f.taps); k++ {
			j := i - k
			var s float64
			if j >= 0 {
				s = float64(x[j])
			} else {
				s = f.history[n+j]
			}
			acc += f.taps[k] * s
		}
		out[i] = float32(acc)
	}
	f.remember(x)
	return [][]float32{out}, false, nil
}

// remember keeps the last len(history) inputs, oldest first.
func (f *FIR) remember(x []float32) {
	n := len(f.history)
	if n == 0 {
		return
	}
	if len(x) >= n {
		for i := range n {
			f.history[i] = float64(x[len(x)-n+i])
		}
		return
	}
	copy(f.history, f.history[len(x):])
	for i, v := range x {
		f.history[n-len(x)+i] = float64(v)
	}
}

// IIR is a direct form I infinite impulse response filter. The feedback
// taps are normalized by a[0].
type IIR struct {
	base
	b, a []float64
	x, y []float64
}

func NewIIR(name string, b, a []float64) (*IIR, error) {
	if len(b) == 0 || len(a) == 0 || a[0] == 0 {
		return nil, ErrInvalidTaps
	}
	nb := make([]float64, len(b))
	na := make([]float64, len(a))
	for i := range b {
		nb[i] = b[i] / a[0]
	}
	for i := range a {
		na[i] = a[i] / a[0]
	}
	return &IIR{
		base: base{name: name, sig: flowgraph.Signature{Inputs: []int{1}, Outputs: []int{1}}},
		b:    nb,
		a:    na,
		x:    make([]float64, len(b)),
		y:    make([]float64, len(a)),
	}, nil
}

func (f *IIR) Start(context.Context) error {
	clear(f.x)
	clear(f.y)
	return nil
}

func (f *IIR) Work(_ context.Context, in [][]float32) ([][]float32, bool, error) {
	out := make([]float32, len(in[0]))
	for i, v := range in[0] {
		// x[0] and y[0] are the newest samples.
		copy(f.x[1:], f.x)
		f.x[0] = float64(v)

		acc := 0.0
		for k, bk := range f.b {
			acc += bk * f.x[k]
		}
		for k := 1; k < len(f.a); k++ {
			acc -= f.a[k] * f.y[k-1]
		}
		if len(f.y) > 1 {
			copy(f.y[1:], f.y[:len(f.y)-1])
		}
		f.y[0] = acc
		out[i] = float32(acc)
	}
	return [][]float32{out}, false, nil
}
