package blocks

import (
	"context"
	"sync"

	"github.com/specialistvlad/scopyflow/internal/flowgraph"
)

// VectorSink accumulates everything it receives.
type VectorSink struct {
	base
	mu   sync.Mutex
	data []float32
}

func NewVectorSink(name string, itemSize int) *VectorSink {
	return &VectorSink{base: base{name: name, sig: flowgraph.Signature{Inputs: []int{itemSize}}}}
}

func (v *VectorSink) Work(_ context.Context, in [][]float32) ([][]float32, bool, error) {
	v.mu.Lock()
	v.data = append(v.data, in[0]...)
	v.mu.Unlock()
	return nil, false, nil
}

// Data returns a copy of the received samples.
func (v *VectorSink) Data() []float32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]float32(nil), v.data...)
}

func (v *VectorSink) Reset() {
	v.mu.Lock()
	v.data = nil
	v.mu.Unlock()
}

// NullSink discards its input.
type NullSink struct {
	base
}

func NewNullSink(name string, itemSize int) *NullSink {
	return &NullSink{base: base{name: name, sig: flowgraph.Signature{Inputs: []int{itemSize}}}}
}

func (n *NullSink) Work(context.Context, [][]float32) ([][]float32, bool, error) {
	return nil, false, nil
}

// CallbackSink hands every chunk to fn. The chunk must not be retained
// after fn returns unless copied.
type CallbackSink struct {
	base
	fn func(ctx context.Context, chunk []float32) error
}

func NewCallbackSink(name string, itemSize int, fn func(ctx context.Context, chunk []float32) error) *CallbackSink {
	return &CallbackSink{base: base{name: name, sig: flowgraph.Signature{Inputs: []int{itemSize}}}, fn: fn}
}

func (c *CallbackSink) Work(ctx context.Context, in [][]float32) ([][]float32, bool, error) {
	return nil, false, c.fn(ctx, in[0])
}
