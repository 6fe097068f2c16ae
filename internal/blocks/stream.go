package blocks

import (
	"context"
	"time"

	"github.com/specialistvlad/scopyflow/internal/flowgraph"
)

// Head passes the first n items of a stream and then finishes.
type Head struct {
	base
	itemSize int
	limit    int
	seen     int
}

func NewHead(name string, itemSize, n int) *Head {
	return &Head{
		base:     base{name: name, sig: flowgraph.Signature{Inputs: []int{itemSize}, Outputs: []int{itemSize}}},
		itemSize: itemSize,
		limit:    n,
	}
}

func (h *Head) Work(_ context.Context, in [][]float32) ([][]float32, bool, error) {
	items := len(in[0]) / h.itemSize
	take := min(items, h.limit-h.seen)
	h.seen += take
	return [][]float32{in[0][:take*h.itemSize]}, h.seen >= h.limit, nil
}

// StreamToVector groups n consecutive items into one vector item.
type StreamToVector struct {
	base
	width   int
	pending []float32
}

func NewStreamToVector(name string, itemSize, n int) *StreamToVector {
	return &StreamToVector{
		base:  base{name: name, sig: flowgraph.Signature{Inputs: []int{itemSize}, Outputs: []int{itemSize * n}}},
		width: itemSize * n,
	}
}

func (s *StreamToVector) Work(_ context.Context, in [][]float32) ([][]float32, bool, error) {
	s.pending = append(s.pending, in[0]...)
	full := len(s.pending) / s.width * s.width
	if full == 0 {
		return nil, false, nil
	}
	out := make([]float32, full)
	copy(out, s.pending[:full])
	s.pending = append(s.pending[:0], s.pending[full:]...)
	return [][]float32{out}, false, nil
}

// Throttle limits a stream to a number of items per second.
type Throttle struct {
	base
	itemSize int
	rate     float64
	begin    time.Time
	total    int
}

func NewThrottle(name string, itemSize int, itemsPerSec float64) *Throttle {
	return &Throttle{
		base:     base{name: name, sig: flowgraph.Signature{Inputs: []int{itemSize}, Outputs: []int{itemSize}}},
		itemSize: itemSize,
		rate:     itemsPerSec,
	}
}

func (t *Throttle) Start(context.Context) error {
	t.begin = time.Now()
	t.total = 0
	return nil
}

func (t *Throttle) Work(ctx context.Context, in [][]float32) ([][]float32, bool, error) {
	if t.rate > 0 {
		t.total += len(in[0]) / t.itemSize
		due := t.begin.Add(time.Duration(float64(t.total) / t.rate * float64(time.Second)))
		if wait := time.Until(due); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, false, ctx.Err()
			}
		}
	}
	return [][]float32{in[0]}, false, nil
}
