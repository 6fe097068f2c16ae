package blocks

import (
	"context"
	"fmt"
	"math"

	"github.com/specialistvlad/scopyflow/internal/flowgraph"
)

// FloatToComplex interleaves an I and a Q stream into a complex stream
// (item size 2).
type FloatToComplex struct {
	base
}

func NewFloatToComplex(name string) *FloatToComplex {
	return &FloatToComplex{base: base{name: name, sig: flowgraph.Signature{Inputs: ports(2, 1), Outputs: []int{2}}}}
}

func (f *FloatToComplex) Work(_ context.Context, in [][]float32) ([][]float32, bool, error) {
	re, im := in[0], in[1]
	if len(re) != len(im) {
		return nil, false, fmt.Errorf("i/q chunk length mismatch: %d != %d", len(re), len(im))
	}
	out := make([]float32, 2*len(re))
	for i := range re {
		out[2*i] = re[i]
		out[2*i+1] = im[i]
	}
	return [][]float32{out}, false, nil
}

// ComplexToMag outputs |z| for every complex input item, which is the
// envelope of an AM signal.
type ComplexToMag struct {
	base
}

func NewComplexToMag(name string) *ComplexToMag {
	return &ComplexToMag{base: base{name: name, sig: flowgraph.Signature{Inputs: []int{2}, Outputs: []int{1}}}}
}

func (c *ComplexToMag) Work(_ context.Context, in [][]float32) ([][]float32, bool, error) {
	z := in[0]
	out := make([]float32, len(z)/2)
	for i := range out {
		re, im := float64(z[2*i]), float64(z[2*i+1])
		out[i] = float32(math.Hypot(re, im))
	}
	return [][]float32{out}, false, nil
}
