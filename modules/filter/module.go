// Package filter contributes the "fir" and "iir" proxy types.
package filter

import (
	"context"
	"fmt"
	"reflect"

	"github.com/specialistvlad/scopyflow/internal/blocks"
	"github.com/specialistvlad/scopyflow/internal/registry"
	"github.com/specialistvlad/scopyflow/internal/signalpath"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// FIRInput defines the arguments of a fir proxy.
type FIRInput struct {
	Taps []float64 `cty:"taps"`
}

// IIRInput defines the arguments of an iir proxy: feed-forward
// coefficients b and feedback coefficients a, with a[0] != 0.
type IIRInput struct {
	B []float64 `cty:"b"`
	A []float64 `cty:"a"`
}

// Coefficients are checked at load time; a bad filter would otherwise only
// show up as a build error on every rebuild.
func newFIR(_ context.Context, _ registry.Env, name string, input any) (signalpath.Proxy, error) {
	in := input.(*FIRInput)
	if _, err := blocks.NewFIR(name, in.Taps); err != nil {
		return nil, fmt.Errorf("fir %s: %w", name, err)
	}
	return signalpath.NewFIR(in.Taps), nil
}

func newIIR(_ context.Context, _ registry.Env, name string, input any) (signalpath.Proxy, error) {
	in := input.(*IIRInput)
	if _, err := blocks.NewIIR(name, in.B, in.A); err != nil {
		return nil, fmt.Errorf("iir %s: %w", name, err)
	}
	return signalpath.NewIIR(in.B, in.A), nil
}

// Register registers both filter types with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterProxy("fir", &registry.RegisteredProxy{
		Description: "Finite impulse response filter.",
		Inputs:      registry.Inputs(registry.Required("taps", cty.List(cty.Number), "Filter taps, newest sample first.")),
		InputType:   reflect.TypeOf(FIRInput{}),
		NewInput:    func() any { return new(FIRInput) },
		Fn:          newFIR,
	})
	r.RegisterProxy("iir", &registry.RegisteredProxy{
		Description: "Infinite impulse response filter, direct form I.",
		Inputs: registry.Inputs(
			registry.Required("b", cty.List(cty.Number), "Feed-forward coefficients."),
			registry.Required("a", cty.List(cty.Number), "Feedback coefficients."),
		),
		InputType: reflect.TypeOf(IIRInput{}),
		NewInput:  func() any { return new(IIRInput) },
		Fn:        newIIR,
	})
}
