// Package demod contributes the "am_demod" and "throttle" proxy types.
package demod

import (
	"context"
	"fmt"
	"reflect"

	"github.com/specialistvlad/scopyflow/internal/registry"
	"github.com/specialistvlad/scopyflow/internal/signalpath"
	"github.com/zclconf/go-cty/cty"
)

type Module struct{}

type ThrottleInput struct {
	Rate float64 `cty:"rate"`
}

func (m *Module) Register(r *registry.Registry) {
	r.RegisterProxy("am_demod", &registry.RegisteredProxy{
		Description: "Envelope of a complex stream.",
		InputType:   reflect.TypeOf(struct{}{}),
		NewInput:    func() any { return new(struct{}) },
		Fn: func(context.Context, registry.Env, string, any) (signalpath.Proxy, error) {
			return signalpath.NewAMDemod(), nil
		},
	})
	r.RegisterProxy("throttle", &registry.RegisteredProxy{
		Description: "Paces a float stream to a sample rate.",
		Inputs:      registry.Inputs(registry.Required("rate", cty.Number, "Samples per second.")),
		InputType:   reflect.TypeOf(ThrottleInput{}),
		NewInput:    func() any { return new(ThrottleInput) },
		Fn: func(_ context.Context, _ registry.Env, name string, input any) (signalpath.Proxy, error) {
			in := input.(*ThrottleInput)
			if in.Rate <= 0 {
				return nil, fmt.Errorf("throttle %s: rate must be positive, got %g", name, in.Rate)
			}
			return signalpath.NewThrottle(in.Rate), nil
		},
	})
}
