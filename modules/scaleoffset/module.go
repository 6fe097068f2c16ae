// Package scaleoffset contributes the "scale_offset" proxy type.
package scaleoffset

import (
	"context"
	"reflect"

	"github.com/specialistvlad/scopyflow/internal/registry"
	"github.com/specialistvlad/scopyflow/internal/signalpath"
	"github.com/zclconf/go-cty/cty"
)

type Module struct{}

type Input struct {
	Scale  float64 `cty:"scale"`
	Offset float64 `cty:"offset"`
}

func (m *Module) Register(r *registry.Registry) {
	r.RegisterProxy("scale_offset", &registry.RegisteredProxy{
		Description: "Multiplies by scale, then adds offset.",
		Inputs: registry.Inputs(
			registry.Optional("scale", cty.Number, cty.NumberIntVal(1), ""),
			registry.Optional("offset", cty.Number, cty.NumberIntVal(0), ""),
		),
		InputType: reflect.TypeOf(Input{}),
		NewInput:  func() any { return new(Input) },
		Fn: func(_ context.Context, _ registry.Env, _ string, input any) (signalpath.Proxy, error) {
			in := input.(*Input)
			return signalpath.NewScaleOffset(in.Scale, in.Offset), nil
		},
	})
}
