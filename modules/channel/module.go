// Package channel contributes the "float_channel" and "complex_channel"
// proxy types, which feed device channels into a signal path.
package channel

import (
	"context"
	"fmt"
	"reflect"

	"github.com/specialistvlad/scopyflow/internal/device"
	"github.com/specialistvlad/scopyflow/internal/iiosource"
	"github.com/specialistvlad/scopyflow/internal/registry"
	"github.com/specialistvlad/scopyflow/internal/signalpath"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// FloatInput selects one channel of a declared device.
type FloatInput struct {
	Device  string `cty:"device"`
	Channel string `cty:"channel"`
}

// ComplexInput selects the in-phase and quadrature channels of a device.
type ComplexInput struct {
	Device string `cty:"device"`
	I      string `cty:"i"`
	Q      string `cty:"q"`
}

// source resolves the device and checks that every channel exists on it.
func source(env registry.Env, name, dev string, channels ...string) (*iiosource.DeviceSource, error) {
	src, ok := env.DeviceSource(dev)
	if !ok {
		return nil, fmt.Errorf("%s: %w: device %q is not declared", name, device.ErrNotFound, dev)
	}
	for _, ch := range channels {
		if _, err := device.FindChannel(src.Device(), ch); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return src, nil
}

// Register registers both channel types with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterProxy("float_channel", &registry.RegisteredProxy{
		Description: "One device channel converted to floats.",
		Inputs: registry.Inputs(
			registry.Required("device", cty.String, "Name of a device block."),
			registry.Required("channel", cty.String, "Channel ID, e.g. voltage0."),
		),
		InputType: reflect.TypeOf(FloatInput{}),
		NewInput:  func() any { return new(FloatInput) },
		Fn: func(_ context.Context, env registry.Env, name string, input any) (signalpath.Proxy, error) {
			in := input.(*FloatInput)
			src, err := source(env, name, in.Device, in.Channel)
			if err != nil {
				return nil, err
			}
			return iiosource.NewFloatChannelSrc(src, in.Channel), nil
		},
	})
	r.RegisterProxy("complex_channel", &registry.RegisteredProxy{
		Description: "Two device channels combined into a complex stream.",
		Inputs: registry.Inputs(
			registry.Required("device", cty.String, "Name of a device block."),
			registry.Required("i", cty.String, "In-phase channel ID."),
			registry.Required("q", cty.String, "Quadrature channel ID."),
		),
		InputType: reflect.TypeOf(ComplexInput{}),
		NewInput:  func() any { return new(ComplexInput) },
		Fn: func(_ context.Context, env registry.Env, name string, input any) (signalpath.Proxy, error) {
			in := input.(*ComplexInput)
			src, err := source(env, name, in.Device, in.I, in.Q)
			if err != nil {
				return nil, err
			}
			return iiosource.NewComplexChannelSrc(name, src, in.I, in.Q), nil
		},
	})
}
