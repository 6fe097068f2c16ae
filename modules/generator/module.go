// Package generator contributes the "signal_source" proxy type.
package generator

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

// Input defines the arguments of a signal_source proxy.
type Input struct {
	Waveform   string  `cty:"waveform"`
	SampleRate float64 `cty:"sample_rate"`
	Frequency  float64 `cty:"frequency"`
	Amplitude  float64 `cty:"amplitude"`
	Offset     float64 `cty:"offset"`
}

// NewSignalSource builds the proxy from a decoded input.
func NewSignalSource(_ context.Context, _ registry.Env, name string, input *Input) (signalpath.Proxy, error) {
	w, err := blocks.ParseWaveform(input.Waveform)
	if err != nil {
		return nil, fmt.Errorf("signal_source %s: %w", name, err)
	}
	if input.SampleRate <= 0 {
		return nil, fmt.Errorf("signal_source %s: sample_rate must be positive, got %g", name, input.SampleRate)
	}
	return signalpath.NewSignalSource(blocks.SourceParams{
		Waveform:   w,
		SampleRate: input.SampleRate,
		Frequency:  input.Frequency,
		Amplitude:  input.Amplitude,
		Offset:     input.Offset,
	}), nil
}

// Register registers the proxy type with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterProxy("signal_source", &registry.RegisteredProxy{
		Description: "Periodic waveform generator.",
		Inputs: registry.Inputs(
			registry.Optional("waveform", cty.String, cty.StringVal("sin"), "const, sin, cos, square, triangle or sawtooth."),
			registry.Optional("sample_rate", cty.Number, cty.NumberIntVal(1000), "Samples per second."),
			registry.Optional("frequency", cty.Number, cty.NumberIntVal(10), "Waveform frequency in Hz."),
			registry.Optional("amplitude", cty.Number, cty.NumberIntVal(1), "Peak amplitude."),
			registry.Optional("offset", cty.Number, cty.NumberIntVal(0), "DC offset."),
		),
		InputType: reflect.TypeOf(Input{}),
		NewInput:  func() any { return new(Input) },
		Fn: func(ctx context.Context, env registry.Env, name string, input any) (signalpath.Proxy, error) {
			return NewSignalSource(ctx, env, name, input.(*Input))
		},
	})
}
