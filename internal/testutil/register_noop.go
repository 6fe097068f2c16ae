package testutil

import (
	"context"
	"reflect"

	"github.com/specialistvlad/scopyflow/internal/registry"
	"github.com/specialistvlad/scopyflow/internal/signalpath"
)

// NoOpModule registers a "noop" proxy that takes no arguments and passes
// its stream through unchanged. It is useful for sessions that only need
// valid HCL that passes registry validation.
type NoOpModule struct{}

// Register registers the "noop" proxy type.
func (m *NoOpModule) Register(r *registry.Registry) {
	r.RegisterProxy("noop", &registry.RegisteredProxy{
		Description: "Pass-through.",
		InputType:   reflect.TypeOf(struct{}{}),
		NewInput:    func() any { return new(struct{}) },
		Fn: func(context.Context, registry.Env, string, any) (signalpath.Proxy, error) {
			return signalpath.NewScaleOffset(1, 0), nil
		},
	})
}
