// Package subpath contributes the "path" proxy type, which reuses another
// declared signal path as one link of a chain.
package subpath

import (
	"context"
	"fmt"
	"reflect"

	"github.com/specialistvlad/scopyflow/internal/registry"
	"github.com/specialistvlad/scopyflow/internal/signalpath"
	"github.com/zclconf/go-cty/cty"
)

type Module struct{}

type Input struct {
	Path string `cty:"path"`
}

func (m *Module) Register(r *registry.Registry) {
	r.RegisterProxy("path", &registry.RegisteredProxy{
		Description: "Another signal_path, wired whenever the enclosing path is.",
		Inputs:      registry.Inputs(registry.Required("path", cty.String, "Name of a signal_path block.")),
		InputType:   reflect.TypeOf(Input{}),
		NewInput:    func() any { return new(Input) },
		Fn: func(_ context.Context, env registry.Env, name string, input any) (signalpath.Proxy, error) {
			in := input.(*Input)
			p, ok := env.SignalPath(in.Path)
			if !ok {
				return nil, fmt.Errorf("path %s: signal_path %q is not declared", name, in.Path)
			}
			return p, nil
		},
	})
}
