// This file translates decoded HCL blocks into the format-agnostic session
// model of the config package.

package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/scopyflow/internal/config"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// translateVariable resolves a variable's type and default.
func translateVariable(ctx context.Context, v *variableBlock) (*config.InputDefinition, error) {
	ty, err := typeExprToCtyType(ctx, v.Type, v.Name)
	if err != nil {
		return nil, err
	}

	def := &config.InputDefinition{
		Name:        v.Name,
		Type:        ty,
		Description: v.Description,
	}
	if isExprDefined(ctx, v.Default, "default") {
		val, diags := v.Default.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("invalid default value for variable %q: %w", v.Name, diags)
		}
		if !val.IsNull() {
			def.Default = &val
			def.Optional = true
		}
	}
	return def, nil
}

func translateDevice(d *deviceBlock) *config.DeviceSource {
	out := &config.DeviceSource{Name: d.Name, URI: d.URI, Device: d.Device}
	if d.BufferSize != nil {
		out.BufferSize = *d.BufferSize
	}
	return out
}

// translatePath converts a signal_path block. The `enabled` argument of each
// proxy is a meta-argument evaluated here; everything else stays raw.
func translatePath(ctx context.Context, p *pathBlock, evalCtx *hcl.EvalContext) (*config.SignalPath, error) {
	out := &config.SignalPath{Name: p.Name, Enabled: true, Register: true}
	if p.Enabled != nil {
		out.Enabled = *p.Enabled
	}
	if p.Register != nil {
		out.Register = *p.Register
	}

	seen := make(map[string]struct{}, len(p.Proxies))
	for _, b := range p.Proxies {
		if _, dup := seen[b.Name]; dup {
			return nil, fmt.Errorf("signal_path %q: proxy %q declared twice", p.Name, b.Name)
		}
		seen[b.Name] = struct{}{}

		args, err := bodyAttributes(b.Body)
		if err != nil {
			return nil, fmt.Errorf("signal_path %q, proxy %q: %w", p.Name, b.Name, err)
		}
		enabled := true
		if expr, ok := args["enabled"]; ok {
			if err := evalBool(expr, evalCtx, &enabled); err != nil {
				return nil, fmt.Errorf("signal_path %q, proxy %q: enabled: %w", p.Name, b.Name, err)
			}
			delete(args, "enabled")
		}
		out.Proxies = append(out.Proxies, &config.Proxy{
			Type:      b.Type,
			Name:      b.Name,
			Enabled:   enabled,
			Arguments: args,
		})
	}
	return out, nil
}

func evalBool(expr hcl.Expression, evalCtx *hcl.EvalContext, dst *bool) error {
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return diags
	}
	if val.IsNull() {
		return fmt.Errorf("must not be null")
	}
	if !val.Type().Equals(cty.Bool) {
		return fmt.Errorf("must be a bool, got %s", val.Type().FriendlyName())
	}
	return gocty.FromCtyValue(val, dst)
}
