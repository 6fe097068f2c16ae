package config

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the interface for a format-specific session loader.
type Loader interface {
	// Load reads the session from the given paths, translates it into the
	// format-agnostic model, and returns a matching Converter.
	Load(ctx context.Context, paths ...string) (*Model, Converter, error)
}

// Converter is the interface for a format-specific data binding and type
// conversion implementation. It bridges raw proxy arguments and the Go
// input structs of proxy factories.
type Converter interface {
	// DecodeBody decodes the arguments of a proxy block into a target Go
	// struct, applying defaults and rejecting unknown or missing arguments.
	DecodeBody(
		ctx context.Context,
		inputStruct any,
		args map[string]hcl.Expression,
		defs map[string]*InputDefinition,
		evalCtx *hcl.EvalContext,
	) error

	// ToCtyValue converts a native Go value into its cty.Value, for values
	// exposed to session expressions.
	ToCtyValue(v any) (cty.Value, error)
}
