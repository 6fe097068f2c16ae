package hcl

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/scopyflow/internal/config"
	"github.com/specialistvlad/scopyflow/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Converter is the HCL-specific implementation of the config.Converter interface.
type Converter struct{}

// NewConverter creates a new HCL converter.
func NewConverter() *Converter {
	return &Converter{}
}

// DecodeBody evaluates proxy arguments, applies defaults, and populates the
// fields of inputStruct tagged `cty:"<argument>"`. Arguments without a
// definition are rejected.
func (c *Converter) DecodeBody(
	ctx context.Context,
	inputStruct any,
	args map[string]hcl.Expression,
	defs map[string]*config.InputDefinition,
	evalCtx *hcl.EvalContext,
) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Starting HCL body decoding.", "args", len(args))

	structVal := reflect.ValueOf(inputStruct)
	if structVal.Kind() != reflect.Ptr || structVal.IsNil() || structVal.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("inputStruct must be a non-nil pointer to a struct, got %T", inputStruct)
	}

	var unknown []string
	for name := range args {
		if _, ok := defs[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unsupported argument(s): %s", strings.Join(unknown, ", "))
	}

	structVal = structVal.Elem()
	structType := structVal.Type()
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		fieldVal := structVal.Field(i)
		if !fieldVal.CanSet() {
			continue
		}

		lookupName := strings.Split(field.Tag.Get("cty"), ",")[0]
		if lookupName == "" || lookupName == "-" {
			continue
		}
		def, ok := defs[lookupName]
		if !ok {
			continue
		}
		target := fieldVal.Addr().Interface()

		if expr, provided := args[lookupName]; provided {
			val, diags := expr.Value(evalCtx)
			if diags.HasErrors() {
				return diags
			}
			if err := c.decode(ctx, val, def.Type, target); err != nil {
				return fmt.Errorf("failed to decode argument '%s': %w", lookupName, err)
			}
			continue
		}

		switch {
		case def.Default != nil:
			if err := c.decode(ctx, *def.Default, def.Type, target); err != nil {
				return fmt.Errorf("failed to apply default for '%s': %w", lookupName, err)
			}
		case !def.Optional:
			return fmt.Errorf("missing required argument %q", lookupName)
		}
	}
	logger.Debug("Finished HCL body decoding successfully.")
	return nil
}

// decode converts val to the declared type, then to the Go type of goVal.
func (c *Converter) decode(ctx context.Context, val cty.Value, declared cty.Type, goVal any) error {
	logger := ctxlog.FromContext(ctx)
	if val.IsNull() {
		return fmt.Errorf("value must not be null")
	}

	if declared != cty.NilType && declared != cty.DynamicPseudoType {
		v, err := convert.Convert(val, declared)
		if err != nil {
			return fmt.Errorf("cannot convert %s to required type %s: %w", val.Type().FriendlyName(), declared.FriendlyName(), err)
		}
		val = v
	}

	impliedType, err := gocty.ImpliedType(reflect.ValueOf(goVal).Elem().Interface())
	if err != nil {
		logger.Debug("Could not imply cty.Type from Go type, attempting direct decoding.", "go_type", fmt.Sprintf("%T", goVal), "error", err)
		return gocty.FromCtyValue(val, goVal)
	}

	converted, err := convert.Convert(val, impliedType)
	if err != nil {
		return fmt.Errorf("cannot convert %s to %s: %w", val.Type().FriendlyName(), impliedType.FriendlyName(), err)
	}
	if !val.Type().Equals(converted.Type()) {
		logger.Debug("Implicitly converted value type.", "from", val.Type().FriendlyName(), "to", converted.Type().FriendlyName())
	}
	return gocty.FromCtyValue(converted, goVal)
}

// ToCtyValue converts a native Go value into its corresponding cty.Value.
func (c *Converter) ToCtyValue(v any) (cty.Value, error) {
	if v == nil {
		return cty.NilVal, nil
	}
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty.Type: %w", err)
	}
	return gocty.ToCtyValue(v, ty)
}
