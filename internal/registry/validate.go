package registry

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/specialistvlad/scopyflow/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ValidateRegistry performs a strict parity check between the declared
// inputs of every proxy type and the `cty` tags of its Go input struct,
// including the compatibility of their types.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	var errs []string

	for _, typ := range r.Types() {
		p, _ := r.Proxy(typ)
		if p.Fn == nil || p.NewInput == nil {
			errs = append(errs, fmt.Sprintf("proxy '%s': missing factory or input constructor", typ))
			continue
		}
		if p.InputType == nil || p.InputType.Kind() != reflect.Struct {
			errs = append(errs, fmt.Sprintf("proxy '%s': input type must be a struct", typ))
			continue
		}
		if got := reflect.TypeOf(p.NewInput()); got != reflect.PointerTo(p.InputType) {
			errs = append(errs, fmt.Sprintf("proxy '%s': NewInput returns %s, want *%s", typ, got, p.InputType))
			continue
		}

		goInputs := make(map[string]reflect.StructField)
		for i := 0; i < p.InputType.NumField(); i++ {
			field := p.InputType.Field(i)
			if !field.IsExported() {
				continue
			}
			tagName := strings.Split(field.Tag.Get("cty"), ",")[0]
			if tagName != "" && tagName != "-" {
				goInputs[tagName] = field
			}
		}

		for name := range goInputs {
			if _, ok := p.Inputs[name]; !ok {
				errs = append(errs, fmt.Sprintf("proxy '%s': Go struct has field for input '%s' which is not declared", typ, name))
			}
		}
		for name, def := range p.Inputs {
			goField, ok := goInputs[name]
			if !ok {
				errs = append(errs, fmt.Sprintf("proxy '%s': input '%s' is declared but not found in Go struct", typ, name))
				continue
			}
			if def.Type.Equals(cty.DynamicPseudoType) {
				logger.Warn("Proxy input has type 'any', which disables static type checking.", "proxy", typ, "input", name)
				continue
			}
			goFieldType, err := gocty.ImpliedType(reflect.Zero(goField.Type).Interface())
			if err != nil {
				errs = append(errs, fmt.Sprintf("proxy '%s', input '%s': could not imply cty type from Go field type %s: %v", typ, name, goField.Type, err))
				continue
			}
			if !def.Type.Equals(goFieldType) {
				errs = append(errs, fmt.Sprintf("proxy '%s', input '%s': type mismatch. Declared '%s' but Go struct field '%s' provides '%s'",
					typ, name, def.Type.FriendlyName(), goField.Name, goFieldType.FriendlyName()))
			}
		}
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
