package registry

import (
	"github.com/specialistvlad/scopyflow/internal/config"
	"github.com/zclconf/go-cty/cty"
)

// Required declares a mandatory argument.
func Required(name string, ty cty.Type, description string) *config.InputDefinition {
	return &config.InputDefinition{Name: name, Type: ty, Description: description}
}

// Optional declares an argument with a default value.
func Optional(name string, ty cty.Type, def cty.Value, description string) *config.InputDefinition {
	return &config.InputDefinition{Name: name, Type: ty, Description: description, Default: &def, Optional: true}
}

// Inputs indexes definitions by name.
func Inputs(defs ...*config.InputDefinition) map[string]*config.InputDefinition {
	m := make(map[string]*config.InputDefinition, len(defs))
	for _, d := range defs {
		m[d.Name] = d
	}
	return m
}
