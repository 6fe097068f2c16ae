package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/ext/typeexpr"
	"github.com/specialistvlad/scopyflow/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// typeExprToCtyType converts a variable's `type` expression, such as `number`
// or `list(number)`, into its cty.Type. An omitted type means any.
func typeExprToCtyType(ctx context.Context, expr hcl.Expression, name string) (cty.Type, error) {
	logger := ctxlog.FromContext(ctx)

	if !isExprDefined(ctx, expr, "type") {
		logger.Debug("Variable has no type constraint, accepting any.", "variable", name)
		return cty.DynamicPseudoType, nil
	}

	ty, diags := typeexpr.TypeConstraint(expr)
	if diags.HasErrors() {
		return cty.DynamicPseudoType, fmt.Errorf("variable %q: invalid type: %w", name, diags)
	}
	logger.Debug("Parsed variable type.", "variable", name, "type", ty.FriendlyName())
	return ty, nil
}
