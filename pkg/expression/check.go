package expression

import (
	"fmt"

	"github.com/expr-lang/expr"

	"github.com/crossgaze/crossgaze/pkg/profile"
)

func CheckRowSingleMatch(r profile.Row, expressions []CompiledExpression) (bool, error) {
	match, _, err := CheckRowSingleMatchWithReason(r, expressions)
	return match, err
}

func CheckRowSingleMatchWithReason(r profile.Row, expressions []CompiledExpression) (bool, string, error) {
	env := &evalContext{Row: r}

	for _, expression := range expressions {
		result, err := expr.Run(expression.Program, env)
		if err != nil {
			return false, "", fmt.Errorf("check expression: %w", err)
		}

		expResult, ok := result.(bool)
		if !ok {
			return false, "", fmt.Errorf("expression %q did not evaluate to bool", expression.Text)
		}

		if expResult {
			return true, expression.Text, nil
		}
	}

	return false, "", nil
}
