package expression

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/crossgaze/crossgaze/pkg/profile"
)

type CompiledExpression struct {
	Program *vm.Program
	Text    string
}

type evalContext struct {
	profile.Row
}

// Compile compiles row-filter expressions. Each expression must evaluate to a
// boolean; row fields are available directly (e.g. `Format == "MP3"`).
func Compile(expressions []string) ([]CompiledExpression, error) {
	compiled := make([]CompiledExpression, 0, len(expressions))

	for _, text := range expressions {
		program, err := expr.Compile(text, expr.Env(&evalContext{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile expression %q: %w", text, err)
		}

		compiled = append(compiled, CompiledExpression{Program: program, Text: text})
	}

	return compiled, nil
}
