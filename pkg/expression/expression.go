package expression

import (
	"context"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/autobrr/freeleech/pkg/tracker"
)

type CompiledExpression struct {
	Program *vm.Program
	Text    string
}

// evalContext is the environment expressions run against. Item fields are
// promoted, so rules read like `Seeders > 5 && Resolution == "1080p"`.
type evalContext struct {
	*tracker.Item

	ctx context.Context
}

// Compile type checks every rule as a boolean expression.
func Compile(expressions []string) ([]CompiledExpression, error) {
	compiled := make([]CompiledExpression, 0, len(expressions))

	for _, text := range expressions {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		program, err := expr.Compile(text, expr.Env(&evalContext{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile expression %q: %w", text, err)
		}

		compiled = append(compiled, CompiledExpression{
			Program: program,
			Text:    text,
		})
	}

	return compiled, nil
}

// CheckItemAllMatch reports whether every expression holds for the item,
// returning the text of the ones that did not.
func CheckItemAllMatch(ctx context.Context, item *tracker.Item, expressions []CompiledExpression) (bool, []string, error) {
	env := &evalContext{Item: item, ctx: ctx}
	var failedExpressions []string

	for _, expression := range expressions {
		result, err := expr.Run(expression.Program, env)
		if err != nil {
			return false, nil, fmt.Errorf("check expression: %w", err)
		}

		expResult, ok := result.(bool)
		if !ok {
			return false, nil, fmt.Errorf("expression result is not a bool: %T", result)
		}

		if !expResult {
			failedExpressions = append(failedExpressions, expression.Text)
		}
	}

	if len(failedExpressions) > 0 {
		return false, failedExpressions, nil
	}

	return true, nil, nil
}

func (e *evalContext) SizeMiB() float64 {
	return float64(e.Size) / (1024 * 1024)
}

func (e *evalContext) SizeGiB() float64 {
	return float64(e.Size) / (1024 * 1024 * 1024)
}
