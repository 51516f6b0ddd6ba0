package system

import (
	"fmt"

	"github.com/expr-lang/expr"
)

// Evaluate runs condition against facts. Fields are addressed by their Go
// names (OS == "linux" && Hardware.CPUCore >= 4). An empty condition holds.
func Evaluate(condition string, facts *Facts) (bool, error) {
	if condition == "" {
		return true, nil
	}

	program, err := expr.Compile(condition, expr.Env(facts), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("invalid condition %q: %w", condition, err)
	}

	output, err := expr.Run(program, facts)
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", condition, err)
	}

	result, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q must return a boolean, got %T", condition, output)
	}
	return result, nil
}
