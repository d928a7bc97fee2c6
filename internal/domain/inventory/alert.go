package inventory

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// AlertKind classifies a balance.
type AlertKind string

const (
	AlertNone     AlertKind = ""
	AlertLow      AlertKind = "low_stock"
	AlertNegative AlertKind = "negative_stock"
)

// DefaultLowStockRule flags small positive balances.
const DefaultLowStockRule = "on_hand > 0.0 && on_hand <= 10.0"

// Alert is a classified balance.
type Alert struct {
	Kind    AlertKind    `json:"kind"`
	Balance *BalanceView `json:"balance"`
}

// Classifier evaluates the low-stock rule, a CEL boolean expression over the
// double variables on_hand and reserved.
type Classifier struct {
	expr    string
	program cel.Program
}

// NewClassifier compiles expr. An empty expr uses DefaultLowStockRule.
func NewClassifier(expr string) (*Classifier, error) {
	if expr == "" {
		expr = DefaultLowStockRule
	}

	env, err := cel.NewEnv(
		cel.Variable("on_hand", cel.DoubleType),
		cel.Variable("reserved", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile low stock rule %q: %w", expr, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("low stock rule %q must return bool, got %s", expr, ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build low stock program: %w", err)
	}
	return &Classifier{expr: expr, program: program}, nil
}

// Rule returns the expression in use.
func (c *Classifier) Rule() string {
	return c.expr
}

// Classify returns AlertNegative for on_hand < 0, AlertLow when the rule
// matches and AlertNone otherwise.
func (c *Classifier) Classify(b Balance) (AlertKind, error) {
	if b.OnHand.IsNegative() {
		return AlertNegative, nil
	}

	out, _, err := c.program.Eval(map[string]any{
		"on_hand":  b.OnHand.InexactFloat64(),
		"reserved": b.Reserved.InexactFloat64(),
	})
	if err != nil {
		return AlertNone, fmt.Errorf("evaluate low stock rule: %w", err)
	}
	if low, ok := out.Value().(bool); ok && low {
		return AlertLow, nil
	}
	return AlertNone, nil
}
