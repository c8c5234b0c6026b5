package tools

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
)

// CalculatorTool evaluates arithmetic expressions. Input is restricted to
// digits, basic operators, and a small set of whitelisted functions before it
// ever reaches the expression engine.
type CalculatorTool struct{}

// NewCalculatorTool creates a calculator tool.
func NewCalculatorTool() *CalculatorTool {
	return &CalculatorTool{}
}

// allowedFuncNames are the only identifiers an expression may reference.
var allowedFuncNames = []string{"abs", "round", "min", "max"}

// allowedCharsRegex matches an expression after the whitelisted function names
// have been stripped: digits, operators, parentheses, commas, whitespace.
var allowedCharsRegex = regexp.MustCompile(`^[0-9+\-*/^(). ,\s]*$`)

func (t *CalculatorTool) Name() string { return "calculator" }

func (t *CalculatorTool) Description() string {
	return "Performs mathematical calculations. " +
		"Supports basic arithmetic (+, -, *, /), exponents (**), " +
		"and common math functions (abs, round, min, max). " +
		"Use this whenever you need to compute numerical values."
}

func (t *CalculatorTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{
				"type":        "string",
				"description": "Mathematical expression to evaluate (e.g., '2 + 2', '10 ** 2', 'min(3, 7)')",
			},
		},
		"required": []string{"expression"},
	}
}

func (t *CalculatorTool) Execute(_ context.Context, args map[string]any) (*Result, error) {
	expression, _ := args["expression"].(string)
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return Failure("missing required argument: expression"), nil
	}

	stripped := strings.ReplaceAll(expression, "**", "")
	for _, fn := range allowedFuncNames {
		stripped = strings.ReplaceAll(stripped, fn, "")
	}
	if !allowedCharsRegex.MatchString(stripped) {
		return Failure("Expression contains invalid characters. Only numbers and basic operators allowed."), nil
	}

	program, err := expr.Compile(expression)
	if err != nil {
		return Failure("Invalid mathematical expression"), nil
	}

	out, err := expr.Run(program, nil)
	if err != nil {
		if strings.Contains(err.Error(), "divide by zero") {
			return Failure("Cannot divide by zero"), nil
		}
		return Failure(fmt.Sprintf("Calculation error: %v", err)), nil
	}

	return &Result{
		Success:  true,
		Result:   fmt.Sprintf("%v", out),
		Metadata: map[string]any{"expression": expression},
	}, nil
}
