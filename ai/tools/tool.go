// Package tools provides the callable tools available to the agentic loop and
// the registry that dispatches them.
package tools

import "context"

// Result is the outcome of one tool invocation. It lives only for the duration
// of a single loop iteration; the loop folds Result (or Error) back into the
// next prompt and discards the rest, except for metadata side effects.
type Result struct {
	Success  bool
	Result   string
	Error    string
	Metadata map[string]any
}

// Tool is a callable tool exposed to the language model.
type Tool interface {
	// Name returns the tool name as exposed in the function schema.
	Name() string

	// Description returns the tool description shown to the model.
	Description() string

	// Parameters returns the JSON Schema for the tool's input parameters.
	Parameters() map[string]any

	// Execute runs the tool with keyword arguments. Implementations validate
	// their own arguments and report failures through the Result; a returned
	// error is reserved for unexpected conditions and is normalized by the
	// registry.
	Execute(ctx context.Context, args map[string]any) (*Result, error)
}

// Failure builds a failed Result with the given error text.
func Failure(message string) *Result {
	return &Result{Success: false, Error: message}
}
