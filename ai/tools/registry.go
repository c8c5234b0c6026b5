package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Registry manages tool registration and dispatch. It is constructed
// explicitly at startup and injected where needed, so the tool set is
// swappable per test.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a registry with the given tools.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds a tool, replacing any existing tool of the same name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByNames returns the registered tools among the given names, preserving
// order and skipping unknown names.
func (r *Registry) ByNames(names []string) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(names))
	for _, name := range names {
		if t, ok := r.tools[name]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Execute dispatches a tool by name. It never returns an error: an unknown
// name, a tool error, or a tool panic all become a failed Result so a tool
// failure is never fatal to the turn.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (result *Result) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("tool execution panic", "tool", name, "panic", rec)
			result = Failure(fmt.Sprintf("tool %s panicked: %v", name, rec))
		}
	}()

	tool, ok := r.Get(name)
	if !ok {
		return Failure(fmt.Sprintf("tool '%s' not found", name))
	}

	start := time.Now()
	res, err := tool.Execute(ctx, args)
	if err != nil {
		slog.Error("tool execution failed", "tool", name, "error", err)
		return Failure(err.Error())
	}
	if res == nil {
		return Failure(fmt.Sprintf("tool %s returned no result", name))
	}

	slog.Info("tool execution completed",
		"tool", name,
		"success", res.Success,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res
}
