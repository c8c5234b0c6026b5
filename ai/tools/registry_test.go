package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTool is a configurable tool implementation for registry tests.
type mockTool struct {
	name        string
	executeFunc func(ctx context.Context, args map[string]any) (*Result, error)
}

func (m *mockTool) Name() string        { return m.name }
func (m *mockTool) Description() string { return "mock tool" }
func (m *mockTool) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}
func (m *mockTool) Execute(ctx context.Context, args map[string]any) (*Result, error) {
	return m.executeFunc(ctx, args)
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry(&mockTool{name: "alpha"}, &mockTool{name: "beta"})

	got, ok := r.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, "alpha", got.Name())

	_, ok = r.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"alpha", "beta"}, r.Names())
}

func TestRegistryByNames(t *testing.T) {
	r := NewRegistry(&mockTool{name: "alpha"}, &mockTool{name: "beta"})

	got := r.ByNames([]string{"beta", "missing", "alpha"})
	require.Len(t, got, 2)
	assert.Equal(t, "beta", got[0].Name())
	assert.Equal(t, "alpha", got[1].Name())
}

func TestRegistryExecuteUnknownTool(t *testing.T) {
	r := NewRegistry()

	res := r.Execute(context.Background(), "ghost", nil)
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Equal(t, "tool 'ghost' not found", res.Error)
}

func TestRegistryExecuteToolError(t *testing.T) {
	r := NewRegistry(&mockTool{
		name: "flaky",
		executeFunc: func(context.Context, map[string]any) (*Result, error) {
			return nil, errors.New("backend unavailable")
		},
	})

	res := r.Execute(context.Background(), "flaky", nil)
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Equal(t, "backend unavailable", res.Error)
}

func TestRegistryExecuteRecoversPanic(t *testing.T) {
	r := NewRegistry(&mockTool{
		name: "bomb",
		executeFunc: func(context.Context, map[string]any) (*Result, error) {
			panic("boom")
		},
	})

	res := r.Execute(context.Background(), "bomb", nil)
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "panicked")
}

func TestRegistryExecuteSuccess(t *testing.T) {
	r := NewRegistry(&mockTool{
		name: "echo",
		executeFunc: func(_ context.Context, args map[string]any) (*Result, error) {
			return &Result{Success: true, Result: args["text"].(string)}, nil
		},
	})

	res := r.Execute(context.Background(), "echo", map[string]any{"text": "hello"})
	require.NotNil(t, res)
	assert.True(t, res.Success)
	assert.Equal(t, "hello", res.Result)
}
