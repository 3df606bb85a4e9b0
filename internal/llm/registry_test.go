package llm

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/spaceai-assistant/internal/reliability"
	"go.uber.org/zap"
)

func TestRegistry_FallbackToLocal(t *testing.T) {
	r := NewRegistry([]Config{{Name: OpenAI, APIKey: "sk-secret"}}, zap.NewNop())

	assert.Equal(t, OpenAI, r.Get(OpenAI).Name())
	assert.Equal(t, Local, r.Get("mystery").Name())
	assert.Equal(t, Local, r.Get("").Name())
}

func TestStub_Generate(t *testing.T) {
	r := NewRegistry([]Config{
		{Name: OpenAI, APIKey: "sk-secret"},
		{Name: Anthropic, Model: "claude-custom"},
	}, zap.NewNop())

	out, err := r.Get(OpenAI).Generate(context.Background(), "hello", map[string]any{"intent": "general"})
	require.NoError(t, err)
	assert.Equal(t, "openai", out["provider"])
	assert.Equal(t, "gpt-4o-mini", out["model"])
	assert.Equal(t, "hello", out["prompt"])
	assert.Equal(t, map[string]any{"intent": "general"}, out["context"])
	assert.Equal(t, "[stubbed OpenAI response]", out["completion"])
	for _, v := range out {
		assert.NotEqual(t, "sk-secret", v)
	}

	out, err = r.Get(Anthropic).Generate(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "claude-custom", out["model"])
	assert.Equal(t, map[string]any{}, out["context"])
}

type flakyProvider struct {
	calls int32
	fails int32
}

func (f *flakyProvider) Name() string { return Local }

func (f *flakyProvider) Generate(context.Context, string, map[string]any) (map[string]any, error) {
	if atomic.AddInt32(&f.calls, 1) <= f.fails {
		return nil, errors.New("upstream 502")
	}
	return map[string]any{"completion": "ok"}, nil
}

func TestRegistry_GuardRetries(t *testing.T) {
	flaky := &flakyProvider{fails: 1}
	g := reliability.NewGuard(reliability.Settings{Name: "llm", Attempts: 3, CallTimeout: time.Second})
	r := NewRegistry(nil, zap.NewNop(), WithProvider(flaky), WithGuard(g))

	out, err := r.Get(Local).Generate(context.Background(), "x", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out["completion"])
	assert.EqualValues(t, 2, flaky.calls)
}

func TestRegistry_GuardGivesUp(t *testing.T) {
	flaky := &flakyProvider{fails: 100}
	g := reliability.NewGuard(reliability.Settings{Name: "llm", Attempts: 2, CallTimeout: time.Second})
	r := NewRegistry(nil, zap.NewNop(), WithProvider(flaky), WithGuard(g))

	_, err := r.Get(Local).Generate(context.Background(), "x", nil)
	assert.Error(t, err)
	assert.EqualValues(t, 2, flaky.calls)
}
