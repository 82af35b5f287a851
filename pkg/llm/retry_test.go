package llm_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"tokinarc-sales-be/internal/pkg/logger"
	"tokinarc-sales-be/pkg/llm"
	"tokinarc-sales-be/pkg/llm/stub"
	"tokinarc-sales-be/pkg/rag"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) llm.RetryConfig {
	return llm.RetryConfig{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Multiplier:      2,
	}
}

func TestRetryingProvider(t *testing.T) {
	tests := []struct {
		name      string
		attempts  int
		script    []stub.Responder
		wantCalls int
		wantErr   bool
	}{
		{"first try", 3, []stub.Responder{stub.Reply("ok")}, 1, false},
		{"recovers on third", 3, []stub.Responder{stub.Fail(stub.ErrScripted), stub.Fail(stub.ErrScripted), stub.Reply("ok")}, 3, false},
		{"gives up after max attempts", 2, []stub.Responder{stub.Fail(stub.ErrScripted), stub.Fail(stub.ErrScripted), stub.Reply("late")}, 2, true},
		{"client error is not retried", 3, []stub.Responder{stub.Fail(&llm.StatusError{Provider: "x", Code: 400})}, 1, true},
		{"rate limit is retried", 3, []stub.Responder{stub.Fail(&llm.StatusError{Provider: "x", Code: 429}), stub.Reply("ok")}, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := stub.New(tt.script...)
			p := llm.NewRetryingProvider(backend, fastRetry(tt.attempts), logger.NewNopLogger())

			out, err := p.Generate(context.Background(), "xin chao")

			assert.Equal(t, tt.wantCalls, backend.Calls())
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, rag.ErrUpstreamUnavailable))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ok", out)
		})
	}
}

func TestRetryingProvider_CancelledContext(t *testing.T) {
	backend := stub.New()
	backend.Default = stub.Fail(stub.ErrScripted)
	p := llm.NewRetryingProvider(backend, llm.RetryConfig{MaxAttempts: 10, InitialInterval: time.Hour, MaxInterval: time.Hour, Multiplier: 2}, logger.NewNopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: "a"}})

	require.Error(t, err)
	assert.True(t, errors.Is(err, rag.ErrUpstreamUnavailable))
	assert.Equal(t, 1, backend.Calls())
}

func TestStub_EchoesWhenScriptEnds(t *testing.T) {
	p := stub.New(stub.Reply("one"))

	first, _ := p.Generate(context.Background(), "a")
	second, _ := p.Generate(context.Background(), "b")

	assert.Equal(t, "one", first)
	assert.Equal(t, "b", second)
	assert.Equal(t, "b", p.LastPrompt())
}
