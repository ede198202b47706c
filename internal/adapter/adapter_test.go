package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapterInvokeSuccess(t *testing.T) {
	a := New(HandlerFunc(func(ctx context.Context, in AgentInputs) (string, error) {
		return "hello " + in.Question, nil
	}), "test-agent", time.Second, 2, nil, nil, nil, nil)

	res := a.Invoke(context.Background(), AgentInputs{Question: "world"})
	require.True(t, res.Success)
	assert.Equal(t, "hello world", res.Output)
	assert.Equal(t, 0, res.Retries)

	stats := a.Stats()
	assert.Equal(t, int64(1), stats.TotalExecutions)
	assert.Equal(t, int64(0), stats.TotalErrors)
}

func TestAdapterInvokeRetriesThenSucceeds(t *testing.T) {
	calls := 0
	a := New(HandlerFunc(func(ctx context.Context, in AgentInputs) (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("transient")
		}
		return "ok", nil
	}), "retry-agent", time.Second, 2, nil, nil, nil, nil)

	res := a.Invoke(context.Background(), AgentInputs{Question: "q"})
	require.True(t, res.Success)
	assert.Equal(t, "ok", res.Output)
	assert.Equal(t, 1, res.Retries)
}

func TestAdapterInvokeInputValidationFails(t *testing.T) {
	a := New(HandlerFunc(func(ctx context.Context, in AgentInputs) (string, error) {
		return "never", nil
	}), "validated-agent", time.Second, 1, func(in AgentInputs) error {
		if in.Question == "" {
			return errors.New("question required")
		}
		return nil
	}, nil, nil, nil)

	res := a.Invoke(context.Background(), AgentInputs{})
	assert.False(t, res.Success)
	assert.Error(t, res.Error)
}

func TestAdapterOutputValidationIsNonBlocking(t *testing.T) {
	a := New(HandlerFunc(func(ctx context.Context, in AgentInputs) (string, error) {
		return "x", nil
	}), "short-output-agent", time.Second, 0, nil, func(output string) error {
		if len(output) < 10 {
			return errors.New("too short")
		}
		return nil
	}, nil, nil)

	res := a.Invoke(context.Background(), AgentInputs{Question: "q"})
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.Validation)
}

func TestAdapterResetStats(t *testing.T) {
	a := New(HandlerFunc(func(ctx context.Context, in AgentInputs) (string, error) {
		return "ok", nil
	}), "reset-agent", time.Second, 0, nil, nil, nil, nil)

	a.Invoke(context.Background(), AgentInputs{Question: "q"})
	assert.Equal(t, int64(1), a.Stats().TotalExecutions)
	a.ResetStats()
	assert.Equal(t, int64(0), a.Stats().TotalExecutions)
}
