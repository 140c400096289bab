package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"AgentHub/backend/go/internal/llm"
	"AgentHub/backend/go/internal/models"
	"AgentHub/backend/go/pkg/circuitbreaker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskLifecycleCounters(t *testing.T) {
	m := MustNewMetrics(prometheus.NewRegistry())

	m.TaskSubmitted()
	m.TaskSubmitted()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.tasksSubmitted))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.tasksInFlight))

	m.TaskFinished(models.TaskStatusCompleted)
	m.TaskFinished(models.TaskStatusFailed)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.tasksInFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tasksFinished.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tasksFinished.WithLabelValues("failed")))

	m.AgentExecuted("lead_generator", models.ProviderOpenAI, "success")
	m.AgentExecuted("lead_generator", models.ProviderOpenAI, "rate_limited")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.agentExecutions.WithLabelValues("lead_generator", "openai", "rate_limited")))

	m.SynthesisFinished("failure")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.synthesis.WithLabelValues("failure")))
}

func TestRegisteringTwiceOnOneRegistryPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	MustNewMetrics(reg)
	assert.Panics(t, func() { MustNewMetrics(reg) })
}

type failingClient struct{ err error }

func (c failingClient) Generate(context.Context, *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	return nil, c.err
}

func TestObservesProviderGuard(t *testing.T) {
	m := MustNewMetrics(prometheus.NewRegistry())
	outage := &llm.ProviderError{Provider: models.ProviderAnthropic, Kind: llm.KindUnreachable}
	guard := llm.NewGuard(models.ProviderAnthropic, failingClient{err: outage}, llm.GuardConfig{
		Timeout:          time.Second,
		BreakerEnabled:   true,
		FailureThreshold: 1,
		SuccessThreshold: 1,
		OpenTimeout:      time.Minute,
	}, m)

	_, err := guard.Generate(context.Background(), &llm.GenerateRequest{})
	require.True(t, errors.Is(err, llm.ErrUnreachable))

	assert.Equal(t, 1, testutil.CollectAndCount(m.providerDuration))
	assert.Equal(t, float64(circuitbreaker.Open), testutil.ToFloat64(m.breakerState.WithLabelValues("anthropic")))
}
