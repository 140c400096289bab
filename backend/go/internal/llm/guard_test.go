package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"AgentHub/backend/go/internal/models"
	"AgentHub/backend/go/pkg/circuitbreaker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedClient struct {
	errs  []error
	calls int
}

func (s *scriptedClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return &GenerateResponse{Text: "ok", Model: req.Model}, nil
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
	states   []circuitbreaker.State
}

func (r *recordingObserver) ObserveProviderCall(_ models.Provider, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recordingObserver) ObserveBreakerState(_ models.Provider, state circuitbreaker.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func breakerCfg() GuardConfig {
	return GuardConfig{Timeout: time.Second, BreakerEnabled: true, FailureThreshold: 2, SuccessThreshold: 1, OpenTimeout: time.Hour}
}

func TestGuardOpensOnOutagesOnly(t *testing.T) {
	outage := &ProviderError{Provider: models.ProviderOpenAI, Kind: KindProviderError, StatusCode: 502}
	inner := &scriptedClient{errs: []error{outage, outage}}
	obs := &recordingObserver{}
	g := NewGuard(models.ProviderOpenAI, inner, breakerCfg(), obs)
	req := &GenerateRequest{Model: "gpt-4o"}

	for i := 0; i < 2; i++ {
		_, err := g.Generate(context.Background(), req)
		assert.ErrorIs(t, err, ErrProviderError)
	}
	assert.Equal(t, circuitbreaker.Open, g.BreakerState())

	_, err := g.Generate(context.Background(), req)
	assert.ErrorIs(t, err, ErrUnreachable)
	assert.Contains(t, err.Error(), "OpenAI is unreachable")
	assert.Equal(t, 2, inner.calls, "open breaker does not reach the provider")

	assert.Equal(t, []string{"provider_error", "provider_error", "unreachable"}, obs.outcomes)
	assert.Equal(t, []circuitbreaker.State{circuitbreaker.Open}, obs.states)
}

func TestGuardIgnoresClientSideFailures(t *testing.T) {
	limited := &ProviderError{Provider: models.ProviderAnthropic, Kind: KindRateLimited, StatusCode: 429}
	inner := &scriptedClient{errs: []error{limited, limited, limited, missingCredential(models.ProviderAnthropic)}}
	g := NewGuard(models.ProviderAnthropic, inner, breakerCfg(), nil)

	for i := 0; i < 4; i++ {
		_, _ = g.Generate(context.Background(), &GenerateRequest{})
	}
	assert.Equal(t, circuitbreaker.Closed, g.BreakerState())

	resp, err := g.Generate(context.Background(), &GenerateRequest{Model: "claude"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
}

func TestGuardClassifiesUntypedErrors(t *testing.T) {
	inner := &scriptedClient{errs: []error{errors.New("weird"), context.DeadlineExceeded}}
	g := NewGuard(models.ProviderOllama, inner, GuardConfig{}, nil)

	_, err := g.Generate(context.Background(), &GenerateRequest{})
	assert.ErrorIs(t, err, ErrProviderError)
	assert.Contains(t, err.Error(), "Ollama")

	_, err = g.Generate(context.Background(), &GenerateRequest{})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestRegistryGet(t *testing.T) {
	r := NewRegistry(map[models.Provider]Client{models.ProviderOpenAI: &scriptedClient{}})
	_, err := r.Get(models.ProviderOpenAI)
	assert.NoError(t, err)
	_, err = r.Get(models.ProviderGemini)
	assert.Error(t, err)
	assert.NoError(t, r.Close())
}
