package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"AgentHub/backend/go/internal/config"
	"AgentHub/backend/go/internal/models"
	"AgentHub/backend/go/pkg/circuitbreaker"
)

// CallObserver 接收每次提供商调用的结果，用于指标统计。
type CallObserver interface {
	ObserveProviderCall(provider models.Provider, outcome string, elapsed time.Duration)
	ObserveBreakerState(provider models.Provider, state circuitbreaker.State)
}

// GuardConfig 控制 Guard 的超时与熔断行为。
type GuardConfig struct {
	Timeout          time.Duration
	BreakerEnabled   bool
	FailureThreshold uint32
	SuccessThreshold uint32
	OpenTimeout      time.Duration
}

func guardConfigFrom(cfg *config.AppConfig) (GuardConfig, error) {
	gc := GuardConfig{
		Timeout:          cfg.ProviderTimeout(),
		BreakerEnabled:   cfg.ProviderBreaker.Enabled,
		FailureThreshold: cfg.ProviderBreaker.FailureThreshold,
		SuccessThreshold: cfg.ProviderBreaker.SuccessThreshold,
	}
	if gc.BreakerEnabled {
		d, err := time.ParseDuration(cfg.ProviderBreaker.Timeout)
		if err != nil {
			return GuardConfig{}, fmt.Errorf("invalid providerBreaker timeout: %w", err)
		}
		gc.OpenTimeout = d
	}
	return gc, nil
}

// Guard 为单个提供商客户端加上统一的单次调用超时、熔断与指标。
type Guard struct {
	provider models.Provider
	next     Client
	timeout  time.Duration
	breaker  circuitbreaker.CircuitBreaker
	observer CallObserver
}

// NewGuard 包装 next。observer 可以为 nil。
func NewGuard(provider models.Provider, next Client, cfg GuardConfig, observer CallObserver) *Guard {
	g := &Guard{provider: provider, next: next, timeout: cfg.Timeout, observer: observer}
	if cfg.BreakerEnabled {
		g.breaker = circuitbreaker.New(cfg.FailureThreshold, cfg.SuccessThreshold, cfg.OpenTimeout,
			circuitbreaker.WithFailurePredicate(countsAsOutage),
			circuitbreaker.WithStateChange(func(_, to circuitbreaker.State) {
				if observer != nil {
					observer.ObserveBreakerState(provider, to)
				}
			}),
		)
	}
	return g
}

// Generate 调用底层客户端。熔断器打开时直接返回 Unreachable。
func (g *Guard) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	start := time.Now()
	resp, err := g.call(ctx, req)
	if g.observer != nil {
		outcome := "success"
		if err != nil {
			outcome = string(KindOf(err))
			if outcome == "" {
				outcome = string(KindProviderError)
			}
		}
		g.observer.ObserveProviderCall(g.provider, outcome, time.Since(start))
	}
	return resp, err
}

func (g *Guard) call(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	if g.breaker == nil {
		return g.generate(ctx, req)
	}

	res, err := g.breaker.Execute(func() (interface{}, error) {
		return g.generate(ctx, req)
	})
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return nil, &ProviderError{
			Provider: g.provider,
			Kind:     KindUnreachable,
			Detail:   "circuit breaker is open after repeated failures",
			Err:      err,
		}
	}
	if err != nil {
		return nil, err
	}
	return res.(*GenerateResponse), nil
}

func (g *Guard) generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	resp, err := g.next.Generate(ctx, req)
	if err != nil {
		var pe *ProviderError
		if !errors.As(err, &pe) {
			err = classifyTransport(g.provider, err)
		}
		return nil, err
	}
	return resp, nil
}

// BreakerState 返回当前熔断状态；未启用熔断时总是 Closed。
func (g *Guard) BreakerState() circuitbreaker.State {
	if g.breaker == nil {
		return circuitbreaker.Closed
	}
	return g.breaker.State()
}
