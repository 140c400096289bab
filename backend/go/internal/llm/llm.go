package llm

import (
	"context"
	"fmt"

	"AgentHub/backend/go/internal/config"
	"AgentHub/backend/go/internal/models"
)

// GenerateRequest 是一次单轮生成调用的参数：一个系统提示加一个用户提示。
type GenerateRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
}

// Usage 记录一次调用消耗的 token。
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// GenerateResponse 是生成结果。
type GenerateResponse struct {
	Text  string
	Model string
	Usage Usage
}

// Client 定义了所有提供商客户端必须实现的通用接口。
// 失败时返回 *ProviderError。
type Client interface {
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}

// Registry 按提供商保存客户端，供 Executor 与 Synthesizer 选择。
type Registry struct {
	clients map[models.Provider]Client
	closers []func() error
}

// NewRegistry 用显式给出的客户端构建 Registry，主要用于测试。
func NewRegistry(clients map[models.Provider]Client) *Registry {
	r := &Registry{clients: make(map[models.Provider]Client, len(clients))}
	for p, c := range clients {
		r.clients[p] = c
	}
	return r
}

// NewRegistryFromConfig 是一个工厂函数，根据配置为每个受支持的提供商创建客户端，
// 并用 Guard 包装（超时 + 熔断 + 指标）。缺失密钥不会导致失败。
func NewRegistryFromConfig(ctx context.Context, cfg *config.AppConfig, observer CallObserver) (*Registry, error) {
	guardCfg, err := guardConfigFrom(cfg)
	if err != nil {
		return nil, err
	}

	openaiClient := NewOpenAI(cfg.Providers.OpenAI.APIKey, cfg.Providers.OpenAI.BaseURL)
	anthropicClient := NewAnthropic(cfg.Providers.Anthropic.APIKey, cfg.Providers.Anthropic.BaseURL)
	geminiClient, err := NewGemini(ctx, cfg.Providers.Gemini.APIKey, cfg.Providers.Gemini.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	ollamaClient, err := NewOllama(cfg.Providers.Ollama.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}

	r := NewRegistry(map[models.Provider]Client{
		models.ProviderOpenAI:    NewGuard(models.ProviderOpenAI, openaiClient, guardCfg, observer),
		models.ProviderAnthropic: NewGuard(models.ProviderAnthropic, anthropicClient, guardCfg, observer),
		models.ProviderGemini:    NewGuard(models.ProviderGemini, geminiClient, guardCfg, observer),
		models.ProviderOllama:    NewGuard(models.ProviderOllama, ollamaClient, guardCfg, observer),
	})
	r.closers = append(r.closers, geminiClient.Close)
	return r, nil
}

// Get 返回指定提供商的客户端。
func (r *Registry) Get(p models.Provider) (Client, error) {
	c, ok := r.clients[p]
	if !ok {
		return nil, fmt.Errorf("unsupported provider: %s", p)
	}
	return c, nil
}

// Close 释放底层客户端持有的资源。
func (r *Registry) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
