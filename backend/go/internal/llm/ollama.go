package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"AgentHub/backend/go/internal/models"

	olla "github.com/ollama/ollama/api"
)

// Ollama 是一个用于本地 Ollama 服务的客户端。本地服务不需要密钥。
type Ollama struct {
	client *olla.Client
}

// NewOllama 创建一个新的 Ollama 客户端。
//
// 参数:
//
//	baseURL: Ollama 服务的基准 URL。如果为空，则默认为 "http://localhost:11434"。
//
// 返回值:
//
//	*Ollama: 新创建的 Ollama 客户端实例。
//	error: 如果基准 URL 无效，则返回错误。
func NewOllama(baseURL string) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	// 超时交给调用方的 context 控制。
	return &Ollama{client: olla.NewClient(parsedURL, &http.Client{})}, nil
}

// Generate 使用 Ollama 的非流式 generate 接口生成内容。
func (o *Ollama) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	var result *olla.GenerateResponse
	stream := false

	err := o.client.Generate(ctx, &olla.GenerateRequest{
		Model:  req.Model,
		Prompt: req.UserPrompt,
		System: req.SystemPrompt,
		Stream: &stream,
		Options: map[string]interface{}{
			"temperature": req.Temperature,
			"num_predict": req.MaxTokens,
		},
	}, func(resp olla.GenerateResponse) error {
		result = &resp
		return nil
	})
	if err != nil {
		return nil, classifyOllamaError(err)
	}
	if result == nil || result.Response == "" {
		return nil, &ProviderError{Provider: models.ProviderOllama, Kind: KindProviderError, Detail: "empty response"}
	}

	return &GenerateResponse{
		Text:  result.Response,
		Model: result.Model,
		Usage: Usage{
			PromptTokens:     result.PromptEvalCount,
			CompletionTokens: result.EvalCount,
		},
	}, nil
}

func classifyOllamaError(err error) error {
	var statusErr olla.StatusError
	if errors.As(err, &statusErr) {
		return classifyStatus(models.ProviderOllama, statusErr.StatusCode, statusErr.ErrorMessage, err)
	}
	var statusErrPtr *olla.StatusError
	if errors.As(err, &statusErrPtr) {
		return classifyStatus(models.ProviderOllama, statusErrPtr.StatusCode, statusErrPtr.ErrorMessage, err)
	}
	return classifyTransport(models.ProviderOllama, err)
}
