package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"AgentHub/backend/go/internal/models"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// OpenAI 是一个用于 OpenAI Chat Completions API 的客户端。
type OpenAI struct {
	client *openai.Client // 密钥为空时为 nil
}

// NewOpenAI 创建一个新的 OpenAI 客户端。baseURL 为空时使用官方端点。
func NewOpenAI(apiKey, baseURL string) *OpenAI {
	if apiKey == "" {
		return &OpenAI{}
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg)}
}

// Generate 使用 OpenAI API 生成内容。
func (o *OpenAI) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	if o.client == nil {
		return nil, missingCredential(models.ProviderOpenAI)
	}

	// Temperature 是指针, 0 也要显式发送。
	temperature := float32(req.Temperature)
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
		Temperature: &temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Provider: models.ProviderOpenAI, Kind: KindProviderError, Detail: "response contained no choices"}
	}

	return &GenerateResponse{
		Text:  resp.Choices[0].Message.Content,
		Model: resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		detail := apiErr.Message
		if code, ok := apiErr.Code.(string); ok && code != "" {
			detail = fmt.Sprintf("%s [%s]", detail, code)
		}
		return classifyStatus(models.ProviderOpenAI, apiErr.HTTPStatusCode, detail, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		detail := strings.TrimSpace(string(reqErr.Body))
		if detail == "" && reqErr.Err != nil {
			detail = reqErr.Err.Error()
		}
		return classifyStatus(models.ProviderOpenAI, reqErr.HTTPStatusCode, detail, err)
	}
	return classifyTransport(models.ProviderOpenAI, err)
}
