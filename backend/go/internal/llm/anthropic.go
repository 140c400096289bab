package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"AgentHub/backend/go/internal/models"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Anthropic 是一个用于 Anthropic Messages API 的客户端。
type Anthropic struct {
	client *anthropic.Client // 密钥为空时为 nil
}

// NewAnthropic 创建一个新的 Anthropic 客户端。
// SDK 自带的重试被关闭：每个 Agent 调用只发出一次。
func NewAnthropic(apiKey, baseURL string) *Anthropic {
	if apiKey == "" {
		return &Anthropic{}
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := anthropic.NewClient(opts...)
	return &Anthropic{client: &client}
}

// Generate 使用 Anthropic API 生成内容。
func (a *Anthropic) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	if a.client == nil {
		return nil, missingCredential(models.ProviderAnthropic)
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(req.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classifyAnthropicError(err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return nil, &ProviderError{Provider: models.ProviderAnthropic, Kind: KindProviderError, Detail: "response contained no text content"}
	}

	return &GenerateResponse{
		Text:  sb.String(),
		Model: string(msg.Model),
		Usage: Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
		},
	}, nil
}

func classifyAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(models.ProviderAnthropic, apiErr.StatusCode, anthropicDetail(apiErr.RawJSON()), err)
	}
	return classifyTransport(models.ProviderAnthropic, err)
}

// anthropicDetail 从 {"type":"error","error":{"type":..,"message":..}} 中提取可读信息。
func anthropicDetail(raw string) string {
	var body struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(raw), &body); err != nil || body.Error.Message == "" {
		return raw
	}
	if body.Error.Type != "" {
		return body.Error.Message + " [" + body.Error.Type + "]"
	}
	return body.Error.Message
}
