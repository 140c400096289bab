package llm

import (
	"context"
	"errors"
	"strings"

	"AgentHub/backend/go/internal/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Gemini 是一个用于 Google Gemini API 的客户端。
type Gemini struct {
	client *genai.Client // 密钥为空时为 nil
}

// NewGemini 创建一个新的 Gemini 客户端。
//
// 参数:
//
//	ctx: 上下文，用于控制客户端的生命周期。
//	apiKey: Gemini API 密钥, 为空时调用会返回 MissingCredential。
//	endpoint: 可选, 自定义端点。
//
// 返回值:
//
//	*Gemini: 新创建的 Gemini 客户端实例。
//	error: 如果无法创建 GenAI 客户端，则返回错误。
func NewGemini(ctx context.Context, apiKey, endpoint string) (*Gemini, error) {
	if apiKey == "" {
		return &Gemini{}, nil
	}
	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Gemini{client: client}, nil
}

// Generate 向 Gemini API 发送单轮请求。
func (g *Gemini) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	if g.client == nil {
		return nil, missingCredential(models.ProviderGemini)
	}

	model := g.client.GenerativeModel(req.Model)
	model.SetTemperature(float32(req.Temperature))
	model.SetMaxOutputTokens(int32(req.MaxTokens))
	if req.SystemPrompt != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.SystemPrompt))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.UserPrompt))
	if err != nil {
		return nil, classifyGeminiError(err)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		break
	}
	if sb.Len() == 0 {
		return nil, &ProviderError{Provider: models.ProviderGemini, Kind: KindProviderError, Detail: "response contained no text content"}
	}

	out := &GenerateResponse{Text: sb.String(), Model: req.Model}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}

// Close 释放底层 gRPC/REST 连接。
func (g *Gemini) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func classifyGeminiError(err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return classifyStatus(models.ProviderGemini, gErr.Code, gErr.Message, err)
	}
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return &ProviderError{Provider: models.ProviderGemini, Kind: KindProviderError, Detail: blocked.Error(), Err: err}
	}
	return classifyTransport(models.ProviderGemini, err)
}
