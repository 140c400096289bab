package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"

	"AgentHub/backend/go/internal/models"
)

// ErrorKind 是与提供商无关的失败分类。
type ErrorKind string

const (
	KindMissingCredential ErrorKind = "missing_credential"
	KindUnauthorized      ErrorKind = "unauthorized"
	KindRateLimited       ErrorKind = "rate_limited"
	KindInsufficientFunds ErrorKind = "insufficient_funds"
	KindTimeout           ErrorKind = "timeout"
	KindUnreachable       ErrorKind = "unreachable"
	KindProviderError     ErrorKind = "provider_error"
)

// 哨兵错误，配合 errors.Is 判断 *ProviderError 的类别。
var (
	ErrMissingCredential = errors.New("missing credential")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrRateLimited       = errors.New("rate limited")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrTimeout           = errors.New("timeout")
	ErrUnreachable       = errors.New("unreachable")
	ErrProviderError     = errors.New("provider error")
)

var kindSentinels = map[ErrorKind]error{
	KindMissingCredential: ErrMissingCredential,
	KindUnauthorized:      ErrUnauthorized,
	KindRateLimited:       ErrRateLimited,
	KindInsufficientFunds: ErrInsufficientFunds,
	KindTimeout:           ErrTimeout,
	KindUnreachable:       ErrUnreachable,
	KindProviderError:     ErrProviderError,
}

// ProviderError 是所有提供商客户端统一返回的错误类型。
// Error() 的文本会原样写入任务活动日志，因此总是以提供商名称开头。
type ProviderError struct {
	Provider   models.Provider
	Kind       ErrorKind
	StatusCode int    // HTTP 状态码, 没有时为 0
	Detail     string // 提供商返回的原始信息
	Err        error  // 底层错误
}

func (e *ProviderError) Error() string {
	name := ProviderName(e.Provider)
	var msg string
	switch e.Kind {
	case KindMissingCredential:
		msg = fmt.Sprintf("%s API key is not configured", name)
		if env := credentialEnv(e.Provider); env != "" {
			msg += fmt.Sprintf(" (set %s)", env)
		}
		return msg
	case KindUnauthorized:
		msg = fmt.Sprintf("%s rejected the credential", name)
	case KindRateLimited:
		msg = fmt.Sprintf("%s rate limit exceeded", name)
	case KindInsufficientFunds:
		msg = fmt.Sprintf("%s account has insufficient funds or quota", name)
	case KindTimeout:
		msg = fmt.Sprintf("%s request timed out", name)
	case KindUnreachable:
		msg = fmt.Sprintf("%s is unreachable", name)
	default:
		msg = fmt.Sprintf("%s returned an error", name)
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is 让 errors.Is(err, ErrRateLimited) 之类的判断对 *ProviderError 生效。
func (e *ProviderError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// KindOf 返回 err 链上第一个 *ProviderError 的类别；不是提供商错误时返回空串。
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// ProviderName 返回提供商的展示名称。
func ProviderName(p models.Provider) string {
	switch p {
	case models.ProviderOpenAI:
		return "OpenAI"
	case models.ProviderAnthropic:
		return "Anthropic"
	case models.ProviderGemini:
		return "Gemini"
	case models.ProviderOllama:
		return "Ollama"
	default:
		return string(p)
	}
}

func credentialEnv(p models.Provider) string {
	switch p {
	case models.ProviderOpenAI:
		return "OPENAI_API_KEY"
	case models.ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case models.ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

func missingCredential(p models.Provider) *ProviderError {
	return &ProviderError{Provider: p, Kind: KindMissingCredential}
}

var quotaMarkers = []string{"insufficient_quota", "quota exceeded", "exceeded your current quota", "credit balance", "billing", "payment required"}

// classifyStatus 把非 2xx 的 HTTP 响应映射到统一分类。
func classifyStatus(p models.Provider, status int, detail string, err error) *ProviderError {
	pe := &ProviderError{Provider: p, StatusCode: status, Detail: strings.TrimSpace(detail), Err: err}
	lower := strings.ToLower(detail)
	switch {
	case status == http.StatusPaymentRequired || containsAny(lower, quotaMarkers):
		pe.Kind = KindInsufficientFunds
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		pe.Kind = KindUnauthorized
	case status == http.StatusTooManyRequests:
		pe.Kind = KindRateLimited
	case status == http.StatusRequestTimeout:
		pe.Kind = KindTimeout
	default:
		pe.Kind = KindProviderError
	}
	return pe
}

// classifyTransport 处理没有拿到 HTTP 响应的失败：超时、取消、DNS 与连接错误。
func classifyTransport(p models.Provider, err error) *ProviderError {
	pe := &ProviderError{Provider: p, Detail: err.Error(), Err: err}
	var netErr net.Error
	var dnsErr *net.DNSError
	var opErr *net.OpError
	var urlErr *url.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		pe.Kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		pe.Kind = KindTimeout
	case errors.As(err, &dnsErr), errors.As(err, &opErr), errors.Is(err, syscall.ECONNREFUSED), errors.As(err, &urlErr):
		pe.Kind = KindUnreachable
	default:
		pe.Kind = KindProviderError
	}
	return pe
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// countsAsOutage 判断错误是否应计入提供商熔断器：只有超时、不可达与 5xx。
func countsAsOutage(err error) bool {
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return err != nil
	}
	switch pe.Kind {
	case KindTimeout, KindUnreachable:
		return true
	case KindProviderError:
		return pe.StatusCode >= http.StatusInternalServerError
	default:
		return false
	}
}
