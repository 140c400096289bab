package models

// RequestInfo 存储了关于 HTTP 请求的上下文信息。
type RequestInfo struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	RemoteAddr string `json:"remote_addr"`
	UserAgent  string `json:"user_agent"`
}

// ErrorInfo 存储了关于错误的结构化信息。
type ErrorInfo struct {
	Message    string `json:"message"`
	Kind       string `json:"kind,omitempty"`        // 错误类别, 例如 "rate_limited", "synthesis_failed"
	Provider   string `json:"provider,omitempty"`    // 出错的提供商（如适用）
	StatusCode int    `json:"status_code,omitempty"` // 相关的HTTP状态码
}
