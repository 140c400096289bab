package models

// Provider 标识 Agent 调用的外部文本生成服务。
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
	ProviderOllama    Provider = "ollama"
)

// Providers 返回所有受支持的提供商，顺序固定。
func Providers() []Provider {
	return []Provider{ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderOllama}
}

// Valid 判断 p 是否属于受支持的提供商集合。
func (p Provider) Valid() bool {
	for _, known := range Providers() {
		if p == known {
			return true
		}
	}
	return false
}

// AgentProfile 描述一个专业 Agent：它擅长什么，以及用哪个提供商和模型来完成工作。
// 进程启动时构建，之后只读。
type AgentProfile struct {
	ID              string   `json:"id"`                // Agent 唯一标识
	DisplayName     string   `json:"display_name"`      // 展示名称
	Specialization  string   `json:"specialization"`    // 专业领域描述
	Provider        Provider `json:"provider"`          // 目标提供商
	Model           string   `json:"model"`             // 提供商侧的模型标识
	Temperature     float64  `json:"temperature"`       // 采样温度, [0,2]
	MaxOutputTokens int      `json:"max_output_tokens"` // 最大输出 token 数
}
