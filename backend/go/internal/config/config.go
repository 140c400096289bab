package config

import (
	"fmt"
	"os"
	"time"

	"AgentHub/backend/go/internal/models"

	"gopkg.in/yaml.v3"
)

// 环境变量名，YAML 中未配置密钥时作为兜底。
const (
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
	EnvGeminiKey    = "GEMINI_API_KEY"
)

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`        // 应用程序名称
	Version     string `yaml:"version"`     // 应用程序版本
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// ServerConfig 定义了 HTTP 服务的监听地址和优雅退出时长。
type ServerConfig struct {
	Address         string `yaml:"address"`         // 监听地址, 例如 ":8080"
	ShutdownTimeout string `yaml:"shutdownTimeout"` // 等待进行中任务的最长时间, 例如 "30s"
}

// ProviderKeyConfig 是需要 API 密钥的提供商的通用配置。
type ProviderKeyConfig struct {
	APIKey  string `yaml:"apiKey"`  // API 密钥, 为空时读取环境变量
	BaseURL string `yaml:"baseURL"` // 可选, 自定义端点
}

// OllamaConfig 定义了本地 Ollama 服务的地址。
type OllamaConfig struct {
	BaseURL string `yaml:"baseURL"` // 例如 "http://localhost:11434"
}

// ProvidersConfig 包含了所有 LLM 提供商的配置。
type ProvidersConfig struct {
	OpenAI    ProviderKeyConfig `yaml:"openai"`
	Anthropic ProviderKeyConfig `yaml:"anthropic"`
	Gemini    ProviderKeyConfig `yaml:"gemini"`
	Ollama    OllamaConfig      `yaml:"ollama"`
	Timeout   string            `yaml:"timeout"` // 单次调用超时, 默认 "60s"
}

// PromptsConfig 定义了 Agent 系统提示词文件的位置。
type PromptsConfig struct {
	Path string `yaml:"path"` // YAML 文件路径, 每次调用时重新读取
}

// SynthesisConfig 定义了合并多 Agent 输出时使用的 "编辑" 模型。
type SynthesisConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"maxTokens"`
}

// KafkaConfig 定义了 Kafka 消息队列的连接配置。
type KafkaConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Brokers     []string `yaml:"brokers"`     // Kafka Broker 地址列表
	EventsTopic string   `yaml:"eventsTopic"` // 任务进度事件主题
	IntakeTopic string   `yaml:"intakeTopic"` // 任务提交主题, 为空时不启动消费者
	GroupID     string   `yaml:"groupID"`     // 消费者组
}

// RedisConfig 定义了 Redis 的连接配置。
type RedisConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Address       string `yaml:"address"`       // Redis 服务器地址 (例如: "localhost:6379")
	Password      string `yaml:"password"`      // Redis 密码
	DB            int    `yaml:"db"`            // Redis 数据库编号
	ChannelPrefix string `yaml:"channelPrefix"` // 发布频道前缀, 频道名为 <prefix><taskId>
}

// WebSocketConfig 控制是否开放任务进度的 WebSocket 推送。
type WebSocketConfig struct {
	Enabled bool `yaml:"enabled"`
}

// EventsConfig 汇总了任务事件的所有下游。
type EventsConfig struct {
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	WebSocket WebSocketConfig `yaml:"websocket"`
}

// MiddlewareConfig 包含所有中间件的配置。
type MiddlewareConfig struct {
	RateLimiter    RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// RateLimiterConfig 定义了限流器的配置。
type RateLimiterConfig struct {
	Enabled     bool              `yaml:"enabled"`
	Algorithm   string            `yaml:"algorithm"` // 支持: "fixedWindow", "tokenBucket"
	FixedWindow FixedWindowConfig `yaml:"fixedWindow"`
	TokenBucket TokenBucketConfig `yaml:"tokenBucket"`
}

// FixedWindowConfig 定义了固定窗口计数器算法的配置。
type FixedWindowConfig struct {
	Limit  int    `yaml:"limit"`
	Window string `yaml:"window"` // 例如: "1m", "30s"
}

// TokenBucketConfig 定义了令牌桶算法的配置。
type TokenBucketConfig struct {
	Rate     float64 `yaml:"rate"` // 每秒速率
	Capacity int     `yaml:"capacity"`
}

// CircuitBreakerConfig 定义了熔断器的配置。
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // 例如: "30s"
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App             AppInfo              `yaml:"app"`
	Logger          LoggerConfig         `yaml:"logger"`
	Server          ServerConfig         `yaml:"server"`
	Providers       ProvidersConfig      `yaml:"providers"`
	Prompts         PromptsConfig        `yaml:"prompts"`
	Synthesis       SynthesisConfig      `yaml:"synthesis"`
	Events          EventsConfig         `yaml:"events"`
	Middleware      MiddlewareConfig     `yaml:"middleware"`
	ProviderBreaker CircuitBreakerConfig `yaml:"providerBreaker"` // 每个提供商独立的熔断器
}

// LoadConfig 函数从指定路径加载并解析 YAML 配置文件。
//
// 参数:
//
//	path: YAML 配置文件的路径。
//
// 返回值:
//
//	*AppConfig: 解析、补全默认值并校验后的配置。
//	error: 如果文件读取、解析或校验失败，则返回错误。
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	}
	return Parse(yamlFile)
}

// Parse 解析 YAML 内容，补全默认值与环境变量密钥，然后校验。
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
	}
	cfg.applyDefaults()
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "agenthub"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "30s"
	}
	if c.Providers.Timeout == "" {
		c.Providers.Timeout = "60s"
	}
	if c.Providers.Ollama.BaseURL == "" {
		c.Providers.Ollama.BaseURL = "http://localhost:11434"
	}
	if c.Synthesis.Provider == "" {
		c.Synthesis.Provider = string(models.ProviderAnthropic)
	}
	if c.Synthesis.Model == "" {
		c.Synthesis.Model = "claude-sonnet-4-20250514"
	}
	if c.Synthesis.Temperature == 0 {
		c.Synthesis.Temperature = 0.3
	}
	if c.Synthesis.MaxTokens == 0 {
		c.Synthesis.MaxTokens = 8000
	}
	if c.Events.Kafka.EventsTopic == "" {
		c.Events.Kafka.EventsTopic = "agenthub.task-events"
	}
	if c.Events.Kafka.GroupID == "" {
		c.Events.Kafka.GroupID = "agenthub-orchestrator"
	}
	if c.Events.Redis.ChannelPrefix == "" {
		c.Events.Redis.ChannelPrefix = "agenthub:task:"
	}
	if c.ProviderBreaker.FailureThreshold == 0 {
		c.ProviderBreaker.FailureThreshold = 5
	}
	if c.ProviderBreaker.SuccessThreshold == 0 {
		c.ProviderBreaker.SuccessThreshold = 1
	}
	if c.ProviderBreaker.Timeout == "" {
		c.ProviderBreaker.Timeout = "30s"
	}
}

func (c *AppConfig) applyEnv(getenv func(string) string) {
	if c.Providers.OpenAI.APIKey == "" {
		c.Providers.OpenAI.APIKey = getenv(EnvOpenAIKey)
	}
	if c.Providers.Anthropic.APIKey == "" {
		c.Providers.Anthropic.APIKey = getenv(EnvAnthropicKey)
	}
	if c.Providers.Gemini.APIKey == "" {
		c.Providers.Gemini.APIKey = getenv(EnvGeminiKey)
	}
}

// Validate 检查配置中无法在运行时补救的错误。
// 缺少提供商密钥不在此列：它在调用时表现为 MissingCredential。
func (c *AppConfig) Validate() error {
	if !models.Provider(c.Synthesis.Provider).Valid() {
		return fmt.Errorf("synthesis.provider %q 不受支持", c.Synthesis.Provider)
	}
	if c.Synthesis.MaxTokens <= 0 {
		return fmt.Errorf("synthesis.maxTokens 必须为正数, 当前为 %d", c.Synthesis.MaxTokens)
	}
	if c.Synthesis.Temperature < 0 || c.Synthesis.Temperature > 2 {
		return fmt.Errorf("synthesis.temperature 必须位于 [0,2], 当前为 %v", c.Synthesis.Temperature)
	}
	durations := map[string]string{
		"server.shutdownTimeout":  c.Server.ShutdownTimeout,
		"providers.timeout":       c.Providers.Timeout,
		"providerBreaker.timeout": c.ProviderBreaker.Timeout,
	}
	if c.Middleware.CircuitBreaker.Enabled {
		durations["middleware.circuitBreaker.timeout"] = c.Middleware.CircuitBreaker.Timeout
	}
	if c.Middleware.RateLimiter.Enabled && c.Middleware.RateLimiter.Algorithm == "fixedWindow" {
		durations["middleware.rateLimiter.fixedWindow.window"] = c.Middleware.RateLimiter.FixedWindow.Window
	}
	for key, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s 不是合法的时长 %q: %w", key, value, err)
		}
	}
	if c.Events.Kafka.Enabled && len(c.Events.Kafka.Brokers) == 0 {
		return fmt.Errorf("events.kafka 已启用但未配置 brokers")
	}
	if c.Events.Redis.Enabled && c.Events.Redis.Address == "" {
		return fmt.Errorf("events.redis 已启用但未配置 address")
	}
	return nil
}

// ProviderTimeout 返回单次提供商调用的超时时间。
func (c *AppConfig) ProviderTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Providers.Timeout)
	return d
}

// ShutdownTimeout 返回优雅退出时等待进行中任务的时长。
func (c *AppConfig) ShutdownTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Server.ShutdownTimeout)
	return d
}
