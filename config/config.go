package config

import (
	"time"

	"github.com/BaSui01/voiceloop/types"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 voiceloop 的完整配置结构
type Config struct {
	// Server 管理端 HTTP 服务配置
	Server ServerConfig `yaml:"server"`

	// Session 会话与回合策略配置
	Session SessionConfig `yaml:"session"`

	// Seed 共享上下文（种子）来源配置
	Seed SeedConfig `yaml:"seed"`

	// Providers 能力提供方选择
	Providers ProvidersConfig `yaml:"providers"`

	// Transport 音频通道配置
	Transport TransportConfig `yaml:"transport"`

	// Redis 跨进程种子存储配置（可选）
	Redis RedisConfig `yaml:"redis"`

	// Log 日志配置
	Log LogConfig `yaml:"log"`

	// Metrics 指标配置
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig 管理端 HTTP 服务配置
type ServerConfig struct {
	// 监听地址
	Addr string `yaml:"addr"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout"`
	// 写入超时
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// inject-context 每秒请求上限
	InjectRateLimit float64 `yaml:"inject_rate_limit"`
	// inject-context 突发请求上限
	InjectRateBurst int `yaml:"inject_rate_burst"`
}

// SessionConfig 会话与回合（endpointing）策略配置
type SessionConfig struct {
	// 语音停顿多久判定回合结束
	MinEndpointingDelay time.Duration `yaml:"min_endpointing_delay"`
	// 距最后一次语音多久强制结束回合
	MaxEndpointingDelay time.Duration `yaml:"max_endpointing_delay"`
	// 是否允许用户打断合成中的语音
	AllowInterruptions bool `yaml:"allow_interruptions"`
	// 代理是否先发制人开场
	ProactiveOpen bool `yaml:"proactive_open"`
	// 种子消息写入上下文时使用的角色 (system|assistant)
	SeedRole string `yaml:"seed_role"`
	// 无种子时的默认开场指令
	Greeting string `yaml:"greeting"`
	// 回合失败时的兜底话术
	FallbackLine string `yaml:"fallback_line"`
	// Provider 调用最大重试次数
	MaxProviderRetries int `yaml:"max_provider_retries"`
}

// SeedConfig 种子来源配置
type SeedConfig struct {
	// 存储后端 (memory|redis)
	Store string `yaml:"store"`
	// 可选的种子文件路径（启动时读取一次，缺失不致命）
	FilePath string `yaml:"file_path"`
}

// ProvidersConfig 能力提供方选择与接入参数
type ProvidersConfig struct {
	// STT 供应商名称 (ws)
	STT string `yaml:"stt"`
	// STT 流式转写地址 (ws:// 或 wss://)
	STTURL string `yaml:"stt_url"`
	// LLM 供应商名称 (openai 及任意兼容后端)
	LLM string `yaml:"llm"`
	// LLM 接口基础地址
	LLMBaseURL string `yaml:"llm_base_url"`
	// LLM API 密钥
	LLMAPIKey string `yaml:"llm_api_key"`
	// LLM 模型
	LLMModel string `yaml:"llm_model"`
	// LLM 单次调用超时
	LLMTimeout time.Duration `yaml:"llm_timeout"`
	// TTS 供应商名称 (http)
	TTS string `yaml:"tts"`
	// TTS 合成地址
	TTSURL string `yaml:"tts_url"`
	// TTS 音色
	TTSVoice string `yaml:"tts_voice"`
	// VAD 供应商名称 (energy)
	VAD string `yaml:"vad"`
	// VAD 能量阈值 (0..1)
	VADThreshold float64 `yaml:"vad_threshold"`
	// 是否启用降噪
	NoiseCancellation bool `yaml:"noise_cancellation"`
}

// TransportConfig 音频通道配置
type TransportConfig struct {
	// 房间 URL (ws:// 或 wss://)
	URL string `yaml:"url"`
	// PCM 采样率
	SampleRate int `yaml:"sample_rate"`
	// 会话结束后重连的等待时间
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
}

// RedisConfig Redis 种子存储配置
type RedisConfig struct {
	// Redis 地址
	Addr string `yaml:"addr"`
	// 密码
	Password string `yaml:"password"`
	// 数据库编号
	DB int `yaml:"db"`
	// 种子键名
	Key string `yaml:"key"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别 (debug|info|warn|error)
	Level string `yaml:"level"`
	// 输出格式 (json|console)
	Format string `yaml:"format"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// Prometheus 指标命名空间
	Namespace string `yaml:"namespace"`
	// Token 估算使用的 tiktoken 编码
	TokenEncoding string `yaml:"token_encoding"`
}

// =============================================================================
// 🔧 默认值与校验
// =============================================================================

// DefaultConfig 返回带默认值的完整配置
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			InjectRateLimit: 5,
			InjectRateBurst: 10,
		},
		Session: SessionConfig{
			MinEndpointingDelay: 500 * time.Millisecond,
			MaxEndpointingDelay: 5 * time.Second,
			AllowInterruptions:  true,
			ProactiveOpen:       true,
			SeedRole:            string(types.RoleAssistant),
			Greeting:            "Hey, how can I help you today?",
			FallbackLine:        "Sorry, I ran into a problem. Could you say that again?",
			MaxProviderRetries:  3,
		},
		Seed: SeedConfig{
			Store: "memory",
		},
		Providers: ProvidersConfig{
			STT:               "ws",
			STTURL:            "ws://localhost:9090/v1/listen",
			LLM:               "openai",
			LLMBaseURL:        "https://api.openai.com",
			LLMModel:          "gpt-4o-mini",
			LLMTimeout:        30 * time.Second,
			TTS:               "http",
			TTSURL:            "http://localhost:9091/v1/speak",
			TTSVoice:          "default",
			VAD:               "energy",
			VADThreshold:      0.6,
			NoiseCancellation: true,
		},
		Transport: TransportConfig{
			URL:            "ws://localhost:7880/agent",
			SampleRate:     16000,
			ReconnectDelay: 2 * time.Second,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
			Key:  "voiceloop:seed",
		},
		Log: LogConfig{
			Level:       "info",
			Format:      "json",
			OutputPaths: []string{"stdout"},
		},
		Metrics: MetricsConfig{
			Namespace:     "voiceloop",
			TokenEncoding: "cl100k_base",
		},
	}
}

// Validate 校验配置不变量
func (c *Config) Validate() error {
	if c.Session.MinEndpointingDelay <= 0 {
		return types.NewError(types.ErrConfiguration, "min_endpointing_delay must be positive")
	}
	if c.Session.MinEndpointingDelay > c.Session.MaxEndpointingDelay {
		return types.NewError(types.ErrConfiguration,
			"min_endpointing_delay must not exceed max_endpointing_delay")
	}
	if !types.Role(c.Session.SeedRole).Valid() || c.Session.SeedRole == string(types.RoleUser) {
		return types.NewError(types.ErrConfiguration,
			"seed_role must be \"system\" or \"assistant\"")
	}
	if c.Session.MaxProviderRetries < 0 {
		return types.NewError(types.ErrConfiguration, "max_provider_retries must not be negative")
	}
	switch c.Seed.Store {
	case "memory", "redis":
	default:
		return types.NewError(types.ErrConfiguration, "seed.store must be \"memory\" or \"redis\"")
	}
	if c.Seed.Store == "redis" && c.Redis.Addr == "" {
		return types.NewError(types.ErrConfiguration, "redis.addr required when seed.store is \"redis\"")
	}
	if c.Server.Addr == "" {
		return types.NewError(types.ErrConfiguration, "server.addr must not be empty")
	}
	if c.Transport.URL == "" {
		return types.NewError(types.ErrConfiguration, "transport.url must not be empty")
	}
	return nil
}

// SeedRole 返回配置的种子角色
func (c *Config) SeedRole() types.Role {
	return types.Role(c.Session.SeedRole)
}
