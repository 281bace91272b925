package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 📦 配置加载器
// =============================================================================

// Loader 配置加载器，支持 YAML 文件 + 环境变量覆盖
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader 创建配置加载器
func NewLoader() *Loader {
	return &Loader{envPrefix: "VOICELOOP"}
}

// WithConfigPath 指定 YAML 配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 指定环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load 按 默认值 → YAML → 环境变量 的顺序加载配置
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		data, err := os.ReadFile(l.configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", l.configPath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", l.configPath, err)
		}
	}

	l.applyEnv(cfg)
	return cfg, nil
}

// applyEnv 应用环境变量覆盖
func (l *Loader) applyEnv(cfg *Config) {
	setString(l.key("SERVER_ADDR"), &cfg.Server.Addr)
	setDuration(l.key("SERVER_SHUTDOWN_TIMEOUT"), &cfg.Server.ShutdownTimeout)

	setDuration(l.key("SESSION_MIN_ENDPOINTING_DELAY"), &cfg.Session.MinEndpointingDelay)
	setDuration(l.key("SESSION_MAX_ENDPOINTING_DELAY"), &cfg.Session.MaxEndpointingDelay)
	setBool(l.key("SESSION_ALLOW_INTERRUPTIONS"), &cfg.Session.AllowInterruptions)
	setBool(l.key("SESSION_PROACTIVE_OPEN"), &cfg.Session.ProactiveOpen)
	setString(l.key("SESSION_SEED_ROLE"), &cfg.Session.SeedRole)
	setString(l.key("SESSION_GREETING"), &cfg.Session.Greeting)
	setInt(l.key("SESSION_MAX_PROVIDER_RETRIES"), &cfg.Session.MaxProviderRetries)

	setString(l.key("SEED_STORE"), &cfg.Seed.Store)
	setString(l.key("SEED_FILE_PATH"), &cfg.Seed.FilePath)

	setString(l.key("PROVIDERS_STT_URL"), &cfg.Providers.STTURL)
	setString(l.key("PROVIDERS_LLM_BASE_URL"), &cfg.Providers.LLMBaseURL)
	setString(l.key("PROVIDERS_LLM_API_KEY"), &cfg.Providers.LLMAPIKey)
	setString(l.key("PROVIDERS_LLM_MODEL"), &cfg.Providers.LLMModel)
	setDuration(l.key("PROVIDERS_LLM_TIMEOUT"), &cfg.Providers.LLMTimeout)
	setString(l.key("PROVIDERS_TTS_URL"), &cfg.Providers.TTSURL)
	setString(l.key("PROVIDERS_TTS_VOICE"), &cfg.Providers.TTSVoice)
	setBool(l.key("PROVIDERS_NOISE_CANCELLATION"), &cfg.Providers.NoiseCancellation)

	setString(l.key("TRANSPORT_URL"), &cfg.Transport.URL)
	setInt(l.key("TRANSPORT_SAMPLE_RATE"), &cfg.Transport.SampleRate)
	setDuration(l.key("TRANSPORT_RECONNECT_DELAY"), &cfg.Transport.ReconnectDelay)

	setString(l.key("REDIS_ADDR"), &cfg.Redis.Addr)
	setString(l.key("REDIS_PASSWORD"), &cfg.Redis.Password)
	setInt(l.key("REDIS_DB"), &cfg.Redis.DB)
	setString(l.key("REDIS_KEY"), &cfg.Redis.Key)

	setString(l.key("LOG_LEVEL"), &cfg.Log.Level)
	setString(l.key("LOG_FORMAT"), &cfg.Log.Format)

	setString(l.key("METRICS_NAMESPACE"), &cfg.Metrics.Namespace)
}

func (l *Loader) key(name string) string {
	return l.envPrefix + "_" + name
}

// =============================================================================
// 🔧 环境变量解析辅助
// =============================================================================

func setString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func setBool(key string, dst *bool) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*dst = b
		}
	}
}

func setDuration(key string, dst *time.Duration) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			*dst = d
		}
	}
}
