package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	internal "github.com/ZanzyTHEbar/ai-counselor/relay"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	LLM          LLMConfig          `mapstructure:"llm"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	RateLimit    RateLimitConfig    `mapstructure:"ratelimit"`
	Line         LineConfig         `mapstructure:"line"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry"`
	Log          LogConfig          `mapstructure:"log"`
}

// ServerConfig stores HTTP listener settings.
type ServerConfig struct {
	Addr               string        `mapstructure:"addr"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	ErrorStatusOK      bool          `mapstructure:"error_status_ok"` // internal failures answer 200 with a problem body
	WebhookConcurrency int           `mapstructure:"webhook_concurrency"`
}

// DatabaseConfig stores database connection details.
type DatabaseConfig struct {
	DSN            string `mapstructure:"dsn"`        // file:path.db or libsql://host
	AuthToken      string `mapstructure:"auth_token"` // remote libsql only
	MaxOpenConns   int    `mapstructure:"max_open_conns"`
	MaxIdleConns   int    `mapstructure:"max_idle_conns"`
	ConnMaxIdleSec int    `mapstructure:"conn_max_idle_sec"`
	ConnMaxLifeSec int    `mapstructure:"conn_max_life_sec"`
	BusyTimeoutMs  int    `mapstructure:"busy_timeout_ms"`
}

// LLMConfig stores language model configurations.
type LLMConfig struct {
	Provider        string        `mapstructure:"provider"` // "openai", "anthropic"
	Model           string        `mapstructure:"model"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxTokens       int64         `mapstructure:"max_tokens"`
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	OpenAIAPIKey    string        `mapstructure:"openai_api_key"`
	AnthropicAPIKey string        `mapstructure:"anthropic_api_key"`
}

// ConversationConfig stores context assembly settings.
type ConversationConfig struct {
	TokenBudget        int    `mapstructure:"token_budget"`
	HistoryWindow      int    `mapstructure:"history_window"`
	TokenizerModel     string `mapstructure:"tokenizer_model"`
	TokenCacheCapacity int    `mapstructure:"token_cache_capacity"` // 0 disables the cache
	TokenCacheTTL      int    `mapstructure:"token_cache_ttl_seconds"`
	SystemPrompt       string `mapstructure:"system_prompt"` // empty uses the built-in persona
}

// RateLimitConfig stores per-owner admission settings.
type RateLimitConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Capacity   int           `mapstructure:"capacity"`
	RefillRate time.Duration `mapstructure:"refill_rate"`
	// MaxInFlight caps concurrent requests per owner; 0 means unlimited.
	MaxInFlight int `mapstructure:"max_in_flight"`
}

// LineConfig stores LINE Messaging API credentials.
type LineConfig struct {
	ChannelSecret      string `mapstructure:"channel_secret"`
	ChannelAccessToken string `mapstructure:"channel_access_token"`
	APIBase            string `mapstructure:"api_base"`
}

// TelemetryConfig stores OpenTelemetry exporter settings.
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
	Insecure     bool   `mapstructure:"insecure"`
}

// LogConfig stores logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json", "console"
}

var AppConfig Config

// SetDefaults registers every default on the global viper instance.
func SetDefaults() {
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "90s")
	viper.SetDefault("server.error_status_ok", true)
	viper.SetDefault("server.webhook_concurrency", 4)

	viper.SetDefault("database.dsn", internal.DefaultDatabaseDSN)
	viper.SetDefault("database.auth_token", "")
	viper.SetDefault("database.max_open_conns", 10)
	viper.SetDefault("database.max_idle_conns", 10)
	viper.SetDefault("database.conn_max_idle_sec", 300)
	viper.SetDefault("database.conn_max_life_sec", 3600)
	viper.SetDefault("database.busy_timeout_ms", 5000)

	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.model", "gpt-3.5-turbo-1106")
	viper.SetDefault("llm.temperature", 0.7)
	viper.SetDefault("llm.max_tokens", 1024)
	viper.SetDefault("llm.base_url", "")
	viper.SetDefault("llm.timeout", "60s")
	viper.SetDefault("llm.openai_api_key", "")
	viper.SetDefault("llm.anthropic_api_key", "")

	viper.SetDefault("conversation.token_budget", 1000)
	viper.SetDefault("conversation.history_window", 10)
	viper.SetDefault("conversation.tokenizer_model", "gpt-4")
	viper.SetDefault("conversation.token_cache_capacity", 2048)
	viper.SetDefault("conversation.token_cache_ttl_seconds", 3600)
	viper.SetDefault("conversation.system_prompt", "")

	viper.SetDefault("ratelimit.enabled", true)
	viper.SetDefault("ratelimit.capacity", 5)
	viper.SetDefault("ratelimit.refill_rate", "2s")
	viper.SetDefault("ratelimit.max_in_flight", 2)

	viper.SetDefault("line.channel_secret", "")
	viper.SetDefault("line.channel_access_token", "")
	viper.SetDefault("line.api_base", "https://api.line.me")

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.otlp_endpoint", "localhost:4318")
	viper.SetDefault("telemetry.service_name", internal.DefaultAppName)
	viper.SetDefault("telemetry.insecure", true)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath(filepath.Join("/etc", internal.DefaultAppName))
		viper.AddConfigPath(internal.DefaultConfigPath)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	SetDefaults()

	viper.AutomaticEnv()
	// conversation.token_budget becomes CONVERSATION_TOKEN_BUDGET
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := AppConfig.Validate(); err != nil {
		return nil, err
	}

	return &AppConfig, nil
}

// Validate rejects settings the relay cannot run with.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unsupported llm.provider %q", c.LLM.Provider)
	}
	if c.Conversation.HistoryWindow <= 0 {
		return fmt.Errorf("conversation.history_window must be positive: %d", c.Conversation.HistoryWindow)
	}
	if c.RateLimit.Enabled && (c.RateLimit.Capacity <= 0 || c.RateLimit.RefillRate <= 0) {
		return fmt.Errorf("ratelimit requires positive capacity and refill_rate")
	}
	if c.RateLimit.MaxInFlight < 0 {
		return fmt.Errorf("ratelimit.max_in_flight must not be negative: %d", c.RateLimit.MaxInFlight)
	}
	return nil
}
