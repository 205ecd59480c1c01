package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hearth-home/hearth/internal/biz/domain"
	"github.com/hearth-home/hearth/internal/biz/usecase"
)

// Config represents application configuration
type Config struct {
	// Store configuration
	Store StoreConfig

	// HTTP server configuration
	HTTP HTTPConfig

	// Debounce configuration
	Debounce DebounceValues

	// Model configuration
	LLM LLMConfig

	// Outbound channels
	Twilio TwilioConfig
	Feishu FeishuConfig

	// Action event broker (optional)
	AMQP AMQPConfig

	// Notification fan-out
	FanoutConcurrency int

	// Prompts configuration (loaded from YAML)
	Prompts *PromptsConfig

	// Display name given to ghost users
	DefaultUserName string

	// Debug mode
	Debug bool
}

// StoreConfig contains database configuration
type StoreConfig struct {
	DBPath string
}

// HTTPConfig contains webhook server configuration
type HTTPConfig struct {
	Addr            string
	PipelineTimeout time.Duration
	SweepInterval   time.Duration
}

// DebounceValues contains the burst window settings in milliseconds
type DebounceValues struct {
	WindowMs int
	JitterMs int
}

// LLMConfig contains model provider configuration
type LLMConfig struct {
	Provider      string // gemini or openai
	GeminiAPIKey  string
	GeminiModel   string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	MaxToolRounds int
}

// TwilioConfig contains Twilio WhatsApp configuration
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
}

// Enabled reports whether WhatsApp delivery is configured
func (c TwilioConfig) Enabled() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.From != ""
}

// FeishuConfig contains Feishu configuration
type FeishuConfig struct {
	AppID     string
	AppSecret string
}

// Enabled reports whether Feishu delivery is configured
func (c FeishuConfig) Enabled() bool {
	return c.AppID != "" && c.AppSecret != ""
}

// AMQPConfig contains broker configuration
type AMQPConfig struct {
	URL      string
	Exchange string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	dbPath := os.Getenv("HEARTH_DB_PATH")
	if dbPath == "" {
		homeDir, _ := os.UserHomeDir()
		dbPath = filepath.Join(homeDir, ".hearth", "hearth.db")
	}

	provider := os.Getenv("LLM_PROVIDER")
	if provider == "" {
		provider = "gemini"
	}

	defaultUserName := os.Getenv("DEFAULT_USER_NAME")
	if defaultUserName == "" {
		defaultUserName = usecase.DefaultGhostName
	}

	exchange := os.Getenv("AMQP_EXCHANGE")
	if exchange == "" {
		exchange = "hearth.actions"
	}

	// Load prompts from YAML
	promptsConfig, err := LoadPromptsConfig(os.Getenv("PROMPTS_CONFIG_PATH"))
	if err != nil {
		promptsConfig = DefaultPromptsConfig()
	}

	return &Config{
		Store: StoreConfig{
			DBPath: dbPath,
		},
		HTTP: HTTPConfig{
			Addr:            envString("HTTP_ADDR", ":8080"),
			PipelineTimeout: time.Duration(envInt("PIPELINE_TIMEOUT_SECONDS", 60)) * time.Second,
			SweepInterval:   time.Duration(envInt("SWEEP_INTERVAL_SECONDS", 30)) * time.Second,
		},
		Debounce: DebounceValues{
			WindowMs: envInt("DEBOUNCE_WINDOW_MS", 5000),
			JitterMs: envInt("DEBOUNCE_JITTER_MS", 500),
		},
		LLM: LLMConfig{
			Provider:      provider,
			GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
			GeminiModel:   os.Getenv("GEMINI_MODEL"),
			OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
			OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
			OpenAIModel:   os.Getenv("OPENAI_MODEL"),
			MaxToolRounds: envInt("MAX_TOOL_ROUNDS", usecase.DefaultMaxToolRounds),
		},
		Twilio: TwilioConfig{
			AccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
			From:       os.Getenv("TWILIO_FROM"),
		},
		Feishu: FeishuConfig{
			AppID:     os.Getenv("FEISHU_APP_ID"),
			AppSecret: os.Getenv("FEISHU_APP_SECRET"),
		},
		AMQP: AMQPConfig{
			URL:      os.Getenv("AMQP_URL"),
			Exchange: exchange,
		},
		FanoutConcurrency: envInt("FANOUT_CONCURRENCY", usecase.DefaultFanoutConcurrency),
		Prompts:           promptsConfig,
		DefaultUserName:   defaultUserName,
		Debug:             os.Getenv("DEBUG") == "true",
	}
}

func envString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

// ToDebounceConfig converts to domain debounce configuration
func (c *Config) ToDebounceConfig() domain.DebounceConfig {
	return domain.DebounceConfig{
		Window: time.Duration(c.Debounce.WindowMs) * time.Millisecond,
		Jitter: time.Duration(c.Debounce.JitterMs) * time.Millisecond,
	}
}

// ToPromptConfig converts to prompt configuration
func (c *Config) ToPromptConfig() usecase.PromptConfig {
	if c.Prompts == nil {
		return usecase.DefaultPromptConfig
	}

	return usecase.PromptConfig{
		SystemPrompt:         c.Prompts.Assistant.SystemPrompt,
		Apology:              c.Prompts.Assistant.Apology,
		ScheduleTemplate:     c.Prompts.Notifications.Schedule,
		ShoppingTemplate:     c.Prompts.Notifications.Shopping,
		ShoppingListTemplate: c.Prompts.Notifications.ShoppingList,
		PantryAlertTemplate:  c.Prompts.Notifications.PantryAlert,
	}
}

// Validate validates the configuration needed to serve the webhook
func (c *Config) Validate() error {
	if err := c.ToDebounceConfig().Validate(); err != nil {
		return &ConfigError{Field: "DEBOUNCE_WINDOW_MS/DEBOUNCE_JITTER_MS", Message: err.Error()}
	}
	switch c.LLM.Provider {
	case "gemini":
		if c.LLM.GeminiAPIKey == "" {
			return &ConfigError{Field: "GEMINI_API_KEY", Message: "required"}
		}
	case "openai":
		if c.LLM.OpenAIAPIKey == "" {
			return &ConfigError{Field: "OPENAI_API_KEY", Message: "required"}
		}
	default:
		return &ConfigError{Field: "LLM_PROVIDER", Message: "must be gemini or openai"}
	}
	if c.LLM.MaxToolRounds < 1 {
		return &ConfigError{Field: "MAX_TOOL_ROUNDS", Message: "must be at least 1"}
	}
	if c.FanoutConcurrency < 1 {
		return &ConfigError{Field: "FANOUT_CONCURRENCY", Message: "must be at least 1"}
	}
	if c.HTTP.PipelineTimeout <= 0 {
		return &ConfigError{Field: "PIPELINE_TIMEOUT_SECONDS", Message: "must be positive"}
	}
	if !c.Twilio.Enabled() {
		return &ConfigError{Field: "TWILIO_ACCOUNT_SID/TWILIO_AUTH_TOKEN/TWILIO_FROM", Message: "required"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

// NewLogger builds the application logger
func NewLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
