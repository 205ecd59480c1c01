package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearth-home/hearth/internal/biz/usecase"
)

func validConfig() *Config {
	return &Config{
		HTTP:              HTTPConfig{Addr: ":8080", PipelineTimeout: time.Minute},
		Debounce:          DebounceValues{WindowMs: 5000, JitterMs: 500},
		LLM:               LLMConfig{Provider: "gemini", GeminiAPIKey: "key", MaxToolRounds: 3},
		Twilio:            TwilioConfig{AccountSID: "AC1", AuthToken: "tok", From: "whatsapp:+1"},
		FanoutConcurrency: 4,
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("HEARTH_DB_PATH", "")
	t.Setenv("DEBOUNCE_WINDOW_MS", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("PROMPTS_CONFIG_PATH", "")

	cfg := LoadFromEnv()
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, 5000, cfg.Debounce.WindowMs)
	assert.Equal(t, 500, cfg.Debounce.JitterMs)
	assert.Equal(t, 60*time.Second, cfg.HTTP.PipelineTimeout)
	assert.Equal(t, usecase.DefaultMaxToolRounds, cfg.LLM.MaxToolRounds)
	assert.Equal(t, usecase.DefaultGhostName, cfg.DefaultUserName)
	assert.Equal(t, "hearth.actions", cfg.AMQP.Exchange)
	assert.Equal(t, "hearth.db", filepath.Base(cfg.Store.DBPath))
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("DEBOUNCE_WINDOW_MS", "2000")
	t.Setenv("DEBOUNCE_JITTER_MS", "100")
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("MAX_TOOL_ROUNDS", "not-a-number")
	t.Setenv("DEBUG", "true")

	cfg := LoadFromEnv()
	assert.Equal(t, 2*time.Second, cfg.ToDebounceConfig().Window)
	assert.Equal(t, 100*time.Millisecond, cfg.ToDebounceConfig().Jitter)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, usecase.DefaultMaxToolRounds, cfg.LLM.MaxToolRounds)
	assert.True(t, cfg.Debug)
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name  string
		mut   func(*Config)
		field string
	}{
		{"jitter not below window", func(c *Config) { c.Debounce.JitterMs = 5000 }, "DEBOUNCE_WINDOW_MS/DEBOUNCE_JITTER_MS"},
		{"missing gemini key", func(c *Config) { c.LLM.GeminiAPIKey = "" }, "GEMINI_API_KEY"},
		{"missing openai key", func(c *Config) { c.LLM.Provider = "openai" }, "OPENAI_API_KEY"},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "llama" }, "LLM_PROVIDER"},
		{"zero rounds", func(c *Config) { c.LLM.MaxToolRounds = 0 }, "MAX_TOOL_ROUNDS"},
		{"zero fanout", func(c *Config) { c.FanoutConcurrency = 0 }, "FANOUT_CONCURRENCY"},
		{"no twilio", func(c *Config) { c.Twilio = TwilioConfig{} }, "TWILIO_ACCOUNT_SID/TWILIO_AUTH_TOKEN/TWILIO_FROM"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mut(cfg)
			err := cfg.Validate()
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestParsePromptsConfig_FillsDefaults(t *testing.T) {
	cfg, err := ParsePromptsConfig([]byte(`
assistant:
  apology: "Oops, try again."
notifications:
  pantry_alert: "{{name}} finished {{item}}"
`), "test.yaml")
	require.NoError(t, err)

	assert.Equal(t, "Oops, try again.", cfg.Assistant.Apology)
	assert.Equal(t, usecase.DefaultPromptConfig.SystemPrompt, cfg.Assistant.SystemPrompt)
	assert.Equal(t, "{{name}} finished {{item}}", cfg.Notifications.PantryAlert)
	assert.Equal(t, usecase.DefaultPromptConfig.ScheduleTemplate, cfg.Notifications.Schedule)
	assert.Equal(t, "test.yaml", cfg.Source)

	pc := (&Config{Prompts: cfg}).ToPromptConfig()
	assert.Equal(t, "Oops, try again.", pc.Apology)
	assert.Equal(t, "{{name}} finished {{item}}", pc.PantryAlertTemplate)
}

func TestLoadPromptsConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("assistant:\n  system_prompt: \"Hi {{now}}\"\n"), 0o644))

	cfg, err := LoadPromptsConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Hi {{now}}", cfg.Assistant.SystemPrompt)
	assert.Equal(t, path, cfg.Source)

	_, err = LoadPromptsConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = ParsePromptsConfig([]byte("assistant: ["), "bad.yaml")
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))

	logger, err = NewLogger(false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1))
}
