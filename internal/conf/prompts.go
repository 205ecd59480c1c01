package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/hearth-home/hearth/internal/biz/usecase"
)

// PromptsConfig contains all prompt configurations loaded from YAML
type PromptsConfig struct {
	Assistant     AssistantPrompts     `yaml:"assistant"`
	Notifications NotificationTemplates `yaml:"notifications"`

	// Source is the file the prompts were loaded from, empty for built-in defaults
	Source string `yaml:"-"`
}

// AssistantPrompts contains the texts used by the conversation loop
type AssistantPrompts struct {
	SystemPrompt string `yaml:"system_prompt"`
	Apology      string `yaml:"apology"`
}

// NotificationTemplates contains fan-out message templates
type NotificationTemplates struct {
	Schedule     string `yaml:"schedule"`
	Shopping     string `yaml:"shopping"`
	ShoppingList string `yaml:"shopping_list"`
	PantryAlert  string `yaml:"pantry_alert"`
}

// LoadPromptsConfig loads prompts configuration from YAML file
func LoadPromptsConfig(configPath string) (*PromptsConfig, error) {
	// Try multiple paths
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/prompts.yaml",
			"/etc/hearth/prompts.yaml",
		}
		// Add path relative to executable
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "prompts.yaml"))
		}
	}

	var data []byte
	var loadedPath string
	for _, p := range paths {
		if b, err := os.ReadFile(p); err == nil {
			data = b
			loadedPath = p
			break
		}
	}

	if data == nil {
		if configPath != "" {
			return nil, fmt.Errorf("prompts file not found: %s", configPath)
		}
		return DefaultPromptsConfig(), nil
	}

	return ParsePromptsConfig(data, loadedPath)
}

// ParsePromptsConfig parses YAML prompts, filling empty fields with defaults
func ParsePromptsConfig(data []byte, source string) (*PromptsConfig, error) {
	var config PromptsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse prompts.yaml: %w", err)
	}

	config.fillDefaults()
	config.Source = source
	return &config, nil
}

// fillDefaults fills in default values for empty fields
func (c *PromptsConfig) fillDefaults() {
	defaults := DefaultPromptsConfig()

	fill := func(field *string, fallback string) {
		if *field == "" {
			*field = fallback
		}
	}
	fill(&c.Assistant.SystemPrompt, defaults.Assistant.SystemPrompt)
	fill(&c.Assistant.Apology, defaults.Assistant.Apology)
	fill(&c.Notifications.Schedule, defaults.Notifications.Schedule)
	fill(&c.Notifications.Shopping, defaults.Notifications.Shopping)
	fill(&c.Notifications.ShoppingList, defaults.Notifications.ShoppingList)
	fill(&c.Notifications.PantryAlert, defaults.Notifications.PantryAlert)
}

// DefaultPromptsConfig returns the built-in prompts
func DefaultPromptsConfig() *PromptsConfig {
	d := usecase.DefaultPromptConfig
	return &PromptsConfig{
		Assistant: AssistantPrompts{
			SystemPrompt: d.SystemPrompt,
			Apology:      d.Apology,
		},
		Notifications: NotificationTemplates{
			Schedule:     d.ScheduleTemplate,
			Shopping:     d.ShoppingTemplate,
			ShoppingList: d.ShoppingListTemplate,
			PantryAlert:  d.PantryAlertTemplate,
		},
	}
}
