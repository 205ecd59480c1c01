package usecase

import (
	"strings"
	"time"
)

// PromptConfig contains the texts the assistant speaks with
type PromptConfig struct {
	// SystemPrompt supports the {{now}} placeholder (RFC3339)
	SystemPrompt string
	Apology      string

	// Notification templates. Placeholders: {{name}} {{title}} {{date}} {{item}} {{list}}
	ScheduleTemplate     string
	ShoppingTemplate     string
	ShoppingListTemplate string // Used when the item went to a list other than the default
	PantryAlertTemplate  string
}

// DefaultPromptConfig is the built-in prompt configuration
var DefaultPromptConfig = PromptConfig{
	SystemPrompt: "You are Hearth, a helpful household assistant. You manage the family schedule, " +
		"the pantry and the shopping lists. Use the tools to make changes and answer briefly. " +
		"Current time is {{now}}",
	Apology:              "I'm sorry, I had trouble processing your request.",
	ScheduleTemplate:     `📅 *Schedule Update*: {{name}} added event "{{title}}" on {{date}}.`,
	ShoppingTemplate:     `🛒 *Shopping List*: {{name}} added "{{item}}".`,
	ShoppingListTemplate: `🛒 *Shopping List*: {{name}} added "{{item}}" to {{list}}.`,
	PantryAlertTemplate:  `⚠️ *Pantry Alert*: {{name}} marked "{{item}}" as finished.`,
}

// systemPromptAt renders the system prompt for the given time
func (c PromptConfig) systemPromptAt(now time.Time) string {
	prompt := c.SystemPrompt
	if !strings.Contains(prompt, "{{now}}") {
		return prompt + "\nCurrent time is " + now.Format(time.RFC3339)
	}
	return strings.ReplaceAll(prompt, "{{now}}", now.Format(time.RFC3339))
}

func fillTemplate(tmpl string, values map[string]string) string {
	// One pass: substituted values are never scanned for placeholders again
	pairs := make([]string, 0, 2*len(values))
	for k, v := range values {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
