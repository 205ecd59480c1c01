package data

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"

	"github.com/hearth-home/hearth/internal/biz/domain"
	"github.com/hearth-home/hearth/internal/biz/repo"
)

// DefaultOpenAIModel is used when no model is configured
const DefaultOpenAIModel = "gpt-4o-mini"

// openaiRepo implements the model repository for OpenAI-compatible endpoints
type openaiRepo struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIRepo creates a model repository using the chat completions API.
// baseURL may point at any OpenAI-compatible service.
func NewOpenAIRepo(apiKey, baseURL, model string, logger *zap.Logger) (repo.ModelRepo, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &openaiRepo{
		client: openai.NewClientWithConfig(config),
		model:  model,
		logger: logger.Named("openai"),
	}, nil
}

// Invoke sends the conversation and returns text and tool calls
func (r *openaiRepo) Invoke(ctx context.Context, req *repo.ModelRequest) (*repo.ModelResponse, error) {
	messages, err := openaiMessages(req.SystemPrompt, req.History)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    r.model,
		Messages: messages,
		Tools:    openaiTools(req.Tools),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response choices")
	}

	msg := resp.Choices[0].Message
	out := &repo.ModelResponse{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				// Hand the broken call to the registry; it reports missing arguments to the model
				r.logger.Warn("unparseable tool arguments", zap.String("tool", tc.Function.Name), zap.Error(err))
				args = map[string]any{}
			}
		}
		out.ToolCalls = append(out.ToolCalls, domain.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: args,
		})
	}
	return out, nil
}

func openaiMessages(systemPrompt string, history []domain.Turn) ([]openai.ChatCompletionMessage, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
	}
	for _, turn := range history {
		switch turn.Role {
		case domain.RoleUser:
			messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: turn.Text})

		case domain.RoleModel:
			msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: turn.Text}
			for _, call := range turn.ToolCalls {
				encoded, err := json.Marshal(call.Args)
				if err != nil {
					return nil, fmt.Errorf("encode tool arguments: %w", err)
				}
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   call.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      call.Name,
						Arguments: string(encoded),
					},
				})
			}
			messages = append(messages, msg)

		case domain.RoleTool:
			for _, res := range turn.Responses {
				encoded, err := json.Marshal(res.Result)
				if err != nil {
					return nil, fmt.Errorf("encode tool result: %w", err)
				}
				messages = append(messages, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    string(encoded),
					Name:       res.Name,
					ToolCallID: res.CallID,
				})
			}
		}
	}
	return messages, nil
}

func openaiTools(schemas []domain.ToolSchema) []openai.Tool {
	tools := make([]openai.Tool, 0, len(schemas))
	for _, s := range schemas {
		props := make(map[string]jsonschema.Definition, len(s.Params))
		for _, p := range s.Params {
			def := jsonschema.Definition{
				Type:        jsonschema.String,
				Description: p.Description,
				Enum:        p.Enum,
			}
			if p.Type == "integer" {
				def.Type = jsonschema.Integer
			}
			props[p.Name] = def
		}
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        s.Name,
				Description: s.Description,
				Parameters: jsonschema.Definition{
					Type:       jsonschema.Object,
					Properties: props,
					Required:   s.RequiredParams(),
				},
			},
		})
	}
	return tools
}
