package repo

import (
	"context"

	"github.com/hearth-home/hearth/internal/biz/domain"
)

// ModelRequest is one invocation of the tool-calling model
type ModelRequest struct {
	SystemPrompt string
	Tools        []domain.ToolSchema
	History      []domain.Turn
}

// ModelResponse is the model's answer: text, tool calls, or both
type ModelResponse struct {
	Text      string
	ToolCalls []domain.ToolCall
}

// ModelRepo is the language model interface
type ModelRepo interface {
	Invoke(ctx context.Context, req *ModelRequest) (*ModelResponse, error)
}
