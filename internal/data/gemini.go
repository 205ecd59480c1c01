package data

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/hearth-home/hearth/internal/biz/domain"
	"github.com/hearth-home/hearth/internal/biz/repo"
)

// DefaultGeminiModel is used when no model is configured
const DefaultGeminiModel = "gemini-2.5-flash"

// geminiRepo implements the model repository with Gemini function calling
type geminiRepo struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewGeminiRepo creates a Gemini model repository
func NewGeminiRepo(ctx context.Context, apiKey, model string, logger *zap.Logger) (repo.ModelRepo, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &geminiRepo{
		client: client,
		model:  model,
		logger: logger.Named("gemini"),
	}, nil
}

// Invoke sends the conversation and returns text and function calls
func (r *geminiRepo) Invoke(ctx context.Context, req *repo.ModelRequest) (*repo.ModelResponse, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.SystemPrompt, genai.RoleUser),
		Tools:             []*genai.Tool{{FunctionDeclarations: geminiDeclarations(req.Tools)}},
	}

	resp, err := r.client.Models.GenerateContent(ctx, r.model, geminiContents(req.History), config)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	out := &repo.ModelResponse{Text: resp.Text()}
	for i, fc := range resp.FunctionCalls() {
		call := domain.ToolCall{
			ID:   fc.ID,
			Name: fc.Name,
			Args: fc.Args,
		}
		if call.ID == "" {
			call.ID = fmt.Sprintf("%s-%d", fc.Name, i)
		}
		call.Signature = thoughtSignature(resp, fc)
		out.ToolCalls = append(out.ToolCalls, call)
	}

	r.logger.Debug("model responded",
		zap.Int("tool_calls", len(out.ToolCalls)),
		zap.Int("text_len", len(out.Text)))
	return out, nil
}

// thoughtSignature finds the signature attached to a function call part
func thoughtSignature(resp *genai.GenerateContentResponse, fc *genai.FunctionCall) []byte {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.FunctionCall == fc {
			return part.ThoughtSignature
		}
	}
	return nil
}

func geminiContents(history []domain.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		switch turn.Role {
		case domain.RoleUser:
			contents = append(contents, genai.NewContentFromText(turn.Text, genai.RoleUser))

		case domain.RoleModel:
			var parts []*genai.Part
			if turn.Text != "" {
				parts = append(parts, genai.NewPartFromText(turn.Text))
			}
			for _, call := range turn.ToolCalls {
				parts = append(parts, &genai.Part{
					FunctionCall:     &genai.FunctionCall{ID: call.ID, Name: call.Name, Args: call.Args},
					ThoughtSignature: call.Signature,
				})
			}
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))

		case domain.RoleTool:
			parts := make([]*genai.Part, 0, len(turn.Responses))
			for _, res := range turn.Responses {
				part := genai.NewPartFromFunctionResponse(res.Name, res.Result)
				part.FunctionResponse.ID = res.CallID
				parts = append(parts, part)
			}
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
		}
	}
	return contents
}

func geminiDeclarations(schemas []domain.ToolSchema) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(schemas))
	for _, s := range schemas {
		props := make(map[string]*genai.Schema, len(s.Params))
		for _, p := range s.Params {
			prop := &genai.Schema{
				Type:        genai.TypeString,
				Description: p.Description,
				Enum:        p.Enum,
			}
			if p.Type == "integer" {
				prop.Type = genai.TypeInteger
			}
			props[p.Name] = prop
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        s.Name,
			Description: s.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   s.RequiredParams(),
			},
		})
	}
	return decls
}
