package data

import (
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/hearth-home/hearth/internal/biz/domain"
)

var testSchemas = []domain.ToolSchema{{
	Name:        "update-pantry-status",
	Description: "Update pantry",
	Params: []domain.ToolParam{
		{Name: "item", Type: "string", Required: true},
		{Name: "status", Type: "string", Required: true, Enum: []string{"in-stock", "low", "finished"}},
		{Name: "days", Type: "integer"},
	},
}}

var testHistory = []domain.Turn{
	domain.UserTurn("we're out of milk"),
	{
		Role: domain.RoleModel,
		ToolCalls: []domain.ToolCall{{
			ID: "call-1", Name: "update-pantry-status",
			Args:      map[string]any{"item": "milk", "status": "finished"},
			Signature: []byte("sig"),
		}},
	},
	{
		Role: domain.RoleTool,
		Responses: []domain.ToolResponse{{
			CallID: "call-1", Name: "update-pantry-status",
			Result: map[string]any{"result": map[string]any{"success": true}},
		}},
	},
}

func TestOpenAIMessages(t *testing.T) {
	msgs, err := openaiMessages("be helpful", testHistory)
	require.NoError(t, err)
	require.Len(t, msgs, 4)

	assert.Equal(t, openai.ChatMessageRoleSystem, msgs[0].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, msgs[1].Role)

	require.Len(t, msgs[2].ToolCalls, 1)
	assert.Equal(t, "call-1", msgs[2].ToolCalls[0].ID)
	assert.JSONEq(t, `{"item":"milk","status":"finished"}`, msgs[2].ToolCalls[0].Function.Arguments)

	assert.Equal(t, openai.ChatMessageRoleTool, msgs[3].Role)
	assert.Equal(t, "call-1", msgs[3].ToolCallID)
	assert.JSONEq(t, `{"result":{"success":true}}`, msgs[3].Content)
}

func TestOpenAITools(t *testing.T) {
	tools := openaiTools(testSchemas)
	require.Len(t, tools, 1)

	params, ok := tools[0].Function.Parameters.(jsonschema.Definition)
	require.True(t, ok)
	assert.Equal(t, []string{"item", "status"}, params.Required)
	assert.Equal(t, jsonschema.Integer, params.Properties["days"].Type)
	assert.Equal(t, []string{"in-stock", "low", "finished"}, params.Properties["status"].Enum)
}

func TestGeminiContents(t *testing.T) {
	contents := geminiContents(testHistory)
	require.Len(t, contents, 3)

	assert.Equal(t, genai.RoleUser, contents[0].Role)

	call := contents[1].Parts[0]
	require.NotNil(t, call.FunctionCall)
	assert.Equal(t, "update-pantry-status", call.FunctionCall.Name)
	assert.Equal(t, []byte("sig"), call.ThoughtSignature)

	resp := contents[2].Parts[0].FunctionResponse
	require.NotNil(t, resp)
	assert.Equal(t, "call-1", resp.ID)
	assert.Contains(t, resp.Response, "result")
}

func TestGeminiDeclarations(t *testing.T) {
	decls := geminiDeclarations(testSchemas)
	require.Len(t, decls, 1)
	assert.Equal(t, genai.TypeObject, decls[0].Parameters.Type)
	assert.Equal(t, genai.TypeInteger, decls[0].Parameters.Properties["days"].Type)
	assert.Equal(t, []string{"item", "status"}, decls[0].Parameters.Required)
}
