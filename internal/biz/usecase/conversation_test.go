package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hearth-home/hearth/internal/biz/domain"
	"github.com/hearth-home/hearth/internal/biz/repo"
)

func newDispatcher(f *fixture, model *mockModelRepo) *ConversationUsecase {
	uc := NewConversationUsecase(f.userUC, f.tools, model, DefaultPromptConfig, 0, zap.NewNop())
	uc.now = func() time.Time { return time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC) }
	return uc
}

func TestProcess_PlainReply(t *testing.T) {
	f := newFixture()
	model := &mockModelRepo{responses: []*repo.ModelResponse{{Text: "Hi there!"}}}

	result := newDispatcher(f, model).Process(context.Background(), "hello", "whatsapp:+1")

	assert.Equal(t, "Hi there!", result.Reply)
	assert.Equal(t, domain.StateDone, result.State)
	assert.Empty(t, result.Actions)

	require.Len(t, model.requests, 1)
	req := model.requests[0]
	assert.Contains(t, req.SystemPrompt, "2025-03-01T08:00:00Z")
	assert.Len(t, req.Tools, 5)
	require.Len(t, req.History, 1)
	assert.Equal(t, "hello", req.History[0].Text)
}

func TestProcess_ToolRoundTrip(t *testing.T) {
	f := newFixture()
	model := &mockModelRepo{responses: []*repo.ModelResponse{
		{ToolCalls: []domain.ToolCall{
			{ID: "1", Name: "add-shopping-item", Args: map[string]any{"item": "milk"}},
			{ID: "2", Name: "update-pantry-status", Args: map[string]any{"item": "olive oil", "status": "finished"}},
		}},
		{Text: "Added milk and noted the olive oil."},
	}}

	result := newDispatcher(f, model).Process(context.Background(), "add milk\nolive oil is finished", "whatsapp:+1")

	assert.Equal(t, "Added milk and noted the olive oil.", result.Reply)
	assert.Equal(t, domain.StateDone, result.State)
	require.Len(t, result.Actions, 2)
	assert.Equal(t, domain.ToolUpdatePantryStatus, result.LastAction().Kind)
	assert.Equal(t, result.User.ActingID, f.users.users[0].ID)

	// Second request carries user turn, model turn and one function-response turn
	require.Len(t, model.requests, 2)
	history := model.requests[1].History
	require.Len(t, history, 3)
	assert.Equal(t, domain.RoleTool, history[2].Role)
	require.Len(t, history[2].Responses, 2)
	inner := history[2].Responses[0].Result["result"].(map[string]any)
	assert.Equal(t, true, inner["success"])
}

func TestProcess_UnknownToolIsFedBack(t *testing.T) {
	f := newFixture()
	model := &mockModelRepo{responses: []*repo.ModelResponse{
		{ToolCalls: []domain.ToolCall{{ID: "1", Name: "launchRocket"}}},
		{Text: "I can't do that."},
	}}

	result := newDispatcher(f, model).Process(context.Background(), "launch", "whatsapp:+1")

	assert.Equal(t, "I can't do that.", result.Reply)
	assert.Empty(t, result.Actions)
	inner := model.requests[1].History[2].Responses[0].Result["result"].(map[string]any)
	assert.Equal(t, "Function not found", inner["error"])
}

func TestProcess_ModelErrorApologises(t *testing.T) {
	f := newFixture()
	model := &mockModelRepo{
		responses: []*repo.ModelResponse{
			{ToolCalls: []domain.ToolCall{{ID: "1", Name: "add-shopping-item", Args: map[string]any{"item": "milk"}}}},
		},
		err:   errors.New("503 overloaded"),
		errAt: 1,
	}

	result := newDispatcher(f, model).Process(context.Background(), "add milk", "whatsapp:+1")

	assert.Equal(t, DefaultPromptConfig.Apology, result.Reply)
	assert.Equal(t, domain.StateFailed, result.State)
	assert.Empty(t, result.Actions)
}

func TestProcess_DirectoryErrorApologises(t *testing.T) {
	f := newFixture()
	f.users.findErr = errors.New("store down")
	model := &mockModelRepo{}

	result := newDispatcher(f, model).Process(context.Background(), "hi", "whatsapp:+1")

	assert.Equal(t, DefaultPromptConfig.Apology, result.Reply)
	assert.Equal(t, domain.StateFailed, result.State)
	assert.Empty(t, model.requests)
}

func TestProcess_ToolRoundLimit(t *testing.T) {
	f := newFixture()
	loop := &repo.ModelResponse{
		Text:      "still working",
		ToolCalls: []domain.ToolCall{{ID: "x", Name: "get-shopping-list"}},
	}
	model := &mockModelRepo{responses: []*repo.ModelResponse{loop, loop, loop, loop, loop}}

	result := newDispatcher(f, model).Process(context.Background(), "what do we need?", "whatsapp:+1")

	assert.Len(t, model.requests, DefaultMaxToolRounds+1)
	assert.Equal(t, "still working", result.Reply)
	assert.Equal(t, domain.StateDone, result.State)
}

func TestProcess_EmptyReplyFallsBackToApology(t *testing.T) {
	f := newFixture()
	model := &mockModelRepo{responses: []*repo.ModelResponse{{Text: "  "}}}

	result := newDispatcher(f, model).Process(context.Background(), "hi", "whatsapp:+1")
	assert.Equal(t, DefaultPromptConfig.Apology, result.Reply)
}
