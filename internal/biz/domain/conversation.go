package domain

// Role represents the author of a conversation turn
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
	RoleTool  Role = "tool"
)

// ToolResponse carries a tool result back to the model
type ToolResponse struct {
	CallID string
	Name   string
	Result map[string]any
}

// Turn is one entry of the conversation sent to the model
type Turn struct {
	Role      Role
	Text      string
	ToolCalls []ToolCall     // Set on model turns that requested tools
	Responses []ToolResponse // Set on tool turns
}

// UserTurn creates a user turn
func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Text: text}
}

// DispatchState is the state of one dispatch cycle
type DispatchState string

const (
	StateIdle                  DispatchState = "idle"
	StateAwaitingModelResponse DispatchState = "awaiting_model_response"
	StateExecutingTool         DispatchState = "executing_tool"
	StateAwaitingFinalReply    DispatchState = "awaiting_final_reply"
	StateDone                  DispatchState = "done"
	StateFailed                DispatchState = "failed"
)

// Conversation tracks a single dispatch cycle
type Conversation struct {
	User    UserContext
	History []Turn
	State   DispatchState
	Actions []Action
}

// NewConversation starts a conversation with the consolidated text as the only user turn
func NewConversation(user UserContext, text string) *Conversation {
	return &Conversation{
		User:    user,
		History: []Turn{UserTurn(text)},
		State:   StateIdle,
	}
}

// Transition moves to the next state. Done and Failed are terminal.
func (c *Conversation) Transition(next DispatchState) {
	if c.State == StateDone || c.State == StateFailed {
		return
	}
	c.State = next
}

// AddModelTurn records a model response that requested tools
func (c *Conversation) AddModelTurn(text string, calls []ToolCall) {
	c.History = append(c.History, Turn{Role: RoleModel, Text: text, ToolCalls: calls})
}

// AddToolTurn records the function-response turn
func (c *Conversation) AddToolTurn(responses []ToolResponse) {
	c.History = append(c.History, Turn{Role: RoleTool, Responses: responses})
}

// RecordAction keeps the action of a successful mutating tool call
func (c *Conversation) RecordAction(a Action) {
	c.Actions = append(c.Actions, a)
}

// LastAction returns the most recent action, or nil
func (c *Conversation) LastAction() *Action {
	if len(c.Actions) == 0 {
		return nil
	}
	return &c.Actions[len(c.Actions)-1]
}
