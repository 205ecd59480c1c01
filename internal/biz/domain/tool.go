package domain

// ToolKind identifies one of the known household tools
type ToolKind string

const (
	ToolScheduleEvent      ToolKind = "schedule-event"
	ToolUpdatePantryStatus ToolKind = "update-pantry-status"
	ToolAddShoppingItem    ToolKind = "add-shopping-item"
	ToolGetSchedule        ToolKind = "get-schedule"
	ToolGetShoppingList    ToolKind = "get-shopping-list"
	ToolUnknown            ToolKind = "unknown"
)

// ParseToolKind maps a model-supplied function name to a kind.
// Unregistered names map to ToolUnknown.
func ParseToolKind(name string) ToolKind {
	switch k := ToolKind(name); k {
	case ToolScheduleEvent, ToolUpdatePantryStatus, ToolAddShoppingItem, ToolGetSchedule, ToolGetShoppingList:
		return k
	default:
		return ToolUnknown
	}
}

// Mutates reports whether the tool changes household state (and is broadcastable)
func (k ToolKind) Mutates() bool {
	switch k {
	case ToolScheduleEvent, ToolUpdatePantryStatus, ToolAddShoppingItem:
		return true
	default:
		return false
	}
}

// ToolCall is a function invocation requested by the model
type ToolCall struct {
	ID        string
	Name      string
	Args      map[string]any
	Signature []byte // Opaque provider token echoed back with the call, if any
}

// ToolResult is the uniform outcome of a tool
type ToolResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ToolFailure builds an error result
func ToolFailure(err error) ToolResult {
	return ToolResult{Success: false, Error: err.Error()}
}

// AsMap converts the result into the map form sent back to the model
func (r ToolResult) AsMap() map[string]any {
	m := map[string]any{"success": r.Success}
	if r.Message != "" {
		m["message"] = r.Message
	}
	if r.Error != "" {
		m["error"] = r.Error
	}
	if r.Data != nil {
		m["data"] = r.Data
	}
	return m
}

// ToolParam describes one parameter of a tool schema
type ToolParam struct {
	Name        string
	Type        string // "string" or "integer"
	Description string
	Required    bool
	Enum        []string
}

// ToolSchema describes a tool for the model
type ToolSchema struct {
	Name        string
	Description string
	Params      []ToolParam
}

// RequiredParams lists the names of required parameters
func (s ToolSchema) RequiredParams() []string {
	var names []string
	for _, p := range s.Params {
		if p.Required {
			names = append(names, p.Name)
		}
	}
	return names
}

// Action is the record of a successful mutating tool call, consumed by fan-out
type Action struct {
	Kind   ToolKind       `json:"kind"`
	Args   map[string]any `json:"args"`
	Result ToolResult     `json:"result"`
}

// StringArg reads a string argument, returning "" when absent
func (a Action) StringArg(name string) string {
	v, _ := a.Args[name].(string)
	return v
}
