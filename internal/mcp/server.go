package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/hearth-home/hearth/internal/biz/domain"
	"github.com/hearth-home/hearth/internal/biz/usecase"
)

// Version is reported to MCP clients during initialization
const Version = "v1.0.0"

// ToolExecutor runs household tools. Implemented by usecase.ToolRegistry.
type ToolExecutor interface {
	Execute(ctx context.Context, call domain.ToolCall, user domain.UserContext) (domain.ToolResult, *domain.Action)
}

// Broadcaster announces mutating actions to the household.
// Implemented by usecase.NotifyUsecase.
type Broadcaster interface {
	Broadcast(ctx context.Context, actor domain.UserContext, actions ...domain.Action) *usecase.BroadcastReport
}

// HouseholdServer exposes the household tools over MCP, acting as one user
type HouseholdServer struct {
	server   *mcp.Server
	tools    ToolExecutor
	notifier Broadcaster
	user     domain.UserContext
	logger   *zap.Logger
}

// NewHouseholdServer creates an MCP server whose tool calls run as user.
// notifier may be nil, in which case changes are not announced.
func NewHouseholdServer(tools ToolExecutor, notifier Broadcaster, user domain.UserContext, logger *zap.Logger) *HouseholdServer {
	s := &HouseholdServer{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "hearth-tools",
			Version: Version,
		}, nil),
		tools:    tools,
		notifier: notifier,
		user:     user,
		logger:   logger.Named("mcp"),
	}
	s.registerTools()
	return s
}

// Server returns the underlying MCP server
func (s *HouseholdServer) Server() *mcp.Server {
	return s.server
}

// Run serves over stdin/stdout until the client disconnects or ctx is done
func (s *HouseholdServer) Run(ctx context.Context) error {
	s.logger.Info("serving household tools over stdio", zap.String("acting", s.user.ActingID))
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *HouseholdServer) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        string(domain.ToolScheduleEvent),
		Description: "Add an event to the family schedule. Everyone else in the household is told about it.",
	}, s.handleScheduleEvent)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        string(domain.ToolUpdatePantryStatus),
		Description: "Update the stock level of a pantry item. Marking an item finished is announced to the household and puts it on the shopping list.",
	}, s.handleUpdatePantryStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        string(domain.ToolAddShoppingItem),
		Description: "Add an item to a shopping list. Omit listName to use the list the item usually goes to.",
	}, s.handleAddShoppingItem)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        string(domain.ToolGetSchedule),
		Description: "List schedule events between two dates, inclusive.",
	}, s.handleGetSchedule)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        string(domain.ToolGetShoppingList),
		Description: "List the items still to buy.",
	}, s.handleGetShoppingList)
}

// ToolOutput is the structured result of every household tool
type ToolOutput struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
	Data     any    `json:"data,omitempty"`
	Notified int    `json:"notified,omitempty"`
}

// ScheduleEventInput is the input for schedule-event
type ScheduleEventInput struct {
	Title          string `json:"title" jsonschema:"Title of the event"`
	Date           string `json:"date" jsonschema:"ISO 8601 date or date-time of the event"`
	Type           string `json:"type,omitempty" jsonschema:"one-time or recurring"`
	RecurrenceRule string `json:"recurrenceRule,omitempty" jsonschema:"Recurrence rule for recurring events, e.g. weekly"`
}

func (s *HouseholdServer) handleScheduleEvent(ctx context.Context, req *mcp.CallToolRequest, input ScheduleEventInput) (*mcp.CallToolResult, ToolOutput, error) {
	args := map[string]any{"title": input.Title, "date": input.Date}
	if input.Type != "" {
		args["type"] = input.Type
	}
	if input.RecurrenceRule != "" {
		args["recurrenceRule"] = input.RecurrenceRule
	}
	return nil, s.execute(ctx, domain.ToolScheduleEvent, args), nil
}

// UpdatePantryStatusInput is the input for update-pantry-status
type UpdatePantryStatusInput struct {
	Item   string `json:"item" jsonschema:"Name of the item"`
	Status string `json:"status" jsonschema:"New stock level: in-stock, low or finished"`
}

func (s *HouseholdServer) handleUpdatePantryStatus(ctx context.Context, req *mcp.CallToolRequest, input UpdatePantryStatusInput) (*mcp.CallToolResult, ToolOutput, error) {
	return nil, s.execute(ctx, domain.ToolUpdatePantryStatus, map[string]any{
		"item":   input.Item,
		"status": input.Status,
	}), nil
}

// AddShoppingItemInput is the input for add-shopping-item
type AddShoppingItemInput struct {
	Item     string `json:"item" jsonschema:"Name of the item"`
	ListName string `json:"listName,omitempty" jsonschema:"Name of the list, e.g. Costco"`
}

func (s *HouseholdServer) handleAddShoppingItem(ctx context.Context, req *mcp.CallToolRequest, input AddShoppingItemInput) (*mcp.CallToolResult, ToolOutput, error) {
	args := map[string]any{"item": input.Item}
	if input.ListName != "" {
		args["listName"] = input.ListName
	}
	return nil, s.execute(ctx, domain.ToolAddShoppingItem, args), nil
}

// GetScheduleInput is the input for get-schedule
type GetScheduleInput struct {
	From string `json:"from,omitempty" jsonschema:"Start date, ISO 8601. Defaults to today"`
	To   string `json:"to,omitempty" jsonschema:"End date, ISO 8601. Defaults to seven days after the start"`
}

func (s *HouseholdServer) handleGetSchedule(ctx context.Context, req *mcp.CallToolRequest, input GetScheduleInput) (*mcp.CallToolResult, ToolOutput, error) {
	args := map[string]any{}
	if input.From != "" {
		args["from"] = input.From
	}
	if input.To != "" {
		args["to"] = input.To
	}
	return nil, s.execute(ctx, domain.ToolGetSchedule, args), nil
}

// GetShoppingListInput is the input for get-shopping-list
type GetShoppingListInput struct {
	ListName string `json:"listName,omitempty" jsonschema:"Only this list. Omit for every list"`
}

func (s *HouseholdServer) handleGetShoppingList(ctx context.Context, req *mcp.CallToolRequest, input GetShoppingListInput) (*mcp.CallToolResult, ToolOutput, error) {
	args := map[string]any{}
	if input.ListName != "" {
		args["listName"] = input.ListName
	}
	return nil, s.execute(ctx, domain.ToolGetShoppingList, args), nil
}

// execute runs the tool as the configured user and announces any change
func (s *HouseholdServer) execute(ctx context.Context, kind domain.ToolKind, args map[string]any) ToolOutput {
	call := domain.ToolCall{
		ID:   fmt.Sprintf("mcp-%s", kind),
		Name: string(kind),
		Args: args,
	}
	result, action := s.tools.Execute(ctx, call, s.user)

	out := ToolOutput{
		Success: result.Success,
		Message: result.Message,
		Error:   result.Error,
		Data:    result.Data,
	}
	if action != nil && s.notifier != nil {
		report := s.notifier.Broadcast(ctx, s.user, *action)
		out.Notified = report.Sent()
	}
	return out
}
