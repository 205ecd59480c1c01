package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hearth-home/hearth/internal/biz/domain"
	"github.com/hearth-home/hearth/internal/biz/repo"
)

// ErrFunctionNotFound is reported to the model for unregistered tool names
var ErrFunctionNotFound = errors.New("Function not found")

// ToolStores groups the repositories the household tools operate on
type ToolStores struct {
	Lists          repo.ListRepo
	Items          repo.ItemRepo
	Pantry         repo.PantryRepo
	Classification repo.ClassificationRepo
	Schedule       repo.ScheduleRepo
}

// ToolRegistry executes the closed set of household tools
type ToolRegistry struct {
	stores ToolStores
	logger *zap.Logger
	now    func() time.Time
}

// NewToolRegistry creates a new tool registry
func NewToolRegistry(stores ToolStores, logger *zap.Logger) *ToolRegistry {
	return &ToolRegistry{
		stores: stores,
		logger: logger.Named("tools"),
		now:    time.Now,
	}
}

// Argument structs, decoded from the model-supplied map

type scheduleEventArgs struct {
	Title          string `json:"title"`
	Date           string `json:"date"`
	Type           string `json:"type"`
	RecurrenceRule string `json:"recurrenceRule"`
}

type pantryStatusArgs struct {
	Item   string `json:"item"`
	Status string `json:"status"`
}

type shoppingItemArgs struct {
	Item     string `json:"item"`
	ListName string `json:"listName"`
}

type scheduleRangeArgs struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type shoppingListArgs struct {
	ListName string `json:"listName"`
}

// Schemas describes every registered tool for the model
func (r *ToolRegistry) Schemas() []domain.ToolSchema {
	return []domain.ToolSchema{
		{
			Name:        string(domain.ToolScheduleEvent),
			Description: "Add an event to the family schedule.",
			Params: []domain.ToolParam{
				{Name: "title", Type: "string", Description: "Title of the event", Required: true},
				{Name: "date", Type: "string", Description: "ISO 8601 date or date-time of the event", Required: true},
				{Name: "type", Type: "string", Description: "Whether the event happens once or repeats",
					Enum: []string{string(domain.EventOneTime), string(domain.EventRecurring)}},
				{Name: "recurrenceRule", Type: "string", Description: "Recurrence rule for recurring events, e.g. 'weekly'"},
			},
		},
		{
			Name:        string(domain.ToolUpdatePantryStatus),
			Description: "Update the stock level of a pantry item.",
			Params: []domain.ToolParam{
				{Name: "item", Type: "string", Description: "Name of the item", Required: true},
				{Name: "status", Type: "string", Description: "New stock level", Required: true,
					Enum: []string{string(domain.PantryInStock), string(domain.PantryLow), string(domain.PantryFinished)}},
			},
		},
		{
			Name:        string(domain.ToolAddShoppingItem),
			Description: "Add an item to a shopping list. Omit listName to let the assistant pick the list the item usually goes to.",
			Params: []domain.ToolParam{
				{Name: "item", Type: "string", Description: "Name of the item", Required: true},
				{Name: "listName", Type: "string", Description: "Name of the list, e.g. 'Costco'"},
			},
		},
		{
			Name:        string(domain.ToolGetSchedule),
			Description: "List schedule events between two dates (inclusive).",
			Params: []domain.ToolParam{
				{Name: "from", Type: "string", Description: "Start date, ISO 8601. Defaults to today"},
				{Name: "to", Type: "string", Description: "End date, ISO 8601. Defaults to seven days after the start"},
			},
		},
		{
			Name:        string(domain.ToolGetShoppingList),
			Description: "List the items still to buy.",
			Params: []domain.ToolParam{
				{Name: "listName", Type: "string", Description: "Only this list. Omit for every list"},
			},
		},
	}
}

// Execute runs one tool call on behalf of user. It never returns an error:
// failures are reported inside the result. The action is non-nil only for
// mutating tools that changed household state.
func (r *ToolRegistry) Execute(ctx context.Context, call domain.ToolCall, user domain.UserContext) (domain.ToolResult, *domain.Action) {
	kind := domain.ParseToolKind(call.Name)
	log := r.logger.With(zap.String("tool", call.Name), zap.String("acting", user.ActingID))

	var (
		result domain.ToolResult
		args   map[string]any
		err    error
	)
	switch kind {
	case domain.ToolScheduleEvent:
		var in scheduleEventArgs
		if err = decodeArgs(call.Args, &in); err == nil {
			result, args, err = r.scheduleEvent(ctx, in, user)
		}
	case domain.ToolUpdatePantryStatus:
		var in pantryStatusArgs
		if err = decodeArgs(call.Args, &in); err == nil {
			result, args, err = r.updatePantryStatus(ctx, in, user)
		}
	case domain.ToolAddShoppingItem:
		var in shoppingItemArgs
		if err = decodeArgs(call.Args, &in); err == nil {
			result, args, err = r.addShoppingItem(ctx, in, user)
		}
	case domain.ToolGetSchedule:
		var in scheduleRangeArgs
		if err = decodeArgs(call.Args, &in); err == nil {
			result, err = r.getSchedule(ctx, in)
		}
	case domain.ToolGetShoppingList:
		var in shoppingListArgs
		if err = decodeArgs(call.Args, &in); err == nil {
			result, err = r.getShoppingList(ctx, in, user)
		}
	default:
		err = ErrFunctionNotFound
	}

	if err != nil {
		log.Warn("tool failed", zap.Error(err))
		return domain.ToolFailure(err), nil
	}
	log.Info("tool executed", zap.String("message", result.Message))

	if !kind.Mutates() || args == nil {
		return result, nil
	}
	return result, &domain.Action{Kind: kind, Args: args, Result: result}
}

func (r *ToolRegistry) scheduleEvent(ctx context.Context, in scheduleEventArgs, user domain.UserContext) (domain.ToolResult, map[string]any, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.ToolResult{}, nil, fmt.Errorf("%w: title", domain.ErrMissingArgument)
	}
	if strings.TrimSpace(in.Date) == "" {
		return domain.ToolResult{}, nil, fmt.Errorf("%w: date", domain.ErrMissingArgument)
	}
	date, err := ParseDate(in.Date)
	if err != nil {
		return domain.ToolResult{}, nil, err
	}

	eventType := domain.EventOneTime
	switch domain.EventType(strings.ToLower(strings.TrimSpace(in.Type))) {
	case "", domain.EventOneTime:
	case domain.EventRecurring:
		eventType = domain.EventRecurring
	default:
		return domain.ToolResult{}, nil, fmt.Errorf("invalid event type %q", in.Type)
	}

	event := &domain.ScheduleEvent{
		ID:        uuid.NewString(),
		Title:     title,
		Date:      date,
		Type:      eventType,
		CreatedBy: user.ActingID,
		CreatedAt: r.now(),
	}
	if eventType == domain.EventRecurring {
		event.RecurrenceRule = strings.TrimSpace(in.RecurrenceRule)
	}
	if err := r.stores.Schedule.Create(ctx, event); err != nil {
		return domain.ToolResult{}, nil, fmt.Errorf("create event: %w", err)
	}

	result := domain.ToolResult{
		Success: true,
		Message: fmt.Sprintf("Event '%s' added for %s.", title, in.Date),
		Data:    map[string]any{"id": event.ID},
	}
	args := map[string]any{
		"title":     title,
		"date":      date.Format(time.RFC3339),
		"type":      string(eventType),
		"createdBy": user.ActingID,
	}
	if event.RecurrenceRule != "" {
		args["recurrenceRule"] = event.RecurrenceRule
	}
	return result, args, nil
}

func (r *ToolRegistry) updatePantryStatus(ctx context.Context, in pantryStatusArgs, user domain.UserContext) (domain.ToolResult, map[string]any, error) {
	item := strings.TrimSpace(in.Item)
	if item == "" {
		return domain.ToolResult{}, nil, fmt.Errorf("%w: item", domain.ErrMissingArgument)
	}
	status, err := domain.ParsePantryStatus(in.Status)
	if err != nil {
		return domain.ToolResult{}, nil, fmt.Errorf("%w %q", err, in.Status)
	}

	previous, err := r.stores.Pantry.SetStatus(ctx, item, status, user.ActingID, r.now())
	if err != nil {
		return domain.ToolResult{}, nil, fmt.Errorf("set pantry status: %w", err)
	}

	result := domain.ToolResult{
		Success: true,
		Message: fmt.Sprintf("Updated '%s' to %s.", item, status),
	}

	// Restock on the transition into finished only
	if status == domain.PantryFinished && previous != domain.PantryFinished {
		list, added, err := r.addToList(ctx, user, item, "", true)
		switch {
		case err != nil:
			r.logger.Warn("auto restock failed", zap.String("item", item), zap.Error(err))
		case added:
			result.Message += fmt.Sprintf(" Added it to the %s list.", list.Name)
			result.Data = map[string]any{"restockedTo": list.Name}
		}
	}

	args := map[string]any{
		"item":   item,
		"status": string(status),
	}
	return result, args, nil
}

func (r *ToolRegistry) addShoppingItem(ctx context.Context, in shoppingItemArgs, user domain.UserContext) (domain.ToolResult, map[string]any, error) {
	item := strings.TrimSpace(in.Item)
	if item == "" {
		return domain.ToolResult{}, nil, fmt.Errorf("%w: item", domain.ErrMissingArgument)
	}

	list, added, err := r.addToList(ctx, user, item, strings.TrimSpace(in.ListName), false)
	if err != nil {
		return domain.ToolResult{}, nil, err
	}
	if !added {
		// Nothing changed, so there is nothing to broadcast
		return domain.ToolResult{
			Success: true,
			Message: fmt.Sprintf("'%s' is already in the %s list.", item, list.Name),
		}, nil, nil
	}

	result := domain.ToolResult{
		Success: true,
		Message: fmt.Sprintf("Added '%s' to %s.", item, list.Name),
	}
	args := map[string]any{
		"item":     item,
		"listName": list.Name,
	}
	return result, args, nil
}

// addToList resolves the target list, records the classification and inserts
// the item unless an unbought item with the same name is already there
func (r *ToolRegistry) addToList(ctx context.Context, user domain.UserContext, item, listName string, auto bool) (*domain.ShoppingList, bool, error) {
	list, err := r.resolveList(ctx, user.ActingID, item, listName)
	if err != nil {
		return nil, false, err
	}

	entry := &domain.ClassificationEntry{
		OwnerID:   user.ActingID,
		ItemKey:   domain.NormalizeItemName(item),
		ListID:    list.ID,
		ListName:  list.Name,
		UpdatedAt: r.now(),
	}
	if err := r.stores.Classification.Upsert(ctx, entry); err != nil {
		return nil, false, fmt.Errorf("record classification: %w", err)
	}

	addedBy := user.ActingID
	if auto {
		addedBy = "pantry"
	}
	added, err := r.stores.Items.AddUnbought(ctx, &domain.ListItem{
		ID:        uuid.NewString(),
		ListID:    list.ID,
		Name:      item,
		AutoAdded: auto,
		AddedBy:   addedBy,
		AddedAt:   r.now(),
	})
	if err != nil {
		return nil, false, fmt.Errorf("create item: %w", err)
	}
	return list, added, nil
}

// resolveList picks the target list: explicit name, then the classification
// log if its list still exists, then the default list
func (r *ToolRegistry) resolveList(ctx context.Context, ownerID, item, listName string) (*domain.ShoppingList, error) {
	if listName != "" {
		return r.findOrCreateList(ctx, ownerID, listName)
	}

	entry, err := r.stores.Classification.Get(ctx, ownerID, domain.NormalizeItemName(item))
	switch {
	case err == nil:
		list, err := r.stores.Lists.GetByID(ctx, entry.ListID)
		if err == nil {
			return list, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("get classified list: %w", err)
		}
		r.logger.Debug("classified list no longer exists",
			zap.String("item", entry.ItemKey),
			zap.String("list", entry.ListName))
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("get classification: %w", err)
	}

	return r.findOrCreateList(ctx, ownerID, domain.DefaultListName)
}

func (r *ToolRegistry) findOrCreateList(ctx context.Context, ownerID, name string) (*domain.ShoppingList, error) {
	list, err := r.stores.Lists.FindOrCreate(ctx, &domain.ShoppingList{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		CreatedAt: r.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("find or create list: %w", err)
	}
	return list, nil
}

func (r *ToolRegistry) getSchedule(ctx context.Context, in scheduleRangeArgs) (domain.ToolResult, error) {
	now := r.now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if strings.TrimSpace(in.From) != "" {
		parsed, err := ParseDate(in.From)
		if err != nil {
			return domain.ToolResult{}, err
		}
		from = parsed
	}
	to := from.AddDate(0, 0, 7)
	if strings.TrimSpace(in.To) != "" {
		parsed, err := ParseDate(in.To)
		if err != nil {
			return domain.ToolResult{}, err
		}
		to = EndOfDay(in.To, parsed)
	}

	events, err := r.stores.Schedule.ListBetween(ctx, from, to)
	if err != nil {
		return domain.ToolResult{}, fmt.Errorf("list events: %w", err)
	}

	entries := make([]map[string]any, 0, len(events))
	for _, e := range events {
		entry := map[string]any{
			"title": e.Title,
			"date":  e.Date.Format(time.RFC3339),
			"type":  string(e.Type),
		}
		if e.RecurrenceRule != "" {
			entry["recurrenceRule"] = e.RecurrenceRule
		}
		entries = append(entries, entry)
	}

	result := domain.ToolResult{Success: true, Data: map[string]any{"events": entries}}
	if len(entries) == 0 {
		result.Message = fmt.Sprintf("No events found between %s and %s.",
			from.Format("2006-01-02"), to.Format("2006-01-02"))
	}
	return result, nil
}

func (r *ToolRegistry) getShoppingList(ctx context.Context, in shoppingListArgs, user domain.UserContext) (domain.ToolResult, error) {
	var lists []*domain.ShoppingList
	if name := strings.TrimSpace(in.ListName); name != "" {
		list, err := r.stores.Lists.FindByName(ctx, user.ActingID, name)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ToolResult{}, fmt.Errorf("list %q not found", name)
		}
		if err != nil {
			return domain.ToolResult{}, fmt.Errorf("find list: %w", err)
		}
		lists = append(lists, list)
	} else {
		all, err := r.stores.Lists.ListByOwner(ctx, user.ActingID)
		if err != nil {
			return domain.ToolResult{}, fmt.Errorf("list lists: %w", err)
		}
		lists = all
	}

	byList := make(map[string][]string, len(lists))
	total := 0
	for _, list := range lists {
		items, err := r.stores.Items.ListUnbought(ctx, list.ID)
		if err != nil {
			return domain.ToolResult{}, fmt.Errorf("list items: %w", err)
		}
		names := make([]string, 0, len(items))
		for _, it := range items {
			names = append(names, it.Name)
		}
		byList[list.Name] = names
		total += len(names)
	}

	result := domain.ToolResult{Success: true, Data: map[string]any{"lists": byList}}
	if total == 0 {
		result.Message = "The shopping list is empty."
	}
	return result, nil
}

// decodeArgs binds the model-supplied argument map to a typed struct.
// Non-string scalars are accepted for string fields.
func decodeArgs(raw map[string]any, out any) error {
	normalized := make(map[string]any, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string, nil:
			normalized[k] = val
		case float64, int, int64, bool:
			normalized[k] = fmt.Sprint(val)
		default:
			normalized[k] = val
		}
	}
	data, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDate accepts RFC3339, ISO date-times without offset (read as UTC) and plain dates
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// EndOfDay extends a plain date to the last instant of that day.
// Values carrying a time of day are returned unchanged.
func EndOfDay(raw string, t time.Time) time.Time {
	if len(strings.TrimSpace(raw)) == len("2006-01-02") {
		return t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t
}
