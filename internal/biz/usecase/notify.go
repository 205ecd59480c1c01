package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hearth-home/hearth/internal/biz/domain"
	"github.com/hearth-home/hearth/internal/biz/repo"
)

// DefaultFanoutConcurrency bounds simultaneous deliveries of one broadcast
const DefaultFanoutConcurrency = 4

// Delivery is the outcome of one notification send
type Delivery struct {
	To      string
	Message string
	Err     error
}

// BroadcastReport collects per-recipient outcomes of a broadcast
type BroadcastReport struct {
	Messages   []string
	Recipients []string
	Deliveries []Delivery
}

// Sent counts successful deliveries
func (r *BroadcastReport) Sent() int {
	n := 0
	for _, d := range r.Deliveries {
		if d.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the failed deliveries
func (r *BroadcastReport) Failed() []Delivery {
	var failed []Delivery
	for _, d := range r.Deliveries {
		if d.Err != nil {
			failed = append(failed, d)
		}
	}
	return failed
}

// NotifyUsecase fans household actions out to the other members
type NotifyUsecase struct {
	users       *UserUsecase
	sender      repo.MessageRepo
	promptCfg   PromptConfig
	concurrency int
	logger      *zap.Logger
}

// NewNotifyUsecase creates a new notify usecase
func NewNotifyUsecase(users *UserUsecase, sender repo.MessageRepo, promptCfg PromptConfig, concurrency int, logger *zap.Logger) *NotifyUsecase {
	if concurrency <= 0 {
		concurrency = DefaultFanoutConcurrency
	}
	return &NotifyUsecase{
		users:       users,
		sender:      sender,
		promptCfg:   promptCfg,
		concurrency: concurrency,
		logger:      logger.Named("notify"),
	}
}

// Render builds the notification text for an action, or "" when the action is not announced
func (uc *NotifyUsecase) Render(actor domain.UserContext, action domain.Action) string {
	name := actor.DisplayName
	if name == "" {
		name = "Family Member"
	}

	switch action.Kind {
	case domain.ToolScheduleEvent:
		return fillTemplate(uc.promptCfg.ScheduleTemplate, map[string]string{
			"name":  name,
			"title": action.StringArg("title"),
			"date":  dayOf(action.StringArg("date")),
		})
	case domain.ToolAddShoppingItem:
		list := action.StringArg("listName")
		tmpl := uc.promptCfg.ShoppingListTemplate
		if list == "" || list == domain.DefaultListName {
			tmpl = uc.promptCfg.ShoppingTemplate
		}
		return fillTemplate(tmpl, map[string]string{
			"name": name,
			"item": action.StringArg("item"),
			"list": list,
		})
	case domain.ToolUpdatePantryStatus:
		if action.StringArg("status") != string(domain.PantryFinished) {
			return ""
		}
		return fillTemplate(uc.promptCfg.PantryAlertTemplate, map[string]string{
			"name": name,
			"item": action.StringArg("item"),
		})
	default:
		return ""
	}
}

// Broadcast notifies every known contact except the actor about the actions.
// Deliveries are independent; failures are logged and reported, never returned.
func (uc *NotifyUsecase) Broadcast(ctx context.Context, actor domain.UserContext, actions ...domain.Action) *BroadcastReport {
	report := &BroadcastReport{}
	for _, a := range actions {
		if msg := uc.Render(actor, a); msg != "" {
			report.Messages = append(report.Messages, msg)
		}
	}
	if len(report.Messages) == 0 {
		return report
	}

	contacts, err := uc.users.Contacts(ctx)
	if err != nil {
		uc.logger.Error("load contacts failed", zap.Error(err))
		return report
	}
	for _, addr := range contacts {
		if addr != actor.Address {
			report.Recipients = append(report.Recipients, addr)
		}
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(uc.concurrency)
	for _, to := range report.Recipients {
		for _, msg := range report.Messages {
			g.Go(func() error {
				err := uc.sender.Send(ctx, to, msg)
				if err != nil {
					uc.logger.Warn("notification failed", zap.String("to", to), zap.Error(err))
				}
				mu.Lock()
				report.Deliveries = append(report.Deliveries, Delivery{To: to, Message: msg, Err: err})
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()

	uc.logger.Info("broadcast finished",
		zap.String("actor", actor.ActingID),
		zap.Int("recipients", len(report.Recipients)),
		zap.Int("sent", report.Sent()),
		zap.Int("failed", len(report.Failed())))
	return report
}

func dayOf(date string) string {
	if t, err := time.Parse(time.RFC3339, date); err == nil {
		return t.Format("2006-01-02")
	}
	if len(date) >= 10 {
		return date[:10]
	}
	return date
}
