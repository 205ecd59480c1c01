package usecase

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hearth-home/hearth/internal/biz/domain"
	"github.com/hearth-home/hearth/internal/biz/repo"
)

// DefaultMaxToolRounds bounds how many tool-execution rounds one message may trigger
const DefaultMaxToolRounds = 3

// DispatchResult is the outcome of processing one consolidated message
type DispatchResult struct {
	Reply   string
	Actions []domain.Action
	User    domain.UserContext
	State   domain.DispatchState
}

// LastAction returns the most recent action, or nil
func (r *DispatchResult) LastAction() *domain.Action {
	if len(r.Actions) == 0 {
		return nil
	}
	return &r.Actions[len(r.Actions)-1]
}

// ConversationUsecase drives the model tool-calling loop (aggregate)
type ConversationUsecase struct {
	users     *UserUsecase
	tools     *ToolRegistry
	model     repo.ModelRepo
	promptCfg PromptConfig
	maxRounds int
	logger    *zap.Logger
	now       func() time.Time
}

// NewConversationUsecase creates a new conversation usecase
func NewConversationUsecase(
	users *UserUsecase,
	tools *ToolRegistry,
	model repo.ModelRepo,
	promptCfg PromptConfig,
	maxRounds int,
	logger *zap.Logger,
) *ConversationUsecase {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxToolRounds
	}
	if promptCfg.Apology == "" {
		promptCfg.Apology = DefaultPromptConfig.Apology
	}
	return &ConversationUsecase{
		users:     users,
		tools:     tools,
		model:     model,
		promptCfg: promptCfg,
		maxRounds: maxRounds,
		logger:    logger.Named("dispatcher"),
		now:       time.Now,
	}
}

// Process runs one dispatch cycle for a consolidated message.
// It always produces a reply; failures degrade to the apology with no actions.
func (uc *ConversationUsecase) Process(ctx context.Context, text, senderID string) *DispatchResult {
	log := uc.logger.With(zap.String("sender", senderID))

	user, err := uc.users.Resolve(ctx, senderID)
	if err != nil {
		log.Error("resolve sender failed", zap.Error(err))
		return &DispatchResult{
			Reply: uc.promptCfg.Apology,
			User:  domain.UserContext{Address: senderID},
			State: domain.StateFailed,
		}
	}

	conv := domain.NewConversation(user, text)
	req := &repo.ModelRequest{
		SystemPrompt: uc.promptCfg.systemPromptAt(uc.now()),
		Tools:        uc.tools.Schemas(),
	}

	reply, err := uc.runLoop(ctx, conv, req, log)
	if err != nil {
		log.Error("model invocation failed", zap.Error(err))
		conv.Transition(domain.StateFailed)
		return &DispatchResult{
			Reply: uc.promptCfg.Apology,
			User:  user,
			State: conv.State,
		}
	}

	if strings.TrimSpace(reply) == "" {
		log.Warn("model returned an empty reply")
		reply = uc.promptCfg.Apology
	}
	conv.Transition(domain.StateDone)

	return &DispatchResult{
		Reply:   reply,
		Actions: conv.Actions,
		User:    user,
		State:   conv.State,
	}
}

func (uc *ConversationUsecase) runLoop(ctx context.Context, conv *domain.Conversation, req *repo.ModelRequest, log *zap.Logger) (string, error) {
	conv.Transition(domain.StateAwaitingModelResponse)

	for round := 0; ; round++ {
		req.History = conv.History
		resp, err := uc.model.Invoke(ctx, req)
		if err != nil {
			return "", err
		}

		if len(resp.ToolCalls) == 0 {
			return resp.Text, nil
		}
		if round >= uc.maxRounds {
			log.Warn("tool round limit reached", zap.Int("rounds", round))
			return resp.Text, nil
		}

		conv.Transition(domain.StateExecutingTool)
		conv.AddModelTurn(resp.Text, resp.ToolCalls)

		responses := make([]domain.ToolResponse, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			result, action := uc.tools.Execute(ctx, call, conv.User)
			if action != nil {
				conv.RecordAction(*action)
			}
			responses = append(responses, domain.ToolResponse{
				CallID: call.ID,
				Name:   call.Name,
				Result: map[string]any{"result": result.AsMap()},
			})
		}
		conv.AddToolTurn(responses)

		conv.Transition(domain.StateAwaitingFinalReply)
	}
}
