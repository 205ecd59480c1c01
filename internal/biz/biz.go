package biz

import (
	"go.uber.org/zap"

	"github.com/hearth-home/hearth/internal/biz/domain"
	"github.com/hearth-home/hearth/internal/biz/repo"
	"github.com/hearth-home/hearth/internal/biz/usecase"
)

// Usecases contains all usecases
type Usecases struct {
	Buffer       *usecase.BufferUsecase
	Users        *usecase.UserUsecase
	Tools        *usecase.ToolRegistry
	Conversation *usecase.ConversationUsecase
	Notify       *usecase.NotifyUsecase
}

// Stores groups the repositories the usecases read and write
type Stores struct {
	Buffer         repo.BufferRepo
	Users          repo.UserRepo
	Collaborations repo.CollaborationRepo
	Tools          usecase.ToolStores
}

// Options contains tunables for the usecases
type Options struct {
	Debounce          domain.DebounceConfig
	Prompts           usecase.PromptConfig
	DefaultUserName   string
	MaxToolRounds     int
	FanoutConcurrency int
}

// NewUsecases wires every usecase against the given stores, model and outbound sender
func NewUsecases(stores Stores, model repo.ModelRepo, sender repo.MessageRepo, opts Options, logger *zap.Logger) *Usecases {
	users := usecase.NewUserUsecase(stores.Users, stores.Collaborations, opts.DefaultUserName, logger)
	tools := usecase.NewToolRegistry(stores.Tools, logger)

	return &Usecases{
		Buffer:       usecase.NewBufferUsecase(stores.Buffer, opts.Debounce, logger),
		Users:        users,
		Tools:        tools,
		Conversation: usecase.NewConversationUsecase(users, tools, model, opts.Prompts, opts.MaxToolRounds, logger),
		Notify:       usecase.NewNotifyUsecase(users, sender, opts.Prompts, opts.FanoutConcurrency, logger),
	}
}
