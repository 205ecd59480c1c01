package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hearth-home/hearth/internal/biz"
	"github.com/hearth-home/hearth/internal/biz/repo"
	"github.com/hearth-home/hearth/internal/biz/usecase"
	"github.com/hearth-home/hearth/internal/conf"
	"github.com/hearth-home/hearth/internal/data"
)

// app holds what every command shares: config, logger, stores and delivery
type app struct {
	cfg      *conf.Config
	logger   *zap.Logger
	repos    *data.Repositories
	delivery *data.DeliveryRegistry
}

// newApp loads configuration and opens the household database
func newApp() (*app, error) {
	cfg := conf.LoadFromEnv()

	logger, err := conf.NewLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	repos, err := data.NewRepositories(cfg.Store.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		repos:  repos,
	}
	a.delivery = a.newDelivery()
	return a, nil
}

// Close releases the database and flushes the logger
func (a *app) Close() {
	if err := a.repos.Close(); err != nil {
		a.logger.Warn("close store failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// newDelivery registers every configured outbound channel
func (a *app) newDelivery() *data.DeliveryRegistry {
	reg := data.NewDeliveryRegistry(a.logger)
	if a.cfg.Twilio.Enabled() {
		reg.Register("whatsapp", data.NewTwilioRepo(data.DefaultTwilioBaseURL,
			a.cfg.Twilio.AccountSID, a.cfg.Twilio.AuthToken, a.cfg.Twilio.From, a.logger))
	}
	if a.cfg.Feishu.Enabled() {
		reg.Register("feishu", data.NewFeishuRepo(a.cfg.Feishu.AppID, a.cfg.Feishu.AppSecret, a.logger))
	}
	return reg
}

// newModel creates the configured language model client
func (a *app) newModel(ctx context.Context) (repo.ModelRepo, error) {
	llm := a.cfg.LLM
	switch llm.Provider {
	case "openai":
		return data.NewOpenAIRepo(llm.OpenAIAPIKey, llm.OpenAIBaseURL, llm.OpenAIModel, a.logger)
	case "gemini":
		return data.NewGeminiRepo(ctx, llm.GeminiAPIKey, llm.GeminiModel, a.logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", llm.Provider)
	}
}

// newPublisher connects to the broker when one is configured
func (a *app) newPublisher() (repo.ActionPublisher, error) {
	if a.cfg.AMQP.URL == "" {
		return data.NewNopPublisher(), nil
	}
	return data.NewAMQPPublisher(a.cfg.AMQP.URL, a.cfg.AMQP.Exchange, a.logger)
}

// newUsecases wires the business layer. model may be nil for commands
// that never run a conversation.
func (a *app) newUsecases(model repo.ModelRepo) *biz.Usecases {
	stores := biz.Stores{
		Buffer:         a.repos.Buffer,
		Users:          a.repos.Users,
		Collaborations: a.repos.Collaborations,
		Tools: usecase.ToolStores{
			Lists:          a.repos.Lists,
			Items:          a.repos.Items,
			Pantry:         a.repos.Pantry,
			Classification: a.repos.Classification,
			Schedule:       a.repos.Schedule,
		},
	}
	return biz.NewUsecases(stores, model, a.delivery, biz.Options{
		Debounce:          a.cfg.ToDebounceConfig(),
		Prompts:           a.cfg.ToPromptConfig(),
		DefaultUserName:   a.cfg.DefaultUserName,
		MaxToolRounds:     a.cfg.LLM.MaxToolRounds,
		FanoutConcurrency: a.cfg.FanoutConcurrency,
	}, a.logger)
}
