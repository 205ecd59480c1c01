package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hearth-home/hearth/internal/biz"
	"github.com/hearth-home/hearth/internal/biz/repo"
	"github.com/hearth-home/hearth/internal/biz/usecase"
)

// DefaultPipelineTimeout bounds one detached inbound run, debounce wait included
const DefaultPipelineTimeout = 60 * time.Second

// PipelineService runs inbound chat messages through debounce, dispatch and fan-out
type PipelineService struct {
	bufferUC  *usecase.BufferUsecase
	convUC    *usecase.ConversationUsecase
	notifyUC  *usecase.NotifyUsecase
	sender    repo.MessageRepo
	publisher repo.ActionPublisher

	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewPipelineService creates a new pipeline service
func NewPipelineService(
	uc *biz.Usecases,
	sender repo.MessageRepo,
	publisher repo.ActionPublisher,
	timeout time.Duration,
	logger *zap.Logger,
) *PipelineService {
	if timeout <= 0 {
		timeout = DefaultPipelineTimeout
	}
	return &PipelineService{
		bufferUC:  uc.Buffer,
		convUC:    uc.Conversation,
		notifyUC:  uc.Notify,
		sender:    sender,
		publisher: publisher,
		timeout:   timeout,
		logger:    logger.Named("pipeline"),
	}
}

// Submit handles an inbound message in the background, detached from the caller's context
func (s *PipelineService) Submit(from, body string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if _, err := s.HandleInbound(ctx, from, body); err != nil {
			s.logger.Error("inbound pipeline failed", zap.String("from", from), zap.Error(err))
		}
	}()
}

// Wait blocks until every submitted pipeline has finished
func (s *PipelineService) Wait() {
	s.wg.Wait()
}

// HandleInbound buffers one fragment and, when this call claims the burst, dispatches it.
// Returns nil when a later fragment superseded this one.
func (s *PipelineService) HandleInbound(ctx context.Context, from, body string) (*usecase.DispatchResult, error) {
	text, claimed, err := s.bufferUC.AppendAndSettle(ctx, from, body)
	if err != nil {
		return nil, fmt.Errorf("buffer: %w", err)
	}
	if !claimed {
		s.logger.Debug("fragment superseded", zap.String("from", from))
		return nil, nil
	}
	return s.Dispatch(ctx, from, text), nil
}

// Dispatch processes a consolidated burst, replies to the sender and notifies the household
func (s *PipelineService) Dispatch(ctx context.Context, senderID, text string) *usecase.DispatchResult {
	result := s.convUC.Process(ctx, text, senderID)
	log := s.logger.With(zap.String("sender", senderID), zap.String("state", string(result.State)))

	if err := s.sender.Send(ctx, senderID, result.Reply); err != nil {
		log.Warn("failed to send reply", zap.Error(err))
	}

	if len(result.Actions) == 0 {
		log.Info("dispatched", zap.Int("actions", 0))
		return result
	}

	report := s.notifyUC.Broadcast(ctx, result.User, result.Actions...)
	if err := s.publisher.Publish(ctx, result.User, result.Actions); err != nil {
		log.Warn("failed to publish actions", zap.Error(err))
	}

	log.Info("dispatched",
		zap.Int("actions", len(result.Actions)),
		zap.Int("notified", report.Sent()),
		zap.Int("failed", len(report.Failed())))
	return result
}
