package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hearth-home/hearth/internal/biz/domain"
	"github.com/hearth-home/hearth/internal/biz/repo"
)

// SettledBurst is a consolidated burst claimed by a settle check
type SettledBurst struct {
	SenderID string
	Text     string
}

// BufferUsecase implements the per-sender debounce protocol
type BufferUsecase struct {
	bufferRepo repo.BufferRepo
	config     domain.DebounceConfig
	logger     *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewBufferUsecase creates a new buffer usecase
func NewBufferUsecase(bufferRepo repo.BufferRepo, config domain.DebounceConfig, logger *zap.Logger) *BufferUsecase {
	return &BufferUsecase{
		bufferRepo: bufferRepo,
		config:     config,
		logger:     logger.Named("buffer"),
		now:        time.Now,
		sleep:      sleepContext,
	}
}

// WithClock replaces the time source and the wait used between append and settle
func (uc *BufferUsecase) WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) *BufferUsecase {
	uc.now = now
	uc.sleep = sleep
	return uc
}

// Config returns the debounce configuration in use
func (uc *BufferUsecase) Config() domain.DebounceConfig {
	return uc.config
}

// Append adds a fragment to the sender's buffer and returns its arrival time
func (uc *BufferUsecase) Append(ctx context.Context, senderID, text string) (time.Time, error) {
	var arrival time.Time
	err := uc.bufferRepo.Transact(ctx, senderID, func(current *domain.MessageBuffer) (*domain.MessageBuffer, error) {
		if current == nil {
			current = &domain.MessageBuffer{SenderID: senderID, PendingMessages: []string{}}
		}
		arrival = uc.now()
		current.Append(text, arrival, uc.config)
		return current, nil
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("append to buffer: %w", err)
	}

	uc.logger.Debug("buffered fragment",
		zap.String("sender", senderID),
		zap.Duration("window", uc.config.Window))
	return arrival, nil
}

// Settle runs one settle check. It returns the consolidated text when this check claims the burst.
func (uc *BufferUsecase) Settle(ctx context.Context, senderID string) (string, bool, error) {
	var (
		text    string
		outcome domain.SettleOutcome
		pending int
	)
	err := uc.bufferRepo.Transact(ctx, senderID, func(current *domain.MessageBuffer) (*domain.MessageBuffer, error) {
		outcome = current.Decide(uc.now(), uc.config)
		if outcome != domain.SettleClaimed {
			return nil, nil
		}
		pending = len(current.PendingMessages)
		text = current.Consolidate()
		current.Clear()
		return current, nil
	})
	if err != nil {
		return "", false, fmt.Errorf("settle buffer: %w", err)
	}

	if outcome != domain.SettleClaimed {
		uc.logger.Debug("settle check skipped",
			zap.String("sender", senderID),
			zap.String("outcome", string(outcome)))
		return "", false, nil
	}

	uc.logger.Info("claimed burst",
		zap.String("sender", senderID),
		zap.Int("fragments", pending))
	return text, true, nil
}

// AppendAndSettle appends a fragment, waits one debounce window, then runs the settle check
func (uc *BufferUsecase) AppendAndSettle(ctx context.Context, senderID, text string) (string, bool, error) {
	if _, err := uc.Append(ctx, senderID, text); err != nil {
		return "", false, err
	}
	if err := uc.sleep(ctx, uc.config.Window); err != nil {
		return "", false, fmt.Errorf("debounce wait: %w", err)
	}
	return uc.Settle(ctx, senderID)
}

// SettleDue settles every buffer whose due time passed more than grace ago.
// Bursts whose in-process wait was lost (restart, cancelled request) are recovered here;
// grace leaves room for a live waiter to claim its own burst first.
func (uc *BufferUsecase) SettleDue(ctx context.Context, grace time.Duration) ([]SettledBurst, error) {
	due, err := uc.bufferRepo.ListDue(ctx, uc.now().Add(-grace))
	if err != nil {
		return nil, fmt.Errorf("list due buffers: %w", err)
	}

	var settled []SettledBurst
	for _, buf := range due {
		text, ok, err := uc.Settle(ctx, buf.SenderID)
		if err != nil {
			uc.logger.Warn("sweep settle failed", zap.String("sender", buf.SenderID), zap.Error(err))
			continue
		}
		if ok {
			settled = append(settled, SettledBurst{SenderID: buf.SenderID, Text: text})
		}
	}
	return settled, nil
}

// PruneIdle removes empty buffers untouched for maxIdle
func (uc *BufferUsecase) PruneIdle(ctx context.Context, maxIdle time.Duration) (int64, error) {
	return uc.bufferRepo.PruneIdle(ctx, uc.now().Add(-maxIdle))
}

// Summaries lists buffers that still hold fragments
func (uc *BufferUsecase) Summaries(ctx context.Context) ([]*domain.BufferSummary, error) {
	return uc.bufferRepo.Summaries(ctx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
