package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hearth-home/hearth/internal/biz/usecase"
)

const (
	// DefaultSweepInterval is how often due buffers are checked
	DefaultSweepInterval = 30 * time.Second

	// idleBufferTTL is how long an empty buffer is kept after its last fragment
	idleBufferTTL = 24 * time.Hour

	pruneInterval = 6 * time.Hour
)

// BufferSweeper recovers bursts whose in-process debounce wait was lost and prunes idle buffers
type BufferSweeper struct {
	bufferUC *usecase.BufferUsecase
	pipeline *PipelineService
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
}

// NewBufferSweeper creates a new buffer sweeper
func NewBufferSweeper(bufferUC *usecase.BufferUsecase, pipeline *PipelineService, interval time.Duration, logger *zap.Logger) *BufferSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &BufferSweeper{
		bufferUC: bufferUC,
		pipeline: pipeline,
		interval: interval,
		timeout:  pipeline.timeout,
		logger:   logger.Named("sweeper"),
	}
}

// Run sweeps until ctx is cancelled
func (s *BufferSweeper) Run(ctx context.Context) error {
	s.logger.Info("started", zap.Duration("interval", s.interval))

	// Initial run picks up bursts left behind by a restart
	s.Sweep(ctx)
	s.Prune(ctx)

	sweepTicker := time.NewTicker(s.interval)
	defer sweepTicker.Stop()
	pruneTicker := time.NewTicker(pruneInterval)
	defer pruneTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopped")
			return nil
		case <-sweepTicker.C:
			s.Sweep(ctx)
		case <-pruneTicker.C:
			s.Prune(ctx)
		}
	}
}

// Sweep settles overdue buffers and dispatches each claimed burst. Returns the number dispatched.
func (s *BufferSweeper) Sweep(ctx context.Context) int {
	grace := s.bufferUC.Config().Window
	bursts, err := s.bufferUC.SettleDue(ctx, grace)
	if err != nil {
		s.logger.Error("failed to settle due buffers", zap.Error(err))
		return 0
	}

	for _, burst := range bursts {
		s.logger.Info("recovered burst", zap.String("sender", burst.SenderID))
		dctx, cancel := context.WithTimeout(ctx, s.timeout)
		s.pipeline.Dispatch(dctx, burst.SenderID, burst.Text)
		cancel()
	}
	return len(bursts)
}

// Prune deletes empty buffers idle for a day
func (s *BufferSweeper) Prune(ctx context.Context) {
	n, err := s.bufferUC.PruneIdle(ctx, idleBufferTTL)
	if err != nil {
		s.logger.Error("failed to prune buffers", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("pruned idle buffers", zap.Int64("count", n))
	}
}
