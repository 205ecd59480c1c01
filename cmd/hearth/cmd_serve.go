package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hearth-home/hearth/internal/api"
	"github.com/hearth-home/hearth/internal/server"
	"github.com/hearth-home/hearth/internal/service"
)

const shutdownTimeout = 10 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server and background sweeper",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	model, err := a.newModel(ctx)
	if err != nil {
		return err
	}

	publisher, err := a.newPublisher()
	if err != nil {
		return err
	}
	defer publisher.Close()

	uc := a.newUsecases(model)
	pipeline := service.NewPipelineService(uc, a.delivery, publisher, a.cfg.HTTP.PipelineTimeout, a.logger)
	sweeper := service.NewBufferSweeper(uc.Buffer, pipeline, a.cfg.HTTP.SweepInterval, a.logger)
	httpSrv := server.NewHTTPServer(a.cfg.HTTP.Addr, pipeline, api.NewHandler(uc, a.repos.Pantry, a.logger), a.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(httpSrv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Stop(shutdownCtx)
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	if a.cfg.Feishu.Enabled() {
		feishuSrv := server.NewFeishuServer(a.cfg.Feishu.AppID, a.cfg.Feishu.AppSecret, pipeline, a.logger)
		g.Go(func() error {
			return feishuSrv.Start(gctx)
		})
	}

	a.logger.Info("hearth started",
		zap.String("addr", a.cfg.HTTP.Addr),
		zap.String("db", a.cfg.Store.DBPath),
		zap.String("llm_provider", a.cfg.LLM.Provider),
		zap.Strings("channels", a.delivery.Channels()),
		zap.Duration("debounce_window", a.cfg.ToDebounceConfig().Window),
		zap.Bool("amqp", a.cfg.AMQP.URL != ""))

	err = g.Wait()

	a.logger.Info("shutting down, waiting for in-flight messages")
	pipeline.Wait()
	return err
}
