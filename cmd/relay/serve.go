package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	internal "github.com/ZanzyTHEbar/ai-counselor/relay"
	"github.com/ZanzyTHEbar/ai-counselor/relay/config"
	"github.com/ZanzyTHEbar/ai-counselor/relay/conversation"
	"github.com/ZanzyTHEbar/ai-counselor/relay/db"
	"github.com/ZanzyTHEbar/ai-counselor/relay/line"
	"github.com/ZanzyTHEbar/ai-counselor/relay/server"
	"github.com/ZanzyTHEbar/ai-counselor/relay/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const (
	limiterPruneInterval = time.Minute
	lineRequestTimeout   = 10 * time.Second
	telemetryFlushWait   = 5 * time.Second
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and LINE webhook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	gin.SetMode(gin.ReleaseMode)

	database, err := db.Connect(ctx, dbOptions(cfg.Database), a.logger)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.Migrate(ctx, database, a.logger); err != nil {
		return err
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: internal.Version,
		Insecure:       cfg.Telemetry.Insecure,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), telemetryFlushWait)
		defer cancel()
		if err := tp.Shutdown(flushCtx); err != nil {
			a.logger.Warn().Err(err).Msg("failed to flush telemetry")
		}
	}()

	factory := conversation.NewFactory(cfg, database, a.logger)
	if tp.Enabled() {
		factory.WithTracerProvider(tp)
	}
	components, err := factory.Build()
	if err != nil {
		return err
	}
	config.Watch(components.Assembler, a.logger)

	deps := server.Deps{
		Stateless: components.Stateless,
		Limiter:   components.Limiter,
	}
	if cfg.Line.ChannelAccessToken != "" {
		replier, err := line.NewClient(cfg.Line.APIBase, cfg.Line.ChannelAccessToken, lineRequestTimeout)
		if err != nil {
			return err
		}
		deps.Stateful = components.Stateful
		deps.Replier = replier
	} else {
		a.logger.Warn().Msg("line.channel_access_token is empty, webhook route disabled")
	}

	srv := server.New(server.Options{
		ErrorStatusOK:      cfg.Server.ErrorStatusOK,
		ChannelSecret:      cfg.Line.ChannelSecret,
		WebhookConcurrency: cfg.Server.WebhookConcurrency,
		PruneInterval:      limiterPruneInterval,
	}, deps, a.logger)

	a.logger.Info().
		Str("version", internal.Version).
		Str("provider", cfg.LLM.Provider).
		Str("model", cfg.LLM.Model).
		Int("token_budget", components.Assembler.Budget()).
		Msg("relay starting")

	return srv.Run(ctx, cfg.Server.Addr, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
}
