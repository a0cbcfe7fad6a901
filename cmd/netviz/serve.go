package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sideffect263/netviz-backend/internal/app"
	"github.com/sideffect263/netviz-backend/internal/config"
	"github.com/sideffect263/netviz-backend/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Connect to the agent and serve the dashboard API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	a := app.New(cfg, log)
	server := web.NewServer(cfg, a, log)
	a.SetBroadcaster(server.Hub())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() { errCh <- server.Start() }()
	go func() { errCh <- a.Run(ctx) }()

	log.Info().Str("session_id", a.SessionID()).Msg("netviz backend started")

	select {
	case err := <-errCh:
		stop()
		server.Stop()
		return err
	case <-ctx.Done():
		server.Stop()
		return nil
	}
}
