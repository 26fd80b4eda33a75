// miniappd serves the Telegram Mini App generation backend.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"nanobanana/internal/config"
	"nanobanana/internal/credential"
	"nanobanana/internal/generation"
	"nanobanana/internal/generation/gemini"
	"nanobanana/internal/logging"
	"nanobanana/internal/server"
	"nanobanana/internal/session"
	"nanobanana/internal/telegram"
)

const shutdownGrace = 15 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		host       string
		port       int
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "miniappd",
		Short: "Generation backend for the Telegram Mini App",
		Long: "miniappd serves the chat, image, face-swap and video generation\n" +
			"pipeline of the Mini App over an HTTP and WebSocket API.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("debug") {
				cfg.Debug = debug
			}
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "listen host")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "listen port")
	cmd.Flags().BoolVar(&debug, "debug", false, "verbose logging and gin debug mode")
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	if cfg.Debug {
		logging.SetLevel(logging.DEBUG)
	}
	logger := logging.NewComponentLogger("miniappd")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := gemini.New(ctx, cfg.GeminiAPIKey, logging.NewComponentLogger("gemini"))
	if err != nil {
		return err
	}

	hub := server.NewHub(logging.NewComponentLogger("ws"))

	gate := credential.NewPromptGate(hub, logging.NewComponentLogger("credential"))
	var clientGate credential.Gate = gate
	if !cfg.RequireCredentialAck {
		// No selection flow: treat the configured key as always usable.
		gate.Selected()
		clientGate = credential.StaticGate{}
	}
	client := generation.NewAuthRetryClient(provider, clientGate, logging.NewComponentLogger("authretry"))

	poller := generation.NewPoller(client, cfg.PollInterval, cfg.PollMaxWait, logging.NewComponentLogger("poller"))

	history := session.NewHistory("")
	media, err := session.NewMediaCache(cfg.MediaCacheSize)
	if err != nil {
		return err
	}
	metrics := session.MustNewMetrics(prometheus.DefaultRegisterer)
	orch := session.NewOrchestrator(ctx, client, poller, history, media, hub, metrics, logging.NewComponentLogger("session"))

	srv := server.New(server.Config{
		Host:         cfg.Host,
		Port:         cfg.Port,
		Debug:        cfg.Debug,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}, server.Deps{
		Orchestrator: orch,
		History:      history,
		Media:        media,
		Gate:         gate,
		Hub:          hub,
		Auth:         telegram.Middleware(cfg.TelegramBotToken, logging.NewComponentLogger("telegram")),
		Logger:       logging.NewComponentLogger("server"),
	})

	group, ctx := errgroup.WithContext(ctx)
	group.Go(srv.Start)
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})

	logger.Info("miniappd started on %s:%d", cfg.Host, cfg.Port)
	return group.Wait()
}
