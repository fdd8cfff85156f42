package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Yates-Labs/survivalbot/internal/orchestrator"
	"github.com/Yates-Labs/survivalbot/internal/server"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chatbot over HTTP",
	Long: `Serve the chatbot over HTTP.

Routes:
  GET  /          question form; ?q=<question> renders the answer
  POST /query     {"text": "..."} → answer and selected context as JSON
  GET  /context   current context sentences and fetch warnings

When the environment variable named by server.token_env (default
SURVIVALBOT_TOKEN) is set, /query, /context and GET /?q= require
"Authorization: Bearer <token>".

GROQ_API_KEY (or the variable named by llm.api_key_env) must be set;
the server does not start without it.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Address to listen on (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Server.ListenAddr = listenAddr
	}
	log := getLogger(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("creating pipeline")
	pipeline, err := orchestrator.NewPipeline(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Close()

	token := cfg.ServerToken(os.Getenv)
	if token == "" {
		log.Warn("no bearer token configured, API routes are unauthenticated")
	}

	s := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           server.New(log, pipeline, token),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to shut down", slog.Any("error", err))
		}
	}()

	log.Info("Listening", slog.String("addr", cfg.Server.ListenAddr))
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
