package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sashabaranov/go-openai"

	"github.com/maintex/partwatch/internal/agent"
	"github.com/maintex/partwatch/internal/analysis"
	"github.com/maintex/partwatch/internal/api"
	"github.com/maintex/partwatch/internal/config"
	"github.com/maintex/partwatch/internal/events"
	"github.com/maintex/partwatch/internal/prompt"
	"github.com/maintex/partwatch/internal/runlog"
	"github.com/maintex/partwatch/internal/store"
)

func main() {
	// Local development reads .env; absence is fine in deployment.
	_ = godotenv.Load()

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("partwatch starting", "port", cfg.Port)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Agent client
	clientCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		clientCfg.BaseURL = cfg.OpenAIBaseURL
	}
	client := agent.NewOpenAIWithConfig(clientCfg, slog.Default())

	statusInstructions := cfg.StatusInstructions
	if statusInstructions == "" {
		statusInstructions = prompt.StatusCheck
	}
	replacementInstructions := cfg.ReplacementInstructions
	if replacementInstructions == "" {
		replacementInstructions = prompt.FindReplacement
	}

	driver, err := analysis.NewDriver(client, analysis.DriverConfig{
		StatusAgentID:           cfg.StatusAgentID,
		ReplacementAgentID:      cfg.ReplacementAgentID,
		StatusInstructions:      statusInstructions,
		ReplacementInstructions: replacementInstructions,
		MaxAttempts:             cfg.MaxAttempts,
		RetryDelay:              time.Duration(cfg.RetryDelaySeconds) * time.Second,
		MaxOutputTokens:         cfg.MaxOutputTokens,
		Temperature:             float32(cfg.Temperature),
	}, slog.Default())
	if err != nil {
		slog.Error("failed to build analysis driver", "error", err)
		os.Exit(1)
	}
	engine := analysis.NewEngine(driver, cfg.BatchSize, slog.Default())

	// Database (optional — without it the parts endpoints are unavailable and
	// analysis outcomes are not persisted)
	var db *store.Store
	if cfg.DatabaseURL != "" {
		db, err = store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		slog.Info("database connected")
	} else {
		slog.Warn("DATABASE_URL not set — running without persistence")
	}

	// NATS (optional)
	var pub *events.Publisher
	if cfg.NatsURL != "" {
		pub, err = events.Connect(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer pub.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS_URL not set — running without run notifications")
	}

	rl := runlog.NewWriter(cfg.LogDir, slog.Default())

	srv := api.NewServer(cfg.Port, engine, db, rl, pub, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("partwatch ready", "port", cfg.Port, "batch_size", cfg.BatchSize)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown error", "error", err)
	}
	cancel()
	slog.Info("partwatch stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
