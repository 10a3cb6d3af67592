package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finanzas/internal/ai"
	"finanzas/internal/backend"
	"finanzas/internal/cache"
	"finanzas/internal/charts"
	"finanzas/internal/cli"
	"finanzas/internal/config"
	apphttp "finanzas/internal/http"
	"finanzas/internal/ledger"
	"finanzas/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting finanzas", "port", cfg.Port, "backend", cfg.DataBackend, "ai_provider", cfg.AIProvider)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend)).CreateBackend(startupCtx, backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	opts := []ledger.Option{ledger.WithLogger(logger.WithComponent(log.ComponentLedger))}
	if result.Publisher != nil {
		opts = append(opts, ledger.WithPublisher(result.Publisher))
	}
	svc := ledger.NewService(result.Store, cfg.Taxonomy(), opts...)

	// A header the schema cannot bind makes every write fail; refuse to start.
	if err := svc.CheckSchema(startupCtx); err != nil {
		logger.Error("Ledger schema check failed", log.FieldError, err)
		closeBackend(logger, result)
		os.Exit(1)
	}

	assistant := newAssistant(startupCtx, logger, cfg)

	caches := cache.NewManager()
	caches.Register(assistant.Cache())
	caches.StartCleanup(context.Background(), 10*time.Minute)

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Currency:           cfg.Currency,
		ManageRecentLimit:  cfg.ManageRecentLimit,
		StoreTimeout:       cfg.StoreTimeout,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	}, svc, assistant, charts.New(cfg.Currency))
	if err != nil {
		logger.Error("Failed to create HTTP server", log.FieldError, err)
		_ = assistant.Close()
		closeBackend(logger, result)
		os.Exit(1)
	}
	srv.ReadTimeout = 15 * time.Second
	srv.WriteTimeout = cfg.AITimeout + 15*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if err := assistant.Close(); err != nil {
			logger.Error("AI provider close failed", log.FieldError, err)
		}
		closeBackend(logger, result)
	})

	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

// newAssistant builds the language-model assistant. A missing key or a
// provider that fails to start leaves the AI features disabled.
func newAssistant(ctx context.Context, logger *log.Logger, cfg *config.Config) *ai.Assistant {
	settings := ai.Settings{
		SuggestModel: cfg.OpenAISuggestModel,
		SummaryModel: cfg.OpenAISummaryModel,
		InsightCount: cfg.AIInsightCount,
		Timeout:      cfg.AITimeout,
		Currency:     cfg.Currency,
		Fallback:     cfg.FallbackCategory,
	}
	provider, err := ai.NewProvider(ctx, ai.ProviderConfig{
		Kind:                       cfg.AIProvider,
		OpenAIKey:                  cfg.OpenAIKey,
		OpenAIBaseURL:              cfg.OpenAIBaseURL,
		GigaChatKey:                cfg.GigaChatKey,
		GigaChatScope:              cfg.GigaChatScope,
		GigaChatInsecureSkipVerify: cfg.GigaChatInsecureSkipVerify,
	})
	switch {
	case err != nil:
		logger.Warn("AI features disabled", log.FieldProvider, cfg.AIProvider, log.FieldError, err)
	case provider == nil:
		logger.Info("AI features disabled by configuration")
	default:
		logger.Info("AI provider ready", log.FieldProvider, provider.Name())
	}
	return ai.NewAssistant(provider, settings)
}

func closeBackend(logger *log.Logger, result *backend.BackendResult) {
	if result.Cleanup == nil {
		return
	}
	if err := result.Cleanup(); err != nil {
		logger.Error("Backend cleanup failed", log.FieldError, err)
	}
}
