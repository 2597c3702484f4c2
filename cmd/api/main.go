package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/easyfitness/trainerbot/internal/api/router"
	"github.com/easyfitness/trainerbot/internal/booking"
	appconfig "github.com/easyfitness/trainerbot/internal/config"
	"github.com/easyfitness/trainerbot/internal/conversation"
	"github.com/easyfitness/trainerbot/internal/customers"
	"github.com/easyfitness/trainerbot/internal/extraction"
	"github.com/easyfitness/trainerbot/internal/llm"
	"github.com/easyfitness/trainerbot/internal/magicline"
	"github.com/easyfitness/trainerbot/internal/observability/metrics"
	"github.com/easyfitness/trainerbot/internal/whatsapp"
	"github.com/easyfitness/trainerbot/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting trainerbot API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"customer_store", cfg.CustomerStore,
	)

	ctx := context.Background()

	store := newCustomerStore(ctx, cfg, logger)
	llmClient := newLLMClient(ctx, cfg, logger)

	loc, err := time.LoadLocation(cfg.StudioTimezone)
	if err != nil {
		logger.Error("invalid studio timezone", "timezone", cfg.StudioTimezone, "error", err)
		os.Exit(1)
	}

	botMetrics := metrics.NewBotMetrics(nil)

	scheduling := magicline.NewClient(magicline.Config{
		BaseURL:            cfg.MagicLineBaseURL,
		APIKey:             cfg.MagicLineAPIKey,
		BookableID:         cfg.MagicLineBookableID,
		TrialOfferConfigID: cfg.MagicLineTrialOfferConfigID,
		Timeout:            cfg.MagicLineTimeout,
	}, logger)
	booker := booking.NewEngine(scheduling, cfg.TrialDuration, logger, booking.WithMetrics(botMetrics))

	chat := conversation.NewChat(llmClient, conversation.Studio{
		Name:    cfg.StudioName,
		Address: cfg.StudioAddress,
		Hours:   cfg.StudioHours,
		Offer:   cfg.StudioOffer,
	}, logger)

	engine := conversation.NewEngine(conversation.Deps{
		Store:        store,
		Chat:         chat,
		Rules:        extraction.RuleSource{},
		Model:        extraction.NewModelSource(llmClient, logger),
		Booker:       booker,
		Location:     loc,
		HistoryLimit: cfg.HistoryLimit,
		Logger:       logger,
	})

	sender := whatsapp.NewClient(whatsapp.Config{
		BaseURL:       cfg.WhatsAppBaseURL,
		AccessToken:   cfg.WhatsAppAccessToken,
		PhoneNumberID: cfg.WhatsAppPhoneNumberID,
	}, logger)
	webhook := whatsapp.NewHandler(
		cfg.WhatsAppVerifyToken,
		engine,
		sender,
		whatsapp.NewSeenCache(cfg.DedupCacheSize),
		botMetrics,
		logger,
	)

	r := router.New(&router.Config{
		Logger:         logger,
		Webhook:        webhook,
		MetricsHandler: promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// newCustomerStore selects the profile store backend from config.
func newCustomerStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) customers.Store {
	switch cfg.CustomerStore {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Error("redis unreachable", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		logger.Info("using redis customer store", "addr", cfg.RedisAddr)
		return customers.NewRedisStore(client, nil)
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("postgres pool creation failed", "error", err)
			os.Exit(1)
		}
		if err := pool.Ping(ctx); err != nil {
			logger.Error("postgres unreachable", "error", err)
			os.Exit(1)
		}
		logger.Info("using postgres customer store")
		return customers.NewPostgresStore(pool)
	default:
		logger.Warn("using in-memory customer store, state is lost on restart")
		return customers.NewMemoryStore()
	}
}

// newLLMClient builds the language-model client: Gemini primary, OpenAI as
// fallback when both are configured.
func newLLMClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) llm.Client {
	var gemini, openai llm.Client

	if cfg.GeminiAPIKey != "" {
		client, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Error("gemini client creation failed", "error", err)
			os.Exit(1)
		}
		gemini = client
	}
	if cfg.OpenAIAPIKey != "" {
		client, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModelID)
		if err != nil {
			logger.Error("openai client creation failed", "error", err)
			os.Exit(1)
		}
		openai = client
	}

	switch {
	case gemini != nil && openai != nil:
		return llm.NewFallbackClient(gemini, openai, logger.Logger)
	case gemini != nil:
		return gemini
	case openai != nil:
		return openai
	default:
		logger.Error("no LLM provider configured, set GEMINI_API_KEY or OPENAI_API_KEY")
		os.Exit(1)
		return nil
	}
}
