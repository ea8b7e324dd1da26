// Package main - точка входа для API-процесса Kiko.
//
// API обслуживает пользовательские запросы жизненного цикла предложений:
// - Текущее предложение недели
// - Принятие и отклонение предложений
// - Проверка права на пятничный раунд
//
// Выпуском раундов занимается отдельный процесс (cmd/worker); API может
// работать без него, пока есть база данных.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kiko-app/kiko-matching/config"
	"github.com/kiko-app/kiko-matching/internal/application/command"
	"github.com/kiko-app/kiko-matching/internal/application/eventhandler"
	"github.com/kiko-app/kiko-matching/internal/application/query"
	"github.com/kiko-app/kiko-matching/internal/domain/shared"
	httpapi "github.com/kiko-app/kiko-matching/internal/interface/http"
	"github.com/kiko-app/kiko-matching/internal/interface/http/handlers"
	"github.com/kiko-app/kiko-matching/pkg/logger"

	"github.com/kiko-app/kiko-matching/internal/infrastructure/messaging"
	"github.com/kiko-app/kiko-matching/internal/infrastructure/persistence/postgres"
	"github.com/kiko-app/kiko-matching/internal/infrastructure/persistence/redis"
	"github.com/kiko-app/kiko-matching/internal/infrastructure/service"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	log.Info("starting Kiko matching API",
		"env", string(cfg.App.Environment),
		"version", cfg.App.Version,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// Миграции идемпотентны: кто первым поднялся, тот и применил.
	log.Info("checking database migrations...")
	migrator := postgres.NewMigrator(dbConn, log)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, continuing without cache", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. РЕПОЗИТОРИИ И EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	matchRepo := postgres.NewMatchRepository(dbConn)

	eventBusConfig := messaging.DefaultConfig()
	eventBusConfig.Logger = log
	eventBus := messaging.NewInMemoryEventBus(eventBusConfig)
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	if cfg.Features.IsEnabled(config.FeatureNotifyMutualMatch, nil) {
		userNotifier := service.NewUserNotifierStub(log)
		onMutualMatch := eventhandler.NewOnMutualMatchHandler(userNotifier, log)
		if err := eventBus.Subscribe(shared.EventMutualMatchCreated, onMutualMatch.Handle); err != nil {
			return fmt.Errorf("failed to subscribe mutual match handler: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ОБРАБОТЧИКИ КОМАНД И ЗАПРОСОВ
	// ─────────────────────────────────────────────────────────────────────────
	// Без настроенного URL канал бесед имитируется стабом.
	var convNotifier command.ConversationNotifier = service.NewConversationNotifierStub(log)
	if cfg.Conversation.URL != "" {
		convCfg := service.DefaultConversationClientConfig(cfg.Conversation.URL)
		convCfg.APIKey = cfg.Conversation.APIKey
		convCfg.Timeout = cfg.Conversation.Timeout
		convCfg.Logger = log
		convNotifier = service.NewConversationClient(convCfg)
	}
	respondHandler := command.NewRespondToProposalHandler(matchRepo, convNotifier, eventBus, log)
	currentProposalHandler := query.NewGetCurrentProposalHandler(matchRepo)
	eligibilityHandler := query.NewSecondChanceEligibilityHandler(matchRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. HTTP-СЕРВЕР
	// ─────────────────────────────────────────────────────────────────────────
	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	healthChecker.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
	if redisCache != nil {
		healthChecker.AddCheck("cache", handlers.NewCacheCheck(redisCache))
	}

	serverCfg := httpapi.DefaultConfig()
	serverCfg.Host = cfg.HTTP.Host
	serverCfg.Port = cfg.HTTP.Port
	serverCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	serverCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	serverCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	serverCfg.APIKeys = splitAPIKeys(os.Getenv("ADMIN_API_KEYS"))

	server := httpapi.NewServer(serverCfg, httpapi.Dependencies{
		GetCurrentProposalHandler: currentProposalHandler,
		SecondChanceHandler:       eligibilityHandler,
		RespondHandler:            respondHandler,
		Logger:                    log,
		HealthChecker:             healthChecker,
	})

	serverErrCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 8. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("Kiko matching API is running", "address", server.Address())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-serverErrCh:
		if err != nil {
			log.Error("HTTP server failed", "error", err)
		}
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.HTTP.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", "error", err)
	}

	log.Info("shutdown completed successfully")
	return nil
}

// splitAPIKeys разбирает список ключей, разделённых запятыми.
func splitAPIKeys(raw string) []string {
	if raw == "" {
		return nil
	}
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
