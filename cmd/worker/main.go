// Package main - точка входа для фонового процесса (Worker) Kiko.
//
// Worker отвечает за недельный цикл подбора:
// - Четверговый выпуск предложений для всех активных пользователей
// - Пятничный раунд "второго шанса"
// - Фоновое истечение просроченных предложений
//
// Worker также поднимает небольшой HTTP-сервер: health-пробы и
// административный запуск раундов вручную.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kiko-app/kiko-matching/config"
	"github.com/kiko-app/kiko-matching/internal/application/command"
	"github.com/kiko-app/kiko-matching/internal/application/eventhandler"
	"github.com/kiko-app/kiko-matching/internal/application/query"
	"github.com/kiko-app/kiko-matching/internal/domain/matching"
	"github.com/kiko-app/kiko-matching/internal/domain/profile"
	"github.com/kiko-app/kiko-matching/internal/domain/shared"
	httpapi "github.com/kiko-app/kiko-matching/internal/interface/http"
	"github.com/kiko-app/kiko-matching/internal/interface/http/handlers"
	"github.com/kiko-app/kiko-matching/pkg/logger"

	"github.com/kiko-app/kiko-matching/internal/infrastructure/messaging"
	"github.com/kiko-app/kiko-matching/internal/infrastructure/persistence/postgres"
	"github.com/kiko-app/kiko-matching/internal/infrastructure/persistence/redis"
	"github.com/kiko-app/kiko-matching/internal/infrastructure/scheduler"
	"github.com/kiko-app/kiko-matching/internal/infrastructure/scheduler/jobs"
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
	log.Info("starting Kiko matching worker",
		"env", string(cfg.App.Environment),
		"version", cfg.App.Version,
		"timezone", cfg.App.Timezone,
	)

	// Недельные выпуски привязаны к таймзоне сообщества, не хоста.
	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone %q: %w", cfg.App.Timezone, err)
	}

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

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ЗАПУСК МИГРАЦИЙ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("checking database migrations...")
	migrator := postgres.NewMigrator(dbConn, log)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	var roundLock jobs.RunLock

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
			// Redis ускоряет и сериализует, но корректность от него не
			// зависит: генерация идемпотентна на уровне БД.
			log.Warn("failed to connect to Redis, continuing without cache", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			hostname, _ := os.Hostname()
			roundLock = redis.NewRoundLock(redisCache, hostname)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ РЕПОЗИТОРИЕВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	userRepo := postgres.NewUserRepository(dbConn)
	blockRepo := postgres.NewBlockRepository(dbConn)
	vectorRepo := postgres.NewVectorRepository(dbConn)
	matchRepo := postgres.NewMatchRepository(dbConn)

	// Чтение векторов идёт через Redis, если он доступен и включён флагом.
	var vectorProvider profile.VectorProvider = vectorRepo
	if redisCache != nil && cfg.Features.IsEnabled(config.FeatureCacheVectors, nil) {
		vectorProvider = redis.NewVectorCache(vectorRepo, redisCache, log)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ИНИЦИАЛИЗАЦИЯ EVENT BUS И ОБРАБОТЧИКОВ СОБЫТИЙ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	eventBusConfig := messaging.DefaultConfig()
	eventBusConfig.Logger = log
	eventBus := messaging.NewInMemoryEventBus(eventBusConfig)
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	userNotifier := service.NewUserNotifierStub(log)

	if cfg.Features.IsEnabled(config.FeatureNotifyNewProposal, nil) {
		onProposalCreated := eventhandler.NewOnProposalCreatedHandler(userNotifier, log)
		if err := eventBus.Subscribe(shared.EventProposalCreated, onProposalCreated.Handle); err != nil {
			return fmt.Errorf("failed to subscribe proposal handler: %w", err)
		}
	}
	if cfg.Features.IsEnabled(config.FeatureNotifyMutualMatch, nil) {
		onMutualMatch := eventhandler.NewOnMutualMatchHandler(userNotifier, log)
		if err := eventBus.Subscribe(shared.EventMutualMatchCreated, onMutualMatch.Handle); err != nil {
			return fmt.Errorf("failed to subscribe mutual match handler: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ИНИЦИАЛИЗАЦИЯ ОБРАБОТЧИКОВ КОМАНД И ЗАПРОСОВ
	// ─────────────────────────────────────────────────────────────────────────
	policy := matching.MatchPolicy{
		Threshold:        cfg.Matching.Threshold,
		CooldownDays:     cfg.Matching.CooldownDays,
		ProposalTTLHours: cfg.Matching.ProposalTTLHours,
		AlgorithmVersion: matching.AlgorithmVersion,
	}

	idGen := service.NewIDGenerator()

	// Без настроенного URL канал бесед имитируется стабом.
	var convNotifier command.ConversationNotifier = service.NewConversationNotifierStub(log)
	if cfg.Conversation.URL != "" {
		convCfg := service.DefaultConversationClientConfig(cfg.Conversation.URL)
		convCfg.APIKey = cfg.Conversation.APIKey
		convCfg.Timeout = cfg.Conversation.Timeout
		convCfg.Logger = log
		convNotifier = service.NewConversationClient(convCfg)
	}

	// Генератор читает окно охлаждения через Redis, если он доступен.
	var generateMatchRepo matching.Repository = matchRepo
	if redisCache != nil {
		generateMatchRepo = redis.NewCooldownCache(matchRepo, redisCache, log)
	}

	generateHandler := command.NewGenerateWeeklyMatchHandler(
		userRepo, blockRepo, vectorProvider, generateMatchRepo,
		idGen, eventBus, log, policy,
	)
	respondHandler := command.NewRespondToProposalHandler(matchRepo, convNotifier, eventBus, log)
	expireHandler := command.NewExpireProposalsHandler(matchRepo, eventBus, log, policy)
	eligibilityHandler := query.NewSecondChanceEligibilityHandler(matchRepo)
	currentProposalHandler := query.NewGetCurrentProposalHandler(matchRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. ПЛАНИРОВЩИК РАУНДОВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing scheduler...")
	sched := scheduler.New(scheduler.Config{
		Logger:   log,
		Timezone: loc,
	})

	thursdayJob := jobs.NewThursdayDropJob(userRepo, generateHandler, roundLock, eventBus, log)
	fridayJob := jobs.NewFridayDropJob(userRepo, matchRepo, generateHandler, expireHandler, eligibilityHandler, roundLock, eventBus, log)
	sweepJob := jobs.NewExpireSweepJob(expireHandler, log)

	if err := sched.Register(thursdayJob, scheduler.NewWeeklySchedule(time.Thursday, cfg.Matching.FirstRoundHour, cfg.Matching.FirstRoundMinute, loc)); err != nil {
		return fmt.Errorf("failed to register thursday job: %w", err)
	}
	if cfg.Features.IsEnabled(config.FeatureRoundSecondChance, nil) {
		if err := sched.Register(fridayJob, scheduler.NewWeeklySchedule(time.Friday, cfg.Matching.SecondRoundHour, cfg.Matching.SecondRoundMinute, loc)); err != nil {
			return fmt.Errorf("failed to register friday job: %w", err)
		}
	}
	if cfg.Features.IsEnabled(config.FeatureRoundExpireSweep, nil) {
		if err := sched.Register(sweepJob, scheduler.NewIntervalSchedule(cfg.Scheduler.ExpireSweepInterval)); err != nil {
			return fmt.Errorf("failed to register sweep job: %w", err)
		}
	}

	if cfg.Scheduler.Enabled {
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() {
			log.Info("stopping scheduler...")
			_ = sched.Stop()
		}()
	} else {
		log.Warn("scheduler is disabled, rounds must be triggered manually")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. HTTP-СЕРВЕР (health-пробы + административный запуск раундов)
	// ─────────────────────────────────────────────────────────────────────────
	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	healthChecker.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
	if redisCache != nil {
		healthChecker.AddCheck("cache", handlers.NewCacheCheck(redisCache))
	}
	if cfg.Scheduler.Enabled {
		healthChecker.AddCheck("scheduler", handlers.NewSchedulerCheck(sched))
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
		TriggerJob: func(ctx context.Context, jobName string) error {
			_, err := sched.RunNow(ctx, jobName)
			return err
		},
		Logger:        log,
		HealthChecker: healthChecker,
	})

	serverErrCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 11. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("Kiko matching worker is running",
		"address", server.Address(),
		"timezone", cfg.App.Timezone,
	)

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

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
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
