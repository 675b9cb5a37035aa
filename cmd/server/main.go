// Package main - точка входа HTTP-сервера NetQuest Hub.
//
// Сервер отвечает за:
// - Приём результатов мини-игр и начисление XP/комбо
// - Учёт входов для серий активности (streak)
// - Выдачу прогресса, уровней и достижений пользователя
// - Рейтинги с пагинацией и окном соседей
//
// Без DATABASE_URL сервер работает в гостевом режиме: прогрессия живёт
// в памяти процесса и теряется при рестарте. Для продакшена обязательны
// PostgreSQL и, желательно, Redis для кеша снапшотов рейтинга.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/netquest-hub/netquest-hub/config"
	"github.com/netquest-hub/netquest-hub/internal/application/command"
	"github.com/netquest-hub/netquest-hub/internal/application/eventhandler"
	"github.com/netquest-hub/netquest-hub/internal/application/query"
	"github.com/netquest-hub/netquest-hub/internal/domain/leaderboard"
	"github.com/netquest-hub/netquest-hub/internal/domain/progression"
	httpiface "github.com/netquest-hub/netquest-hub/internal/interface/http"
	"github.com/netquest-hub/netquest-hub/pkg/logger"
	"github.com/netquest-hub/netquest-hub/pkg/timeutil"

	"github.com/netquest-hub/netquest-hub/internal/infrastructure/messaging"
	"github.com/netquest-hub/netquest-hub/internal/infrastructure/persistence/memory"
	"github.com/netquest-hub/netquest-hub/internal/infrastructure/persistence/postgres"
	"github.com/netquest-hub/netquest-hub/internal/infrastructure/persistence/redis"
	"github.com/netquest-hub/netquest-hub/internal/infrastructure/scheduler"
	"github.com/netquest-hub/netquest-hub/internal/infrastructure/scheduler/jobs"
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
	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: cfg.App.Debug,
	})
	log.Info("starting NetQuest Hub server",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("timezone", cfg.App.Timezone))

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ХРАНИЛИЩЕ ПРОГРЕССИИ (PostgreSQL или in-memory)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		store         progression.Store
		metricsSource leaderboard.MetricsSource
		healthChecks  = make(map[string]httpiface.HealthChecker)
	)

	if cfg.Database.URL != "" {
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

		log.Info("checking database migrations...")
		migrator := postgres.NewMigrator(dbConn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database schema is up to date")

		repo := postgres.NewProgressionRepository(dbConn, log)
		store = repo
		metricsSource = repo
		healthChecks["postgres"] = dbConn
	} else {
		// Гостевой режим: вся прогрессия в памяти процесса
		log.Warn("DATABASE_URL is not set, using in-memory progression store")
		memStore := memory.NewProgressionStore()
		store = memStore
		metricsSource = memStore
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. КЕШ РЕЙТИНГА (Redis, опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		snapshots      leaderboard.SnapshotRepository
		metricsUpdater eventhandler.MetricsUpdater
	)

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		redisCache, err := redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, falling back to in-memory snapshots",
				logger.Err(err))
		} else {
			defer redisCache.Close()
			lbCache := redis.NewLeaderboardCache(redisCache, cfg.Leaderboard.SnapshotTTL)
			snapshots = lbCache
			metricsUpdater = lbCache
			healthChecks["redis"] = redisCache
			log.Info("Redis connection established")
		}
	}

	if snapshots == nil {
		snapshots = memory.NewSnapshotRepository(cfg.Leaderboard.SnapshotTTL)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ШИНА СОБЫТИЙ И ОБРАБОТЧИКИ
	// ─────────────────────────────────────────────────────────────────────────
	bus := messaging.NewInMemoryEventBus(messaging.DefaultInMemoryEventBusConfig())
	defer func() {
		if err := bus.Close(); err != nil {
			log.Warn("event bus close failed", logger.Err(err))
		}
	}()

	curve := progression.NewCurve(cfg.Progression.CurveBaseCost, cfg.Progression.CurveGrowthFactor)
	evaluator := progression.NewEvaluator(progression.DefaultCatalog())
	clock := timeutil.NewClock(cfg.App.Timezone)

	progressionHandler := eventhandler.NewOnProgressionAppliedHandler(store, curve, metricsUpdater, log)
	if err := progressionHandler.Register(bus); err != nil {
		return fmt.Errorf("failed to register event handler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. COMMAND И QUERY HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	applyHandler := command.NewApplyGameResultHandler(
		store, curve, evaluator, clock, bus, log, cfg.Progression.MaxApplyAttempts)
	loginHandler := command.NewRecordLoginHandler(
		store, curve, evaluator, clock, bus, log, cfg.Progression.MaxApplyAttempts)

	progressHandler := query.NewGetProgressHandler(store, curve, evaluator)
	leaderboardHandler := query.NewGetLeaderboardHandler(
		metricsSource, snapshots, log,
		cfg.Leaderboard.DefaultPageSize, cfg.Leaderboard.MaxPageSize)
	neighborsHandler := query.NewGetNeighborsHandler(
		metricsSource, snapshots, cfg.Leaderboard.NeighborsRadius)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ПЛАНИРОВЩИК ФОНОВЫХ ЗАДАЧ
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	rebuildJob := jobs.NewRebuildLeaderboardJob(
		metricsSource, snapshots, bus, log, cfg.Scheduler.JobTimeout)

	if cfg.Scheduler.Enabled {
		sched = scheduler.NewScheduler(scheduler.Config{
			Logger:   log,
			Timezone: cfg.App.Location,
		})
		if err := sched.Register(rebuildJob, scheduler.NewIntervalSchedule(cfg.Scheduler.RebuildLeaderboardInterval)); err != nil {
			return fmt.Errorf("failed to register rebuild job: %w", err)
		}
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() {
			log.Info("stopping scheduler...")
			if err := sched.Stop(); err != nil {
				log.Warn("scheduler stop failed", logger.Err(err))
			}
		}()

		// Прогреваем снапшоты, чтобы рейтинг был доступен сразу после старта
		if _, err := sched.RunNow(ctx, rebuildJob.Name()); err != nil {
			log.Warn("initial leaderboard rebuild failed", logger.Err(err))
		}
	} else {
		log.Warn("scheduler is disabled, leaderboard snapshots will be built on demand")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. HTTP-СЕРВЕР
	// ─────────────────────────────────────────────────────────────────────────
	httpCfg := httpiface.DefaultConfig()
	httpCfg.Host = cfg.HTTP.Host
	httpCfg.Port = cfg.HTTP.Port
	httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	httpCfg.IdleTimeout = cfg.HTTP.IdleTimeout

	server := httpiface.NewServer(httpCfg, httpiface.Dependencies{
		ApplyGameResultHandler: applyHandler,
		RecordLoginHandler:     loginHandler,
		GetProgressHandler:     progressHandler,
		GetLeaderboardHandler:  leaderboardHandler,
		GetNeighborsHandler:    neighborsHandler,
		Logger:                 log,
		HealthCheckers:         healthChecks,
	})

	serverErr := server.StartAsync()
	log.Info("HTTP server listening", logger.String("address", httpCfg.Address()))

	// ─────────────────────────────────────────────────────────────────────────
	// 9. ОЖИДАНИЕ СИГНАЛА И GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info("root context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", logger.Err(err))
	}

	log.Info("server stopped gracefully")
	return nil
}
