package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Devdarshananandhan/campusconnect-sub000/internal/backend"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/cache"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/config"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/consumer"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/domain"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/fallback"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/handler"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/mirror"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/reconciler"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/repository"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/service"
	"github.com/Devdarshananandhan/campusconnect-sub000/pkg/database"
	pkglog "github.com/Devdarshananandhan/campusconnect-sub000/pkg/log"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// 2. Initialize structured logger
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Level == "debug",
		ServiceName: "search-service",
	})
	logger := pkglog.L()

	// 3. Init DB (GORM, auto-migrate entity tables, text indexes)
	db, err := database.New(&database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to get underlying sql.DB")
	}
	defer sqlDB.Close()

	if err := database.AutoMigrate(db, domain.Models()...); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Msg("database migration completed")

	repo := repository.NewGormEntityRepository(db)
	if err := repo.EnsureTextIndexes(context.Background()); err != nil {
		logger.Warn().Err(err).Msg("failed to ensure text search indexes")
	}

	// 4. Search backend (nil when disabled)
	searchBackend, err := backend.New(cfg)
	if err != nil {
		logger.Warn().Err(err).Str("driver", cfg.Search.Backend).Msg("failed to create search backend, using fallback only")
		searchBackend = nil
	}
	if searchBackend != nil {
		defer searchBackend.Close()
	}

	// 5. Result cache (nil when disabled)
	searchCache, err := cache.New(cfg)
	if err != nil {
		logger.Warn().Err(err).Str("driver", cfg.Cache.Driver).Msg("failed to create search cache, caching disabled")
		searchCache = nil
	}
	var invalidator mirror.Invalidator
	if searchCache != nil {
		defer searchCache.Close()
		invalidator = searchCache
	}

	// 6. Mirror writer and search service
	writer := mirror.NewWriter(searchBackend, invalidator, cfg.Search.CallTimeout)

	mode := service.NewModeCell(domain.ModeFallback)
	svc := service.NewSearchService(searchBackend, fallback.NewEngine(repo), repo, searchCache, mode, service.Config{
		CallTimeout: cfg.Search.CallTimeout,
		FanOutSize:  cfg.Search.FanOutSize,
		Defaults: domain.PageDefaults{
			PageSize:    cfg.Search.DefaultPageSize,
			MaxPageSize: cfg.Search.MaxPageSize,
			MaxWindow:   cfg.Search.MaxWindow,
		},
		DemoteOnFailure: cfg.Search.ReprobeInterval > 0,
		CachePrefix:     cfg.Cache.Prefix,
		CacheTTL:        cfg.Cache.TTL,
	})
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc.Initialize(ctx)

	// 7. Init reconciler; every promotion back to the backend runs one pass
	// to repair writes that failed during the outage
	rec := reconciler.New(repo, writer, svc, cfg.Reconciler)

	prober := service.NewProber(searchBackend, mode, cfg.Search.ReprobeInterval, cfg.Search.PromoteAfter, cfg.Search.CallTimeout)
	prober.OnPromote(func(ctx context.Context) {
		report, err := rec.RunOnce(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("post-recovery reindex failed")
			return
		}
		logger.Info().Interface("indexed", report.Indexed).Int("failed_batches", report.FailedBatches).Msg("post-recovery reindex complete")
	})
	prober.Start(ctx)

	// 8. Init Kafka consumer
	var kafkaConsumer *consumer.ConfluentConsumer
	if cfg.Kafka.Brokers != "" {
		dispatcher := consumer.NewDispatcher(consumer.TopicMap(cfg.Kafka), writer)
		kc, err := consumer.NewConfluentConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, dispatcher.Topics(), dispatcher)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to create kafka consumer, CDC updates disabled")
		} else {
			if err := kc.Start(ctx); err != nil {
				logger.Warn().Err(err).Msg("failed to start kafka consumer")
			} else {
				kafkaConsumer = kc
			}
		}
	} else {
		logger.Warn().Msg("KAFKA_BROKERS not configured; CDC consumer disabled")
	}

	// 9. Start the periodic reconciler
	rec.Start(ctx)
	logger.Info().Dur("interval", cfg.Reconciler.Interval).Int("batch_size", cfg.Reconciler.BatchSize).Msg("reconciler configured")

	// 10. Setup Gin router + HTTP server
	httpHandler := handler.NewHandler(svc, rec)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))
	httpHandler.RegisterRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info().Str("addr", addr).Str("mode", string(svc.Mode())).Msg("search-service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// 11. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutdown signal received")

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		// stop the consumer loop, reconciler and prober tickers
		cancel()

		if kafkaConsumer != nil {
			if err := kafkaConsumer.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing kafka consumer")
			}
		}

		rec.Stop()
		<-rec.Done()
		prober.Stop()
		<-prober.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("HTTP server forced to shutdown")
		}
	}()

	select {
	case <-shutdownDone:
		logger.Info().Msg("search-service stopped")
	case <-time.After(30 * time.Second):
		logger.Warn().Msg("shutdown timed out after 30s")
	}
}
