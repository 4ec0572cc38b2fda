// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"review-funnel/internal/account"
	"review-funnel/internal/common/aws"
	"review-funnel/internal/common/config"
	"review-funnel/internal/common/database"
	commonhttp "review-funnel/internal/common/http"
	"review-funnel/internal/common/logger"
	"review-funnel/internal/common/observability"
	"review-funnel/internal/qr"
	"review-funnel/internal/review"
	"review-funnel/internal/server"
	"review-funnel/internal/sheet"
	"review-funnel/internal/shop"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New("info", "console")
		fallback.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting review funnel server...")

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch (optional, search degrades without it) ---
	var esClient *database.ElasticsearchClient
	if len(cfg.Database.Elasticsearch.Addresses) > 0 {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 5, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Warn("elasticsearch unavailable, admin search disabled", zap.Error(err))
			esClient = nil
		} else {
			zapLog.Info("Elasticsearch connected successfully")
		}
	}

	// --- Wire the funnel ---
	httpClient := commonhttp.NewClient(cfg.Webhooks.GetTimeout())

	store := shop.NewStore(pg, log)
	fetcher := sheet.NewFetcher(cfg.Sheet, httpClient, redisClient, log)
	resolver := shop.NewResolver(store, fetcher, redisClient, cfg.Sheet.GetCacheTTL(), obs, log)
	relay := review.NewRelay(cfg.Webhooks, httpClient, log)
	sessions := account.NewSessions(redisClient, cfg.Auth, log)
	poller := qr.NewPoller(cfg.Sheet, cfg.QR, httpClient, store, log)

	var index *shop.Index
	var indexer account.Indexer
	if esClient != nil {
		index = shop.NewIndex(esClient, cfg.Database.Elasticsearch.ShopIndex, log)
		indexer = index
	}

	var importer *shop.Importer
	if index != nil {
		importer = shop.NewImporter(fetcher, store, index, log)
	} else {
		importer = shop.NewImporter(fetcher, store, nil, log)
	}

	var notifier account.Notifier
	if cfg.Integrations.AWS.SES.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Warn("ses client unavailable, notifications disabled", zap.Error(err))
		} else {
			notifier = sesClient
		}
	}

	accounts := account.NewService(cfg.Webhooks, cfg.Integrations, httpClient, store, indexer, notifier, log)

	srv := server.New(server.Deps{
		Config:   cfg,
		Logger:   log,
		Obs:      obs,
		Resolver: resolver,
		Store:    store,
		Index:    index,
		Importer: importer,
		Relay:    relay,
		Accounts: accounts,
		Sessions: sessions,
		Poller:   poller,
	})

	go func() {
		if err := srv.Start(); err != nil {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down http server", zap.Error(err))
	}

	zapLog.Info("Review funnel server stopped gracefully")
}
