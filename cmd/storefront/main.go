package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/freshmart/storefront/internal/cart"
	"github.com/freshmart/storefront/internal/catalog"
	"github.com/freshmart/storefront/internal/checkout"
	"github.com/freshmart/storefront/internal/config"
	"github.com/freshmart/storefront/internal/db"
	"github.com/freshmart/storefront/internal/events"
	"github.com/freshmart/storefront/internal/httpapi"
	"github.com/freshmart/storefront/internal/receipts"
	"github.com/freshmart/storefront/internal/session"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "[storefront] ", log.LstdFlags|log.Lshortfile)

	backend, err := catalog.NewClient(cfg.BackendURL, &http.Client{Timeout: cfg.UpstreamTimeout})
	if err != nil {
		logger.Fatalf("backend client: %v", err)
	}

	var cache catalog.Cache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		cache = catalog.NewRedisCache(rdb, cfg.ProductCacheTTL)
		logger.Printf("product cache: redis at %s", cfg.RedisAddr)
	} else {
		cache = catalog.NewMemoryCache(cfg.ProductCacheTTL)
		logger.Printf("product cache: in-memory")
	}
	cached := catalog.NewCachedCatalog(backend, cache, logger)

	var recorder checkout.ConfirmationRecorder
	var receiptRepo receipts.Repository
	var sequences events.SequenceRepository
	if cfg.ReceiptsDBDSN != "" {
		if err := db.RunMigrations(cfg.ReceiptsDBDSN, logger); err != nil {
			logger.Fatalf("run migrations: %v", err)
		}
		database, err := db.Open(cfg.ReceiptsDBDSN)
		if err != nil {
			logger.Fatalf("open receipts db: %v", err)
		}
		defer database.Close()

		receiptRepo = receipts.NewRepository(database)
		recorder = receiptRepo
		sequences = events.NewSequenceRepository(database)
		logger.Printf("order history: enabled")
	}

	var publisher checkout.ConfirmationPublisher
	if cfg.RabbitURL != "" {
		conn, err := events.DialRabbit(cfg.RabbitURL)
		if err != nil {
			logger.Fatalf("dial rabbitmq: %v", err)
		}
		defer conn.Close()

		pub, err := events.NewPublisher(conn, sequences, logger)
		if err != nil {
			logger.Fatalf("events publisher: %v", err)
		}
		defer pub.Close()
		publisher = pub
		logger.Printf("event publishing: enabled")
	}

	factory := func(c *cart.Store) *checkout.Orchestrator {
		o := checkout.NewOrchestrator(c, backend, backend, logger)
		if recorder != nil {
			o = o.WithRecorder(recorder)
		}
		if publisher != nil {
			o = o.WithPublisher(publisher)
		}
		return o
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessions := session.NewManager(factory, cfg.SessionTTL, logger)
	sessions.StartSweeper(ctx, time.Minute)

	handler := httpapi.NewHandler(cached, sessions, logger)
	if receiptRepo != nil {
		handler = handler.WithReceipts(receiptRepo)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpapi.CORS(cfg.CORSAllowOrigins)(httpapi.NewRouter(handler)),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("storefront engine listening on :%s (backend %s)", cfg.Port, cfg.BackendURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Printf("shutdown signal received")
	case err := <-errCh:
		logger.Fatalf("server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown error: %v", err)
	}
}
