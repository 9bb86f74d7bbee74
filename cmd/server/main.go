// Package main is the entry point for the magasin API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"magasin/internal/config"
	"magasin/internal/core/numerator"
	"magasin/internal/core/tx"
	"magasin/internal/domain/audit"
	"magasin/internal/domain/auth"
	"magasin/internal/domain/catalogs/customer"
	"magasin/internal/domain/catalogs/product"
	"magasin/internal/domain/documents/sale"
	"magasin/internal/domain/registers/credit"
	"magasin/internal/domain/registers/stock"
	"magasin/internal/infrastructure/cache"
	v1 "magasin/internal/infrastructure/http/v1"
	"magasin/internal/infrastructure/http/v1/handlers"
	pgnumerator "magasin/internal/infrastructure/numerator"
	"magasin/internal/infrastructure/storage/memory"
	"magasin/internal/infrastructure/storage/postgres"
	"magasin/internal/infrastructure/storage/postgres/catalog_repo"
	"magasin/internal/infrastructure/storage/postgres/document_repo"
	"magasin/internal/infrastructure/storage/postgres/register_repo"
	"magasin/pkg/logger"
)

// backend is one storage implementation of every repository.
type backend struct {
	txManager tx.Manager
	products  product.Repository
	customers customer.Repository
	stock     stock.Repository
	credit    credit.Repository
	sales     sale.Repository
	numbers   numerator.Generator
	audit     audit.Recorder
	checks    map[string]handlers.Pinger
	close     func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: !cfg.IsProduction(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	ctx := context.Background()
	log.Infow("starting magasin server", "env", cfg.Env, "storage", cfg.Storage)

	var store *backend
	switch cfg.Storage {
	case config.StorageMemory:
		store = memoryBackend()
		log.Warn("using in-memory storage: data is lost on restart")
	default:
		store, err = postgresBackend(ctx, cfg)
		if err != nil {
			log.Fatalw("failed to open database", "error", err)
		}
	}
	defer store.close()

	// --- Redis (optional) ---
	var (
		idempotencyStore *cache.IdempotencyStore
		alerts           stock.AlertPublisher
	)
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalw("failed to connect to redis", "error", err)
		}
		defer rdb.Close()

		idempotencyStore = cache.NewIdempotencyStore(rdb, cfg.IdempotencyTTL)
		alerts = cache.NewAlertQueue(rdb)
		store.checks["redis"] = handlers.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		log.Infow("redis connected", "idempotency_ttl", cfg.IdempotencyTTL)
	}

	// --- Services ---
	productService := product.NewService(store.products, store.txManager)
	customerService := customer.NewService(store.customers, store.txManager)
	stockService := stock.NewService(store.stock, store.products, store.txManager, alerts)
	creditService := credit.NewService(store.credit, store.customers, store.txManager)
	saleService := sale.NewService(sale.Deps{
		Repo:      store.sales,
		Products:  store.products,
		Customers: store.customers,
		Stock:     stockService,
		Credit:    creditService,
		Numbers:   store.numbers,
		TxManager: store.txManager,
		Audit:     store.audit,
	})

	jwtService := auth.NewJWTService(auth.JWTConfig{
		Secret:         cfg.JWTSecret,
		Issuer:         cfg.JWTIssuer,
		AccessTokenTTL: cfg.JWTTTL,
	})

	routerCfg := v1.RouterConfig{
		Logger:       log,
		JWTValidator: jwtService,
		Sales:        saleService,
		Products:     productService,
		Customers:    customerService,
		Stock:        stockService,
		HealthChecks: store.checks,
	}
	if idempotencyStore != nil {
		routerCfg.Idempotency = idempotencyStore
	}
	router := v1.NewRouter(routerCfg)

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}
	log.Info("server stopped")
}

func postgresBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, cfg.DatabaseURL); err != nil {
			return nil, err
		}
	}

	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MinConns = cfg.DBMinConns
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	postgres.LogPoolStats(ctx, pool)

	txOpts := postgres.DefaultTxOptions()
	txOpts.StatementTimeout = cfg.DBStatementTimeout
	txm := postgres.NewTxManager(pool, txOpts)

	auditRecorder, err := postgres.NewAuditRecorder(txm, 0)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &backend{
		txManager: txm,
		products:  catalog_repo.NewProductRepo(txm),
		customers: catalog_repo.NewCustomerRepo(txm),
		stock:     register_repo.NewStockRepo(txm),
		credit:    register_repo.NewCreditRepo(txm),
		sales:     document_repo.NewSaleRepo(txm),
		numbers: pgnumerator.New(func(ctx context.Context) pgnumerator.Querier {
			return txm.GetQuerier(ctx)
		}),
		audit:  auditRecorder,
		checks: map[string]handlers.Pinger{"database": pool},
		close:  pool.Close,
	}, nil
}

func memoryBackend() *backend {
	s := memory.NewStore()
	return &backend{
		txManager: s,
		products:  memory.NewProductRepo(s),
		customers: memory.NewCustomerRepo(s),
		stock:     memory.NewStockRepo(s),
		credit:    memory.NewCreditRepo(s),
		sales:     memory.NewSaleRepo(s),
		numbers:   memory.NewNumerator(s),
		audit:     memory.NewAuditLog(),
		checks:    map[string]handlers.Pinger{},
		close:     func() {},
	}
}
