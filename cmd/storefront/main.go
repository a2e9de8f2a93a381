package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/storekit/mediator/domain"
	"github.com/storekit/mediator/internal/config"
	catalogInfra "github.com/storekit/mediator/internal/infrastructure/catalog"
	"github.com/storekit/mediator/internal/infrastructure/content"
	"github.com/storekit/mediator/internal/infrastructure/payment"
	"github.com/storekit/mediator/internal/services/lifecycle"
	"github.com/storekit/mediator/pkg/logger"
	"github.com/storekit/mediator/repository"
	boltRepo "github.com/storekit/mediator/repository/bolt"
	memoryRepo "github.com/storekit/mediator/repository/memory"
	redisRepo "github.com/storekit/mediator/repository/redis"
	"github.com/storekit/mediator/usecase/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	kvStore, closeStore, err := openLedgerStore(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to open ledger store", zap.Error(err))
	}
	manager.Register("ledger_store", closeStore)
	ledger := repository.NewLedger(kvStore)

	simulator := payment.NewSimulator(payment.SimulatorConfig{
		TickInterval:        cfg.Simulator.TickInterval,
		ContentRoot:         cfg.Simulator.ContentRoot,
		DownloadsPerProduct: map[string]int{"com.example.artpack": 1},
	}, zapLogger)

	catalogClient := catalogInfra.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.Timeout, zapLogger)
	relocator := content.NewRelocator(cfg.Content.PurchasesDir, zapLogger)

	controller, err := store.New(simulator, catalogClient, ledger, relocator, zapLogger, store.Options{
		Manifest: []domain.ManifestEntry{
			{ID: "com.example.starter"},
			{ID: "com.example.artpack"},
		},
		OnFetch: func(products []*domain.Product, err error) {
			if err != nil {
				zapLogger.Warn("initial product info fetch failed", zap.Error(err))
				return
			}
			for _, p := range products {
				zapLogger.Info("product resolved",
					zap.String("id", p.ID()),
					zap.String("title", p.Title()),
					zap.String("price", p.FormattedPrice()))
			}
		},
	})
	if err != nil {
		zapLogger.Fatal("failed to build store controller", zap.Error(err))
	}
	manager.Register("store_controller", func(ctx context.Context) error {
		controller.Close()
		return nil
	})

	simulator.Start()
	manager.Register("payment_simulator", func(ctx context.Context) error {
		simulator.Stop()
		return nil
	})

	if !controller.CanMakePayments() {
		zapLogger.Fatal("payments are disabled")
	}

	finished := make(chan domain.Event, 1)
	product := controller.Product("com.example.artpack")
	_ = product.On(domain.EventPurchaseFinished, func(e domain.Event) {
		select {
		case finished <- e:
		default:
		}
	})
	_ = product.On(domain.EventDownloadFinished, func(e domain.Event) {
		zapLogger.Info("content delivered", zap.String("path", e.ContentPath))
	})

	if err := product.Purchase(); err != nil {
		zapLogger.Fatal("purchase submission failed", zap.Error(err))
	}
	zapLogger.Info("purchase submitted", zap.String("product_id", product.ID()))

	select {
	case <-finished:
		owned, _ := ledger.All(appCtx)
		zapLogger.Info("purchase complete", zap.Strings("owned", owned))
	case <-time.After(time.Minute):
		zapLogger.Warn("purchase did not complete in time")
	case <-appCtx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Context.ShutdownTimeout)
	defer shutdownCancel()
	if err := manager.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("shutdown finished with errors", zap.Error(err))
	}
}

func openLedgerStore(cfg *config.Config, zapLogger *zap.Logger) (repository.KeyValueStore, lifecycle.ShutdownFunc, error) {
	switch cfg.Ledger.Backend {
	case "redis":
		client, err := redisRepo.NewClient(cfg.Ledger.Redis.URL)
		if err != nil {
			return nil, nil, err
		}
		return redisRepo.NewStore(client), func(ctx context.Context) error {
			return client.Close()
		}, nil
	case "memory":
		return memoryRepo.NewStore(), func(ctx context.Context) error { return nil }, nil
	default:
		boltStore, err := boltRepo.Open(cfg.Ledger.Path, cfg.Ledger.Bucket)
		if err != nil {
			return nil, nil, err
		}
		zapLogger.Info("ledger store opened", zap.String("path", cfg.Ledger.Path))
		return boltStore, func(ctx context.Context) error {
			return boltStore.Close()
		}, nil
	}
}
