package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	appfiscal "github.com/bikeshop/backend/internal/application/fiscal"
	appinventory "github.com/bikeshop/backend/internal/application/inventory"
	appledger "github.com/bikeshop/backend/internal/application/ledger"
	appworkshop "github.com/bikeshop/backend/internal/application/workshop"
	"github.com/bikeshop/backend/internal/domain/inventory"
	"github.com/bikeshop/backend/internal/domain/shared"
	"github.com/bikeshop/backend/internal/infrastructure/cache"
	"github.com/bikeshop/backend/internal/infrastructure/config"
	"github.com/bikeshop/backend/internal/infrastructure/event"
	infrafiscal "github.com/bikeshop/backend/internal/infrastructure/fiscal"
	"github.com/bikeshop/backend/internal/infrastructure/logger"
	"github.com/bikeshop/backend/internal/infrastructure/persistence"
	"github.com/bikeshop/backend/internal/interfaces/http/handler"
	"github.com/bikeshop/backend/internal/interfaces/http/middleware"
	"github.com/bikeshop/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env))

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	idempotency := newIdempotencyStore(cfg, log)
	defer func() { _ = idempotency.Close() }()

	// Repositories and unit of work
	ledgerRepo := persistence.NewGormInvoiceLedgerRepository(db.DB)
	stockItemRepo := persistence.NewGormStockItemRepository(db.DB)
	uow := persistence.NewGormUnitOfWork(db.DB)

	bus := event.NewInMemoryEventBus(log.Named("events"))
	bus.Subscribe(inventory.EventTypeStockBelowThreshold, func(_ context.Context, ev shared.DomainEvent) error {
		if e, ok := ev.(*inventory.StockBelowThresholdEvent); ok {
			log.Warn("stock below reorder threshold",
				zap.String("sku", e.SKU),
				zap.Int64("remaining", e.Remaining),
				zap.Int64("threshold", e.Threshold))
		}
		return nil
	})

	// Application services
	finalization := appworkshop.NewFinalizationService(
		uow,
		inventory.NewStockLedgerService(),
		bus,
		cfg.Fiscal.Series,
		decimal.NewFromFloat(cfg.Fiscal.TaxRate),
		log.Named("finalization"),
	)
	ledgerService := appledger.NewLedgerService(
		ledgerRepo,
		decimal.NewFromFloat(cfg.Fiscal.TaxRate),
		log.Named("ledger"),
	)
	stockQuery := appinventory.NewStockQueryService(stockItemRepo)

	exportService, err := newExportService(cfg, ledgerRepo, db, log)
	if err != nil {
		log.Fatal("Failed to build fiscal export pipeline", zap.Error(err))
	}

	// HTTP wiring
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	}
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.CORSWithConfig(middleware.DefaultCORSConfig()),
	)

	router.NewRouter(engine).
		Register(handler.NewRepairOrderHandler(finalization, idempotency, cfg.HTTP.FinalizeTimeout, log.Named("http"))).
		Register(handler.NewLedgerHandler(ledgerService)).
		Register(handler.NewFiscalHandler(exportService)).
		Register(handler.NewStockItemHandler(stockQuery)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newIdempotencyStore prefers Redis and falls back to the in-memory store when
// Redis is unreachable. Dedupe is best effort; correctness lives in the
// finalization transaction.
func newIdempotencyStore(cfg *config.Config, log *zap.Logger) cache.IdempotencyStore {
	store, err := cache.NewRedisIdempotencyStore(cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, using in-memory idempotency store",
			zap.String("addr", cfg.Redis.Addr()),
			zap.Error(err))
		return cache.NewInMemoryIdempotencyStore()
	}
	log.Info("Idempotency store connected", zap.String("addr", cfg.Redis.Addr()))
	return store
}

// newExportService assembles the Facturae pipeline: renderer, validator,
// signer and artifact store, each picked from configuration
func newExportService(
	cfg *config.Config,
	ledgerRepo *persistence.GormInvoiceLedgerRepository,
	db *persistence.Database,
	log *zap.Logger,
) (*appfiscal.ExportService, error) {
	signer, err := newSigner(cfg, log)
	if err != nil {
		return nil, err
	}

	store, err := newArtifactStore(cfg)
	if err != nil {
		return nil, err
	}

	seller := appfiscal.Party{
		TaxID:       cfg.Fiscal.SellerTaxID,
		Name:        cfg.Fiscal.SellerName,
		Address:     cfg.Fiscal.SellerStreet,
		PostCode:    cfg.Fiscal.SellerPost,
		Town:        cfg.Fiscal.SellerTown,
		Province:    cfg.Fiscal.SellerRegion,
		CountryCode: "ESP",
	}

	uploadedSigner := func(certificate []byte, password string) (appfiscal.Signer, error) {
		return infrafiscal.NewRSASignerFromPKCS12(certificate, password)
	}

	return appfiscal.NewExportService(
		ledgerRepo,
		infrafiscal.NewFacturaeRenderer(),
		signer,
		uploadedSigner,
		infrafiscal.NewStructuralValidator(),
		store,
		persistence.NewGormBuyerResolver(db.DB),
		seller,
		log.Named("fiscal"),
	), nil
}

func newSigner(cfg *config.Config, log *zap.Logger) (*infrafiscal.RSASigner, error) {
	if cfg.Fiscal.CertPath != "" && cfg.Fiscal.KeyPath != "" {
		return infrafiscal.NewRSASignerFromFiles(cfg.Fiscal.KeyPath, cfg.Fiscal.CertPath)
	}
	log.Warn("No signing certificate configured, generating a self-signed demo certificate")
	return infrafiscal.NewSelfSignedSigner(cfg.Fiscal.SellerName)
}

func newArtifactStore(cfg *config.Config) (appfiscal.ArtifactStore, error) {
	switch cfg.Storage.Backend {
	case "s3":
		opts := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(cfg.Storage.S3Region),
		}
		if cfg.Storage.S3AccessKeyID != "" {
			opts = append(opts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(
					cfg.Storage.S3AccessKeyID, cfg.Storage.S3SecretAccessKey, "")))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return infrafiscal.NewS3ArtifactStore(s3.NewFromConfig(awsCfg), cfg.Storage.S3Bucket), nil
	default:
		return infrafiscal.NewFSArtifactStore(cfg.Storage.BasePath)
	}
}
