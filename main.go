package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/handlers"
	"storefront/internal/logging"
	"storefront/internal/remote"
	"storefront/internal/retry"
	"storefront/internal/shutdown"
	"storefront/internal/storage"
	"storefront/internal/storefront"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(logging.Options{Service: "storefront", Env: cfg.AppEnv, Level: cfg.LogLevel})
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("storefront stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	store, err := storage.Open(cfg.StorageDriver, storage.Options{
		Dir:         cfg.StorageDir,
		RedisAddr:   cfg.RedisAddr,
		RedisPrefix: cfg.RedisPrefix,
	})
	if err != nil {
		return err
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		defer func() { _ = closer.Close() }()
	}
	logger.Info("storage ready", zap.String("driver", cfg.StorageDriver))

	syncRetry := retry.DefaultPolicy()
	syncRetry.MaxRetries = cfg.SyncMaxRetries
	syncRetry.BaseDelay = cfg.RetryBaseDelay
	payRetry := syncRetry
	payRetry.MaxRetries = cfg.PaymentMaxRetries

	shop := storefront.New(storefront.Deps{
		Storage: store,
		NewRemote: func(session remote.Session) storefront.Remote {
			return remote.New(cfg.RemoteBaseURL, cfg.RemoteTimeout, session, logger)
		},
		SyncRetry: syncRetry,
		PayRetry:  payRetry,
		Log:       logger,
	})
	shop.Start()
	defer shop.Close()

	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	handlers.Register(r, handlers.Deps{Shop: shop, Log: logger.Named("api")})

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()
	return shutdown.Serve(ctx, &http.Server{Addr: ":" + cfg.Port, Handler: r}, logger)
}
