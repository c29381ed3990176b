// Command storestub runs a development stand-in for the remote order and
// payment service.
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/logging"
	"storefront/internal/shutdown"
	"storefront/internal/stub"
)

func main() {
	env := config.LoadStubEnv()

	logger, err := logging.New(logging.Options{Service: "storestub", Env: "dev", Level: os.Getenv("LOG_LEVEL")})
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(env, logger); err != nil {
		logger.Error("stub stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(env config.StubEnv, logger *zap.Logger) error {
	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	var repo database.Repository = database.NewMemoryRepository()
	if env.MongoURI != "" {
		client, err := database.Connect(ctx, env.MongoURI)
		if err != nil {
			return err
		}
		defer func() { _ = client.Disconnect(context.Background()) }()

		db := client.Database(env.DBName)
		logger.Info("MongoDB connected", zap.String("db", db.Name()))

		if err := database.EnsureOrderIndexes(db, logger); err != nil {
			logger.Warn("order index warning", zap.Error(err))
		}
		if err := database.EnsurePaymentIndexes(db, logger); err != nil {
			logger.Warn("payment index warning", zap.Error(err))
		}
		if err := database.EnsureCartIndexes(db, logger); err != nil {
			logger.Warn("cart index warning", zap.Error(err))
		}
		repo = database.NewMongoRepository(db)
	} else {
		logger.Info("MONGO_URI not set, using in-memory repository")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	stub.New(repo, env.JWTSecret, env.AccessTokenTTL, logger).Register(r)

	return shutdown.Serve(ctx, &http.Server{Addr: ":" + env.Port, Handler: r}, logger)
}
