package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	classifier "github.com/phillip/food-rescue-go/classifier"
	config "github.com/phillip/food-rescue-go/config"
	middleware "github.com/phillip/food-rescue-go/middleware"
	proximity "github.com/phillip/food-rescue-go/proximity"
	routes "github.com/phillip/food-rescue-go/routes"
	services "github.com/phillip/food-rescue-go/services"
	store "github.com/phillip/food-rescue-go/store"
	utils "github.com/phillip/food-rescue-go/utils"
)

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type", "If-Match", "If-None-Match"},
		ExposeHeaders: []string{"ETag", "Last-Modified", middleware.RequestIDHeader, "X-Unread-Count"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
		c.AllowCredentials = true
	}
	return c
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot, _ := zap.NewProduction()
		boot.Fatal("invalid configuration", zap.Error(err))
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		logger, _ = zap.NewProduction()
		logger.Warn("invalid LOG_LEVEL, falling back to info", zap.String("level", cfg.LogLevel))
	}
	defer func() { _ = logger.Sync() }()

	// --- Storage ---
	var stores *store.Stores
	switch cfg.Backend {
	case config.BackendMongo:
		if err := cfg.Connect(context.Background()); err != nil {
			logger.Fatal("mongo connection failed", zap.Error(err))
		}
		defer func() { _ = cfg.MongoClient.Disconnect(context.Background()) }()
		if err := store.EnsureIndexes(context.Background(), cfg.Database()); err != nil {
			logger.Fatal("mongo indexes", zap.Error(err))
		}
		stores = store.NewMongo(cfg.Database())
	default:
		logger.Warn("using in-memory store; data is lost on restart")
		stores = store.NewMemory()
	}

	deps := services.Deps{
		Stores:    stores,
		Proximity: proximity.Config{RadiusKm: cfg.ProximityRadiusKm, Inclusive: cfg.ProximityInclusive},
		Logger:    logger,
	}

	// --- Images ---
	if cfg.CloudinaryConfigured() {
		images, err := utils.NewCloudinaryStore(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			logger.Fatal("cloudinary", zap.Error(err))
		}
		deps.Images = images
	} else {
		logger.Warn("cloudinary not configured; image uploads are disabled")
	}

	// --- Vision model ---
	if cfg.OpenAIAPIKey != "" {
		vision := classifier.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, logger)
		deps.Classifier = vision
		deps.Geocoder = vision
	} else {
		logger.Warn("OPENAI_API_KEY not set; safety and proof checks fall back to manual review")
	}

	svc := services.NewRescueService(deps)

	// --- HTTP ---
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger), cors.New(corsConfig(cfg.CORSAllowedOrigins)))
	routes.SetupRoutes(r, cfg, svc)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("backend", cfg.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutting down")
	case err := <-errCh:
		logger.Error("server failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
