package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"petshop/database"
	"petshop/internal/config"
	"petshop/internal/microservices/http-api/repository"
	"petshop/internal/microservices/http-api/router"
	"petshop/internal/microservices/http-api/service"
	"petshop/internal/microservices/websocket"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	logger := config.NewLogger(cfg)

	if err := run(cfg, logger); err != nil {
		logger.Error("server_exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	rdb, err := database.ConnectRedis(ctx, cfg)
	if err != nil {
		return err
	}

	// chat store: postgres, optionally fronted by a redis tail cache
	var store websocket.MessageStore = websocket.NewGormMessageStore(db.Gorm)
	if rdb != nil {
		defer rdb.Close()
		cached := websocket.NewCachedMessageStore(
			store,
			websocket.NewRedisRecentCache(rdb, cfg.ChatCacheSize),
			cfg.ChatCacheSize,
			logger,
		)
		if err := cached.Warm(ctx); err != nil {
			return err
		}
		store = cached
	}

	hub := websocket.NewHub(store, websocket.HubConfig{
		HistorySize:  cfg.ChatHistorySize,
		IdleTimeout:  cfg.ChatIdleTimeout,
		RateLimit:    cfg.ChatRateLimit,
		RateBurst:    cfg.ChatRateBurst,
		StoreTimeout: 5 * time.Second,
	}, logger)

	productService := service.NewProductService(repository.NewProductRepository(db.Gorm))
	if cfg.SeedProducts {
		n, err := productService.SeedDefaults(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Info("products_seeded", "count", n)
		}
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r, err := router.New(router.Dependencies{
		Config:         cfg,
		AuthService:    service.NewAuthService(repository.NewUserRepository(db.Gorm), cfg),
		ProductService: productService,
		Hub:            hub,
		DB:             db,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server_started", "addr", cfg.Addr())
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("server_shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// hijacked websocket conns are not tracked by http.Server
	if err := hub.Shutdown(shutdownCtx); err != nil {
		logger.Warn("chat_hub_shutdown_incomplete", "error", err)
	}
	return srv.Shutdown(shutdownCtx)
}
