package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"gearguard-backend/config"
	"gearguard-backend/internal/api"
	"gearguard-backend/internal/auth"
	"gearguard-backend/internal/logging"
	"gearguard-backend/internal/metrics"
	"gearguard-backend/internal/notification"
	"gearguard-backend/internal/service"
	"gearguard-backend/internal/store"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()

	primary, err := store.OpenPrimary(ctx, &cfg.Primary, logger)
	if err != nil {
		logger.Fatal("failed to open primary store", zap.String("driver", cfg.Primary.Driver), zap.Error(err))
	}
	var primaryStore store.Store
	if primary != nil {
		primaryStore = primary.Store
	}
	fallback := store.NewFileStore(cfg.Fallback.Path, store.WithDemoSeed(cfg.Fallback.SeedDemo))
	appStore := store.NewFailover(primaryStore, fallback,
		store.WithOpTimeout(cfg.Primary.OpTimeout),
		store.WithLogger(logger),
		store.WithMetrics(m),
	)
	logger.Info("data store initialized",
		zap.String("backend", appStore.Backend()),
		zap.String("fallback", cfg.Fallback.Path),
	)

	svcOpts := []service.Option{
		service.WithLogger(logger.Named("service")),
		service.WithMetrics(m),
		service.WithDirectory(service.DirectoryConfig{
			AdminPassword: cfg.Auth.AdminPassword,
			TeamPassword:  cfg.Auth.TeamPassword,
			BcryptCost:    cfg.Auth.BcryptCost,
		}),
	}

	// Push subscriptions live in the relational primary only.
	var (
		subs           notification.Subscriptions
		webpushOptions *webpush.Options
	)
	switch {
	case !cfg.Push.Enabled():
		logger.Info("VAPID keys not configured; push notifications disabled")
	case primary == nil || primary.DB == nil:
		logger.Warn("push notifications need a relational primary; disabled", zap.String("driver", cfg.Primary.Driver))
	default:
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		subs = notification.NewGormSubscriptions(primary.DB)
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, subs, webpushOptions, logger, m)
		pool.Start(ctx)
		svcOpts = append(svcOpts, service.WithNotifier(pool))
	}

	svc := service.New(appStore, svcOpts...)
	authn := auth.New(svc, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	handler := api.NewHandler(svc, authn, subs, webpushOptions, logger)
	router := api.NewRouter(*cfg, handler, m, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("shutdown signal received, stopping services")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server Shutdown", zap.Error(err))
	}
	if err := primary.Close(shutdownCtx); err != nil {
		logger.Warn("closing primary store", zap.Error(err))
	}

	logger.Info("server gracefully stopped")
}
