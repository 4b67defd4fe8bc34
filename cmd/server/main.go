package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pairchat/internal/application"
	"pairchat/internal/config"
	"pairchat/internal/gate"
	"pairchat/internal/handlers"
	"pairchat/internal/hub"
	"pairchat/internal/middleware"
	"pairchat/internal/notify"
	"pairchat/internal/observability"
	"pairchat/internal/repository/postgres"
	"pairchat/internal/router"
	"pairchat/internal/tx"
)

func main() {
	cfg := config.Load()

	observability.InitLogger(cfg.ServiceName)
	log := observability.Log
	defer log.Sync()

	if cfg.TracingEnabled {
		tp, err := observability.InitTracer(cfg.ServiceName, cfg.JaegerURL)
		if err != nil {
			log.Fatal("failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				log.Error("failed to shutdown tracer provider", zap.Error(err))
			}
		}()
	}

	ctx, cancel := setupSignalHandler(log)
	defer cancel()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close()

	repo := &postgres.Repository{DB: db}
	transactor := &tx.Manager{DB: db, Log: log}
	connGate := &gate.PostgresGate{DB: db}

	// Realtime hub, with an optional redis bridge for multi-instance fan-out.
	registry := hub.NewRegistry()
	var liveRouter *hub.Router
	if cfg.RedisAddr != "" {
		client := initRedis(ctx, cfg.RedisAddr, log)
		defer client.Close()
		instanceID := cfg.InstanceID
		if instanceID == "" {
			instanceID = uuid.NewString()
		}
		liveRouter = hub.NewRouter(client, instanceID, log)
	}
	liveHub := hub.New(registry, liveRouter, log)
	liveHub.Run(ctx)

	// Notification sink is optional and always fire-and-forget.
	var notifier notify.Notifier
	if cfg.KafkaBrokers != "" {
		kn := notify.NewKafkaNotifier(strings.Split(cfg.KafkaBrokers, ","), cfg.NotifyTopic)
		defer kn.Close()
		notifier = kn
	}

	svc := application.New(repo, transactor, connGate, liveHub, notifier, log)

	wsHandler := hub.NewHandler(liveHub, svc, func(r *http.Request) string {
		return middleware.UserID(r.Context())
	}, log)

	msgH := handlers.NewMessageHandler(svc)
	convH := handlers.NewConversationHandler(svc)
	apiSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router.New(msgH, convH, wsHandler, cfg.JWTSecret),
	}

	obsSrv := initObservabilityServer(cfg.ObsHTTPAddr, db)

	go func() {
		log.Info("observability server started", zap.String("addr", cfg.ObsHTTPAddr))
		if err := obsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("observability server failed", zap.Error(err))
		}
	}()
	go func() {
		log.Info("api server started", zap.String("addr", cfg.HTTPAddr))
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("api server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	registry.CloseAll()
	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("api server shutdown failed", zap.Error(err))
	}
	if err := obsSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("observability server shutdown failed", zap.Error(err))
	}
}

func setupSignalHandler(log *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received signal, initiating shutdown", zap.String("signal", sig.String()))
		cancel()
	}()
	return ctx, cancel
}

func initRedis(ctx context.Context, addr string, log *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	return client
}

func initObservabilityServer(addr string, db *sql.DB) *http.Server {
	mux := chi.NewRouter()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Get("/health/live", observability.HealthLiveHandler)
	mux.Get("/health/ready", observability.HealthReadyHandler(db))
	return &http.Server{Addr: addr, Handler: mux}
}
