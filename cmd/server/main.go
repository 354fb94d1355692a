package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/addisrent/addisrent/internal/cache"
	"github.com/addisrent/addisrent/internal/config"
	"github.com/addisrent/addisrent/internal/escrow"
	"github.com/addisrent/addisrent/internal/events"
	"github.com/addisrent/addisrent/internal/httpapi"
	"github.com/addisrent/addisrent/internal/model"
	"github.com/addisrent/addisrent/internal/payment"
	"github.com/addisrent/addisrent/internal/review"
	"github.com/addisrent/addisrent/internal/store"
	"github.com/addisrent/addisrent/internal/trust"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if cfg.Environment == "development" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting addisrent",
		"environment", cfg.Environment,
		"store", cfg.StoreType,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	var redisClient *redis.Client
	if cfg.RedisEnabled {
		redisClient, err = cache.Connect(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			slog.Warn("redis unavailable, caching disabled", "error", err)
			redisClient = nil
		} else {
			slog.Info("redis connected", "addr", cfg.RedisAddr)
			defer redisClient.Close()
		}
	}

	// Nil views are no-ops, so everything below works with Redis off.
	profileCache := cache.NewView[model.TrustProfile](redisClient, "trust:profile:", 5*time.Minute)
	statsCache := cache.NewView[model.RatingStats](redisClient, "review:stats:", 10*time.Minute)

	publisher := events.NewPublisher(cfg.EventSource)

	trustSvc := trust.NewService(st, profileCache, publisher)
	providers := payment.NewFactory(payment.Credentials{
		TelebirrAPIKey: cfg.TelebirrAPIKey,
		MpesaAPIKey:    cfg.MpesaAPIKey,
		CBEBirrAPIKey:  cfg.CBEBirrAPIKey,
	})
	ledger := escrow.NewLedger(st, providers, trustSvc, publisher)
	reviewSvc := review.NewService(st, trustSvc, statsCache, publisher)

	router := httpapi.NewRouter(httpapi.RouterConfig{
		JWTSecret:        []byte(cfg.JWTSecret),
		Payments:         httpapi.NewPaymentHandlers(ledger),
		Reviews:          httpapi.NewReviewHandlers(reviewSvc),
		Trust:            httpapi.NewTrustHandlers(trustSvc),
		PaymentRateLimit: 30,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.StoreType {
	case "mongo":
		clientOpts := options.Client().ApplyURI(cfg.MongoURI)
		client, err := mongo.Connect(ctx, clientOpts)
		if err != nil {
			return nil, nil, err
		}
		if err := client.Ping(ctx, nil); err != nil {
			return nil, nil, err
		}
		st := store.NewMongoStore(client, cfg.MongoDB)
		if err := st.EnsureIndexes(ctx); err != nil {
			slog.Warn("failed to create indexes", "error", err)
		}
		slog.Info("using mongodb store", "db", cfg.MongoDB)
		return st, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(ctx); err != nil {
				slog.Error("failed to disconnect mongodb", "error", err)
			}
		}, nil

	case "postgres":
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			return nil, nil, err
		}
		st := store.NewPostgresStore(db)
		if err := st.EnsureSchema(ctx); err != nil {
			return nil, nil, err
		}
		slog.Info("using postgres store")
		return st, func() {
			if err := st.Close(); err != nil {
				slog.Error("failed to close postgres", "error", err)
			}
		}, nil

	default:
		slog.Info("using in-memory store")
		return store.NewMemoryStore(), func() {}, nil
	}
}
