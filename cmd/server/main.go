package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/wagerline/chatbet/internal/bet"
	"github.com/wagerline/chatbet/internal/bot"
	"github.com/wagerline/chatbet/internal/config"
	"github.com/wagerline/chatbet/internal/feed"
	"github.com/wagerline/chatbet/internal/metrics"
	"github.com/wagerline/chatbet/internal/model"
	"github.com/wagerline/chatbet/internal/pricing"
	"github.com/wagerline/chatbet/internal/store"
	"github.com/wagerline/chatbet/internal/webhook"
	"github.com/wagerline/chatbet/internal/whatsapp"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	// --- Initialize store ---
	var st store.Store
	var rdb *redis.Client
	var cleanup []func()

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)

		pg := store.NewPostgresStore(pool)
		if err := pg.EnsureSchema(context.Background()); err != nil {
			slog.Error("schema setup failed", "err", err)
			os.Exit(1)
		}
		st = pg
		slog.Info("connected to PostgreSQL")
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "err", err)
			os.Exit(1)
		}
		rdb = redis.NewClient(opt)
		cleanup = append(cleanup, func() { rdb.Close() })
		st = store.NewCachedStore(st, rdb, 30*time.Second)
		slog.Info("Redis cache enabled")
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	if err := seedMarkets(context.Background(), st); err != nil {
		slog.Error("market seeding failed", "err", err)
		os.Exit(1)
	}

	// --- Webhook dedup ---
	var dedup webhook.Deduper
	if rdb != nil {
		dedup = webhook.NewRedisDeduper(rdb, 24*time.Hour)
	} else {
		dedup = webhook.NewMemoryDeduper(24 * time.Hour)
	}

	// --- Fill feed hub ---
	hub := feed.NewHub()
	go hub.Run()

	// --- Betting engine and command router ---
	betSvc := bet.NewService(st, pricing.NewEngine(), hub)
	router := bot.NewRouter(st, betSvc)

	// --- Outbound transport ---
	if cfg.WhatsAppToken == "" || cfg.PhoneNumberID == "" {
		slog.Warn("WHATSAPP_TOKEN or PHONE_NUMBER_ID not set, outbound sends will fail")
	}
	sender := whatsapp.NewClientWithBaseURL(cfg.WhatsAppToken, cfg.PhoneNumberID, cfg.GraphBaseURL)

	h := webhook.NewHandler(cfg.VerifyToken, st, router, sender, dedup)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/", h.Health)
	r.Get("/webhook", h.Verify)
	r.Post("/webhook", h.Events)

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	// Live fill feed.
	r.Get("/ws", hub.HandleWS)

	// Market lifecycle.
	r.Post("/admin/markets", h.CreateMarket)
	r.Post("/admin/markets/{marketID}/close", h.CloseMarket)

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("chatbet listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down chatbet...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("chatbet stopped")
}

// seedMarkets creates the starter questions on an empty ledger.
func seedMarkets(ctx context.Context, st store.Store) error {
	existing, err := st.ListMarkets(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		open := 0
		for _, m := range existing {
			if m.IsOpen {
				open++
			}
		}
		metrics.OpenMarkets.Set(float64(open))
		return nil
	}

	seeds := []model.Market{
		{Question: "Will India win the next match?", YesPrice: decimal.NewFromFloat(0.50), NoPrice: decimal.NewFromFloat(0.50)},
		{Question: "Will it rain in Mumbai tomorrow?", YesPrice: decimal.NewFromFloat(0.45), NoPrice: decimal.NewFromFloat(0.55)},
	}
	for i := range seeds {
		seeds[i].IsOpen = true
		seeds[i].CreatedAt = time.Now().UTC()
		if err := st.CreateMarket(ctx, &seeds[i]); err != nil {
			return err
		}
		slog.Info("seeded market", "id", seeds[i].ID, "question", seeds[i].Question)
	}
	metrics.OpenMarkets.Set(float64(len(seeds)))
	return nil
}
