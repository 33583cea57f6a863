// @title           fitdash API
// @version         1.0
// @description     Fitbit metrics gateway and dashboard aggregation.
// @BasePath        /api/v1
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/comitanigiacomo/fitdash/internal/adapters/cache"
	"github.com/comitanigiacomo/fitdash/internal/adapters/fitbit"
	adapterHTTP "github.com/comitanigiacomo/fitdash/internal/adapters/handler/http"
	"github.com/comitanigiacomo/fitdash/internal/adapters/repository"
	"github.com/comitanigiacomo/fitdash/internal/config"
	"github.com/comitanigiacomo/fitdash/internal/core/domain"
	"github.com/comitanigiacomo/fitdash/internal/core/services"
	"github.com/comitanigiacomo/fitdash/internal/core/workers"
)

const tokenIssuer = "fitdash"

type app struct {
	router *gin.Engine
	worker *workers.TokenWorker

	db    *sqlx.DB
	redis *redis.Client
}

func (a *app) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

// buildApp wires every component from the configuration. endpoint overrides the Fitbit
// OAuth endpoint and is nil in production.
func buildApp(cfg *config.Config, endpoint *oauth2.Endpoint) (*app, error) {
	a := &app{}

	var (
		sessions domain.SessionStore
		accounts domain.AccountRepository
	)

	rdb, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("[REDIS] unavailable, sessions and metrics stay in memory: %v", err)
		sessions = repository.NewInMemorySessionStore()
	} else {
		sealer, err := repository.NewTokenSealer(cfg.SessionSecret)
		if err != nil {
			rdb.Close()
			return nil, err
		}
		a.redis = rdb
		sessions = repository.NewRedisSessionStore(rdb, sealer)
		log.Println("Redis connected successfully.")
	}

	if dsn := cfg.Database.DSN(); dsn != "" {
		log.Println("Connecting to database...")

		db, err := sqlx.Connect("pgx", dsn)
		if err != nil {
			a.Close()
			return nil, err
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		repo := repository.NewPostgresAccountRepository(db)
		if err := repo.EnsureSchema(context.Background()); err != nil {
			db.Close()
			a.Close()
			return nil, err
		}
		a.db = db
		accounts = repo
		log.Println("Database connected successfully.")
	} else {
		log.Println("[DB] DB_USER not set, accounts stay in memory")
		accounts = repository.NewInMemoryAccountRepository()
	}

	provider, err := fitbit.NewProvider(fitbit.ProviderConfig{
		ClientID:     cfg.FitbitClientID,
		ClientSecret: cfg.FitbitClientSecret,
		RedirectURL:  cfg.FitbitRedirectURL,
		Endpoint:     endpoint,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.worker = workers.NewTokenWorker(sessions)

	fitbitClient := fitbit.NewClient(provider.OAuthConfig(), fitbit.ClientConfig{
		BaseURL: cfg.FitbitAPIBaseURL,
		Timeout: cfg.UpstreamTimeout,
		Retries: cfg.UpstreamRetries,
		OnTokenRefresh: func(sessionID string, token *oauth2.Token) {
			a.worker.Enqueue(workers.TokenJob{
				SessionID:    sessionID,
				AccessToken:  token.AccessToken,
				RefreshToken: token.RefreshToken,
				TokenType:    token.TokenType,
				Expiry:       token.Expiry,
			})
		},
	})

	var upstream domain.UpstreamClient = fitbitClient
	if a.redis != nil && cfg.MetricsCacheTTL > 0 {
		upstream = repository.NewCachedMetricsClient(upstream, a.redis, cfg.MetricsCacheTTL)
	}

	tokenService := services.NewTokenService(cfg.SessionSecret, tokenIssuer, cfg.SessionTTL)
	sessionService := services.NewSessionService(provider, sessions, accounts, upstream, tokenService)
	metricsService := services.NewMetricsService(upstream, cfg.Location, nil)
	dashboardService := services.NewDashboardService(fitbitClient.CallBudget(), nil)

	a.router = adapterHTTP.NewRouter(adapterHTTP.RouterDependencies{
		AuthHandler:      adapterHTTP.NewAuthHandler(sessionService, adapterHTTP.CookieOptions{Secure: cfg.CookieSecure}),
		MetricsHandler:   adapterHTTP.NewMetricsHandler(metricsService),
		DashboardHandler: adapterHTTP.NewDashboardHandler(metricsService, dashboardService),
		Sessions:         sessionService,
		DB:               a.db,
		Redis:            a.redis,
		RateLimit:        cfg.RateLimit,
		StartTime:        time.Now(),
	})

	return a, nil
}

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("Critical: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Critical: %v", err)
	}

	a, err := buildApp(cfg, nil)
	if err != nil {
		log.Fatalf("Critical: failed to start: %v", err)
	}
	defer a.Close()

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	a.worker.Start(workerCtx)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      a.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("fitdash running on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Critical server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Stop signal received. Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Forced shutdown error: %v", err)
	}
	stopWorker()

	log.Println("Server stopped gracefully.")
}
