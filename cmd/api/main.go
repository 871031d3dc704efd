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

	"libraryapi/internal/auth"
	"libraryapi/internal/book"
	"libraryapi/internal/config"
	"libraryapi/internal/httpx"
	"libraryapi/internal/loan"
	"libraryapi/internal/platform/lock"
	"libraryapi/internal/platform/postgres"
	"libraryapi/internal/profile"

	"github.com/redis/go-redis/v9"
)

const blacklistPurgeInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := postgres.Open(ctx, cfg.DBDSN, cfg.DBTimeout)
	if err != nil {
		log.Fatalf("cannot open database (%s): %v", postgres.RedactDSN(cfg.DBDSN), err)
	}
	defer dbPool.Close()
	log.Println("database connection OK")

	bookRepository := book.NewPostgresRepo(dbPool, cfg.DBTimeout)
	loanRepository := loan.NewPostgresRepo(dbPool, cfg.DBTimeout)
	profileRepository := profile.NewPostgresRepo(dbPool, cfg.DBTimeout)
	blacklist := auth.NewPostgresBlacklist(dbPool, cfg.DBTimeout)

	bookService := book.NewService(bookRepository)
	loanService := loan.NewService(loanRepository, loan.WithLoanPeriod(cfg.LoanPeriod))
	profileService := profile.NewService(profileRepository)
	authService := auth.NewService(cfg.JWTSecret, cfg.AccessTokenTTL, profileService, blacklist)

	router := newRouter(cfg.JWTSecret, blacklist, dbPool, handlers{
		auth:    auth.NewHTTPHandler(authService),
		books:   book.NewHTTPHandler(bookService),
		loans:   loan.NewHTTPHandler(loanService),
		profile: profile.NewHTTPHandler(profileService),
	})

	rateLimit := httpx.NewRateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer rateLimit.Close()

	handler := httpx.Chain(router,
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware,
		httpx.RecoveryMiddleware,
		httpx.CORSMiddleware(cfg.AllowedOrigins()),
		httpx.SecurityHeadersMiddleware(cfg.EnableHSTS),
		httpx.RequestSizeLimitMiddleware(cfg.MaxBodyBytes),
		rateLimit.Middleware,
	)

	var locker loan.Locker
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		locker = lock.NewRedisLocker(redisClient)
		log.Printf("sweeper lock enabled: redis=%s", cfg.RedisAddr)
	}
	go loan.NewSweeper(loanService, cfg.SweepInterval, locker).Run(ctx)
	go purgeRevokedTokens(ctx, authService)

	httpServer := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}()

	log.Printf("Starting server on %s", cfg.AppAddr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
	log.Println("server stopped")
}

func purgeRevokedTokens(ctx context.Context, svc *auth.Service) {
	ticker := time.NewTicker(blacklistPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PurgeRevoked(ctx)
			if err != nil {
				log.Printf("purge revoked tokens failed: error=%v", err)
				continue
			}
			log.Printf("purge revoked tokens removed=%d", n)
		}
	}
}
