package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tokotunai/backend/internal/cart"
	"tokotunai/backend/internal/config"
	"tokotunai/backend/internal/httpapi"
	"tokotunai/backend/internal/kv"
	"tokotunai/backend/internal/offline"
	"tokotunai/backend/internal/service"
	"tokotunai/backend/internal/store"
	"tokotunai/backend/internal/store/memory"
	pgstore "tokotunai/backend/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	// The probe tells the connectivity signal whether the remote store is
	// reachable. The in-memory repository is always "online".
	probe := func(context.Context) error { return nil }

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres unavailable (%v) and DATABASE_URL is set; refusing to start with in-memory fallback", err)
		}
		repo = pg
		probe = pg.Ping
		closers = append(closers, pg.Close)
		log.Println("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		log.Println("repository: in-memory")
	}

	var slots kv.Store = kv.NewMemory()
	if cfg.RedisAddr != "" {
		redisSlots := kv.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisSlots.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), using in-memory slots", err)
		} else {
			slots = redisSlots
			closers = append(closers, redisSlots.Close)
			log.Println("local slots: redis")
		}
	} else {
		log.Println("local slots: in-memory")
	}

	carts := cart.NewManager(slots)
	queue := offline.NewQueue(slots)
	signalConn := offline.NewSignal(probe)

	svc := service.New(repo, carts, queue, signalConn, cfg.SalesChartDays)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin)

	runCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	syncInterval := time.Duration(cfg.SyncIntervalSeconds) * time.Second
	go signalConn.Watch(runCtx, syncInterval)
	go drainLoop(runCtx, svc, syncInterval)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("POS backend listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	stopBackground()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

// drainLoop pushes queued offline sales to the remote store whenever
// connectivity is up and something is waiting.
func drainLoop(ctx context.Context, svc *service.Service, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !svc.Online() {
			continue
		}
		pending, err := svc.PendingOfflineCount(ctx)
		if err != nil || pending == 0 {
			continue
		}

		result, err := svc.SyncOfflineQueue(ctx)
		if err != nil {
			log.Printf("offline sync error: %v", err)
			continue
		}
		log.Printf("offline sync: %d synced, %d still pending", result.Synced, result.Failed)
	}
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	return nil
}
