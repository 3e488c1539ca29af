package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zsiskos/roadstartire/internal/auth"
	"github.com/zsiskos/roadstartire/internal/cache"
	"github.com/zsiskos/roadstartire/internal/config"
	"github.com/zsiskos/roadstartire/internal/feed"
	h "github.com/zsiskos/roadstartire/internal/http"
	"github.com/zsiskos/roadstartire/internal/notifylog"
	"github.com/zsiskos/roadstartire/internal/publisher"
	"github.com/zsiskos/roadstartire/internal/repository"
	"github.com/zsiskos/roadstartire/internal/service"
)

func main() {
	log.Println("storefront starting...")
	var wg sync.WaitGroup
	cfg := config.Load()
	ctx := context.Background()

	// Database setup
	repo, err := repository.NewRepository(&cfg.DB)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer repo.Close()

	if err := repo.RunMigrations(&cfg.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Redis connection failed:", err)
	}
	log.Printf("Redis ping succeeded")

	// The delivery log belongs to the notifier; staff can still work without it.
	var deliveries h.DeliveryLister
	mongoCtx, mongoCancel := context.WithTimeout(ctx, 10*time.Second)
	mongoDB, err := notifylog.ConnectMongoDB(mongoCtx, cfg.MongoURI, cfg.MongoDB)
	mongoCancel()
	if err != nil {
		log.Printf("delivery log unavailable: %v", err)
	} else {
		deliveries = notifylog.NewMongoLog(mongoDB)
		defer mongoDB.Client().Disconnect(ctx)
	}

	productCache := cache.NewRedisProductCache(redisClient)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)

	users := service.NewUserService(repo, tokens)
	catalog := service.NewCatalogService(repo, productCache)
	stock := service.NewStockService(repo, productCache)
	carts := service.NewCartService(repo, cache.NewRedisCache(redisClient), productCache)

	hub := feed.NewHub()

	// Start outbox poller
	poller := publisher.NewOutboxPoller(repo, hub, cfg.KafkaTopic, cfg.KafkaBrokers...)
	poller.SetInterval(cfg.PollInterval)
	pollerCtx, pollerCancel := context.WithCancel(ctx)
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Run(pollerCtx)
	}()

	router := h.NewRouter(h.RouterConfig{
		Users:          users,
		Catalog:        catalog,
		Stock:          stock,
		Carts:          carts,
		Deliveries:     deliveries,
		Feed:           hub,
		Tokens:         tokens,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Storefront listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()

	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}

	pollerCancel()
	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		log.Println("Outbox poller stopped cleanly")
	case <-shutdownCtx.Done():
		log.Println("Outbox poller didn't stop in time")
	}

	if err := poller.Close(); err != nil {
		log.Printf("error closing kafka writer: %v", err)
	}
	log.Println("server exited")
}
