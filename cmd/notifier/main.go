package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/zsiskos/roadstartire/internal/config"
	"github.com/zsiskos/roadstartire/internal/consumer"
	"github.com/zsiskos/roadstartire/internal/mailer"
	"github.com/zsiskos/roadstartire/internal/notifylog"
)

func main() {
	log.Println("notifier starting...")
	var wg sync.WaitGroup
	cfg := config.Load()

	ctx := context.Background()
	mongoDB, err := notifylog.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongoDB.Client().Disconnect(ctx)
	log.Printf("Connected to MongoDB at %s", cfg.MongoURI)

	deliveries := notifylog.NewMongoLog(mongoDB)
	if err := deliveries.CreateIndexes(ctx); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	if len(cfg.StaffEmails) == 0 {
		log.Println("STAFF_EMAILS is empty, staff copies will not be sent")
	}

	mail := mailer.New(cfg.SMTP)
	renderer := consumer.NewRenderer(cfg.ContactPhone, cfg.AdminURL)

	// Start Kafka consumer
	notificationConsumer := consumer.NewNotificationConsumer(
		mail,
		deliveries,
		renderer,
		cfg.StaffEmails,
		cfg.KafkaTopic,
		cfg.KafkaBrokers...,
	)
	consumerCtx, consumerCancel := context.WithCancel(ctx)
	wg.Add(1)
	go func() {
		defer wg.Done()
		notificationConsumer.Run(consumerCtx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down notifier...")
	consumerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()

	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		log.Println("Consumer stopped cleanly")
	case <-shutdownCtx.Done():
		log.Println("Consumer didn't stop in time")
	}

	notificationConsumer.Close()
	log.Println("Notifier stopped")
}
