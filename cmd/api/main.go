package main

import (
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"payoutsync/internal/handlers"
	"payoutsync/internal/payouts"
	"payoutsync/internal/routes"
	"payoutsync/pkg/config"
	"payoutsync/pkg/explorer"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	// Initialize database
	config.InitDB()

	// Initialize RabbitMQ (optional, payout events are skipped without it)
	var notifier payouts.Notifier
	if os.Getenv("RABBITMQ_HOST") != "" {
		config.InitRabbitMQ()
		defer func() {
			if config.RabbitMQ != nil {
				config.RabbitMQ.Close()
			}
		}()

		qn, err := payouts.NewQueueNotifier()
		if err != nil {
			log.Warnf("Failed to create payout event publisher: %v", err)
		} else {
			notifier = qn
			defer qn.Close()
		}
	} else {
		log.Info("RabbitMQ not configured, payout events disabled")
	}

	// The API shares one breaker and tracker with manual sync passes so the
	// status endpoint reflects real provider health
	usageLimit, _ := strconv.Atoi(os.Getenv("USAGE_DAILY_LIMIT"))
	tracker := explorer.NewUsageTracker(usageLimit, os.Getenv("USAGE_ALERT_WEBHOOK"))
	breaker := explorer.NewCircuitBreaker(5, 60*time.Second)

	apiKey := os.Getenv("EXPLORER_API_KEY")
	client := explorer.NewClient(os.Getenv("EXPLORER_API_URL"), apiKey, tracker, breaker)
	fetcher := explorer.NewHistoryFetcher(client)

	store := payouts.NewGormStore(config.DB)
	orchestrator := payouts.NewOrchestrator(store, fetcher, notifier, apiKey)

	handlers.Init(tracker, breaker, store, orchestrator)

	r := routes.SetupRouter()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
