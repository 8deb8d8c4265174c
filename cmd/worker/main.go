package main

import (
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"payoutsync/internal/payouts"
	"payoutsync/pkg/config"
	"payoutsync/pkg/explorer"
)

const defaultSyncSpec = "0 */10 * * * *"

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	// Initialize database
	config.InitDB()

	// The worker fails fast without a provider key; every sync would fail anyway
	apiKey := os.Getenv("EXPLORER_API_KEY")
	if apiKey == "" {
		log.Fatal("EXPLORER_API_KEY environment variable is not set")
	}

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
	}

	// One breaker and tracker for the whole process: every firm's calls share
	// the provider's health and daily budget
	usageLimit, _ := strconv.Atoi(os.Getenv("USAGE_DAILY_LIMIT"))
	tracker := explorer.NewUsageTracker(usageLimit, os.Getenv("USAGE_ALERT_WEBHOOK"))
	breaker := explorer.NewCircuitBreaker(5, 60*time.Second)

	client := explorer.NewClient(os.Getenv("EXPLORER_API_URL"), apiKey, tracker, breaker)
	fetcher := explorer.NewHistoryFetcher(client)

	store := payouts.NewGormStore(config.DB)
	orchestrator := payouts.NewOrchestrator(store, fetcher, notifier, apiKey)

	log.Info("Payout sync worker initialized")

	runSync := func() {
		started := time.Now()
		summary, err := orchestrator.SyncAllFirms()
		if err != nil {
			log.Errorf("Sync pass aborted: %v", err)
			return
		}
		log.Infof("Sync pass complete: %d firms, %d payouts, %d errors in %v",
			summary.Firms, summary.TotalPayouts, len(summary.Errors), time.Since(started).Round(time.Millisecond))

		usage := tracker.GetUsage()
		log.Infof("Provider usage: %d/%d calls (%.1f%%) on %s",
			usage.Calls, usage.Limit, usage.Percentage, usage.Day)
	}

	spec := os.Getenv("SYNC_CRON")
	if spec == "" {
		spec = defaultSyncSpec
	}

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(spec, runSync); err != nil {
		log.Fatalf("Failed to add sync schedule %q: %v", spec, err)
	}

	log.Infof("Sync schedule started: %s", spec)
	c.Start()

	// Run one pass immediately so a fresh deploy does not wait for the
	// first cron tick
	runSync()

	select {}
}
