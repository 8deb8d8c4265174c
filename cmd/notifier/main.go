package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"payoutsync/internal/payouts"
	"payoutsync/pkg/config"
)

// The notifier worker drains payout sync events and forwards them to a chat
// webhook. Delivery is best effort: a failed post is logged and the message
// requeued by the consumer.
func main() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)

	webhookURL := os.Getenv("NOTIFY_WEBHOOK")
	if webhookURL == "" {
		log.Fatal("NOTIFY_WEBHOOK environment variable is not set")
	}

	config.InitRabbitMQ()
	defer config.RabbitMQ.Close()

	consumer, err := config.NewConsumer(payouts.PayoutEventQueue)
	if err != nil {
		log.Fatal("Failed to create consumer: ", err)
	}
	defer consumer.Close()

	httpClient := &http.Client{Timeout: 5 * time.Second}

	log.Info("Payout notifier started, waiting for events...")

	err = consumer.Consume(func(msg []byte) error {
		var event payouts.PayoutEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			log.Errorf("Failed to unmarshal payout event: %v", err)
			// Drop malformed messages instead of requeueing them forever
			return nil
		}

		text := fmt.Sprintf("%s: %d new payouts totaling $%.2f (latest %s)",
			event.FirmName, event.NewPayouts, event.TotalAmount, event.LatestHash)

		body, err := json.Marshal(map[string]string{"text": text})
		if err != nil {
			return err
		}

		resp, err := httpClient.Post(webhookURL, "application/json", bytes.NewBuffer(body))
		if err != nil {
			return err
		}
		resp.Body.Close()

		log.WithFields(log.Fields{
			"firm_id":     event.FirmID,
			"new_payouts": event.NewPayouts,
			"total":       event.TotalAmount,
		}).Info("Payout notification delivered")
		return nil
	})

	if err != nil {
		log.Fatal("Failed to start consumer: ", err)
	}
}
