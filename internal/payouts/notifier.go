package payouts

import (
	"payoutsync/pkg/config"
)

// PayoutEventQueue is the durable queue payout sync events are published to
const PayoutEventQueue = "payout_events"

// QueueNotifier publishes payout events to RabbitMQ for downstream
// notification consumers (Slack/email workers).
type QueueNotifier struct {
	publisher *config.Publisher
}

// NewQueueNotifier creates a notifier on an open RabbitMQ connection
func NewQueueNotifier() (*QueueNotifier, error) {
	pub, err := config.NewPublisher()
	if err != nil {
		return nil, err
	}
	return &QueueNotifier{publisher: pub}, nil
}

// PublishPayoutEvent enqueues one sync event
func (n *QueueNotifier) PublishPayoutEvent(event PayoutEvent) error {
	return n.publisher.Publish(PayoutEventQueue, event)
}

// Close releases the underlying channel
func (n *QueueNotifier) Close() error {
	return n.publisher.Close()
}
