package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/taskearn/paycore/internal/domain"
	"github.com/taskearn/paycore/internal/infrastructure/metrics"
)

const statusChannelPrefix = "status:"

// Notifier implements usecase.Notifier over Redis pub/sub. Each account
// has its own channel; subscribers with nothing listening simply drop
// the message, which is fine because polling remains the source of
// truth.
type Notifier struct {
	client  *redis.Client
	metrics *metrics.Metrics
}

// NewNotifier creates a new Notifier.
func NewNotifier(client *redis.Client, m *metrics.Metrics) *Notifier {
	return &Notifier{
		client:  client,
		metrics: m,
	}
}

// Publish sends a status event to the account's channel.
func (n *Notifier) Publish(ctx context.Context, event domain.StatusEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := n.client.Publish(ctx, statusChannelPrefix+event.AccountID, payload).Err(); err != nil {
		return err
	}

	if n.metrics != nil {
		n.metrics.EventsPublished.WithLabelValues(string(event.Subject)).Inc()
	}

	return nil
}

// Subscribe opens a subscription to one account's status channel. The
// caller owns the returned PubSub and must Close it.
func (n *Notifier) Subscribe(ctx context.Context, accountID string) *redis.PubSub {
	return n.client.Subscribe(ctx, statusChannelPrefix+accountID)
}
