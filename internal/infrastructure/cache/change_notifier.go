package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	appfinance "github.com/academy/backend/internal/application/finance"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChangeChannel is the Pub/Sub channel change messages go to
const DefaultChangeChannel = "academy:changes"

// ChangeMessage is the JSON payload published for every change
type ChangeMessage struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	Tag       string    `json:"tag"`
	Timestamp int64     `json:"timestamp"`
}

type publishClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisChangeNotifier publishes change notifications on a Redis channel so
// caches and open views in other processes can refresh
type RedisChangeNotifier struct {
	client  publishClient
	channel string
	now     func() time.Time
	logger  *zap.Logger
}

// RedisChangeNotifierOption is a functional option for configuring the notifier
type RedisChangeNotifierOption func(*RedisChangeNotifier)

// WithChannel sets the Pub/Sub channel name
func WithChannel(channel string) RedisChangeNotifierOption {
	return func(n *RedisChangeNotifier) {
		if channel != "" {
			n.channel = channel
		}
	}
}

// WithNotifierLogger sets the logger
func WithNotifierLogger(logger *zap.Logger) RedisChangeNotifierOption {
	return func(n *RedisChangeNotifier) {
		n.logger = logger
	}
}

// NewRedisChangeNotifier creates a notifier on a shared client
func NewRedisChangeNotifier(client *redis.Client, opts ...RedisChangeNotifierOption) *RedisChangeNotifier {
	return newRedisChangeNotifier(client, opts...)
}

func newRedisChangeNotifier(client publishClient, opts ...RedisChangeNotifierOption) *RedisChangeNotifier {
	n := &RedisChangeNotifier{
		client:  client,
		channel: DefaultChangeChannel,
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NotifyChanged implements ChangeNotifier
func (n *RedisChangeNotifier) NotifyChanged(ctx context.Context, tenantID uuid.UUID, tag string) error {
	data, err := json.Marshal(ChangeMessage{
		TenantID:  tenantID,
		Tag:       tag,
		Timestamp: n.now().UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal change message: %w", err)
	}

	if err := n.client.Publish(ctx, n.channel, data).Err(); err != nil {
		n.logger.Error("Failed to publish change message",
			zap.String("channel", n.channel),
			zap.String("tag", tag),
			zap.Error(err))
		return fmt.Errorf("failed to publish change message: %w", err)
	}

	n.logger.Debug("Published change message",
		zap.String("channel", n.channel),
		zap.String("tenant_id", tenantID.String()),
		zap.String("tag", tag))
	return nil
}

var _ appfinance.ChangeNotifier = (*RedisChangeNotifier)(nil)
