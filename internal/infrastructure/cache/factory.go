package cache

import (
	"context"
	"errors"
	"fmt"

	appfinance "github.com/academy/backend/internal/application/finance"
	"github.com/academy/backend/internal/domain/shared"
	"github.com/academy/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Components is what the factory hands to the composition root
type Components struct {
	Idempotency shared.IdempotencyStore
	Notifier    appfinance.ChangeNotifier
	client      *redis.Client
}

// UsesRedis reports whether the components are backed by Redis
func (c *Components) UsesRedis() bool {
	return c.client != nil
}

// Close releases the idempotency store and the Redis connection
func (c *Components) Close() error {
	var errs []error
	if c.Idempotency != nil {
		errs = append(errs, c.Idempotency.Close())
	}
	if c.client != nil {
		errs = append(errs, c.client.Close())
	}
	return errors.Join(errs...)
}

// Factory builds the Redis-backed components, or their in-memory fallbacks
// when Redis is disabled or unreachable
type Factory struct {
	redisConfig           config.RedisConfig
	financeConfig         config.FinanceConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory and the components it builds
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to
// in-memory components. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(redisCfg config.RedisConfig, financeCfg config.FinanceConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           redisCfg,
		financeConfig:         financeCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create builds the components
func (f *Factory) Create(ctx context.Context) (*Components, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory idempotency store and log notifier")
		return f.inMemory(), nil
	}

	client, err := NewRedisClient(ctx, f.redisConfig)
	if err != nil {
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("redis required but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory idempotency store. "+
			"Idempotency keys will not be shared between instances.",
			zap.Error(err))
		return f.inMemory(), nil
	}

	f.logger.Info("Using Redis for idempotency and change notifications",
		zap.String("addr", f.redisConfig.Addr()),
		zap.String("channel", f.financeConfig.ChangeChannel))

	return &Components{
		Idempotency: NewRedisIdempotencyStore(client, ""),
		Notifier: NewRedisChangeNotifier(client,
			WithChannel(f.financeConfig.ChangeChannel),
			WithNotifierLogger(f.logger.Named("change_notifier"))),
		client: client,
	}, nil
}

func (f *Factory) inMemory() *Components {
	return &Components{
		Idempotency: NewInMemoryIdempotencyStore(),
		Notifier:    appfinance.NewLogChangeNotifier(f.logger),
	}
}
