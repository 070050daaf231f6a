// Package scheduler runs periodic background jobs.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	appfinance "github.com/academy/backend/internal/application/finance"
	"github.com/academy/backend/internal/domain/shared"
	"github.com/academy/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TenantProvider lists the tenants the sweep has work for
type TenantProvider interface {
	TenantsWithOverdueBills(ctx context.Context) ([]uuid.UUID, error)
}

// OverdueSweeper moves one tenant's past-due PENDING bills to OVERDUE
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context, tc shared.TenantContext) (*appfinance.SweepResult, error)
}

// OverdueSweepConfig holds configuration for the overdue sweep trigger
type OverdueSweepConfig struct {
	// Enabled determines if the trigger is active
	Enabled bool

	// Interval between two sweeps
	Interval time.Duration

	// Timeout bounds the sweep of a single tenant
	Timeout time.Duration

	// MaxConcurrentTenants bounds how many tenants are swept in parallel
	MaxConcurrentTenants int

	// RunOnStart sweeps immediately instead of waiting for the first tick
	RunOnStart bool
}

// DefaultOverdueSweepConfig returns default configuration
func DefaultOverdueSweepConfig() OverdueSweepConfig {
	return OverdueSweepConfig{
		Enabled:              true,
		Interval:             time.Hour,
		Timeout:              2 * time.Minute,
		MaxConcurrentTenants: 4,
		RunOnStart:           true,
	}
}

// Validate checks the configuration
func (c OverdueSweepConfig) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if c.MaxConcurrentTenants <= 0 {
		return fmt.Errorf("%w: max concurrent tenants must be positive", ErrInvalidConfig)
	}
	return nil
}

// RunSummary describes one sweep over all tenants
type RunSummary struct {
	Tenants           int
	FailedTenants     int
	TransitionedCount int
	FailedBills       int
	Duration          time.Duration
}

// OverdueSweepTrigger periodically runs the overdue sweep for every tenant
// with PENDING bills due before today. A failing tenant is logged and does
// not stop the others.
type OverdueSweepTrigger struct {
	config  OverdueSweepConfig
	tenants TenantProvider
	sweeper OverdueSweeper
	logger  *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	sweeping  atomic.Bool
}

// NewOverdueSweepTrigger creates a new trigger
func NewOverdueSweepTrigger(
	config OverdueSweepConfig,
	tenants TenantProvider,
	sweeper OverdueSweeper,
	log *zap.Logger,
) (*OverdueSweepTrigger, error) {
	if config.Enabled {
		if err := config.Validate(); err != nil {
			return nil, err
		}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OverdueSweepTrigger{
		config:  config,
		tenants: tenants,
		sweeper: sweeper,
		logger:  log.Named("overdue_sweep"),
	}, nil
}

// Start starts the trigger loop. Calling Start on a running trigger is a no-op.
func (t *OverdueSweepTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.isRunning {
		return nil
	}
	if !t.config.Enabled {
		t.logger.Info("Overdue sweep scheduler is disabled")
		return nil
	}
	t.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Overdue sweep scheduler started",
		zap.Duration("interval", t.config.Interval),
		zap.Duration("tenant_timeout", t.config.Timeout),
		zap.Int("max_concurrent_tenants", t.config.MaxConcurrentTenants),
	)
	return nil
}

// Stop cancels the loop and waits for an in-flight sweep to finish or for
// ctx to expire. Calling Stop on a stopped trigger is a no-op.
func (t *OverdueSweepTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	cancel := t.cancel
	t.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Overdue sweep scheduler stopped")
		return nil
	case <-ctx.Done():
		t.logger.Warn("Overdue sweep scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the loop is active
func (t *OverdueSweepTrigger) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.isRunning
}

func (t *OverdueSweepTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	if t.config.RunOnStart {
		t.runAndLog(ctx)
	}

	ticker := time.NewTicker(t.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.runAndLog(ctx)
		}
	}
}

func (t *OverdueSweepTrigger) runAndLog(ctx context.Context) {
	if _, err := t.RunOnce(ctx); err != nil && ctx.Err() == nil {
		t.logger.Error("Overdue sweep run failed", zap.Error(err))
	}
}

// RunOnce sweeps every tenant the provider returns. Overlapping runs are
// rejected with ErrSweepInProgress.
func (t *OverdueSweepTrigger) RunOnce(ctx context.Context) (RunSummary, error) {
	if !t.sweeping.CompareAndSwap(false, true) {
		return RunSummary{}, ErrSweepInProgress
	}
	defer t.sweeping.Store(false)

	started := time.Now()
	tenantIDs, err := t.tenants.TenantsWithOverdueBills(ctx)
	if err != nil {
		return RunSummary{}, fmt.Errorf("failed to list tenants for overdue sweep: %w", err)
	}

	var (
		mu      sync.Mutex
		summary = RunSummary{Tenants: len(tenantIDs)}
		g       errgroup.Group
	)
	g.SetLimit(t.config.MaxConcurrentTenants)

	for _, tenantID := range tenantIDs {
		g.Go(func() error {
			result, err := t.sweepTenant(ctx, tenantID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.FailedTenants++
			}
			if result != nil {
				summary.TransitionedCount += result.TransitionedCount
				summary.FailedBills += result.FailedCount
			}
			return nil
		})
	}
	_ = g.Wait()

	summary.Duration = time.Since(started)
	if summary.Tenants > 0 {
		t.logger.Info("Overdue sweep run completed",
			zap.Int("tenants", summary.Tenants),
			zap.Int("failed_tenants", summary.FailedTenants),
			zap.Int("transitioned", summary.TransitionedCount),
			zap.Int("failed_bills", summary.FailedBills),
			zap.Duration("duration", summary.Duration),
		)
	}
	return summary, nil
}

func (t *OverdueSweepTrigger) sweepTenant(ctx context.Context, tenantID uuid.UUID) (*appfinance.SweepResult, error) {
	ctx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	// scheduler runs act as the system user of the tenant
	tc := shared.NewTenantContext(tenantID, uuid.Nil)
	ctx = logger.WithTenant(ctx, tenantID, uuid.Nil)

	result, err := t.sweeper.SweepOverdue(ctx, tc)
	if err != nil {
		logger.Enrich(ctx, t.logger).Error("Overdue sweep failed for tenant", zap.Error(err))
	}
	return result, err
}
