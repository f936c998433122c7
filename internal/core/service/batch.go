package service

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/yndnr/wazuh-cli-go/internal/core/domain"
	"github.com/yndnr/wazuh-cli-go/internal/telemetry/metric"
)

// DefaultBatchConcurrency is the number of requests a batch keeps in flight.
const DefaultBatchConcurrency = 8

// BatchConfig bounds a fan-out.
type BatchConfig struct {
	// Concurrency is the maximum number of requests in flight.
	Concurrency int
	// Rate is the maximum number of requests started per second. Zero
	// disables pacing.
	Rate float64
}

// Batch runs one operation over many targets.
type Batch struct {
	cfg     BatchConfig
	metrics *metric.Registry
}

// NewBatch creates a batch runner. metrics may be nil.
func NewBatch(cfg BatchConfig, metrics *metric.Registry) *Batch {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultBatchConcurrency
	}
	return &Batch{cfg: cfg, metrics: metrics}
}

// Run calls fn once per target and collects every outcome in input order.
// A failing target never stops the others. progress, if non-nil, is called
// after each target completes, from the goroutine that ran it.
func (b *Batch) Run(ctx context.Context, op string, targets []string, fn func(context.Context, string) error, progress func(domain.BatchItem)) domain.BatchResult {
	result := domain.BatchResult{Op: op, Items: make([]domain.BatchItem, len(targets))}

	var limiter *rate.Limiter
	if b.cfg.Rate > 0 {
		burst := int(b.cfg.Rate)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(b.cfg.Rate), burst)
	}

	var g errgroup.Group
	g.SetLimit(b.cfg.Concurrency)
	for i, target := range targets {
		g.Go(func() error {
			item := domain.BatchItem{Target: target}
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					item.Err = &domain.Error{Kind: domain.KindCanceled, Op: op, Target: target, Cause: err}
				}
			}
			if item.Err == nil {
				item.Err = fn(ctx, target)
			}

			result.Items[i] = item
			b.metrics.ObserveBatchItem(op, item.Err)
			if progress != nil {
				progress(item)
			}
			return nil
		})
	}
	_ = g.Wait()

	return result
}

// RestartMany restarts each agent in ids.
func (s *Agents) RestartMany(ctx context.Context, b *Batch, ids []string, progress func(domain.BatchItem)) domain.BatchResult {
	return b.Run(ctx, "agent.restart", ids, func(ctx context.Context, id string) error {
		_, err := s.Restart(ctx, id)
		return err
	}, progress)
}

// UpgradeMany upgrades each agent in ids.
func (s *Agents) UpgradeMany(ctx context.Context, b *Batch, ids []string, opts domain.UpgradeOptions, progress func(domain.BatchItem)) domain.BatchResult {
	return b.Run(ctx, "agent.upgrade", ids, func(ctx context.Context, id string) error {
		_, err := s.Upgrade(ctx, id, opts)
		return err
	}, progress)
}

// RemoveMany removes each agent in ids.
func (s *Agents) RemoveMany(ctx context.Context, b *Batch, ids []string, progress func(domain.BatchItem)) domain.BatchResult {
	return b.Run(ctx, "agent.remove", ids, func(ctx context.Context, id string) error {
		_, err := s.Remove(ctx, id)
		return err
	}, progress)
}
