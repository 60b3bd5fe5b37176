package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExpirySweeper periodically expires batches past their expiry date at the
// configured outlets
type ExpirySweeper struct {
	ledger   *BatchLedger
	outlets  []uuid.UUID
	interval time.Duration
	logger   *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewExpirySweeper creates a new ExpirySweeper. A zero interval disables Start.
func NewExpirySweeper(l *BatchLedger, outlets []uuid.UUID, interval time.Duration, logger *zap.Logger) *ExpirySweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpirySweeper{
		ledger:   l,
		outlets:  outlets,
		interval: interval,
		logger:   logger,
	}
}

// Start starts the background sweep loop
func (s *ExpirySweeper) Start(ctx context.Context) {
	if s.interval <= 0 || len(s.outlets) == 0 {
		s.logger.Info("expiry sweeper disabled")
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("expiry sweeper started",
		zap.Duration("interval", s.interval),
		zap.Int("outlets", len(s.outlets)),
	)
}

// Stop gracefully stops the sweeper
func (s *ExpirySweeper) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("expiry sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ExpirySweeper) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce sweeps every configured outlet once
func (s *ExpirySweeper) RunOnce(ctx context.Context) SweepStats {
	asOf := s.ledger.clock()
	stats := SweepStats{Outlets: len(s.outlets), ProcessedAt: asOf}

	for _, outletID := range s.outlets {
		expired, err := s.ledger.ExpireDueBatches(ctx, outletID, asOf)
		stats.Expired += expired
		if err != nil {
			stats.Failed++
			s.logger.Error("Failed to expire batches",
				zap.String("outlet_id", outletID.String()),
				zap.Error(err),
			)
		}
	}

	if stats.Expired > 0 || stats.Failed > 0 {
		s.logger.Info("Completed expiry sweep",
			zap.Int("expired", stats.Expired),
			zap.Int("failed_outlets", stats.Failed),
		)
	}
	return stats
}
