// Package jobs holds the background schedules.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const sweepTimeout = 2 * time.Minute

// OverdueMarker is satisfied by *database.BillStore.
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}

// OverdueSweeper flags pending bills past their due date.
type OverdueSweeper struct {
	bills  OverdueMarker
	logger *zap.Logger
	now    func() time.Time
}

func NewOverdueSweeper(bills OverdueMarker, logger *zap.Logger) *OverdueSweeper {
	return &OverdueSweeper{bills: bills, logger: logger, now: time.Now}
}

// RunOnce performs one sweep.
func (s *OverdueSweeper) RunOnce(ctx context.Context) (int64, error) {
	n, err := s.bills.MarkOverdue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("marked bills overdue", zap.Int64("count", n))
	}
	return n, nil
}

// Start schedules the sweep and starts the cron runner. Overlapping runs are skipped.
// The caller stops the returned cron on shutdown.
func (s *OverdueSweeper) Start(schedule string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))

	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("overdue sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule overdue sweep %q: %w", schedule, err)
	}

	s.logger.Info("overdue sweeper started", zap.String("schedule", schedule))
	c.Start()
	return c, nil
}
