package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/threadcast/threadcast/internal/service"
)

// Scheduler runs the engagement sync on a fixed interval. A zero interval
// disables it; deployments behind an external cron hit the HTTP endpoint
// instead.
type Scheduler struct {
	sync     *service.SyncService
	interval time.Duration
	logger   *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func New(sync *service.SyncService, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{sync: sync, interval: interval, logger: logger}
}

// Start launches the sync loop. No-op when the interval is zero.
func (s *Scheduler) Start() {
	if s.interval <= 0 {
		s.logger.Info("engagement sync scheduler disabled")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx)
	s.logger.Info("engagement sync scheduler started", zap.Duration("interval", s.interval))
}

// Stop cancels the loop and waits for an in-flight sync to finish.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			summary, err := s.sync.SyncAllAccounts(ctx)
			if err != nil {
				s.logger.Error("scheduled engagement sync failed", zap.Error(err))
				continue
			}
			s.logger.Info("scheduled engagement sync finished",
				zap.Int("accounts", summary.Accounts),
				zap.Int("posts_synced", summary.PostsSynced),
				zap.Int("failures", len(summary.Failures)),
			)
		}
	}
}
