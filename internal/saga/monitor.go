package saga

import (
	"context"
	"time"

	"github.com/eventium/eventium/internal/repository"
	"github.com/eventium/eventium/pkg/logger"
	"github.com/eventium/eventium/pkg/metrics"
)

// Monitor surfaces stalled sagas. A saga whose confirmation never arrives
// stays in an intermediate state forever; there is no automatic remediation,
// so the age of the oldest unfinished instance is exported for alerting.
type Monitor struct {
	repo     repository.SagaRepository
	interval time.Duration
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewMonitor(repo repository.SagaRepository, interval time.Duration, logger *logger.Logger, metrics *metrics.Metrics) *Monitor {
	return &Monitor{
		repo:     repo,
		interval: interval,
		logger:   logger.WithFields(map[string]interface{}{"component": "saga-monitor"}),
		metrics:  metrics,
	}
}

func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			age, err := m.repo.OldestUnfinishedAge(ctx)
			if err != nil {
				m.logger.Error(err, "failed to measure saga backlog age")
				continue
			}
			m.metrics.SagaOldestAge.Set(age.Seconds())
		}
	}
}
