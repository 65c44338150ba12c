package quota

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/agentgrid/governor/internal/port/outbound"
)

// Snapshotter periodically dumps day counters to an external store so usage
// survives a restart. Live gauges and window logs are process-local and are
// deliberately not persisted.
type Snapshotter struct {
	manager  *Manager
	store    outbound.UsageSnapshotPort
	interval time.Duration
	logger   *zap.Logger
	stop     chan struct{}
}

// NewSnapshotter creates a new usage snapshotter.
func NewSnapshotter(manager *Manager, store outbound.UsageSnapshotPort, interval time.Duration, logger *zap.Logger) *Snapshotter {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Snapshotter{
		manager:  manager,
		store:    store,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start starts the background snapshot loop.
func (s *Snapshotter) Start() {
	go s.loop()
}

// Stop stops the loop and writes a final snapshot.
func (s *Snapshotter) Stop() {
	close(s.stop)
	s.saveAll()
}

func (s *Snapshotter) loop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.saveAll()
		}
	}
}

func (s *Snapshotter) saveAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, u := range s.manager.Usages() {
		if err := s.store.Save(ctx, u); err != nil {
			s.logger.Warn("usage snapshot save failed",
				zap.String("tenant_id", u.TenantID),
				zap.Error(err),
			)
		}
	}
}
