package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"later/internal/services"
)

// PatternMaintenance runs the nightly pattern housekeeping: patterns unused
// for 90 days are deactivated (never deleted).
type PatternMaintenance struct {
	patterns  *services.PatternService
	scheduler gocron.Scheduler
}

// NewPatternMaintenance creates the maintenance job runner.
func NewPatternMaintenance(patterns *services.PatternService) (*PatternMaintenance, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &PatternMaintenance{patterns: patterns, scheduler: scheduler}, nil
}

// Start schedules the nightly run at 03:00 server time and begins the
// scheduler.
func (m *PatternMaintenance) Start() error {
	_, err := m.scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(3, 0, 0))),
		gocron.NewTask(m.run),
		gocron.WithName("pattern-stale-deactivation"),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule pattern maintenance: %w", err)
	}

	m.scheduler.Start()
	log.Println("✅ [JOBS] Pattern maintenance scheduled (daily 03:00)")
	return nil
}

func (m *PatternMaintenance) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	count, err := m.patterns.DeactivateStalePatterns(ctx)
	if err != nil {
		log.Printf("❌ [JOBS] Pattern maintenance failed: %v", err)
		return
	}
	if count > 0 {
		log.Printf("🧹 [JOBS] Deactivated %d stale patterns", count)
	}
}

// Stop shuts the scheduler down, waiting for a running job to finish.
func (m *PatternMaintenance) Stop() error {
	return m.scheduler.Shutdown()
}
