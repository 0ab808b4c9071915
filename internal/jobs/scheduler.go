// Package jobs runs the dashboard's scheduled maintenance
package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"transporter-dashboard/internal/models"
)

// PrefetchDays is the window the dashboard prefetch warms
const PrefetchDays = 30

const prefetchTimeout = time.Minute

// Sweeper drops expired cache entries
type Sweeper interface {
	Sweep() int
}

// Prefetcher loads the dashboard aggregates for a range into the cache
type Prefetcher interface {
	Overview(ctx context.Context, r models.DateRange) (models.DashboardOverview, error)
}

// Scheduler runs the cache sweep and dashboard prefetch on cron schedules (seconds precision)
type Scheduler struct {
	cronScheduler *cron.Cron
	sweeper       Sweeper
	prefetcher    Prefetcher
	now           func() time.Time
	sweepID       cron.EntryID
	prefetchID    cron.EntryID
}

// NewScheduler creates a scheduler. A nil prefetcher disables the prefetch job.
func NewScheduler(sweeper Sweeper, prefetcher Prefetcher) *Scheduler {
	return &Scheduler{
		cronScheduler: cron.New(cron.WithSeconds()),
		sweeper:       sweeper,
		prefetcher:    prefetcher,
		now:           time.Now,
	}
}

// Start registers both jobs and starts the scheduler
func (s *Scheduler) Start(sweepSchedule, prefetchSchedule string) error {
	var err error
	s.sweepID, err = s.cronScheduler.AddFunc(sweepSchedule, s.RunSweep)
	if err != nil {
		return fmt.Errorf("error scheduling cache sweep: %w", err)
	}

	if s.prefetcher != nil {
		s.prefetchID, err = s.cronScheduler.AddFunc(prefetchSchedule, s.RunPrefetch)
		if err != nil {
			return fmt.Errorf("error scheduling dashboard prefetch: %w", err)
		}
	}

	s.cronScheduler.Start()
	log.Printf("⏰ Scheduler started: cache sweep %q, dashboard prefetch %q", sweepSchedule, prefetchSchedule)
	return nil
}

// Stop terminates the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	if s.cronScheduler != nil {
		<-s.cronScheduler.Stop().Done()
		log.Println("⏰ Scheduler stopped")
	}
}

// RunSweep drops cache entries unused past their GC time
func (s *Scheduler) RunSweep() {
	if n := s.sweeper.Sweep(); n > 0 {
		log.Printf("🧹 Cache sweep removed %d expired entr(ies)", n)
	}
}

// RunPrefetch warms the cache with the last PrefetchDays of dashboard aggregates
func (s *Scheduler) RunPrefetch() {
	ctx, cancel := context.WithTimeout(context.Background(), prefetchTimeout)
	defer cancel()

	r := models.LastDays(s.now(), PrefetchDays)
	overview, err := s.prefetcher.Overview(ctx, r)
	if err != nil {
		log.Printf("⚠️  Dashboard prefetch for %s incomplete: %v (failed sections: %d)", r.Label(), err, len(overview.Errors))
		return
	}
	log.Printf("✅ Dashboard prefetch for %s complete", r.Label())
}
