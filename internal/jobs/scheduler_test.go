package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"transporter-dashboard/internal/models"
)

type countingSweeper struct{ calls int }

func (s *countingSweeper) Sweep() int {
	s.calls++
	return 2
}

type recordingPrefetcher struct {
	ranges []models.DateRange
	err    error
}

func (p *recordingPrefetcher) Overview(_ context.Context, r models.DateRange) (models.DashboardOverview, error) {
	p.ranges = append(p.ranges, r)
	return models.DashboardOverview{Range: r}, p.err
}

func TestRunPrefetch_LastThirtyDays(t *testing.T) {
	p := &recordingPrefetcher{}
	s := NewScheduler(&countingSweeper{}, p)
	s.now = func() time.Time { return time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC) }

	s.RunPrefetch()
	p.err = errors.New("kpis: backend down")
	s.RunPrefetch()

	if len(p.ranges) != 2 {
		t.Fatalf("expected two prefetches, got %d", len(p.ranges))
	}
	r := p.ranges[0]
	if r.Start() != "2024-03-01" || r.End() != "2024-03-31" || r.Label() != "Last 30 days" {
		t.Errorf("unexpected range %s..%s (%s)", r.Start(), r.End(), r.Label())
	}
}

func TestStart_InvalidSchedule(t *testing.T) {
	s := NewScheduler(&countingSweeper{}, nil)
	if err := s.Start("not a schedule", ""); err == nil {
		t.Fatal("expected invalid schedule error")
	}
}

func TestStart_RunsSweep(t *testing.T) {
	sweeper := &countingSweeper{}
	s := NewScheduler(sweeper, nil)
	if err := s.Start("* * * * * *", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(1500 * time.Millisecond)
	s.Stop()
	if sweeper.calls == 0 {
		t.Error("expected the sweep to run at least once")
	}
}
