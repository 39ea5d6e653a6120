package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"PatternRadar/internal/scan"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the periodic watchlist scan.
type Scheduler struct {
	Cron     *cron.Cron
	Scanner  *scan.Scanner
	Universe []string
	Ctx      context.Context
}

// NewScheduler creates a Scheduler for the given universe.
func NewScheduler(ctx context.Context, sc *scan.Scanner, universe []string) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Scanner:  sc,
		Universe: universe,
		Ctx:      ctx,
	}
}

// Register adds the scan task under the given cron expression.
func (s *Scheduler) Register(scanCron string) error {
	if _, err := s.Cron.AddFunc(scanCron, s.scanTask); err != nil {
		return fmt.Errorf("register scan task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// RunScanNow executes the scan task immediately (for manual trigger /
// RUN_ON_START).
func (s *Scheduler) RunScanNow() {
	s.scanTask()
}

func (s *Scheduler) scanTask() {
	asOf := time.Now()
	log.Printf("[INFO] scanning %d tickers as of %s", len(s.Universe), asOf.Format("2006-01-02"))

	watchlist, failures, err := s.Scanner.Scan(s.Ctx, s.Universe, asOf)
	if err != nil {
		log.Printf("[ERROR] scan failed: %v", err)
		return
	}

	fmt.Print(scan.FormatWatchlist(asOf, watchlist, failures))
	log.Printf("[INFO] scan complete: %d evaluated, %d skipped", len(watchlist), len(failures))
}
