package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sagehouse/reviews-bot/internal/alerts"
	"github.com/sagehouse/reviews-bot/internal/config"
	"github.com/sagehouse/reviews-bot/internal/notifications"
	syncsvc "github.com/sagehouse/reviews-bot/internal/sync"
	"github.com/sirupsen/logrus"
)

// Service runs the recurring pipeline jobs: periodic sync, the daily rating
// drop check, and the weekly digest. Each job is single flight; a tick that
// arrives while the previous run is still going is skipped, not queued.
type Service struct {
	config *config.Config
	sync   *syncsvc.Service
	alerts *alerts.Service
	digest *notifications.DigestService

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID
	running bool
}

// JobStatus describes one scheduled job for status reporting.
type JobStatus struct {
	Name    string    `json:"name"`
	NextRun time.Time `json:"next_run"`
}

// Status is the scheduler's externally visible state.
type Status struct {
	Running bool        `json:"running"`
	Jobs    []JobStatus `json:"jobs,omitempty"`
}

// NewService creates a scheduler wired to the pipeline services.
func NewService(cfg *config.Config, syncService *syncsvc.Service, alertService *alerts.Service, digestService *notifications.DigestService) *Service {
	return &Service{
		config: cfg,
		sync:   syncService,
		alerts: alertService,
		digest: digestService,
	}
}

// Start registers the jobs and begins ticking. Calling Start on a running
// scheduler is a no-op.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		logrus.Debug("Scheduler already running")
		return nil
	}

	logger := cron.DefaultLogger
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(logger),
		cron.Recover(logger),
	))
	entries := make(map[string]cron.EntryID)

	syncSpec := fmt.Sprintf("@every %dh", s.config.SyncIntervalHours)
	id, err := c.AddFunc(syncSpec, s.runSync)
	if err != nil {
		return fmt.Errorf("failed to schedule sync job: %w", err)
	}
	entries["sync"] = id

	ratingSpec := fmt.Sprintf("0 %d * * *", s.config.RatingCheckHour)
	id, err = c.AddFunc(ratingSpec, s.runRatingCheck)
	if err != nil {
		return fmt.Errorf("failed to schedule rating check job: %w", err)
	}
	entries["rating_check"] = id

	digestSpec := fmt.Sprintf("0 %d * * %s", s.config.DigestHour, strings.ToUpper(s.config.DigestWeekday))
	id, err = c.AddFunc(digestSpec, s.runDigest)
	if err != nil {
		return fmt.Errorf("failed to schedule digest job: %w", err)
	}
	entries["weekly_digest"] = id

	c.Start()
	s.cron = c
	s.entries = entries
	s.running = true

	logrus.Infof("Scheduler started: sync every %dh, rating check daily at %02d:00, digest %s at %02d:00",
		s.config.SyncIntervalHours, s.config.RatingCheckHour, s.config.DigestWeekday, s.config.DigestHour)
	return nil
}

// Stop halts the scheduler and waits for any in-flight job to finish.
// Calling Stop on a stopped scheduler is a no-op.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.cron = nil
	s.entries = nil
	s.running = false
	logrus.Info("Scheduler stopped")
}

// Status reports whether the scheduler is running and when each job fires
// next.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{Running: s.running}
	if !s.running {
		return status
	}

	for name, id := range s.entries {
		entry := s.cron.Entry(id)
		status.Jobs = append(status.Jobs, JobStatus{Name: name, NextRun: entry.Next})
	}
	return status
}

func (s *Service) runSync() {
	logrus.Info("Starting scheduled sync run")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if _, err := s.sync.SyncAll(ctx); err != nil {
		logrus.Errorf("Scheduled sync run failed: %v", err)
	}
}

func (s *Service) runRatingCheck() {
	logrus.Info("Starting daily rating drop check")
	if err := s.alerts.CheckAllRatingDrops(alerts.DefaultRatingDropThreshold); err != nil {
		logrus.Errorf("Rating drop check failed: %v", err)
	}
}

func (s *Service) runDigest() {
	logrus.Info("Generating weekly digest")
	if _, err := s.digest.Send(); err != nil {
		logrus.Errorf("Weekly digest failed: %v", err)
	}
}
