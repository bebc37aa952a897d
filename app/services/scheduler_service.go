package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// LogCleaner deletes log files past their retention
type LogCleaner interface {
	CleanOldLogs(retentionDays int) (int, error)
}

// SchedulerService runs the daily maintenance jobs
type SchedulerService struct {
	cleaner       LogCleaner
	retentionDays int
	at            string
	scheduler     *gocron.Scheduler
	log           *zap.Logger
	mu            sync.Mutex
	running       bool
}

// NewSchedulerService creates a scheduler that cleans logs every day at the given
// "HH:MM" local time
func NewSchedulerService(cleaner LogCleaner, retentionDays int, at string, log *zap.Logger) *SchedulerService {
	if log == nil {
		log = zap.NewNop()
	}
	if at == "" {
		at = "04:00"
	}
	return &SchedulerService{
		cleaner:       cleaner,
		retentionDays: retentionDays,
		at:            at,
		scheduler:     gocron.NewScheduler(time.Local),
		log:           log,
	}
}

// Start schedules the jobs and runs them in the background
func (s *SchedulerService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}
	if s.retentionDays <= 0 {
		s.log.Info("Log retention disabled, scheduler not started")
		return nil
	}

	if _, err := s.scheduler.Every(1).Day().At(s.at).Do(s.CleanLogs); err != nil {
		return fmt.Errorf("failed to schedule log cleanup: %w", err)
	}
	s.scheduler.StartAsync()
	s.running = true

	s.log.Info("Scheduler started", zap.String("log_cleanup_at", s.at), zap.Int("retention_days", s.retentionDays))
	return nil
}

// Stop halts the scheduler
func (s *SchedulerService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.scheduler.Stop()
	s.scheduler.Clear()
	s.running = false
	s.log.Info("Scheduler stopped")
}

// CleanLogs runs the log cleanup once
func (s *SchedulerService) CleanLogs() {
	removed, err := s.cleaner.CleanOldLogs(s.retentionDays)
	if err != nil {
		s.log.Warn("Log cleanup failed", zap.Error(err))
		return
	}
	s.log.Info("Log cleanup finished", zap.Int("removed", removed))
}

// GetStatus returns the scheduler status
func (s *SchedulerService) GetStatus() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := map[string]interface{}{
		"running":        s.running,
		"retention_days": s.retentionDays,
		"cleanup_at":     s.at,
	}
	if s.running {
		_, next := s.scheduler.NextRun()
		status["next_run"] = next
	}
	return status
}
