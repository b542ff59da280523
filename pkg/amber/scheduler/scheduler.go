// Package scheduler implements Amber's reminder system. Jobs carry a cron
// expression and a prompt; when a job fires, the prompt runs through the
// response pipeline and the answer is sent to the target chat. Jobs are
// persisted in SQLite so reminders survive restarts.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Job is one scheduled reminder.
type Job struct {
	// ID is the unique job identifier.
	ID string `json:"id"`

	// Schedule is the cron expression or shorthand (@daily, @every 1h).
	// For one-shot jobs it is the target time.
	Schedule string `json:"schedule"`

	// Type is "cron" (recurring), "at" (one-shot) or "every" (interval).
	Type string `json:"type"`

	// Prompt is the question asked to the assistant when the job fires.
	Prompt string `json:"prompt"`

	// Channel and ChatID identify where the answer is delivered.
	Channel string `json:"channel"`
	ChatID  string `json:"chat_id"`

	// Enabled indicates if the job is active.
	Enabled bool `json:"enabled"`

	// CreatedBy is the user who created the job.
	CreatedBy string `json:"created_by,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	RunCount  int        `json:"run_count"`
}

// JobHandler produces the message for a fired job.
type JobHandler func(ctx context.Context, job *Job) (string, error)

// DeliverFunc sends a job's result to its target chat.
type DeliverFunc func(ctx context.Context, channel, chatID, message string) error

// JobStorage persists jobs.
type JobStorage interface {
	Save(job *Job) error
	Delete(id string) error
	LoadAll() ([]*Job, error)
}

// minJobInterval guards against cron firing the same job twice within the
// same second boundary.
const minJobInterval = 2 * time.Second

// Scheduler manages reminder jobs with robfig/cron.
type Scheduler struct {
	jobs        map[string]*Job
	cron        *cron.Cron
	cronIDs     map[string]cron.EntryID
	runningJobs map[string]bool

	storage JobStorage
	handler JobHandler
	deliver DeliverFunc

	jobTimeout time.Duration

	logger *slog.Logger
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Scheduler. handler produces the message, deliver sends it.
func New(storage JobStorage, handler JobHandler, deliver DeliverFunc, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		jobs:        make(map[string]*Job),
		cronIDs:     make(map[string]cron.EntryID),
		runningJobs: make(map[string]bool),
		storage:     storage,
		handler:     handler,
		deliver:     deliver,
		jobTimeout:  2 * time.Minute,
		logger:      logger.With("component", "scheduler"),
	}
}

// Add registers a new job. A missing ID gets a generated one.
func (s *Scheduler) Add(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %q already exists", job.ID)
	}
	if job.Schedule == "" {
		return fmt.Errorf("job schedule is required")
	}
	if job.Prompt == "" {
		return fmt.Errorf("job prompt is required")
	}

	job.CreatedAt = time.Now()
	if job.Type == "" {
		job.Type = "cron"
	}

	if s.cron != nil && job.Enabled {
		if err := s.scheduleJob(job); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", job.Schedule, err)
		}
	}

	s.jobs[job.ID] = job

	if s.storage != nil {
		if err := s.storage.Save(job); err != nil {
			s.logger.Error("failed to persist job", "id", job.ID, "error", err)
		}
	}

	s.logger.Info("job added", "id", job.ID, "schedule", job.Schedule, "type", job.Type)
	return nil
}

// Remove deletes a job by ID.
func (s *Scheduler) Remove(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[jobID]; !exists {
		return fmt.Errorf("job %q not found", jobID)
	}
	if entryID, ok := s.cronIDs[jobID]; ok {
		s.cron.Remove(entryID)
		delete(s.cronIDs, jobID)
	}
	delete(s.jobs, jobID)

	if s.storage != nil {
		if err := s.storage.Delete(jobID); err != nil {
			s.logger.Error("failed to remove job from storage", "id", jobID, "error", err)
		}
	}

	s.logger.Info("job removed", "id", jobID)
	return nil
}

// List returns all registered jobs.
func (s *Scheduler) List() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		result = append(result, j)
	}
	return result
}

// Get returns a job by ID.
func (s *Scheduler) Get(jobID string) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[jobID]
	return j, ok
}

// Start loads persisted jobs and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.cron = cron.New(cron.WithParser(cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)))

	if s.storage != nil {
		jobs, err := s.storage.LoadAll()
		if err != nil {
			s.logger.Error("failed to load jobs", "error", err)
		} else {
			s.mu.Lock()
			for _, job := range jobs {
				s.jobs[job.ID] = job
				if job.Enabled {
					if err := s.scheduleJob(job); err != nil {
						s.logger.Warn("skipping job with invalid schedule",
							"id", job.ID, "schedule", job.Schedule, "error", err)
					}
				}
			}
			s.mu.Unlock()
			s.logger.Info("jobs loaded from storage", "count", len(jobs))
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.List()))
	return nil
}

// Stop gracefully shuts down the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		done := s.cron.Stop()
		select {
		case <-done.Done():
		case <-time.After(10 * time.Second):
			s.logger.Warn("scheduler stop timed out")
		}
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Info("scheduler stopped")
}

// ---------- Internal ----------

// scheduleJob registers a job with cron, or a timer for one-shot jobs.
// Caller holds s.mu.
func (s *Scheduler) scheduleJob(job *Job) error {
	schedule := job.Schedule

	if job.Type == "at" {
		target, err := ParseOneShotTime(schedule)
		if err != nil {
			return err
		}
		go s.runOneShotJob(job, target)
		return nil
	}

	if job.Type == "every" && schedule[0] != '@' {
		schedule = "@every " + schedule
	}

	entryID, err := s.cron.AddFunc(schedule, func() {
		s.executeJob(job)
	})
	if err != nil {
		return err
	}
	s.cronIDs[job.ID] = entryID
	return nil
}

// runOneShotJob waits for the target time, fires once, then removes the job.
func (s *Scheduler) runOneShotJob(job *Job, target time.Time) {
	delay := time.Until(target)
	if delay <= 0 {
		s.logger.Warn("one-shot time is in the past, executing immediately", "id", job.ID)
		s.executeJob(job)
		_ = s.Remove(job.ID)
		return
	}

	s.logger.Info("one-shot job scheduled", "id", job.ID, "fires_in", delay.String())

	select {
	case <-time.After(delay):
		if _, ok := s.Get(job.ID); !ok {
			return
		}
		s.executeJob(job)
		_ = s.Remove(job.ID)
	case <-s.ctx.Done():
	}
}

// executeJob fires one job with a duplicate-run guard, a spin-loop guard,
// panic recovery and a timeout.
func (s *Scheduler) executeJob(job *Job) {
	s.mu.Lock()
	if s.runningJobs[job.ID] {
		s.mu.Unlock()
		s.logger.Warn("skipping job (already running)", "id", job.ID)
		return
	}
	if job.LastRunAt != nil && time.Since(*job.LastRunAt) < minJobInterval {
		s.mu.Unlock()
		return
	}
	s.runningJobs[job.ID] = true
	now := time.Now()
	job.LastRunAt = &now
	job.RunCount++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.runningJobs, job.ID)
		s.mu.Unlock()

		if r := recover(); r != nil {
			s.mu.Lock()
			job.LastError = fmt.Sprintf("panic: %v", r)
			s.mu.Unlock()
			s.logger.Error("scheduled job panicked", "id", job.ID, "panic", r)
		}
	}()

	// Persist LastRunAt up front so a crash mid-run doesn't refire on
	// restart.
	if s.storage != nil {
		_ = s.storage.Save(job)
	}

	s.logger.Info("executing scheduled job", "id", job.ID)

	ctx, cancel := context.WithTimeout(s.ctx, s.jobTimeout)
	defer cancel()

	message, err := s.handler(ctx, job)

	s.mu.Lock()
	if err != nil {
		job.LastError = err.Error()
	} else {
		job.LastError = ""
	}
	_, stillExists := s.jobs[job.ID]
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled job failed", "id", job.ID, "error", err)
	} else if message != "" && s.deliver != nil && job.Channel != "" && job.ChatID != "" {
		if derr := s.deliver(ctx, job.Channel, job.ChatID, message); derr != nil {
			s.logger.Error("failed to deliver job result",
				"id", job.ID, "chat", job.ChatID, "error", derr)
		}
	}

	if s.storage != nil && stillExists {
		_ = s.storage.Save(job)
	}
}

// ValidateSchedule checks a schedule expression for the given job type
// without registering it. Useful for CLI validation before persisting.
func ValidateSchedule(jobType, schedule string) error {
	if schedule == "" {
		return fmt.Errorf("schedule is required")
	}
	switch jobType {
	case "at":
		_, err := ParseOneShotTime(schedule)
		return err
	case "every":
		if schedule[0] != '@' {
			schedule = "@every " + schedule
		}
	}
	parser := cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)
	_, err := parser.Parse(schedule)
	return err
}

// ParseOneShotTime parses one-shot times: relative durations ("5m",
// "1h30m"), RFC3339, "2006-01-02 15:04" and "15:04" (today or tomorrow).
func ParseOneShotTime(timeStr string) (time.Time, error) {
	now := time.Now()

	if d, err := time.ParseDuration(timeStr); err == nil && d > 0 {
		return now.Add(d), nil
	}
	if t, err := time.Parse(time.RFC3339, timeStr); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02 15:04", timeStr); err == nil {
		return t, nil
	}
	if t, err := time.Parse("15:04", timeStr); err == nil {
		target := time.Date(now.Year(), now.Month(), now.Day(),
			t.Hour(), t.Minute(), 0, 0, now.Location())
		if target.Before(now) {
			target = target.Add(24 * time.Hour)
		}
		return target, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized time format: %s", timeStr)
}
