// Package scheduling runs configured prompts through the agent runner on a
// cron or fixed-interval schedule.
package scheduling

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"content-crew/internal/domain"
)

// AgentRunner runs one prompt through an agent.
type AgentRunner interface {
	Run(ctx context.Context, agent, input string) (*domain.RunResult, error)
}

// Task is a recurring agent run.
type Task struct {
	Name     string
	Schedule string // cron expression "*/5 * * * *" OR duration "30m"
	Agent    string // empty = scheduler default agent
	Prompt   string
	OneShot  bool
}

// ResultFunc observes the outcome of a scheduled run.
type ResultFunc func(task Task, res *domain.RunResult, err error)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithDefaultAgent sets the agent used by tasks that name none.
func WithDefaultAgent(name string) Option {
	return func(s *Scheduler) { s.defaultAgent = name }
}

// WithTaskTimeout bounds each scheduled run.
func WithTaskTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.taskTimeout = d
		}
	}
}

// WithResultFunc registers a callback for every finished run.
func WithResultFunc(fn ResultFunc) Option {
	return func(s *Scheduler) { s.onResult = fn }
}

// Scheduler runs tasks on a recurring schedule using cron expressions or durations.
type Scheduler struct {
	cron         *cron.Cron
	runner       AgentRunner
	defaultAgent string
	taskTimeout  time.Duration
	onResult     ResultFunc
	entries      map[string]cron.EntryID // task name → entry
	logger       *slog.Logger
	mu           sync.Mutex
	started      bool
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewScheduler creates a scheduler that runs tasks through runner.
func NewScheduler(runner AgentRunner, logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		cron:        cron.New(),
		runner:      runner,
		taskTimeout: 15 * time.Minute,
		entries:     make(map[string]cron.EntryID),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddTask adds a scheduled task. The schedule can be a cron expression or a duration string.
func (s *Scheduler) AddTask(task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task.Name == "" {
		return fmt.Errorf("scheduler: task name is required: %w", domain.ErrInvalidInput)
	}
	if task.Prompt == "" {
		return fmt.Errorf("scheduler: task %q has no prompt: %w", task.Name, domain.ErrInvalidInput)
	}
	if _, exists := s.entries[task.Name]; exists {
		return fmt.Errorf("scheduler: task %q already exists", task.Name)
	}
	if task.Agent == "" {
		task.Agent = s.defaultAgent
	}

	schedule, err := parseSchedule(task.Schedule)
	if err != nil {
		return fmt.Errorf("scheduler: invalid schedule %q for task %q: %w", task.Schedule, task.Name, err)
	}

	var entryID cron.EntryID
	entryID = s.cron.Schedule(schedule, cron.FuncJob(func() {
		if task.OneShot {
			s.cron.Remove(entryID)
			s.mu.Lock()
			delete(s.entries, task.Name)
			s.mu.Unlock()
		}
		s.fire(task)
	}))
	s.entries[task.Name] = entryID

	s.logger.Info("task added to scheduler", "name", task.Name, "schedule", task.Schedule, "agent", task.Agent)
	return nil
}

func (s *Scheduler) fire(task Task) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if ctx == nil {
		s.logger.Debug("scheduler stopped, skipping task", "task", task.Name)
		return
	}

	taskCtx, cancel := context.WithTimeout(ctx, s.taskTimeout)
	defer cancel()

	start := time.Now()
	res, err := s.runner.Run(taskCtx, task.Agent, task.Prompt)
	if err != nil {
		s.logger.Warn("scheduled task failed",
			"task", task.Name,
			"error", err,
			"duration", time.Since(start))
	} else {
		s.logger.Info("scheduled task completed",
			"task", task.Name,
			"run_id", res.RunID,
			"duration", time.Since(start))
	}
	if s.onResult != nil {
		s.onResult(task, res, err)
	}
}

// RemoveTask removes a task by name.
func (s *Scheduler) RemoveTask(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, ok := s.entries[name]
	if !ok {
		return fmt.Errorf("scheduler: task %q: %w", name, domain.ErrNotFound)
	}
	s.cron.Remove(entryID)
	delete(s.entries, name)
	s.logger.Info("task removed", "name", name)
	return nil
}

// Tasks returns the names of the scheduled tasks, sorted.
func (s *Scheduler) Tasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NextRun returns the next scheduled run time for a task, or nil if the
// task is unknown or the scheduler is not running.
func (s *Scheduler) NextRun(name string) *time.Time {
	s.mu.Lock()
	entryID, ok := s.entries[name]
	s.mu.Unlock()

	if !ok {
		return nil
	}
	entry := s.cron.Entry(entryID)
	if entry.ID == 0 || entry.Next.IsZero() {
		return nil
	}
	t := entry.Next
	return &t
}

// Start begins running the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
	s.started = true
	return nil
}

// Stop signals the scheduler to stop and waits for running jobs to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.started = false
	s.mu.Unlock()

	// Running jobs take the lock on completion.
	<-s.cron.Stop().Done()

	s.mu.Lock()
	s.ctx = nil
	s.mu.Unlock()
	return nil
}

// parseSchedule tries to parse a schedule string as a cron expression first,
// then falls back to time.ParseDuration.
func parseSchedule(schedule string) (cron.Schedule, error) {
	if schedule == "" {
		return nil, fmt.Errorf("empty schedule")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if sched, err := parser.Parse(schedule); err == nil {
		return sched, nil
	}

	dur, err := time.ParseDuration(schedule)
	if err != nil {
		return nil, fmt.Errorf("not a valid cron expression or duration: %q", schedule)
	}
	if dur <= 0 {
		return nil, fmt.Errorf("duration must be positive: %q", schedule)
	}
	return &constantDelay{delay: dur}, nil
}

// constantDelay implements cron.Schedule for a fixed interval.
// Unlike cron.Every(), it supports sub-second durations.
type constantDelay struct {
	delay time.Duration
}

func (d *constantDelay) Next(t time.Time) time.Time {
	return t.Add(d.delay)
}
