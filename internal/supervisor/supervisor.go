package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Status represents the current state of a supervised task.
type Status string

const (
	StatusStarting   Status = "starting"
	StatusRunning    Status = "running"
	StatusRestarting Status = "restarting"
	StatusStopped    Status = "stopped"
	StatusFailed     Status = "failed"
)

// ErrMaxAttempts is returned by Run when a task exhausts MaxAttempts.
var ErrMaxAttempts = errors.New("supervisor: max restart attempts reached")

// defaultDelay applies when a task sets no Delay.
const defaultDelay = 5 * time.Second

// Task is a restartable unit of work.
type Task struct {
	// Name is a human-readable identifier for logging and stats.
	Name string

	// Run blocks until ctx is cancelled (return nil) or the task fails
	// (return the reason).
	Run func(ctx context.Context) error

	// Delay is the fixed wait between a failure and the next attempt.
	Delay time.Duration

	// MaxAttempts limits restarts. 0 means unlimited.
	MaxAttempts int

	// OnRestart is called before each restart attempt.
	OnRestart func(attempt int)
}

// Logger defines the logging interface for the supervisor.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Stats describes one supervised task.
type Stats struct {
	Name         string `json:"name"`
	Status       Status `json:"status"`
	RestartCount int    `json:"restart_count"`
	LastError    string `json:"last_error,omitempty"`
}

// Supervisor runs tasks and tracks their state.
type Supervisor struct {
	logger Logger

	mu    sync.RWMutex
	tasks map[string]*Stats
}

// New creates a supervisor. A nil logger discards output.
func New(logger Logger) *Supervisor {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Supervisor{
		logger: logger,
		tasks:  make(map[string]*Stats),
	}
}

// Run supervises task until ctx is cancelled or the task returns nil.
//
// It returns nil in both of those cases and ErrMaxAttempts when a bounded
// task keeps failing. Run blocks; start it in its own goroutine or errgroup.
func (s *Supervisor) Run(ctx context.Context, task Task) error {
	if task.Run == nil {
		return fmt.Errorf("supervisor: task %q has no Run function", task.Name)
	}
	delay := task.Delay
	if delay <= 0 {
		delay = defaultDelay
	}

	s.set(task.Name, func(st *Stats) { st.Status = StatusStarting })

	attempt := 0
	for {
		s.set(task.Name, func(st *Stats) { st.Status = StatusRunning })
		err := task.Run(ctx)

		if ctx.Err() != nil || err == nil {
			s.set(task.Name, func(st *Stats) { st.Status = StatusStopped })
			s.logger.Info("supervised task stopped", "task", task.Name)
			return nil
		}

		attempt++
		s.set(task.Name, func(st *Stats) {
			st.Status = StatusFailed
			st.LastError = err.Error()
		})
		s.logger.Warn("supervised task failed",
			"task", task.Name,
			"error", err,
			"attempt", attempt,
		)

		if task.MaxAttempts > 0 && attempt >= task.MaxAttempts {
			s.logger.Error("max restart attempts reached", "task", task.Name, "attempts", attempt)
			return fmt.Errorf("%w: %s after %d attempts: %w", ErrMaxAttempts, task.Name, attempt, err)
		}

		s.logger.Info("restarting supervised task",
			"task", task.Name,
			"attempt", attempt,
			"delay", delay,
		)
		s.set(task.Name, func(st *Stats) { st.Status = StatusRestarting })
		if task.OnRestart != nil {
			task.OnRestart(attempt)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.set(task.Name, func(st *Stats) { st.Status = StatusStopped })
			s.logger.Info("context cancelled, not restarting", "task", task.Name)
			return nil
		case <-timer.C:
		}

		s.set(task.Name, func(st *Stats) { st.RestartCount++ })
	}
}

func (s *Supervisor) set(name string, fn func(*Stats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.tasks[name]
	if !ok {
		st = &Stats{Name: name}
		s.tasks[name] = st
	}
	fn(st)
}

// Status returns the current status of a task.
func (s *Supervisor) Status(name string) (Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.tasks[name]
	if !ok {
		return "", false
	}
	return st.Status, true
}

// Stats returns every task's statistics, sorted by name.
func (s *Supervisor) Stats() []Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Stats, 0, len(s.tasks))
	for _, st := range s.tasks {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Periodic builds a Run function that calls check every interval and
// returns the first failure, so a health check can be supervised as a Task.
func Periodic(interval time.Duration, check func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := check(ctx); err != nil {
			return err
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := check(ctx); err != nil {
					return err
				}
			}
		}
	}
}
