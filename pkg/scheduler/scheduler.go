package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/semaphore"

	"github.com/saint0x/ggrowth/pkg/log"
)

var (
	// ErrInvalidCron is returned by Start for an expression the parser rejects.
	ErrInvalidCron = errors.New("invalid cron expression")
	// ErrRunInFlight is returned by RunNow and RunInBackground while another
	// run holds the guard.
	ErrRunInFlight = errors.New("a pipeline run is already in progress")
)

// RunFunc is one pipeline invocation.
type RunFunc func(ctx context.Context) error

// Status is a snapshot of the scheduler state.
type Status struct {
	IsRunning      bool       `json:"isRunning"`
	CronExpression string     `json:"cronExpression,omitempty"`
	NextRun        *time.Time `json:"nextRun,omitempty"`
	LastRun        *time.Time `json:"lastRun,omitempty"`
	LastError      string     `json:"lastError,omitempty"`
	InFlight       bool       `json:"inFlight"`
}

// Scheduler fires a RunFunc on a cron schedule. At most one run executes at a
// time; scheduled triggers that find a run in flight are skipped.
type Scheduler struct {
	logger *log.Logger
	run    RunFunc
	guard  *semaphore.Weighted

	inFlight atomic.Bool

	mu       sync.Mutex
	cron     *cron.Cron
	schedule cron.Schedule
	expr     string
	lastRun  time.Time
	lastErr  error
}

// New creates a stopped scheduler.
func New(logger *log.Logger, run RunFunc) *Scheduler {
	return &Scheduler{
		logger: logger.Named("scheduler"),
		run:    run,
		guard:  semaphore.NewWeighted(1),
	}
}

// Start schedules runs on expr, a standard five-field expression or a
// descriptor such as @daily. An active schedule is replaced.
func (s *Scheduler) Start(expr string) error {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidCron, expr, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		s.logger.Schedule("Replacing schedule %q", s.expr)
		s.cron.Stop()
	}

	c := cron.New(cron.WithLogger(cronLogger{s.logger}))
	c.Schedule(schedule, cron.FuncJob(s.trigger))
	c.Start()

	s.cron = c
	s.schedule = schedule
	s.expr = expr
	s.logger.Schedule("Scheduled pipeline with %q, next run at %s", expr, schedule.Next(time.Now()).Format(time.RFC1123))
	return nil
}

// Stop removes the schedule. A run already in flight completes; the returned
// context is done once it has.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}

	done := s.cron.Stop()
	s.cron = nil
	s.schedule = nil
	s.logger.Schedule("Stopped schedule %q", s.expr)
	s.expr = ""
	return done
}

// RunNow invokes the pipeline once, synchronously. It returns ErrRunInFlight
// if another run is executing.
func (s *Scheduler) RunNow(ctx context.Context) error {
	if !s.guard.TryAcquire(1) {
		return ErrRunInFlight
	}
	defer s.guard.Release(1)
	return s.execute(ctx)
}

// RunInBackground claims the run guard and invokes the pipeline on its own
// goroutine. The guard is held before it returns, so of two concurrent
// callers exactly one gets nil and the other ErrRunInFlight.
func (s *Scheduler) RunInBackground() error {
	if !s.guard.TryAcquire(1) {
		return ErrRunInFlight
	}
	s.inFlight.Store(true)

	go func() {
		defer s.guard.Release(1)
		// errors are recorded by execute
		_ = s.execute(context.Background())
	}()
	return nil
}

// Status reports the current state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		IsRunning:      s.cron != nil,
		CronExpression: s.expr,
		InFlight:       s.inFlight.Load(),
	}
	if s.schedule != nil {
		next := s.schedule.Next(time.Now())
		st.NextRun = &next
	}
	if !s.lastRun.IsZero() {
		last := s.lastRun
		st.LastRun = &last
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// IsRunning reports whether a schedule is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}

func (s *Scheduler) trigger() {
	if !s.guard.TryAcquire(1) {
		s.logger.Warning("Skipping scheduled run: previous run still in progress")
		return
	}
	defer s.guard.Release(1)

	// errors are recorded by execute; the schedule keeps running
	_ = s.execute(context.Background())
}

func (s *Scheduler) execute(ctx context.Context) error {
	s.inFlight.Store(true)
	defer s.inFlight.Store(false)

	started := time.Now()
	s.logger.Schedule("Pipeline run started")
	err := s.run(ctx)

	s.mu.Lock()
	s.lastRun = started
	s.lastErr = err
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Pipeline run failed after %s: %v", time.Since(started).Round(time.Millisecond), err)
		return err
	}
	s.logger.Success("Pipeline run finished in %s", time.Since(started).Round(time.Millisecond))
	return nil
}

// cronLogger routes cron's internal messages to the debug log.
type cronLogger struct {
	logger *log.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: %s %v", msg, keysAndValues)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: %s: %v %v", msg, err, keysAndValues)
}
