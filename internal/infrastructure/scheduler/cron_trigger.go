package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// CronTrigger submits registered tasks to the Scheduler on cron schedules
type CronTrigger struct {
	scheduler *Scheduler
	cron      *cron.Cron
	logger    *zap.Logger

	mu    sync.Mutex
	tasks map[string]Task
}

// NewCronTrigger creates a trigger feeding s
func NewCronTrigger(s *Scheduler, logger *zap.Logger) *CronTrigger {
	log := logger.Named("cron")
	return &CronTrigger{
		scheduler: s,
		cron:      cron.New(cron.WithLogger(cronLogger{log.Sugar()})),
		logger:    log,
		tasks:     make(map[string]Task),
	}
}

// Register schedules task on spec ("@every 5m", "@hourly", or five-field cron).
// An empty spec leaves the task registered for manual triggering only.
func (c *CronTrigger) Register(spec string, task Task) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.tasks[task.Name]; dup {
		return fmt.Errorf("%w: task %q registered twice", ErrInvalidConfig, task.Name)
	}
	if spec != "" {
		if _, err := c.cron.AddFunc(spec, func() { c.submit(task) }); err != nil {
			return fmt.Errorf("%w: task %q spec %q: %v", ErrInvalidConfig, task.Name, spec, err)
		}
	}
	c.tasks[task.Name] = task
	c.logger.Info("Task registered", zap.String("task", task.Name), zap.String("spec", spec))
	return nil
}

// Trigger submits a registered task now
func (c *CronTrigger) Trigger(name string) (*Job, error) {
	c.mu.Lock()
	task, ok := c.tasks[name]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	return c.scheduler.Submit(task)
}

// Tasks lists registered task names
func (c *CronTrigger) Tasks() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.tasks))
	for name := range c.tasks {
		names = append(names, name)
	}
	return names
}

// Start begins firing schedules
func (c *CronTrigger) Start() {
	c.cron.Start()
}

// Stop halts the schedules and waits for in-flight submissions
func (c *CronTrigger) Stop(ctx context.Context) error {
	select {
	case <-c.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CronTrigger) submit(task Task) {
	if _, err := c.scheduler.Submit(task); err != nil {
		c.logger.Warn("Failed to submit scheduled task", zap.String("task", task.Name), zap.Error(err))
	}
}

// cronLogger routes robfig/cron's logging through zap
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
