package scheduler

import (
	"context"

	"go.uber.org/zap"
)

// CountFunc is a maintenance pass that reports how many records it touched
type CountFunc func(ctx context.Context) (int, error)

// CountTask wraps fn as a Task that logs the count when it is non-zero
func CountTask(name string, fn CountFunc, logger *zap.Logger) Task {
	return Task{
		Name: name,
		Run: func(ctx context.Context) error {
			n, err := fn(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("Maintenance task finished", zap.String("task", name), zap.Int("affected", n))
			}
			return nil
		},
	}
}

// Schedule pairs a cron spec with the task it fires
type Schedule struct {
	Spec string
	Task Task
}

// RegisterAll registers every schedule on the trigger, stopping at the first error
func (c *CronTrigger) RegisterAll(schedules ...Schedule) error {
	for _, s := range schedules {
		if err := c.Register(s.Spec, s.Task); err != nil {
			return err
		}
	}
	return nil
}
