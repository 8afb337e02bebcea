package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type recordingObserver struct {
	mu   sync.Mutex
	runs []JobStatus
}

func (o *recordingObserver) ObserveJob(_ string, status JobStatus, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runs = append(o.runs, status)
}

func (o *recordingObserver) statuses() []JobStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]JobStatus(nil), o.runs...)
}

func startScheduler(t *testing.T, cfg Config, obs JobObserver) *Scheduler {
	t.Helper()
	s := NewScheduler(cfg, obs, zap.NewNop())
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s
}

func TestScheduler_RunsJobs(t *testing.T) {
	defer goleak.VerifyNone(t)
	obs := &recordingObserver{}
	s := startScheduler(t, Config{Workers: 2}, obs)

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		_, err := s.Submit(Task{Name: "sweep", Run: func(context.Context) error {
			ran.Add(1)
			return nil
		}})
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool { return ran.Load() == 5 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return len(obs.statuses()) == 5 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
}

func TestScheduler_RetriesFailedJobs(t *testing.T) {
	defer goleak.VerifyNone(t)
	obs := &recordingObserver{}
	s := startScheduler(t, Config{Workers: 1, RetryAttempts: 2, RetryDelay: 10 * time.Millisecond}, obs)

	var attempts atomic.Int32
	_, err := s.Submit(Task{Name: "reminders", Run: func(context.Context) error {
		if attempts.Add(1) < 3 {
			return errors.New("calendar unavailable")
		}
		return nil
	}})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return attempts.Load() == 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		st := obs.statuses()
		return len(st) == 3 && st[2] == JobStatusSuccess
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
}

func TestScheduler_TimeoutAndPanic(t *testing.T) {
	defer goleak.VerifyNone(t)
	obs := &recordingObserver{}
	s := startScheduler(t, Config{Workers: 1, JobTimeout: 20 * time.Millisecond}, obs)

	_, err := s.Submit(Task{Name: "slow", Run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})
	require.NoError(t, err)
	_, err = s.Submit(Task{Name: "broken", Run: func(context.Context) error { panic("nil map") }})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		st := obs.statuses()
		return len(st) == 2 && st[0] == JobStatusFailed && st[1] == JobStatusFailed
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
}

func TestScheduler_SubmitErrors(t *testing.T) {
	defer goleak.VerifyNone(t)
	s := NewScheduler(Config{Workers: 1, QueueSize: 1}, nil, zap.NewNop())
	noop := Task{Name: "noop", Run: func(context.Context) error { return nil }}

	_, err := s.Submit(noop)
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)

	block := make(chan struct{})
	require.NoError(t, s.Start(context.Background()))
	_, err = s.Submit(Task{Name: "block", Run: func(context.Context) error { <-block; return nil }})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, err := s.Submit(noop)
		if err != nil {
			return errors.Is(err, ErrJobQueueFull)
		}
		return false
	}, time.Second, time.Millisecond)

	close(block)
	require.NoError(t, s.Stop(context.Background()))
}

func TestCronTrigger(t *testing.T) {
	defer goleak.VerifyNone(t)
	s := startScheduler(t, Config{Workers: 1}, nil)
	trigger := NewCronTrigger(s, zap.NewNop())

	var ran atomic.Int32
	task := Task{Name: "permit_expiry", Run: func(context.Context) error { ran.Add(1); return nil }}
	require.NoError(t, trigger.Register("@hourly", task))
	require.NoError(t, trigger.Register("", Task{Name: "manual", Run: task.Run}))

	assert.ErrorIs(t, trigger.Register("@hourly", task), ErrInvalidConfig)
	assert.ErrorIs(t, trigger.Register("not a spec", Task{Name: "bad", Run: task.Run}), ErrInvalidConfig)
	assert.ElementsMatch(t, []string{"permit_expiry", "manual"}, trigger.Tasks())

	trigger.Start()
	_, err := trigger.Trigger("permit_expiry")
	require.NoError(t, err)
	_, err = trigger.Trigger("manual")
	require.NoError(t, err)
	_, err = trigger.Trigger("missing")
	assert.ErrorIs(t, err, ErrUnknownTask)

	assert.Eventually(t, func() bool { return ran.Load() == 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, trigger.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
}

func TestCountTask(t *testing.T) {
	boom := errors.New("db gone")
	calls := 0
	task := CountTask("stale_deliveries", func(context.Context) (int, error) {
		calls++
		if calls == 2 {
			return 0, boom
		}
		return 3, nil
	}, zap.NewNop())

	assert.Equal(t, "stale_deliveries", task.Name)
	assert.NoError(t, task.Run(context.Background()))
	assert.ErrorIs(t, task.Run(context.Background()), boom)
}

func TestCronTrigger_RegisterAll(t *testing.T) {
	s := NewScheduler(Config{}, nil, zap.NewNop())
	trigger := NewCronTrigger(s, zap.NewNop())
	noop := func(context.Context) error { return nil }

	err := trigger.RegisterAll(
		Schedule{Spec: "@every 15m", Task: Task{Name: "reminders", Run: noop}},
		Schedule{Spec: "bogus", Task: Task{Name: "broken", Run: noop}},
		Schedule{Spec: "@hourly", Task: Task{Name: "never", Run: noop}},
	)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, []string{"reminders"}, trigger.Tasks())
}
