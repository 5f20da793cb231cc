package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hvac_dispatch_backend/platform/config"
	"hvac_dispatch_backend/platform/logger"

	"github.com/hibiken/asynq"
)

const defaultCheckInterval = 15 * time.Minute

// Periodic enqueues the job checks on their configured intervals.
type Periodic struct {
	scheduler *asynq.Scheduler
	entries   []string
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	opt, err := connOpt(cfg)
	if err != nil {
		return nil, err
	}

	p := &Periodic{
		scheduler: asynq.NewScheduler(opt, &asynq.SchedulerOpts{
			Location: time.UTC,
			PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
				if err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
					log.Warn("periodic check enqueue failed", "error", err)
				}
			},
		}),
		log: log,
	}

	queue := queueName(cfg)
	if err := p.register(TaskCheckOverdue, cfg.GetOverdueCheckInterval(), queue); err != nil {
		return nil, err
	}
	if err := p.register(TaskCheckRunningLate, cfg.GetRunningLateCheckInterval(), queue); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Periodic) register(taskType string, interval time.Duration, queue string) error {
	if interval <= 0 {
		interval = defaultCheckInterval
	}
	task, err := newCheckTask(taskType, CheckPayload{Trigger: TriggerPeriodic})
	if err != nil {
		return err
	}

	spec := cronEvery(interval)
	id, err := p.scheduler.Register(spec, task, asynq.Queue(queue), asynq.Unique(interval), asynq.MaxRetry(1))
	if err != nil {
		return fmt.Errorf("register %s: %w", taskType, err)
	}
	p.entries = append(p.entries, id)
	p.log.Info("periodic check registered", "task", taskType, "every", interval.String())
	return nil
}

// Entries returns the registered scheduler entry ids.
func (p *Periodic) Entries() []string {
	return append([]string(nil), p.entries...)
}

// Run blocks until ctx is cancelled.
func (p *Periodic) Run(ctx context.Context) error {
	if err := p.scheduler.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	p.scheduler.Shutdown()
	return nil
}

func cronEvery(interval time.Duration) string {
	return "@every " + interval.String()
}
