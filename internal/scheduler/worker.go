package scheduler

import (
	"context"
	"fmt"

	"hvac_dispatch_backend/internal/jobs/transport"
	"hvac_dispatch_backend/platform/config"
	"hvac_dispatch_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Checker runs the job checks. Implemented by the jobs service.
type Checker interface {
	CheckOverdue(ctx context.Context) (transport.MonitorResult, error)
	CheckRunningLate(ctx context.Context) (transport.MonitorResult, error)
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	checker Checker
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, checker Checker, log *logger.Logger) (*Worker, error) {
	opt, err := connOpt(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 5
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
		Logger: newAsynqLogger(log),
	})

	w := &Worker{
		server:  server,
		checker: checker,
		log:     log,
	}
	w.mux = w.routes()
	return w, nil
}

func (w *Worker) routes() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskCheckOverdue, w.handleCheckOverdue)
	mux.HandleFunc(TaskCheckRunningLate, w.handleCheckRunningLate)
	return mux
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleCheckOverdue(ctx context.Context, task *asynq.Task) error {
	return w.runCheck(ctx, task, w.checker.CheckOverdue)
}

func (w *Worker) handleCheckRunningLate(ctx context.Context, task *asynq.Task) error {
	return w.runCheck(ctx, task, w.checker.CheckRunningLate)
}

func (w *Worker) runCheck(ctx context.Context, task *asynq.Task, check func(context.Context) (transport.MonitorResult, error)) error {
	payload, err := ParseCheckPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	result, err := check(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", task.Type(), err)
	}
	w.log.Info("job check finished", "task", task.Type(), "trigger", payload.Trigger, "flagged", result.Flagged)
	return nil
}

// asynqLogger routes asynq's own logging through the application logger.
type asynqLogger struct {
	log *logger.Logger
}

func newAsynqLogger(log *logger.Logger) asynqLogger {
	return asynqLogger{log: log}
}

func (l asynqLogger) Debug(args ...interface{}) {
	l.log.Debug(fmt.Sprint(args...), "component", "asynq")
}

func (l asynqLogger) Info(args ...interface{}) {
	l.log.Info(fmt.Sprint(args...), "component", "asynq")
}

func (l asynqLogger) Warn(args ...interface{}) {
	l.log.Warn(fmt.Sprint(args...), "component", "asynq")
}

func (l asynqLogger) Error(args ...interface{}) {
	l.log.Error(fmt.Sprint(args...), "component", "asynq")
}

func (l asynqLogger) Fatal(args ...interface{}) {
	l.log.Error(fmt.Sprint(args...), "component", "asynq")
}

