package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskCheckOverdue = "jobs.check_overdue"

const TaskCheckRunningLate = "jobs.check_running_late"

// CheckPayload records what queued a check run.
type CheckPayload struct {
	Trigger string `json:"trigger"`
}

const (
	TriggerPeriodic = "periodic"
	TriggerStartup  = "startup"
)

func newCheckTask(taskType string, payload CheckPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, data), nil
}

func NewCheckOverdueTask(payload CheckPayload) (*asynq.Task, error) {
	return newCheckTask(TaskCheckOverdue, payload)
}

func NewCheckRunningLateTask(payload CheckPayload) (*asynq.Task, error) {
	return newCheckTask(TaskCheckRunningLate, payload)
}

// ParseCheckPayload tolerates an empty payload.
func ParseCheckPayload(task *asynq.Task) (CheckPayload, error) {
	var payload CheckPayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return CheckPayload{}, err
	}
	return payload, nil
}
