// Package scheduler runs the periodic jobs: deadline sweeps, KPI rollups,
// and the notification outbox dispatcher. Jobs are asynq tasks backed by
// redis, so a crashed run is retried and multiple instances share one queue.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskEscalationSweep = "escalation:sweep"

const TaskKPIRollup = "kpi:rollup"

type KPIRollupPayload struct {
	PeriodKind string `json:"periodKind"`
}

func NewEscalationSweepTask() *asynq.Task {
	return asynq.NewTask(TaskEscalationSweep, nil)
}

func NewKPIRollupTask(payload KPIRollupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskKPIRollup, data), nil
}

func ParseKPIRollupPayload(task *asynq.Task) (KPIRollupPayload, error) {
	var payload KPIRollupPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return KPIRollupPayload{}, err
	}
	return payload, nil
}
