package domain

import (
	"encoding/json"
	"time"
)

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Job é uma tarefa durável da fila. Priority cresce na ordem de submissão e é mantida nas retentativas.
type Job struct {
	ID               string          `json:"id"`
	BatchID          string          `json:"batch_id"`
	TaskType         string          `json:"task_type"`
	Payload          json.RawMessage `json:"payload"`
	Priority         int64           `json:"priority"`
	SerializationKey *string         `json:"serialization_key"`
	Status           JobStatus       `json:"status"`
	Attempts         int             `json:"attempts"`
	MaxAttempts      int             `json:"max_attempts"`
	RunAt            time.Time       `json:"run_at"`
	LockedAt         *time.Time      `json:"locked_at"`
	LastError        *string         `json:"last_error"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type NewJob struct {
	BatchID          string
	TaskType         string
	Payload          json.RawMessage
	SerializationKey *string
	MaxAttempts      int
}
