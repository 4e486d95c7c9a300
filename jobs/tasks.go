package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskUsersSync mirrors the remote directory into storage.
	TaskUsersSync = "users:sync"
)

// UsersSyncPayload describes why a sync was requested.
type UsersSyncPayload struct {
	Reason string `json:"reason"`
}

// NewUsersSyncTask constructs an Asynq task.
func NewUsersSyncTask(reason string) (*asynq.Task, error) {
	if reason == "" {
		reason = "manual"
	}
	data, err := json.Marshal(UsersSyncPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskUsersSync, data, asynq.Queue(QueueDefault)), nil
}
