package jobs

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeAvatarUpload is the task type for deferred avatar uploads.
	TaskTypeAvatarUpload = "media:avatar_upload"
)

// AvatarUploadPayload identifies a staged file and the user it belongs to.
type AvatarUploadPayload struct {
	LocalPath string    `json:"localPath"`
	UserID    uuid.UUID `json:"userId"`
}

// NewAvatarUploadTask constructs an Asynq task.
func NewAvatarUploadTask(payload AvatarUploadPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAvatarUpload, data), nil
}
