package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Uploader pushes a staged local file to the media provider.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// AvatarStore persists the hosted avatar URL on the user record.
type AvatarStore interface {
	UpdateAvatar(ctx context.Context, id uuid.UUID, avatarURL string) error
}

// AvatarUploadJob processes deferred avatar uploads from registration.
type AvatarUploadJob struct {
	uploader Uploader
	store    AvatarStore
	logger   *slog.Logger
}

// NewAvatarUploadJob constructs the job handler.
func NewAvatarUploadJob(uploader Uploader, store AvatarStore, logger *slog.Logger) *AvatarUploadJob {
	return &AvatarUploadJob{uploader: uploader, store: store, logger: logger}
}

// Handle uploads the staged file and attaches the hosted URL to the user.
// Upload and persistence failures are returned for the queue's retry policy;
// the staged file is kept until a run succeeds.
func (j *AvatarUploadJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload AvatarUploadPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	url, err := j.uploader.Upload(ctx, payload.LocalPath)
	if err != nil {
		j.logger.Error("avatar upload", slog.String("user_id", payload.UserID.String()), slog.Any("error", err))
		return err
	}
	if err := j.store.UpdateAvatar(ctx, payload.UserID, url); err != nil {
		j.logger.Error("attach avatar", slog.String("user_id", payload.UserID.String()), slog.Any("error", err))
		return err
	}

	if err := os.Remove(payload.LocalPath); err != nil {
		j.logger.Warn("remove staged avatar", slog.String("path", payload.LocalPath), slog.Any("error", err))
	}
	j.logger.Info("avatar upload completed", slog.String("user_id", payload.UserID.String()))
	return nil
}
