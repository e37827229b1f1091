// Package users implements the account lifecycle: registration with avatar
// upload, login, logout, token refresh and password change.
package users

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/vidora-app/vidora/internal/auth"
	"github.com/vidora-app/vidora/internal/shared"
)

// UploadMode selects how registration handles the avatar upload.
type UploadMode string

const (
	// UploadModeSync uploads the avatar inline; registration fails if the
	// provider does.
	UploadModeSync UploadMode = "sync"
	// UploadModeDeferred creates the record with a placeholder avatar and
	// hands the upload to the background queue.
	UploadModeDeferred UploadMode = "deferred"
)

// Uploader pushes a staged local file to the media provider and returns the
// hosted URL.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// Enqueuer submits deferred avatar uploads to the job queue.
type Enqueuer interface {
	EnqueueAvatarUpload(ctx context.Context, localPath string, userID uuid.UUID) error
}

// ServiceConfig tunes the account service.
type ServiceConfig struct {
	UploadMode UploadMode
	// PlaceholderAvatarURL is stored until a deferred upload completes.
	PlaceholderAvatarURL string
}

// Service orchestrates register, login, logout, refresh and change-password
// over the repository, password hasher and token issuer.
type Service struct {
	logger   *slog.Logger
	repo     Repository
	uploader Uploader
	enqueuer Enqueuer
	tokens   *auth.TokenIssuer
	cfg      ServiceConfig
}

// NewService constructs a Service. The enqueuer may be nil when running in
// synchronous upload mode.
func NewService(logger *slog.Logger, repo Repository, uploader Uploader, enqueuer Enqueuer, tokens *auth.TokenIssuer, cfg ServiceConfig) *Service {
	if cfg.UploadMode == "" {
		cfg.UploadMode = UploadModeSync
	}
	return &Service{logger: logger, repo: repo, uploader: uploader, enqueuer: enqueuer, tokens: tokens, cfg: cfg}
}

// RegisterInput carries the registration form fields plus the staged avatar
// file path.
type RegisterInput struct {
	UserName        string
	Email           string
	FullName        string
	Password        string
	AvatarLocalPath string
}

// Register validates the input, uploads the avatar, hashes the password and
// creates the user record. The returned record has its credential fields
// cleared.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	userName := NormalizeIdentifier(in.UserName)
	email := NormalizeIdentifier(in.Email)
	fullName := strings.TrimSpace(in.FullName)
	if userName == "" || email == "" || fullName == "" || strings.TrimSpace(in.Password) == "" {
		return nil, shared.ErrValidation
	}
	if in.AvatarLocalPath == "" {
		return nil, shared.ErrUpload
	}

	exists, err := s.repo.Exists(ctx, userName, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.ErrConflict
	}

	avatarURL := s.cfg.PlaceholderAvatarURL
	if s.cfg.UploadMode == UploadModeSync {
		avatarURL, err = s.uploadAvatar(ctx, in.AvatarLocalPath)
		if err != nil {
			return nil, err
		}
	}

	// Hashing happens here, at the service boundary, before every persist
	// that touches the password.
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		ID:           uuid.New(),
		UserName:     userName,
		Email:        email,
		FullName:     fullName,
		AvatarURL:    avatarURL,
		PasswordHash: hash,
		WatchHistory: []uuid.UUID{},
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	if s.cfg.UploadMode == UploadModeDeferred {
		if err := s.enqueuer.EnqueueAvatarUpload(ctx, in.AvatarLocalPath, user.ID); err != nil {
			// The record exists; the avatar stays on the placeholder until a
			// manual retry.
			s.logger.Error("enqueue avatar upload", slog.String("user_id", user.ID.String()), slog.Any("error", err))
		}
	}

	user.PasswordHash = ""
	user.RefreshToken = ""
	return user, nil
}

func (s *Service) uploadAvatar(ctx context.Context, localPath string) (string, error) {
	defer func() {
		if err := os.Remove(localPath); err != nil {
			s.logger.Warn("remove staged avatar", slog.String("path", localPath), slog.Any("error", err))
		}
	}()
	url, err := s.uploader.Upload(ctx, localPath)
	if err != nil || url == "" {
		s.logger.Error("avatar upload failed", slog.Any("error", err))
		return "", shared.ErrUpload
	}
	return url, nil
}

// LoginResult bundles the authenticated user with a fresh token pair.
type LoginResult struct {
	User         *User
	AccessToken  string
	RefreshToken string
}

// Login authenticates by username or email plus password and issues an
// access/refresh token pair, persisting the refresh token on the record.
// A missing user and a wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	identifier = NormalizeIdentifier(identifier)
	if identifier == "" || password == "" {
		return nil, shared.ErrValidation
	}

	user, err := s.repo.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.VerifyPassword(password, user.PasswordHash) {
		return nil, shared.ErrInvalidCredentials
	}

	return s.issueTokens(ctx, user)
}

// Logout invalidates the stored refresh token for the user.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID) error {
	return s.repo.ClearRefreshToken(ctx, userID)
}

// Refresh exchanges a valid refresh token for a new token pair. The incoming
// token must equal the one persisted on the record, so logout and each
// rotation invalidate every previously issued refresh token.
func (s *Service) Refresh(ctx context.Context, token string) (*LoginResult, error) {
	if token == "" {
		return nil, shared.ErrUnauthorized
	}
	claims, err := s.tokens.VerifyRefresh(token)
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, shared.ErrInvalidToken
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidToken
		}
		return nil, err
	}
	if user.RefreshToken == "" || user.RefreshToken != token {
		return nil, shared.ErrInvalidToken
	}

	return s.issueTokens(ctx, user)
}

// ChangePassword verifies the old password and persists a hash of the new
// one. Tokens are not re-issued.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	if strings.TrimSpace(oldPassword) == "" || strings.TrimSpace(newPassword) == "" {
		return shared.ErrValidation
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.VerifyPassword(oldPassword, user.PasswordHash) {
		return shared.ErrInvalidCredentials
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, userID, hash)
}

// ResolveAccount loads the account behind a verified token subject. It backs
// the authentication guard.
func (s *Service) ResolveAccount(ctx context.Context, id uuid.UUID) (*shared.Account, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user.Account(), nil
}

func (s *Service) issueTokens(ctx context.Context, user *User) (*LoginResult, error) {
	account := user.Account()
	access, err := s.tokens.IssueAccess(account)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefresh(account)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateRefreshToken(ctx, user.ID, refresh); err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	user.RefreshToken = ""
	return &LoginResult{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

var _ auth.AccountResolver = (*Service)(nil)
