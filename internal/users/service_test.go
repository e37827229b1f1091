package users_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/vidora-app/vidora/internal/auth"
	"github.com/vidora-app/vidora/internal/shared"
	"github.com/vidora-app/vidora/internal/users"
	_ "github.com/vidora-app/vidora/testing"
)

// memRepo is an in-memory stand-in for the PostgreSQL repository. Records are
// cloned on the way in and out, like rows would be.
type memRepo struct {
	records map[uuid.UUID]*users.User
}

func newMemRepo() *memRepo {
	return &memRepo{records: make(map[uuid.UUID]*users.User)}
}

func clone(u *users.User) *users.User {
	c := *u
	c.WatchHistory = append([]uuid.UUID(nil), u.WatchHistory...)
	return &c
}

func (m *memRepo) Create(ctx context.Context, user *users.User) error {
	for _, existing := range m.records {
		if existing.UserName == user.UserName || existing.Email == user.Email {
			return shared.ErrConflict
		}
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	m.records[user.ID] = clone(user)
	return nil
}

func (m *memRepo) FindByID(ctx context.Context, id uuid.UUID) (*users.User, error) {
	u, ok := m.records[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return clone(u), nil
}

func (m *memRepo) FindByIdentifier(ctx context.Context, identifier string) (*users.User, error) {
	for _, u := range m.records {
		if u.UserName == identifier || u.Email == identifier {
			return clone(u), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memRepo) Exists(ctx context.Context, userName, email string) (bool, error) {
	for _, u := range m.records {
		if u.UserName == userName || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) UpdateRefreshToken(ctx context.Context, id uuid.UUID, token string) error {
	u, ok := m.records[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.RefreshToken = token
	return nil
}

func (m *memRepo) ClearRefreshToken(ctx context.Context, id uuid.UUID) error {
	return m.UpdateRefreshToken(ctx, id, "")
}

func (m *memRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	u, ok := m.records[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memRepo) UpdateAvatar(ctx context.Context, id uuid.UUID, url string) error {
	u, ok := m.records[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.AvatarURL = url
	return nil
}

type stubUploader struct {
	url  string
	err  error
	seen []string
}

func (s *stubUploader) Upload(ctx context.Context, localPath string) (string, error) {
	s.seen = append(s.seen, localPath)
	return s.url, s.err
}

type stubEnqueuer struct {
	paths []string
	ids   []uuid.UUID
	err   error
}

func (s *stubEnqueuer) EnqueueAvatarUpload(ctx context.Context, localPath string, userID uuid.UUID) error {
	s.paths = append(s.paths, localPath)
	s.ids = append(s.ids, userID)
	return s.err
}

func newIssuer() *auth.TokenIssuer {
	return auth.NewTokenIssuer(auth.TokenConfig{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
}

func stageTempAvatar(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "avatar.png")
	require.NoError(t, os.WriteFile(path, []byte("png-bytes"), 0o644))
	return path
}

func newService(repo users.Repository, uploader users.Uploader, enqueuer users.Enqueuer, mode users.UploadMode) *users.Service {
	return users.NewService(slog.Default(), repo, uploader, enqueuer, newIssuer(), users.ServiceConfig{
		UploadMode:           mode,
		PlaceholderAvatarURL: "https://static.test/pending.png",
	})
}

func registerInput(avatarPath string) users.RegisterInput {
	return users.RegisterInput{
		UserName:        "Alice",
		Email:           "A@x.com",
		FullName:        "Alice A",
		Password:        "secret1",
		AvatarLocalPath: avatarPath,
	}
}

func TestRegisterCreatesUserWithoutCredentials(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo, &stubUploader{url: "https://cdn.test/a.png"}, nil, users.UploadModeSync)

	user, err := svc.Register(context.Background(), registerInput(stageTempAvatar(t)))
	require.NoError(t, err)

	require.Equal(t, "alice", user.UserName)
	require.Equal(t, "a@x.com", user.Email)
	require.Equal(t, "https://cdn.test/a.png", user.AvatarURL)
	require.Empty(t, user.PasswordHash)
	require.Empty(t, user.RefreshToken)

	stored, err := repo.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotEqual(t, "secret1", stored.PasswordHash)
	require.True(t, auth.VerifyPassword("secret1", stored.PasswordHash))
}

func TestRegisterValidation(t *testing.T) {
	svc := newService(newMemRepo(), &stubUploader{url: "u"}, nil, users.UploadModeSync)

	in := registerInput(stageTempAvatar(t))
	in.FullName = "   "
	_, err := svc.Register(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrValidation)

	in = registerInput("")
	_, err = svc.Register(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrUpload)
}

func TestRegisterDuplicateConflict(t *testing.T) {
	repo := newMemRepo()
	uploader := &stubUploader{url: "https://cdn.test/a.png"}
	svc := newService(repo, uploader, nil, users.UploadModeSync)

	_, err := svc.Register(context.Background(), registerInput(stageTempAvatar(t)))
	require.NoError(t, err)

	in := registerInput(stageTempAvatar(t))
	in.Email = "other@x.com" // same username
	_, err = svc.Register(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Len(t, repo.records, 1)
}

func TestRegisterUploadFailure(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo, &stubUploader{err: errors.New("provider down")}, nil, users.UploadModeSync)

	_, err := svc.Register(context.Background(), registerInput(stageTempAvatar(t)))
	require.ErrorIs(t, err, shared.ErrUpload)
	require.Empty(t, repo.records)
}

func TestRegisterSyncRemovesStagedFile(t *testing.T) {
	path := stageTempAvatar(t)
	svc := newService(newMemRepo(), &stubUploader{url: "https://cdn.test/a.png"}, nil, users.UploadModeSync)

	_, err := svc.Register(context.Background(), registerInput(path))
	require.NoError(t, err)
	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))
}

func TestRegisterDeferredEnqueues(t *testing.T) {
	repo := newMemRepo()
	enqueuer := &stubEnqueuer{}
	uploader := &stubUploader{url: "unused"}
	svc := newService(repo, uploader, enqueuer, users.UploadModeDeferred)

	path := stageTempAvatar(t)
	user, err := svc.Register(context.Background(), registerInput(path))
	require.NoError(t, err)

	// Record exists immediately with the placeholder; the upload is queued.
	require.Equal(t, "https://static.test/pending.png", user.AvatarURL)
	require.Equal(t, []string{path}, enqueuer.paths)
	require.Equal(t, []uuid.UUID{user.ID}, enqueuer.ids)
	require.Empty(t, uploader.seen)
}

func TestLoginIssuesVerifiableTokens(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo, &stubUploader{url: "https://cdn.test/a.png"}, nil, users.UploadModeSync)
	user, err := svc.Register(context.Background(), registerInput(stageTempAvatar(t)))
	require.NoError(t, err)

	result, err := svc.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)
	require.Empty(t, result.User.PasswordHash)

	issuer := newIssuer()
	accessClaims, err := issuer.VerifyAccess(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID.String(), accessClaims.Subject)
	refreshClaims, err := issuer.VerifyRefresh(result.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, user.ID.String(), refreshClaims.Subject)

	// The stored refresh token equals the issued one.
	stored, err := repo.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, result.RefreshToken, stored.RefreshToken)
}

func TestLoginByEmailCaseInsensitive(t *testing.T) {
	svc := newService(newMemRepo(), &stubUploader{url: "u"}, nil, users.UploadModeSync)
	_, err := svc.Register(context.Background(), registerInput(stageTempAvatar(t)))
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "A@X.com", "secret1")
	require.NoError(t, err)
}

func TestLoginFailures(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo, &stubUploader{url: "u"}, nil, users.UploadModeSync)
	user, err := svc.Register(context.Background(), registerInput(stageTempAvatar(t)))
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "", "secret1")
	require.ErrorIs(t, err, shared.ErrValidation)

	// Unknown user and wrong password are indistinguishable.
	_, err = svc.Login(context.Background(), "nobody", "secret1")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	_, err = svc.Login(context.Background(), "alice", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	// No token was persisted by the failed attempts.
	stored, err := repo.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.Empty(t, stored.RefreshToken)
}

func TestRefreshRotatesTokens(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo, &stubUploader{url: "u"}, nil, users.UploadModeSync)
	user, err := svc.Register(context.Background(), registerInput(stageTempAvatar(t)))
	require.NoError(t, err)

	login, err := svc.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, refreshed.AccessToken)

	stored, err := repo.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, refreshed.RefreshToken, stored.RefreshToken)
}

func TestRefreshRejectsBadTokens(t *testing.T) {
	svc := newService(newMemRepo(), &stubUploader{url: "u"}, nil, users.UploadModeSync)

	_, err := svc.Refresh(context.Background(), "")
	require.ErrorIs(t, err, shared.ErrUnauthorized)

	_, err = svc.Refresh(context.Background(), "tampered.token.value")
	require.ErrorIs(t, err, shared.ErrInvalidToken)

	// Token for a user that no longer exists.
	issuer := newIssuer()
	ghost := &shared.Account{ID: uuid.New(), UserName: "ghost", Email: "g@x.com"}
	token, err := issuer.IssueRefresh(ghost)
	require.NoError(t, err)
	_, err = svc.Refresh(context.Background(), token)
	require.ErrorIs(t, err, shared.ErrInvalidToken)
}

func TestRefreshRejectsSupersededToken(t *testing.T) {
	svc := newService(newMemRepo(), &stubUploader{url: "u"}, nil, users.UploadModeSync)
	_, err := svc.Register(context.Background(), registerInput(stageTempAvatar(t)))
	require.NoError(t, err)

	first, err := svc.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)
	// Second login rotates the stored token; the first one must die.
	_, err = svc.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), first.RefreshToken)
	require.ErrorIs(t, err, shared.ErrInvalidToken)
}

func TestRefreshAfterLogoutRejected(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo, &stubUploader{url: "u"}, nil, users.UploadModeSync)
	user, err := svc.Register(context.Background(), registerInput(stageTempAvatar(t)))
	require.NoError(t, err)

	login, err := svc.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), user.ID))
	stored, err := repo.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.Empty(t, stored.RefreshToken)

	_, err = svc.Refresh(context.Background(), login.RefreshToken)
	require.ErrorIs(t, err, shared.ErrInvalidToken)
}

func TestChangePassword(t *testing.T) {
	svc := newService(newMemRepo(), &stubUploader{url: "u"}, nil, users.UploadModeSync)
	user, err := svc.Register(context.Background(), registerInput(stageTempAvatar(t)))
	require.NoError(t, err)

	err = svc.ChangePassword(context.Background(), user.ID, "", "secret2")
	require.ErrorIs(t, err, shared.ErrValidation)

	err = svc.ChangePassword(context.Background(), user.ID, "wrong", "secret2")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	err = svc.ChangePassword(context.Background(), uuid.New(), "secret1", "secret2")
	require.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, svc.ChangePassword(context.Background(), user.ID, "secret1", "secret2"))

	_, err = svc.Login(context.Background(), "alice", "secret1")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	_, err = svc.Login(context.Background(), "alice", "secret2")
	require.NoError(t, err)
}

func TestResolveAccount(t *testing.T) {
	svc := newService(newMemRepo(), &stubUploader{url: "u"}, nil, users.UploadModeSync)
	user, err := svc.Register(context.Background(), registerInput(stageTempAvatar(t)))
	require.NoError(t, err)

	acc, err := svc.ResolveAccount(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, user.ID, acc.ID)
	require.Equal(t, "alice", acc.UserName)

	_, err = svc.ResolveAccount(context.Background(), uuid.New())
	require.ErrorIs(t, err, shared.ErrNotFound)
}
