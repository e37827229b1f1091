package auth_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/vidora-app/vidora/internal/auth"
	"github.com/vidora-app/vidora/internal/shared"
)

func testIssuer(accessTTL, refreshTTL time.Duration) *auth.TokenIssuer {
	return auth.NewTokenIssuer(auth.TokenConfig{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
	})
}

func testAccount() *shared.Account {
	return &shared.Account{
		ID:       uuid.New(),
		UserName: "alice",
		Email:    "a@x.com",
		FullName: "Alice A",
	}
}

func TestIssueAndVerifyAccess(t *testing.T) {
	issuer := testIssuer(time.Minute, time.Hour)
	acc := testAccount()

	token, err := issuer.IssueAccess(acc)
	require.NoError(t, err)

	claims, err := issuer.VerifyAccess(token)
	require.NoError(t, err)
	require.Equal(t, acc.ID.String(), claims.Subject)
	require.Equal(t, "alice", claims.UserName)
	require.Equal(t, "a@x.com", claims.Email)
}

func TestIssueAndVerifyRefresh(t *testing.T) {
	issuer := testIssuer(time.Minute, time.Hour)
	acc := testAccount()

	token, err := issuer.IssueRefresh(acc)
	require.NoError(t, err)

	claims, err := issuer.VerifyRefresh(token)
	require.NoError(t, err)
	require.Equal(t, acc.ID.String(), claims.Subject)
}

func TestVerifyExpiredToken(t *testing.T) {
	issuer := testIssuer(-time.Minute, -time.Minute)
	acc := testAccount()

	access, err := issuer.IssueAccess(acc)
	require.NoError(t, err)
	_, err = issuer.VerifyAccess(access)
	require.ErrorIs(t, err, shared.ErrInvalidToken)

	refresh, err := issuer.IssueRefresh(acc)
	require.NoError(t, err)
	_, err = issuer.VerifyRefresh(refresh)
	require.ErrorIs(t, err, shared.ErrInvalidToken)
}

func TestVerifyTamperedToken(t *testing.T) {
	issuer := testIssuer(time.Minute, time.Hour)

	token, err := issuer.IssueAccess(testAccount())
	require.NoError(t, err)

	_, err = issuer.VerifyAccess(token + "x")
	require.ErrorIs(t, err, shared.ErrInvalidToken)

	_, err = issuer.VerifyAccess("not.a.token")
	require.ErrorIs(t, err, shared.ErrInvalidToken)
}

func TestTokenKindsUseDistinctSecrets(t *testing.T) {
	issuer := testIssuer(time.Minute, time.Hour)
	acc := testAccount()

	access, err := issuer.IssueAccess(acc)
	require.NoError(t, err)
	refresh, err := issuer.IssueRefresh(acc)
	require.NoError(t, err)

	_, err = issuer.VerifyRefresh(access)
	require.ErrorIs(t, err, shared.ErrInvalidToken)
	_, err = issuer.VerifyAccess(refresh)
	require.ErrorIs(t, err, shared.ErrInvalidToken)
}
