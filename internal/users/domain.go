package users

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/vidora-app/vidora/internal/shared"
)

// User is the persisted account record. PasswordHash and RefreshToken never
// leave the service layer.
type User struct {
	ID           uuid.UUID
	UserName     string
	Email        string
	FullName     string
	AvatarURL    string
	PasswordHash string
	RefreshToken string
	WatchHistory []uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the JSON shape returned to clients, with credentials stripped.
type Profile struct {
	ID           string    `json:"id"`
	UserName     string    `json:"userName"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	Avatar       string    `json:"avatar"`
	WatchHistory []string  `json:"watchHistory"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Profile strips credential fields from the record.
func (u *User) Profile() Profile {
	history := make([]string, len(u.WatchHistory))
	for i, ref := range u.WatchHistory {
		history[i] = ref.String()
	}
	return Profile{
		ID:           u.ID.String(),
		UserName:     u.UserName,
		Email:        u.Email,
		FullName:     u.FullName,
		Avatar:       u.AvatarURL,
		WatchHistory: history,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// Account converts the record into the identity shape carried on request
// contexts.
func (u *User) Account() *shared.Account {
	return &shared.Account{
		ID:        u.ID,
		UserName:  u.UserName,
		Email:     u.Email,
		FullName:  u.FullName,
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// NormalizeIdentifier trims, NFC-normalizes and lowercases usernames and
// emails so uniqueness and lookups are case-insensitive.
func NormalizeIdentifier(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}
