package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Account is the resolved identity attached to authenticated requests.
type Account struct {
	ID        uuid.UUID
	UserName  string
	Email     string
	FullName  string
	AvatarURL string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type accountContextKey struct{}

// ContextWithAccount stores the authenticated account in context.
func ContextWithAccount(ctx context.Context, acc *Account) context.Context {
	return context.WithValue(ctx, accountContextKey{}, acc)
}

// AccountFromContext extracts the authenticated account from context.
func AccountFromContext(ctx context.Context) *Account {
	acc, _ := ctx.Value(accountContextKey{}).(*Account)
	return acc
}
