package internal

import (
	"context"
	"time"
)

type ctxKey string

const ContextAccountKey ctxKey = "account"

// Account is the authenticated caller as supplied by the session collaborator.
type Account struct {
	ID    int64  `json:"id"`
	Email string `json:"email,omitempty"`
}

func AccountFromContext(ctx context.Context) (*Account, bool) {
	if ctx == nil {
		return nil, false
	}
	account, ok := ctx.Value(ContextAccountKey).(*Account)
	if !ok || account == nil || account.ID <= 0 {
		return nil, false
	}
	return account, true
}

func ContextWithAccount(ctx context.Context, account *Account) context.Context {
	return context.WithValue(ctx, ContextAccountKey, account)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
