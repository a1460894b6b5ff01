package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/frahmantamala/number-provisioning/internal"
	"github.com/frahmantamala/number-provisioning/internal/transport"
	"github.com/frahmantamala/number-provisioning/pkg/logger"
)

type Authenticator interface {
	Authenticate(ctx context.Context, tokenString string) (*internal.Account, error)
}

// RequireAccount rejects requests without a valid bearer token and stores the
// account in the request context.
func RequireAccount(authenticator Authenticator, base *transport.BaseHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				base.HandleError(w, internal.ErrAuthRequired)
				return
			}

			account, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				base.HandleServiceError(w, err)
				return
			}

			ctx := internal.ContextWithAccount(r.Context(), account)
			ctx = logger.With(ctx, "account_id", account.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
