package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"lecturehub/internal/authz"
	"lecturehub/internal/httpx"
)

type TokenVerifier interface {
	ParseToken(token string) (*Claims, error)
}

type AccountSource interface {
	GetByID(ctx context.Context, id int64) (*Account, error)
}

// Resolver turns the Authorization header into an identity. Anything short
// of a valid token for an existing account resolves to authz.Anonymous.
type Resolver struct {
	tokens   TokenVerifier
	accounts AccountSource
}

func NewResolver(tokens TokenVerifier, accounts AccountSource) *Resolver {
	return &Resolver{tokens: tokens, accounts: accounts}
}

// Resolve only fails when the account source does.
func (r *Resolver) Resolve(ctx context.Context, header string) (authz.Identity, error) {
	token, ok := bearerToken(header)
	if !ok {
		return authz.Anonymous, nil
	}
	claims, err := r.tokens.ParseToken(token)
	if err != nil {
		return authz.Anonymous, nil
	}
	account, err := r.accounts.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return authz.Anonymous, nil
		}
		return authz.Anonymous, err
	}
	return account.Identity(), nil
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// Middleware attaches the resolved identity to every request. It never
// rejects; authorization is left to authz.Gate.
func Middleware(res *Resolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := res.Resolve(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				logger.Error("resolve identity", "err", err)
				httpx.Error(w, http.StatusInternalServerError, "identity unavailable")
				return
			}
			next.ServeHTTP(w, r.WithContext(authz.WithIdentity(r.Context(), id)))
		})
	}
}
