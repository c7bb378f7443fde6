// Package reset implements password reset through single-use tokens kept in
// redis.
package reset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"lecturehub/internal/auth"
)

const keyPrefix = "password_reset:"

var ErrTokenInvalid = errors.New("reset token is invalid or expired")

type Accounts interface {
	GetByEmail(ctx context.Context, email string) (*auth.Account, error)
	SetPassword(ctx context.Context, accountID int64, password string) error
}

// Notifier delivers the reset link to the account holder.
type Notifier interface {
	Notify(ctx context.Context, account *auth.Account, link string) error
}

// LogNotifier writes the link to the log instead of sending it.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, account *auth.Account, link string) error {
	n.Logger.Info("password reset issued", "account", account.Username, "link", link)
	return nil
}

type Service struct {
	rdb      *redis.Client
	accounts Accounts
	notifier Notifier
	ttl      time.Duration
	baseURL  string
}

func NewService(rdb *redis.Client, accounts Accounts, notifier Notifier, ttl time.Duration, baseURL string) *Service {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{rdb: rdb, accounts: accounts, notifier: notifier, ttl: ttl, baseURL: baseURL}
}

// Issue creates a token for the account registered under email. Unknown
// addresses succeed without doing anything.
func (s *Service) Issue(ctx context.Context, email string) error {
	account, err := s.accounts.GetByEmail(ctx, email)
	if errors.Is(err, auth.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	token := uuid.NewString()
	if err := s.rdb.Set(ctx, keyPrefix+token, account.ID, s.ttl).Err(); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	return s.notifier.Notify(ctx, account, s.link(token))
}

func (s *Service) link(token string) string {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return token
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// Confirm consumes token and sets the new password. A token is accepted at
// most once; a password that cannot be stored leaves the token unspent.
func (s *Service) Confirm(ctx context.Context, token, password string) error {
	if err := auth.CheckPassword(password); err != nil {
		return err
	}
	if _, err := uuid.Parse(token); err != nil {
		return ErrTokenInvalid
	}
	accountID, err := s.rdb.GetDel(ctx, keyPrefix+token).Int64()
	if errors.Is(err, redis.Nil) {
		return ErrTokenInvalid
	}
	if err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	if err := s.accounts.SetPassword(ctx, accountID, password); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return ErrTokenInvalid
		}
		return err
	}
	return nil
}
