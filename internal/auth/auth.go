package auth

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	store    *Store
	secret   []byte
	ttl      time.Duration
	validate *validator.Validate
}

func NewService(store *Store, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		store:    store,
		secret:   []byte(secret),
		ttl:      ttl,
		validate: validator.New(),
	}
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrPasswordLength     = errors.New("password must be between 8 and 72 bytes")
)

// Password limits count bytes, not characters: bcrypt rejects input longer
// than 72 bytes.
const (
	MinPasswordBytes = 8
	MaxPasswordBytes = 72
)

// CheckPassword reports whether password can be hashed.
func CheckPassword(password string) error {
	if len(password) < MinPasswordBytes || len(password) > MaxPasswordBytes {
		return ErrPasswordLength
	}
	return nil
}

// Authenticate accepts either a username or an email address as login.
func (s *Service) Authenticate(ctx context.Context, login, password string) (*Account, string, error) {
	var (
		account *Account
		err     error
	)
	if s.validate.Var(login, "email") == nil {
		account, err = s.store.GetByEmail(ctx, login)
	} else {
		account, err = s.store.GetByUsername(ctx, login)
	}
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.issueToken(account)
	if err != nil {
		return nil, "", err
	}
	return account, token, nil
}

// Register creates a self-service account. It only ever joins the
// potential_lecturer group.
func (s *Service) Register(ctx context.Context, username, email, password string) (*Account, error) {
	if err := CheckPassword(password); err != nil {
		return nil, err
	}
	return s.store.Create(ctx, NewAccount{
		Username: username,
		Email:    email,
		Password: password,
		Groups:   []string{GroupPotentialLecturer},
	})
}

// Claims carry only the account reference; flags and groups are loaded per
// request so membership changes apply without reissuing tokens.
type Claims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func (s *Service) issueToken(account *Account) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID:   account.ID,
		Username: account.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.secret)
}

func (s *Service) ParseToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
