package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"lecturehub/internal/authz"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("username or email already registered")
)

const accountSelect = `
	SELECT a.id, a.username, a.email, a.password_hash, a.is_superuser, a.is_staff, a.created_at,
	       COALESCE(array_agg(g.name ORDER BY g.name) FILTER (WHERE g.name IS NOT NULL), '{}')
	FROM accounts a
	LEFT JOIN account_groups ag ON ag.account_id = a.id
	LEFT JOIN groups g ON g.id = ag.group_id
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*Account, error) {
	a := &Account{}
	var groups pq.StringArray
	if err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.IsSuperuser, &a.IsStaff,
		&a.CreatedAt, &groups); err != nil {
		return nil, err
	}
	a.Groups = []string(groups)
	return a, nil
}

func (s *Store) getOne(ctx context.Context, where string, arg any) (*Account, error) {
	row := s.db.QueryRowContext(ctx, accountSelect+" WHERE "+where+" GROUP BY a.id", arg)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return a, nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (*Account, error) {
	return s.getOne(ctx, "a.id = $1", id)
}

func (s *Store) GetByUsername(ctx context.Context, username string) (*Account, error) {
	return s.getOne(ctx, "a.username = $1", username)
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return s.getOne(ctx, "lower(a.email) = lower($1)", email)
}

// Load implements authz.Loader for accounts.
func (s *Store) Load(ctx context.Context, kind authz.Kind, id int64) (any, error) {
	a, err := s.GetByID(ctx, id)
	if errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("%s %d: %w", kind, id, authz.ErrResourceAbsent)
	}
	return a, err
}

func (s *Store) List(ctx context.Context) ([]Account, error) {
	rows, err := s.db.QueryContext(ctx, accountSelect+" GROUP BY a.id ORDER BY a.id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

type NewAccount struct {
	Username    string
	Email       string
	Password    string
	IsSuperuser bool
	IsStaff     bool
	Groups      []string
}

func hashPassword(password string) (string, error) {
	if err := CheckPassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

func (s *Store) Create(ctx context.Context, na NewAccount) (*Account, error) {
	hash, err := hashPassword(na.Password)
	if err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	const q = `
		INSERT INTO accounts (username, email, password_hash, is_superuser, is_staff, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	var id int64
	if err := tx.QueryRowContext(ctx, q, na.Username, na.Email, hash, na.IsSuperuser, na.IsStaff,
		time.Now().UTC()).Scan(&id); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrUserExists
		}
		return nil, err
	}
	if err := setGroups(ctx, tx, id, na.Groups); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// SetGroups replaces the account's group memberships, creating missing groups.
func (s *Store) SetGroups(ctx context.Context, accountID int64, groups []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := setGroups(ctx, tx, accountID, groups); err != nil {
		return err
	}
	return tx.Commit()
}

func setGroups(ctx context.Context, tx *sql.Tx, accountID int64, groups []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM account_groups WHERE account_id = $1`, accountID); err != nil {
		return fmt.Errorf("clear groups: %w", err)
	}
	if len(groups) == 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO groups (name) SELECT unnest($1::text[]) ON CONFLICT (name) DO NOTHING`,
		pq.Array(groups)); err != nil {
		return fmt.Errorf("ensure groups: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO account_groups (account_id, group_id) SELECT $1, id FROM groups WHERE name = ANY($2)`,
		accountID, pq.Array(groups)); err != nil {
		return fmt.Errorf("link groups: %w", err)
	}
	return nil
}

func (s *Store) SetPassword(ctx context.Context, accountID int64, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE accounts SET password_hash = $1 WHERE id = $2`, hash, accountID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *Store) ListGroups(ctx context.Context) ([]Group, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM groups ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	return result, rows.Err()
}

type usersFile struct {
	Users []struct {
		Username  string   `yaml:"username"`
		Email     string   `yaml:"email"`
		Password  string   `yaml:"password"`
		Superuser bool     `yaml:"superuser"`
		Staff     bool     `yaml:"staff"`
		Groups    []string `yaml:"groups"`
	} `yaml:"users"`
}

// SeedFromFile creates the accounts listed in a yaml file unless they exist.
func (s *Store) SeedFromFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var uf usersFile
	if err := yaml.Unmarshal(data, &uf); err != nil {
		return err
	}
	for _, u := range uf.Users {
		if u.Username == "" || u.Password == "" || u.Email == "" {
			continue
		}
		if _, err := s.GetByUsername(ctx, u.Username); err == nil {
			continue
		} else if !errors.Is(err, ErrUserNotFound) {
			return err
		}
		if _, err := s.Create(ctx, NewAccount{
			Username:    u.Username,
			Email:       u.Email,
			Password:    u.Password,
			IsSuperuser: u.Superuser,
			IsStaff:     u.Staff,
			Groups:      u.Groups,
		}); err != nil {
			return fmt.Errorf("seed %s: %w", u.Username, err)
		}
	}
	return nil
}
