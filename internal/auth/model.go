package auth

import (
	"time"

	"lecturehub/internal/authz"
)

// GroupPotentialLecturer is the only group granted on self registration.
const GroupPotentialLecturer = string(authz.RolePotentialLecturer)

type Account struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsSuperuser  bool      `json:"is_superuser"`
	IsStaff      bool      `json:"is_staff"`
	Groups       []string  `json:"groups"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity snapshots the account for the current request.
func (a *Account) Identity() authz.Identity {
	groups := make([]string, len(a.Groups))
	copy(groups, a.Groups)
	return authz.Identity{
		Authenticated: true,
		AccountID:     a.ID,
		Username:      a.Username,
		Email:         a.Email,
		Superuser:     a.IsSuperuser,
		Staff:         a.IsStaff,
		Groups:        groups,
	}
}

type Group struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

const KindAccount authz.Kind = "account"

func (a *Account) OwnerAccountID() (int64, bool) { return a.ID, true }
