package authz

import "context"

// Identity is the caller of a single request. The zero value is anonymous.
type Identity struct {
	Authenticated bool
	AccountID     int64
	Username      string
	Email         string
	Superuser     bool
	Staff         bool
	Groups        []string
}

// Anonymous is the identity used whenever no valid credential is presented.
var Anonymous = Identity{}

func (id Identity) InGroup(name string) bool {
	for _, g := range id.Groups {
		if g == name {
			return true
		}
	}
	return false
}

func (id Identity) String() string {
	if !id.Authenticated {
		return "anonymous"
	}
	return id.Username
}

type contextKey string

const identityContextKey contextKey = "lecturehub_identity"

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// IdentityFromContext returns Anonymous when nothing was attached.
func IdentityFromContext(ctx context.Context) Identity {
	id, ok := ctx.Value(identityContextKey).(Identity)
	if !ok {
		return Anonymous
	}
	return id
}
