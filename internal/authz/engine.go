package authz

import "context"

type Reason string

const (
	ReasonGranted         Reason = "granted"
	ReasonUnauthenticated Reason = "unauthenticated"
	ReasonForbidden       Reason = "forbidden"
)

// Decision is recomputed for every request and never stored.
type Decision struct {
	Allow  bool
	Reason Reason
}

// Err maps a deny to ErrUnauthenticated or ErrForbidden; nil when allowed.
func (d Decision) Err() error {
	switch {
	case d.Allow:
		return nil
	case d.Reason == ReasonUnauthenticated:
		return ErrUnauthenticated
	default:
		return ErrForbidden
	}
}

type Engine struct {
	policies *Policies
	owners   *Owners
}

func NewEngine(policies *Policies, owners *Owners) *Engine {
	return &Engine{policies: policies, owners: owners}
}

func (e *Engine) Policies() *Policies {
	return e.policies
}

// Check decides whether id may perform action on target. Grants are OR'd.
// Role-only grants are tried before ownership grants so the loader is only
// consulted when nothing cheaper matches. The returned error is reserved for
// collaborator failures.
func (e *Engine) Check(ctx context.Context, id Identity, action string, target Target) (Decision, error) {
	grants, ok := e.policies.Lookup(action)
	if !ok {
		grants = DefaultGrants
	}
	roles := Classify(id)

	var owned []Grant
	for _, g := range grants {
		if g.RequiresOwnership {
			owned = append(owned, g)
			continue
		}
		if roles.Has(g.Role) {
			return allow(), nil
		}
	}

	var (
		checked bool
		isOwner bool
	)
	for _, g := range owned {
		if g.Role == RoleSelf {
			if !id.Authenticated {
				continue
			}
		} else if !roles.Has(g.Role) {
			continue
		}
		if !checked {
			var err error
			isOwner, err = e.owners.IsOwner(ctx, id, target)
			if err != nil {
				return Decision{}, err
			}
			checked = true
		}
		if isOwner {
			return allow(), nil
		}
	}
	return deny(id), nil
}

func allow() Decision {
	return Decision{Allow: true, Reason: ReasonGranted}
}

func deny(id Identity) Decision {
	if !id.Authenticated {
		return Decision{Reason: ReasonUnauthenticated}
	}
	return Decision{Reason: ReasonForbidden}
}
