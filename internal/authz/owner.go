package authz

import (
	"context"
	"errors"
	"fmt"
)

// Kind names a resource type known to a Loader.
type Kind string

// Target addresses the resource an action operates on. SubKind/SubID carry a
// secondary identifier such as the lecturer in /schedules/by-lecturer/{id}.
type Target struct {
	Kind    Kind
	ID      int64
	SubKind Kind
	SubID   int64
}

// HasOwnerReference is implemented by resources linked directly to an account.
type HasOwnerReference interface {
	OwnerAccountID() (int64, bool)
}

// HasOwnerProfile is implemented by resources that reach their owner through
// exactly one related record, e.g. schedule -> lecturer -> account.
type HasOwnerProfile interface {
	OwnerProfile() (Kind, int64, bool)
}

// Loader is the persistence collaborator. Load must return ErrResourceAbsent
// (possibly wrapped) when the record does not exist.
type Loader interface {
	Load(ctx context.Context, kind Kind, id int64) (any, error)
}

// Owners decides whether an identity owns the target of an action.
type Owners struct {
	loader Loader
}

func NewOwners(loader Loader) *Owners {
	return &Owners{loader: loader}
}

// IsOwner never reports missing data as an error; only loader failures
// propagate.
func (o *Owners) IsOwner(ctx context.Context, id Identity, t Target) (bool, error) {
	if !id.Authenticated || o == nil || o.loader == nil {
		return false, nil
	}

	if t.SubKind != "" && t.SubID != 0 {
		sub, found, err := o.load(ctx, t.SubKind, t.SubID)
		if err != nil || !found {
			return false, err
		}
		return ownedBy(sub, id), nil
	}

	if t.Kind == "" || t.ID == 0 {
		return false, nil
	}
	res, found, err := o.load(ctx, t.Kind, t.ID)
	if err != nil || !found {
		return false, err
	}

	if linked, ok := res.(HasOwnerProfile); ok {
		if kind, profileID, ok := linked.OwnerProfile(); ok {
			profile, found, err := o.load(ctx, kind, profileID)
			if err != nil {
				return false, err
			}
			if found {
				if ref, ok := profile.(HasOwnerReference); ok {
					if _, hasAccount := ref.OwnerAccountID(); hasAccount {
						return ownedBy(profile, id), nil
					}
				}
			}
		}
	}

	return ownedBy(res, id), nil
}

func (o *Owners) load(ctx context.Context, kind Kind, id int64) (any, bool, error) {
	res, err := o.loader.Load(ctx, kind, id)
	if err != nil {
		if errors.Is(err, ErrResourceAbsent) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if res == nil {
		return nil, false, nil
	}
	return res, true, nil
}

func ownedBy(res any, id Identity) bool {
	ref, ok := res.(HasOwnerReference)
	if !ok {
		return false
	}
	owner, ok := ref.OwnerAccountID()
	return ok && owner == id.AccountID
}

// Loaders dispatches to one Loader per resource kind.
type Loaders map[Kind]Loader

func (l Loaders) Load(ctx context.Context, kind Kind, id int64) (any, error) {
	loader, ok := l[kind]
	if !ok {
		return nil, fmt.Errorf("no loader for %s: %w", kind, ErrResourceAbsent)
	}
	return loader.Load(ctx, kind, id)
}
