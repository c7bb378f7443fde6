package authz

import (
	"context"
	"errors"
	"fmt"
)

// Shared fixtures for the package tests.

type account struct {
	id     int64
	linked bool
}

func (a account) OwnerAccountID() (int64, bool) { return a.id, a.linked }

type record struct {
	profile Kind
	id      int64
}

func (r record) OwnerProfile() (Kind, int64, bool) { return r.profile, r.id, r.id != 0 }

type directRecord struct {
	owner int64
}

func (d directRecord) OwnerAccountID() (int64, bool) { return d.owner, d.owner != 0 }

type orphan struct{}

type fakeLoader struct {
	data  map[Kind]map[int64]any
	err   error
	calls int
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{data: make(map[Kind]map[int64]any)}
}

func (f *fakeLoader) put(kind Kind, id int64, v any) *fakeLoader {
	if f.data[kind] == nil {
		f.data[kind] = make(map[int64]any)
	}
	f.data[kind][id] = v
	return f
}

func (f *fakeLoader) Load(ctx context.Context, kind Kind, id int64) (any, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.data[kind][id]
	if !ok {
		return nil, fmt.Errorf("load %s %d: %w", kind, id, ErrResourceAbsent)
	}
	return v, nil
}

var errDown = errors.New("database unavailable")

func user(accountID int64, groups ...string) Identity {
	return Identity{
		Authenticated: true,
		AccountID:     accountID,
		Username:      fmt.Sprintf("user%d", accountID),
		Groups:        groups,
	}
}

const (
	kindLecturer Kind = "lecturer"
	kindSchedule Kind = "schedule"
	kindNote     Kind = "note"
	kindOrphan   Kind = "orphan"
)
