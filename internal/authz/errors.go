package authz

import "errors"

var (
	// ErrUnauthenticated is a deny for a caller without a valid credential.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden is a deny for an authenticated caller.
	ErrForbidden = errors.New("insufficient role membership")
	// ErrResourceAbsent is returned by a Loader when the record does not exist.
	ErrResourceAbsent = errors.New("resource absent")
	// ErrBadTarget is returned by a TargetFunc when the request does not name
	// a resource it can address.
	ErrBadTarget = errors.New("invalid resource reference")
)
