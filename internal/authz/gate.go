package authz

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"lecturehub/internal/httpx"
)

// TargetFunc extracts the action target from a request. Errors wrapping
// ErrBadTarget are answered with 400 before any decision is made.
type TargetFunc func(r *http.Request) (Target, error)

// NoTarget is used by collection actions such as list and create.
func NoTarget(*http.Request) (Target, error) { return Target{}, nil }

// ByID addresses the primary resource by the named URL parameter.
func ByID(kind Kind, param string) TargetFunc {
	return func(r *http.Request) (Target, error) {
		id, ok := httpx.IDParam(r, param)
		if !ok {
			return Target{}, fmt.Errorf("%w: %s", ErrBadTarget, param)
		}
		return Target{Kind: kind, ID: id}, nil
	}
}

// BySub addresses a secondary resource, e.g. the lecturer in by-lecturer routes.
func BySub(kind, subKind Kind, param string) TargetFunc {
	return func(r *http.Request) (Target, error) {
		id, ok := httpx.IDParam(r, param)
		if !ok {
			return Target{}, fmt.Errorf("%w: %s", ErrBadTarget, param)
		}
		return Target{Kind: kind, SubKind: subKind, SubID: id}, nil
	}
}

// Gate turns engine decisions into HTTP middleware and records every action
// it guards so the policy table can be validated against the routes.
type Gate struct {
	engine *Engine
	logger *slog.Logger

	mu      sync.Mutex
	actions map[string]struct{}
}

func NewGate(engine *Engine, logger *slog.Logger) *Gate {
	return &Gate{engine: engine, logger: logger, actions: make(map[string]struct{})}
}

func (g *Gate) Require(action string, target TargetFunc) func(http.Handler) http.Handler {
	g.mu.Lock()
	g.actions[action] = struct{}{}
	g.mu.Unlock()

	if target == nil {
		target = NoTarget
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFromContext(r.Context())
			t, err := target(r)
			if err != nil {
				if errors.Is(err, ErrBadTarget) {
					httpx.Error(w, http.StatusBadRequest, err.Error())
					return
				}
				g.logger.Error("resolve target", "err", err, "action", action)
				httpx.Error(w, http.StatusInternalServerError, "authorization unavailable")
				return
			}
			decision, err := g.engine.Check(r.Context(), id, action, t)
			if err != nil {
				g.logger.Error("authorize", "err", err, "action", action, "identity", id.String())
				httpx.Error(w, http.StatusInternalServerError, "authorization unavailable")
				return
			}
			g.logger.Debug("authorize", "action", action, "identity", id.String(), "reason", decision.Reason)
			switch decision.Reason {
			case ReasonGranted:
				next.ServeHTTP(w, r)
			case ReasonUnauthenticated:
				httpx.Error(w, http.StatusUnauthorized, ErrUnauthenticated.Error())
			default:
				httpx.Error(w, http.StatusForbidden, ErrForbidden.Error())
			}
		})
	}
}

// Actions returns every action registered through Require.
func (g *Gate) Actions() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.actions))
	for a := range g.actions {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
