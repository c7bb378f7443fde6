package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"lecturehub/internal/authz"
	"lecturehub/internal/httpx"
)

type Handler struct {
	Service  *Service
	Store    *Store
	Logger   *slog.Logger
	validate *validator.Validate
}

func NewHandler(svc *Service, store *Store, logger *slog.Logger) *Handler {
	return &Handler{Service: svc, Store: store, Logger: logger, validate: validator.New()}
}

// Mount registers account routes. Login and registration are rate limited
// per client address.
func (h *Handler) Mount(r chi.Router, gate *authz.Gate) {
	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(20, time.Minute))
		r.With(gate.Require("auth.login", nil)).Post("/auth/login", h.login)
		r.With(gate.Require("auth.register", nil)).Post("/auth/register", h.register)
	})

	r.With(gate.Require("users.list", nil)).Get("/users", h.listUsers)
	r.With(gate.Require("users.me", nil)).Get("/users/me", h.me)
	r.With(gate.Require("users.retrieve", authz.ByID(KindAccount, "id"))).Get("/users/{id}", h.getUser)
	r.With(gate.Require("users.destroy", authz.ByID(KindAccount, "id"))).Delete("/users/{id}", h.deleteUser)
	r.With(gate.Require("users.set_groups", authz.ByID(KindAccount, "id"))).Put("/users/{id}/groups", h.setGroups)
	r.With(gate.Require("groups.list", nil)).Get("/groups", h.listGroups)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Login    string `json:"login" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.ValidationError(w, err)
		return
	}
	account, token, err := h.Service.Authenticate(r.Context(), payload.Login, payload.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			httpx.Error(w, http.StatusUnauthorized, err.Error())
			return
		}
		h.Logger.Error("authenticate", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "login failed")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  account,
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username" validate:"required,alphanum,min=3,max=150"`
		Email    string `json:"email" validate:"required,email,max=200"`
		Password string `json:"password" validate:"required,min=8,max=72"`
	}
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.ValidationError(w, err)
		return
	}
	account, err := h.Service.Register(r.Context(), payload.Username, payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			httpx.Error(w, http.StatusConflict, err.Error())
			return
		}
		if errors.Is(err, ErrPasswordLength) {
			httpx.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		h.Logger.Error("register", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "registration failed")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, account)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	id := authz.IdentityFromContext(r.Context())
	h.writeAccount(w, r, id.AccountID)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "invalid id")
		return
	}
	h.writeAccount(w, r, id)
}

func (h *Handler) writeAccount(w http.ResponseWriter, r *http.Request, id int64) {
	account, err := h.Store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			httpx.Error(w, http.StatusNotFound, err.Error())
			return
		}
		h.Logger.Error("get account", "err", err, "id", id)
		httpx.Error(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, account)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Store.List(r.Context())
	if err != nil {
		h.Logger.Error("list accounts", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	if accounts == nil {
		accounts = []Account{}
	}
	httpx.WriteJSON(w, http.StatusOK, accounts)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.Store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			httpx.Error(w, http.StatusNotFound, err.Error())
			return
		}
		h.Logger.Error("delete account", "err", err, "id", id)
		httpx.Error(w, http.StatusInternalServerError, "failed to delete user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setGroups(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "invalid id")
		return
	}
	var payload struct {
		Groups []string `json:"groups" validate:"dive,required,max=150"`
	}
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.ValidationError(w, err)
		return
	}
	if _, err := h.Store.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			httpx.Error(w, http.StatusNotFound, err.Error())
			return
		}
		h.Logger.Error("get account", "err", err, "id", id)
		httpx.Error(w, http.StatusInternalServerError, "failed to update groups")
		return
	}
	if err := h.Store.SetGroups(r.Context(), id, payload.Groups); err != nil {
		h.Logger.Error("set groups", "err", err, "id", id)
		httpx.Error(w, http.StatusInternalServerError, "failed to update groups")
		return
	}
	h.writeAccount(w, r, id)
}

func (h *Handler) listGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.Store.ListGroups(r.Context())
	if err != nil {
		h.Logger.Error("list groups", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "failed to list groups")
		return
	}
	if groups == nil {
		groups = []Group{}
	}
	httpx.WriteJSON(w, http.StatusOK, groups)
}
