package reset

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"lecturehub/internal/auth"
	"lecturehub/internal/authz"
	"lecturehub/internal/httpx"
)

type Handler struct {
	Service  *Service
	Logger   *slog.Logger
	validate *validator.Validate
}

func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{Service: svc, Logger: logger, validate: validator.New()}
}

func (h *Handler) Mount(r chi.Router, gate *authz.Gate) {
	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(10, time.Minute))
		r.With(gate.Require("password_reset.request", nil)).Post("/password_reset", h.request)
		r.With(gate.Require("password_reset.confirm", nil)).Post("/password_reset/confirm", h.confirm)
	})
}

// request always answers 202 so callers cannot learn which emails are registered.
func (h *Handler) request(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email" validate:"required,email"`
	}
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.ValidationError(w, err)
		return
	}
	if err := h.Service.Issue(r.Context(), payload.Email); err != nil {
		h.Logger.Error("issue password reset", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "password reset unavailable")
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "ok"})
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Token    string `json:"token" validate:"required"`
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
	if err := h.Service.Confirm(r.Context(), payload.Token, payload.Password); err != nil {
		if errors.Is(err, ErrTokenInvalid) || errors.Is(err, auth.ErrPasswordLength) {
			httpx.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		h.Logger.Error("confirm password reset", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "password reset unavailable")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
