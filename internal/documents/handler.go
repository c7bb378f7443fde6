package documents

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"lecturehub/internal/authz"
	"lecturehub/internal/httpx"
)

type Handler struct {
	Store    *Store
	Logger   *slog.Logger
	validate *validator.Validate
}

func NewHandler(store *Store, logger *slog.Logger) *Handler {
	return &Handler{Store: store, Logger: logger, validate: validator.New()}
}

// Mount registers document routes. None of these actions carry ownership
// rules.
func (h *Handler) Mount(r chi.Router, gate *authz.Gate) {
	r.Route("/document_types", func(r chi.Router) {
		r.With(gate.Require("document_types.list", nil)).Get("/", h.listTypes)
		r.With(gate.Require("document_types.create", nil)).Post("/", h.createType)
		r.With(gate.Require("document_types.retrieve", nil)).Get("/{id}", h.getType)
		r.With(gate.Require("document_types.update", nil)).Put("/{id}", h.updateType)
		r.With(gate.Require("document_types.destroy", nil)).Delete("/{id}", h.deleteType)
	})
	r.Route("/documents", func(r chi.Router) {
		r.With(gate.Require("documents.list", nil)).Get("/", h.list)
		r.With(gate.Require("documents.create", nil)).Post("/", h.create)
		r.With(gate.Require("documents.retrieve", nil)).Get("/{id}", h.get)
		r.With(gate.Require("documents.update", nil)).Put("/{id}", h.update)
		r.With(gate.Require("documents.destroy", nil)).Delete("/{id}", h.delete)
	})
}

func (h *Handler) fail(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicate):
		httpx.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrUnknownType):
		httpx.Error(w, http.StatusBadRequest, err.Error())
	default:
		h.Logger.Error(op, "err", err)
		httpx.Error(w, http.StatusInternalServerError, op+" failed")
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request payload")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		httpx.ValidationError(w, err)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "invalid id")
	}
	return id, ok
}

func (h *Handler) listTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Store.ListTypes(r.Context())
	if err != nil {
		h.fail(w, err, "list document types")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, types)
}

func (h *Handler) getType(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := h.Store.GetType(r.Context(), id)
	if err != nil {
		h.fail(w, err, "get document type")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) createType(w http.ResponseWriter, r *http.Request) {
	var t DocumentType
	if !h.decode(w, r, &t) {
		return
	}
	if err := h.Store.CreateType(r.Context(), &t); err != nil {
		h.fail(w, err, "create document type")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) updateType(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var t DocumentType
	if !h.decode(w, r, &t) {
		return
	}
	t.ID = id
	if err := h.Store.UpdateType(r.Context(), &t); err != nil {
		h.fail(w, err, "update document type")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) deleteType(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Store.DeleteType(r.Context(), id); err != nil {
		h.fail(w, err, "delete document type")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// list accepts an optional ?type=<id> filter.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var typeID int64
	if v := r.URL.Query().Get("type"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			httpx.Error(w, http.StatusBadRequest, "invalid type")
			return
		}
		typeID = id
	}
	docs, err := h.Store.List(r.Context(), typeID)
	if err != nil {
		h.fail(w, err, "list documents")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, docs)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, err := h.Store.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err, "get document")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var d Document
	if !h.decode(w, r, &d) {
		return
	}
	if err := h.Store.Create(r.Context(), &d); err != nil {
		h.fail(w, err, "create document")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, d)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var d Document
	if !h.decode(w, r, &d) {
		return
	}
	d.ID = id
	if err := h.Store.Update(r.Context(), &d); err != nil {
		h.fail(w, err, "update document")
		return
	}
	h.get(w, r)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Store.Delete(r.Context(), id); err != nil {
		h.fail(w, err, "delete document")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
