package lecturers

import (
	"errors"
	"log/slog"
	"net/http"

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

// Mount registers the academic record routes. Every route is gated by the
// action named next to it.
func (h *Handler) Mount(r chi.Router, gate *authz.Gate) {
	byID := func(kind authz.Kind) authz.TargetFunc { return authz.ByID(kind, "id") }

	r.Route("/courses", func(r chi.Router) {
		r.With(gate.Require("courses.list", nil)).Get("/", h.listCourses)
		r.With(gate.Require("courses.create", nil)).Post("/", h.createCourse)
		r.With(gate.Require("courses.retrieve", byID(KindCourse))).Get("/{id}", h.getCourse)
		r.With(gate.Require("courses.update", byID(KindCourse))).Put("/{id}", h.updateCourse)
		r.With(gate.Require("courses.destroy", byID(KindCourse))).Delete("/{id}", h.deleteCourse)
	})

	r.Route("/lecturers", func(r chi.Router) {
		r.With(gate.Require("lecturers.list", nil)).Get("/", h.listLecturers)
		r.With(gate.Require("lecturers.create", nil)).Post("/", h.createLecturer)
		r.With(gate.Require("lecturers.potential_lecturers", nil)).Get("/potential", h.listPotentialLecturers)
		r.With(gate.Require("lecturers.me", nil)).Get("/me", h.myLecturer)
		r.With(gate.Require("lecturers.me", nil)).Put("/me", h.saveMyLecturer)
		r.With(gate.Require("lecturers.me", nil)).Post("/me", h.saveMyLecturer)
		r.With(gate.Require("lecturers.retrieve", byID(KindLecturer))).Get("/{id}", h.getLecturer)
		r.With(gate.Require("lecturers.update", byID(KindLecturer))).Put("/{id}", h.updateLecturer)
		r.With(gate.Require("lecturers.partial_update", byID(KindLecturer))).Patch("/{id}", h.setLecturerStatus)
		r.With(gate.Require("lecturers.destroy", byID(KindLecturer))).Delete("/{id}", h.deleteLecturer)
	})

	r.Route("/classes", func(r chi.Router) {
		r.With(gate.Require("classes.list", nil)).Get("/", h.listClasses)
		r.With(gate.Require("classes.create", nil)).Post("/", h.createClass)
		r.With(gate.Require("classes.retrieve", byID(KindClass))).Get("/{id}", h.getClass)
		r.With(gate.Require("classes.update", byID(KindClass))).Put("/{id}", h.updateClass)
		r.With(gate.Require("classes.destroy", byID(KindClass))).Delete("/{id}", h.deleteClass)
	})

	r.Route("/schedules", func(r chi.Router) {
		r.With(gate.Require("schedules.list", nil)).Get("/", h.listSchedules)
		r.With(gate.Require("schedules.create", nil)).Post("/", h.createSchedule)
		r.With(gate.Require("schedules.me", nil)).Get("/me", h.mySchedules)
		r.With(gate.Require("schedules.by_lecturer", authz.BySub(KindSchedule, KindLecturer, "lecturerID"))).
			Get("/by-lecturer/{lecturerID}", h.schedulesByLecturer)
		r.With(gate.Require("schedules.retrieve", byID(KindSchedule))).Get("/{id}", h.getSchedule)
		r.With(gate.Require("schedules.update", byID(KindSchedule))).Put("/{id}", h.updateSchedule)
		r.With(gate.Require("schedules.destroy", byID(KindSchedule))).Delete("/{id}", h.deleteSchedule)
	})

	r.Route("/evaluations", func(r chi.Router) {
		r.With(gate.Require("evaluations.list", nil)).Get("/", h.listEvaluations)
		r.With(gate.Require("evaluations.create", nil)).Post("/", h.createEvaluation)
		r.With(gate.Require("evaluations.me", nil)).Get("/me", h.myEvaluations)
		r.With(gate.Require("evaluations.by_lecturer", authz.BySub(KindEvaluation, KindLecturer, "lecturerID"))).
			Get("/by-lecturer/{lecturerID}", h.evaluationsByLecturer)
		r.With(gate.Require("evaluations.retrieve", byID(KindEvaluation))).Get("/{id}", h.getEvaluation)
		r.With(gate.Require("evaluations.update", byID(KindEvaluation))).Put("/{id}", h.updateEvaluation)
		r.With(gate.Require("evaluations.destroy", byID(KindEvaluation))).Delete("/{id}", h.deleteEvaluation)
	})

	r.Route("/recommendations", func(r chi.Router) {
		r.With(gate.Require("recommendations.list", nil)).Get("/", h.listRecommendations)
		r.With(gate.Require("recommendations.create", nil)).Post("/", h.createRecommendation)
		r.With(gate.Require("recommendations.me", nil)).Get("/me", h.myRecommendations)
		r.With(gate.Require("recommendations.me", nil)).Post("/me", h.createMyRecommendation)
		r.With(gate.Require("recommendations.retrieve", byID(KindRecommendation))).Get("/{id}", h.getRecommendation)
		r.With(gate.Require("recommendations.update", byID(KindRecommendation))).Put("/{id}", h.updateRecommendation)
		r.With(gate.Require("recommendations.destroy", byID(KindRecommendation))).Delete("/{id}", h.deleteRecommendation)
	})
}

// decode reads and validates a payload, writing the 400 itself.
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

func (h *Handler) fail(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Error(w, http.StatusNotFound, op+": not found")
	case errors.Is(err, ErrConflict):
		httpx.Error(w, http.StatusConflict, op+": "+err.Error())
	case errors.Is(err, ErrReference):
		httpx.Error(w, http.StatusBadRequest, op+": "+err.Error())
	default:
		h.Logger.Error(op, "err", err)
		httpx.Error(w, http.StatusInternalServerError, op+" failed")
	}
}

func (h *Handler) id(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, ok := httpx.IDParam(r, param)
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "invalid "+param)
	}
	return id, ok
}

// currentLecturer loads the profile linked to the caller's account.
func (h *Handler) currentLecturer(w http.ResponseWriter, r *http.Request) (*Lecturer, bool) {
	caller := authz.IdentityFromContext(r.Context())
	l, err := h.Store.GetLecturerByAccount(r.Context(), caller.AccountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Error(w, http.StatusNotFound, "lecturer profile not found")
			return nil, false
		}
		h.fail(w, err, "load lecturer profile")
		return nil, false
	}
	return l, true
}

func (h *Handler) deleted(w http.ResponseWriter, err error, op string) {
	if err != nil {
		h.fail(w, err, op)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Courses

func (h *Handler) listCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.Store.ListCourses(r.Context())
	if err != nil {
		h.fail(w, err, "list courses")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, courses)
}

func (h *Handler) getCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r, "id")
	if !ok {
		return
	}
	c, err := h.Store.GetCourse(r.Context(), id)
	if err != nil {
		h.fail(w, err, "get course")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) createCourse(w http.ResponseWriter, r *http.Request) {
	var c Course
	if !h.decode(w, r, &c) {
		return
	}
	if err := h.Store.CreateCourse(r.Context(), &c); err != nil {
		h.fail(w, err, "create course")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) updateCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r, "id")
	if !ok {
		return
	}
	var c Course
	if !h.decode(w, r, &c) {
		return
	}
	c.ID = id
	if err := h.Store.UpdateCourse(r.Context(), &c); err != nil {
		h.fail(w, err, "update course")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) deleteCourse(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.id(w, r, "id"); ok {
		h.deleted(w, h.Store.DeleteCourse(r.Context(), id), "delete course")
	}
}

// Lecturers

func (h *Handler) listLecturers(w http.ResponseWriter, r *http.Request) {
	lecturers, err := h.Store.ListLecturers(r.Context())
	if err != nil {
		h.fail(w, err, "list lecturers")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, lecturers)
}

func (h *Handler) getLecturer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r, "id")
	if !ok {
		return
	}
	l, err := h.Store.GetLecturer(r.Context(), id)
	if err != nil {
		h.fail(w, err, "get lecturer")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, l)
}

func (h *Handler) myLecturer(w http.ResponseWriter, r *http.Request) {
	if l, ok := h.currentLecturer(w, r); ok {
		httpx.WriteJSON(w, http.StatusOK, l)
	}
}

func (h *Handler) listPotentialLecturers(w http.ResponseWriter, r *http.Request) {
	lecturers, err := h.Store.ListPotentialLecturers(r.Context())
	if err != nil {
		h.fail(w, err, "list potential lecturers")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, lecturers)
}

// saveMyLecturer updates the caller's profile, or creates one linked to the
// caller when none exists yet. The caller never sets status or the link.
func (h *Handler) saveMyLecturer(w http.ResponseWriter, r *http.Request) {
	caller := authz.IdentityFromContext(r.Context())
	var l Lecturer
	if !h.decode(w, r, &l) {
		return
	}
	existing, err := h.Store.GetLecturerByAccount(r.Context(), caller.AccountID)
	switch {
	case errors.Is(err, ErrNotFound):
		accountID := caller.AccountID
		l.ID = 0
		l.AccountID = &accountID
		l.Status = StatusPending
		if err := h.Store.CreateLecturer(r.Context(), &l); err != nil {
			h.fail(w, err, "create lecturer profile")
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, l)
	case err != nil:
		h.fail(w, err, "load lecturer profile")
	default:
		l.ID = existing.ID
		l.AccountID = existing.AccountID
		l.Status = existing.Status
		l.CreatedAt = existing.CreatedAt
		if err := h.Store.UpdateLecturer(r.Context(), &l); err != nil {
			h.fail(w, err, "update lecturer profile")
			return
		}
		httpx.WriteJSON(w, http.StatusOK, l)
	}
}

func (h *Handler) createLecturer(w http.ResponseWriter, r *http.Request) {
	var l Lecturer
	if !h.decode(w, r, &l) {
		return
	}
	if err := h.Store.CreateLecturer(r.Context(), &l); err != nil {
		h.fail(w, err, "create lecturer")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, l)
}

// updateLecturer leaves the account link untouched.
func (h *Handler) updateLecturer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r, "id")
	if !ok {
		return
	}
	var l Lecturer
	if !h.decode(w, r, &l) {
		return
	}
	l.ID = id
	if l.Status == "" {
		l.Status = StatusPending
	}
	if err := h.Store.UpdateLecturer(r.Context(), &l); err != nil {
		h.fail(w, err, "update lecturer")
		return
	}
	h.getLecturer(w, r)
}

func (h *Handler) setLecturerStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r, "id")
	if !ok {
		return
	}
	var payload struct {
		Status string `json:"status" validate:"required,max=100"`
	}
	if !h.decode(w, r, &payload) {
		return
	}
	if err := h.Store.UpdateLecturerStatus(r.Context(), id, payload.Status); err != nil {
		h.fail(w, err, "update lecturer status")
		return
	}
	h.getLecturer(w, r)
}

func (h *Handler) deleteLecturer(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.id(w, r, "id"); ok {
		h.deleted(w, h.Store.DeleteLecturer(r.Context(), id), "delete lecturer")
	}
}

// Classes

func (h *Handler) listClasses(w http.ResponseWriter, r *http.Request) {
	classes, err := h.Store.ListClasses(r.Context())
	if err != nil {
		h.fail(w, err, "list classes")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, classes)
}

func (h *Handler) getClass(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r, "id")
	if !ok {
		return
	}
	c, err := h.Store.GetClass(r.Context(), id)
	if err != nil {
		h.fail(w, err, "get class")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) createClass(w http.ResponseWriter, r *http.Request) {
	var c Class
	if !h.decode(w, r, &c) {
		return
	}
	if err := h.Store.CreateClass(r.Context(), &c); err != nil {
		h.fail(w, err, "create class")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) updateClass(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r, "id")
	if !ok {
		return
	}
	var c Class
	if !h.decode(w, r, &c) {
		return
	}
	c.ID = id
	if err := h.Store.UpdateClass(r.Context(), &c); err != nil {
		h.fail(w, err, "update class")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) deleteClass(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.id(w, r, "id"); ok {
		h.deleted(w, h.Store.DeleteClass(r.Context(), id), "delete class")
	}
}

// Schedules

func (h *Handler) listSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.Store.ListSchedules(r.Context())
	if err != nil {
		h.fail(w, err, "list schedules")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, schedules)
}

func (h *Handler) schedulesByLecturer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r, "lecturerID")
	if !ok {
		return
	}
	schedules, err := h.Store.ListSchedulesByLecturer(r.Context(), id)
	if err != nil {
		h.fail(w, err, "list schedules")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, schedules)
}

func (h *Handler) mySchedules(w http.ResponseWriter, r *http.Request) {
	l, ok := h.currentLecturer(w, r)
	if !ok {
		return
	}
	schedules, err := h.Store.ListSchedulesByLecturer(r.Context(), l.ID)
	if err != nil {
		h.fail(w, err, "list schedules")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, schedules)
}

func (h *Handler) getSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r, "id")
	if !ok {
		return
	}
	sc, err := h.Store.GetSchedule(r.Context(), id)
	if err != nil {
		h.fail(w, err, "get schedule")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sc)
}

func (h *Handler) createSchedule(w http.ResponseWriter, r *http.Request) {
	var sc Schedule
	if !h.decode(w, r, &sc) {
		return
	}
	if err := h.Store.CreateSchedule(r.Context(), &sc); err != nil {
		h.fail(w, err, "create schedule")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, sc)
}

func (h *Handler) updateSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r, "id")
	if !ok {
		return
	}
	var sc Schedule
	if !h.decode(w, r, &sc) {
		return
	}
	sc.ID = id
	if err := h.Store.UpdateSchedule(r.Context(), &sc); err != nil {
		h.fail(w, err, "update schedule")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sc)
}

func (h *Handler) deleteSchedule(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.id(w, r, "id"); ok {
		h.deleted(w, h.Store.DeleteSchedule(r.Context(), id), "delete schedule")
	}
}

// Evaluations

func (h *Handler) listEvaluations(w http.ResponseWriter, r *http.Request) {
	evaluations, err := h.Store.ListEvaluations(r.Context())
	if err != nil {
		h.fail(w, err, "list evaluations")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, evaluations)
}

func (h *Handler) evaluationsByLecturer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r, "lecturerID")
	if !ok {
		return
	}
	evaluations, err := h.Store.ListEvaluationsByLecturer(r.Context(), id)
	if err != nil {
		h.fail(w, err, "list evaluations")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, evaluations)
}

func (h *Handler) myEvaluations(w http.ResponseWriter, r *http.Request) {
	l, ok := h.currentLecturer(w, r)
	if !ok {
		return
	}
	evaluations, err := h.Store.ListEvaluationsByLecturer(r.Context(), l.ID)
	if err != nil {
		h.fail(w, err, "list evaluations")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, evaluations)
}

func (h *Handler) getEvaluation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r, "id")
	if !ok {
		return
	}
	e, err := h.Store.GetEvaluation(r.Context(), id)
	if err != nil {
		h.fail(w, err, "get evaluation")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) createEvaluation(w http.ResponseWriter, r *http.Request) {
	var e Evaluation
	if !h.decode(w, r, &e) {
		return
	}
	if err := h.Store.CreateEvaluation(r.Context(), &e); err != nil {
		h.fail(w, err, "create evaluation")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, e)
}

func (h *Handler) updateEvaluation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r, "id")
	if !ok {
		return
	}
	var e Evaluation
	if !h.decode(w, r, &e) {
		return
	}
	e.ID = id
	if err := h.Store.UpdateEvaluation(r.Context(), &e); err != nil {
		h.fail(w, err, "update evaluation")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) deleteEvaluation(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.id(w, r, "id"); ok {
		h.deleted(w, h.Store.DeleteEvaluation(r.Context(), id), "delete evaluation")
	}
}

// Recommendations

func (h *Handler) listRecommendations(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Store.ListRecommendations(r.Context())
	if err != nil {
		h.fail(w, err, "list recommendations")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, recs)
}

func (h *Handler) myRecommendations(w http.ResponseWriter, r *http.Request) {
	l, ok := h.currentLecturer(w, r)
	if !ok {
		return
	}
	recs, err := h.Store.ListRecommendationsByRecommender(r.Context(), l.ID)
	if err != nil {
		h.fail(w, err, "list recommendations")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, recs)
}

func (h *Handler) getRecommendation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r, "id")
	if !ok {
		return
	}
	rec, err := h.Store.GetRecommendation(r.Context(), id)
	if err != nil {
		h.fail(w, err, "get recommendation")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) createRecommendation(w http.ResponseWriter, r *http.Request) {
	var rec Recommendation
	if !h.decode(w, r, &rec) {
		return
	}
	if rec.RecommenderID <= 0 {
		httpx.Error(w, http.StatusBadRequest, "recommender_id is required")
		return
	}
	h.insertRecommendation(w, r, &rec)
}

// createMyRecommendation files a recommendation on behalf of the caller's
// own lecturer profile.
func (h *Handler) createMyRecommendation(w http.ResponseWriter, r *http.Request) {
	l, ok := h.currentLecturer(w, r)
	if !ok {
		return
	}
	var rec Recommendation
	if !h.decode(w, r, &rec) {
		return
	}
	rec.RecommenderID = l.ID
	rec.Status = StatusPending
	h.insertRecommendation(w, r, &rec)
}

func (h *Handler) insertRecommendation(w http.ResponseWriter, r *http.Request, rec *Recommendation) {
	if err := h.Store.CreateRecommendation(r.Context(), rec); err != nil {
		h.fail(w, err, "create recommendation")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, rec)
}

func (h *Handler) updateRecommendation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r, "id")
	if !ok {
		return
	}
	var rec Recommendation
	if !h.decode(w, r, &rec) {
		return
	}
	rec.ID = id
	if rec.Status == "" {
		rec.Status = StatusPending
	}
	if err := h.Store.UpdateRecommendation(r.Context(), &rec); err != nil {
		h.fail(w, err, "update recommendation")
		return
	}
	h.getRecommendation(w, r)
}

func (h *Handler) deleteRecommendation(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.id(w, r, "id"); ok {
		h.deleted(w, h.Store.DeleteRecommendation(r.Context(), id), "delete recommendation")
	}
}
