package lecturers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lecturehub/internal/authz"
)

const testPolicies = `
schedules:
  retrieve:
    self: true
    education_department: false
recommendations:
  me:
    lecturer: false
lecturers:
  me:
    user: false
  potential_lecturers,partial_update:
    it_faculty: false
    education_department: false
`

func newTestServer(t *testing.T, id authz.Identity) (http.Handler, sqlmock.Sqlmock) {
	t.Helper()
	store, mock := newMockStore(t)
	policies, err := authz.ParsePolicies([]byte(testPolicies))
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gate := authz.NewGate(authz.NewEngine(policies, authz.NewOwners(store)), logger)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(authz.WithIdentity(req.Context(), id)))
		})
	})
	NewHandler(store, logger).Mount(r, gate)
	return r, mock
}

func member(accountID int64, groups ...string) authz.Identity {
	return authz.Identity{Authenticated: true, AccountID: accountID, Username: "u", Groups: groups}
}

func TestScheduleRetrieveOwnership(t *testing.T) {
	t.Run("owner", func(t *testing.T) {
		h, mock := newTestServer(t, member(70))
		mock.ExpectQuery(regexp.QuoteMeta("FROM schedules WHERE id = $1")).WithArgs(int64(1)).WillReturnRows(scheduleRow(1, 7))
		mock.ExpectQuery(regexp.QuoteMeta("FROM lecturers WHERE id = $1")).WithArgs(int64(7)).WillReturnRows(lecturerRow(7, int64(70)))
		mock.ExpectQuery(regexp.QuoteMeta("FROM schedules WHERE id = $1")).WithArgs(int64(1)).WillReturnRows(scheduleRow(1, 7))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/schedules/1", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var got Schedule
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, int64(7), got.LecturerID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other lecturer", func(t *testing.T) {
		h, mock := newTestServer(t, member(71, "lecturer"))
		mock.ExpectQuery("FROM schedules").WithArgs(int64(1)).WillReturnRows(scheduleRow(1, 7))
		mock.ExpectQuery("FROM lecturers").WithArgs(int64(7)).WillReturnRows(lecturerRow(7, int64(70)))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/schedules/1", nil))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("department skips ownership", func(t *testing.T) {
		h, mock := newTestServer(t, member(71, "education_department"))
		mock.ExpectQuery("FROM schedules").WithArgs(int64(1)).WillReturnRows(scheduleRow(1, 7))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/schedules/1", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("anonymous", func(t *testing.T) {
		h, mock := newTestServer(t, authz.Anonymous)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/schedules/1", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCreateMyRecommendationUsesCallerProfile(t *testing.T) {
	h, mock := newTestServer(t, member(70, "lecturer"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM lecturers WHERE account_id = $1")).
		WithArgs(int64(70)).WillReturnRows(lecturerRow(7, int64(70)))
	mock.ExpectQuery("INSERT INTO recommendations").
		WithArgs(int64(7), "Tran B", "", "", "", sqlmock.AnyArg(), StatusPending, "strong candidate", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(12, time.Now()))

	body := `{"name":"Tran B","content":"strong candidate","course_ids":[4],"recommender_id":99,"status":"approved"}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/recommendations/me", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got Recommendation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(12), got.ID)
	assert.Equal(t, int64(7), got.RecommenderID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMyRecommendationsWithoutProfile(t *testing.T) {
	h, mock := newTestServer(t, member(70, "lecturer"))
	mock.ExpectQuery("FROM lecturers WHERE account_id").WithArgs(int64(70)).WillReturnRows(sqlmock.NewRows(lecturerCols))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recommendations/me", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateScheduleValidation(t *testing.T) {
	h, mock := newTestServer(t, member(1))

	body := `{"lecturer_id":7,"course_id":2,"start_time":"2025-09-08T09:00:00Z","end_time":"2025-09-08T08:00:00Z","place":"B1"}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/schedules/", strings.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveMyLecturer(t *testing.T) {
	body := `{"name":"Nguyen Van A","email":"a@uni.edu","degree":"PhD","status":"contracted","account_id":99}`

	t.Run("creates linked profile", func(t *testing.T) {
		h, mock := newTestServer(t, member(70, "potential_lecturer"))
		mock.ExpectQuery(regexp.QuoteMeta("FROM lecturers WHERE account_id = $1")).
			WithArgs(int64(70)).WillReturnRows(sqlmock.NewRows(lecturerCols))
		mock.ExpectQuery("INSERT INTO lecturers").
			WithArgs("Nguyen Van A", "a@uni.edu", "", "", "PhD", "", "", "", StatusPending, int64(70), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(7, time.Now()))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/lecturers/me", strings.NewReader(body)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var got Lecturer
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, int64(7), got.ID)
		assert.Equal(t, StatusPending, got.Status)
		require.NotNil(t, got.AccountID)
		assert.Equal(t, int64(70), *got.AccountID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("updates existing profile", func(t *testing.T) {
		h, mock := newTestServer(t, member(70, "lecturer"))
		mock.ExpectQuery(regexp.QuoteMeta("FROM lecturers WHERE account_id = $1")).
			WithArgs(int64(70)).WillReturnRows(lecturerRow(7, int64(70)))
		mock.ExpectExec("UPDATE lecturers SET name").
			WithArgs("Nguyen Van A", "a@uni.edu", "", "", "PhD", "", "", "", StatusPending, int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/lecturers/me", strings.NewReader(body)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got Lecturer
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, int64(7), got.ID)
		assert.Equal(t, StatusPending, got.Status)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("anonymous", func(t *testing.T) {
		h, mock := newTestServer(t, authz.Anonymous)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/lecturers/me", strings.NewReader(body)))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPotentialLecturers(t *testing.T) {
	h, mock := newTestServer(t, member(5, "it_faculty"))
	mock.ExpectQuery(regexp.QuoteMeta("status <> $1 OR EXISTS")).
		WithArgs(StatusContracted, "potential_lecturer").
		WillReturnRows(lecturerRow(7, int64(70)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lecturers/potential", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got []Lecturer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())

	h, mock = newTestServer(t, member(70, "lecturer"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lecturers/potential", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetLecturerStatus(t *testing.T) {
	t.Run("department", func(t *testing.T) {
		h, mock := newTestServer(t, member(5, "education_department"))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE lecturers SET status = $1 WHERE id = $2")).
			WithArgs(StatusContracted, int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta("FROM lecturers WHERE id = $1")).
			WithArgs(int64(7)).WillReturnRows(lecturerRow(7, int64(70)))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/lecturers/7", strings.NewReader(`{"status":"contracted"}`)))
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing status", func(t *testing.T) {
		h, mock := newTestServer(t, member(5, "it_faculty"))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/lecturers/7", strings.NewReader(`{}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("owner cannot sign off own profile", func(t *testing.T) {
		h, mock := newTestServer(t, member(70, "lecturer"))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/lecturers/7", strings.NewReader(`{"status":"contracted"}`)))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestClassRoutes(t *testing.T) {
	h, mock := newTestServer(t, member(70, "lecturer"))
	mock.ExpectQuery("INSERT INTO classes").
		WithArgs("CS101-A", int64(2), int64(7), 1, "2025").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectQuery(regexp.QuoteMeta("FROM classes WHERE id = $1")).
		WithArgs(int64(5)).WillReturnRows(sqlmock.NewRows(classCols).AddRow(5, "CS101-A", 2, 7, 1, "2025"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM classes WHERE id = $1")).
		WithArgs(int64(6)).WillReturnResult(sqlmock.NewResult(0, 0))

	body := `{"name":"CS101-A","course_id":2,"lecturer_id":7,"semester":1,"year":"2025"}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/classes/", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/classes/5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got Class
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "CS101-A", got.Name)
	assert.Equal(t, int64(7), got.LecturerID)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/classes/6", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/classes/", strings.NewReader(`{"name":"CS101-B"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())

	h, _ = newTestServer(t, authz.Anonymous)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/classes/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
