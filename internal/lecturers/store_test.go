package lecturers

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lecturehub/internal/authz"
)

var (
	lecturerCols       = []string{"id", "name", "email", "phone_number", "gender", "degree", "title", "work_position", "workplace", "status", "account_id", "created_at"}
	scheduleCols       = []string{"id", "lecturer_id", "course_id", "start_time", "end_time", "place", "notes"}
	classCols          = []string{"id", "name", "course_id", "lecturer_id", "semester", "year"}
	recommendationCols = []string{"id", "recommender_id", "name", "email", "phone_number", "workplace", "course_ids", "status", "content", "created_at"}
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func lecturerRow(id int64, account any) *sqlmock.Rows {
	return sqlmock.NewRows(lecturerCols).
		AddRow(id, "Nguyen Van A", "a@uni.edu", "", "", "PhD", "", "", "", StatusPending, account, time.Now())
}

func scheduleRow(id, lecturerID int64) *sqlmock.Rows {
	start := time.Date(2025, 9, 8, 7, 30, 0, 0, time.UTC)
	return sqlmock.NewRows(scheduleCols).
		AddRow(id, lecturerID, 2, start, start.Add(90*time.Minute), "B1-203", "")
}

func TestLoadDispatchesByKind(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedules WHERE id = $1")).
		WithArgs(int64(1)).WillReturnRows(scheduleRow(1, 7))
	mock.ExpectQuery(regexp.QuoteMeta("FROM lecturers WHERE id = $1")).
		WithArgs(int64(7)).WillReturnRows(lecturerRow(7, int64(70)))

	v, err := store.Load(context.Background(), KindSchedule, 1)
	require.NoError(t, err)
	profile, ok := v.(authz.HasOwnerProfile)
	require.True(t, ok)
	kind, lecturerID, linked := profile.OwnerProfile()
	assert.Equal(t, KindLecturer, kind)
	assert.Equal(t, int64(7), lecturerID)
	assert.True(t, linked)

	v, err = store.Load(context.Background(), KindLecturer, 7)
	require.NoError(t, err)
	ref, ok := v.(authz.HasOwnerReference)
	require.True(t, ok)
	owner, ok := ref.OwnerAccountID()
	assert.True(t, ok)
	assert.Equal(t, int64(70), owner)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadUnlinkedLecturer(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("FROM lecturers").WithArgs(int64(8)).WillReturnRows(lecturerRow(8, nil))

	v, err := store.Load(context.Background(), KindLecturer, 8)
	require.NoError(t, err)
	_, linked := v.(*Lecturer).OwnerAccountID()
	assert.False(t, linked)
}

func TestLoadAbsent(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("FROM evaluations").WithArgs(int64(4)).WillReturnError(sql.ErrNoRows)

	_, err := store.Load(context.Background(), KindEvaluation, 4)
	assert.ErrorIs(t, err, authz.ErrResourceAbsent)

	_, err = store.Load(context.Background(), authz.Kind("contract"), 1)
	assert.ErrorIs(t, err, authz.ErrResourceAbsent)
}

func TestStoreMapsConstraintErrors(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("INSERT INTO courses").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectQuery("INSERT INTO schedules").WillReturnError(&pq.Error{Code: "23503"})
	mock.ExpectExec("UPDATE courses").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM lecturers").WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	err := store.CreateCourse(ctx, &Course{Name: "Networks", Code: "NET101", Credits: 3})
	assert.ErrorIs(t, err, ErrConflict)

	err = store.CreateSchedule(ctx, &Schedule{LecturerID: 99, CourseID: 1})
	assert.ErrorIs(t, err, ErrReference)

	err = store.UpdateCourse(ctx, &Course{ID: 42, Name: "x", Code: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, store.DeleteLecturer(ctx, 3))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListReturnsEmptySlice(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedules WHERE lecturer_id = $1")).
		WithArgs(int64(5)).WillReturnRows(sqlmock.NewRows(scheduleCols))

	schedules, err := store.ListSchedulesByLecturer(context.Background(), 5)
	require.NoError(t, err)
	assert.NotNil(t, schedules)
	assert.Empty(t, schedules)
}

func TestRecommendationCourseIDs(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("FROM recommendations").WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(recommendationCols).
			AddRow(3, 7, "Tran B", "", "", "", "{4,9}", StatusPending, "strong candidate", time.Now()))

	rec, err := store.GetRecommendation(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 9}, rec.CourseIDs)
	assert.Equal(t, int64(7), rec.RecommenderID)
}

func TestLoadClassPointsAtLecturer(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM classes WHERE id = $1")).
		WithArgs(int64(5)).WillReturnRows(sqlmock.NewRows(classCols).AddRow(5, "CS101-A", 2, 7, 1, "2025"))

	v, err := store.Load(context.Background(), KindClass, 5)
	require.NoError(t, err)
	kind, lecturerID, linked := v.(authz.HasOwnerProfile).OwnerProfile()
	assert.Equal(t, KindLecturer, kind)
	assert.Equal(t, int64(7), lecturerID)
	assert.True(t, linked)
	require.NoError(t, mock.ExpectationsWereMet())
}
