package lecturers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"lecturehub/internal/authz"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflicts with an existing record")
	ErrReference = errors.New("references a missing record")
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Load implements authz.Loader for every kind in this package.
func (s *Store) Load(ctx context.Context, kind authz.Kind, id int64) (any, error) {
	var (
		v   any
		err error
	)
	switch kind {
	case KindCourse:
		v, err = s.GetCourse(ctx, id)
	case KindLecturer:
		v, err = s.GetLecturer(ctx, id)
	case KindSchedule:
		v, err = s.GetSchedule(ctx, id)
	case KindEvaluation:
		v, err = s.GetEvaluation(ctx, id)
	case KindRecommendation:
		v, err = s.GetRecommendation(ctx, id)
	case KindClass:
		v, err = s.GetClass(ctx, id)
	default:
		return nil, fmt.Errorf("unknown kind %s: %w", kind, authz.ErrResourceAbsent)
	}
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%s %d: %w", kind, id, authz.ErrResourceAbsent)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func mapErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return ErrConflict
		case "23503":
			return ErrReference
		}
	}
	return err
}

func execOne(ctx context.Context, db *sql.DB, q string, args ...any) error {
	res, err := db.ExecContext(ctx, q, args...)
	if err != nil {
		return mapErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Courses

const courseColumns = `id, name, code, description, credits`

func scanCourse(row rowScanner) (*Course, error) {
	c := &Course{}
	if err := row.Scan(&c.ID, &c.Name, &c.Code, &c.Description, &c.Credits); err != nil {
		return nil, mapErr(err)
	}
	return c, nil
}

func (s *Store) ListCourses(ctx context.Context) ([]Course, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+courseColumns+` FROM courses ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

func (s *Store) GetCourse(ctx context.Context, id int64) (*Course, error) {
	return scanCourse(s.db.QueryRowContext(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id))
}

func (s *Store) CreateCourse(ctx context.Context, c *Course) error {
	const q = `INSERT INTO courses (name, code, description, credits) VALUES ($1, $2, $3, $4) RETURNING id`
	return mapErr(s.db.QueryRowContext(ctx, q, c.Name, c.Code, c.Description, c.Credits).Scan(&c.ID))
}

func (s *Store) UpdateCourse(ctx context.Context, c *Course) error {
	const q = `UPDATE courses SET name = $1, code = $2, description = $3, credits = $4 WHERE id = $5`
	return execOne(ctx, s.db, q, c.Name, c.Code, c.Description, c.Credits, c.ID)
}

func (s *Store) DeleteCourse(ctx context.Context, id int64) error {
	return execOne(ctx, s.db, `DELETE FROM courses WHERE id = $1`, id)
}

// Lecturers

const lecturerColumns = `id, name, email, phone_number, gender, degree, title, work_position, workplace,
	status, account_id, created_at`

func scanLecturer(row rowScanner) (*Lecturer, error) {
	l := &Lecturer{}
	var account sql.NullInt64
	if err := row.Scan(&l.ID, &l.Name, &l.Email, &l.PhoneNumber, &l.Gender, &l.Degree, &l.Title,
		&l.WorkPosition, &l.Workplace, &l.Status, &account, &l.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	if account.Valid {
		id := account.Int64
		l.AccountID = &id
	}
	return l, nil
}

func (s *Store) queryLecturers(ctx context.Context, where string, args ...any) ([]Lecturer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+lecturerColumns+` FROM lecturers `+where+` ORDER BY name, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []Lecturer{}
	for rows.Next() {
		l, err := scanLecturer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *l)
	}
	return result, rows.Err()
}

func (s *Store) ListLecturers(ctx context.Context) ([]Lecturer, error) {
	return s.queryLecturers(ctx, "")
}

// ListPotentialLecturers returns profiles without a signed contract and
// profiles whose account is still in the potential_lecturer group.
func (s *Store) ListPotentialLecturers(ctx context.Context) ([]Lecturer, error) {
	const where = `
		WHERE status <> $1 OR EXISTS (
			SELECT 1 FROM account_groups ag JOIN groups g ON g.id = ag.group_id
			WHERE ag.account_id = lecturers.account_id AND g.name = $2
		)`
	return s.queryLecturers(ctx, where, StatusContracted, string(authz.RolePotentialLecturer))
}

func (s *Store) GetLecturer(ctx context.Context, id int64) (*Lecturer, error) {
	return scanLecturer(s.db.QueryRowContext(ctx, `SELECT `+lecturerColumns+` FROM lecturers WHERE id = $1`, id))
}

// GetLecturerByAccount returns the profile linked to an account.
func (s *Store) GetLecturerByAccount(ctx context.Context, accountID int64) (*Lecturer, error) {
	return scanLecturer(s.db.QueryRowContext(ctx,
		`SELECT `+lecturerColumns+` FROM lecturers WHERE account_id = $1`, accountID))
}

func (s *Store) CreateLecturer(ctx context.Context, l *Lecturer) error {
	if l.Status == "" {
		l.Status = StatusPending
	}
	const q = `
		INSERT INTO lecturers (name, email, phone_number, gender, degree, title, work_position, workplace,
			status, account_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`
	return mapErr(s.db.QueryRowContext(ctx, q, l.Name, l.Email, l.PhoneNumber, l.Gender, l.Degree, l.Title,
		l.WorkPosition, l.Workplace, l.Status, l.AccountID, time.Now().UTC()).Scan(&l.ID, &l.CreatedAt))
}

func (s *Store) UpdateLecturer(ctx context.Context, l *Lecturer) error {
	const q = `
		UPDATE lecturers SET name = $1, email = $2, phone_number = $3, gender = $4, degree = $5, title = $6,
			work_position = $7, workplace = $8, status = $9
		WHERE id = $10
	`
	return execOne(ctx, s.db, q, l.Name, l.Email, l.PhoneNumber, l.Gender, l.Degree, l.Title,
		l.WorkPosition, l.Workplace, l.Status, l.ID)
}

func (s *Store) UpdateLecturerStatus(ctx context.Context, id int64, status string) error {
	return execOne(ctx, s.db, `UPDATE lecturers SET status = $1 WHERE id = $2`, status, id)
}

func (s *Store) DeleteLecturer(ctx context.Context, id int64) error {
	return execOne(ctx, s.db, `DELETE FROM lecturers WHERE id = $1`, id)
}

// Classes

const classColumns = `id, name, course_id, lecturer_id, semester, year`

func scanClass(row rowScanner) (*Class, error) {
	c := &Class{}
	if err := row.Scan(&c.ID, &c.Name, &c.CourseID, &c.LecturerID, &c.Semester, &c.Year); err != nil {
		return nil, mapErr(err)
	}
	return c, nil
}

func (s *Store) ListClasses(ctx context.Context) ([]Class, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+classColumns+` FROM classes ORDER BY year DESC, semester, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []Class{}
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

func (s *Store) GetClass(ctx context.Context, id int64) (*Class, error) {
	return scanClass(s.db.QueryRowContext(ctx, `SELECT `+classColumns+` FROM classes WHERE id = $1`, id))
}

func (s *Store) CreateClass(ctx context.Context, c *Class) error {
	const q = `
		INSERT INTO classes (name, course_id, lecturer_id, semester, year)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	return mapErr(s.db.QueryRowContext(ctx, q, c.Name, c.CourseID, c.LecturerID, c.Semester, c.Year).Scan(&c.ID))
}

func (s *Store) UpdateClass(ctx context.Context, c *Class) error {
	const q = `UPDATE classes SET name = $1, course_id = $2, lecturer_id = $3, semester = $4, year = $5 WHERE id = $6`
	return execOne(ctx, s.db, q, c.Name, c.CourseID, c.LecturerID, c.Semester, c.Year, c.ID)
}

func (s *Store) DeleteClass(ctx context.Context, id int64) error {
	return execOne(ctx, s.db, `DELETE FROM classes WHERE id = $1`, id)
}

// Schedules

const scheduleColumns = `id, lecturer_id, course_id, start_time, end_time, place, notes`

func scanSchedule(row rowScanner) (*Schedule, error) {
	sc := &Schedule{}
	if err := row.Scan(&sc.ID, &sc.LecturerID, &sc.CourseID, &sc.StartTime, &sc.EndTime, &sc.Place,
		&sc.Notes); err != nil {
		return nil, mapErr(err)
	}
	return sc, nil
}

func (s *Store) querySchedules(ctx context.Context, where string, args ...any) ([]Schedule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+scheduleColumns+` FROM schedules `+where+` ORDER BY start_time`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []Schedule{}
	for rows.Next() {
		sc, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *sc)
	}
	return result, rows.Err()
}

func (s *Store) ListSchedules(ctx context.Context) ([]Schedule, error) {
	return s.querySchedules(ctx, "")
}

func (s *Store) ListSchedulesByLecturer(ctx context.Context, lecturerID int64) ([]Schedule, error) {
	return s.querySchedules(ctx, "WHERE lecturer_id = $1", lecturerID)
}

func (s *Store) GetSchedule(ctx context.Context, id int64) (*Schedule, error) {
	return scanSchedule(s.db.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = $1`, id))
}

func (s *Store) CreateSchedule(ctx context.Context, sc *Schedule) error {
	const q = `
		INSERT INTO schedules (lecturer_id, course_id, start_time, end_time, place, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	return mapErr(s.db.QueryRowContext(ctx, q, sc.LecturerID, sc.CourseID, sc.StartTime, sc.EndTime,
		sc.Place, sc.Notes).Scan(&sc.ID))
}

func (s *Store) UpdateSchedule(ctx context.Context, sc *Schedule) error {
	const q = `
		UPDATE schedules SET lecturer_id = $1, course_id = $2, start_time = $3, end_time = $4, place = $5, notes = $6
		WHERE id = $7
	`
	return execOne(ctx, s.db, q, sc.LecturerID, sc.CourseID, sc.StartTime, sc.EndTime, sc.Place, sc.Notes, sc.ID)
}

func (s *Store) DeleteSchedule(ctx context.Context, id int64) error {
	return execOne(ctx, s.db, `DELETE FROM schedules WHERE id = $1`, id)
}

// Evaluations

const evaluationColumns = `id, lecturer_id, title, content, kind, date`

func scanEvaluation(row rowScanner) (*Evaluation, error) {
	e := &Evaluation{}
	if err := row.Scan(&e.ID, &e.LecturerID, &e.Title, &e.Content, &e.Kind, &e.Date); err != nil {
		return nil, mapErr(err)
	}
	return e, nil
}

func (s *Store) queryEvaluations(ctx context.Context, where string, args ...any) ([]Evaluation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+evaluationColumns+` FROM evaluations `+where+` ORDER BY date DESC, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []Evaluation{}
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	return result, rows.Err()
}

func (s *Store) ListEvaluations(ctx context.Context) ([]Evaluation, error) {
	return s.queryEvaluations(ctx, "")
}

func (s *Store) ListEvaluationsByLecturer(ctx context.Context, lecturerID int64) ([]Evaluation, error) {
	return s.queryEvaluations(ctx, "WHERE lecturer_id = $1", lecturerID)
}

func (s *Store) GetEvaluation(ctx context.Context, id int64) (*Evaluation, error) {
	return scanEvaluation(s.db.QueryRowContext(ctx, `SELECT `+evaluationColumns+` FROM evaluations WHERE id = $1`, id))
}

func (s *Store) CreateEvaluation(ctx context.Context, e *Evaluation) error {
	const q = `
		INSERT INTO evaluations (lecturer_id, title, content, kind, date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	return mapErr(s.db.QueryRowContext(ctx, q, e.LecturerID, e.Title, e.Content, e.Kind, e.Date).Scan(&e.ID))
}

func (s *Store) UpdateEvaluation(ctx context.Context, e *Evaluation) error {
	const q = `UPDATE evaluations SET lecturer_id = $1, title = $2, content = $3, kind = $4, date = $5 WHERE id = $6`
	return execOne(ctx, s.db, q, e.LecturerID, e.Title, e.Content, e.Kind, e.Date, e.ID)
}

func (s *Store) DeleteEvaluation(ctx context.Context, id int64) error {
	return execOne(ctx, s.db, `DELETE FROM evaluations WHERE id = $1`, id)
}

// Recommendations

const recommendationColumns = `id, recommender_id, name, email, phone_number, workplace, course_ids, status,
	content, created_at`

func scanRecommendation(row rowScanner) (*Recommendation, error) {
	r := &Recommendation{}
	var courses pq.Int64Array
	if err := row.Scan(&r.ID, &r.RecommenderID, &r.Name, &r.Email, &r.PhoneNumber, &r.Workplace, &courses,
		&r.Status, &r.Content, &r.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	r.CourseIDs = []int64(courses)
	return r, nil
}

func (s *Store) queryRecommendations(ctx context.Context, where string, args ...any) ([]Recommendation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recommendationColumns+` FROM recommendations `+where+` ORDER BY created_at DESC, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []Recommendation{}
	for rows.Next() {
		r, err := scanRecommendation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *r)
	}
	return result, rows.Err()
}

func (s *Store) ListRecommendations(ctx context.Context) ([]Recommendation, error) {
	return s.queryRecommendations(ctx, "")
}

func (s *Store) ListRecommendationsByRecommender(ctx context.Context, lecturerID int64) ([]Recommendation, error) {
	return s.queryRecommendations(ctx, "WHERE recommender_id = $1", lecturerID)
}

func (s *Store) GetRecommendation(ctx context.Context, id int64) (*Recommendation, error) {
	return scanRecommendation(s.db.QueryRowContext(ctx,
		`SELECT `+recommendationColumns+` FROM recommendations WHERE id = $1`, id))
}

func (s *Store) CreateRecommendation(ctx context.Context, r *Recommendation) error {
	if r.Status == "" {
		r.Status = StatusPending
	}
	if r.CourseIDs == nil {
		r.CourseIDs = []int64{}
	}
	const q = `
		INSERT INTO recommendations (recommender_id, name, email, phone_number, workplace, course_ids, status,
			content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`
	return mapErr(s.db.QueryRowContext(ctx, q, r.RecommenderID, r.Name, r.Email, r.PhoneNumber, r.Workplace,
		pq.Array(r.CourseIDs), r.Status, r.Content, time.Now().UTC()).Scan(&r.ID, &r.CreatedAt))
}

// UpdateRecommendation never moves a recommendation to another recommender.
func (s *Store) UpdateRecommendation(ctx context.Context, r *Recommendation) error {
	if r.CourseIDs == nil {
		r.CourseIDs = []int64{}
	}
	const q = `
		UPDATE recommendations SET name = $1, email = $2, phone_number = $3, workplace = $4, course_ids = $5,
			status = $6, content = $7
		WHERE id = $8
	`
	return execOne(ctx, s.db, q, r.Name, r.Email, r.PhoneNumber, r.Workplace, pq.Array(r.CourseIDs), r.Status,
		r.Content, r.ID)
}

func (s *Store) DeleteRecommendation(ctx context.Context, id int64) error {
	return execOne(ctx, s.db, `DELETE FROM recommendations WHERE id = $1`, id)
}
