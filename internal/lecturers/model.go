package lecturers

import (
	"time"

	"lecturehub/internal/authz"
)

const (
	KindCourse         authz.Kind = "course"
	KindLecturer       authz.Kind = "lecturer"
	KindSchedule       authz.Kind = "schedule"
	KindEvaluation     authz.Kind = "evaluation"
	KindRecommendation authz.Kind = "recommendation"
	KindClass          authz.Kind = "class"
)

const (
	StatusPending    = "pending"
	StatusContracted = "contracted"
)

type Course struct {
	ID          int64  `json:"id"`
	Name        string `json:"name" validate:"required,max=100"`
	Code        string `json:"code" validate:"required,max=10"`
	Description string `json:"description" validate:"max=1000"`
	Credits     int    `json:"credits" validate:"gte=0,lte=30"`
}

// Lecturer is a profile record, optionally linked to the account it belongs to.
type Lecturer struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name" validate:"required,max=30"`
	Email        string    `json:"email" validate:"required,email,max=100"`
	PhoneNumber  string    `json:"phone_number" validate:"max=20"`
	Gender       string    `json:"gender" validate:"max=10"`
	Degree       string    `json:"degree" validate:"max=20"`
	Title        string    `json:"title" validate:"max=20"`
	WorkPosition string    `json:"work_position" validate:"max=100"`
	Workplace    string    `json:"workplace" validate:"max=100"`
	Status       string    `json:"status" validate:"max=100"`
	AccountID    *int64    `json:"account_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (l *Lecturer) OwnerAccountID() (int64, bool) {
	if l.AccountID == nil {
		return 0, false
	}
	return *l.AccountID, true
}

// Class is a course section taught by one lecturer.
type Class struct {
	ID         int64  `json:"id"`
	Name       string `json:"name" validate:"required,max=100"`
	CourseID   int64  `json:"course_id" validate:"required,gt=0"`
	LecturerID int64  `json:"lecturer_id" validate:"required,gt=0"`
	Semester   int    `json:"semester" validate:"required,gt=0"`
	Year       string `json:"year" validate:"required,max=10"`
}

func (c *Class) OwnerProfile() (authz.Kind, int64, bool) {
	return KindLecturer, c.LecturerID, c.LecturerID != 0
}

type Schedule struct {
	ID         int64     `json:"id"`
	LecturerID int64     `json:"lecturer_id" validate:"required,gt=0"`
	CourseID   int64     `json:"course_id" validate:"required,gt=0"`
	StartTime  time.Time `json:"start_time" validate:"required"`
	EndTime    time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	Place      string    `json:"place" validate:"required,max=200"`
	Notes      string    `json:"notes" validate:"max=500"`
}

func (s *Schedule) OwnerProfile() (authz.Kind, int64, bool) {
	return KindLecturer, s.LecturerID, s.LecturerID != 0
}

type Evaluation struct {
	ID         int64     `json:"id"`
	LecturerID int64     `json:"lecturer_id" validate:"required,gt=0"`
	Title      string    `json:"title" validate:"required,max=200"`
	Content    string    `json:"content" validate:"required,max=2000"`
	Kind       string    `json:"type" validate:"required,max=100"`
	Date       time.Time `json:"date" validate:"required"`
}

func (e *Evaluation) OwnerProfile() (authz.Kind, int64, bool) {
	return KindLecturer, e.LecturerID, e.LecturerID != 0
}

// Recommendation proposes a new lecturer; the recommender owns it.
type Recommendation struct {
	ID            int64     `json:"id"`
	RecommenderID int64     `json:"recommender_id"`
	Name          string    `json:"name" validate:"required,max=30"`
	Email         string    `json:"email" validate:"omitempty,email,max=100"`
	PhoneNumber   string    `json:"phone_number" validate:"max=20"`
	Workplace     string    `json:"workplace" validate:"max=100"`
	CourseIDs     []int64   `json:"course_ids" validate:"dive,gt=0"`
	Status        string    `json:"status" validate:"max=100"`
	Content       string    `json:"content" validate:"required,max=1000"`
	CreatedAt     time.Time `json:"created_at"`
}

func (r *Recommendation) OwnerProfile() (authz.Kind, int64, bool) {
	return KindLecturer, r.RecommenderID, r.RecommenderID != 0
}
