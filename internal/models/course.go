package models

import "time"

// Course is the catalog root. currentEnrollment is the authoritative
// admission counter and is only mutated through conditional updates that
// keep 0 <= current_enrollment <= max_students under concurrent callers.
type Course struct {
	ID                string    `db:"id" json:"id"`
	Title             string    `db:"title" json:"title"`
	Code              string    `db:"code" json:"code"`
	InstructorID      string    `db:"instructor_id" json:"instructor_id"`
	MaxStudents       int       `db:"max_students" json:"max_students"`
	CurrentEnrollment int       `db:"current_enrollment" json:"current_enrollment"`
	IsApproved        bool      `db:"is_approved" json:"is_approved"`
	IsActive          bool      `db:"is_active" json:"is_active"`
	IsFree            bool      `db:"is_free" json:"is_free"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// OpenForEnrollment reports whether admission preconditions hold.
func (c *Course) OpenForEnrollment() bool {
	return c.IsApproved && c.IsActive
}

// Module is an ordered section of a course. When IsAssignmentBlocking is
// set, later modules stay locked until every assignment it references has
// a submission.
type Module struct {
	ID                   string    `db:"id" json:"id"`
	CourseID             string    `db:"course_id" json:"course_id"`
	Title                string    `db:"title" json:"title"`
	Position             int       `db:"position" json:"position"`
	IsAssignmentBlocking bool      `db:"is_assignment_blocking" json:"is_assignment_blocking"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	AssignmentIDs        []string  `json:"assignment_ids"`
}

// CourseDetail enriches Course with its ordered module list.
type CourseDetail struct {
	Course
	Modules []Module `json:"modules"`
}

// CourseFilter captures filtering criteria for listing courses.
type CourseFilter struct {
	InstructorID string
	Approved     *bool
	Active       *bool
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
