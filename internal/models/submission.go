package models

import "time"

// SubmissionStatus represents the grading lifecycle state.
type SubmissionStatus string

const (
	SubmissionStatusSubmitted SubmissionStatus = "SUBMITTED"
	SubmissionStatusGraded    SubmissionStatus = "GRADED"
)

// Grade is the graded outcome attached to a submission. A submission owns
// at most one Grade; re-grading overwrites it.
type Grade struct {
	Points   float64   `json:"points"`
	Feedback *string   `json:"feedback,omitempty"`
	GradedAt time.Time `json:"graded_at"`
	GradedBy string    `json:"graded_by"`
}

// Submission is the single row per (student, assignment). is_late and
// submitted_at are frozen at the first submission instant; edits only touch
// content columns and grading only touches grade columns.
type Submission struct {
	ID           string           `db:"id" json:"id"`
	AssignmentID string           `db:"assignment_id" json:"assignment_id"`
	StudentID    string           `db:"student_id" json:"student_id"`
	TextBody     *string          `db:"text_body" json:"text_body,omitempty"`
	SubmittedAt  time.Time        `db:"submitted_at" json:"submitted_at"`
	IsLate       bool             `db:"is_late" json:"is_late"`
	Status       SubmissionStatus `db:"status" json:"status"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`

	GradePoints   *float64   `db:"grade_points" json:"-"`
	GradeFeedback *string    `db:"grade_feedback" json:"-"`
	GradedAt      *time.Time `db:"graded_at" json:"-"`
	GradedBy      *string    `db:"graded_by" json:"-"`

	Attachments []Attachment `json:"attachments,omitempty"`
	Grade       *Grade       `json:"grade,omitempty"`
}

// HydrateGrade assembles the Grade view from the nullable grade columns.
func (s *Submission) HydrateGrade() {
	if s.Status != SubmissionStatusGraded || s.GradePoints == nil || s.GradedAt == nil || s.GradedBy == nil {
		s.Grade = nil
		return
	}
	s.Grade = &Grade{
		Points:   *s.GradePoints,
		Feedback: s.GradeFeedback,
		GradedAt: *s.GradedAt,
		GradedBy: *s.GradedBy,
	}
}

// Completed reports whether the submission counts towards module gating.
func (s *Submission) Completed() bool {
	return s.Status == SubmissionStatusSubmitted || s.Status == SubmissionStatusGraded
}

// GradingContext accompanies grading responses so instructors see the
// lateness facts next to the grade they are entering. SuggestedPoints is
// advisory; the stored grade is always the instructor's entry.
type GradingContext struct {
	IsLate             bool     `json:"is_late"`
	DaysLate           int      `json:"days_late"`
	LatePenaltyPercent float64  `json:"late_penalty_percent"`
	SuggestedPoints    *float64 `json:"suggested_points,omitempty"`
}

// SubmissionFilter scopes submission listings.
type SubmissionFilter struct {
	AssignmentID string
	StudentID    string
	CourseID     string
	Status       SubmissionStatus
}
