package models

import "time"

// CreateCourseRequest creates a catalog entry. New courses start
// unapproved and closed for enrollment.
type CreateCourseRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=200"`
	Code        string `json:"code" validate:"required,min=2,max=32"`
	MaxStudents int    `json:"max_students" validate:"required,min=1"`
	IsFree      bool   `json:"is_free"`
}

// CreateModuleRequest appends a module to a course. Position is assigned
// server-side.
type CreateModuleRequest struct {
	Title                string `json:"title" validate:"required,min=1,max=200"`
	IsAssignmentBlocking bool   `json:"is_assignment_blocking"`
}

// CreateAssignmentRequest creates an assignment within a course.
type CreateAssignmentRequest struct {
	Title               string         `json:"title" validate:"required,min=1,max=200"`
	Description         *string        `json:"description,omitempty"`
	TotalPoints         float64        `json:"total_points" validate:"required,gt=0"`
	DueDate             *time.Time     `json:"due_date,omitempty"`
	SubmissionType      SubmissionType `json:"submission_type" validate:"required,oneof=FILE TEXT BOTH"`
	AllowLateSubmission bool           `json:"allow_late_submission"`
	LatePenalty         float64        `json:"late_penalty" validate:"min=0,max=100"`
	AllowedFileTypes    string         `json:"allowed_file_types"`
	MaxFileSize         int64          `json:"max_file_size" validate:"min=0"`
}

// AttachmentInput is the client-side view of an attachment reference. FILE
// entries point at a locator issued by the upload collaborator, LINK
// entries carry an external URL.
type AttachmentInput struct {
	Kind           AttachmentKind `json:"kind" validate:"required,oneof=FILE LINK"`
	DisplayName    string         `json:"display_name" validate:"required,max=255"`
	StorageLocator string         `json:"storage_locator,omitempty"`
	URL            string         `json:"url,omitempty"`
	MimeType       string         `json:"mime_type,omitempty"`
	SizeBytes      int64          `json:"size_bytes,omitempty"`
}

// SubmitRequest creates the single submission for (student, assignment).
type SubmitRequest struct {
	AssignmentID string            `json:"assignment_id" validate:"required"`
	TextBody     *string           `json:"text_body,omitempty"`
	Attachments  []AttachmentInput `json:"attachments,omitempty" validate:"dive"`
}

// EditSubmissionRequest replaces submission content. Lateness and grade
// state are never touched by an edit.
type EditSubmissionRequest struct {
	TextBody    *string           `json:"text_body,omitempty"`
	Attachments []AttachmentInput `json:"attachments,omitempty" validate:"dive"`
}

// GradeRequest records or overwrites the grade on a submission. Range
// checks happen against the assignment's total, not here.
type GradeRequest struct {
	Points   float64 `json:"points"`
	Feedback *string `json:"feedback,omitempty"`
}
