package models

import (
	"strings"
	"time"
)

// SubmissionType constrains what a submission may contain.
type SubmissionType string

const (
	SubmissionTypeFile SubmissionType = "FILE"
	SubmissionTypeText SubmissionType = "TEXT"
	SubmissionTypeBoth SubmissionType = "BOTH"
)

// AttachmentKind distinguishes stored files from external link references.
type AttachmentKind string

const (
	AttachmentKindFile AttachmentKind = "FILE"
	AttachmentKindLink AttachmentKind = "LINK"
)

// Attachment is an opaque reference supplied by the upload collaborator.
// FILE rows carry a storage locator, LINK rows carry a URL; the core never
// reads file bytes.
type Attachment struct {
	ID             string         `db:"id" json:"id"`
	Kind           AttachmentKind `db:"kind" json:"kind"`
	DisplayName    string         `db:"display_name" json:"display_name"`
	StorageLocator string         `db:"storage_locator" json:"storage_locator,omitempty"`
	URL            string         `db:"url" json:"url,omitempty"`
	MimeType       string         `db:"mime_type" json:"mime_type,omitempty"`
	SizeBytes      int64          `db:"size_bytes" json:"size_bytes,omitempty"`
}

// Extension returns the lowercase filename extension without the dot.
func (a Attachment) Extension() string {
	idx := strings.LastIndex(a.DisplayName, ".")
	if idx < 0 || idx == len(a.DisplayName)-1 {
		return ""
	}
	return strings.ToLower(a.DisplayName[idx+1:])
}

// Assignment belongs to a course and is referenced by module lists. A due
// date of nil means the assignment is permanently open.
type Assignment struct {
	ID                  string         `db:"id" json:"id"`
	CourseID            string         `db:"course_id" json:"course_id"`
	Title               string         `db:"title" json:"title"`
	Description         *string        `db:"description" json:"description,omitempty"`
	TotalPoints         float64        `db:"total_points" json:"total_points"`
	DueDate             *time.Time     `db:"due_date" json:"due_date,omitempty"`
	SubmissionType      SubmissionType `db:"submission_type" json:"submission_type"`
	AllowLateSubmission bool           `db:"allow_late_submission" json:"allow_late_submission"`
	LatePenalty         float64        `db:"late_penalty" json:"late_penalty"`
	AllowedFileTypes    string         `db:"allowed_file_types" json:"allowed_file_types"`
	MaxFileSize         int64          `db:"max_file_size" json:"max_file_size"`
	IsPublished         bool           `db:"is_published" json:"is_published"`
	IsSolutionVisible   bool           `db:"is_solution_visible" json:"is_solution_visible"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at" json:"updated_at"`
	SolutionAttachments []Attachment   `json:"solution_attachments,omitempty"`
}

// AllowedExtensions parses the comma separated allowed_file_types column.
func (a *Assignment) AllowedExtensions() []string {
	if a.AllowedFileTypes == "" {
		return nil
	}
	parts := strings.Split(a.AllowedFileTypes, ",")
	exts := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(p, ".")))
		if trimmed != "" {
			exts = append(exts, trimmed)
		}
	}
	return exts
}

// PastDue reports whether now is past the due date. Assignments without a
// due date are never past due.
func (a *Assignment) PastDue(now time.Time) bool {
	return a.DueDate != nil && now.After(*a.DueDate)
}
