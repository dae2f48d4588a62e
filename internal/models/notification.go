package models

import (
	"encoding/json"
	"time"
)

// NotificationEvent identifies the workflow event behind a notification.
type NotificationEvent string

const (
	EventStudentEnrolled    NotificationEvent = "STUDENT_ENROLLED"
	EventStudentUnenrolled  NotificationEvent = "STUDENT_UNENROLLED"
	EventSubmissionReceived NotificationEvent = "SUBMISSION_RECEIVED"
	EventSubmissionGraded   NotificationEvent = "SUBMISSION_GRADED"
	EventEnrollmentRejected NotificationEvent = "ENROLLMENT_REJECTED"
)

// Notification is a read-model row consumed by messaging/analytics.
type Notification struct {
	ID        string            `db:"id" json:"id"`
	UserID    string            `db:"user_id" json:"user_id"`
	Event     NotificationEvent `db:"event" json:"event"`
	Payload   json.RawMessage   `db:"payload" json:"payload"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
	ReadAt    *time.Time        `db:"read_at" json:"read_at,omitempty"`
}
