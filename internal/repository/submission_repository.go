package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/chendurkumaran/Edu-resource-sub000/internal/models"
)

// SubmissionRepository handles persistence of submissions and their
// attachment references. Content edits and grading deliberately touch
// disjoint column sets so a concurrent edit can never clobber a grade and
// vice versa.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

const submissionColumns = `id, assignment_id, student_id, text_body, submitted_at, is_late, status, grade_points, grade_feedback, graded_at, graded_by, updated_at`

// FindByID returns a submission by its ID.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM submissions WHERE id = $1`, submissionColumns)
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		return nil, err
	}
	submission.HydrateGrade()
	return &submission, nil
}

// FindByStudentAndAssignment returns the single row for the pair.
func (r *SubmissionRepository) FindByStudentAndAssignment(ctx context.Context, studentID, assignmentID string) (*models.Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM submissions WHERE student_id = $1 AND assignment_id = $2`, submissionColumns)
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, studentID, assignmentID); err != nil {
		return nil, err
	}
	submission.HydrateGrade()
	return &submission, nil
}

// ListByStudentAndAssignments returns the student's submissions for any of
// the given assignments. Used by the progression evaluator.
func (r *SubmissionRepository) ListByStudentAndAssignments(ctx context.Context, studentID string, assignmentIDs []string) ([]models.Submission, error) {
	if len(assignmentIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(
		fmt.Sprintf(`SELECT %s FROM submissions WHERE student_id = ? AND assignment_id IN (?)`, submissionColumns),
		studentID, assignmentIDs)
	if err != nil {
		return nil, fmt.Errorf("build submission query: %w", err)
	}
	query = r.db.Rebind(query)
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, args...); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	for i := range submissions {
		submissions[i].HydrateGrade()
	}
	return submissions, nil
}

// ListByAssignment returns all submissions for an assignment.
func (r *SubmissionRepository) ListByAssignment(ctx context.Context, assignmentID string) ([]models.Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM submissions WHERE assignment_id = $1 ORDER BY submitted_at ASC`, submissionColumns)
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, assignmentID); err != nil {
		return nil, fmt.Errorf("list assignment submissions: %w", err)
	}
	for i := range submissions {
		submissions[i].HydrateGrade()
	}
	return submissions, nil
}

// Create persists the first submission for a (student, assignment) pair.
// The unique index backs the at-most-one invariant.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = time.Now().UTC()
	}
	if submission.Status == "" {
		submission.Status = models.SubmissionStatusSubmitted
	}
	submission.UpdatedAt = submission.SubmittedAt
	const query = `INSERT INTO submissions (id, assignment_id, student_id, text_body, submitted_at, is_late, status, updated_at)
        VALUES (:id, :assignment_id, :student_id, :text_body, :submitted_at, :is_late, :status, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSubmission
		}
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// UpdateContent rewrites the student-owned columns only. submitted_at and
// is_late keep the original submission instant.
func (r *SubmissionRepository) UpdateContent(ctx context.Context, id string, textBody *string) error {
	const query = `UPDATE submissions SET text_body = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, textBody, time.Now().UTC()); err != nil {
		return fmt.Errorf("update submission content: %w", err)
	}
	return nil
}

// UpdateGrade rewrites the grade columns only and marks the row graded.
func (r *SubmissionRepository) UpdateGrade(ctx context.Context, id string, points float64, feedback *string, gradedBy string, gradedAt time.Time) error {
	const query = `UPDATE submissions
        SET status = $2, grade_points = $3, grade_feedback = $4, graded_at = $5, graded_by = $6
        WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.SubmissionStatusGraded, points, feedback, gradedAt, gradedBy); err != nil {
		return fmt.Errorf("update submission grade: %w", err)
	}
	return nil
}

// Delete removes a submission row; attachment rows cascade.
func (r *SubmissionRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM submissions WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	return nil
}

// ListAttachments returns the attachment references of a submission.
func (r *SubmissionRepository) ListAttachments(ctx context.Context, submissionID string) ([]models.Attachment, error) {
	const query = `SELECT id, kind, display_name, storage_locator, url, mime_type, size_bytes
        FROM submission_attachments WHERE submission_id = $1`
	var attachments []models.Attachment
	if err := r.db.SelectContext(ctx, &attachments, query, submissionID); err != nil {
		return nil, fmt.Errorf("list submission attachments: %w", err)
	}
	return attachments, nil
}

// ReplaceAttachments swaps the attachment reference list of a submission.
func (r *SubmissionRepository) ReplaceAttachments(ctx context.Context, submissionID string, attachments []models.Attachment) error {
	const deleteQuery = `DELETE FROM submission_attachments WHERE submission_id = $1`
	if _, err := r.db.ExecContext(ctx, deleteQuery, submissionID); err != nil {
		return fmt.Errorf("clear submission attachments: %w", err)
	}
	const insertQuery = `INSERT INTO submission_attachments (id, submission_id, kind, display_name, storage_locator, url, mime_type, size_bytes)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, attachment := range attachments {
		if attachment.ID == "" {
			attachment.ID = uuid.NewString()
		}
		if _, err := r.db.ExecContext(ctx, insertQuery, attachment.ID, submissionID, attachment.Kind, attachment.DisplayName, attachment.StorageLocator, attachment.URL, attachment.MimeType, attachment.SizeBytes); err != nil {
			return fmt.Errorf("insert submission attachment: %w", err)
		}
	}
	return nil
}
