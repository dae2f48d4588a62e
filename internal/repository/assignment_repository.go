package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/chendurkumaran/Edu-resource-sub000/internal/models"
)

// AssignmentRepository handles persistence of assignments and their
// solution/handout attachment references.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

const assignmentColumns = `id, course_id, title, description, total_points, due_date, submission_type, allow_late_submission, late_penalty, allowed_file_types, max_file_size, is_published, is_solution_visible, created_at, updated_at`

// FindByID returns an assignment by its ID.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignments WHERE id = $1`, assignmentColumns)
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// ListByCourse returns all assignments of a course.
func (r *AssignmentRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignments WHERE course_id = $1 ORDER BY created_at ASC`, assignmentColumns)
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, courseID); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// Create persists a new assignment record.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = now
	}
	assignment.UpdatedAt = now
	const query = `INSERT INTO assignments (id, course_id, title, description, total_points, due_date, submission_type, allow_late_submission, late_penalty, allowed_file_types, max_file_size, is_published, is_solution_visible, created_at, updated_at)
        VALUES (:id, :course_id, :title, :description, :total_points, :due_date, :submission_type, :allow_late_submission, :late_penalty, :allowed_file_types, :max_file_size, :is_published, :is_solution_visible, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// SetPublished flips the published flag.
func (r *AssignmentRepository) SetPublished(ctx context.Context, id string, published bool) error {
	const query = `UPDATE assignments SET is_published = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, published, time.Now().UTC()); err != nil {
		return fmt.Errorf("set assignment published: %w", err)
	}
	return nil
}

// ListSolutionAttachments returns the solution attachment references.
func (r *AssignmentRepository) ListSolutionAttachments(ctx context.Context, assignmentID string) ([]models.Attachment, error) {
	const query = `SELECT id, kind, display_name, storage_locator, url, mime_type, size_bytes
        FROM assignment_attachments WHERE assignment_id = $1 AND is_solution = TRUE`
	var attachments []models.Attachment
	if err := r.db.SelectContext(ctx, &attachments, query, assignmentID); err != nil {
		return nil, fmt.Errorf("list solution attachments: %w", err)
	}
	return attachments, nil
}

// AddAttachment stores an attachment reference for an assignment.
func (r *AssignmentRepository) AddAttachment(ctx context.Context, assignmentID string, attachment models.Attachment, isSolution bool) error {
	if attachment.ID == "" {
		attachment.ID = uuid.NewString()
	}
	const query = `INSERT INTO assignment_attachments (id, assignment_id, kind, display_name, storage_locator, url, mime_type, size_bytes, is_solution)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := r.db.ExecContext(ctx, query, attachment.ID, assignmentID, attachment.Kind, attachment.DisplayName, attachment.StorageLocator, attachment.URL, attachment.MimeType, attachment.SizeBytes, isSolution); err != nil {
		return fmt.Errorf("add assignment attachment: %w", err)
	}
	return nil
}
